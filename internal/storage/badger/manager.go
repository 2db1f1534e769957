package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/thesis/internal/common"
	"github.com/ternarybob/thesis/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db     *BadgerDB
	report interfaces.ReportStorage
	quote  interfaces.QuoteStorage
	job    interfaces.JobStorage
	logger arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:     db,
		report: NewReportStorage(db, logger),
		quote:  NewQuoteStorage(db, logger),
		job:    NewJobStorage(db, logger),
		logger: logger,
	}

	logger.Info().Str("path", config.Path).Msg("Badger storage manager initialized")

	return manager, nil
}

// ReportStorage returns the report store
func (m *Manager) ReportStorage() interfaces.ReportStorage {
	return m.report
}

// QuoteStorage returns the quote store
func (m *Manager) QuoteStorage() interfaces.QuoteStorage {
	return m.quote
}

// JobStorage returns the report queue store
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
