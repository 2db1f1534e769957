package badger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/thesis/internal/common"
	"github.com/ternarybob/thesis/internal/interfaces"
	"github.com/ternarybob/thesis/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ReportStorage implements interfaces.ReportStorage for Badger
type ReportStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.Mutex // serializes version assignment
}

// NewReportStorage creates a new ReportStorage instance
func NewReportStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ReportStorage {
	return &ReportStorage{
		db:     db,
		logger: logger,
	}
}

// ContentHash returns a stable digest of the generated report content.
func ContentHash(content *models.GeneratedReport) (string, error) {
	data, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("failed to encode report content: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func (s *ReportStorage) SaveReport(ctx context.Context, report *models.StockReport) (*models.StockReport, bool, error) {
	if report.Ticker == "" {
		return nil, false, fmt.Errorf("report ticker is required")
	}

	hash, err := ContentHash(&report.Content)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	latest, err := s.GetLatestReport(ctx, report.Ticker)
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return nil, false, err
	}

	if latest != nil && latest.ContentHash == hash {
		s.logger.Debug().
			Str("ticker", report.Ticker).
			Int("version", latest.Version).
			Msg("Report content unchanged, keeping latest version")
		return latest, false, nil
	}

	stored := *report
	stored.ContentHash = hash
	stored.Version = 1
	if latest != nil {
		stored.Version = latest.Version + 1
	}
	if stored.ID == "" {
		stored.ID = common.NewReportID()
	}

	if err := s.db.Store().Insert(stored.ID, &stored); err != nil {
		return nil, false, fmt.Errorf("failed to save report: %w", err)
	}

	s.logger.Info().
		Str("ticker", stored.Ticker).
		Str("report_id", stored.ID).
		Int("version", stored.Version).
		Msg("Report saved")

	return &stored, true, nil
}

func (s *ReportStorage) GetReport(ctx context.Context, id string) (*models.StockReport, error) {
	var report models.StockReport
	if err := s.db.Store().Get(id, &report); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("report %s: %w", id, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return &report, nil
}

func (s *ReportStorage) GetLatestReport(ctx context.Context, ticker string) (*models.StockReport, error) {
	versions, err := s.ListReportVersions(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("report for %s: %w", ticker, interfaces.ErrNotFound)
	}
	return versions[0], nil
}

func (s *ReportStorage) ListReportVersions(ctx context.Context, ticker string) ([]*models.StockReport, error) {
	var reports []models.StockReport
	if err := s.db.Store().Find(&reports, badgerhold.Where("Ticker").Eq(ticker)); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	result := make([]*models.StockReport, len(reports))
	for i := range reports {
		result[i] = &reports[i]
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Version > result[j].Version
	})
	return result, nil
}

func (s *ReportStorage) ListLatestReports(ctx context.Context) ([]*models.StockReport, error) {
	var reports []models.StockReport
	if err := s.db.Store().Find(&reports, nil); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	latest := make(map[string]*models.StockReport)
	for i := range reports {
		r := &reports[i]
		if cur, ok := latest[r.Ticker]; !ok || r.Version > cur.Version {
			latest[r.Ticker] = r
		}
	}

	result := make([]*models.StockReport, 0, len(latest))
	for _, r := range latest {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Ticker < result[j].Ticker
	})
	return result, nil
}

func (s *ReportStorage) MarkReviewed(ctx context.Context, id string, reviewed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.GetReport(ctx, id)
	if err != nil {
		return err
	}
	report.HumanReviewed = reviewed

	if err := s.db.Store().Update(id, report); err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}
	return nil
}
