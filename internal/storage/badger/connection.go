package badger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/thesis/internal/common"
	"github.com/timshannon/badgerhold/v4"
)

// gcDiscardRatio is the share of stale data a value log file needs before
// GC rewrites it.
const gcDiscardRatio = 0.5

// BadgerDB owns the badgerhold store holding reports, quotes and jobs, and
// the value log GC loop that reclaims space from superseded report versions
// and finished jobs.
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewBadgerDB opens the store described by config. Records are JSON encoded
// so stored values match the API representation.
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig) (*BadgerDB, error) {
	opts, err := storeOptions(logger, config)
	if err != nil {
		return nil, err
	}

	store, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	db := &BadgerDB{
		store:  store,
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	interval := common.ParseDuration(config.GCInterval, 0)
	if config.InMemory || interval == 0 {
		close(db.done)
	} else {
		common.SafeGo(logger, "badger-gc", func() { db.gcLoop(interval) })
	}

	logger.Debug().
		Str("path", config.Path).
		Bool("in_memory", config.InMemory).
		Dur("gc_interval", interval).
		Msg("Badger database initialized")

	return db, nil
}

func storeOptions(logger arbor.ILogger, config *common.BadgerConfig) (badgerhold.Options, error) {
	opts := badgerhold.DefaultOptions
	opts.Encoder = json.Marshal
	opts.Decoder = json.Unmarshal

	if config.InMemory {
		opts.Options = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
		return opts, nil
	}

	if config.ResetOnStartup {
		logger.Warn().Str("path", config.Path).Msg("Resetting report database (reset_on_startup=true)")
		if err := os.RemoveAll(config.Path); err != nil {
			return opts, fmt.Errorf("failed to reset database directory: %w", err)
		}
	}
	if err := os.MkdirAll(config.Path, 0755); err != nil {
		return opts, fmt.Errorf("failed to create database directory: %w", err)
	}

	opts.Options = badger.DefaultOptions(config.Path).
		WithLogger(nil).
		WithNumVersionsToKeep(1)
	return opts, nil
}

func (b *BadgerDB) gcLoop(interval time.Duration) {
	defer close(b.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			b.collectGarbage()
		}
	}
}

// collectGarbage rewrites value log files until badger reports nothing left
// to reclaim.
func (b *BadgerDB) collectGarbage() {
	rewritten := 0
	for {
		err := b.store.Badger().RunValueLogGC(gcDiscardRatio)
		if err == nil {
			rewritten++
			continue
		}
		if !errors.Is(err, badger.ErrNoRewrite) {
			b.logger.Warn().Err(err).Msg("Badger value log GC failed")
		}
		break
	}

	if rewritten > 0 {
		b.logger.Debug().Int("files", rewritten).Msg("Badger value log GC reclaimed space")
	}
}

// Store returns the underlying badgerhold store
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Close stops GC and closes the store. It is safe to call more than once.
func (b *BadgerDB) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.stop)
		<-b.done
		err = b.store.Close()
	})
	return err
}
