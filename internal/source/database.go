package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/cfiminer/miner/pkg/utils"
)

// TypeDatabase is the source type constant for the database source.
const TypeDatabase Type = "database"

func init() {
	Register(TypeDatabase, NewDatabaseSource)
}

// DatabaseOptions holds database source specific configuration.
type DatabaseOptions struct {
	// PollInterval is how often to poll for new queued transactions.
	PollInterval time.Duration

	// BatchSize is the maximum number of transactions to fetch per poll.
	BatchSize int

	// Table is the name of the queue table to poll.
	Table string
}

// DefaultDatabaseOptions returns the default options.
func DefaultDatabaseOptions() *DatabaseOptions {
	return &DatabaseOptions{
		PollInterval: 2 * time.Second,
		BatchSize:    50,
		Table:        "transaction_queue",
	}
}

// queuedTransactionRow is the shape of one row of the polled queue table.
type queuedTransactionRow struct {
	ID    int64  `gorm:"column:id"`
	Items string `gorm:"column:items"`
}

// DatabaseSource implements TransactionSource by polling a queue table for
// unconsumed transaction rows, one JSON- or comma-encoded item list per row.
type DatabaseSource struct {
	name    string
	options *DatabaseOptions
	logger  utils.Logger
	db      *gorm.DB

	eventChan chan *Event
	stopCh    chan struct{}

	mu      sync.RWMutex
	running bool
}

// NewDatabaseSource creates a new database source from configuration. The
// *gorm.DB connection must be attached with SetDB before Start is called.
func NewDatabaseSource(cfg *Config) (TransactionSource, error) {
	opts := &DatabaseOptions{
		PollInterval: cfg.GetDuration("poll_interval", 2*time.Second),
		BatchSize:    cfg.GetInt("batch_size", 50),
		Table:        cfg.GetString("table", "transaction_queue"),
	}
	return &DatabaseSource{
		name:      cfg.Name,
		options:   opts,
		eventChan: make(chan *Event, opts.BatchSize*2),
		stopCh:    make(chan struct{}),
	}, nil
}

// NewDatabaseSourceWithDB creates a database source with an explicit
// connection and options.
func NewDatabaseSourceWithDB(name string, db *gorm.DB, opts *DatabaseOptions, logger utils.Logger) *DatabaseSource {
	if opts == nil {
		opts = DefaultDatabaseOptions()
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, os.Stdout)
	}
	return &DatabaseSource{
		name:      name,
		options:   opts,
		logger:    logger,
		db:        db,
		eventChan: make(chan *Event, opts.BatchSize*2),
		stopCh:    make(chan struct{}),
	}
}

// SetDB attaches the database connection.
func (s *DatabaseSource) SetDB(db *gorm.DB) { s.db = db }

// SetLogger sets the logger.
func (s *DatabaseSource) SetLogger(logger utils.Logger) { s.logger = logger }

// Type returns the source type.
func (s *DatabaseSource) Type() Type { return TypeDatabase }

// Name returns the source instance name.
func (s *DatabaseSource) Name() string { return s.name }

// Start starts the database polling loop.
func (s *DatabaseSource) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	if s.db == nil {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("Database source %s starting poll_interval=%v batch_size=%d table=%s",
			s.name, s.options.PollInterval, s.options.BatchSize, s.options.Table)
	}

	go s.pollLoop(ctx)
	return nil
}

// Stop stops the database source.
func (s *DatabaseSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	return nil
}

// Transactions returns the transaction event channel.
func (s *DatabaseSource) Transactions() <-chan *Event {
	return s.eventChan
}

// HealthCheck checks the database connection.
func (s *DatabaseSource) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return errSourceNotRunning(s.name)
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *DatabaseSource) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.options.PollInterval)
	defer ticker.Stop()

	s.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *DatabaseSource) poll(ctx context.Context) {
	var rows []queuedTransactionRow
	err := s.db.WithContext(ctx).
		Table(s.options.Table).
		Where("consumed_at IS NULL").
		Order("id ASC").
		Limit(s.options.BatchSize).
		Find(&rows).Error
	if err != nil {
		if s.logger != nil {
			s.logger.Error("Database source %s failed to poll: %v", s.name, err)
		}
		return
	}

	for _, row := range rows {
		var items []string
		if err := json.Unmarshal([]byte(row.Items), &items); err != nil {
			items = strings.Split(row.Items, ",")
		}

		event := NewEvent(row.ID, items, TypeDatabase, s.name).
			WithMetadata("row_id", fmt.Sprintf("%d", row.ID))

		select {
		case s.eventChan <- event:
			if s.logger != nil {
				s.logger.Debug("Database source %s emitted transaction row %d", s.name, row.ID)
			}
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
			if s.logger != nil {
				s.logger.Warn("Database source %s event channel full, row %d will retry", s.name, row.ID)
			}
			continue
		}

		err := s.db.WithContext(ctx).
			Table(s.options.Table).
			Where("id = ?", row.ID).
			Update("consumed_at", time.Now()).Error
		if err != nil && s.logger != nil {
			s.logger.Error("Database source %s failed to mark row %d consumed: %v", s.name, row.ID, err)
		}
	}
}
