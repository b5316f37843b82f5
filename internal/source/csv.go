package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cfiminer/miner/pkg/utils"
)

// TypeCSV is the source type constant for the CSV file source.
const TypeCSV Type = "csv"

func init() {
	Register(TypeCSV, NewCSVSource)
}

// CSVOptions holds CSV source specific configuration.
type CSVOptions struct {
	// Path is the CSV/flat-file path to stream transactions from.
	Path string

	// Delimiter separates items within one transaction line.
	Delimiter string

	// FollowTail keeps reading new lines appended after EOF, like tail -f.
	FollowTail bool

	// PollInterval is how often to check for new lines when FollowTail is set.
	PollInterval time.Duration
}

// DefaultCSVOptions returns the default options.
func DefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		Path:         "transactions.csv",
		Delimiter:    ",",
		FollowTail:   false,
		PollInterval: 500 * time.Millisecond,
	}
}

// CSVSource implements TransactionSource by streaming lines of a delimited
// flat file, one transaction per line.
type CSVSource struct {
	name    string
	options *CSVOptions
	logger  utils.Logger

	eventChan chan *Event
	stopCh    chan struct{}

	mu      sync.RWMutex
	running bool
	offset  int64
}

// NewCSVSource creates a new CSV source from configuration.
func NewCSVSource(cfg *Config) (TransactionSource, error) {
	opts := &CSVOptions{
		Path:         cfg.GetString("path", "transactions.csv"),
		Delimiter:    cfg.GetString("delimiter", ","),
		FollowTail:   cfg.GetString("follow_tail", "") == "true",
		PollInterval: cfg.GetDuration("poll_interval", 500*time.Millisecond),
	}
	return &CSVSource{
		name:      cfg.Name,
		options:   opts,
		eventChan: make(chan *Event, 256),
		stopCh:    make(chan struct{}),
	}, nil
}

// NewCSVSourceWithOptions creates a CSV source with explicit options.
func NewCSVSourceWithOptions(name string, opts *CSVOptions, logger utils.Logger) *CSVSource {
	if opts == nil {
		opts = DefaultCSVOptions()
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, os.Stdout)
	}
	return &CSVSource{
		name:      name,
		options:   opts,
		logger:    logger,
		eventChan: make(chan *Event, 256),
		stopCh:    make(chan struct{}),
	}
}

// Type returns the source type.
func (s *CSVSource) Type() Type { return TypeCSV }

// Name returns the source instance name.
func (s *CSVSource) Name() string { return s.name }

// Start begins streaming lines from the file.
func (s *CSVSource) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	f, err := os.Open(s.options.Path)
	if err != nil {
		return fmt.Errorf("csv source %s: %w", s.name, err)
	}

	if s.logger != nil {
		s.logger.Info("CSV source %s streaming from %s", s.name, s.options.Path)
	}

	go s.readLoop(ctx, f)
	return nil
}

// Stop stops the CSV source.
func (s *CSVSource) Stop() error {
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
func (s *CSVSource) Transactions() <-chan *Event {
	return s.eventChan
}

// HealthCheck checks that the backing file is still reachable.
func (s *CSVSource) HealthCheck(ctx context.Context) error {
	_, err := os.Stat(s.options.Path)
	return err
}

func (s *CSVSource) readLoop(ctx context.Context, f *os.File) {
	defer f.Close()
	reader := bufio.NewReader(f)

	for {
		line, err := reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			s.emit(ctx, line)
		}
		if err != nil {
			if err != io.EOF {
				if s.logger != nil {
					s.logger.Error("CSV source %s read error: %v", s.name, err)
				}
				return
			}
			if !s.options.FollowTail {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-time.After(s.options.PollInterval):
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
		}
	}
}

func (s *CSVSource) emit(ctx context.Context, line string) {
	items := strings.Split(line, s.options.Delimiter)
	for i := range items {
		items[i] = strings.TrimSpace(items[i])
	}

	s.mu.Lock()
	off := s.offset
	s.offset++
	s.mu.Unlock()

	event := NewEvent(off, items, TypeCSV, s.name)

	select {
	case s.eventChan <- event:
		if s.logger != nil {
			s.logger.Debug("CSV source %s emitted transaction %d", s.name, off)
		}
	case <-ctx.Done():
	case <-s.stopCh:
	}
}
