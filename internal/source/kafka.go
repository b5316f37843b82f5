package source

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/cfiminer/miner/pkg/utils"
)

// TypeKafka is the source type constant for the Kafka source.
const TypeKafka Type = "kafka"

func init() {
	Register(TypeKafka, NewKafkaSource)
}

// KafkaOptions holds Kafka source specific configuration.
type KafkaOptions struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	Delimiter     string
	MinBytes      int
	MaxBytes      int
}

// DefaultKafkaOptions returns the default options.
func DefaultKafkaOptions() *KafkaOptions {
	return &KafkaOptions{
		Brokers:       []string{"localhost:9092"},
		Topic:         "transactions",
		ConsumerGroup: "cfiminer",
		Delimiter:     ",",
		MinBytes:      1,
		MaxBytes:      1 << 20,
	}
}

// KafkaSource implements TransactionSource by consuming delimited
// transaction lines from a Kafka topic.
type KafkaSource struct {
	name    string
	options *KafkaOptions
	logger  utils.Logger

	reader    *kafka.Reader
	eventChan chan *Event
	stopCh    chan struct{}

	mu      sync.RWMutex
	running bool
}

// NewKafkaSource creates a new Kafka source from configuration.
func NewKafkaSource(cfg *Config) (TransactionSource, error) {
	opts := &KafkaOptions{
		Brokers:       cfg.GetStringSlice("brokers", []string{"localhost:9092"}),
		Topic:         cfg.GetString("topic", "transactions"),
		ConsumerGroup: cfg.GetString("consumer_group", "cfiminer"),
		Delimiter:     cfg.GetString("delimiter", ","),
		MinBytes:      cfg.GetInt("min_bytes", 1),
		MaxBytes:      cfg.GetInt("max_bytes", 1<<20),
	}
	return &KafkaSource{
		name:      cfg.Name,
		options:   opts,
		eventChan: make(chan *Event, 256),
		stopCh:    make(chan struct{}),
	}, nil
}

// NewKafkaSourceWithOptions creates a Kafka source with explicit options.
func NewKafkaSourceWithOptions(name string, opts *KafkaOptions, logger utils.Logger) *KafkaSource {
	if opts == nil {
		opts = DefaultKafkaOptions()
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, os.Stdout)
	}
	return &KafkaSource{
		name:      name,
		options:   opts,
		logger:    logger,
		eventChan: make(chan *Event, 256),
		stopCh:    make(chan struct{}),
	}
}

// SetLogger sets the logger.
func (s *KafkaSource) SetLogger(logger utils.Logger) { s.logger = logger }

// Type returns the source type.
func (s *KafkaSource) Type() Type { return TypeKafka }

// Name returns the source instance name.
func (s *KafkaSource) Name() string { return s.name }

// Start begins consuming from the configured topic.
func (s *KafkaSource) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:  s.options.Brokers,
		Topic:    s.options.Topic,
		GroupID:  s.options.ConsumerGroup,
		MinBytes: s.options.MinBytes,
		MaxBytes: s.options.MaxBytes,
	})
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("Kafka source %s starting brokers=%v topic=%s group=%s",
			s.name, s.options.Brokers, s.options.Topic, s.options.ConsumerGroup)
	}

	go s.consumeLoop(ctx)
	return nil
}

// Stop stops the Kafka consumer.
func (s *KafkaSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	reader := s.reader
	s.mu.Unlock()

	close(s.stopCh)
	if reader != nil {
		return reader.Close()
	}
	return nil
}

// Transactions returns the transaction event channel.
func (s *KafkaSource) Transactions() <-chan *Event {
	return s.eventChan
}

// HealthCheck reports whether the reader has been established.
func (s *KafkaSource) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.reader == nil {
		return errSourceNotRunning(s.name)
	}
	return nil
}

func (s *KafkaSource) consumeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
		}

		msg, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if s.logger != nil {
				s.logger.Error("Kafka source %s read error: %v", s.name, err)
			}
			continue
		}

		items := strings.Split(string(msg.Value), s.options.Delimiter)
		for i := range items {
			items[i] = strings.TrimSpace(items[i])
		}

		event := NewEvent(msg.Offset, items, TypeKafka, s.name).
			WithMetadata("partition", strconv.Itoa(msg.Partition)).
			WithMetadata("offset", strconv.FormatInt(msg.Offset, 10))

		select {
		case s.eventChan <- event:
			if s.logger != nil {
				s.logger.Debug("Kafka source %s emitted transaction at offset %d", s.name, msg.Offset)
			}
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}
	}
}
