package source

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cfiminer/miner/pkg/utils"
)

// TypeHTTP is the source type constant for the HTTP webhook source.
const TypeHTTP Type = "http"

func init() {
	Register(TypeHTTP, NewHTTPSource)
}

// HTTPOptions holds HTTP source specific configuration.
type HTTPOptions struct {
	ListenAddr   string
	Path         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodySize  int64
}

// DefaultHTTPOptions returns the default options.
func DefaultHTTPOptions() *HTTPOptions {
	return &HTTPOptions{
		ListenAddr:   ":8089",
		Path:         "/transactions",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		MaxBodySize:  1 << 20,
	}
}

// HTTPTransactionRequest is an incoming transaction submission.
type HTTPTransactionRequest struct {
	Items    []string          `json:"items"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// HTTPTransactionResponse is the response to a transaction submission.
type HTTPTransactionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// HTTPSource implements TransactionSource for webhook-style transaction
// submission.
type HTTPSource struct {
	name    string
	options *HTTPOptions
	logger  utils.Logger

	server    *http.Server
	eventChan chan *Event
	stopCh    chan struct{}

	mu      sync.RWMutex
	running bool
	offset  int64
}

// NewHTTPSource creates a new HTTP source from configuration.
func NewHTTPSource(cfg *Config) (TransactionSource, error) {
	opts := &HTTPOptions{
		ListenAddr:   cfg.GetString("listen_addr", ":8089"),
		Path:         cfg.GetString("path", "/transactions"),
		ReadTimeout:  cfg.GetDuration("read_timeout", 30*time.Second),
		WriteTimeout: cfg.GetDuration("write_timeout", 30*time.Second),
		MaxBodySize:  int64(cfg.GetInt("max_body_size", 1<<20)),
	}
	return &HTTPSource{
		name:      cfg.Name,
		options:   opts,
		eventChan: make(chan *Event, 256),
		stopCh:    make(chan struct{}),
	}, nil
}

// NewHTTPSourceWithOptions creates an HTTP source with explicit options.
func NewHTTPSourceWithOptions(name string, opts *HTTPOptions, logger utils.Logger) *HTTPSource {
	if opts == nil {
		opts = DefaultHTTPOptions()
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, os.Stdout)
	}
	return &HTTPSource{
		name:      name,
		options:   opts,
		logger:    logger,
		eventChan: make(chan *Event, 256),
		stopCh:    make(chan struct{}),
	}
}

// SetLogger sets the logger.
func (s *HTTPSource) SetLogger(logger utils.Logger) { s.logger = logger }

// Type returns the source type.
func (s *HTTPSource) Type() Type { return TypeHTTP }

// Name returns the source instance name.
func (s *HTTPSource) Name() string { return s.name }

// Start starts the HTTP server.
func (s *HTTPSource) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc(s.options.Path, s.handleTransaction)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:         s.options.ListenAddr,
		Handler:      mux,
		ReadTimeout:  s.options.ReadTimeout,
		WriteTimeout: s.options.WriteTimeout,
	}

	if s.logger != nil {
		s.logger.Info("HTTP source %s starting on %s%s", s.name, s.options.ListenAddr, s.options.Path)
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Error("HTTP source %s server error: %v", s.name, err)
			}
		}
	}()

	return nil
}

// Stop stops the HTTP server.
func (s *HTTPSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Transactions returns the transaction event channel.
func (s *HTTPSource) Transactions() <-chan *Event {
	return s.eventChan
}

// HealthCheck checks if the HTTP server is running.
func (s *HTTPSource) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return errSourceNotRunning(s.name)
	}
	return nil
}

func (s *HTTPSource) handleTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "only POST method is allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.options.MaxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req HTTPTransactionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if len(req.Items) == 0 {
		s.sendError(w, http.StatusBadRequest, "items is required")
		return
	}
	for i := range req.Items {
		req.Items[i] = strings.TrimSpace(req.Items[i])
	}

	s.mu.Lock()
	off := s.offset
	s.offset++
	s.mu.Unlock()

	event := NewEvent(off, req.Items, TypeHTTP, s.name)
	for k, v := range req.Metadata {
		event.WithMetadata(k, v)
	}

	select {
	case s.eventChan <- event:
		s.sendSuccess(w, "transaction accepted")
		if s.logger != nil {
			s.logger.Debug("HTTP source %s received transaction %d", s.name, off)
		}
	default:
		s.sendError(w, http.StatusServiceUnavailable, "transaction queue is full")
	}
}

func (s *HTTPSource) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "healthy",
		"source": s.name,
		"type":   string(TypeHTTP),
	})
}

func (s *HTTPSource) sendError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPTransactionResponse{Success: false, Message: message})
}

func (s *HTTPSource) sendSuccess(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(HTTPTransactionResponse{Success: true, Message: message})
}
