package driver

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cfiminer/miner/internal/advisor"
	"github.com/cfiminer/miner/internal/engine"
	"github.com/cfiminer/miner/internal/engine/factory"
	"github.com/cfiminer/miner/internal/lattice"
	"github.com/cfiminer/miner/internal/repository"
	"github.com/cfiminer/miner/internal/source"
	"github.com/cfiminer/miner/internal/storage"
	"github.com/cfiminer/miner/pkg/config"
	apperrors "github.com/cfiminer/miner/pkg/errors"
	"github.com/cfiminer/miner/pkg/itemset"
	"github.com/cfiminer/miner/pkg/model"
	"github.com/cfiminer/miner/pkg/parallel"
	"github.com/cfiminer/miner/pkg/utils"
)

var tracer = otel.Tracer("github.com/cfiminer/miner/internal/driver")

// Service wires configured transaction sources, through an aggregator, into
// a chosen sliding-window mining engine, and periodically persists window
// snapshots. It is the top-level entry point cmd/cfiminer runs.
type Service struct {
	config *config.Config
	logger utils.Logger
	clock  utils.Clock
	timer  *utils.Timer

	repos   *repository.Repositories
	storage storage.Storage

	sources    []source.TransactionSource
	aggregator *source.Aggregator

	factory     *factory.Factory[string]
	primary     engine.SlidingWindowAlgorithm[string]
	primaryKind engine.Kind
	advisor     *advisor.Advisor

	crossCheck  bool
	crossKinds  []engine.Kind
	crossEngine map[engine.Kind]engine.SlidingWindowAlgorithm[string]

	window *Window
	seq    int64

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New creates a Service from configuration. Call Initialize then Start to
// run it.
func New(cfg *config.Config, logger utils.Logger) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("driver: nil config")
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, os.Stdout)
	}

	return &Service{
		config: cfg,
		logger: logger,
		clock:  utils.NewRealClock(),
		timer: utils.NewTimer("snapshot",
			utils.WithLogger(logger),
			utils.WithEnabled(cfg.Mining.ProfileSnapshots)),
		factory: factory.NewFactory[string](),
		advisor: advisor.NewAdvisor(),
		stopCh:  make(chan struct{}),
	}, nil
}

// Initialize wires the database, storage, sources, and mining engine(s).
func (s *Service) Initialize(ctx context.Context) error {
	s.logger.Info("Initializing mining service components...")

	if err := s.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := s.initStorage(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := s.initSources(); err != nil {
		return fmt.Errorf("failed to initialize sources: %w", err)
	}
	if err := s.initEngines(); err != nil {
		return fmt.Errorf("failed to initialize engines: %w", err)
	}

	s.logger.Info("Mining service components initialized successfully")
	return nil
}

func (s *Service) initDatabase() error {
	s.logger.Info("Connecting to database (%s)...", s.config.Database.Type)

	dbConfig := &repository.DBConfig{
		Type:     s.config.Database.Type,
		Host:     s.config.Database.Host,
		Port:     s.config.Database.Port,
		Database: s.config.Database.Database,
		User:     s.config.Database.User,
		Password: s.config.Database.Password,
		MaxConns: s.config.Database.MaxConns,
	}

	gormDB, err := repository.NewGormDB(dbConfig)
	if err != nil {
		return err
	}

	s.repos = repository.NewRepositories(gormDB, s.config.Database.Type)
	s.logger.Info("Database connection established")
	return nil
}

func (s *Service) initStorage() error {
	s.logger.Info("Initializing storage (%s)...", s.config.Storage.Type)

	store, err := storage.NewStorage(&s.config.Storage)
	if err != nil {
		return err
	}

	s.storage = store
	s.logger.Info("Storage initialized")
	return nil
}

func (s *Service) initSources() error {
	s.logger.Info("Initializing transaction sources...")

	var sourceConfigs []*source.Config
	for _, cfg := range s.config.Sources {
		if !cfg.Enabled {
			s.logger.Info("Source %s (%s) is disabled, skipping", cfg.Name, cfg.Type)
			continue
		}
		sourceConfigs = append(sourceConfigs, &source.Config{
			Type:    source.Type(cfg.Type),
			Name:    cfg.Name,
			Enabled: cfg.Enabled,
			Options: cfg.Options,
		})
	}

	if len(sourceConfigs) == 0 {
		s.logger.Info("No sources configured, using default CSV source")
		sourceConfigs = append(sourceConfigs, &source.Config{
			Type:    source.TypeCSV,
			Name:    "default-csv",
			Enabled: true,
			Options: map[string]interface{}{
				"path": "transactions.csv",
			},
		})
	}

	sources, err := source.CreateSources(sourceConfigs)
	if err != nil {
		return err
	}

	for _, src := range sources {
		if dbSource, ok := src.(*source.DatabaseSource); ok {
			dbSource.SetDB(s.repos.GormDB())
		}
	}

	s.sources = sources
	bufferSize := s.config.Mining.EventBuffer
	if bufferSize <= 0 {
		bufferSize = 256
	}
	s.aggregator = source.NewAggregator(sources, bufferSize, s.logger)

	s.logger.Info("Initialized %d transaction sources", len(sources))
	for _, src := range sources {
		s.logger.Info("  - %s (%s)", src.Name(), src.Type())
	}
	return nil
}

func (s *Service) initEngines() error {
	kind := engine.Kind(s.config.Mining.Engine)

	primary, err := s.factory.CreateEngine(kind)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeEngineError, "build primary engine", err)
	}
	s.primary = primary
	s.primaryKind = kind
	s.logger = s.logger.WithField("engine", kind)

	s.window = NewWindow(s.config.Mining.WindowSize)

	s.crossCheck = s.config.Mining.CrossCheck
	if s.crossCheck {
		s.crossEngine = make(map[engine.Kind]engine.SlidingWindowAlgorithm[string])
		for _, k := range s.factory.Kinds() {
			if k == kind {
				continue
			}
			eng, err := s.factory.CreateEngine(k)
			if err != nil {
				return apperrors.Wrap(apperrors.CodeEngineError, "build cross-check engine", err)
			}
			s.crossEngine[k] = eng
			s.crossKinds = append(s.crossKinds, k)
		}
	}

	return nil
}

// Start starts the aggregator and the core mining loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("Starting mining service (engine=%s, window=%d)", s.primaryKind, s.window.Size())

	if err := s.aggregator.Start(ctx); err != nil {
		return fmt.Errorf("failed to start aggregator: %w", err)
	}

	s.wg.Add(1)
	go s.runLoop(ctx)

	return nil
}

// Stop stops the aggregator and the mining loop, then closes the database.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("Stopping mining service...")
	close(s.stopCh)

	if s.aggregator != nil {
		if err := s.aggregator.Stop(); err != nil {
			s.logger.Error("Failed to stop aggregator: %v", err)
		}
	}

	s.wg.Wait()

	if s.repos != nil {
		if err := s.repos.Close(); err != nil {
			s.logger.Error("Failed to close database connection: %v", err)
		}
	}

	s.logger.Info("Mining service stopped")
	return nil
}

// IsRunning reports whether the service's core loop is active.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// runLoop is the core sliding-window add/delete loop: every transaction
// pushes into the window, evicting and deleting the displaced transaction
// before adding the new one, then periodically takes and persists a
// snapshot.
func (s *Service) runLoop(ctx context.Context) {
	defer s.wg.Done()

	snapshotEvery := s.config.Mining.SnapshotEvery
	if snapshotEvery <= 0 {
		snapshotEvery = 100
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case evt, ok := <-s.aggregator.Transactions():
			if !ok {
				s.logger.Info("Aggregator channel closed, stopping mining loop")
				return
			}
			s.processEvent(ctx, evt, snapshotEvery)
		}
	}
}

func (s *Service) processEvent(ctx context.Context, evt *source.Event, snapshotEvery int) {
	if len(evt.Transaction.Items) == 0 {
		s.logger.Warn("Skipping empty transaction from %s/%s", evt.SourceType, evt.SourceName)
		return
	}

	tx := itemset.New(evt.Transaction.Items...)

	if evicted, ok := s.window.Push(tx); ok {
		if err := s.deleteFromAll(evicted); err != nil {
			s.logger.Error("Delete failed: %v", err)
			return
		}
	}

	if err := s.addToAll(tx); err != nil {
		s.logger.Error("Add failed: %v", err)
		return
	}

	s.seq++

	if s.crossCheck {
		if err := s.checkAgreement(); err != nil {
			s.logger.Error("Cross-check disagreement at seq %d: %v", s.seq, err)
		}
	}

	if s.seq%int64(snapshotEvery) == 0 {
		s.takeAndPersistSnapshot(ctx)
	}
}

func (s *Service) deleteFromAll(tx itemset.Itemset[string]) error {
	if err := s.primary.Delete(tx); err != nil {
		return fmt.Errorf("%s: %w", s.primaryKind, err)
	}
	for kind, eng := range s.crossEngine {
		if err := eng.Delete(tx); err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
	}
	return nil
}

func (s *Service) addToAll(tx itemset.Itemset[string]) error {
	if err := s.primary.Add(tx); err != nil {
		return fmt.Errorf("%s: %w", s.primaryKind, err)
	}
	for kind, eng := range s.crossEngine {
		if err := eng.Add(tx); err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
	}
	return nil
}

// checkAgreement drives every configured cross-check engine in parallel and
// asserts its closed-itemset support agrees with the primary engine's.
func (s *Service) checkAgreement() error {
	primarySupports := supportIndex(s.primary.ClosedItemsets(), s.primary)

	pool := parallel.NewWorkerPool[engine.Kind, bool](parallel.DefaultPoolConfig())
	results := pool.ExecuteFunc(context.Background(), s.crossKinds, func(_ context.Context, kind engine.Kind) (bool, error) {
		eng := s.crossEngine[kind]
		got := supportIndex(eng.ClosedItemsets(), eng)
		return supportsAgree(primarySupports, got), nil
	})

	for i, r := range results {
		if !r.Result {
			kind := s.crossKinds[i]
			return apperrors.Wrap(apperrors.CodeEngineError, "cross-check disagreement",
				fmt.Errorf("%w: %s disagrees with %s", engine.ErrCorruptInvariant, kind, s.primaryKind))
		}
	}
	return nil
}

func supportIndex(closed []itemset.Itemset[string], eng engine.SlidingWindowAlgorithm[string]) map[string]int {
	idx := make(map[string]int, len(closed))
	for _, x := range closed {
		idx[x.Key()] = eng.Support(x)
	}
	return idx
}

func supportsAgree(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func (s *Service) takeAndPersistSnapshot(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "driver.TakeSnapshot")
	span.SetAttributes(
		attribute.String("engine", string(s.primaryKind)),
		attribute.Int64("seq", s.seq),
	)
	defer span.End()

	s.timer.Reset()

	buildPhase := s.timer.Start("build")
	snap := s.takeSnapshot()
	buildPhase.Stop()

	if s.repos != nil {
		persistPhase := s.timer.Start("persist")
		if err := s.repos.Snapshot.SaveSnapshot(ctx, snap); err != nil {
			s.logger.Error("Failed to persist snapshot at seq %d: %v", s.seq, err)
		}
		persistPhase.Stop()
	}

	if s.advisor != nil {
		advisePhase := s.timer.Start("advise")
		suggestions := s.advisor.Advise(advisor.NewRuleContext(snap))
		for _, sug := range suggestions {
			s.logger.Info("advisor: %s", sug.Message)
			if s.repos != nil {
				sug := sug
				if err := s.repos.Suggestion.SaveSuggestion(ctx, &sug); err != nil {
					s.logger.Error("Failed to persist suggestion at seq %d: %v", s.seq, err)
				}
			}
		}
		advisePhase.Stop()
	}

	if s.storage != nil {
		exportPhase := s.timer.Start("export")
		key := fmt.Sprintf("snapshots/%s/%d.json", snap.Engine, snap.StreamOffset)
		if err := storage.WriteJSON(ctx, s.storage, key, snap, storage.CodecFromConfig(&s.config.Storage)); err != nil {
			s.logger.Error("Failed to export snapshot at seq %d: %v", s.seq, err)
		}
		exportPhase.Stop()
	}

	s.timer.PrintSummary()
	s.logger.Debug("Snapshot taken at seq %d (%d closed itemsets)", s.seq, len(snap.Closed))
}

// takeSnapshot builds a WindowSnapshot from the primary engine's current
// closed-itemset collection.
func (s *Service) takeSnapshot() *model.WindowSnapshot {
	closed := s.primary.ClosedItemsets()
	records := make([]model.ClosedRecord, 0, len(closed))
	for _, x := range closed {
		records = append(records, model.ClosedRecord{
			Items:   x.Items(),
			Support: s.primary.Support(x),
			Engine:  model.EngineKind(s.primaryKind),
		})
	}

	return &model.WindowSnapshot{
		Engine:       model.EngineKind(s.primaryKind),
		WindowSize:   s.window.Size(),
		Threshold:    s.config.Mining.Threshold,
		StreamOffset: s.seq,
		Closed:       records,
		TakenAt:      s.clock.Now(),
	}
}

// Stats reports a point-in-time view of the running service.
type Stats struct {
	Running      bool        `json:"running"`
	Engine       engine.Kind `json:"engine"`
	WindowSize   int         `json:"window_size"`
	WindowFilled int         `json:"window_filled"`
	StreamOffset int64       `json:"stream_offset"`
	SourceCount  int         `json:"source_count"`
	CrossCheck   bool        `json:"cross_check"`
}

// Stats returns current service statistics.
func (s *Service) Stats() Stats {
	stats := Stats{
		Running:      s.IsRunning(),
		Engine:       s.primaryKind,
		StreamOffset: s.seq,
		CrossCheck:   s.crossCheck,
	}
	if s.window != nil {
		stats.WindowSize = s.window.Size()
		stats.WindowFilled = s.window.Len()
	}
	if s.aggregator != nil {
		stats.SourceCount = s.aggregator.SourceCount()
	}
	return stats
}

// HealthCheck verifies the database and transaction sources are reachable.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.repos != nil {
		if err := s.repos.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database health check failed: %w", err)
		}
	}
	if s.aggregator != nil {
		if err := s.aggregator.HealthCheck(ctx); err != nil {
			return fmt.Errorf("source health check failed: %w", err)
		}
	}
	return nil
}

// Snapshot builds a window snapshot from the primary engine's current
// state without consulting persistence, useful for the web UI's live view.
func (s *Service) Snapshot() *model.WindowSnapshot {
	if s.primary == nil {
		return nil
	}
	return s.takeSnapshot()
}

// LatticeGraph renders the primary engine's current closed-itemset
// collection as a node/edge graph, useful for the web UI's live view.
func (s *Service) LatticeGraph() *model.LatticeGraph {
	if s.primary == nil {
		return nil
	}
	closed := s.primary.ClosedItemsets()
	return lattice.Build(model.EngineKind(s.primaryKind), closed, s.primary.Support)
}

// Repositories exposes the configured persistence layer, or nil if the
// service was initialized without a database, for callers (the web
// dashboard's history endpoints) that need direct repository access.
func (s *Service) Repositories() *repository.Repositories {
	return s.repos
}
