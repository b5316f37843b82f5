package source

import (
	"context"
	"os"
	"sync"

	"github.com/cfiminer/miner/pkg/utils"
)

// Aggregator fans multiple TransactionSources into a single unified
// transaction channel. It starts all sources concurrently and forwards
// their events to one output channel.
type Aggregator struct {
	sources    []TransactionSource
	sourceMap  map[string]TransactionSource // key: "type:name"
	outputChan chan *Event
	bufferSize int
	logger     utils.Logger

	mu      sync.RWMutex
	running bool
	wg      sync.WaitGroup
	stopCh  chan struct{}
}

// NewAggregator creates a new Aggregator with the given sources.
func NewAggregator(sources []TransactionSource, bufferSize int, logger utils.Logger) *Aggregator {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, os.Stdout)
	}

	sourceMap := make(map[string]TransactionSource)
	for _, src := range sources {
		sourceMap[buildSourceKey(src.Type(), src.Name())] = src
	}

	return &Aggregator{
		sources:    sources,
		sourceMap:  sourceMap,
		outputChan: make(chan *Event, bufferSize),
		bufferSize: bufferSize,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}
}

func buildSourceKey(sourceType Type, name string) string {
	return string(sourceType) + ":" + name
}

// Start starts all sources and begins forwarding transactions.
func (a *Aggregator) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = true
	a.mu.Unlock()

	a.logger.Info("Starting aggregator with %d sources", len(a.sources))

	for _, src := range a.sources {
		if err := src.Start(ctx); err != nil {
			a.logger.Error("Failed to start source %s/%s: %v", src.Type(), src.Name(), err)
			a.Stop()
			return err
		}

		a.logger.Info("Started source: %s/%s", src.Type(), src.Name())

		a.wg.Add(1)
		go a.forward(ctx, src)
	}

	return nil
}

func (a *Aggregator) forward(ctx context.Context, src TransactionSource) {
	defer a.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.stopCh:
			return
		case event, ok := <-src.Transactions():
			if !ok {
				a.logger.Info("Source %s/%s channel closed", src.Type(), src.Name())
				return
			}

			event.SourceType = src.Type()
			event.SourceName = src.Name()

			select {
			case a.outputChan <- event:
			case <-ctx.Done():
				return
			case <-a.stopCh:
				return
			}
		}
	}
}

// Stop stops all sources and the aggregator.
func (a *Aggregator) Stop() error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	a.mu.Unlock()

	a.logger.Info("Stopping aggregator...")

	close(a.stopCh)

	for _, src := range a.sources {
		if err := src.Stop(); err != nil {
			a.logger.Error("Failed to stop source %s/%s: %v", src.Type(), src.Name(), err)
		}
	}

	a.wg.Wait()
	close(a.outputChan)

	a.logger.Info("Aggregator stopped")
	return nil
}

// Transactions returns the aggregated transaction channel.
func (a *Aggregator) Transactions() <-chan *Event {
	return a.outputChan
}

// GetSource retrieves a specific source by type and name.
func (a *Aggregator) GetSource(sourceType Type, name string) TransactionSource {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sourceMap[buildSourceKey(sourceType, name)]
}

// HealthCheck performs health checks on all sources.
func (a *Aggregator) HealthCheck(ctx context.Context) error {
	for _, src := range a.sources {
		if err := src.HealthCheck(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Sources returns all registered sources.
func (a *Aggregator) Sources() []TransactionSource {
	return a.sources
}

// SourceCount returns the number of sources.
func (a *Aggregator) SourceCount() int {
	return len(a.sources)
}
