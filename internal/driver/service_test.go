package driver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfiminer/miner/internal/advisor"
	"github.com/cfiminer/miner/internal/engine"
	enginefactory "github.com/cfiminer/miner/internal/engine/factory"
	"github.com/cfiminer/miner/internal/mock"
	"github.com/cfiminer/miner/internal/source"
	"github.com/cfiminer/miner/pkg/config"
	"github.com/cfiminer/miner/pkg/itemset"
	"github.com/cfiminer/miner/pkg/model"
	"github.com/cfiminer/miner/pkg/utils"
)

func itemsetOf(items ...string) itemset.Itemset[string] {
	return itemset.New(items...)
}

func newTestService(t *testing.T, windowSize int, snapshotEvery int) *Service {
	t.Helper()

	factory := enginefactory.NewFactory[string]()
	primary, err := factory.CreateEngine(engine.KindDIU)
	require.NoError(t, err)

	return &Service{
		config: &config.Config{
			Mining: config.MiningConfig{
				Engine:        "diu",
				WindowSize:    windowSize,
				Threshold:     1,
				SnapshotEvery: snapshotEvery,
			},
		},
		logger:      utils.NewDefaultLogger(utils.LevelError, nil),
		clock:       utils.NewRealClock(),
		timer:       utils.NewTimer("snapshot", utils.WithEnabled(false)),
		factory:     factory,
		primary:     primary,
		primaryKind: engine.KindDIU,
		advisor:     advisor.NewAdvisor(),
		window:      NewWindow(windowSize),
		stopCh:      make(chan struct{}),
	}
}

func txEvent(items ...string) *source.Event {
	return &source.Event{
		Transaction: model.TransactionEvent{Items: items},
		SourceType:  source.TypeCSV,
		SourceName:  "test",
	}
}

func TestService_ProcessEvent_GrowsWindowAndEngine(t *testing.T) {
	s := newTestService(t, 0, 100)

	s.processEvent(context.Background(), txEvent("a", "b"), 100)
	s.processEvent(context.Background(), txEvent("a"), 100)

	assert.EqualValues(t, 2, s.seq)
	assert.Equal(t, 2, s.window.Len())
	assert.Equal(t, 2, s.primary.Support(itemsetOf("a")))
}

func TestService_ProcessEvent_SkipsEmptyTransaction(t *testing.T) {
	s := newTestService(t, 0, 100)

	s.processEvent(context.Background(), txEvent(), 100)

	assert.EqualValues(t, 0, s.seq)
	assert.Equal(t, 0, s.window.Len())
}

func TestService_ProcessEvent_EvictsOnWindowOverflow(t *testing.T) {
	s := newTestService(t, 1, 100)

	s.processEvent(context.Background(), txEvent("a"), 100)
	assert.Equal(t, 1, s.primary.Support(itemsetOf("a")))

	s.processEvent(context.Background(), txEvent("b"), 100)
	assert.Equal(t, 0, s.primary.Support(itemsetOf("a")))
	assert.Equal(t, 1, s.primary.Support(itemsetOf("b")))
}

func TestService_TakeSnapshot_NoRepoNoStorage(t *testing.T) {
	s := newTestService(t, 0, 1)

	s.processEvent(context.Background(), txEvent("a", "b"), 1)

	snap := s.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, model.EngineDIU, snap.Engine)
	assert.EqualValues(t, 1, snap.StreamOffset)
	assert.NotEmpty(t, snap.Closed)
}

func TestService_TakeSnapshot_TakenAtUsesInjectedClock(t *testing.T) {
	s := newTestService(t, 0, 1)
	frozen := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.clock = utils.NewMockClock(frozen)

	s.processEvent(context.Background(), txEvent("a", "b"), 1)

	snap := s.Snapshot()
	require.NotNil(t, snap)
	assert.True(t, snap.TakenAt.Equal(frozen), "TakenAt = %v, want %v", snap.TakenAt, frozen)
}

func TestService_SnapshotExport_WritesToStorage(t *testing.T) {
	s := newTestService(t, 0, 1)
	st := &mock.MockStorage{}
	st.ExpectUpload("snapshots/diu/1.json", nil)
	s.storage = st

	s.processEvent(context.Background(), txEvent("a", "b"), 1)

	st.AssertExpectations(t)
}

func TestService_CheckAgreement_AgreesWhenEnginesInSync(t *testing.T) {
	s := newTestService(t, 0, 100)
	s.crossCheck = true
	s.crossKinds = []engine.Kind{engine.KindMFCI, engine.KindStreamFCI}
	s.crossEngine = make(map[engine.Kind]engine.SlidingWindowAlgorithm[string])
	for _, k := range s.crossKinds {
		eng, err := s.factory.CreateEngine(k)
		require.NoError(t, err)
		s.crossEngine[k] = eng
	}

	s.processEvent(context.Background(), txEvent("a", "b"), 100)
	s.processEvent(context.Background(), txEvent("a"), 100)

	assert.NoError(t, s.checkAgreement())
}

func TestService_CheckAgreement_DetectsDisagreement(t *testing.T) {
	s := newTestService(t, 0, 100)
	s.crossCheck = true
	s.crossKinds = []engine.Kind{engine.KindMFCI}
	s.crossEngine = make(map[engine.Kind]engine.SlidingWindowAlgorithm[string])
	eng, err := s.factory.CreateEngine(engine.KindMFCI)
	require.NoError(t, err)
	s.crossEngine[engine.KindMFCI] = eng

	require.NoError(t, s.primary.Add(itemsetOf("a", "b")))

	err = s.checkAgreement()
	assert.Error(t, err)
}

func TestService_LatticeGraph(t *testing.T) {
	s := newTestService(t, 0, 100)
	s.processEvent(context.Background(), txEvent("a", "b"), 100)

	g := s.LatticeGraph()
	require.NotNil(t, g)
	assert.Equal(t, model.EngineDIU, g.Engine)
	assert.NotEmpty(t, g.Nodes)
}

func TestService_Stats(t *testing.T) {
	s := newTestService(t, 5, 100)
	s.processEvent(context.Background(), txEvent("a"), 100)

	stats := s.Stats()
	assert.Equal(t, engine.KindDIU, stats.Engine)
	assert.Equal(t, 5, stats.WindowSize)
	assert.Equal(t, 1, stats.WindowFilled)
	assert.EqualValues(t, 1, stats.StreamOffset)
}
