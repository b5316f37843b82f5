package webui

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfiminer/miner/internal/driver"
	"github.com/cfiminer/miner/internal/engine"
	"github.com/cfiminer/miner/internal/mock"
	"github.com/cfiminer/miner/internal/repository"
	"github.com/cfiminer/miner/pkg/model"
	"github.com/cfiminer/miner/pkg/utils"
)

// fakeService is a lightweight stand-in for *driver.Service so the web UI
// can be tested without wiring a database or transaction sources.
type fakeService struct {
	snapshot *model.WindowSnapshot
	lattice  *model.LatticeGraph
	stats    driver.Stats
	healthy  error
}

func (f *fakeService) Snapshot() *model.WindowSnapshot       { return f.snapshot }
func (f *fakeService) LatticeGraph() *model.LatticeGraph     { return f.lattice }
func (f *fakeService) Stats() driver.Stats                   { return f.stats }
func (f *fakeService) HealthCheck(ctx context.Context) error { return f.healthy }

func testSnapshot() *model.WindowSnapshot {
	return &model.WindowSnapshot{
		Engine:       model.EngineDIU,
		WindowSize:   100,
		Threshold:    1,
		StreamOffset: 12,
		Closed: []model.ClosedRecord{
			{Items: []string{"a"}, Support: 99},
			{Items: []string{"a", "b"}, Support: 4},
		},
	}
}

func newTestServer(t *testing.T, svc MiningService, repos *repository.Repositories) *Server {
	t.Helper()
	return NewServer(svc, repos, 0, utils.NewDefaultLogger(utils.LevelError, nil))
}

func TestServer_HandleSnapshot_ReturnsJSONSummary(t *testing.T) {
	svc := &fakeService{snapshot: testSnapshot()}
	s := newTestServer(t, svc, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/snapshot", nil)
	s.handleSnapshot(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, model.EngineDIU, body["engine"])
}

func TestServer_HandleSnapshot_NotFoundWhenNoSnapshot(t *testing.T) {
	svc := &fakeService{}
	s := newTestServer(t, svc, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/snapshot", nil)
	s.handleSnapshot(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_HandleLattice_ReturnsGraph(t *testing.T) {
	svc := &fakeService{lattice: &model.LatticeGraph{Engine: model.EngineDIU}}
	s := newTestServer(t, svc, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/lattice", nil)
	s.handleLattice(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var graph model.LatticeGraph
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &graph))
	assert.Equal(t, model.EngineDIU, graph.Engine)
}

func TestServer_HandleSuggestions_RunsAdvisorLive(t *testing.T) {
	snap := &model.WindowSnapshot{
		Engine:     model.EngineDIU,
		WindowSize: 10,
		Threshold:  2,
		Closed: []model.ClosedRecord{
			{Items: []string{"a"}, Support: 9},
		},
	}
	svc := &fakeService{snapshot: snap}
	s := newTestServer(t, svc, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/suggestions", nil)
	s.handleSuggestions(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var suggestions []model.MiningSuggestion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &suggestions))
	assert.NotEmpty(t, suggestions)
}

func TestServer_HandleStats_ReturnsServiceStats(t *testing.T) {
	svc := &fakeService{stats: driver.Stats{Engine: engine.KindDIU, WindowSize: 50}}
	s := newTestServer(t, svc, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	s.handleStats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var stats driver.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 50, stats.WindowSize)
}

func TestServer_HandleHealth_ReportsUnhealthy(t *testing.T) {
	svc := &fakeService{healthy: errors.New("database unreachable")}
	s := newTestServer(t, svc, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	s.handleHealth(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_HandleSnapshotHistory_RequiresEngine(t *testing.T) {
	snapRepo := new(mock.MockSnapshotRepository)
	s := newTestServer(t, &fakeService{}, &repository.Repositories{Snapshot: snapRepo})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/history/snapshots", nil)
	s.handleSnapshotHistory(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_HandleSnapshotHistory_Unavailable_NoRepo(t *testing.T) {
	s := newTestServer(t, &fakeService{}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/history/snapshots?engine=diu", nil)
	s.handleSnapshotHistory(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_HandleSuggestionHistory_ListsFromRepository(t *testing.T) {
	suggRepo := new(mock.MockSuggestionRepository)
	suggRepo.On("GetSuggestions", context.Background(), model.EngineDIU, 20).
		Return([]*model.MiningSuggestion{{Message: "window near saturation"}}, nil)

	s := newTestServer(t, &fakeService{}, &repository.Repositories{Suggestion: suggRepo})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/history/suggestions?engine=diu", nil)
	s.handleSuggestionHistory(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []*model.MiningSuggestion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "window near saturation", got[0].Message)
}

func TestServer_HandleIndex_ServesHTML(t *testing.T) {
	s := newTestServer(t, &fakeService{}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	s.handleIndex(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cfiminer")
}
