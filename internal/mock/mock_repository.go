package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cfiminer/miner/pkg/model"
)

// MockSnapshotRepository is a mock implementation of repository.SnapshotRepository.
type MockSnapshotRepository struct {
	mock.Mock
}

// SaveSnapshot mocks the SaveSnapshot method.
func (m *MockSnapshotRepository) SaveSnapshot(ctx context.Context, snapshot *model.WindowSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

// GetSnapshotByID mocks the GetSnapshotByID method.
func (m *MockSnapshotRepository) GetSnapshotByID(ctx context.Context, id int64) (*model.WindowSnapshot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WindowSnapshot), args.Error(1)
}

// GetLatestSnapshot mocks the GetLatestSnapshot method.
func (m *MockSnapshotRepository) GetLatestSnapshot(ctx context.Context, engine model.EngineKind) (*model.WindowSnapshot, error) {
	args := m.Called(ctx, engine)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WindowSnapshot), args.Error(1)
}

// ListSnapshots mocks the ListSnapshots method.
func (m *MockSnapshotRepository) ListSnapshots(ctx context.Context, engine model.EngineKind, limit int) ([]*model.WindowSnapshot, error) {
	args := m.Called(ctx, engine, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.WindowSnapshot), args.Error(1)
}

// ExpectSaveSnapshot sets up an expectation for SaveSnapshot.
func (m *MockSnapshotRepository) ExpectSaveSnapshot(err error) *mock.Call {
	return m.On("SaveSnapshot", mock.Anything, mock.Anything).Return(err)
}

// ExpectGetLatestSnapshot sets up an expectation for GetLatestSnapshot.
func (m *MockSnapshotRepository) ExpectGetLatestSnapshot(engine model.EngineKind, snap *model.WindowSnapshot, err error) *mock.Call {
	return m.On("GetLatestSnapshot", mock.Anything, engine).Return(snap, err)
}

// MockSuggestionRepository is a mock implementation of repository.SuggestionRepository.
type MockSuggestionRepository struct {
	mock.Mock
}

// SaveSuggestion mocks the SaveSuggestion method.
func (m *MockSuggestionRepository) SaveSuggestion(ctx context.Context, suggestion *model.MiningSuggestion) error {
	args := m.Called(ctx, suggestion)
	return args.Error(0)
}

// GetSuggestions mocks the GetSuggestions method.
func (m *MockSuggestionRepository) GetSuggestions(ctx context.Context, engine model.EngineKind, limit int) ([]*model.MiningSuggestion, error) {
	args := m.Called(ctx, engine, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.MiningSuggestion), args.Error(1)
}

// ExpectSaveSuggestion sets up an expectation for SaveSuggestion.
func (m *MockSuggestionRepository) ExpectSaveSuggestion(err error) *mock.Call {
	return m.On("SaveSuggestion", mock.Anything, mock.Anything).Return(err)
}
