package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cfiminer/miner/pkg/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&WindowSnapshotRow{},
		&ClosedItemsetRow{},
		&MiningSuggestionRow{},
	)
	require.NoError(t, err)

	return db
}

func TestGormSnapshotRepository_SaveAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSnapshotRepository(db)
	ctx := context.Background()

	snapshot := &model.WindowSnapshot{
		Engine:       model.EngineDIU,
		WindowSize:   4,
		Threshold:    2,
		StreamOffset: 10,
		Closed: []model.ClosedRecord{
			{Items: []string{"A", "C"}, Support: 3, Engine: model.EngineDIU},
			{Items: []string{"A", "C", "D"}, Support: 2, Engine: model.EngineDIU},
		},
	}

	require.NoError(t, repo.SaveSnapshot(ctx, snapshot))
	assert.NotZero(t, snapshot.ID)

	fetched, err := repo.GetSnapshotByID(ctx, snapshot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EngineDIU, fetched.Engine)
	assert.Equal(t, 4, fetched.WindowSize)
	require.Len(t, fetched.Closed, 2)
	assert.Equal(t, []string{"A", "C"}, fetched.Closed[0].Items)
}

func TestGormSnapshotRepository_GetSnapshotByID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSnapshotRepository(db)
	ctx := context.Background()

	snapshot, err := repo.GetSnapshotByID(ctx, 999)
	assert.Error(t, err)
	assert.Nil(t, snapshot)
	assert.Contains(t, err.Error(), "snapshot not found")
}

func TestGormSnapshotRepository_GetLatestSnapshot(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSnapshotRepository(db)
	ctx := context.Background()

	_, err := repo.GetLatestSnapshot(ctx, model.EngineMFCI)
	assert.Error(t, err)

	first := &model.WindowSnapshot{Engine: model.EngineMFCI, WindowSize: 4, StreamOffset: 1}
	second := &model.WindowSnapshot{Engine: model.EngineMFCI, WindowSize: 4, StreamOffset: 2}
	require.NoError(t, repo.SaveSnapshot(ctx, first))
	require.NoError(t, repo.SaveSnapshot(ctx, second))

	latest, err := repo.GetLatestSnapshot(ctx, model.EngineMFCI)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}

func TestGormSnapshotRepository_ListSnapshots(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSnapshotRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.SaveSnapshot(ctx, &model.WindowSnapshot{
			Engine: model.EngineStreamFCI, WindowSize: 4, StreamOffset: int64(i),
		}))
	}

	snapshots, err := repo.ListSnapshots(ctx, model.EngineStreamFCI, 2)
	require.NoError(t, err)
	assert.Len(t, snapshots, 2)
	assert.Equal(t, int64(2), snapshots[0].StreamOffset)
}

func TestGormSuggestionRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSuggestionRepository(db)
	ctx := context.Background()

	suggestion := &model.MiningSuggestion{
		Engine:   model.EngineDIU,
		Severity: "info",
		Message:  "itemset {A,C} has stayed closed-frequent for 5 windows",
		Items:    []string{"A", "C"},
	}

	require.NoError(t, repo.SaveSuggestion(ctx, suggestion))
	assert.NotZero(t, suggestion.ID)

	results, err := repo.GetSuggestions(ctx, model.EngineDIU, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "itemset {A,C} has stayed closed-frequent for 5 windows", results[0].Message)
}
