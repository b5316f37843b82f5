package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfiminer/miner/pkg/model"
)

func TestPostgresSnapshotRepository_SaveSnapshot(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresSnapshotRepository(db)

	snapshot := &model.WindowSnapshot{
		Engine:       model.EngineMFCI,
		WindowSize:   5,
		Threshold:    3,
		StreamOffset: 9,
		Closed: []model.ClosedRecord{
			{Items: []string{"A", "C", "T", "W"}, Support: 3, Engine: model.EngineMFCI},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO window_snapshot").
		WithArgs(model.EngineMFCI, 5, 3, int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery("INSERT INTO closed_itemset").
		WithArgs(int64(1), sqlmock.AnyArg(), 3, model.EngineMFCI).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(21)))
	mock.ExpectCommit()

	err = repo.SaveSnapshot(context.Background(), snapshot)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snapshot.ID)
	assert.Equal(t, int64(21), snapshot.Closed[0].ID)
}

func TestPostgresSnapshotRepository_GetSnapshotByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresSnapshotRepository(db)

	mock.ExpectQuery("SELECT id, engine, window_size").
		WithArgs(int64(999)).
		WillReturnError(sql.ErrNoRows)

	snapshot, err := repo.GetSnapshotByID(context.Background(), 999)
	assert.Error(t, err)
	assert.Nil(t, snapshot)
	assert.Contains(t, err.Error(), "snapshot not found")
}

func TestPostgresSuggestionRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresSuggestionRepository(db)

	t.Run("SaveSuggestion_Success", func(t *testing.T) {
		suggestion := &model.MiningSuggestion{
			Engine:   model.EngineStreamFCI,
			Severity: "warn",
			Message:  "window saturation near threshold",
			Items:    []string{"A"},
		}

		mock.ExpectQuery("INSERT INTO mining_suggestion").
			WithArgs(model.EngineStreamFCI, "warn", suggestion.Message, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))

		err := repo.SaveSuggestion(context.Background(), suggestion)
		require.NoError(t, err)
		assert.Equal(t, int64(5), suggestion.ID)
	})

	t.Run("GetSuggestions_Success", func(t *testing.T) {
		itemsJSON, _ := json.Marshal([]string{"A"})
		rows := sqlmock.NewRows([]string{"id", "engine", "severity", "message", "items", "created_at"}).
			AddRow(int64(5), model.EngineStreamFCI, "warn", "window saturation near threshold", itemsJSON, time.Now())

		mock.ExpectQuery("SELECT id, engine, severity").
			WithArgs(model.EngineStreamFCI, 10).
			WillReturnRows(rows)

		suggestions, err := repo.GetSuggestions(context.Background(), model.EngineStreamFCI, 10)
		require.NoError(t, err)
		require.Len(t, suggestions, 1)
		assert.Equal(t, []string{"A"}, suggestions[0].Items)
	})
}
