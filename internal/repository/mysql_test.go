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

func TestMySQLSnapshotRepository_SaveSnapshot(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMySQLSnapshotRepository(db)

	snapshot := &model.WindowSnapshot{
		Engine:       model.EngineDIU,
		WindowSize:   4,
		Threshold:    2,
		StreamOffset: 7,
		Closed: []model.ClosedRecord{
			{Items: []string{"A", "C"}, Support: 3, Engine: model.EngineDIU},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO window_snapshot").
		WithArgs(model.EngineDIU, 4, 2, int64(7)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO closed_itemset").
		WithArgs(int64(1), sqlmock.AnyArg(), 3, model.EngineDIU).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectCommit()

	err = repo.SaveSnapshot(context.Background(), snapshot)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snapshot.ID)
	assert.Equal(t, int64(11), snapshot.Closed[0].ID)
}

func TestMySQLSnapshotRepository_GetLatestSnapshot_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMySQLSnapshotRepository(db)

	mock.ExpectQuery("SELECT id, engine, window_size").
		WithArgs(model.EngineMFCI).
		WillReturnError(sql.ErrNoRows)

	snapshot, err := repo.GetLatestSnapshot(context.Background(), model.EngineMFCI)
	assert.Error(t, err)
	assert.Nil(t, snapshot)
	assert.Contains(t, err.Error(), "no snapshot found")
}

func TestMySQLSuggestionRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMySQLSuggestionRepository(db)

	t.Run("SaveSuggestion_Success", func(t *testing.T) {
		suggestion := &model.MiningSuggestion{
			Engine:   model.EngineDIU,
			Severity: "info",
			Message:  "itemset {A,C} closed-frequent",
			Items:    []string{"A", "C"},
		}

		mock.ExpectExec("INSERT INTO mining_suggestion").
			WithArgs(model.EngineDIU, "info", suggestion.Message, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := repo.SaveSuggestion(context.Background(), suggestion)
		require.NoError(t, err)
		assert.Equal(t, int64(1), suggestion.ID)
	})

	t.Run("GetSuggestions_Success", func(t *testing.T) {
		itemsJSON, _ := json.Marshal([]string{"A", "C"})
		rows := sqlmock.NewRows([]string{"id", "engine", "severity", "message", "items", "created_at"}).
			AddRow(int64(1), model.EngineDIU, "info", "itemset {A,C} closed-frequent", itemsJSON, time.Now())

		mock.ExpectQuery("SELECT id, engine, severity").
			WithArgs(model.EngineDIU, 10).
			WillReturnRows(rows)

		suggestions, err := repo.GetSuggestions(context.Background(), model.EngineDIU, 10)
		require.NoError(t, err)
		require.Len(t, suggestions, 1)
		assert.Equal(t, []string{"A", "C"}, suggestions[0].Items)
	})
}
