package source

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupQueueDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE transaction_queue (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		items TEXT NOT NULL,
		consumed_at DATETIME
	)`).Error)

	return db
}

func TestDatabaseSource_PollEmitsAndMarksConsumed(t *testing.T) {
	db := setupQueueDB(t)
	require.NoError(t, db.Exec(`INSERT INTO transaction_queue (items) VALUES (?)`, `["A","C"]`).Error)
	require.NoError(t, db.Exec(`INSERT INTO transaction_queue (items) VALUES (?)`, `B,D`).Error)

	opts := &DatabaseOptions{PollInterval: time.Hour, BatchSize: 10, Table: "transaction_queue"}
	src := NewDatabaseSourceWithDB("queue", db, opts, nil)

	src.poll(context.Background())

	first := <-src.Transactions()
	assert.Equal(t, []string{"A", "C"}, first.Transaction.Items)
	assert.Equal(t, "1", first.Metadata["row_id"])

	second := <-src.Transactions()
	assert.Equal(t, []string{"B", "D"}, second.Transaction.Items)

	var remaining int64
	require.NoError(t, db.Table("transaction_queue").Where("consumed_at IS NULL").Count(&remaining).Error)
	assert.Equal(t, int64(0), remaining)
}

func TestDatabaseSource_PollSkipsAlreadyConsumed(t *testing.T) {
	db := setupQueueDB(t)
	require.NoError(t, db.Exec(`INSERT INTO transaction_queue (items, consumed_at) VALUES (?, ?)`, "A,B", time.Now()).Error)

	opts := &DatabaseOptions{PollInterval: time.Hour, BatchSize: 10, Table: "transaction_queue"}
	src := NewDatabaseSourceWithDB("queue", db, opts, nil)

	src.poll(context.Background())

	select {
	case event := <-src.Transactions():
		t.Fatalf("expected no events, got %v", event)
	default:
	}
}

func TestDatabaseSource_HealthCheck(t *testing.T) {
	src := NewDatabaseSourceWithDB("queue", nil, nil, nil)
	assert.Error(t, src.HealthCheck(context.Background()))

	db := setupQueueDB(t)
	src2 := NewDatabaseSourceWithDB("queue", db, nil, nil)
	assert.NoError(t, src2.HealthCheck(context.Background()))
}

func TestDatabaseSource_StartNoopWithoutDB(t *testing.T) {
	cfg := &Config{Name: "queue"}
	src, err := NewDatabaseSource(cfg)
	require.NoError(t, err)
	assert.NoError(t, src.Start(context.Background()))
}
