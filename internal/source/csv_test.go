package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCSV(t *testing.T, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "transactions.csv")
	var content string
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVSource_StreamsAllLines(t *testing.T) {
	path := writeTempCSV(t, "A,B,C", "B, D", "")

	src := NewCSVSourceWithOptions("orders", &CSVOptions{
		Path:      path,
		Delimiter: ",",
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, src.Start(ctx))
	defer src.Stop()

	var got [][]string
	for i := 0; i < 2; i++ {
		select {
		case event := <-src.Transactions():
			got = append(got, event.Transaction.Items)
		case <-ctx.Done():
			t.Fatal("timed out waiting for transactions")
		}
	}

	assert.Equal(t, []string{"A", "B", "C"}, got[0])
	assert.Equal(t, []string{"B", "D"}, got[1])
	assert.Equal(t, TypeCSV, src.Type())
	assert.Equal(t, "orders", src.Name())
}

func TestCSVSource_HealthCheck(t *testing.T) {
	path := writeTempCSV(t, "A,B")
	src := NewCSVSourceWithOptions("h", &CSVOptions{Path: path, Delimiter: ","}, nil)
	assert.NoError(t, src.HealthCheck(context.Background()))

	missing := NewCSVSourceWithOptions("h2", &CSVOptions{Path: filepath.Join(t.TempDir(), "nope.csv")}, nil)
	assert.Error(t, missing.HealthCheck(context.Background()))
}

func TestCSVSource_StartMissingFile(t *testing.T) {
	src := NewCSVSourceWithOptions("h", &CSVOptions{Path: "/nonexistent/path.csv", Delimiter: ","}, nil)
	err := src.Start(context.Background())
	assert.Error(t, err)
}

func TestCSVSource_OffsetIncrements(t *testing.T) {
	path := writeTempCSV(t, "A", "B", "C")
	src := NewCSVSourceWithOptions("orders", &CSVOptions{Path: path, Delimiter: ","}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, src.Start(ctx))
	defer src.Stop()

	var offsets []int64
	for i := 0; i < 3; i++ {
		event := <-src.Transactions()
		offsets = append(offsets, event.Transaction.Offset)
	}
	assert.Equal(t, []int64{0, 1, 2}, offsets)
}

func TestNewCSVSource_FromConfig(t *testing.T) {
	src, err := NewCSVSource(&Config{
		Name: "cfg",
		Options: map[string]interface{}{
			"path":      "whatever.csv",
			"delimiter": ";",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "cfg", src.Name())
	assert.Equal(t, TypeCSV, src.Type())
}
