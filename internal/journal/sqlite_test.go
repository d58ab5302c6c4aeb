package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejob/internal/engine"
	"tradejob/internal/strategy"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	_, path := newTestSQLite(t)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='runs'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "runs", name)
}

func TestSQLiteRecordAndList(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	ctx := context.Background()
	at := time.Date(2024, 2, 9, 23, 58, 0, 0, time.UTC)

	first := engine.Decision{
		RunID:     "run-1",
		Timestamp: at,
		Symbol:    "AAPL",
		RunCount:  1,
		PnL:       decimal.RequireFromString("-2.75"),
		Average:   189.4697,
		Last:      189.4589,
		Bars:      3,
		Intent:    strategy.Hold,
		Reason:    "no_position_to_sell",
		Result:    "hold",
	}
	second := engine.Decision{
		RunID:          "run-2",
		Timestamp:      at.Add(time.Minute),
		Symbol:         "AAPL",
		RunCount:       2,
		PnL:            decimal.Zero,
		Intent:         strategy.Buy,
		Result:         "order_submitted",
		OrderID:        "order-9",
		Termination:    "run_limit_reached",
		CancelTradeJob: 1,
	}
	other := engine.Decision{RunID: "run-3", Timestamp: at, Symbol: "MSFT", Intent: strategy.Hold, Result: "hold"}

	_, err := j.Record(ctx, first)
	require.NoError(t, err)
	j.Append(second)
	j.Append(other)

	runs, err := j.ListRuns(ctx, "AAPL", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-2", runs[0].Decision.RunID)
	assert.Equal(t, "run-1", runs[1].Decision.RunID)
	assert.Equal(t, "order-9", runs[0].Decision.OrderID)
	assert.Equal(t, 1, runs[0].Decision.CancelTradeJob)
	assert.Equal(t, strategy.Buy, runs[0].Decision.Intent)
	assert.True(t, runs[1].Decision.PnL.Equal(decimal.RequireFromString("-2.75")))
	assert.True(t, runs[1].Decision.Timestamp.Equal(at))
	assert.Equal(t, 3, runs[1].Decision.Bars)
	assert.Greater(t, runs[0].ID, runs[1].ID)
}

func TestSQLiteListRunsLimit(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	for i := 0; i < 5; i++ {
		j.Append(engine.Decision{RunID: "r", Timestamp: time.Now(), Symbol: "AAPL", Intent: strategy.Hold, Result: "hold"})
	}

	runs, err := j.ListRuns(context.Background(), "AAPL", 3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}
