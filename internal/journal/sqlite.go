package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"tradejob/internal/engine"
	"tradejob/internal/strategy"
)

// Run is one journaled invocation. ID is a ULID, so IDs sort by insert time.
type Run struct {
	ID       string
	Decision engine.Decision
}

// SQLite journals every decision the engine hands it.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Append satisfies engine.Sink. Journal failures never fail the run.
func (j *SQLite) Append(d engine.Decision) {
	if _, err := j.Record(context.Background(), d); err != nil {
		slog.Error("journal run failed", "run_id", d.RunID, "symbol", d.Symbol, "error", err)
	}
}

func (j *SQLite) Record(ctx context.Context, d engine.Decision) (string, error) {
	id := ulid.Make().String()
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, run_id, time, symbol, run_count, pnl, average, last_price, bars,
		 intent, reason, result, order_id, termination, cancel_trade_job, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, d.RunID, d.Timestamp.UTC(), d.Symbol, d.RunCount, d.PnL.String(), d.Average, d.Last, d.Bars,
		string(d.Intent), d.Reason, d.Result, d.OrderID, d.Termination, d.CancelTradeJob, d.Error,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListRuns returns up to limit runs for symbol, newest first.
func (j *SQLite) ListRuns(ctx context.Context, symbol string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, run_id, time, symbol, run_count, pnl, average, last_price, bars,
		       intent, reason, result, order_id, termination, cancel_trade_job, error
		FROM runs
		WHERE symbol = ?
		ORDER BY id DESC
		LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run    Run
			at     time.Time
			pnl    string
			intent string
		)
		d := &run.Decision
		if err := rows.Scan(&run.ID, &d.RunID, &at, &d.Symbol, &d.RunCount, &pnl, &d.Average, &d.Last, &d.Bars,
			&intent, &d.Reason, &d.Result, &d.OrderID, &d.Termination, &d.CancelTradeJob, &d.Error); err != nil {
			return nil, err
		}
		d.Timestamp = at.UTC()
		d.Intent = strategy.Action(intent)
		if d.PnL, err = decimal.NewFromString(pnl); err != nil {
			return nil, fmt.Errorf("run %s pnl %q: %w", run.ID, pnl, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
