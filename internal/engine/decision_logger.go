package engine

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tradejob/internal/strategy"
)

// Decision is the record of one invocation, whatever its outcome.
type Decision struct {
	RunID          string          `json:"run_id"`
	Timestamp      time.Time       `json:"timestamp"`
	Symbol         string          `json:"symbol"`
	RunCount       int             `json:"run_count"`
	PnL            decimal.Decimal `json:"pnl"`
	Average        float64         `json:"average"`
	Last           float64         `json:"last"`
	Bars           int             `json:"bars"`
	Intent         strategy.Action `json:"intent"`
	Reason         string          `json:"reason"`
	Result         string          `json:"result"`
	OrderID        string          `json:"order_id,omitempty"`
	Termination    string          `json:"termination,omitempty"`
	CancelTradeJob int             `json:"cancel_trade_job"`
	Error          string          `json:"error,omitempty"`
}

// DecisionLogger appends decisions to an NDJSON file.
type DecisionLogger struct {
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
}

func NewDecisionLogger(path string) (*DecisionLogger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &DecisionLogger{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

func (d *DecisionLogger) Append(decision Decision) {
	d.mu.Lock()
	defer d.mu.Unlock()
	payload, err := json.Marshal(decision)
	if err != nil {
		slog.Error("marshal decision failed", "run_id", decision.RunID, "error", err)
		return
	}
	if _, err := d.writer.Write(append(payload, '\n')); err != nil {
		slog.Error("write decision failed", "run_id", decision.RunID, "error", err)
		return
	}
	if err := d.writer.Flush(); err != nil {
		slog.Error("flush decision log failed", "run_id", decision.RunID, "error", err)
	}
}

func (d *DecisionLogger) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.writer.Flush(); err != nil {
		_ = d.file.Close()
		return err
	}
	return d.file.Close()
}
