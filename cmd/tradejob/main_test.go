package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejob/internal/config"
	"tradejob/internal/engine"
	"tradejob/internal/journal"
	"tradejob/internal/secrets"
	"tradejob/internal/strategy"
)

const event = `{"jobParameters":{"symbol":"AAPL","takeProfit":10,"stopLoss":-10,"maxRuns":3},"jobInfo":{"startTime":"2024-02-09T23:58:00Z"}}`

func TestReadEventFromStdin(t *testing.T) {
	ev, err := readEvent("-", strings.NewReader(event))
	require.NoError(t, err)
	assert.Equal(t, "AAPL", ev.JobParameters.Symbol)
	assert.Equal(t, 3, ev.JobParameters.MaxRuns)
}

func TestReadEventFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(path, []byte(event), 0o600))

	ev, err := readEvent(path, strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "2024-02-09T23:58:00Z", ev.JobInfo.StartTime)
}

func TestReadEventMissingFile(t *testing.T) {
	_, err := readEvent(filepath.Join(t.TempDir(), "missing.json"), nil)
	require.Error(t, err)
}

func TestCredentialsProviderSelection(t *testing.T) {
	cfg := config.Default()
	assert.IsType(t, secrets.EnvProvider{}, credentialsProvider(cfg))

	cfg.APIKey, cfg.APISecret = "key", "secret"
	provider := credentialsProvider(cfg)
	require.IsType(t, secrets.Static{}, provider)
	creds, err := provider.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "key", creds.APIKey)

	cfg.SecretsFile = "/etc/tradejob/secrets.yaml"
	assert.Equal(t, secrets.FileProvider{Path: cfg.SecretsFile}, credentialsProvider(cfg))
}

func TestRetryPolicyFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.MaxRetries = 5
	cfg.RetryDelay = 200 * time.Millisecond
	cfg.RetryJitter = 0.5

	p := retryPolicy(cfg)
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, p.Delay)
	assert.Equal(t, 0.5, p.Jitter)
}

func TestHistoryListsJournaledRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	j, err := journal.NewSQLite(path)
	require.NoError(t, err)
	_, err = j.Record(context.Background(), engine.Decision{
		RunID:          "run-1",
		Timestamp:      time.Date(2024, 2, 10, 0, 1, 0, 0, time.UTC),
		Symbol:         "AAPL",
		RunCount:       3,
		PnL:            decimal.RequireFromString("-12.5"),
		Intent:         strategy.Hold,
		Result:         "halted",
		Termination:    "stop_loss_reached",
		CancelTradeJob: 1,
	})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"history", "--journal", path, "--symbol", "AAPL"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "pnl=-12.50")
	assert.Contains(t, out.String(), "termination=stop_loss_reached")
}

func TestHistoryRequiresJournal(t *testing.T) {
	t.Setenv("TRADEJOB_JOURNAL_PATH", "")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"history", "--symbol", "AAPL"})
	require.Error(t, cmd.Execute())
}

func TestRootFlagsOverrideConfig(t *testing.T) {
	opts := &rootOptions{}
	root := newRootCommand(opts)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	for _, sub := range root.Commands() {
		if sub.Name() == "history" {
			sub.RunE = func(cmd *cobra.Command, args []string) error { return nil }
		}
	}
	root.SetArgs([]string{"history", "--symbol", "AAPL", "--log-level", "debug", "--decisions", "out.ndjson"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "debug", opts.cfg.LogLevel)
	assert.Equal(t, "out.ndjson", opts.cfg.DecisionsPath)
}
