package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"tradejob/internal/broker"
	"tradejob/internal/config"
	"tradejob/internal/engine"
	"tradejob/internal/job"
	"tradejob/internal/journal"
	"tradejob/internal/md"
	"tradejob/internal/metrics"
	"tradejob/internal/retry"
	"tradejob/internal/risk"
	"tradejob/internal/secrets"
	"tradejob/internal/strategy"
)

// runtime holds everything one symbol's job needs across invocations.
type runtime struct {
	engine  *engine.Engine
	metrics *metrics.Metrics
	closers []io.Closer
}

func (r *runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// credentialsProvider prefers a secrets file, then credentials already loaded
// from the environment or .env, then the bare environment.
func credentialsProvider(cfg config.Config) secrets.Provider {
	switch {
	case cfg.SecretsFile != "":
		return secrets.FileProvider{Path: cfg.SecretsFile}
	case cfg.APIKey != "" && cfg.APISecret != "":
		return secrets.Static{APIKey: cfg.APIKey, APISecret: cfg.APISecret}
	default:
		return secrets.EnvProvider{}
	}
}

func retryPolicy(cfg config.Config) retry.Policy {
	return retry.Policy{
		MaxAttempts: cfg.MaxRetries,
		Delay:       cfg.RetryDelay,
		Jitter:      cfg.RetryJitter,
	}
}

func newRuntime(ctx context.Context, cfg config.Config, symbol string) (*runtime, error) {
	creds, err := credentialsProvider(cfg).Credentials(ctx)
	if err != nil {
		return nil, err
	}

	rt := &runtime{metrics: metrics.New(symbol)}
	var sinks []engine.Sink

	if cfg.DecisionsPath != "" {
		decisions, err := engine.NewDecisionLogger(cfg.DecisionsPath)
		if err != nil {
			return nil, fmt.Errorf("open decision log: %w", err)
		}
		rt.closers = append(rt.closers, decisions)
		sinks = append(sinks, decisions)
	}
	if cfg.JournalPath != "" {
		runs, err := journal.NewSQLite(cfg.JournalPath)
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("open journal: %w", err)
		}
		rt.closers = append(rt.closers, runs)
		sinks = append(sinks, runs)
	}

	gateway := broker.New(creds.APIKey, creds.APISecret, cfg.TradingBaseURL,
		broker.WithRetryPolicy(retryPolicy(cfg)),
		broker.WithRetryObserver(rt.metrics),
	)
	market := md.NewAccessor(md.NewClient(creds.APIKey, creds.APISecret, cfg.DataBaseURL), cfg.Feed)

	rt.engine = engine.New(market, gateway, strategy.Trend{}, risk.Gate{},
		engine.WithSinks(sinks...),
		engine.WithMetrics(rt.metrics),
	)
	slog.Debug("runtime ready", "symbol", symbol, "trading_base_url", cfg.TradingBaseURL, "feed", cfg.Feed, "sinks", len(sinks))
	return rt, nil
}

// readEvent reads an invocation event from path, or from stdin when path is
// empty or "-".
func readEvent(path string, stdin io.Reader) (job.Event, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return job.Event{}, fmt.Errorf("read event: %w", err)
	}
	return job.ParseEvent(data)
}
