package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tradejob/internal/config"
	"tradejob/internal/job"
	"tradejob/internal/retry"
	"tradejob/internal/state"
)

func newLoopCmd(root *rootOptions) *cobra.Command {
	var eventPath string
	cmd := &cobra.Command{
		Use:   "loop",
		Short: "Invoke the trade job on a fixed interval until it cancels itself",
		Long: `Loop plays the scheduler locally. It keeps the job's run count in a JSON
checkpoint, invokes the job every loopInterval, and stops once a run returns
cancelTradeJob 1 or on SIGINT/SIGTERM. Restarting with the same event resumes
from the checkpoint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			event, err := readEvent(eventPath, cmd.InOrStdin())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runLoop(ctx, root.cfg, event, cmd)
		},
	}
	cmd.Flags().StringVarP(&eventPath, "event", "e", "", "path to event JSON (default stdin)")
	return cmd
}

func runLoop(ctx context.Context, cfg config.Config, event job.Event, cmd *cobra.Command) error {
	params := event.JobParameters

	store := state.NewStore()
	if err := store.Load(cfg.CheckpointPath); err != nil {
		return err
	}
	startTime := store.Resume(params.Symbol, event.JobInfo.StartTime, time.Now())
	if snap := store.Snapshot(); snap.Done() {
		slog.Info("job already cancelled", "symbol", snap.Symbol, "start_time", snap.StartTime, "run_count", snap.Status.RunCount)
		return nil
	}

	rt, err := newRuntime(ctx, cfg, params.Symbol)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			slog.Warn("close runtime failed", "error", err)
		}
	}()

	if cfg.MetricsAddr != "" {
		server := &http.Server{Addr: cfg.MetricsAddr, Handler: rt.metrics.Handler()}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server stopped", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	slog.Info("starting trade job loop", "symbol", params.Symbol, "start_time", startTime,
		"run_count", store.Snapshot().Status.RunCount, "interval", cfg.LoopInterval)

	encoder := json.NewEncoder(cmd.OutOrStdout())
	for {
		result, err := rt.engine.Run(ctx, store.Event(params))
		now := time.Now().UTC()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			store.RecordFailure(now)
			slog.Warn("invocation failed, retrying next tick", "symbol", params.Symbol,
				"failures", store.Snapshot().Failures, "error", err)
		} else {
			store.RecordResult(result, now)
			if err := encoder.Encode(result); err != nil {
				return err
			}
		}
		if err := store.Save(cfg.CheckpointPath); err != nil {
			slog.Error("save checkpoint failed", "path", cfg.CheckpointPath, "error", err)
		}

		if store.Snapshot().Done() {
			slog.Info("trade job cancelled", "symbol", params.Symbol, "run_count", store.Snapshot().Status.RunCount)
			return nil
		}
		if err := retry.WaitForContext(ctx, cfg.LoopInterval); err != nil {
			break
		}
	}

	slog.Info("trade job loop stopped", "symbol", params.Symbol, "run_count", store.Snapshot().Status.RunCount)
	return nil
}
