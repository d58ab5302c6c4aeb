package main

import (
	"encoding/json"
	"log/slog"

	"github.com/spf13/cobra"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var eventPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one invocation of the trade job",
		Long: `Run reads an invocation event, performs one trade job run and prints the
result JSON ({"cancelTradeJob":0|1,"runCount":n}) on stdout.

Example:
  tradejob run --event event.json
  echo '{"jobParameters":{...},"jobInfo":{...}}' | tradejob run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			event, err := readEvent(eventPath, cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			rt, err := newRuntime(ctx, cfg, event.JobParameters.Symbol)
			if err != nil {
				return err
			}
			defer func() {
				if err := rt.Close(); err != nil {
					slog.Warn("close runtime failed", "error", err)
				}
			}()

			result, runErr := rt.engine.Run(ctx, event)
			if err := rt.metrics.Push(ctx, cfg.PushgatewayURL, "tradejob"); err != nil {
				slog.Warn("push metrics failed", "url", cfg.PushgatewayURL, "error", err)
			}
			if runErr != nil {
				return runErr
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
		},
	}
	cmd.Flags().StringVarP(&eventPath, "event", "e", "", "path to event JSON (default stdin)")
	return cmd
}
