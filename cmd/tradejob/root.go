package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"tradejob/internal/config"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	journal    string
	decisions  string

	cfg config.Config
}

func newRootCmd() *cobra.Command {
	return newRootCommand(&rootOptions{})
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tradejob",
		Short: "Single-symbol trend-following trade job for Alpaca",
		Long: `tradejob runs one invocation of a recurring trade job: it checks the job's
profit and loss against its take-profit and stop-loss band, compares the latest
close with the rolling average of a recent window of minute bars, and buys,
exits or holds. The JSON result tells the scheduler whether to cancel the job.

Examples:
  tradejob run --event event.json
  tradejob loop --event event.json
  tradejob history --symbol AAPL`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to config file (YAML or JSON)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format (text, json)")
	flags.StringVar(&opts.journal, "journal", "", "path to SQLite run journal")
	flags.StringVar(&opts.decisions, "decisions", "", "path to NDJSON decision log")

	cmd.AddCommand(newRunCmd(opts), newLoopCmd(opts), newHistoryCmd(opts))
	return cmd
}

// load resolves the config file, the environment and any flags set on cmd.
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = o.logFormat
	}
	if flags.Changed("journal") {
		cfg.JournalPath = o.journal
	}
	if flags.Changed("decisions") {
		cfg.DecisionsPath = o.decisions
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	slog.SetDefault(cfg.Logger(cmd.ErrOrStderr()))
	o.cfg = cfg
	return nil
}
