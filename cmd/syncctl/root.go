package main

import (
	"context"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"selfAPI/internal/app"
	"selfAPI/internal/config"
	"selfAPI/internal/logging"
)

type cli struct {
	app     *app.App
	timeout time.Duration
	json    bool
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "syncctl",
		Short: "Sync external feeds and inspect activity stats",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if c.app == nil {
				return nil
			}
			return c.app.Close(context.Background())
		},
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 2*time.Minute, "Overall deadline for the command")
	root.PersistentFlags().BoolVar(&c.json, "json", false, "Output as JSON")

	root.AddCommand(newSyncCmd(c))
	root.AddCommand(newStatsCmd(c))
	return root
}

func (c *cli) setup(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, "console", os.Stderr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	c.app, err = app.New(ctx, cfg, logger, prometheus.NewRegistry())
	return err
}

func (c *cli) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *cli) printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
