package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"selfAPI/internal/feedsync"
)

func newSyncCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sync [youtube|instagram|vercel|all]",
		Short: "Pull the latest items from external feeds into the store",
		Long: `Run one sync source, or every source when none or "all" is given.
Sources without credentials are skipped. Re-running a sync never creates
duplicates.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := "all"
			if len(args) == 1 {
				source = args[0]
			}
			return c.runSync(cmd, source)
		},
	}
}

func (c *cli) runSync(cmd *cobra.Command, source string) error {
	ctx, cancel := c.context(cmd)
	defer cancel()

	var results []*feedsync.Result
	if source == "all" {
		results = c.app.Syncs.RunAll(ctx)
	} else {
		res, err := c.app.Syncs.Run(ctx, source)
		if err != nil {
			return fmt.Errorf("%w (known: %s)", err, strings.Join(c.app.Syncs.Sources(), ", "))
		}
		results = []*feedsync.Result{res}
	}

	if c.json {
		return c.printJSON(cmd, results)
	}

	out := cmd.OutOrStdout()
	for _, res := range results {
		switch res.Status() {
		case feedsync.StatusSkipped:
			fmt.Fprintf(out, "%-10s skipped   %s\n", res.Source, res.SkipReason)
		case feedsync.StatusFailed:
			fmt.Fprintf(out, "%-10s failed    %s\n", res.Source, res.FailureReason)
		default:
			fmt.Fprintf(out, "%-10s synced    %d new, %d updated, %d errors (%dms)\n",
				res.Source, res.UpsertedCount, res.MatchedCount, len(res.Errors), res.DurationMs)
		}
	}

	if slices.ContainsFunc(results, func(r *feedsync.Result) bool { return r.Failed }) {
		return fmt.Errorf("one or more syncs failed")
	}
	return nil
}
