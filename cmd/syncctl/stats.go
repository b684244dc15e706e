package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"selfAPI/services"
)

func newStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:       "stats <collection>",
		Short:     "Print the activity summary of one collection",
		Args:      cobra.ExactArgs(1),
		ValidArgs: services.Names,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			summary, err := c.app.Stats.Summary(ctx, args[0])
			if err != nil {
				return fmt.Errorf("%w (known: %s)", err, strings.Join(services.Names, ", "))
			}

			if c.json {
				return c.printJSON(cmd, summary)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d entries\n", summary.Collection, summary.Total)
			fmt.Fprintf(out, "Current streak: %d days (longest %d)\n", summary.CurrentStreak, summary.LongestStreak)
			fmt.Fprintf(out, "This year (%d): %d entries, streak %d\n", summary.Yearly.Year, summary.Yearly.Count, summary.Yearly.Streak)
			fmt.Fprintf(out, "This week: %d active days, this month: %d\n", summary.DaysThisWeek, summary.DaysThisMonth)
			for _, m := range summary.Monthly {
				fmt.Fprintf(out, "  %s %d  %d\n", m.Label, m.Year, m.Count)
			}
			return nil
		},
	}
}
