package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/prebuildkit/prebuild/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var (
		limit      int
		allRoots   bool
		showRun    string
		pruneAfter time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded apply runs",
		Long: `List apply runs recorded in the history database, newest first.

By default only runs for the current project root are shown.`,
		Example: `  # Last 20 runs of this project
  prebuild history

  # Warnings of one run
  prebuild history --run 3f9c2a0e-...

  # Drop runs older than 30 days
  prebuild history --prune 720h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			root, settings, err := loadSettings()
			if err != nil {
				return err
			}
			if settings.History.Disabled {
				return fmt.Errorf("history is disabled in settings")
			}

			store, err := openHistory(ctx, settings)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.HealthCheck(ctx); err != nil {
				return fmt.Errorf("history database unavailable: %w", err)
			}

			out := cmd.OutOrStdout()

			if pruneAfter > 0 {
				n, err := store.DeleteRunsBefore(ctx, time.Now().Add(-pruneAfter))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "pruned %d runs\n", n)
				return nil
			}

			if showRun != "" {
				run, err := store.GetRun(ctx, showRun)
				if err != nil {
					return err
				}
				warnings, err := store.ListWarnings(ctx, run.ID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(out, struct {
						*stores.Run
						Warnings []*stores.Warning `json:"warnings"`
					}{run, warnings})
				}
				fmt.Fprintf(out, "%s  %s  %s  %s\n", run.ID, run.StartedAt.Format(time.RFC3339), run.Phase, run.ProjectRoot)
				if run.Error != nil {
					fmt.Fprintf(out, "error: %s\n", *run.Error)
				}
				for _, w := range warnings {
					fmt.Fprintln(out, w.Warning.String())
				}
				return nil
			}

			opts := stores.ListOptions{Limit: limit}
			if !allRoots {
				opts.ProjectRoot = root
			}
			runs, err := store.ListRuns(ctx, opts)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(out, runs)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tPHASE\tWARNINGS\tDURATION\tPROJECT")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					r.ID, r.StartedAt.Format(time.RFC3339), r.Phase, r.WarningCount, r.Duration, r.ProjectRoot)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to list")
	cmd.Flags().BoolVar(&allRoots, "all", false, "list runs of every project")
	cmd.Flags().StringVar(&showRun, "run", "", "show one run with its warnings")
	cmd.Flags().DurationVar(&pruneAfter, "prune", 0, "delete runs older than this duration")

	return cmd
}
