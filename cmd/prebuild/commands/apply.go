package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/prebuildkit/prebuild/pkg/engine"
	"github.com/prebuildkit/prebuild/pkg/manifest"
	"github.com/prebuildkit/prebuild/pkg/stores"
	"github.com/prebuildkit/prebuild/pkg/telemetry"
)

func newApplyCommand(version string) *cobra.Command {
	var (
		teamID      string
		historyPath string
		noHistory   bool
		metricsFile string
		watch       bool
		watchDelay  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply the manifest to the iOS project",
		Long: `Apply the resolved manifest to the native iOS project.

This command:
  - Resolves the manifest and the native project paths
  - Sets the bundle identifier and device family in the Xcode project
  - Rewrites Info.plist, Expo.plist and the entitlements file
  - Places icons, the splash screen and localized strings
  - Records the run in the history database

Expo.plist and entitlements failures are reported as warnings and do not
fail the run.`,
		Example: `  # Apply the manifest in the current directory
  prebuild apply

  # Apply with an explicit Apple team for iCloud entitlements
  prebuild apply -C ./my-app --team-id ABCDE12345

  # Re-apply whenever the manifest changes
  prebuild apply --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			root, settings, err := loadSettings()
			if err != nil {
				return err
			}
			if teamID != "" {
				settings.Apple.TeamID = teamID
			}
			if historyPath != "" {
				settings.History.Path = historyPath
			}
			if noHistory {
				settings.History.Disabled = true
			}
			if metricsFile != "" {
				settings.Metrics.Textfile = metricsFile
			}
			if err := settings.Validate(); err != nil {
				return err
			}

			tel, err := newTelemetry(settings, version)
			if err != nil {
				return err
			}
			defer func() {
				if err := tel.Shutdown(context.Background()); err != nil {
					tel.Logger.WithError(err).Warn("Failed to flush telemetry")
				}
			}()
			cmdLogger := tel.Logger.NewComponentLogger("apply").WithProjectRoot(root)
			ctx = cmdLogger.WithContext(ctx)
			logger := cmdLogger.Zerolog()

			var history stores.HistoryStore
			store, err := openHistory(ctx, settings)
			if err != nil {
				logger.Warn().Err(err).Msg("History unavailable, runs will not be recorded")
			} else if store != nil {
				defer store.Close()
				history = store
			}

			applier := engine.NewApplier(newDependencies(settings, logger),
				engine.WithLogger(logger),
				engine.WithObserver(tel.Observer()),
			)

			r := &applyRunner{
				applier: applier,
				tel:     tel,
				history: history,
				out:     cmd.OutOrStdout(),
				errOut:  cmd.ErrOrStderr(),
			}

			if !watch {
				return r.run(ctx, root)
			}

			if err := r.run(ctx, root); err != nil {
				cmdLogger.WithError(err).Error("Apply failed, waiting for manifest changes")
			}
			cmdLogger.Info("Watching for manifest changes, press Ctrl+C to stop")
			watcher := manifest.NewWatcher(watchDelay, logger)
			return watcher.Watch(ctx, root, func(ctx context.Context) {
				if err := r.run(ctx, root); err != nil {
					cmdLogger.WithError(err).Error("Apply failed, waiting for manifest changes")
				}
			})
		},
	}

	cmd.Flags().StringVar(&teamID, "team-id", "", "Apple developer team identifier")
	cmd.Flags().StringVar(&historyPath, "history", "", "history database path")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record the run")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-apply when manifest files change")
	cmd.Flags().DurationVar(&watchDelay, "watch-delay", 500*time.Millisecond, "debounce delay for --watch")

	return cmd
}

// applyRunner executes one apply and reports its outcome.
type applyRunner struct {
	applier *engine.Applier
	tel     *telemetry.Telemetry
	history stores.HistoryStore
	out     io.Writer
	errOut  io.Writer
}

func (r *applyRunner) run(ctx context.Context, root string) error {
	report, err := r.tel.InstrumentApply(ctx, root, func(ctx context.Context) (*engine.Report, error) {
		return r.applier.Apply(ctx, root)
	})

	if report != nil {
		r.record(ctx, report)
		for _, w := range report.Warnings {
			fmt.Fprintln(r.errOut, w.String())
		}
		if jsonOutput {
			if perr := printJSON(r.out, report); perr != nil {
				return perr
			}
		} else if err == nil {
			fmt.Fprintf(r.out, "Applied %s to %s in %s (%d warnings)\n",
				report.Paths.ProjectName, root, report.Duration.Round(time.Millisecond), len(report.Warnings))
		}
	}
	return err
}

func (r *applyRunner) record(ctx context.Context, report *engine.Report) {
	if r.history == nil {
		return
	}
	if _, err := r.history.RecordRun(context.WithoutCancel(ctx), report); err != nil {
		telemetry.FromContext(ctx).
			WithRunID(report.RunID.String()).
			WithError(err).
			Warn("Failed to record apply run")
	}
}
