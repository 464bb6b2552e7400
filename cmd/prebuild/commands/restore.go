package commands

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/prebuildkit/prebuild/pkg/engine"
	"github.com/prebuildkit/prebuild/pkg/manifest"
	"github.com/prebuildkit/prebuild/pkg/plist"
)

func newRestoreCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore documents from backups left by an interrupted apply",
		Long: `Restore Info.plist, Expo.plist and the entitlements file from the
.bak backups written while they were being edited.

Backups are removed when an edit finishes, so leftovers only exist after a
crash or a killed process. Each backup is copied over its document and then
deleted.`,
		Example: `  # Restore leftover backups
  prebuild restore

  # List what would be restored
  prebuild restore --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _, err := loadSettings()
			if err != nil {
				return err
			}

			m, err := manifest.NewResolver(log.Logger).Resolve(cmd.Context(), root, manifest.Options{SkipVersionRequirement: true})
			if err != nil {
				return err
			}
			paths, err := engine.ResolvePaths(root, m)
			if err != nil {
				return err
			}

			entitlements := engine.EntitlementsPath(paths)
			documents := []struct{ dir, name string }{
				{paths.NativeProjectDirectory, engine.InfoPlistName},
				{paths.SupportingDirectory(), engine.ExpoPlistName},
				{filepath.Dir(entitlements), filepath.Base(entitlements)},
			}

			store := plist.NewFileStore(log.Logger)
			out := cmd.OutOrStdout()
			restored := 0
			for _, d := range documents {
				if !plist.HasBackup(d.dir, d.name) {
					continue
				}
				target := plist.Path(d.dir, d.name)
				if dryRun {
					fmt.Fprintf(out, "would restore %s\n", target)
					restored++
					continue
				}
				if err := store.CleanupBackup(d.dir, d.name, true); err != nil {
					return fmt.Errorf("failed to restore %s: %w", target, err)
				}
				fmt.Fprintf(out, "restored %s\n", target)
				restored++
			}

			if restored == 0 {
				fmt.Fprintln(out, "no backups found")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list backups without restoring them")

	return cmd
}
