package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath  string
	projectRoot string
	verbose     bool
	jsonOutput  bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "prebuild",
		Short: "Apply an app manifest to a native iOS project",
		Long: `prebuild writes the settings of an app manifest (app.json, app.cue or
app.config.star) into the native iOS project generated next to it.

It updates:
  - the Xcode project file (bundle identifier, device family)
  - Info.plist
  - Supporting/Expo.plist (updates configuration)
  - the entitlements file
  - app icon, splash screen and localized strings`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "settings file path (default <project-root>/prebuild.yaml)")
	rootCmd.PersistentFlags().StringVarP(&projectRoot, "project-root", "C", ".", "project root containing the manifest and ios/")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newApplyCommand(version))
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newRestoreCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}
