package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/prebuildkit/prebuild/pkg/engine"
	"github.com/prebuildkit/prebuild/pkg/manifest"
)

func newValidateCommand() *cobra.Command {
	var requireSDK bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Resolve the manifest and print the native project layout",
		Long: `Resolve the manifest without writing anything.

This command checks:
  - app.json, app.cue or app.config.star can be loaded
  - the manifest name yields a valid native project name
  - ios.bundleIdentifier is set
  - the SDK version can be resolved (with --require-sdk)`,
		Example: `  # Validate the project in the current directory
  prebuild validate

  # Validate another project and print JSON
  prebuild validate -C ./my-app --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, settings, err := loadSettings()
			if err != nil {
				return err
			}
			logger := log.Logger
			if verbose {
				logger = logger.Level(zerolog.DebugLevel)
			}

			m, err := manifest.NewResolver(logger).Resolve(cmd.Context(), root, manifest.Options{
				SkipVersionRequirement: !requireSDK,
			})
			if err != nil {
				return err
			}

			paths, err := engine.ResolvePaths(root, m)
			if err != nil {
				return err
			}
			if m.BundleIdentifier() == "" {
				return engine.ErrMissingBundleIdentifier
			}

			result := struct {
				ProjectRoot      string       `json:"projectRoot"`
				Name             string       `json:"name"`
				BundleIdentifier string       `json:"bundleIdentifier"`
				SDKVersion       string       `json:"sdkVersion,omitempty"`
				Paths            engine.Paths `json:"paths"`
				Entitlements     string       `json:"entitlements"`
				TeamID           string       `json:"teamId,omitempty"`
			}{
				ProjectRoot:      root,
				Name:             m.Name,
				BundleIdentifier: m.BundleIdentifier(),
				SDKVersion:       m.SDKVersion,
				Paths:            paths,
				Entitlements:     engine.EntitlementsPath(paths),
				TeamID:           settings.Apple.TeamID,
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, result)
			}
			fmt.Fprintf(out, "Project:       %s\n", result.Name)
			fmt.Fprintf(out, "Bundle id:     %s\n", result.BundleIdentifier)
			fmt.Fprintf(out, "Native dir:    %s\n", paths.NativeProjectDirectory)
			fmt.Fprintf(out, "Icons:         %s\n", paths.IconAssetDirectory)
			fmt.Fprintf(out, "Entitlements:  %s\n", result.Entitlements)
			if result.SDKVersion != "" {
				fmt.Fprintf(out, "SDK version:   %s\n", result.SDKVersion)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&requireSDK, "require-sdk", false, "fail when no SDK version can be resolved")

	return cmd
}
