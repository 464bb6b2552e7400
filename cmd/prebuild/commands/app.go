package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/prebuildkit/prebuild/pkg/config"
	"github.com/prebuildkit/prebuild/pkg/engine"
	"github.com/prebuildkit/prebuild/pkg/iosconfig"
	"github.com/prebuildkit/prebuild/pkg/manifest"
	"github.com/prebuildkit/prebuild/pkg/plist"
	"github.com/prebuildkit/prebuild/pkg/session"
	"github.com/prebuildkit/prebuild/pkg/stores"
	"github.com/prebuildkit/prebuild/pkg/telemetry"
)

// loadSettings resolves the project root and loads the settings file.
func loadSettings() (string, *config.Settings, error) {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	settings, err := config.Load(configPath, root)
	if err != nil {
		return "", nil, err
	}
	if verbose {
		settings.Logging.Level = "debug"
	}
	return root, settings, nil
}

// newDependencies wires the engine collaborators.
func newDependencies(settings *config.Settings, logger zerolog.Logger) engine.Dependencies {
	return engine.Dependencies{
		Manifests: manifest.NewResolver(logger),
		Documents: plist.NewFileStore(logger),
		Project:   iosconfig.NewProject(logger),
		Assets:    iosconfig.NewAssets(logger),
		Identity:  session.NewUserLookup(settings.SessionDir),
		Teams:     session.NewTeamResolver(settings.Apple.TeamID),
	}
}

// openHistory opens and migrates the history database. It returns nil when
// history is disabled.
func openHistory(ctx context.Context, settings *config.Settings) (*stores.SQLiteStore, error) {
	if settings.History.Disabled {
		return nil, nil
	}

	path, err := settings.HistoryPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	store, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// newTelemetry builds telemetry from settings.
func newTelemetry(settings *config.Settings, version string) (*telemetry.Telemetry, error) {
	tel, err := telemetry.NewTelemetry(settings.Telemetry(version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	return tel, nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
