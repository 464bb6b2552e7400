package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/prebuildkit/prebuild/pkg/telemetry"
)

// DefaultFileName is the settings file looked up in the project root.
const DefaultFileName = "prebuild.yaml"

// Environment variables that override file settings.
const (
	EnvLogLevel        = "PREBUILD_LOG_LEVEL"
	EnvAppleTeamID     = "PREBUILD_APPLE_TEAM_ID"
	EnvHistoryPath     = "PREBUILD_HISTORY_PATH"
	EnvMetricsTextfile = "PREBUILD_METRICS_TEXTFILE"
	EnvTracingExporter = "PREBUILD_TRACING_EXPORTER"
	EnvTracingEndpoint = "PREBUILD_TRACING_ENDPOINT"
)

// Settings is the tool configuration. It is distinct from the application
// manifest: settings describe how prebuild runs, not what it writes.
type Settings struct {
	Logging LoggingSettings `yaml:"logging"`
	Tracing TracingSettings `yaml:"tracing"`
	Metrics MetricsSettings `yaml:"metrics"`
	History HistorySettings `yaml:"history"`
	Apple   AppleSettings   `yaml:"apple"`

	// SessionDir overrides the directory holding the CLI session state.
	SessionDir string `yaml:"session_dir,omitempty"`
}

// LoggingSettings configures the logger.
type LoggingSettings struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error fatal"`
	Format string `yaml:"format" validate:"oneof=console json"`
	Output string `yaml:"output,omitempty"`
}

// TracingSettings configures span export.
type TracingSettings struct {
	Enabled      bool              `yaml:"enabled"`
	Exporter     string            `yaml:"exporter" validate:"omitempty,oneof=otlp stdout none"`
	Endpoint     string            `yaml:"endpoint,omitempty" validate:"required_if=Exporter otlp"`
	SamplingRate float64           `yaml:"sampling_rate" validate:"gte=0,lte=1"`
	Insecure     bool              `yaml:"insecure"`
	Headers      map[string]string `yaml:"headers,omitempty"`
}

// MetricsSettings configures the metrics textfile. An empty path disables metrics.
type MetricsSettings struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// HistorySettings configures the apply history database.
type HistorySettings struct {
	Disabled bool   `yaml:"disabled"`
	Path     string `yaml:"path,omitempty"`
}

// AppleSettings holds Apple developer account settings.
type AppleSettings struct {
	// TeamID is the ten-character developer team identifier.
	TeamID string `yaml:"team_id,omitempty" validate:"omitempty,len=10,alphanum"`
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		Logging: LoggingSettings{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Tracing: TracingSettings{
			Exporter:     "none",
			SamplingRate: 1.0,
			Insecure:     true,
		},
	}
}

// Load reads settings from path, applies environment overrides and
// validates the result. When path is empty, prebuild.yaml in projectRoot is
// used if it exists.
func Load(path, projectRoot string) (*Settings, error) {
	s := Default()

	explicit := path != ""
	if !explicit {
		path = filepath.Join(projectRoot, DefaultFileName)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}

	s.ApplyEnv(os.Getenv)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ApplyEnv overrides settings from environment variables.
func (s *Settings) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvLogLevel); v != "" {
		s.Logging.Level = strings.ToLower(v)
	}
	if v := getenv(EnvAppleTeamID); v != "" {
		s.Apple.TeamID = v
	}
	if v := getenv(EnvHistoryPath); v != "" {
		s.History.Path = v
	}
	if v := getenv(EnvMetricsTextfile); v != "" {
		s.Metrics.Textfile = v
	}
	if v := getenv(EnvTracingExporter); v != "" {
		s.Tracing.Enabled = v != "none"
		s.Tracing.Exporter = v
	}
	if v := getenv(EnvTracingEndpoint); v != "" {
		s.Tracing.Endpoint = v
	}
}

// Validate checks the settings against their constraints.
func (s *Settings) Validate() error {
	v := validator.New()
	if err := v.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// HistoryPath returns the history database path, defaulting to
// <user config dir>/prebuild/history.db.
func (s *Settings) HistoryPath() (string, error) {
	if s.History.Path != "" {
		return s.History.Path, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "prebuild", "history.db"), nil
}

// Telemetry converts the settings into a telemetry configuration.
func (s *Settings) Telemetry(version string) *telemetry.Config {
	cfg := telemetry.DefaultConfig()
	if version != "" {
		cfg.ServiceVersion = version
	}
	cfg.Logging.Level = s.Logging.Level
	cfg.Logging.Format = s.Logging.Format
	if s.Logging.Output != "" {
		cfg.Logging.Output = s.Logging.Output
	}

	cfg.Tracing.Enabled = s.Tracing.Enabled
	if s.Tracing.Exporter != "" {
		cfg.Tracing.Exporter = s.Tracing.Exporter
	}
	cfg.Tracing.Endpoint = s.Tracing.Endpoint
	cfg.Tracing.SamplingRate = s.Tracing.SamplingRate
	cfg.Tracing.Insecure = s.Tracing.Insecure
	for k, v := range s.Tracing.Headers {
		cfg.Tracing.Headers[k] = v
	}

	cfg.Metrics.Enabled = s.Metrics.Textfile != ""
	cfg.Metrics.Textfile = s.Metrics.Textfile
	return cfg
}

// String renders the settings as YAML.
func (s *Settings) String() string {
	data, err := yaml.Marshal(s)
	if err != nil {
		return "<invalid settings: " + strconv.Quote(err.Error()) + ">"
	}
	return string(data)
}
