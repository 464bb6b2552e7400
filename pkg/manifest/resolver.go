package manifest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// ErrConfig is returned when the manifest is absent or cannot be resolved.
var ErrConfig = errors.New("invalid app config")

// Manifest file names, in lookup order for the static config.
const (
	AppJSONFile     = "app.json"
	AppCUEFile      = "app.cue"
	AppStarlarkFile = "app.config.star"
	PackageJSONFile = "package.json"
)

// Files returns the manifest source files that may exist in a project root.
func Files(projectRoot string) []string {
	return []string{
		filepath.Join(projectRoot, AppJSONFile),
		filepath.Join(projectRoot, AppCUEFile),
		filepath.Join(projectRoot, AppStarlarkFile),
		filepath.Join(projectRoot, PackageJSONFile),
	}
}

// Resolver reads the static manifest (app.json or app.cue) and applies the
// optional dynamic app.config.star on top of it.
type Resolver struct {
	cue      *CUELoader
	starlark *StarlarkEvaluator
	logger   zerolog.Logger
}

// NewResolver creates a new manifest resolver.
func NewResolver(logger zerolog.Logger) *Resolver {
	return &Resolver{
		cue:      NewCUELoader(),
		starlark: NewStarlarkEvaluator(0),
		logger:   logger.With().Str("component", "manifest").Logger(),
	}
}

// Resolve returns the manifest of the project at projectRoot.
func (r *Resolver) Resolve(ctx context.Context, projectRoot string, opts Options) (*Manifest, error) {
	raw, source, err := r.loadStatic(projectRoot)
	if err != nil {
		return nil, err
	}

	dynamicPath := filepath.Join(projectRoot, AppStarlarkFile)
	script, err := os.ReadFile(dynamicPath)
	switch {
	case err == nil:
		if raw == nil {
			raw = make(map[string]any)
		}
		raw, err = r.starlark.Evaluate(ctx, AppStarlarkFile, string(script), raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		source = AppStarlarkFile
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrConfig, dynamicPath, err)
	}

	if raw == nil {
		return nil, fmt.Errorf("%w: no %s, %s or %s found in %s",
			ErrConfig, AppJSONFile, AppCUEFile, AppStarlarkFile, projectRoot)
	}

	m, err := decodeManifest(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfig, source, err)
	}

	if !opts.SkipVersionRequirement && m.SDKVersion == "" {
		version, err := sdkVersionFromPackageJSON(projectRoot)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		m.SDKVersion = version
	}

	r.logger.Debug().
		Str("source", source).
		Str("name", m.Name).
		Str("bundle_identifier", m.BundleIdentifier()).
		Msg("Resolved manifest")

	return m, nil
}

// loadStatic loads app.json, falling back to app.cue. It returns a nil map
// when neither exists.
func (r *Resolver) loadStatic(projectRoot string) (map[string]any, string, error) {
	jsonPath := filepath.Join(projectRoot, AppJSONFile)
	data, err := os.ReadFile(jsonPath)
	if err == nil {
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, "", fmt.Errorf("%w: failed to parse %s: %v", ErrConfig, jsonPath, err)
		}
		if expo, ok := raw["expo"].(map[string]any); ok {
			raw = expo
		}
		return raw, AppJSONFile, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("%w: failed to read %s: %v", ErrConfig, jsonPath, err)
	}

	cuePath := filepath.Join(projectRoot, AppCUEFile)
	if _, err := os.Stat(cuePath); err == nil {
		raw, err := r.cue.LoadFile(cuePath)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrConfig, err)
		}
		return raw, AppCUEFile, nil
	}

	return nil, "", nil
}

// decodeManifest converts a generic manifest object into a Manifest.
func decodeManifest(raw map[string]any) (*Manifest, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

var majorVersionPattern = regexp.MustCompile(`(\d+)\.\d+\.\d+`)

// sdkVersionFromPackageJSON derives "<major>.0.0" from the expo dependency.
func sdkVersionFromPackageJSON(projectRoot string) (string, error) {
	path := filepath.Join(projectRoot, PackageJSONFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot determine SDK version: %s not readable: %v", PackageJSONFile, err)
	}

	var pkg struct {
		Dependencies map[string]string `json:"dependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", fmt.Errorf("failed to parse %s: %v", path, err)
	}

	dep, ok := pkg.Dependencies["expo"]
	if !ok {
		return "", fmt.Errorf("cannot determine SDK version: expo is not a dependency in %s", PackageJSONFile)
	}
	match := majorVersionPattern.FindStringSubmatch(dep)
	if match == nil {
		return "", fmt.Errorf("cannot determine SDK version from expo dependency %q", dep)
	}
	return match[1] + ".0.0", nil
}
