// Package session looks up the signed-in account and the Apple signing team.
package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/prebuildkit/prebuild/pkg/manifest"
)

// ErrTeamIDUnavailable is returned when no source provides an Apple team identifier.
var ErrTeamIDUnavailable = errors.New("apple team identifier is not available")

// StateFile is the session state file name inside the state directory.
const StateFile = "state.json"

// UserLookup reads the signed-in username from the CLI session state file
// (~/.expo/state.json, or $EXPO_HOME/state.json).
type UserLookup struct {
	stateDir string
}

// NewUserLookup creates a lookup rooted at stateDir. An empty stateDir
// selects $EXPO_HOME, falling back to ~/.expo.
func NewUserLookup(stateDir string) *UserLookup {
	return &UserLookup{stateDir: stateDir}
}

// CurrentUsername returns the signed-in username, or "" when nobody is signed in.
func (u *UserLookup) CurrentUsername(_ context.Context) (string, error) {
	dir, err := u.dir()
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(filepath.Join(dir, StateFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read session state: %w", err)
	}

	var state struct {
		Auth *struct {
			Username string `json:"username"`
		} `json:"auth"`
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return "", fmt.Errorf("failed to parse session state: %w", err)
	}
	if state.Auth == nil {
		return "", nil
	}
	return state.Auth.Username, nil
}

func (u *UserLookup) dir() (string, error) {
	if u.stateDir != "" {
		return u.stateDir, nil
	}
	if home := os.Getenv("EXPO_HOME"); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".expo"), nil
}

// TeamResolver supplies the Apple team identifier. An explicitly configured
// team wins over the manifest's ios.appleTeamId, which wins over the
// APPLE_TEAM_ID environment variable.
type TeamResolver struct {
	configured string
}

// NewTeamResolver creates a resolver with an optional configured team.
func NewTeamResolver(configured string) *TeamResolver {
	return &TeamResolver{configured: strings.TrimSpace(configured)}
}

// TeamID returns the team identifier for m.
func (t *TeamResolver) TeamID(_ context.Context, m *manifest.Manifest) (string, error) {
	if t.configured != "" {
		return t.configured, nil
	}
	if id := strings.TrimSpace(m.IOSSection().AppleTeamID); id != "" {
		return id, nil
	}
	if id := strings.TrimSpace(os.Getenv("APPLE_TEAM_ID")); id != "" {
		return id, nil
	}
	return "", ErrTeamIDUnavailable
}
