package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prebuildkit/prebuild/pkg/manifest"
)

func TestCurrentUsername(t *testing.T) {
	tests := []struct {
		name  string
		state string
		want  string
	}{
		{"signed in", `{"auth": {"username": "jane", "sessionSecret": "x"}}`, "jane"},
		{"signed out", `{"auth": null}`, ""},
		{"no auth key", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, StateFile), []byte(tt.state), 0o600); err != nil {
				t.Fatalf("failed to write state: %v", err)
			}

			got, err := NewUserLookup(dir).CurrentUsername(context.Background())
			if err != nil {
				t.Fatalf("CurrentUsername failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCurrentUsernameWithoutStateFile(t *testing.T) {
	got, err := NewUserLookup(t.TempDir()).CurrentUsername(context.Background())
	if err != nil {
		t.Fatalf("expected anonymous session, got error %v", err)
	}
	if got != "" {
		t.Errorf("expected empty username, got %q", got)
	}
}

func TestCurrentUsernameMalformedState(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, StateFile), []byte("{"), 0o600); err != nil {
		t.Fatalf("failed to write state: %v", err)
	}
	if _, err := NewUserLookup(dir).CurrentUsername(context.Background()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestTeamIDPrecedence(t *testing.T) {
	m := &manifest.Manifest{IOS: &manifest.IOS{AppleTeamID: "MANIFEST01"}}
	t.Setenv("APPLE_TEAM_ID", "ENVTEAM001")

	if got, _ := NewTeamResolver("FLAGTEAM01").TeamID(context.Background(), m); got != "FLAGTEAM01" {
		t.Errorf("configured team must win, got %q", got)
	}
	if got, _ := NewTeamResolver("").TeamID(context.Background(), m); got != "MANIFEST01" {
		t.Errorf("manifest team must win over env, got %q", got)
	}
	if got, _ := NewTeamResolver("").TeamID(context.Background(), &manifest.Manifest{}); got != "ENVTEAM001" {
		t.Errorf("expected env team, got %q", got)
	}
}

func TestTeamIDUnavailable(t *testing.T) {
	t.Setenv("APPLE_TEAM_ID", "")
	_, err := NewTeamResolver("").TeamID(context.Background(), &manifest.Manifest{})
	if !errors.Is(err, ErrTeamIDUnavailable) {
		t.Fatalf("expected ErrTeamIDUnavailable, got %v", err)
	}
}
