package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PlatformIOS is the platform tag on warnings raised by the iOS engine.
const PlatformIOS = "ios"

// Warning is a non-fatal, user-visible problem raised by an isolation boundary.
type Warning struct {
	// Platform is the platform the warning applies to (for example "ios").
	Platform string `json:"platform"`

	// Tag names the document group that failed (for example "entitlements").
	Tag string `json:"tag"`

	// Message is the human-readable explanation.
	Message string `json:"message"`

	// DocLink is an optional documentation URL.
	DocLink string `json:"docLink,omitempty"`
}

// String formats the warning for terminal output.
func (w Warning) String() string {
	s := fmt.Sprintf("warning [%s] %s: %s", w.Platform, w.Tag, w.Message)
	if w.DocLink != "" {
		s += " (" + w.DocLink + ")"
	}
	return s
}

// Warnings is an append-only warning collection owned by one apply run.
// It is not safe for concurrent use.
type Warnings struct {
	items []Warning
}

// Add appends a warning.
func (w *Warnings) Add(warning Warning) {
	w.items = append(w.items, warning)
}

// List returns a copy of the collected warnings in insertion order.
func (w *Warnings) List() []Warning {
	return append([]Warning(nil), w.items...)
}

// Len returns the number of collected warnings.
func (w *Warnings) Len() int {
	return len(w.items)
}

// Report summarizes one apply run.
type Report struct {
	// RunID uniquely identifies the run.
	RunID uuid.UUID `json:"runId"`

	// ProjectRoot is the project directory the run was applied to.
	ProjectRoot string `json:"projectRoot"`

	// Phase is the final phase reached (PhaseDone or PhaseFailed).
	Phase Phase `json:"phase"`

	// Paths is the resolved native layout, zero when resolution failed.
	Paths Paths `json:"paths"`

	// Warnings holds the isolated failures of the run.
	Warnings []Warning `json:"warnings,omitempty"`

	// Error is the fatal error message when Phase is PhaseFailed.
	Error string `json:"error,omitempty"`

	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
}
