package stores

import (
	"context"
	"errors"
	"time"

	"github.com/prebuildkit/prebuild/pkg/engine"
)

// ErrRunNotFound is returned when a run id has no record.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded apply run.
type Run struct {
	ID           string        `json:"id"`
	ProjectRoot  string        `json:"project_root"`
	ProjectName  string        `json:"project_name"`
	Phase        engine.Phase  `json:"phase"`
	Error        *string       `json:"error,omitempty"`
	WarningCount int           `json:"warning_count"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Succeeded reports whether the run reached PhaseDone.
func (r *Run) Succeeded() bool {
	return r.Phase == engine.PhaseDone
}

// Warning is one recorded isolated failure.
type Warning struct {
	ID       int64  `json:"id"`
	RunID    string `json:"run_id"`
	Position int    `json:"position"`
	engine.Warning
}

// ListOptions filters ListRuns.
type ListOptions struct {
	// ProjectRoot restricts the result to one project when set.
	ProjectRoot string
	Limit       int
	Offset      int
}

// HistoryStore defines the persistence operations for apply history.
type HistoryStore interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	RecordRun(ctx context.Context, report *engine.Report) (*Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, opts ListOptions) ([]*Run, error)
	ListWarnings(ctx context.Context, runID string) ([]*Warning, error)
	DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	HealthCheck(ctx context.Context) error
}

var _ HistoryStore = (*SQLiteStore)(nil)
