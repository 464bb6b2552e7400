package stores

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/prebuildkit/prebuild/pkg/engine"
)

// setupTestStore creates a migrated SQLite store in a temporary directory
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: filepath.Join(t.TempDir(), "history.db"),
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	return store
}

func sampleReport(root string, started time.Time, warnings ...engine.Warning) *engine.Report {
	return &engine.Report{
		RunID:       uuid.New(),
		ProjectRoot: root,
		Phase:       engine.PhaseDone,
		Paths:       engine.Paths{ProjectName: "MyApp"},
		Warnings:    warnings,
		StartedAt:   started,
		Duration:    1500 * time.Millisecond,
	}
}

func TestNewSQLiteStoreRequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestHealthCheckBeforeInit(t *testing.T) {
	store, err := NewSQLiteStore(Config{Path: filepath.Join(t.TempDir(), "history.db")})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := store.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail before Init")
	}
}

func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, table := range []string{"apply_runs", "apply_warnings"} {
		var count int
		if err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}

	// Running migrations twice is a no-op.
	if err := store.Migrate(ctx); err != nil {
		t.Errorf("second migrate failed: %v", err)
	}
	if err := store.HealthCheck(ctx); err != nil {
		t.Errorf("health check failed: %v", err)
	}
}

func TestRecordAndGetRun(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	report := sampleReport("/work/app", started, engine.Warning{
		Platform: engine.PlatformIOS,
		Tag:      engine.TagEntitlements,
		Message:  "entitlements could not be applied",
	}, engine.Warning{
		Platform: engine.PlatformIOS,
		Tag:      engine.TagUpdates,
		Message:  "updates could not be configured",
		DocLink:  engine.UpdatesDocLink,
	})

	run, err := store.RecordRun(ctx, report)
	if err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	if run.ID != report.RunID.String() {
		t.Errorf("expected id %s, got %s", report.RunID, run.ID)
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.ProjectName != "MyApp" || got.Phase != engine.PhaseDone || !got.Succeeded() {
		t.Errorf("unexpected run: %+v", got)
	}
	if got.WarningCount != 2 {
		t.Errorf("expected 2 warnings, got %d", got.WarningCount)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("expected start %v, got %v", started, got.StartedAt)
	}
	if got.Duration != 1500*time.Millisecond {
		t.Errorf("unexpected duration %v", got.Duration)
	}
	if got.Error != nil {
		t.Errorf("expected no error, got %q", *got.Error)
	}

	warnings, err := store.ListWarnings(ctx, run.ID)
	if err != nil {
		t.Fatalf("ListWarnings failed: %v", err)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %d", len(warnings))
	}
	if warnings[0].Tag != engine.TagEntitlements || warnings[1].Tag != engine.TagUpdates {
		t.Errorf("warnings out of order: %s, %s", warnings[0].Tag, warnings[1].Tag)
	}
	if warnings[0].DocLink != "" || warnings[1].DocLink != engine.UpdatesDocLink {
		t.Errorf("unexpected doc links: %q, %q", warnings[0].DocLink, warnings[1].DocLink)
	}
}

func TestRecordFailedRun(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	report := &engine.Report{
		ProjectRoot: "/work/app",
		Phase:       engine.PhaseFailed,
		Error:       "resolve_manifest: missing name",
	}

	run, err := store.RecordRun(ctx, report)
	if err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	if _, err := uuid.Parse(run.ID); err != nil {
		t.Errorf("expected generated uuid, got %q", run.ID)
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Succeeded() {
		t.Error("failed run reported as succeeded")
	}
	if got.Error == nil || *got.Error != report.Error {
		t.Errorf("unexpected error column: %v", got.Error)
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.GetRun(context.Background(), "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if _, err := store.RecordRun(ctx, sampleReport("/work/a", base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("RecordRun failed: %v", err)
		}
	}
	if _, err := store.RecordRun(ctx, sampleReport("/work/b", base)); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	all, err := store.ListRuns(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("expected 4 runs, got %d", len(all))
	}

	onlyA, err := store.ListRuns(ctx, ListOptions{ProjectRoot: "/work/a", Limit: 2})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(onlyA) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(onlyA))
	}
	if !onlyA[0].StartedAt.After(onlyA[1].StartedAt) {
		t.Error("runs should be listed newest first")
	}
	for _, r := range onlyA {
		if r.ProjectRoot != "/work/a" {
			t.Errorf("unexpected project root %q", r.ProjectRoot)
		}
	}
}

func TestDeleteRunsBeforeCascades(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	oldRun, err := store.RecordRun(ctx, sampleReport("/work/app", old, engine.Warning{Platform: "ios", Tag: "updates", Message: "x"}))
	if err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	if _, err := store.RecordRun(ctx, sampleReport("/work/app", recent)); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	n, err := store.DeleteRunsBefore(ctx, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DeleteRunsBefore failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 deleted run, got %d", n)
	}

	warnings, err := store.ListWarnings(ctx, oldRun.ID)
	if err != nil {
		t.Fatalf("ListWarnings failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected warnings to cascade, got %d", len(warnings))
	}
}
