package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/prebuildkit/prebuild/pkg/iosconfig"
	"github.com/prebuildkit/prebuild/pkg/manifest"
	"github.com/prebuildkit/prebuild/pkg/plist"
	"github.com/prebuildkit/prebuild/pkg/session"
)

func newTestApplier(t *testing.T, teamID string, opts ...Option) *Applier {
	t.Helper()
	logger := zerolog.Nop()
	return NewApplier(Dependencies{
		Manifests: manifest.NewResolver(logger),
		Documents: plist.NewFileStore(logger),
		Project:   iosconfig.NewProject(logger),
		Assets:    iosconfig.NewAssets(logger),
		Identity:  session.NewUserLookup(t.TempDir()),
		Teams:     session.NewTeamResolver(teamID),
	}, opts...)
}

func writeAppJSON(t *testing.T, root, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(root, "app.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("write app.json: %v", err)
	}
}

func hasWarning(report *Report, tag string) bool {
	for _, w := range report.Warnings {
		if w.Tag == tag {
			return true
		}
	}
	return false
}

func TestApplyEndToEnd(t *testing.T) {
	root := t.TempDir()
	writeAppJSON(t, root, `{"expo": {"name": "MyApp", "ios": {"bundleIdentifier": "com.x.myapp"}}}`)
	native := filepath.Join(root, "ios", "MyApp")
	writeDocument(t, native, "Info", "")

	report, err := newTestApplier(t, "").Apply(context.Background(), root)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if report.Phase != PhaseDone {
		t.Errorf("expected done, got %s", report.Phase)
	}
	if report.Paths.ProjectName != "MyApp" {
		t.Errorf("unexpected paths %+v", report.Paths)
	}

	info := readDocument(t, native, "Info")
	if got := info.String("CFBundleIdentifier"); got != "com.x.myapp" {
		t.Errorf("CFBundleIdentifier = %q", got)
	}
	if got := info.String("CFBundleDisplayName"); got != "MyApp" {
		t.Errorf("CFBundleDisplayName = %q", got)
	}

	if !hasWarning(report, TagEntitlements) {
		t.Errorf("expected entitlements warning, got %+v", report.Warnings)
	}
	for _, w := range report.Warnings {
		if w.Tag == TagUpdates && w.DocLink != UpdatesDocLink {
			t.Errorf("updates warning should link the docs, got %+v", w)
		}
	}
	if plist.HasBackup(native, "Info") {
		t.Error("Info.plist backup left behind")
	}
}

func TestApplyAllDocuments(t *testing.T) {
	root := t.TempDir()
	writeAppJSON(t, root, `{"expo": {
		"name": "MyApp",
		"slug": "my-app",
		"sdkVersion": "40.0.0",
		"ios": {"bundleIdentifier": "com.x.myapp", "usesIcloudStorage": true, "usesAppleSignIn": true}
	}}`)
	native := filepath.Join(root, "ios", "MyApp")
	writeDocument(t, native, "Info", emptyPlist)
	writeDocument(t, filepath.Join(native, "Supporting"), "Expo", "")
	writeDocument(t, native, "MyApp.entitlements", "")

	report, err := newTestApplier(t, "ABCDE12345").Apply(context.Background(), root)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("expected no warnings, got %+v", report.Warnings)
	}

	expo := readDocument(t, filepath.Join(native, "Supporting"), "Expo")
	if got := expo.String("EXUpdatesURL"); got != "https://exp.host/@anonymous/my-app" {
		t.Errorf("EXUpdatesURL = %q", got)
	}
	if got := expo.String("EXUpdatesSDKVersion"); got != "40.0.0" {
		t.Errorf("EXUpdatesSDKVersion = %q", got)
	}

	ent := readDocument(t, native, "MyApp.entitlements")
	if got := ent.String(iosconfig.KeyUbiquityKVStore); got != "ABCDE12345.com.x.myapp" {
		t.Errorf("kvstore = %q", got)
	}
	if got := ent.StringArray(iosconfig.KeyAppleSignIn); len(got) != 1 {
		t.Errorf("apple sign in = %v", got)
	}
}

func TestApplyMissingTeamIsIsolated(t *testing.T) {
	t.Setenv("APPLE_TEAM_ID", "")
	root := t.TempDir()
	writeAppJSON(t, root, `{"expo": {"name": "MyApp", "ios": {"bundleIdentifier": "com.x.myapp", "usesIcloudStorage": true}}}`)
	native := filepath.Join(root, "ios", "MyApp")
	writeDocument(t, native, "Info", "")
	writeDocument(t, native, "MyApp.entitlements", "")

	report, err := newTestApplier(t, "").Apply(context.Background(), root)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !hasWarning(report, TagEntitlements) {
		t.Fatalf("expected entitlements warning, got %+v", report.Warnings)
	}
	for _, w := range report.Warnings {
		if w.Tag != TagEntitlements {
			continue
		}
		if !strings.Contains(w.Message, "team") {
			t.Errorf("warning should explain the team failure: %q", w.Message)
		}
		if !strings.HasPrefix(w.Message, "iOS entitlements could not be applied. Please ensure") {
			t.Errorf("warning should tell the user what to configure: %q", w.Message)
		}
	}

	data, err := os.ReadFile(plist.Path(native, "MyApp.entitlements"))
	if err != nil {
		t.Fatalf("read entitlements: %v", err)
	}
	if len(data) != 0 {
		t.Error("entitlements must not be written when the team is unavailable")
	}
}

func TestApplyMissingNameWritesNothing(t *testing.T) {
	root := t.TempDir()
	writeAppJSON(t, root, `{"expo": {"ios": {"bundleIdentifier": "com.x.myapp"}}}`)
	native := filepath.Join(root, "ios", "MyApp")
	writeDocument(t, native, "Info", emptyPlist)

	report, err := newTestApplier(t, "").Apply(context.Background(), root)
	if !errors.Is(err, ErrMissingName) {
		t.Fatalf("expected ErrMissingName, got %v", err)
	}
	if report == nil || report.Phase != PhaseFailed {
		t.Fatalf("expected failed report, got %+v", report)
	}

	data, err := os.ReadFile(plist.Path(native, "Info"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != emptyPlist {
		t.Error("Info.plist must not be touched when the name is missing")
	}
}

func TestApplyMissingBundleIdentifier(t *testing.T) {
	root := t.TempDir()
	writeAppJSON(t, root, `{"expo": {"name": "MyApp"}}`)

	_, err := newTestApplier(t, "").Apply(context.Background(), root)
	if !errors.Is(err, ErrMissingBundleIdentifier) {
		t.Fatalf("expected ErrMissingBundleIdentifier, got %v", err)
	}
}

func TestApplyMissingInfoPlistIsFatal(t *testing.T) {
	root := t.TempDir()
	writeAppJSON(t, root, `{"expo": {"name": "MyApp", "ios": {"bundleIdentifier": "com.x.myapp"}}}`)

	report, err := newTestApplier(t, "").Apply(context.Background(), root)
	if !errors.Is(err, plist.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if report.Phase != PhaseFailed {
		t.Errorf("expected failed phase, got %s", report.Phase)
	}
}

func TestApplyMissingManifest(t *testing.T) {
	_, err := newTestApplier(t, "").Apply(context.Background(), t.TempDir())
	if !errors.Is(err, manifest.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestApplyCancelled(t *testing.T) {
	root := t.TempDir()
	writeAppJSON(t, root, `{"expo": {"name": "MyApp", "ios": {"bundleIdentifier": "com.x.myapp"}}}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newTestApplier(t, "").Apply(ctx, root)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if report.Phase != PhaseFailed {
		t.Errorf("expected failed phase, got %s", report.Phase)
	}
}

type recordingObserver struct {
	phases   []Phase
	failed   []Phase
	warnings []Warning
}

func (o *recordingObserver) PhaseStarted(ctx context.Context, phase Phase) (context.Context, func(error)) {
	o.phases = append(o.phases, phase)
	return ctx, func(err error) {
		if err != nil {
			o.failed = append(o.failed, phase)
		}
	}
}

func (o *recordingObserver) WarningRecorded(_ context.Context, w Warning) {
	o.warnings = append(o.warnings, w)
}

func TestApplyNotifiesObserver(t *testing.T) {
	root := t.TempDir()
	writeAppJSON(t, root, `{"expo": {"name": "MyApp", "ios": {"bundleIdentifier": "com.x.myapp"}}}`)
	writeDocument(t, filepath.Join(root, "ios", "MyApp"), "Info", "")

	observer := &recordingObserver{}
	report, err := newTestApplier(t, "", WithObserver(observer)).Apply(context.Background(), root)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if len(observer.phases) != len(Phases()) {
		t.Errorf("expected every phase to be observed, got %v", observer.phases)
	}
	if len(observer.failed) != 0 {
		t.Errorf("isolated failures must not fail a phase, got %v", observer.failed)
	}
	if len(observer.warnings) != len(report.Warnings) {
		t.Errorf("observer saw %d warnings, report has %d", len(observer.warnings), len(report.Warnings))
	}
}
