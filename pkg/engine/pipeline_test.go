package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/prebuildkit/prebuild/pkg/manifest"
	"github.com/prebuildkit/prebuild/pkg/plist"
)

func TestFoldEqualsNestedApplication(t *testing.T) {
	ctx := context.Background()
	m := &manifest.Manifest{
		Name:        "MyApp",
		Version:     "2.1.0",
		Scheme:      "myapp",
		Orientation: "portrait",
		IOS: &manifest.IOS{
			BundleIdentifier: "com.x.myapp",
			BuildNumber:      "42",
			InfoPlist:        map[string]any{"NSCameraUsageDescription": "Scan codes"},
		},
	}
	pipeline := InfoPlistPipeline(m)

	folded, err := pipeline.Fold(ctx, plist.New())
	if err != nil {
		t.Fatalf("Fold failed: %v", err)
	}

	nested := plist.New()
	for _, step := range pipeline.Steps {
		nested, err = step.Apply(ctx, nested)
		if err != nil {
			t.Fatalf("step %s failed: %v", step.Name, err)
		}
	}

	if !reflect.DeepEqual(folded, nested) {
		t.Errorf("Fold result differs from nested application:\n fold=%v\n nested=%v", folded, nested)
	}
	if folded.String("CFBundleVersion") != "42" || folded.String("CFBundleShortVersionString") != "2.1.0" {
		t.Errorf("unexpected versions: %v", folded)
	}
}

func TestFoldOrderMatters(t *testing.T) {
	ctx := context.Background()
	m := &manifest.Manifest{
		Name: "Display",
		IOS:  &manifest.IOS{InfoPlist: map[string]any{"CFBundleDisplayName": "Custom"}},
	}
	full := InfoPlistPipeline(m)
	custom, display := full.Steps[0], full.Steps[4]
	if custom.Name != "custom-entries" || display.Name != "display-name" {
		t.Fatalf("unexpected step layout: %v", full.Names())
	}

	forward, err := Pipeline{Name: "forward", Steps: []Step{custom, display}}.Fold(ctx, plist.New())
	if err != nil {
		t.Fatalf("Fold failed: %v", err)
	}
	reverse, err := Pipeline{Name: "reverse", Steps: []Step{display, custom}}.Fold(ctx, plist.New())
	if err != nil {
		t.Fatalf("Fold failed: %v", err)
	}

	if forward.String("CFBundleDisplayName") != "Display" {
		t.Errorf("forward order: got %q", forward.String("CFBundleDisplayName"))
	}
	if reverse.String("CFBundleDisplayName") != "Custom" {
		t.Errorf("reverse order: got %q", reverse.String("CFBundleDisplayName"))
	}
}

func TestFoldDoesNotMutateInput(t *testing.T) {
	input := plist.Document{"CFBundleVersion": "7"}
	if _, err := InfoPlistPipeline(&manifest.Manifest{Name: "A"}).Fold(context.Background(), input); err != nil {
		t.Fatalf("Fold failed: %v", err)
	}
	if len(input) != 1 || input.String("CFBundleVersion") != "7" {
		t.Errorf("input document was modified: %v", input)
	}
}

func TestFoldStopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	ran := false
	p := Pipeline{
		Name: "test",
		Steps: []Step{
			{Name: "fail", Apply: func(context.Context, plist.Document) (plist.Document, error) { return nil, boom }},
			{Name: "after", Apply: func(_ context.Context, d plist.Document) (plist.Document, error) { ran = true; return d, nil }},
		},
	}

	_, err := p.Fold(context.Background(), plist.New())
	if !errors.Is(err, boom) {
		t.Fatalf("expected step error, got %v", err)
	}
	if ran {
		t.Error("steps after a failure must not run")
	}
}

func TestPipelineCatalog(t *testing.T) {
	m := &manifest.Manifest{Name: "A"}
	tests := []struct {
		pipeline Pipeline
		want     []string
	}{
		{InfoPlistPipeline(m), []string{
			"custom-entries", "branch-key", "facebook", "google", "display-name", "orientation",
			"requires-full-screen", "scheme", "user-interface-style", "uses-non-exempt-encryption",
			"build-number", "version",
		}},
		{ExpoPlistPipeline(m, "jane"), []string{"updates"}},
		{EntitlementsPipeline(m, "TEAM"), []string{"icloud", "apple-sign-in", "contact-notes", "associated-domains"}},
		{BundleIdentifierPipeline(m), []string{"bundle-identifier"}},
	}

	for _, tt := range tests {
		t.Run(tt.pipeline.Name, func(t *testing.T) {
			if got := tt.pipeline.Names(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Names() = %v, want %v", got, tt.want)
			}
		})
	}
}
