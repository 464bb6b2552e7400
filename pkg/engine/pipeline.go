package engine

import (
	"context"
	"fmt"

	"github.com/prebuildkit/prebuild/pkg/iosconfig"
	"github.com/prebuildkit/prebuild/pkg/manifest"
	"github.com/prebuildkit/prebuild/pkg/plist"
)

// Step is a named document transformation.
type Step struct {
	Name  string
	Apply Transform
}

// Pipeline is an ordered sequence of steps applied to one document.
// Order matters: a later step overwrites keys written by an earlier one.
type Pipeline struct {
	Name  string
	Steps []Step
}

// Names returns the step names in application order.
func (p Pipeline) Names() []string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Name
	}
	return names
}

// Fold applies every step left to right to a copy of doc, so that
// Fold(doc) == step_n(...step_1(doc)). It stops at the first failing step.
func (p Pipeline) Fold(ctx context.Context, doc plist.Document) (plist.Document, error) {
	out := doc.Clone()
	if out == nil {
		out = plist.New()
	}
	for _, step := range p.Steps {
		next, err := step.Apply(ctx, out)
		if err != nil {
			return nil, fmt.Errorf("%s pipeline step %q failed: %w", p.Name, step.Name, err)
		}
		out = next
	}
	return out, nil
}

// manifestStep binds a catalog transform to a manifest.
func manifestStep(name string, m *manifest.Manifest, fn iosconfig.Transform) Step {
	return Step{
		Name: name,
		Apply: func(_ context.Context, doc plist.Document) (plist.Document, error) {
			return fn(m, doc), nil
		},
	}
}

// InfoPlistPipeline returns the Info.plist transformations. Custom entries
// come first so the dedicated transforms win on conflicting keys.
func InfoPlistPipeline(m *manifest.Manifest) Pipeline {
	return Pipeline{
		Name: "info-plist",
		Steps: []Step{
			manifestStep("custom-entries", m, iosconfig.SetCustomInfoPlistEntries),
			manifestStep("branch-key", m, iosconfig.SetBranchAPIKey),
			manifestStep("facebook", m, iosconfig.SetFacebookConfig),
			manifestStep("google", m, iosconfig.SetGoogleConfig),
			manifestStep("display-name", m, iosconfig.SetDisplayName),
			manifestStep("orientation", m, iosconfig.SetOrientation),
			manifestStep("requires-full-screen", m, iosconfig.SetRequiresFullScreen),
			manifestStep("scheme", m, iosconfig.SetScheme),
			manifestStep("user-interface-style", m, iosconfig.SetUserInterfaceStyle),
			manifestStep("uses-non-exempt-encryption", m, iosconfig.SetUsesNonExemptEncryption),
			manifestStep("build-number", m, iosconfig.SetBuildNumber),
			manifestStep("version", m, iosconfig.SetVersion),
		},
	}
}

// ExpoPlistPipeline returns the Expo.plist transformations.
func ExpoPlistPipeline(m *manifest.Manifest, username string) Pipeline {
	return Pipeline{
		Name: "expo-plist",
		Steps: []Step{
			{
				Name: "updates",
				Apply: func(_ context.Context, doc plist.Document) (plist.Document, error) {
					return iosconfig.SetUpdatesConfig(m, doc, username), nil
				},
			},
		},
	}
}

// EntitlementsPipeline returns the entitlements transformations.
func EntitlementsPipeline(m *manifest.Manifest, teamID string) Pipeline {
	return Pipeline{
		Name: "entitlements",
		Steps: []Step{
			{
				Name: "icloud",
				Apply: func(_ context.Context, doc plist.Document) (plist.Document, error) {
					return iosconfig.SetICloudEntitlement(m, teamID, doc), nil
				},
			},
			manifestStep("apple-sign-in", m, iosconfig.SetAppleSignInEntitlement),
			manifestStep("contact-notes", m, iosconfig.SetAccessesContactNotes),
			manifestStep("associated-domains", m, iosconfig.SetAssociatedDomains),
		},
	}
}

// BundleIdentifierPipeline writes CFBundleIdentifier into Info.plist.
func BundleIdentifierPipeline(m *manifest.Manifest) Pipeline {
	return Pipeline{
		Name:  "bundle-identifier",
		Steps: []Step{manifestStep("bundle-identifier", m, iosconfig.SetBundleIdentifier)},
	}
}
