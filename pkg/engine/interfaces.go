package engine

import (
	"context"

	"github.com/prebuildkit/prebuild/pkg/manifest"
	"github.com/prebuildkit/prebuild/pkg/plist"
)

// ManifestResolver loads the application manifest for a project root.
type ManifestResolver interface {
	// Resolve returns the manifest, or an error wrapping manifest.ErrConfig
	// when it is absent or invalid.
	Resolve(ctx context.Context, projectRoot string, opts manifest.Options) (*manifest.Manifest, error)
}

// DocumentStore opens and persists property-list documents and manages
// their backups.
type DocumentStore interface {
	// Open reads and parses a document and creates its backup.
	Open(dir, name string) (plist.Document, error)

	// Write serializes a document in its original format.
	Write(dir, name string, doc plist.Document) error

	// CleanupBackup removes the backup, first copying it back over the
	// document when restore is true. A missing backup is not an error.
	CleanupBackup(dir, name string, restore bool) error
}

// ProjectMutator applies changes to the native project outside the plists.
type ProjectMutator interface {
	// SetBundleIdentifier writes the bundle identifier into the project file.
	SetBundleIdentifier(ctx context.Context, projectRoot, bundleID string) error

	// SetGoogleServicesFile copies ios.googleServicesFile into the native project.
	SetGoogleServicesFile(ctx context.Context, m *manifest.Manifest, projectRoot, nativeDir string) error

	// SetDeviceFamily writes the targeted device family.
	SetDeviceFamily(ctx context.Context, m *manifest.Manifest, projectRoot string) error
}

// AssetPlacer copies image and localization assets into the native project.
type AssetPlacer interface {
	PlaceIcons(ctx context.Context, m *manifest.Manifest, projectRoot, iconDir string) error
	PlaceSplashScreen(ctx context.Context, m *manifest.Manifest, projectRoot, nativeDir string) error
	PlaceLocales(ctx context.Context, m *manifest.Manifest, projectRoot, nativeDir string) error
}

// IdentityLookup returns the signed-in username, "" when anonymous.
type IdentityLookup interface {
	CurrentUsername(ctx context.Context) (string, error)
}

// TeamIDResolver supplies the Apple developer team identifier.
type TeamIDResolver interface {
	TeamID(ctx context.Context, m *manifest.Manifest) (string, error)
}

// Observer receives phase and warning notifications. It is how tracing and
// metrics attach to a run without the engine importing them.
type Observer interface {
	// PhaseStarted is called when a phase begins and returns a function
	// invoked with the phase outcome when it ends.
	PhaseStarted(ctx context.Context, phase Phase) (context.Context, func(err error))

	// WarningRecorded is called for each isolated failure.
	WarningRecorded(ctx context.Context, w Warning)
}
