package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prebuildkit/prebuild/pkg/manifest"
)

// Dependencies are the collaborators an Applier drives.
type Dependencies struct {
	Manifests ManifestResolver
	Documents DocumentStore
	Project   ProjectMutator
	Assets    AssetPlacer
	Identity  IdentityLookup
	Teams     TeamIDResolver
}

// Option configures an Applier.
type Option func(*Applier)

// WithLogger sets the applier logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Applier) {
		a.logger = logger
	}
}

// WithObserver attaches tracing or metrics to every run.
func WithObserver(observer Observer) Option {
	return func(a *Applier) {
		if observer != nil {
			a.observer = observer
		}
	}
}

// WithClock overrides the time source used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Applier) {
		a.now = now
	}
}

// Applier runs the iOS configuration phases against a project root.
// Phases run sequentially; only the Expo.plist and entitlements phases are
// isolated, every other failure aborts the run.
type Applier struct {
	deps     Dependencies
	logger   zerolog.Logger
	observer Observer
	now      func() time.Time
}

// NewApplier creates an applier.
func NewApplier(deps Dependencies, opts ...Option) *Applier {
	a := &Applier{
		deps:     deps,
		logger:   zerolog.Nop(),
		observer: noopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// run holds the state of one Apply invocation.
type run struct {
	root     string
	phase    Phase
	manifest *manifest.Manifest
	paths    Paths
	username string
	warnings *Warnings
	editor   *Editor
	logger   zerolog.Logger
}

func (r *run) advance(next Phase) error {
	if !r.phase.CanTransition(next) {
		return NewFatalError(fmt.Sprintf("invalid phase transition %s -> %s", r.phase, next), nil).
			WithCode(ErrCodeInvalidTransition)
	}
	r.phase = next
	return nil
}

type phaseFunc func(ctx context.Context, r *run) error

// Apply resolves the manifest for projectRoot and applies it to the native
// iOS project. The returned report is non-nil even when the run fails.
func (a *Applier) Apply(ctx context.Context, projectRoot string) (*Report, error) {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	report := &Report{
		RunID:       uuid.New(),
		ProjectRoot: root,
		StartedAt:   a.now(),
	}
	r := &run{
		root:     root,
		phase:    PhasePending,
		warnings: &Warnings{},
		logger:   a.logger.With().Str("run_id", report.RunID.String()).Logger(),
	}
	r.editor = NewEditor(a.deps.Documents, r.logger)

	phases := []struct {
		phase Phase
		fn    phaseFunc
	}{
		{PhaseResolveManifest, a.resolveManifest},
		{PhaseMutateProjectFile, a.mutateProjectFile},
		{PhaseApplyInfoPlist, a.applyInfoPlist},
		{PhaseApplyExpoPlist, a.applyExpoPlist},
		{PhaseApplyEntitlements, a.applyEntitlements},
		{PhaseApplyAssets, a.applyAssets},
	}

	r.logger.Info().Str("project_root", root).Msg("Starting apply")

	for _, p := range phases {
		if err := ctx.Err(); err != nil {
			return a.finish(report, r, NewFatalError("apply cancelled", err).
				WithCode(ErrCodeCancelled).
				WithOperation(string(p.phase)))
		}
		if err := r.advance(p.phase); err != nil {
			return a.finish(report, r, err)
		}

		r.logger.Info().Str("phase", string(p.phase)).Msg("Phase started")
		phaseCtx, end := a.observer.PhaseStarted(ctx, p.phase)
		err := p.fn(phaseCtx, r)
		end(err)
		if err != nil {
			return a.finish(report, r, fmt.Errorf("%s: %w", p.phase, err))
		}
	}

	if err := r.advance(PhaseDone); err != nil {
		return a.finish(report, r, err)
	}
	return a.finish(report, r, nil)
}

func (a *Applier) finish(report *Report, r *run, err error) (*Report, error) {
	if err != nil {
		r.phase = PhaseFailed
		report.Error = err.Error()
	}
	report.Phase = r.phase
	report.Paths = r.paths
	report.Warnings = r.warnings.List()
	report.Duration = a.now().Sub(report.StartedAt)

	event := r.logger.Info()
	if err != nil {
		event = r.logger.Error().Err(err)
	}
	event.Str("phase", string(report.Phase)).
		Int("warnings", len(report.Warnings)).
		Dur("duration", report.Duration).
		Msg("Apply finished")
	return report, err
}

func (a *Applier) resolveManifest(ctx context.Context, r *run) error {
	m, err := a.deps.Manifests.Resolve(ctx, r.root, manifest.Options{SkipVersionRequirement: true})
	if err != nil {
		return NewFatalError("failed to resolve manifest", err).
			WithCode(ErrCodeConfig).
			WithResource(r.root)
	}

	paths, err := ResolvePaths(r.root, m)
	if err != nil {
		return err
	}

	if m.BundleIdentifier() == "" {
		return NewFatalError(ErrMissingBundleIdentifier.Message, nil).
			WithCode(ErrCodeMissingBundleIdentifier).
			WithResource(r.root)
	}

	username, err := a.deps.Identity.CurrentUsername(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to read signed-in user, continuing anonymously")
		username = ""
	}

	r.manifest = m
	r.paths = paths
	r.username = username
	r.logger.Debug().
		Str("project_name", paths.ProjectName).
		Str("native_dir", paths.NativeProjectDirectory).
		Str("bundle_identifier", m.BundleIdentifier()).
		Msg("Resolved manifest")
	return nil
}

func (a *Applier) mutateProjectFile(ctx context.Context, r *run) error {
	m := r.manifest
	if err := a.deps.Project.SetBundleIdentifier(ctx, r.root, m.BundleIdentifier()); err != nil {
		return NewFatalError("failed to set bundle identifier", err).WithCode(ErrCodeProjectFile)
	}
	if err := r.editor.Edit(ctx, r.paths.NativeProjectDirectory, InfoPlistName, BundleIdentifierPipeline(m).Fold); err != nil {
		return err
	}
	if err := a.deps.Project.SetGoogleServicesFile(ctx, m, r.root, r.paths.NativeProjectDirectory); err != nil {
		return NewFatalError("failed to set Google services file", err).WithCode(ErrCodeProjectFile)
	}
	if err := a.deps.Project.SetDeviceFamily(ctx, m, r.root); err != nil {
		return NewFatalError("failed to set device family", err).WithCode(ErrCodeProjectFile)
	}
	return nil
}

func (a *Applier) applyInfoPlist(ctx context.Context, r *run) error {
	pipeline := InfoPlistPipeline(r.manifest)
	r.logger.Debug().Strs("steps", pipeline.Names()).Msg("Applying Info.plist")
	return r.editor.Edit(ctx, r.paths.NativeProjectDirectory, InfoPlistName, pipeline.Fold)
}

func (a *Applier) applyExpoPlist(ctx context.Context, r *run) error {
	spec := IsolationSpec{
		Platform: PlatformIOS,
		Tag:      TagUpdates,
		Message:  "Expo.plist configuration could not be applied. You will need to create Expo.plist if it does not exist and add Updates configuration manually.",
		DocLink:  UpdatesDocLink,
	}
	result := Isolate(ctx, r.warnings, spec, func(ctx context.Context) error {
		pipeline := ExpoPlistPipeline(r.manifest, r.username)
		return r.editor.Edit(ctx, r.paths.SupportingDirectory(), ExpoPlistName, pipeline.Fold)
	})
	a.reportIsolated(ctx, r, result)
	return nil
}

func (a *Applier) applyEntitlements(ctx context.Context, r *run) error {
	spec := IsolationSpec{
		Platform: PlatformIOS,
		Tag:      TagEntitlements,
		Message:  "iOS entitlements could not be applied. Please ensure that contact notes, Apple Sign In, and associated domains entitlements are properly configured if you use them in your app.",
	}
	result := Isolate(ctx, r.warnings, spec, func(ctx context.Context) error {
		var teamID string
		if r.manifest.IOSSection().UsesIcloudStorage {
			id, err := a.deps.Teams.TeamID(ctx, r.manifest)
			if err != nil {
				return fmt.Errorf("failed to resolve Apple team identifier: %w", err)
			}
			teamID = id
		}
		path := EntitlementsPath(r.paths)
		return r.editor.Edit(ctx, filepath.Dir(path), filepath.Base(path), EntitlementsPipeline(r.manifest, teamID).Fold)
	})
	a.reportIsolated(ctx, r, result)
	return nil
}

func (a *Applier) applyAssets(ctx context.Context, r *run) error {
	m := r.manifest
	if err := a.deps.Assets.PlaceIcons(ctx, m, r.root, r.paths.IconAssetDirectory); err != nil {
		return NewFatalError("failed to place icons", err).WithCode(ErrCodeAssets)
	}
	if err := a.deps.Assets.PlaceSplashScreen(ctx, m, r.root, r.paths.NativeProjectDirectory); err != nil {
		return NewFatalError("failed to place splash screen", err).WithCode(ErrCodeAssets)
	}
	if err := a.deps.Assets.PlaceLocales(ctx, m, r.root, r.paths.NativeProjectDirectory); err != nil {
		return NewFatalError("failed to place locales", err).WithCode(ErrCodeAssets)
	}
	return nil
}

func (a *Applier) reportIsolated(ctx context.Context, r *run, result IsolationResult) {
	if !result.Warned {
		return
	}
	list := r.warnings.List()
	w := list[len(list)-1]
	r.logger.Warn().Err(result.Err).Str("tag", w.Tag).Str("phase", string(r.phase)).Msg("Isolated failure")
	a.observer.WarningRecorded(ctx, w)
}

type noopObserver struct{}

func (noopObserver) PhaseStarted(ctx context.Context, _ Phase) (context.Context, func(error)) {
	return ctx, func(error) {}
}

func (noopObserver) WarningRecorded(context.Context, Warning) {}
