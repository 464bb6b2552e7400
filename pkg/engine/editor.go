package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/prebuildkit/prebuild/pkg/plist"
)

// Transform turns one document state into the next.
type Transform func(ctx context.Context, doc plist.Document) (plist.Document, error)

// Editor performs a single backed-up edit of one document: open, transform,
// write, and release the backup on every exit path.
type Editor struct {
	store  DocumentStore
	logger zerolog.Logger
}

// NewEditor creates an editor over store.
func NewEditor(store DocumentStore, logger zerolog.Logger) *Editor {
	return &Editor{
		store:  store,
		logger: logger.With().Str("component", "editor").Logger(),
	}
}

// Edit opens dir/name, applies transform and writes the result back in the
// document's original format. Once the document is open its backup is
// cleaned up exactly once, whether the transform or write succeeds, fails
// or panics. Cleanup failures are logged and never replace the edit's error.
func (e *Editor) Edit(ctx context.Context, dir, name string, transform Transform) error {
	doc, err := e.acquire(dir, name)
	if err != nil {
		return err
	}
	err = e.run(ctx, dir, name, doc, transform)
	e.release(dir, name)
	return err
}

func (e *Editor) acquire(dir, name string) (plist.Document, error) {
	doc, err := e.store.Open(dir, name)
	if err != nil {
		return nil, NewFatalError("failed to open document", err).
			WithCode(ErrCodeDocument).
			WithResource(filepath.Join(dir, name))
	}
	e.logger.Debug().Str("dir", dir).Str("document", name).Msg("Opened document")
	return doc, nil
}

func (e *Editor) run(ctx context.Context, dir, name string, doc plist.Document, transform Transform) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewFatalError("transform panicked", fmt.Errorf("%v", r)).
				WithCode(ErrCodeTransform).
				WithResource(filepath.Join(dir, name))
		}
	}()

	result, err := transform(ctx, doc)
	if err != nil {
		return NewFatalError("failed to transform document", err).
			WithCode(ErrCodeTransform).
			WithResource(filepath.Join(dir, name))
	}
	if result == nil {
		return NewFatalError("transform returned no document", errors.New("nil document")).
			WithCode(ErrCodeTransform).
			WithResource(filepath.Join(dir, name))
	}

	if err := e.store.Write(dir, name, result); err != nil {
		return NewFatalError("failed to write document", err).
			WithCode(ErrCodeDocument).
			WithResource(filepath.Join(dir, name))
	}
	e.logger.Debug().Str("dir", dir).Str("document", name).Int("keys", len(result)).Msg("Wrote document")
	return nil
}

func (e *Editor) release(dir, name string) {
	if err := e.store.CleanupBackup(dir, name, false); err != nil {
		cleanupErr := NewBestEffortError("failed to remove document backup", err).
			WithResource(filepath.Join(dir, name))
		e.logger.Warn().Err(cleanupErr).Str("error_class", string(cleanupErr.Class)).Msg("Backup cleanup failed")
	}
}
