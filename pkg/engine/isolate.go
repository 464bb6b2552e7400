package engine

import (
	"context"
	"fmt"
)

// Isolation tags and documentation links.
const (
	TagUpdates      = "updates"
	TagEntitlements = "entitlements"

	UpdatesDocLink = "https://docs.expo.io/bare/updating-your-app/#configuration-options"
)

// IsolationSpec describes the warning raised when an isolated block fails.
type IsolationSpec struct {
	Platform string
	Tag      string
	Message  string
	DocLink  string
}

// IsolationResult reports what happened inside an isolation boundary.
// The caller always continues; Err is kept for logging and metrics and is
// classified ErrorClassIsolated.
type IsolationResult struct {
	Err    error
	Warned bool
}

// Isolate runs fn and converts its failure, or a panic, into exactly one
// warning appended to warnings. Success appends nothing.
func Isolate(ctx context.Context, warnings *Warnings, spec IsolationSpec, fn func(context.Context) error) IsolationResult {
	err := runIsolated(ctx, fn)
	if err == nil {
		return IsolationResult{}
	}

	message := err.Error()
	if spec.Message != "" {
		message = spec.Message + " " + message
	}
	platform := spec.Platform
	if platform == "" {
		platform = PlatformIOS
	}
	warnings.Add(Warning{
		Platform: platform,
		Tag:      spec.Tag,
		Message:  message,
		DocLink:  spec.DocLink,
	})
	return IsolationResult{
		Err:    NewIsolatedError(spec.Message, err).WithOperation(spec.Tag),
		Warned: true,
	}
}

func runIsolated(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
