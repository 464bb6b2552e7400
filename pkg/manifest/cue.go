package manifest

import (
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// CUELoader evaluates app.cue manifests. The file may declare the manifest
// at the top level or under an `expo` field; constraints and defaults are
// resolved by CUE before the value is exported.
type CUELoader struct {
	ctx *cue.Context
}

// NewCUELoader creates a new CUE loader.
func NewCUELoader() *CUELoader {
	return &CUELoader{ctx: cuecontext.New()}
}

// LoadFile loads a single CUE file and returns the concrete manifest object.
func (cl *CUELoader) LoadFile(path string) (map[string]any, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return cl.LoadString(path, string(content))
}

// LoadString compiles CUE source and returns the concrete manifest object.
func (cl *CUELoader) LoadString(filename, source string) (map[string]any, error) {
	val := cl.ctx.CompileString(source, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile %s: %s", filename, formatCUEError(err))
	}

	if expo := val.LookupPath(cue.ParsePath("expo")); expo.Exists() {
		val = expo
	}

	if err := val.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("%s is not concrete: %s", filename, formatCUEError(err))
	}

	var out map[string]any
	if err := val.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, err)
	}
	return out, nil
}

// formatCUEError flattens CUE errors into "file:line:col: message" lines.
func formatCUEError(err error) string {
	var lines []string
	for _, e := range errors.Errors(err) {
		pos := errors.Positions(e)
		msg := errors.Details(e, nil)
		if len(pos) > 0 {
			msg = fmt.Sprintf("%s:%d:%d: %s", pos[0].Filename(), pos[0].Line(), pos[0].Column(), strings.TrimSpace(msg))
		}
		lines = append(lines, strings.TrimSpace(msg))
	}
	if len(lines) == 0 {
		return err.Error()
	}
	return strings.Join(lines, "; ")
}
