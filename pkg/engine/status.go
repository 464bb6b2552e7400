package engine

import (
	"encoding/json"
	"fmt"
)

// Phase is a state of the apply orchestrator.
type Phase string

const (
	// PhasePending is the state before the run starts.
	PhasePending Phase = "pending"

	// PhaseResolveManifest loads the manifest and resolves native paths.
	PhaseResolveManifest Phase = "resolve_manifest"

	// PhaseMutateProjectFile writes the bundle identifier, Google services
	// file and device family.
	PhaseMutateProjectFile Phase = "mutate_project_file"

	// PhaseApplyInfoPlist runs the Info.plist pipeline.
	PhaseApplyInfoPlist Phase = "apply_info_plist"

	// PhaseApplyExpoPlist runs the Expo.plist pipeline inside an isolation boundary.
	PhaseApplyExpoPlist Phase = "apply_expo_plist"

	// PhaseApplyEntitlements runs the entitlements pipeline inside an isolation boundary.
	PhaseApplyEntitlements Phase = "apply_entitlements"

	// PhaseApplyAssets places icons, splash screen and locales.
	PhaseApplyAssets Phase = "apply_assets"

	// PhaseDone indicates the run completed.
	PhaseDone Phase = "done"

	// PhaseFailed indicates the run aborted on a non-isolated failure.
	PhaseFailed Phase = "failed"
)

// phaseOrder lists the working phases in execution order.
var phaseOrder = []Phase{
	PhaseResolveManifest,
	PhaseMutateProjectFile,
	PhaseApplyInfoPlist,
	PhaseApplyExpoPlist,
	PhaseApplyEntitlements,
	PhaseApplyAssets,
}

// Phases returns the working phases in execution order.
func Phases() []Phase {
	return append([]Phase(nil), phaseOrder...)
}

// IsTerminal returns true if the phase represents a final state.
func (p Phase) IsTerminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// IsIsolated returns true if failures in this phase become warnings.
func (p Phase) IsIsolated() bool {
	return p == PhaseApplyExpoPlist || p == PhaseApplyEntitlements
}

// CanTransition reports whether next may follow p. Working phases advance
// strictly in order; any non-terminal phase may fail.
func (p Phase) CanTransition(next Phase) bool {
	if p.IsTerminal() {
		return false
	}
	if next == PhaseFailed {
		return true
	}
	if p == PhasePending {
		return next == phaseOrder[0]
	}
	for i, phase := range phaseOrder {
		if phase != p {
			continue
		}
		if i == len(phaseOrder)-1 {
			return next == PhaseDone
		}
		return next == phaseOrder[i+1]
	}
	return false
}

// Validate checks if the phase is valid.
func (p Phase) Validate() error {
	switch p {
	case PhasePending, PhaseResolveManifest, PhaseMutateProjectFile,
		PhaseApplyInfoPlist, PhaseApplyExpoPlist, PhaseApplyEntitlements,
		PhaseApplyAssets, PhaseDone, PhaseFailed:
		return nil
	default:
		return fmt.Errorf("invalid phase: %s", p)
	}
}

// MarshalJSON implements custom JSON marshaling for type-safe enum serialization.
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(p))
}

// UnmarshalJSON implements custom JSON unmarshaling with validation.
func (p *Phase) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*p = Phase(str)
	return p.Validate()
}
