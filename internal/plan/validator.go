package plan

import "slices"

// ValidationResult is the outcome of checking a requested model against a
// plan's allow-list.
type ValidationResult struct {
	IsValid bool
	// CorrectedModel carries the plan default when the requested model is
	// not allowed. Empty for FREE, which must be denied, not corrected.
	CorrectedModel string
}

// Validate checks whether a plan may run the requested model.
//
// FREE always comes back invalid with no correction: the tier has zero agent
// access and the caller must surface a hard deny. ANONYMOUS is always valid;
// public widgets skip plan validation and rely on the resolver's safety
// clamps. Every other recognized plan gets a membership check with the plan
// default as the correction.
func Validate(p Plan, requestedModel string) ValidationResult {
	if p == Free {
		return ValidationResult{IsValid: false}
	}
	if p == Anonymous {
		return ValidationResult{IsValid: true}
	}

	limits, ok := Lookup(p)
	if !ok {
		return ValidationResult{IsValid: false}
	}

	if slices.Contains(limits.AvailableModels, requestedModel) {
		return ValidationResult{IsValid: true}
	}
	return ValidationResult{IsValid: false, CorrectedModel: limits.DefaultModel}
}
