package plan

// Plan is a subscription tier determining model access, token/context
// ceilings and the monthly credit quota.
type Plan string

const (
	Free       Plan = "FREE"
	Starter    Plan = "STARTER"
	Pro        Plan = "PRO"
	Enterprise Plan = "ENTERPRISE"
	Trial      Plan = "TRIAL"
	Anonymous  Plan = "ANONYMOUS"
)

// Limits is immutable reference data for one tier. Never mutated at runtime.
type Limits struct {
	MaxTokensPerQuery  int
	MaxContextKB       int
	AvailableModels    []string
	DefaultModel       string
	MonthlyCreditQuota int
}

const (
	// AnonymousMaxTokens caps public widget turns regardless of the
	// chatbot's requested ceiling.
	AnonymousMaxTokens = 1000
	// AnonymousContextKB is the permissive placeholder context ceiling used
	// on the anonymous path, kept only for downstream logging symmetry.
	AnonymousContextKB = 1 << 20

	// MaxTemperature is the hallucination-safety ceiling for every turn.
	MaxTemperature = 1.5
	// ClampedTemperature is the value forced when a request exceeds the
	// ceiling. Exactly 1.0, not the ceiling itself.
	ClampedTemperature = 1.0
)

// safetySensitiveModels always run at temperature 1 regardless of the
// chatbot's requested value.
var safetySensitiveModels = map[string]bool{
	"gpt-5-nano":            true,
	"gemini-2.5-flash-lite": true,
}

// IsSafetySensitive reports whether the model's temperature is pinned to 1.
func IsSafetySensitive(model string) bool {
	return safetySensitiveModels[model]
}

// catalog is the static per-plan limit table. FREE keeps an empty model
// list: it has zero agent access and validation must hard-deny it upstream.
var catalog = map[Plan]Limits{
	Free: {
		MaxTokensPerQuery:  0,
		MaxContextKB:       0,
		AvailableModels:    nil,
		DefaultModel:       "",
		MonthlyCreditQuota: 0,
	},
	Starter: {
		MaxTokensPerQuery:  2000,
		MaxContextKB:       500,
		AvailableModels:    []string{"gpt-5-nano", "gemini-2.5-flash-lite"},
		DefaultModel:       "gemini-2.5-flash-lite",
		MonthlyCreditQuota: 200,
	},
	Pro: {
		MaxTokensPerQuery:  4000,
		MaxContextKB:       2000,
		AvailableModels:    []string{"gpt-5-nano", "gpt-5-mini", "gemini-2.5-flash-lite", "gemini-2.5-flash"},
		DefaultModel:       "gemini-2.5-flash",
		MonthlyCreditQuota: 1000,
	},
	Enterprise: {
		MaxTokensPerQuery:  8000,
		MaxContextKB:       10000,
		AvailableModels:    []string{"gpt-5-nano", "gpt-5-mini", "gpt-5", "gemini-2.5-flash-lite", "gemini-2.5-flash", "gemini-2.5-pro"},
		DefaultModel:       "gpt-5-mini",
		MonthlyCreditQuota: 5000,
	},
	Trial: {
		MaxTokensPerQuery:  4000,
		MaxContextKB:       2000,
		AvailableModels:    []string{"gpt-5-nano", "gpt-5-mini", "gemini-2.5-flash-lite", "gemini-2.5-flash"},
		DefaultModel:       "gemini-2.5-flash",
		MonthlyCreditQuota: 1000,
	},
}

// Lookup returns the limits for a plan. The second return is false for
// unrecognized plans and for ANONYMOUS, which bypasses plan lookups.
func Lookup(p Plan) (Limits, bool) {
	l, ok := catalog[p]
	return l, ok
}

// Known reports whether the plan exists in the catalog.
func Known(p Plan) bool {
	_, ok := catalog[p]
	return ok
}

// Quota returns the monthly credit quota for a plan, zero for unknown tiers.
func Quota(p Plan) int {
	return catalog[p].MonthlyCreditQuota
}

// IsPaid reports whether the plan receives the full tool catalog.
func IsPaid(p Plan) bool {
	switch p {
	case Pro, Enterprise, Trial:
		return true
	default:
		return false
	}
}
