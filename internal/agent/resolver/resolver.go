package resolver

import (
	"fmt"

	"github.com/blissito/formmy-agent-core/internal/chatbot"
	"github.com/blissito/formmy-agent-core/internal/plan"
	logx "github.com/blissito/formmy-agent-core/pkg/logger"
)

// Caller identifies who is asking for this turn. Plan ANONYMOUS marks a
// public widget visitor with no account.
type Caller struct {
	UserID string
	Plan   plan.Plan
}

// ResolvedConfig is the final, safety-clamped execution configuration for
// one chat turn. Built once per turn and never mutated afterwards.
type ResolvedConfig struct {
	Model              string
	Temperature        float64
	MaxTokens          int
	Instructions       string
	CustomInstructions string
	Personality        string
	WelcomeMessage     string
	GoodbyeMessage     string
	Contexts           []chatbot.ContextItem
	PlanLimits         plan.Limits

	// Warnings describes every clamp that was applied. Advisory metadata,
	// never surfaced as errors: the resolver always returns a usable config.
	Warnings []string
}

const (
	defaultInstructions = "You are a helpful assistant for this business. Answer questions using the provided context and stay on topic."
	defaultPersonality  = "friendly"
	defaultWelcome      = "Hi! How can I help you today?"
	defaultGoodbye      = "Thanks for chatting with us!"
	defaultTemperature  = 0.7
)

// Resolve produces the execution configuration for one turn. It never
// fails: unknown plans degrade to the anonymous path, disallowed values are
// clamped with a warning, and empty prompt fields fall back to defaults.
func Resolve(bot *chatbot.Definition, caller Caller) *ResolvedConfig {
	if caller.Plan == plan.Anonymous {
		return resolveAnonymous(bot)
	}

	limits, ok := plan.Lookup(caller.Plan)
	if !ok {
		// Degraded-but-available beats a hard error here: treat the caller
		// as anonymous and keep the safety clamps.
		logx.Warn().
			Str("plan", string(caller.Plan)).
			Str("chatbot_id", bot.ID).
			Msg("Unrecognized plan, falling back to anonymous resolution")
		return resolveAnonymous(bot)
	}

	cfg := &ResolvedConfig{
		Model:      bot.AIModel,
		PlanLimits: limits,
	}

	// Model allow-list check. FREE reaches here only if the caller skipped
	// the authorization gate; it still ends up on an empty default, which
	// the runner refuses to build.
	result := plan.Validate(caller.Plan, bot.AIModel)
	if !result.IsValid && result.CorrectedModel != "" {
		cfg.warnf("model %q is not available on plan %s, using %s", bot.AIModel, caller.Plan, result.CorrectedModel)
		cfg.Model = result.CorrectedModel
	}

	cfg.Temperature = clampTemperature(cfg, bot.Temperature, cfg.Model)

	requested := bot.MaxTokens
	if requested <= 0 {
		requested = limits.MaxTokensPerQuery
	}
	cfg.MaxTokens = requested
	if requested > limits.MaxTokensPerQuery {
		cfg.warnf("max tokens reduced from %d to plan limit %d", requested, limits.MaxTokensPerQuery)
		cfg.MaxTokens = limits.MaxTokensPerQuery
	}

	cfg.Contexts = truncateContexts(cfg, bot.Contexts, limits.MaxContextKB)

	applyStringFallbacks(cfg, bot)

	logx.Debug().
		Str("chatbot_id", bot.ID).
		Str("plan", string(caller.Plan)).
		Str("model", cfg.Model).
		Float64("temperature", cfg.Temperature).
		Int("max_tokens", cfg.MaxTokens).
		Int("contexts", len(cfg.Contexts)).
		Int("warnings", len(cfg.Warnings)).
		Msg("Resolved agent config")

	return cfg
}

// resolveAnonymous skips plan lookups entirely but still applies the
// temperature and token safety clamps. This path is the last line of
// defense for publicly embedded widgets and must never be skipped.
func resolveAnonymous(bot *chatbot.Definition) *ResolvedConfig {
	cfg := &ResolvedConfig{
		Model: bot.AIModel,
		// Permissive placeholder limits, kept for downstream logging symmetry.
		PlanLimits: plan.Limits{
			MaxTokensPerQuery: plan.AnonymousMaxTokens,
			MaxContextKB:      plan.AnonymousContextKB,
			AvailableModels:   []string{bot.AIModel},
			DefaultModel:      bot.AIModel,
		},
	}

	cfg.Temperature = clampTemperature(cfg, bot.Temperature, bot.AIModel)

	requested := bot.MaxTokens
	if requested <= 0 {
		requested = plan.AnonymousMaxTokens
	}
	cfg.MaxTokens = requested
	if requested > plan.AnonymousMaxTokens {
		cfg.warnf("max tokens reduced from %d to %d for anonymous access", requested, plan.AnonymousMaxTokens)
		cfg.MaxTokens = plan.AnonymousMaxTokens
	}

	// Public widgets get the full context set; there is no plan ceiling to
	// enforce here.
	cfg.Contexts = append([]chatbot.ContextItem(nil), bot.Contexts...)

	applyStringFallbacks(cfg, bot)

	return cfg
}

// clampTemperature applies the hallucination-safety clamp first, then the
// safety-sensitive model pin, which overrides any earlier clamp result.
// The pin warning keys off the requested value, not the clamped one, so a
// clamp that already landed on 1 still reports the pin.
func clampTemperature(cfg *ResolvedConfig, requested float64, model string) float64 {
	t := requested
	if t <= 0 {
		t = defaultTemperature
	}
	if t > plan.MaxTemperature {
		cfg.warnf("temperature reduced from %g to %g", requested, plan.ClampedTemperature)
		t = plan.ClampedTemperature
	}
	if plan.IsSafetySensitive(model) {
		if requested != 1 {
			cfg.warnf("temperature forced to 1 for model %s", model)
		}
		t = 1
	}
	return t
}

// truncateContexts keeps the longest prefix of the ordered context list
// whose cumulative size stays within the ceiling. Earlier items win.
func truncateContexts(cfg *ResolvedConfig, items []chatbot.ContextItem, maxKB int) []chatbot.ContextItem {
	total := 0
	for _, item := range items {
		total += item.SizeKB
	}
	if total <= maxKB {
		return append([]chatbot.ContextItem(nil), items...)
	}

	kept := make([]chatbot.ContextItem, 0, len(items))
	used := 0
	for _, item := range items {
		if used+item.SizeKB > maxKB {
			break
		}
		used += item.SizeKB
		kept = append(kept, item)
	}
	cfg.warnf("context trimmed from %dKB to %dKB (%d of %d items kept)", total, used, len(kept), len(items))
	return kept
}

func applyStringFallbacks(cfg *ResolvedConfig, bot *chatbot.Definition) {
	cfg.Instructions = fallback(bot.Instructions, defaultInstructions)
	cfg.CustomInstructions = bot.CustomInstructions
	cfg.Personality = fallback(bot.Personality, defaultPersonality)
	cfg.WelcomeMessage = fallback(bot.WelcomeMessage, defaultWelcome)
	cfg.GoodbyeMessage = fallback(bot.GoodbyeMessage, defaultGoodbye)
}

func fallback(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (c *ResolvedConfig) warnf(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}
