package resolver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blissito/formmy-agent-core/internal/chatbot"
	"github.com/blissito/formmy-agent-core/internal/plan"
)

func proBot() *chatbot.Definition {
	return &chatbot.Definition{
		ID:          "bot-1",
		AIModel:     "gemini-2.5-flash",
		Temperature: 0.7,
		MaxTokens:   2000,
	}
}

func TestResolveTemperatureClampAboveCeiling(t *testing.T) {
	bot := proBot()
	bot.Temperature = 1.9

	cfg := Resolve(bot, Caller{UserID: "u1", Plan: plan.Pro})

	// Clamped to exactly 1.0, not to the 1.5 ceiling.
	assert.Equal(t, 1.0, cfg.Temperature)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "temperature")
}

func TestResolveTemperatureAtCeilingIsKept(t *testing.T) {
	bot := proBot()
	bot.Temperature = 1.5

	cfg := Resolve(bot, Caller{Plan: plan.Pro})

	assert.Equal(t, 1.5, cfg.Temperature)
	assert.Empty(t, cfg.Warnings)
}

func TestResolveSafetySensitiveModelPinsTemperature(t *testing.T) {
	bot := proBot()
	bot.AIModel = "gemini-2.5-flash-lite"
	bot.Temperature = 0.3

	cfg := Resolve(bot, Caller{Plan: plan.Pro})

	assert.Equal(t, 1.0, cfg.Temperature)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "forced to 1")
}

func TestResolveSafetyPinOverridesClamp(t *testing.T) {
	// Above the ceiling AND safety-sensitive: both clamps fire, the pin wins
	// (trivially, both land on 1 here, but both warnings must be present).
	bot := proBot()
	bot.AIModel = "gpt-5-nano"
	bot.Temperature = 2.0

	cfg := Resolve(bot, Caller{Plan: plan.Pro})

	assert.Equal(t, 1.0, cfg.Temperature)
	require.Len(t, cfg.Warnings, 2)
	assert.Contains(t, cfg.Warnings[0], "reduced")
	assert.Contains(t, cfg.Warnings[1], "forced to 1")
}

func TestResolveModelCorrection(t *testing.T) {
	bot := proBot()
	bot.AIModel = "gpt-5" // Enterprise-only

	cfg := Resolve(bot, Caller{Plan: plan.Starter})

	assert.Equal(t, "gemini-2.5-flash-lite", cfg.Model)
	found := false
	for _, w := range cfg.Warnings {
		if strings.Contains(w, "not available on plan") {
			found = true
		}
	}
	assert.True(t, found, "expected a model correction warning, got %v", cfg.Warnings)
}

func TestResolveMaxTokensClampedToPlanLimit(t *testing.T) {
	bot := proBot()
	bot.MaxTokens = 99999

	cfg := Resolve(bot, Caller{Plan: plan.Pro})

	assert.Equal(t, 4000, cfg.MaxTokens)
	require.Len(t, cfg.Warnings, 1)
}

func TestResolveMaxTokensDefaultsToPlanLimit(t *testing.T) {
	bot := proBot()
	bot.MaxTokens = 0

	cfg := Resolve(bot, Caller{Plan: plan.Starter})

	assert.Equal(t, 2000, cfg.MaxTokens)
}

func TestResolveAnonymousTokenCap(t *testing.T) {
	bot := proBot()
	bot.MaxTokens = 4000

	cfg := Resolve(bot, Caller{Plan: plan.Anonymous})

	assert.Equal(t, plan.AnonymousMaxTokens, cfg.MaxTokens)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "anonymous")
}

func TestResolveAnonymousKeepsAllContexts(t *testing.T) {
	bot := proBot()
	bot.Contexts = []chatbot.ContextItem{
		{Title: "a", SizeKB: 5000},
		{Title: "b", SizeKB: 5000},
	}

	cfg := Resolve(bot, Caller{Plan: plan.Anonymous})

	assert.Len(t, cfg.Contexts, 2)
}

func TestResolveUnknownPlanFallsBackToAnonymous(t *testing.T) {
	bot := proBot()
	bot.MaxTokens = 4000

	cfg := Resolve(bot, Caller{Plan: plan.Plan("LEGACY_GOLD")})

	// Anonymous path: token cap applies, model kept as requested.
	assert.Equal(t, plan.AnonymousMaxTokens, cfg.MaxTokens)
	assert.Equal(t, "gemini-2.5-flash", cfg.Model)
}

func TestResolveContextTruncationKeepsPrefix(t *testing.T) {
	bot := proBot()
	bot.Contexts = []chatbot.ContextItem{
		{Title: "first", SizeKB: 300},
		{Title: "second", SizeKB: 150},
		{Title: "third", SizeKB: 100}, // 550 cumulative, over the 500KB Starter cap
		{Title: "fourth", SizeKB: 10}, // would fit alone, but order wins
	}

	cfg := Resolve(bot, Caller{Plan: plan.Starter})

	require.Len(t, cfg.Contexts, 2)
	assert.Equal(t, "first", cfg.Contexts[0].Title)
	assert.Equal(t, "second", cfg.Contexts[1].Title)
}

func TestResolveContextWithinLimitUntouched(t *testing.T) {
	bot := proBot()
	bot.Contexts = []chatbot.ContextItem{
		{Title: "first", SizeKB: 200},
		{Title: "second", SizeKB: 200},
	}

	cfg := Resolve(bot, Caller{Plan: plan.Pro})

	assert.Len(t, cfg.Contexts, 2)
	assert.Empty(t, cfg.Warnings)
}

func TestResolveStringFallbacks(t *testing.T) {
	bot := proBot()

	cfg := Resolve(bot, Caller{Plan: plan.Pro})

	assert.Equal(t, defaultInstructions, cfg.Instructions)
	assert.Equal(t, defaultPersonality, cfg.Personality)
	assert.Equal(t, defaultWelcome, cfg.WelcomeMessage)
	assert.Equal(t, defaultGoodbye, cfg.GoodbyeMessage)
}

func TestResolveKeepsCustomStrings(t *testing.T) {
	bot := proBot()
	bot.Instructions = "You sell tacos."
	bot.Personality = "cheerful"

	cfg := Resolve(bot, Caller{Plan: plan.Pro})

	assert.Equal(t, "You sell tacos.", cfg.Instructions)
	assert.Equal(t, "cheerful", cfg.Personality)
}

func TestResolveZeroTemperatureGetsDefault(t *testing.T) {
	bot := proBot()
	bot.Temperature = 0

	cfg := Resolve(bot, Caller{Plan: plan.Pro})

	assert.Equal(t, defaultTemperature, cfg.Temperature)
}
