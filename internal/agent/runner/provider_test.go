package runner

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderFor(t *testing.T) {
	assert.Equal(t, ProviderOpenAI, ProviderFor("gpt-5-nano"))
	assert.Equal(t, ProviderOpenAI, ProviderFor("gpt-5"))
	assert.Equal(t, ProviderGemini, ProviderFor("gemini-2.5-flash"))
	assert.Equal(t, ProviderGemini, ProviderFor("gemini-2.5-flash-lite"))
	// Unknown names default to Gemini, the platform's primary provider.
	assert.Equal(t, ProviderGemini, ProviderFor("mystery-model"))
}

func TestToOpenAIMessageRoles(t *testing.T) {
	msg := toOpenAIMessage(schema.SystemMessage("be nice"))
	assert.Equal(t, "system", msg.Role)
	assert.Equal(t, "be nice", msg.Content)

	msg = toOpenAIMessage(schema.UserMessage("hi"))
	assert.Equal(t, "user", msg.Role)

	msg = toOpenAIMessage(schema.ToolMessage(`{"ok":true}`, "call-1"))
	assert.Equal(t, "tool", msg.Role)
	assert.Equal(t, "call-1", msg.ToolCallID)
}

func TestToOpenAIMessageCarriesToolCalls(t *testing.T) {
	msg := toOpenAIMessage(schema.AssistantMessage("", []schema.ToolCall{{
		ID:       "call-1",
		Function: schema.FunctionCall{Name: "web_search", Arguments: `{"query":"x"}`},
	}}))

	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "call-1", msg.ToolCalls[0].ID)
	assert.Equal(t, "web_search", msg.ToolCalls[0].Function.Name)
	assert.Equal(t, openai.ToolTypeFunction, msg.ToolCalls[0].Type)
}

func TestFromOpenAIToolCalls(t *testing.T) {
	idx := 0
	calls := fromOpenAIToolCalls([]openai.ToolCall{{
		Index:    &idx,
		ID:       "call-9",
		Type:     openai.ToolTypeFunction,
		Function: openai.FunctionCall{Name: "save_lead", Arguments: `{"name":"Ana"}`},
	}})

	require.Len(t, calls, 1)
	assert.Equal(t, "call-9", calls[0].ID)
	assert.Equal(t, "save_lead", calls[0].Function.Name)
	require.NotNil(t, calls[0].Index)
	assert.Equal(t, 0, *calls[0].Index)
}

func TestFromOpenAIDeltaText(t *testing.T) {
	msg := fromOpenAIDelta(openai.ChatCompletionStreamChoiceDelta{Content: "hel"})
	assert.Equal(t, schema.Assistant, msg.Role)
	assert.Equal(t, "hel", msg.Content)
	assert.Empty(t, msg.ToolCalls)
}
