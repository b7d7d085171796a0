package runner

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openai "github.com/sashabaranov/go-openai"

	"github.com/blissito/formmy-agent-core/internal/agent/resolver"
	logx "github.com/blissito/formmy-agent-core/pkg/logger"
)

// openAIChatModel adapts the OpenAI client to the ChatModel contract the
// turn loop runs against, so GPT-family models plug into the same loop as
// Gemini ones.
type openAIChatModel struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	tools       []openai.Tool
}

func newOpenAIChatModel(client *openai.Client, cfg *resolver.ResolvedConfig) *openAIChatModel {
	return &openAIChatModel{
		client:      client,
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
	}
}

func (m *openAIChatModel) BindTools(tools []*schema.ToolInfo) error {
	converted := make([]openai.Tool, 0, len(tools))
	for _, ti := range tools {
		params, err := ti.ParamsOneOf.ToOpenAPIV3()
		if err != nil {
			return fmt.Errorf("convert tool %q parameters: %w", ti.Name, err)
		}
		converted = append(converted, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ti.Name,
				Description: ti.Desc,
				Parameters:  params,
			},
		})
	}
	m.tools = converted
	return nil
}

func (m *openAIChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	resp, err := m.client.CreateChatCompletion(ctx, m.request(input, false))
	if err != nil {
		return nil, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai completion: empty choices")
	}
	return fromOpenAIMessage(resp.Choices[0].Message), nil
}

func (m *openAIChatModel) Stream(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	stream, err := m.client.CreateChatCompletionStream(ctx, m.request(input, true))
	if err != nil {
		return nil, fmt.Errorf("openai stream: %w", err)
	}

	sr, sw := schema.Pipe[*schema.Message](8)
	go func() {
		defer sw.Close()
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if err == io.EOF {
				return
			}
			if err != nil {
				sw.Send(nil, fmt.Errorf("openai stream: %w", err))
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if closed := sw.Send(fromOpenAIDelta(resp.Choices[0].Delta), nil); closed {
				return
			}
		}
	}()
	return sr, nil
}

func (m *openAIChatModel) request(input []*schema.Message, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(input))
	for _, msg := range input {
		messages = append(messages, toOpenAIMessage(msg))
	}
	return openai.ChatCompletionRequest{
		Model:       m.model,
		Messages:    messages,
		Temperature: m.temperature,
		MaxTokens:   m.maxTokens,
		Tools:       m.tools,
		Stream:      stream,
	}
}

func toOpenAIMessage(msg *schema.Message) openai.ChatCompletionMessage {
	out := openai.ChatCompletionMessage{
		Role:       string(msg.Role),
		Content:    msg.Content,
		Name:       msg.Name,
		ToolCallID: msg.ToolCallID,
	}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, openai.ToolCall{
			Index: tc.Index,
			ID:    tc.ID,
			Type:  openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return out
}

func fromOpenAIMessage(msg openai.ChatCompletionMessage) *schema.Message {
	out := &schema.Message{
		Role:    schema.Assistant,
		Content: msg.Content,
	}
	out.ToolCalls = fromOpenAIToolCalls(msg.ToolCalls)
	return out
}

func fromOpenAIDelta(delta openai.ChatCompletionStreamChoiceDelta) *schema.Message {
	out := &schema.Message{
		Role:    schema.Assistant,
		Content: delta.Content,
	}
	out.ToolCalls = fromOpenAIToolCalls(delta.ToolCalls)
	return out
}

func fromOpenAIToolCalls(calls []openai.ToolCall) []schema.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]schema.ToolCall, 0, len(calls))
	for _, tc := range calls {
		if tc.Type != "" && tc.Type != openai.ToolTypeFunction {
			logx.Warn().Str("type", string(tc.Type)).Msg("Skipping unsupported tool call type")
			continue
		}
		out = append(out, schema.ToolCall{
			Index: tc.Index,
			ID:    tc.ID,
			Type:  string(openai.ToolTypeFunction),
			Function: schema.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return out
}
