package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/blissito/formmy-agent-core/internal/agent/resolver"
	logx "github.com/blissito/formmy-agent-core/pkg/logger"
)

// Provider identifies which upstream LLM serves a model name.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// ProviderFor maps a model name to its provider. Resolution happens once at
// configuration time; the turn loop never re-inspects the model string.
func ProviderFor(modelName string) Provider {
	if strings.HasPrefix(modelName, "gpt-") || strings.HasPrefix(modelName, "o1") {
		return ProviderOpenAI
	}
	return ProviderGemini
}

// ChatModel is the slice of a chat model the turn loop needs: tool binding
// plus one-shot and streamed generation.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
	Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error)
	BindTools(tools []*schema.ToolInfo) error
}

// ModelBuilder produces the chat model for one turn.
type ModelBuilder interface {
	New(ctx context.Context, cfg *resolver.ResolvedConfig) (ChatModel, error)
}

// FactoryConfig holds provider credentials, sourced from the environment.
type FactoryConfig struct {
	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL"`
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
}

// ModelFactory builds a ChatModel per turn from a resolved configuration.
// Clients are created once and shared; the per-turn cost is one lightweight
// model wrapper carrying the turn's temperature and token cap.
type ModelFactory struct {
	gemini *genai.Client
	openai *openai.Client
}

// NewModelFactory initializes the provider clients. A provider with no API
// key is left nil and rejected at build time, so a Gemini-only deployment
// needs no OpenAI credentials.
func NewModelFactory(ctx context.Context, cfg FactoryConfig) (*ModelFactory, error) {
	f := &ModelFactory{}

	if cfg.GeminiAPIKey != "" {
		clientCfg := &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		}
		if cfg.GeminiBaseURL != "" {
			clientCfg.HTTPOptions.BaseURL = cfg.GeminiBaseURL
		}
		client, err := genai.NewClient(ctx, clientCfg)
		if err != nil {
			logx.Error().Err(err).Msg("Error creating Gemini client")
			return nil, fmt.Errorf("error creating Gemini client: %w", err)
		}
		f.gemini = client
	}

	if cfg.OpenAIAPIKey != "" {
		occ := openai.DefaultConfig(cfg.OpenAIAPIKey)
		if cfg.OpenAIBaseURL != "" {
			occ.BaseURL = cfg.OpenAIBaseURL
		}
		f.openai = openai.NewClientWithConfig(occ)
	}

	if f.gemini == nil && f.openai == nil {
		return nil, fmt.Errorf("no LLM provider configured")
	}
	return f, nil
}

// New builds the chat model for one turn.
func (f *ModelFactory) New(ctx context.Context, cfg *resolver.ResolvedConfig) (ChatModel, error) {
	switch ProviderFor(cfg.Model) {
	case ProviderOpenAI:
		if f.openai == nil {
			return nil, fmt.Errorf("model %q requires an OpenAI API key", cfg.Model)
		}
		return newOpenAIChatModel(f.openai, cfg), nil
	default:
		if f.gemini == nil {
			return nil, fmt.Errorf("model %q requires a Gemini API key", cfg.Model)
		}
		temperature := float32(cfg.Temperature)
		maxTokens := cfg.MaxTokens
		cm, err := gemini.NewChatModel(ctx, &gemini.Config{
			Client:      f.gemini,
			Model:       cfg.Model,
			Temperature: &temperature,
			MaxTokens:   &maxTokens,
		})
		if err != nil {
			logx.Error().Err(err).Str("model", cfg.Model).Msg("Error creating Gemini chat model")
			return nil, fmt.Errorf("error creating Gemini chat model: %w", err)
		}
		return cm, nil
	}
}
