package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/blissito/formmy-agent-core/internal/agent/prompts"
	"github.com/blissito/formmy-agent-core/internal/agent/resolver"
	"github.com/blissito/formmy-agent-core/internal/agent/tools"
	"github.com/blissito/formmy-agent-core/internal/conversation"
	logx "github.com/blissito/formmy-agent-core/pkg/logger"
)

const (
	defaultMaxToolRounds = 5
	defaultTurnTimeout   = 2 * time.Minute

	userFacingError = "Something went wrong while answering. Please try again."
)

// Request is everything one chat turn needs: the resolved model
// configuration, the turn's tool context, and the visitor message.
type Request struct {
	ConversationID string
	Message        string
	Config         *resolver.ResolvedConfig
	Tools          *tools.Context
}

// Runner drives one agent turn: it streams model output, executes tool
// calls between model rounds, persists the transcript, and reports
// progress as an event stream.
type Runner struct {
	registry      *tools.Registry
	repo          conversation.Repository
	models        ModelBuilder
	maxToolRounds int
	turnTimeout   time.Duration
}

// Option customizes a Runner.
type Option func(*Runner)

// WithMaxToolRounds caps how many model rounds may request tools in one
// turn before the runner forces a final answer.
func WithMaxToolRounds(n int) Option {
	return func(r *Runner) { r.maxToolRounds = n }
}

// WithTurnTimeout bounds the wall-clock time of one full turn.
func WithTurnTimeout(d time.Duration) Option {
	return func(r *Runner) { r.turnTimeout = d }
}

func New(registry *tools.Registry, repo conversation.Repository, models ModelBuilder, opts ...Option) *Runner {
	r := &Runner{
		registry:      registry,
		repo:          repo,
		models:        models,
		maxToolRounds: defaultMaxToolRounds,
		turnTimeout:   defaultTurnTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one turn and returns its event stream. The stream always
// terminates with a done or an error event, whatever happens inside,
// including panics in tool handlers or provider adapters.
func (r *Runner) Run(ctx context.Context, req *Request) <-chan Event {
	events := make(chan Event, 16)

	go func() {
		defer close(events)
		defer func() {
			if rec := recover(); rec != nil {
				logx.Error().
					Any("panic", rec).
					Str("conversation_id", req.ConversationID).
					Msg("Turn panicked")
				events <- errorEvent(userFacingError)
			}
		}()

		ctx, cancel := context.WithTimeout(ctx, r.turnTimeout)
		defer cancel()

		r.run(ctx, req, events)
	}()

	return events
}

func (r *Runner) run(ctx context.Context, req *Request, events chan<- Event) {
	if req.Config == nil || req.Config.Model == "" {
		events <- errorEvent("AI chat is not available on this plan.")
		return
	}

	set := r.registry.ToolsFor(req.Tools.Plan, req.Tools.Integrations, req.Tools.IsPlatformAssistant())

	cm, err := r.models.New(ctx, req.Config)
	if err != nil {
		logx.Error().Err(err).Str("model", req.Config.Model).Msg("Chat model construction failed")
		events <- errorEvent(userFacingError)
		return
	}
	if len(set) > 0 {
		if err := cm.BindTools(tools.Infos(set)); err != nil {
			logx.Error().Err(err).Msg("Tool binding failed")
			events <- errorEvent(userFacingError)
			return
		}
	}

	msgs, err := r.assembleMessages(ctx, req)
	if err != nil {
		logx.Error().Err(err).Str("conversation_id", req.ConversationID).Msg("Turn setup failed")
		events <- errorEvent(userFacingError)
		return
	}

	var (
		toolsUsed []string
		final     *schema.Message
		// Whether the model produced any visible text after the last tool
		// round. Decides the fallback acknowledgement below.
		textAfterTools bool
	)

	for round := 0; ; round++ {
		full, streamedText, err := r.streamRound(ctx, cm, msgs, events)
		if err != nil {
			logx.Error().
				Err(err).
				Str("conversation_id", req.ConversationID).
				Int("round", round).
				Msg("Model round failed")
			events <- errorEvent(userFacingError)
			return
		}

		msgs = append(msgs, full)
		if len(toolsUsed) > 0 && streamedText {
			textAfterTools = true
		}

		if len(full.ToolCalls) == 0 {
			final = full
			break
		}

		if round >= r.maxToolRounds {
			logx.Warn().
				Str("conversation_id", req.ConversationID).
				Int("rounds", round).
				Msg("Tool round budget exhausted, forcing final answer")
			final = full
			break
		}

		for _, call := range full.ToolCalls {
			// Resolve against the gated set first: a hallucinated or
			// gated-out tool gets neither a tool-start event nor a slot in
			// toolsUsed, keeping the done counter equal to the tool-start
			// count on the stream. The model still receives an error payload.
			tool, found := tools.Find(set, call.Function.Name)
			if !found {
				logx.Warn().
					Str("tool_name", call.Function.Name).
					Str("plan", string(req.Tools.Plan)).
					Msg("Model requested a tool outside the resolved set")
				payload := fmt.Sprintf(`{"success":false,"message":"tool %q is not available"}`, call.Function.Name)
				msgs = append(msgs, schema.ToolMessage(payload, call.ID))
				continue
			}

			events <- toolStartEvent(call.Function.Name)
			msgs = append(msgs, schema.ToolMessage(r.runTool(ctx, tool, call, req.Tools), call.ID))
			toolsUsed = append(toolsUsed, call.Function.Name)
		}
	}

	// A model that answered entirely through tools leaves the visitor with
	// a blank bubble; acknowledge the work instead.
	if len(toolsUsed) > 0 && !textAfterTools {
		ack := fallbackAck(toolsUsed)
		events <- chunkEvent(ack)
		if strings.TrimSpace(final.Content) == "" {
			final = schema.AssistantMessage(ack, nil)
		}
	}

	r.persistTurn(ctx, req, final)

	events <- doneEvent(toolsUsed)
}

// assembleMessages builds the model input: system prompt, prior transcript,
// then the new visitor message.
func (r *Runner) assembleMessages(ctx context.Context, req *Request) ([]*schema.Message, error) {
	var system string
	var err error
	if req.Tools.IsPlatformAssistant() {
		system, err = prompts.RenderPlatformSystem(ctx, req.Tools.Plan)
	} else {
		system, err = prompts.RenderSystem(ctx, req.Config)
	}
	if err != nil {
		return nil, err
	}

	msgs := []*schema.Message{schema.SystemMessage(system)}

	history, err := r.repo.LoadHistory(ctx, req.ConversationID)
	if err != nil {
		// A lost transcript degrades the answer but should not kill the
		// turn; start fresh.
		logx.Warn().Err(err).Str("conversation_id", req.ConversationID).Msg("History load failed, starting fresh")
	} else {
		msgs = append(msgs, history.Messages...)
	}

	return append(msgs, schema.UserMessage(req.Message)), nil
}

// streamRound runs one model generation, relaying text chunks as events,
// and returns the concatenated full message.
func (r *Runner) streamRound(ctx context.Context, cm ChatModel, msgs []*schema.Message, events chan<- Event) (*schema.Message, bool, error) {
	stream, err := cm.Stream(ctx, msgs)
	if err != nil {
		return nil, false, err
	}
	defer stream.Close()

	var chunks []*schema.Message
	streamedText := false
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, streamedText, err
		}
		if chunk == nil {
			continue
		}
		if chunk.Content != "" {
			events <- chunkEvent(chunk.Content)
			streamedText = true
		}
		chunks = append(chunks, chunk)
	}

	if len(chunks) == 0 {
		return schema.AssistantMessage("", nil), streamedText, nil
	}
	full, err := schema.ConcatMessages(chunks)
	if err != nil {
		return nil, streamedText, fmt.Errorf("concat stream chunks: %w", err)
	}
	return full, streamedText, nil
}

// runTool runs one resolved tool and renders its outcome as the tool
// result payload. Handler failures are data for the model, not turn errors.
func (r *Runner) runTool(ctx context.Context, tool tools.Tool, call schema.ToolCall, tc *tools.Context) string {
	resp := tool.Handler(ctx, json.RawMessage(call.Function.Arguments), tc)
	payload, err := json.Marshal(resp)
	if err != nil {
		logx.Error().Err(err).Str("tool_name", call.Function.Name).Msg("Tool response encoding failed")
		return `{"success":false,"message":"internal tool error"}`
	}
	return string(payload)
}

// persistTurn appends the visitor message and the final assistant reply.
// Persistence failures lose history, not the answer already streamed.
func (r *Runner) persistTurn(ctx context.Context, req *Request, final *schema.Message) {
	if err := r.repo.AddMessage(ctx, req.ConversationID, schema.UserMessage(req.Message)); err != nil {
		logx.Error().Err(err).Str("conversation_id", req.ConversationID).Msg("User message persistence failed")
		return
	}
	if final == nil {
		return
	}
	if err := r.repo.AddMessage(ctx, req.ConversationID, final); err != nil {
		logx.Error().Err(err).Str("conversation_id", req.ConversationID).Msg("Assistant message persistence failed")
	}
}

func fallbackAck(toolsUsed []string) string {
	if len(toolsUsed) == 1 {
		return "Done! I finished the requested action."
	}
	return fmt.Sprintf("Done! I completed %d actions for you.", len(toolsUsed))
}
