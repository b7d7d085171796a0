package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/blissito/formmy-agent-core/internal/agent/resolver"
	"github.com/blissito/formmy-agent-core/internal/agent/runner"
	"github.com/blissito/formmy-agent-core/internal/agent/tools"
	"github.com/blissito/formmy-agent-core/internal/chatbot"
	"github.com/blissito/formmy-agent-core/internal/plan"
	logx "github.com/blissito/formmy-agent-core/pkg/logger"
)

// chatRequest is the body of POST /v1/chat. Identity fields arrive from
// the API gateway, which has already authenticated the caller; a missing
// plan means an anonymous widget visitor. A null chatbot_id addresses the
// platform assistant.
type chatRequest struct {
	ChatbotID      *string         `json:"chatbot_id"`
	ConversationID string          `json:"conversation_id"`
	Message        string          `json:"message" binding:"required"`
	UserID         string          `json:"user_id"`
	Plan           string          `json:"plan"`
	Integrations   map[string]bool `json:"integrations"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	p := plan.Anonymous
	if req.Plan != "" {
		p = plan.Plan(strings.ToUpper(strings.TrimSpace(req.Plan)))
	}

	// FREE is denied outright, before any model or tool work happens.
	if p == plan.Free {
		c.JSON(http.StatusForbidden, gin.H{"error": "AI chat is not included in the FREE plan"})
		return
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	cfg, err := s.resolveTurnConfig(c, &req, p)
	if err != nil {
		fail(c, err)
		return
	}

	turn := &runner.Request{
		ConversationID: conversationID,
		Message:        req.Message,
		Config:         cfg,
		Tools: &tools.Context{
			UserID:         req.UserID,
			Plan:           p,
			ChatbotID:      req.ChatbotID,
			Message:        req.Message,
			ConversationID: &conversationID,
			Integrations:   req.Integrations,
		},
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	events := s.runner.Run(c.Request.Context(), turn)

	// Plain write-and-flush loop; the runner guarantees the channel closes
	// after a terminal done or error event.
	for ev := range events {
		switch ev.Type {
		case runner.EventToolStart:
			writeSSE(c.Writer, gin.H{"type": "tool-start", "toolName": ev.Tool})
		case runner.EventChunk:
			writeSSE(c.Writer, gin.H{"type": "chunk", "text": ev.Text})
		case runner.EventError:
			writeSSE(c.Writer, gin.H{"type": "error", "message": ev.Err})
			writeSSE(c.Writer, gin.H{"type": "done"})
		case runner.EventDone:
			used := ev.ToolsUsed
			if used == nil {
				used = []string{}
			}
			writeSSE(c.Writer, gin.H{"type": "done", "toolsUsed": used, "toolCount": ev.ToolCount})
			writeSSE(c.Writer, gin.H{
				"type":      "metadata",
				"toolsUsed": used,
				"toolCount": ev.ToolCount,
				"model":     cfg.Model,
				"sessionId": conversationID,
			})
			writeSSE(c.Writer, gin.H{"type": "done"})
		}
		c.Writer.Flush()
	}
}

// resolveTurnConfig builds the turn's execution config. Tenant turns load
// the chatbot definition; platform assistant turns use a fixed definition
// owned by the deployment.
func (s *Server) resolveTurnConfig(c *gin.Context, req *chatRequest, p plan.Plan) (*resolver.ResolvedConfig, error) {
	caller := resolver.Caller{UserID: req.UserID, Plan: p}

	if req.ChatbotID == nil {
		return resolver.Resolve(&chatbot.Definition{
			ID:      "ghosty",
			Name:    "Ghosty",
			AIModel: s.cfg.GhostyModel,
		}, caller), nil
	}

	def, err := s.bots.Get(c.Request.Context(), *req.ChatbotID)
	if err != nil {
		logx.Warn().Err(err).Str("chatbot_id", *req.ChatbotID).Msg("Chatbot lookup failed")
		return nil, err
	}
	return resolver.Resolve(def, caller), nil
}

func writeSSE(w io.Writer, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		logx.Error().Err(err).Msg("SSE payload encoding failed")
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}
