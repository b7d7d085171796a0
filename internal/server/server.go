package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blissito/formmy-agent-core/internal/agent/runner"
	"github.com/blissito/formmy-agent-core/internal/chatbot"
	"github.com/blissito/formmy-agent-core/internal/conversation"
	"github.com/blissito/formmy-agent-core/internal/core"
	"github.com/blissito/formmy-agent-core/internal/core/errx"
	"github.com/blissito/formmy-agent-core/internal/credits"
)

// Config holds the HTTP layer settings.
type Config struct {
	Addr string `envconfig:"HTTP_ADDR" default:":8080"`
	// GhostyModel is the model the platform assistant answers with.
	GhostyModel string `envconfig:"GHOSTY_MODEL" default:"gemini-2.5-flash"`
}

// Server is the HTTP surface of the agent core: the streaming chat
// endpoint plus the small management API around it.
type Server struct {
	cfg    Config
	engine *gin.Engine

	bots   chatbot.Store
	runner *runner.Runner
	ledger *credits.Ledger
	repo   conversation.Repository
}

func New(cfg Config, env core.Environment, bots chatbot.Store, r *runner.Runner, ledger *credits.Ledger, repo conversation.Repository) *Server {
	if env == core.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:    cfg,
		engine: gin.New(),
		bots:   bots,
		runner: r,
		ledger: ledger,
		repo:   repo,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.Use(gin.Recovery())

	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/v1")
	{
		v1.POST("/chat", s.handleChat)

		v1.POST("/chatbots", s.handleSaveChatbot)
		v1.GET("/chatbots/:id", s.handleGetChatbot)
		v1.DELETE("/chatbots/:id", s.handleDeleteChatbot)

		v1.GET("/users/:id/credits", s.handleGetBalance)
		v1.POST("/users/:id/credits", s.handleAddCredits)

		v1.DELETE("/conversations/:id", s.handleClearConversation)
	}
}

// Run blocks serving HTTP until the listener fails.
func (s *Server) Run() error {
	return s.engine.Run(s.cfg.Addr)
}

// Handler exposes the router, used by httptest in tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// fail writes a JSON error with the status carried by the error, if any.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var appErr *errx.AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		status = appErr.Status
	}
	c.JSON(status, gin.H{"error": errx.UserMessage(err)})
}
