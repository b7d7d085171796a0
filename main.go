package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/blissito/formmy-agent-core/internal/agent/runner"
	"github.com/blissito/formmy-agent-core/internal/agent/tools"
	"github.com/blissito/formmy-agent-core/internal/blobstore"
	"github.com/blissito/formmy-agent-core/internal/cache"
	"github.com/blissito/formmy-agent-core/internal/chatbot"
	"github.com/blissito/formmy-agent-core/internal/conversation"
	"github.com/blissito/formmy-agent-core/internal/core"
	"github.com/blissito/formmy-agent-core/internal/credits"
	"github.com/blissito/formmy-agent-core/internal/integrations"
	"github.com/blissito/formmy-agent-core/internal/leads"
	"github.com/blissito/formmy-agent-core/internal/scheduler"
	"github.com/blissito/formmy-agent-core/internal/server"
	"github.com/blissito/formmy-agent-core/internal/usage"
	logx "github.com/blissito/formmy-agent-core/pkg/logger"
	pkgredis "github.com/blissito/formmy-agent-core/pkg/redis"
)

// AppConfig defines all configurable parameters of the agent core, sourced
// from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Redis pkgredis.Config
	HTTP  server.Config

	// LLM providers
	Providers runner.FactoryConfig

	// Platform service bridge
	Integrations integrations.Config

	// Credit pricing
	Costs tools.Costs

	ConversationTTL string `envconfig:"CONVERSATION_TTL" default:"720h"`
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	env := core.ParseEnvironment(cfg.Environment)
	logx.Init(logx.LoggerOpts{Environment: env})

	ttl, err := time.ParseDuration(cfg.ConversationTTL)
	if err != nil {
		logx.Fatal().Err(err).Str("value", cfg.ConversationTTL).Msg("Invalid CONVERSATION_TTL")
	}

	rdb := cfg.Redis.MustNew()
	defer rdb.Close()
	logx.Info().Msg("Connected to Redis")

	// Stores
	bots := chatbot.NewRedisStore(rdb)
	repo := conversation.NewRedisRepository(rdb, ttl)
	usageStore := usage.NewRedisStore(rdb)
	ledger := credits.NewLedger(credits.NewRedisStore(rdb))

	// Platform service bridge
	bridge := integrations.NewClient(cfg.Integrations)
	email := integrations.NewEmail(bridge)

	recorder := usage.NewRecorder(usageStore)
	defer recorder.Close()

	registry := tools.NewRegistry(&tools.Deps{
		Ledger:     ledger,
		Recorder:   recorder,
		UsageStore: usageStore,
		Cache:      cache.NewRedis(rdb, "cache:websearch:"),
		Blobs:      blobstore.NewRedis(rdb, "blob:"),
		Scheduler:  scheduler.NewRedisScheduler(rdb),
		Email:      email,
		Searcher:   integrations.NewContextSearch(bridge),
		Web:        integrations.NewWebSearch(bridge),
		Payments:   integrations.NewPayments(bridge),
		Parser:     integrations.NewParser(bridge),
		Leads:      leads.NewRedisStore(rdb),
		Costs:      cfg.Costs,
	})

	models, err := runner.NewModelFactory(ctx, cfg.Providers)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to initialise LLM providers")
	}

	agentRunner := runner.New(registry, repo, models)

	maintenance := scheduler.NewMaintenance(rdb, usageStore, email)
	maintenance.ListChatbots = bots.ListIDs
	if err := maintenance.Start(); err != nil {
		logx.Fatal().Err(err).Msg("Failed to start maintenance scheduler")
	}
	defer maintenance.Stop()

	srv := server.New(cfg.HTTP, env, bots, agentRunner, ledger, repo)
	logx.Info().Str("addr", cfg.HTTP.Addr).Msg("Agent core listening")
	if err := srv.Run(); err != nil {
		logx.Fatal().Err(err).Msg("HTTP server exited")
	}
}
