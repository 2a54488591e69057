package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/propchat-core/server/internal/agent/graph"
	"github.com/propchat-core/server/internal/agent/graph/nodes"
	"github.com/propchat-core/server/internal/agent/model"
	"github.com/propchat-core/server/internal/agent/repo"
	"github.com/propchat-core/server/internal/cache"
	"github.com/propchat-core/server/internal/core"
	"github.com/propchat-core/server/internal/mailer"
	"github.com/propchat-core/server/internal/search"
	"github.com/propchat-core/server/internal/storage"
	logx "github.com/propchat-core/server/pkg/logger"
	pkgpostgres "github.com/propchat-core/server/pkg/postgres"
	pkgredis "github.com/propchat-core/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the assistant, sourced
// from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"`

	// Infrastructure
	Redis    pkgredis.Config
	Postgres pkgpostgres.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Assistant configs
	Rewrite      model.RewriteModelConfig
	SQL          model.SQLModelConfig
	Report       model.ReportModelConfig
	Conversation model.ConversationConfig
	Graph        model.GraphConfig
	Cache        model.CacheConfig
	Search       model.SearchConfig
	Email        model.EmailConfig
	Storage      model.StorageConfig
}

func main() {
	fmt.Println("Starting property query assistant...")
	ctx := context.Background()

	// Load .env file
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Load structured config from env
	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(envCfg.Environment)})

	rdb, err := envCfg.Redis.New()
	if err != nil {
		log.Fatalf("Failed to initialise Redis client: %v", err)
	}
	defer rdb.Close()

	pool, err := envCfg.Postgres.New(ctx)
	if err != nil {
		log.Fatalf("Failed to initialise Postgres pool: %v", err)
	}
	defer pool.Close()

	fmt.Println("Connected to Redis and Postgres successfully")

	// ====================================================
	// Build all collaborators entirely from env

	client, err := nodes.NewClient(ctx, envCfg.APIKey, envCfg.BaseURL)
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}

	embedder := search.NewGeminiEmbedder(client, envCfg.Search.EmbeddingModel)
	searcher, err := search.NewQdrantSearcher(envCfg.Search, embedder)
	if err != nil {
		log.Fatalf("Failed to initialise Qdrant searcher: %v", err)
	}
	defer searcher.Close()

	defaultTTL, err := time.ParseDuration(envCfg.Cache.DefaultTTL)
	if err != nil {
		log.Fatalf("Invalid CACHE_DEFAULT_TTL '%s': %v", envCfg.Cache.DefaultTTL, err)
	}
	cacheStore := cache.NewManager(rdb, defaultTTL)

	db := storage.NewService(pool, cacheStore, envCfg.Storage, defaultTTL)

	conversationTTL, err := time.ParseDuration(envCfg.Conversation.TTL)
	if err != nil {
		log.Fatalf("Invalid CONVERSATION_TTL '%s': %v", envCfg.Conversation.TTL, err)
	}

	cfg := graph.Config{
		Client:           client,
		RewriteModel:     envCfg.Rewrite,
		SQLModel:         envCfg.SQL,
		ReportModel:      envCfg.Report,
		Conversation:     envCfg.Conversation,
		Graph:            envCfg.Graph,
		Cache:            envCfg.Cache,
		Searcher:         searcher,
		Database:         db,
		Users:            db,
		Mailer:           mailer.NewSMTP(envCfg.Email),
		CacheStore:       cacheStore,
		ConversationRepo: repo.NewRedisConversationRepository(rdb, conversationTTL),
	}

	runner, err := graph.BuildWorkflowGraph(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to build graph: %v", err)
	}

	testQueries := []struct {
		description string
		question    string
	}{
		{
			description: "Greeting, no SQL expected",
			question:    "Hi! What can you help me with?",
		},
		{
			description: "Listing question answered from the database",
			question:    "What is the average price of condos in Bangkok listed this year?",
		},
		{
			description: "Same question again, should replay from cache",
			question:    "What is the average price of condos in Bangkok listed this year?",
		},
		{
			description: "Email delivery of the previous answer",
			question:    "Please email the report to me",
		},
	}

	conversationID := uuid.NewString()
	userID := "demo-user"

	for i, test := range testQueries {
		fmt.Printf("\nTest %d: %s\n", i+1, test.description)
		fmt.Printf("Question: %q\n", test.question)

		response, err := runner.Watch(ctx, model.QueryInput{
			ConversationID: conversationID,
			UserID:         userID,
			Question:       test.question,
		}, func(node string, snapshot *model.State) {
			fmt.Printf("  [%s] needs_sql=%t needs_email=%t\n", node, snapshot.NeedsSQL, snapshot.NeedsEmail)
		})
		if err != nil {
			log.Fatalf("Failed to run turn %d: %v", i+1, err)
		}

		fmt.Printf("Answer %d: %s\n", i+1, response)
		fmt.Println("─────────────────────────────────────────────")

		// slight delay between turns for readability
		time.Sleep(500 * time.Millisecond)
	}

	fmt.Println("All turns completed")
}
