package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/agent"
	httptransport "github.com/spec-kit/triage-service/internal/api/http"
	"github.com/spec-kit/triage-service/internal/api/http/handlers"
	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/embedding"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/llm"
	"github.com/spec-kit/triage-service/internal/observability"
	"github.com/spec-kit/triage-service/internal/persistence"
	"github.com/spec-kit/triage-service/internal/repository"
	"github.com/spec-kit/triage-service/internal/service"
	"github.com/spec-kit/triage-service/internal/vectorstore"
	"github.com/spec-kit/triage-service/internal/websearch"
	"github.com/spec-kit/triage-service/internal/worker"
)

var ticketProperties = []string{
	"ticket_id", "title", "description", "category", "severity",
	"application", "environment", "affected_users", "status",
	"reasoning", "solution",
}

var documentProperties = []string{"title", "content", "source"}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	ticketStore := vectorstore.NewWeaviateClient(cfg.VectorStore, cfg.VectorStore.TicketsClass, ticketProperties, logger)
	documentStore := vectorstore.NewWeaviateClient(cfg.VectorStore, cfg.VectorStore.DocumentsClass, documentProperties, logger)

	schemaCtx, schemaCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := ticketStore.EnsureSchema(schemaCtx); err != nil {
		logger.Warn("ticket class bootstrap failed", zap.Error(err))
	}
	if err := documentStore.EnsureSchema(schemaCtx); err != nil {
		logger.Warn("document class bootstrap failed", zap.Error(err))
	}
	schemaCancel()

	embeddingBackend := embedding.NewOllamaBackend(cfg.Embedding)
	var embeddingCache embedding.Cache
	if redis.Enabled() {
		ttl := time.Duration(cfg.Embedding.CacheTTLMinutes) * time.Minute
		embeddingCache = embedding.NewRedisCache(redis.Client, cfg.Embedding.Model, ttl, logger)
	}
	embedder := embedding.NewProvider(embeddingBackend, embeddingCache, logger)

	webProvider := newWebSearchProvider(cfg.WebSearch, logger)
	llmBackend := llm.NewGroqClient(cfg.LLM)

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	documentRepo := repository.NewDocumentRepository(pool)

	dispatcher := events.NewInMemoryDispatcher(logger)

	similarityService := service.NewSimilarityService(embedder, ticketStore, logger)
	registry := agent.NewRegistry(similarityService, webProvider, cfg.Agent.ToolSearchLimit, cfg.WebSearch.MaxResults, logger)
	resolutionAgent := agent.NewAgent(registry, llmBackend, cfg.Agent, metrics, logger)
	resolutionService := service.NewResolutionService(similarityService, resolutionAgent, cfg.Agent, metrics, logger)

	indexService := service.NewIndexService(service.IndexDependencies{
		Embedder:      embedder,
		TicketStore:   ticketStore,
		DocumentStore: documentStore,
		TicketRepo:    ticketRepo,
		DocumentRepo:  documentRepo,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		Resolution: resolutionService,
		Similarity: similarityService,
		Index:      indexService,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	documentService := service.NewDocumentService(service.DocumentDependencies{
		DocumentRepo: documentRepo,
		Embedder:     embedder,
		Store:        documentStore,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})

	worker.StartIndexWorker(indexService)

	app := fiber.New(fiber.Config{DisableStartupMessage: cfg.App.Env == "production"})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, ticketStore),
		Tickets:     handlers.NewTicketsHandler(ticketService),
		Documents:   handlers.NewDocumentsHandler(documentService),
		Resolutions: handlers.NewResolutionsHandler(resolutionService),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func newWebSearchProvider(cfg config.WebSearchConfig, logger *zap.Logger) websearch.Provider {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if cfg.Provider == "tavily" && cfg.TavilyAPIKey != "" {
		return websearch.NewTavilyProvider(cfg.TavilyAPIKey, timeout)
	}
	if cfg.Provider == "tavily" {
		logger.Warn("tavily selected but TAVILY_API_KEY unset, falling back to duckduckgo")
	}
	return websearch.NewDuckDuckGoProvider(timeout)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
