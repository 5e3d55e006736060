package admin

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cloo-solutions/guardian/internal/config"
	"github.com/cloo-solutions/guardian/internal/database"
	"github.com/cloo-solutions/guardian/internal/loader"
	"github.com/cloo-solutions/guardian/internal/openai"
	"github.com/cloo-solutions/guardian/internal/prompts"
	"github.com/cloo-solutions/guardian/internal/qdrant"
	"github.com/cloo-solutions/guardian/internal/repository"
	"github.com/cloo-solutions/guardian/internal/service"
	"github.com/cloo-solutions/guardian/internal/storage"
	"github.com/cloo-solutions/guardian/internal/websearch"
)

// App holds the services shared by serve and index.
type App struct {
	Config   *config.Config
	Index    *service.IndexGateway
	Ingest   *service.IngestService
	Advisory *service.AdvisoryService
	Query    *service.QueryService
	Research *service.ResearchService
	// Archive is nil when S3 is not configured.
	Archive *storage.S3Client

	closers []func()
}

type appOptions struct {
	migrate        bool
	migrationsPath string
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// NewApp connects the configured stores and builds the services.
func NewApp(ctx context.Context, cfg *config.Config, opts appOptions) (*App, error) {
	app := &App{Config: cfg}

	store, err := app.openChunkStore(ctx, opts)
	if err != nil {
		app.Close()
		return nil, err
	}

	set := prompts.Default()
	if cfg.PromptsFile != "" {
		set, err = prompts.Load(cfg.PromptsFile)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to load prompts: %w", err)
		}
		log.Printf("prompts: loaded overrides from %s", cfg.PromptsFile)
	}

	chat := openai.NewChatClient(openai.ChatConfig{
		APIKey:      cfg.LLMAPIKey,
		BaseURL:     cfg.LLMBaseURL,
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
	})
	inference := service.NewInference(chat, set)

	app.Index = service.NewIndexGateway(store, func() (service.Embedder, error) {
		log.Printf("embeddings: using %s at %s", cfg.EmbeddingModel, cfg.EmbeddingBaseURL)
		return openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.EmbeddingAPIKey,
			BaseURL:             cfg.EmbeddingBaseURL,
			EmbeddingModel:      cfg.EmbeddingModel,
			EmbeddingDimensions: cfg.EmbeddingDimensions,
			BatchSize:           cfg.EmbeddingBatchSize,
		}), nil
	})
	app.Ingest = service.NewIngestService(loader.NewPDFLoader(), nil, app.Index)
	app.Advisory = service.NewAdvisoryService(inference)
	app.Query = service.NewQueryService(app.Index, inference)

	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		app.Archive = s3Client
		app.Ingest.WithArchiver(s3Client)
	}

	// A nil searcher makes /web/search answer 501.
	var searcher service.WebSearcher
	if cfg.HasWebSearch() {
		exa, err := websearch.NewExaClient(websearch.Config{
			APIKey:            cfg.ExaAPIKey,
			BaseURL:           cfg.ExaBaseURL,
			RequestsPerSecond: cfg.ExaRateLimit,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to create web search client: %w", err)
		}
		searcher = exa
	}
	app.Research = service.NewResearchService(searcher, inference)

	return app, nil
}

func (a *App) openChunkStore(ctx context.Context, opts appOptions) (service.ChunkStore, error) {
	cfg := a.Config

	switch cfg.VectorBackend {
	case config.BackendPGVector:
		if opts.migrate {
			if err := runMigrations(cfg.DatabaseURL, opts.migrationsPath); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		pool, err := database.NewPool(ctx, database.Config{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		log.Println("connected to database")
		return repository.NewChunkRepository(pool), nil

	case config.BackendQdrant:
		store := qdrant.NewStore(qdrant.Config{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
			Dimension:  cfg.EmbeddingDimensions,
			Timeout:    15 * time.Second,
		})
		if err := store.EnsureCollection(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure qdrant collection: %w", err)
		}
		log.Printf("qdrant collection '%s' ready", cfg.QdrantCollection)
		return store, nil

	case config.BackendMemory:
		log.Println("using in-memory vector store; chunks are lost on exit")
		return repository.NewMemoryChunkRepository(), nil
	}

	return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
}
