package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/drug-interaction/backend/internal/api"
	"github.com/drug-interaction/backend/internal/cache/redis"
	"github.com/drug-interaction/backend/internal/external/rxnorm"
	"github.com/drug-interaction/backend/internal/ingestion"
	"github.com/drug-interaction/backend/internal/interaction"
	"github.com/drug-interaction/backend/internal/kg/builder"
	"github.com/drug-interaction/backend/internal/kg/neo4j"
	"github.com/drug-interaction/backend/internal/llm"
	"github.com/drug-interaction/backend/internal/matching"
	"github.com/drug-interaction/backend/internal/metrics"
	"github.com/drug-interaction/backend/internal/screening"
	"github.com/drug-interaction/backend/internal/storage/sqlite"
	"github.com/drug-interaction/backend/internal/vector/zilliz"
	"github.com/drug-interaction/backend/pkg/config"
	appLogger "github.com/drug-interaction/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting drug interaction API server")
	metrics.Init()

	ctx := context.Background()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(ctx); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	if cfg.SQLite.SeedPath != "" {
		if err := seedCatalog(ctx, sqliteClient, cfg.SQLite.SeedPath); err != nil {
			appLogger.Fatal("Failed to seed catalog", zap.Error(err))
		}
	}

	opts := screening.Options{
		CacheTTL: time.Duration(cfg.Redis.CacheTTLSec) * time.Second,
	}

	var cache *redis.Client
	if cfg.Redis.Enabled {
		cache, err = redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer cache.Close()
		opts.Cache = cache
	}

	var llmClient *llm.Client
	if cfg.LLM.APIKey != "" {
		llmClient = llm.NewClient(cfg.LLM.APIKey, cfg.LLM.EmbeddingModel, time.Duration(cfg.LLM.TimeoutSec)*time.Second)
		if cache != nil {
			llmClient = llmClient.WithCache(cache, 24*time.Hour)
		}
	}

	var zillizClient *zilliz.Client
	if cfg.Zilliz.Enabled {
		zillizClient, err = zilliz.NewClient(ctx, cfg.Zilliz.Endpoint, cfg.Zilliz.APIKey, cfg.Zilliz.CollectionName, cfg.Zilliz.VectorDim)
		if err != nil {
			appLogger.Fatal("Failed to create Zilliz client", zap.Error(err))
		}
		defer zillizClient.Close()

		if err := zillizClient.CreateCollection(ctx); err != nil {
			appLogger.Fatal("Failed to create collection", zap.Error(err))
		}

		if llmClient != nil {
			opts.Indexer = ingestion.NewIndexer(llmClient, zillizClient)
		}
	}

	var interactions interaction.InteractionSource = sqliteClient
	if cfg.Neo4j.Enabled {
		neo4jClient, err := neo4j.NewClient(cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.Neo4j.Database)
		if err != nil {
			appLogger.Fatal("Failed to create Neo4j client", zap.Error(err))
		}
		defer neo4jClient.Close(context.Background())

		if err := neo4jClient.EnsureConstraints(ctx); err != nil {
			appLogger.Warn("Failed to ensure graph constraints", zap.Error(err))
		}

		gated := interaction.NewGatedSource(neo4jClient, sqliteClient)
		opts.Graph = builder.NewBuilder(sqliteClient, neo4jClient)
		opts.GraphGate = gated
		interactions = gated
	}

	if cfg.RxNorm.Enabled {
		opts.External = rxnorm.NewClient(cfg.RxNorm.BaseURL, time.Duration(cfg.RxNorm.TimeoutSec)*time.Second)
	}

	matchCfg := matchingConfig(cfg.Matching)
	matchCfg.OnDegraded = screening.ObserveDegraded

	strategies := matching.DefaultStrategies(matchCfg)
	if cfg.Matching.SemanticEnabled {
		if llmClient != nil && zillizClient != nil {
			strategies = append(strategies, matching.NewSemanticStrategy(llmClient, zillizClient, matchCfg))
		} else {
			appLogger.Warn("Semantic matching enabled but embedding backend or vector store is not configured")
		}
	}

	indexes := matching.NewIndexHolder()
	resolver := matching.NewResolver(indexes, matchCfg, strategies...)
	checker := interaction.NewChecker(indexes, resolver, interaction.NewLookup(interactions, sqliteClient))
	service := screening.NewService(sqliteClient, indexes, resolver, checker, opts)

	reload, err := service.ReloadCatalog(ctx)
	if err != nil {
		appLogger.Fatal("Failed to build catalog index", zap.Error(err))
	}
	appLogger.Info("Catalog index ready",
		zap.Uint64("version", reload.Version),
		zap.Int("drugs", reload.Drugs),
		zap.Int("names_indexed", reload.NamesIndexed),
		zap.Bool("graph_synced", reload.GraphSynced),
	)

	server := api.New(cfg, service, api.RequestLogger())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := server.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	if err := server.Shutdown(); err != nil {
		appLogger.Error("Server shutdown failed", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}

func seedCatalog(ctx context.Context, db *sqlite.Client, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	return db.SeedFromJSON(ctx, f)
}

func matchingConfig(m config.MatchingConfig) matching.Config {
	mc := matching.DefaultConfig()
	mc.FuzzyThreshold = m.FuzzyThreshold
	mc.VectorThreshold = m.VectorThreshold
	mc.ConfidenceFloor = m.ConfidenceFloor
	mc.SemanticThreshold = m.SemanticThreshold
	mc.SemanticTimeout = time.Duration(m.SemanticTimeoutMs) * time.Millisecond
	if m.SemanticTopK > 0 {
		mc.SemanticTopK = m.SemanticTopK
	}
	if m.Workers > 0 {
		mc.Workers = m.Workers
	}
	return mc
}
