package main

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"siteqa/cleaner"
	"siteqa/config"
	"siteqa/crawler"
	"siteqa/pkg/chunking"
	"siteqa/pkg/embedding"
	"siteqa/pkg/llm"
	"siteqa/pkg/metrics"
	"siteqa/pkg/vectorstore"
	"siteqa/retrieval"
)

type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	engine  *retrieval.Engine
}

// loadApp reads configuration and wires the engine. The caller syncs the
// logger.
func loadApp() (*app, error) {
	// =========
	// Config
	// =========
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return buildApp(cfg)
}

func buildApp(cfg *config.Config) (*app, error) {
	// =========
	// Logging
	// =========
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	// =========
	// Metrics
	// =========
	m := metrics.New()

	// =========
	// Crawler
	// =========
	crawlerCfg := crawler.DefaultConfig()
	crawlerCfg.MaxPages = cfg.Crawler.MaxPages
	crawlerCfg.MaxDepth = cfg.Crawler.MaxDepth
	crawlerCfg.RequestTimeout = cfg.Crawler.Timeout()
	crawlerCfg.UserAgent = cfg.Crawler.UserAgent
	crawlerInstance := crawler.NewCrawler(crawlerCfg, logger)

	// =========
	// Cleaner
	// =========
	extractor, err := cleaner.NewExtractor(cfg.Cleaner.Mode)
	if err != nil {
		return nil, err
	}

	// =========
	// Chunking Client
	// =========
	chunker, err := chunking.NewChunker(cfg.Chunker.Method, chunking.Limits{
		MinParaLength: cfg.Chunker.MinParaLength,
		MaxParaLength: cfg.Chunker.MaxParaLength,
		SplitWindow:   cfg.Chunker.SplitWindow,
	}, cfg.Chunker.Overlap)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chunking client: %w", err)
	}

	// =========
	// Embedding Client
	// =========
	embeddingClient, err := newEmbeddingClient(cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding client: %w", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient, cfg.Embedder.BatchSize, cfg.Embedder.Dimension, logger)

	// =========
	// Completion Client
	// =========
	completer, err := newCompletionService(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize completion client: %w", err)
	}

	// =========
	// Retrieval Engine
	// =========
	engine := retrieval.NewEngine(retrieval.Config{
		Paths: vectorstore.Paths{
			IndexPath:  cfg.Store.IndexPath,
			ChunksPath: cfg.Store.ChunksPath,
		},
		Dimension:    cfg.Embedder.Dimension,
		MaxDepth:     cfg.Crawler.MaxDepth,
		TopK:         cfg.Retrieval.TopK,
		MaxTurns:     cfg.Retrieval.MaxTurns,
		MinScore:     cfg.Retrieval.MinScore,
		MinDocLength: cfg.Retrieval.MinDocLength,
	}, retrieval.Deps{
		Crawler:   crawlerInstance,
		Extractor: extractor,
		Chunker:   chunker,
		Embedder:  embedder,
		Completer: completer,
		Metrics:   m,
		Logger:    logger,
	})

	return &app{cfg: cfg, logger: logger, metrics: m, engine: engine}, nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

func newEmbeddingClient(cfg config.EmbedderConfig) (embedding.Client, error) {
	switch cfg.Provider {
	case "tei":
		return embedding.NewTEIClient(cfg.BaseURL, cfg.Timeout()), nil
	case "gemini":
		return embedding.NewGeminiClient(embedding.GeminiConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey(),
			Model:     cfg.Model,
			TaskType:  cfg.TaskType,
			Dimension: cfg.Dimension,
			Timeout:   cfg.Timeout(),
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Provider)
	}
}

func newCompletionService(cfg config.LLMConfig) (llm.CompletionService, error) {
	switch cfg.Provider {
	case llm.ProviderOllama:
		return llm.NewOllamaClient(cfg.BaseURL, cfg.Model, cfg.Temperature)
	case llm.ProviderGemini:
		return llm.NewGeminiClient(llm.GeminiConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey(),
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout(),
		})
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}
