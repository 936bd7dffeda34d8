package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"siteqa/cleaner"
	"siteqa/crawler"
	"siteqa/pkg/chunking"
	"siteqa/pkg/llm"
	"siteqa/pkg/metrics"
	"siteqa/pkg/vectorstore"
)

var (
	ErrInvalidURL      = errors.New("invalid website url, expected http(s)://host")
	ErrInvalidMaxPages = errors.New("max pages must be at least 1")
	ErrEmptyQuestion   = errors.New("question is empty")
	ErrNoUsableContent = errors.New("no usable content extracted from site")
)

const (
	DefaultTopK         = 5
	DefaultMaxTurns     = 5
	DefaultMaxDepth     = 5
	DefaultMinDocLength = 30
)

type PageCrawler interface {
	Crawl(ctx context.Context, seedURL string, maxPages, maxDepth int) []crawler.Page
}

type TextEmbedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Document is the cleaned text of one crawled page.
type Document struct {
	SourceURL string
	Text      string
}

type Config struct {
	Paths        vectorstore.Paths
	Dimension    int
	MaxDepth     int
	TopK         int
	MaxTurns     int
	MinScore     float32
	MinDocLength int
}

// Result is an answer with the passages it was grounded on.
type Result struct {
	Answer   string              `json:"answer"`
	Matches  []vectorstore.Match `json:"matches"`
	Fallback bool                `json:"fallback"`
}

// Engine runs indexing and question answering against the artifact pair at
// Config.Paths. Indexing and clearing are exclusive; answering is shared.
type Engine struct {
	config    Config
	crawler   PageCrawler
	extractor cleaner.Extractor
	chunker   chunking.ChunkingClient
	embedder  TextEmbedder
	completer llm.CompletionService
	metrics   *metrics.Metrics
	logger    *zap.Logger

	mu sync.RWMutex
}

type Deps struct {
	Crawler   PageCrawler
	Extractor cleaner.Extractor
	Chunker   chunking.ChunkingClient
	Embedder  TextEmbedder
	Completer llm.CompletionService
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

func NewEngine(cfg Config, deps Deps) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	if cfg.MaxDepth < 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.MinDocLength <= 0 {
		cfg.MinDocLength = DefaultMinDocLength
	}
	if deps.Extractor == nil {
		deps.Extractor = cleaner.BlockExtractor{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Engine{
		config:    cfg,
		crawler:   deps.Crawler,
		extractor: deps.Extractor,
		chunker:   deps.Chunker,
		embedder:  deps.Embedder,
		completer: deps.Completer,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
	}
}

func (e *Engine) newStore() *vectorstore.Store {
	return vectorstore.New(e.config.Dimension, e.config.Paths, e.logger)
}

// Indexing crawls rawURL, rebuilds the index from scratch and returns the
// number of chunks saved. The previous index is only replaced on success.
func (e *Engine) Indexing(ctx context.Context, rawURL string, maxPages int) (int, error) {
	rawURL = strings.TrimSpace(rawURL)
	if !crawler.IsValidSeedURL(rawURL) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	if maxPages < 1 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidMaxPages, maxPages)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	crawlID := crawler.GenerateCrawlID()
	ctx = crawler.WithCrawlID(ctx, crawlID)
	logger := crawler.GetContextLogger(ctx, e.logger)

	start := time.Now()
	stats, err := e.index(ctx, logger, rawURL, maxPages, crawlID)
	e.metrics.ObserveIndexing(stats.pages, stats.dropped, stats.chunks, time.Since(start), err)
	if err != nil {
		logger.Error("indexing failed", zap.String("url", rawURL), zap.Error(err))
		return 0, err
	}

	logger.Info("indexing complete",
		zap.String("url", rawURL),
		zap.Int("pages", stats.pages),
		zap.Int("dropped", stats.dropped),
		zap.Int("chunks", stats.chunks),
		zap.Duration("took", time.Since(start)))
	return stats.chunks, nil
}

type indexStats struct {
	pages   int
	dropped int
	chunks  int
}

func (e *Engine) index(ctx context.Context, logger *zap.Logger, rawURL string, maxPages int, crawlID string) (indexStats, error) {
	var stats indexStats
	pages := e.crawler.Crawl(ctx, rawURL, maxPages, e.config.MaxDepth)
	stats.pages = len(pages)
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	docs := e.extract(logger, pages)
	stats.dropped = len(pages) - len(docs)
	if len(docs) == 0 {
		return stats, fmt.Errorf("%w: %d pages crawled, none with at least %d characters of text",
			ErrNoUsableContent, len(pages), e.config.MinDocLength)
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	chunks, err := e.chunker.ChunkText(texts)
	if err != nil {
		return stats, fmt.Errorf("failed to chunk documents: %w", err)
	}
	if len(chunks) == 0 {
		return stats, fmt.Errorf("%w: %d documents produced no chunks", ErrNoUsableContent, len(docs))
	}

	embeddings, err := e.embedder.EmbedTexts(ctx, chunks)
	if err != nil {
		return stats, fmt.Errorf("failed to embed chunks: %w", err)
	}

	store := e.newStore()
	if err := store.Add(embeddings, chunks); err != nil {
		return stats, fmt.Errorf("failed to add chunks to index: %w", err)
	}
	meta := vectorstore.Metadata{
		SourceURL: rawURL,
		CrawlID:   crawlID,
		PageCount: len(docs),
	}
	if err := store.Save(meta); err != nil {
		return stats, fmt.Errorf("failed to save index: %w", err)
	}
	stats.chunks = len(chunks)
	return stats, nil
}

func (e *Engine) extract(logger *zap.Logger, pages []crawler.Page) []Document {
	docs := make([]Document, 0, len(pages))
	for _, page := range pages {
		text, err := e.extractor.Extract(page.HTML, page.URL)
		if err != nil {
			logger.Warn("failed to extract text", zap.String("url", page.URL), zap.Error(err))
			continue
		}
		text = strings.TrimSpace(text)
		if n := utf8.RuneCountInString(text); n < e.config.MinDocLength {
			logger.Debug("dropping short document", zap.String("url", page.URL), zap.Int("length", n))
			continue
		}
		docs = append(docs, Document{SourceURL: page.URL, Text: text})
	}
	return docs
}

// Answer returns the answer text for question given the caller's
// conversation so far.
func (e *Engine) Answer(ctx context.Context, question string, turns []Turn) (string, error) {
	res, err := e.Ask(ctx, question, turns)
	if err != nil {
		return "", err
	}
	return res.Answer, nil
}

// Ask is Answer with the retrieved matches attached.
func (e *Engine) Ask(ctx context.Context, question string, turns []Turn) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	start := time.Now()
	res, err := e.ask(ctx, question, turns)

	outcome := metrics.OutcomeLLM
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
	case res.Fallback:
		outcome = metrics.OutcomeFallback
	}
	matches := 0
	if res != nil {
		matches = len(res.Matches)
	}
	e.metrics.ObserveAnswer(outcome, matches, time.Since(start))

	if err != nil {
		e.logger.Error("answer failed", zap.Error(err))
		return nil, err
	}
	e.logger.Info("answered question",
		zap.String("outcome", outcome),
		zap.Int("matches", matches),
		zap.Duration("took", time.Since(start)))
	return res, nil
}

func (e *Engine) ask(ctx context.Context, question string, turns []Turn) (*Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	store := e.newStore()
	if err := store.Load(); err != nil {
		return nil, err
	}
	if store.Len() == 0 {
		return nil, vectorstore.ErrNoIndex
	}

	vectors, err := e.embedder.EmbedTexts(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one question", len(vectors))
	}

	found, err := store.Search(vectors[0], e.config.TopK)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}
	matches := make([]vectorstore.Match, 0, len(found))
	for _, m := range found {
		if m.Score > e.config.MinScore {
			matches = append(matches, m)
		}
	}

	recent := RecentTurns(turns, e.config.MaxTurns)
	if len(matches) == 0 && len(recent) == 0 {
		return &Result{Answer: FallbackAnswer, Matches: matches, Fallback: true}, nil
	}

	prompt := BuildPrompt(matches, recent, question)
	answer, err := e.completer.Complete(ctx, SystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}
	return &Result{Answer: strings.TrimSpace(answer), Matches: matches}, nil
}

// ClearIndex removes the artifact pair and returns the files removed.
func (e *Engine) ClearIndex(ctx context.Context) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed, err := e.newStore().Clear()
	if err != nil {
		return removed, fmt.Errorf("failed to clear index: %w", err)
	}
	e.logger.Info("cleared index", zap.Strings("removed", removed))
	return removed, nil
}

// Summary describes the saved index.
func (e *Engine) Summary(ctx context.Context) (*vectorstore.Metadata, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.newStore().ReadMetadata()
}
