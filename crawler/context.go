package crawler

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ContextKey string

const (
	CrawlIDKey ContextKey = "crawl_id"
)

// GetContextLogger creates a logger with context information
func GetContextLogger(ctx context.Context, baseLogger *zap.Logger) *zap.Logger {
	logger := baseLogger

	if crawlID := GetCrawlID(ctx); crawlID != "" {
		logger = logger.With(zap.String(string(CrawlIDKey), crawlID))
	}

	return logger
}

// WithCrawlID adds a crawl ID to the context
func WithCrawlID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CrawlIDKey, id)
}

// GenerateCrawlID generates a unique crawl ID
func GenerateCrawlID() string {
	return uuid.NewString()
}

// GetCrawlID retrieves the crawl ID from context
func GetCrawlID(ctx context.Context) string {
	if crawlID, ok := ctx.Value(CrawlIDKey).(string); ok {
		return crawlID
	}
	return ""
}
