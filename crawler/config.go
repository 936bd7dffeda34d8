package crawler

import (
	"time"
)

type CrawlerConfig struct {
	MaxDepth       int
	MaxPages       int
	RequestTimeout time.Duration
	UserAgent      string
	AllowedSchemes []string
}

// DefaultConfig returns a default crawler configuration
func DefaultConfig() *CrawlerConfig {
	return &CrawlerConfig{
		MaxDepth:       5,
		MaxPages:       10,
		RequestTimeout: 5 * time.Second,
		UserAgent:      "siteqa-crawler/1.0",
		AllowedSchemes: []string{"http", "https"},
	}
}
