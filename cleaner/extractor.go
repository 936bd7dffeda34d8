package cleaner

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"
)

const (
	ModeBlocks      = "blocks"
	ModeReadability = "readability"
	ModeTrafilatura = "trafilatura"
)

// Extractor turns a fetched page into plain prose. Paragraphs are separated by
// newlines so the chunker can split on them.
type Extractor interface {
	Extract(rawHTML, pageURL string) (string, error)
}

// NewExtractor returns the extractor registered under mode.
func NewExtractor(mode string) (Extractor, error) {
	switch mode {
	case "", ModeBlocks:
		return BlockExtractor{}, nil
	case ModeReadability:
		return ReadabilityExtractor{}, nil
	case ModeTrafilatura:
		return TrafilaturaExtractor{}, nil
	default:
		return nil, fmt.Errorf("unsupported extractor mode %q", mode)
	}
}

type BlockExtractor struct{}

func (BlockExtractor) Extract(rawHTML, _ string) (string, error) {
	return CleanHTML(rawHTML), nil
}

type ReadabilityExtractor struct{}

func (ReadabilityExtractor) Extract(rawHTML, pageURL string) (string, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("readability: failed to parse URL: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		return "", fmt.Errorf("readability: extraction failed: %w", err)
	}

	return strings.TrimSpace(article.TextContent), nil
}

type TrafilaturaExtractor struct{}

func (TrafilaturaExtractor) Extract(rawHTML, pageURL string) (string, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("trafilatura: failed to parse URL: %w", err)
	}

	result, err := trafilatura.Extract(strings.NewReader(rawHTML), trafilatura.Options{
		OriginalURL: parsedURL,
	})
	if err != nil {
		return "", fmt.Errorf("trafilatura: extraction failed: %w", err)
	}
	if result == nil {
		return "", nil
	}

	return strings.TrimSpace(result.ContentText), nil
}
