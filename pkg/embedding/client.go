package embedding

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const (
	DefaultBatchSize   = 50
	DefaultDimension   = 768
	TaskRetrievalDoc   = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery = "RETRIEVAL_QUERY"
)

var (
	ErrCountMismatch     = errors.New("embedding service returned a different number of vectors")
	ErrDimensionMismatch = errors.New("embedding service returned a vector of unexpected dimension")
)

// Client is the embedding service capability. One vector per input text, in
// input order.
type Client interface {
	GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedder batches texts against a Client.
type Embedder struct {
	client    Client
	batchSize int
	dimension int
	logger    *zap.Logger
}

// NewEmbedder returns an Embedder. A dimension of 0 disables the dimension
// check.
func NewEmbedder(client Client, batchSize, dimension int, logger *zap.Logger) *Embedder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		client:    client,
		batchSize: batchSize,
		dimension: dimension,
		logger:    logger,
	}
}

func (e *Embedder) Dimension() int {
	return e.dimension
}

// EmbedTexts embeds texts in sequential batches. Any failed batch fails the
// whole call.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		batch := texts[start:end]

		vectors, err := e.client.GetEmbeddings(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch [%d:%d]: %w", start, end, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("batch [%d:%d]: got %d vectors for %d texts: %w",
				start, end, len(vectors), len(batch), ErrCountMismatch)
		}
		for i, v := range vectors {
			if e.dimension > 0 && len(v) != e.dimension {
				return nil, fmt.Errorf("text %d: got dimension %d, want %d: %w",
					start+i, len(v), e.dimension, ErrDimensionMismatch)
			}
		}
		out = append(out, vectors...)

		e.logger.Debug("embedded batch",
			zap.Int("start", start),
			zap.Int("size", len(batch)))
	}
	return out, nil
}

// EmbedText embeds a single text as a one-item batch.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
