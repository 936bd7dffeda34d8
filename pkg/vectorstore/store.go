package vectorstore

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"go.uber.org/zap"
)

var (
	ErrNoPath            = errors.New("vector store path is not configured")
	ErrNoIndex           = errors.New("no index available, run indexing first")
	ErrCorruptIndex      = errors.New("index artifact is incomplete or corrupt")
	ErrDimensionMismatch = errors.New("vector dimension does not match the store")
	ErrLengthMismatch    = errors.New("embeddings and texts differ in length")
)

// Match is a stored text and its cosine similarity to the query.
type Match struct {
	Text     string  `json:"text"`
	Score    float32 `json:"score"`
	Position int     `json:"position"`
}

// Store is an exact inner-product index over unit vectors, with the texts
// kept in the same order as the vectors.
type Store struct {
	dim     int
	paths   Paths
	vectors []float32
	count   int
	texts   []string
	logger  *zap.Logger
}

func New(dim int, paths Paths, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		dim:    dim,
		paths:  paths,
		logger: logger,
	}
}

func (s *Store) Dimension() int {
	return s.dim
}

// Len is the number of indexed vectors.
func (s *Store) Len() int {
	return s.count
}

func (s *Store) Texts() []string {
	return slices.Clone(s.texts)
}

// Add normalizes each embedding in place and appends it together with its
// text.
func (s *Store) Add(embeddings [][]float32, texts []string) error {
	if len(embeddings) != len(texts) {
		return fmt.Errorf("%d embeddings, %d texts: %w", len(embeddings), len(texts), ErrLengthMismatch)
	}
	for i, e := range embeddings {
		if len(e) != s.dim {
			return fmt.Errorf("embedding %d has dimension %d, want %d: %w", i, len(e), s.dim, ErrDimensionMismatch)
		}
	}

	for i, e := range embeddings {
		NormalizeL2(e)
		s.vectors = append(s.vectors, e...)
		s.texts = append(s.texts, texts[i])
	}
	s.count += len(embeddings)
	return nil
}

// Search normalizes query in place and returns up to k matches ordered by
// descending score, ties broken by position.
func (s *Store) Search(query []float32, k int) ([]Match, error) {
	if len(query) != s.dim {
		return nil, fmt.Errorf("query has dimension %d, want %d: %w", len(query), s.dim, ErrDimensionMismatch)
	}
	if k <= 0 || s.count == 0 {
		return []Match{}, nil
	}
	NormalizeL2(query)

	type scored struct {
		pos   int
		score float32
	}
	all := make([]scored, s.count)
	for i := 0; i < s.count; i++ {
		all[i] = scored{pos: i, score: dot(query, s.vectors[i*s.dim:(i+1)*s.dim])}
	}
	slices.SortStableFunc(all, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return a.pos - b.pos
		}
	})

	top := all[:min(k, len(all))]
	matches := make([]Match, 0, len(top))
	for _, c := range top {
		if c.pos >= len(s.texts) {
			s.logger.Warn("search position outside text list, skipping",
				zap.Int("position", c.pos),
				zap.Int("texts", len(s.texts)))
			continue
		}
		matches = append(matches, Match{Text: s.texts[c.pos], Score: c.score, Position: c.pos})
	}
	return matches, nil
}

// NormalizeL2 scales v to unit length in place. Zero vectors are left as is.
func NormalizeL2(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	n := math.Sqrt(sum)
	if n == 0 {
		return
	}
	inv := float32(1.0 / n)
	for i := range v {
		v[i] *= inv
	}
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func (s *Store) reset() {
	s.vectors = nil
	s.texts = nil
	s.count = 0
}
