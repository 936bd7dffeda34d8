package chunking

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// RecursiveCharacterChunking splits on paragraph, line, sentence and word
// boundaries before falling back to characters. Chunks go through the same
// length limits as the paragraph chunker.
type RecursiveCharacterChunking struct {
	splitter *textsplitter.RecursiveCharacter
	limits   Limits
}

func NewRecursiveCharacterChunking(limits Limits, overlap int) (*RecursiveCharacterChunking, error) {
	l, err := limits.normalize()
	if err != nil {
		return nil, err
	}
	if overlap < 0 || overlap >= l.SplitWindow {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, %d)", overlap, l.SplitWindow)
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(l.SplitWindow),
		textsplitter.WithChunkOverlap(overlap),
		textsplitter.WithSeparators([]string{"\n\n", "\n", ". ", " ", ""}),
	)
	return &RecursiveCharacterChunking{
		splitter: &splitter,
		limits:   l,
	}, nil
}

func (c *RecursiveCharacterChunking) ChunkText(texts []string) ([]string, error) {
	var chunks []string
	for _, text := range texts {
		pieces, err := c.splitter.SplitText(text)
		if err != nil {
			return nil, fmt.Errorf("failed to split text: %w", err)
		}
		for _, piece := range pieces {
			piece = strings.TrimSpace(piece)
			n := runeLen(piece)
			if n <= c.limits.MinParaLength {
				continue
			}
			if n > c.limits.MaxParaLength {
				chunks = append(chunks, hardSplit(piece, c.limits.SplitWindow)...)
				continue
			}
			chunks = append(chunks, piece)
		}
	}
	return chunks, nil
}
