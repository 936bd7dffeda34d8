package chunking

import "strings"

// ParagraphChunker keeps newline-delimited paragraphs longer than
// MinParaLength and hard-splits those longer than MaxParaLength.
type ParagraphChunker struct {
	limits Limits
}

func NewParagraphChunker(limits Limits) (*ParagraphChunker, error) {
	l, err := limits.normalize()
	if err != nil {
		return nil, err
	}
	return &ParagraphChunker{limits: l}, nil
}

func (c *ParagraphChunker) Limits() Limits {
	return c.limits
}

func (c *ParagraphChunker) ChunkText(texts []string) ([]string, error) {
	var chunks []string
	for _, text := range texts {
		for _, para := range strings.Split(text, "\n") {
			n := runeLen(para)
			if n <= c.limits.MinParaLength {
				continue
			}
			if n > c.limits.MaxParaLength {
				chunks = append(chunks, hardSplit(para, c.limits.SplitWindow)...)
				continue
			}
			chunks = append(chunks, para)
		}
	}
	return chunks, nil
}
