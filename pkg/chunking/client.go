package chunking

import (
	"fmt"
	"unicode/utf8"
)

const (
	MethodParagraph = "paragraph"
	MethodRecursive = "recursive"

	DefaultMinParaLength = 200
	DefaultMaxParaLength = 3000
	DefaultSplitWindow   = 1500
)

// ChunkingClient splits cleaned documents into retrieval units. Output order
// follows input order.
type ChunkingClient interface {
	ChunkText(texts []string) ([]string, error)
}

// Limits is the single configuration surface for chunk sizes. Lengths are
// counted in runes.
type Limits struct {
	MinParaLength int
	MaxParaLength int
	SplitWindow   int
}

func DefaultLimits() Limits {
	return Limits{
		MinParaLength: DefaultMinParaLength,
		MaxParaLength: DefaultMaxParaLength,
		SplitWindow:   DefaultSplitWindow,
	}
}

// normalize fills zero values with defaults and keeps the window within the
// maximum so hard-split pieces never exceed it.
func (l Limits) normalize() (Limits, error) {
	if l.MinParaLength < 0 {
		return l, fmt.Errorf("min paragraph length must not be negative: %d", l.MinParaLength)
	}
	if l.MaxParaLength == 0 {
		l.MaxParaLength = DefaultMaxParaLength
	}
	if l.SplitWindow == 0 {
		l.SplitWindow = DefaultSplitWindow
	}
	if l.MaxParaLength <= l.MinParaLength {
		return l, fmt.Errorf("max paragraph length %d must exceed min %d", l.MaxParaLength, l.MinParaLength)
	}
	if l.SplitWindow < 1 {
		return l, fmt.Errorf("split window must be positive: %d", l.SplitWindow)
	}
	if l.SplitWindow > l.MaxParaLength {
		l.SplitWindow = l.MaxParaLength
	}
	return l, nil
}

// NewChunker returns the chunker registered under method.
func NewChunker(method string, limits Limits, overlap int) (ChunkingClient, error) {
	switch method {
	case "", MethodParagraph:
		return NewParagraphChunker(limits)
	case MethodRecursive:
		return NewRecursiveCharacterChunking(limits, overlap)
	default:
		return nil, fmt.Errorf("unsupported chunking method %q", method)
	}
}

// hardSplit cuts s into consecutive windows of size runes; the last window
// may be shorter.
func hardSplit(s string, size int) []string {
	runes := []rune(s)
	out := make([]string, 0, len(runes)/size+1)
	for i := 0; i < len(runes); i += size {
		end := min(i+size, len(runes))
		out = append(out, string(runes[i:end]))
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
