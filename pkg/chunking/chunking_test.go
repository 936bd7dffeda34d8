package chunking

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParagraphChunker_FiltersAndSplits(t *testing.T) {
	c, err := NewParagraphChunker(DefaultLimits())
	require.NoError(t, err)

	short := strings.Repeat("s", 150)
	medium := strings.Repeat("m", 500)
	long := strings.Repeat("l", 4000)

	chunks, err := c.ChunkText([]string{short + "\n" + medium + "\n" + long})
	require.NoError(t, err)

	require.Len(t, chunks, 4)
	assert.Equal(t, medium, chunks[0])
	assert.Equal(t, 1500, utf8.RuneCountInString(chunks[1]))
	assert.Equal(t, 1500, utf8.RuneCountInString(chunks[2]))
	assert.Equal(t, 1000, utf8.RuneCountInString(chunks[3]))
	assert.Equal(t, long, chunks[1]+chunks[2]+chunks[3])
}

func TestParagraphChunker_Boundaries(t *testing.T) {
	c, err := NewParagraphChunker(DefaultLimits())
	require.NoError(t, err)

	atMin := strings.Repeat("a", 200)
	aboveMin := strings.Repeat("b", 201)
	atMax := strings.Repeat("c", 3000)

	chunks, err := c.ChunkText([]string{atMin, aboveMin, atMax})
	require.NoError(t, err)

	assert.Equal(t, []string{aboveMin, atMax}, chunks)
}

func TestParagraphChunker_CountsRunes(t *testing.T) {
	c, err := NewParagraphChunker(Limits{MinParaLength: 5, MaxParaLength: 10, SplitWindow: 4})
	require.NoError(t, err)

	// 6 runes, 18 bytes
	para := "日本語日本語"
	chunks, err := c.ChunkText([]string{para})
	require.NoError(t, err)
	assert.Equal(t, []string{para}, chunks)

	long := strings.Repeat("é", 11)
	chunks, err = c.ChunkText([]string{long})
	require.NoError(t, err)
	assert.Equal(t, []string{"éééé", "éééé", "ééé"}, chunks)
}

func TestParagraphChunker_PreservesDocumentOrder(t *testing.T) {
	c, err := NewParagraphChunker(Limits{MinParaLength: 3, MaxParaLength: 100, SplitWindow: 50})
	require.NoError(t, err)

	chunks, err := c.ChunkText([]string{"first doc\nsecond para", "third one"})
	require.NoError(t, err)

	assert.Equal(t, []string{"first doc", "second para", "third one"}, chunks)
}

func TestParagraphChunker_EmptyInput(t *testing.T) {
	c, err := NewParagraphChunker(DefaultLimits())
	require.NoError(t, err)

	chunks, err := c.ChunkText(nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = c.ChunkText([]string{"", "tiny"})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestLimits_Normalize(t *testing.T) {
	c, err := NewParagraphChunker(Limits{MinParaLength: 10, MaxParaLength: 100, SplitWindow: 500})
	require.NoError(t, err)
	assert.Equal(t, 100, c.Limits().SplitWindow, "window is clamped to max")

	c, err = NewParagraphChunker(Limits{MinParaLength: 10})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxParaLength, c.Limits().MaxParaLength)
	assert.Equal(t, DefaultSplitWindow, c.Limits().SplitWindow)

	_, err = NewParagraphChunker(Limits{MinParaLength: 100, MaxParaLength: 50})
	assert.Error(t, err)

	_, err = NewParagraphChunker(Limits{MinParaLength: -1})
	assert.Error(t, err)
}

func TestRecursiveCharacterChunking(t *testing.T) {
	c, err := NewRecursiveCharacterChunking(Limits{MinParaLength: 20, MaxParaLength: 120, SplitWindow: 100}, 0)
	require.NoError(t, err)

	sentence := "The quick brown fox jumps over the lazy dog near the river bank. "
	text := strings.Repeat(sentence, 6) + "\n\nok"

	chunks, err := c.ChunkText([]string{text})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for _, chunk := range chunks {
		n := utf8.RuneCountInString(chunk)
		assert.Greater(t, n, 20)
		assert.LessOrEqual(t, n, 120)
	}
	assert.NotContains(t, chunks, "ok")
}

func TestRecursiveCharacterChunking_InvalidOverlap(t *testing.T) {
	_, err := NewRecursiveCharacterChunking(DefaultLimits(), -1)
	assert.Error(t, err)

	_, err = NewRecursiveCharacterChunking(DefaultLimits(), DefaultSplitWindow)
	assert.Error(t, err)
}

func TestNewChunker(t *testing.T) {
	c, err := NewChunker("", DefaultLimits(), 0)
	require.NoError(t, err)
	assert.IsType(t, &ParagraphChunker{}, c)

	c, err = NewChunker(MethodRecursive, DefaultLimits(), 100)
	require.NoError(t, err)
	assert.IsType(t, &RecursiveCharacterChunking{}, c)

	_, err = NewChunker("semantic", DefaultLimits(), 0)
	assert.Error(t, err)
}
