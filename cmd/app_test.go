package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteqa/config"
	"siteqa/retrieval"
)

func TestBuildApp_LocalProviders(t *testing.T) {
	cfg := config.Default()
	cfg.Embedder.Provider = "tei"
	cfg.Embedder.BaseURL = "http://localhost:8081"
	cfg.LLM.Provider = "ollama"
	cfg.LLM.Model = "llama3"
	cfg.Store.IndexPath = filepath.Join(t.TempDir(), "site_index")
	cfg.Store.ChunksPath = filepath.Join(t.TempDir(), "chunks")

	a, err := buildApp(cfg)
	require.NoError(t, err)
	assert.NotNil(t, a.engine)
	assert.NotNil(t, a.metrics)
}

func TestBuildApp_GeminiNeedsKey(t *testing.T) {
	t.Setenv("SITEQA_TEST_MISSING_KEY", "")
	cfg := config.Default()
	cfg.Embedder.APIKeyEnv = "SITEQA_TEST_MISSING_KEY"

	_, err := buildApp(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding client")
}

func TestBuildApp_BadLogLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "loud"

	_, err := buildApp(cfg)
	require.Error(t, err)
}

type scriptedAsker struct {
	seen [][]retrieval.Turn
}

func (s *scriptedAsker) Ask(_ context.Context, question string, turns []retrieval.Turn) (*retrieval.Result, error) {
	s.seen = append(s.seen, turns)
	if question == "boom" {
		return nil, errors.New("llm down")
	}
	return &retrieval.Result{Answer: "re: " + question}, nil
}

func TestChatLoop(t *testing.T) {
	asker := &scriptedAsker{}
	in := strings.NewReader("first\n\nboom\nsecond\n/clear\nthird\n/exit\nignored\n")
	var out bytes.Buffer

	require.NoError(t, chatLoop(context.Background(), asker, in, &out))

	require.Len(t, asker.seen, 4)
	assert.Empty(t, asker.seen[0])
	assert.Len(t, asker.seen[1], 1, "failed question sees prior history")
	require.Len(t, asker.seen[2], 1, "failed question not recorded")
	assert.Equal(t, "first", asker.seen[2][0].Question)
	assert.Empty(t, asker.seen[3], "history cleared")

	text := out.String()
	assert.Contains(t, text, "re: first")
	assert.Contains(t, text, "error: llm down")
	assert.Contains(t, text, "History cleared.")
	assert.NotContains(t, text, "ignored")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héllo", truncate("héllo", 5))
	assert.Equal(t, "hé...", truncate("héllo", 2))
}
