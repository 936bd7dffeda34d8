package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 200, cfg.Chunker.MinParaLength)
	assert.Equal(t, 3000, cfg.Chunker.MaxParaLength)
	assert.Equal(t, 1500, cfg.Chunker.SplitWindow)
	assert.Equal(t, 768, cfg.Embedder.Dimension)
	assert.Equal(t, 50, cfg.Embedder.BatchSize)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 5, cfg.Retrieval.MaxTurns)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeFile(t, "siteqa.yaml", `
crawler:
  max_pages: 3
chunker:
  method: recursive
  min_para_length: 50
  max_para_length: 2000
llm:
  provider: ollama
  base_url: http://localhost:11434
  model: llama3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Crawler.MaxPages)
	assert.Equal(t, 5, cfg.Crawler.MaxDepth)
	assert.Equal(t, "recursive", cfg.Chunker.Method)
	assert.Equal(t, 50, cfg.Chunker.MinParaLength)
	assert.Equal(t, 2000, cfg.Chunker.MaxParaLength)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, "gemini", cfg.Embedder.Provider)
	assert.Equal(t, "siteqa-crawler/1.0", cfg.Crawler.UserAgent)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SITEQA_MAX_PAGES", "25")
	t.Setenv("SITEQA_INDEX_PATH", "/tmp/siteqa/idx")
	t.Setenv("SITEQA_LOG_LEVEL", "debug")
	t.Setenv("SITEQA_TOP_K", "8")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Crawler.MaxPages)
	assert.Equal(t, "/tmp/siteqa/idx", cfg.Store.IndexPath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 8, cfg.Retrieval.TopK)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("SITEQA_MAX_PAGES", "many")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeFile(t, "bad.yaml", "crawler: [unclosed")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"cleaner mode", func(c *Config) { c.Cleaner.Mode = "markdown" }},
		{"chunker method", func(c *Config) { c.Chunker.Method = "semantic" }},
		{"chunk limits", func(c *Config) { c.Chunker.MaxParaLength = 100 }},
		{"embedder provider", func(c *Config) { c.Embedder.Provider = "openai" }},
		{"tei without url", func(c *Config) { c.Embedder.Provider = "tei" }},
		{"llm provider", func(c *Config) { c.LLM.Provider = "claude" }},
		{"max pages", func(c *Config) { c.Crawler.MaxPages = 0 }},
		{"max depth", func(c *Config) { c.Crawler.MaxDepth = -1 }},
	}

	require.NoError(t, Default().Validate())
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-env")

	cfg := Default()
	assert.Equal(t, "from-env", cfg.Embedder.APIKey())
	assert.Equal(t, "from-env", cfg.LLM.APIKey())
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "SITEQA_TEST_DOTENV=loaded\n")
	t.Setenv("SITEQA_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("SITEQA_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "loaded", os.Getenv("SITEQA_TEST_DOTENV"))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "siteqa.yaml")
	cfg := Default()
	cfg.Crawler.MaxPages = 42

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Crawler.MaxPages)
}
