package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "siteqa.yaml"

type ServerConfig struct {
	Addr             string `yaml:"addr"`
	ReadTimeoutSecs  int    `yaml:"read_timeout_secs"`
	WriteTimeoutSecs int    `yaml:"write_timeout_secs"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type CrawlerConfig struct {
	MaxPages    int    `yaml:"max_pages"`
	MaxDepth    int    `yaml:"max_depth"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	UserAgent   string `yaml:"user_agent"`
}

// CleanerConfig selects the text extractor: blocks, readability or
// trafilatura.
type CleanerConfig struct {
	Mode string `yaml:"mode"`
}

type ChunkerConfig struct {
	Method        string `yaml:"method"`
	MinParaLength int    `yaml:"min_para_length"`
	MaxParaLength int    `yaml:"max_para_length"`
	SplitWindow   int    `yaml:"split_window"`
	Overlap       int    `yaml:"overlap"`
}

type EmbedderConfig struct {
	Provider    string `yaml:"provider"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TaskType    string `yaml:"task_type"`
	Dimension   int    `yaml:"dimension"`
	BatchSize   int    `yaml:"batch_size"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

type StoreConfig struct {
	IndexPath  string `yaml:"index_path"`
	ChunksPath string `yaml:"chunks_path"`
}

type RetrievalConfig struct {
	TopK         int     `yaml:"top_k"`
	MaxTurns     int     `yaml:"max_turns"`
	MinScore     float32 `yaml:"min_score"`
	MinDocLength int     `yaml:"min_doc_length"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Crawler   CrawlerConfig   `yaml:"crawler"`
	Cleaner   CleanerConfig   `yaml:"cleaner"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	LLM       LLMConfig       `yaml:"llm"`
	Store     StoreConfig     `yaml:"store"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// Load reads the YAML file at path, fills defaults and applies SITEQA_*
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	applyDefaults(cfg)
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Save writes cfg as YAML, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080", ReadTimeoutSecs: 15, WriteTimeoutSecs: 300},
		Log:    LogConfig{Level: "info"},
		Crawler: CrawlerConfig{
			MaxPages:    10,
			MaxDepth:    5,
			TimeoutSecs: 5,
			UserAgent:   "siteqa-crawler/1.0",
		},
		Cleaner: CleanerConfig{Mode: "blocks"},
		Chunker: ChunkerConfig{
			Method:        "paragraph",
			MinParaLength: 200,
			MaxParaLength: 3000,
			SplitWindow:   1500,
			Overlap:       100,
		},
		Embedder: EmbedderConfig{
			Provider:    "gemini",
			Model:       "text-embedding-004",
			APIKeyEnv:   "GEMINI_API_KEY",
			TaskType:    "RETRIEVAL_DOCUMENT",
			Dimension:   768,
			BatchSize:   50,
			TimeoutSecs: 30,
		},
		LLM: LLMConfig{
			Provider:    "gemini",
			Model:       "gemini-2.5-flash",
			APIKeyEnv:   "GEMINI_API_KEY",
			TimeoutSecs: 60,
		},
		Store: StoreConfig{
			IndexPath:  filepath.Join("data", "site_index"),
			ChunksPath: filepath.Join("data", "chunks"),
		},
		Retrieval: RetrievalConfig{
			TopK:         5,
			MaxTurns:     5,
			MinDocLength: 30,
		},
	}
}

// applyDefaults restores defaults for fields a partial file zeroed out.
func applyDefaults(cfg *Config) {
	d := Default()
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = d.Server.Addr
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = d.Log.Level
	}
	if cfg.Crawler.MaxPages == 0 {
		cfg.Crawler.MaxPages = d.Crawler.MaxPages
	}
	if cfg.Crawler.TimeoutSecs == 0 {
		cfg.Crawler.TimeoutSecs = d.Crawler.TimeoutSecs
	}
	if cfg.Crawler.UserAgent == "" {
		cfg.Crawler.UserAgent = d.Crawler.UserAgent
	}
	if cfg.Cleaner.Mode == "" {
		cfg.Cleaner.Mode = d.Cleaner.Mode
	}
	if cfg.Chunker.Method == "" {
		cfg.Chunker.Method = d.Chunker.Method
	}
	if cfg.Embedder.Provider == "" {
		cfg.Embedder.Provider = d.Embedder.Provider
	}
	if cfg.Embedder.APIKeyEnv == "" {
		cfg.Embedder.APIKeyEnv = d.Embedder.APIKeyEnv
	}
	if cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = d.Embedder.Dimension
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = d.Embedder.BatchSize
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = d.LLM.Provider
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = d.LLM.APIKeyEnv
	}
	if cfg.Store.IndexPath == "" {
		cfg.Store.IndexPath = d.Store.IndexPath
	}
	if cfg.Store.ChunksPath == "" {
		cfg.Store.ChunksPath = d.Store.ChunksPath
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = d.Retrieval.TopK
	}
	if cfg.Retrieval.MaxTurns == 0 {
		cfg.Retrieval.MaxTurns = d.Retrieval.MaxTurns
	}
	if cfg.Retrieval.MinDocLength == 0 {
		cfg.Retrieval.MinDocLength = d.Retrieval.MinDocLength
	}
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"SITEQA_SERVER_ADDR":       &cfg.Server.Addr,
		"SITEQA_LOG_LEVEL":         &cfg.Log.Level,
		"SITEQA_CLEANER_MODE":      &cfg.Cleaner.Mode,
		"SITEQA_CHUNKER_METHOD":    &cfg.Chunker.Method,
		"SITEQA_EMBEDDER_PROVIDER": &cfg.Embedder.Provider,
		"SITEQA_EMBEDDER_URL":      &cfg.Embedder.BaseURL,
		"SITEQA_EMBEDDER_MODEL":    &cfg.Embedder.Model,
		"SITEQA_LLM_PROVIDER":      &cfg.LLM.Provider,
		"SITEQA_LLM_URL":           &cfg.LLM.BaseURL,
		"SITEQA_LLM_MODEL":         &cfg.LLM.Model,
		"SITEQA_INDEX_PATH":        &cfg.Store.IndexPath,
		"SITEQA_CHUNKS_PATH":       &cfg.Store.ChunksPath,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"SITEQA_MAX_PAGES": &cfg.Crawler.MaxPages,
		"SITEQA_MAX_DEPTH": &cfg.Crawler.MaxDepth,
		"SITEQA_TOP_K":     &cfg.Retrieval.TopK,
		"SITEQA_MAX_TURNS": &cfg.Retrieval.MaxTurns,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", key, v, err)
		}
		*dst = n
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Cleaner.Mode {
	case "blocks", "readability", "trafilatura":
	default:
		errs = append(errs, fmt.Errorf("cleaner.mode %q is not one of blocks, readability, trafilatura", c.Cleaner.Mode))
	}
	switch c.Chunker.Method {
	case "paragraph", "recursive":
	default:
		errs = append(errs, fmt.Errorf("chunker.method %q is not one of paragraph, recursive", c.Chunker.Method))
	}
	if c.Chunker.MaxParaLength <= c.Chunker.MinParaLength {
		errs = append(errs, fmt.Errorf("chunker.max_para_length %d must exceed min_para_length %d",
			c.Chunker.MaxParaLength, c.Chunker.MinParaLength))
	}
	switch c.Embedder.Provider {
	case "gemini", "tei":
	default:
		errs = append(errs, fmt.Errorf("embedder.provider %q is not one of gemini, tei", c.Embedder.Provider))
	}
	if c.Embedder.Provider == "tei" && c.Embedder.BaseURL == "" {
		errs = append(errs, errors.New("embedder.base_url is required for tei"))
	}
	switch c.LLM.Provider {
	case "gemini", "ollama":
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not one of gemini, ollama", c.LLM.Provider))
	}
	if c.Crawler.MaxPages < 1 {
		errs = append(errs, fmt.Errorf("crawler.max_pages must be at least 1, got %d", c.Crawler.MaxPages))
	}
	if c.Crawler.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("crawler.max_depth must not be negative, got %d", c.Crawler.MaxDepth))
	}
	return errors.Join(errs...)
}

func (c EmbedderConfig) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

func (c EmbedderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

func (c LLMConfig) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

func (c CrawlerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSecs) * time.Second
}

func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSecs) * time.Second
}
