package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrInvalid marks configuration that cannot be used to run the service.
var ErrInvalid = errors.New("invalid configuration")

// Config is the root application configuration. File values are overridden
// by DOCQA_* environment variables; secrets (API keys, tokens) stay in the
// environment and never land in the file.
type Config struct {
	Addr    string `yaml:"addr"`
	DataDir string `yaml:"data_dir"`
	DBPath  string `yaml:"db_path"`

	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`
	MinTextChars int `yaml:"min_text_chars"`

	EmbeddingModel string  `yaml:"embedding_model"`
	ChatModel      string  `yaml:"chat_model"`
	Temperature    float32 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`

	MaxHistoryPairs int `yaml:"max_history_pairs"`
	EmbedWorkers    int `yaml:"embed_workers"`

	OpenAIBaseURL string `yaml:"openai_base_url,omitempty"`
}

func Default() *Config {
	return &Config{
		Addr:            ":8080",
		DataDir:         "data",
		DBPath:          "",
		ChunkSize:       500,
		ChunkOverlap:    100,
		TopK:            3,
		MinTextChars:    40,
		EmbeddingModel:  "text-embedding-3-small",
		ChatModel:       "gpt-4o-mini",
		Temperature:     0.1,
		MaxTokens:       500,
		MaxHistoryPairs: 5,
		EmbedWorkers:    4,
	}
}

// Load reads a config from path. A missing file yields defaults; a present
// but malformed file is an error. Env overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
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

// LoadDefault tries ./docqa.yaml first, then ~/.config/docqa/config.yaml.
func LoadDefault() (*Config, string, error) {
	cwdPath := "docqa.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath := ""
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		userPath = filepath.Join(home, ".config", "docqa", "config.yaml")
	}
	if userPath != "" {
		if _, err := os.Stat(userPath); err == nil {
			cfg, err := Load(userPath)
			return cfg, userPath, err
		}
	}
	cfg, err := Load(cwdPath) // missing file path: defaults + env
	return cfg, "", err
}

// Save writes the config to path, creating directories as needed.
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

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.DataDir == "" {
		cfg.DataDir = def.DataDir
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.TopK == 0 {
		cfg.TopK = def.TopK
	}
	if cfg.MinTextChars == 0 {
		cfg.MinTextChars = def.MinTextChars
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = def.EmbeddingModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = def.ChatModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.MaxHistoryPairs == 0 {
		cfg.MaxHistoryPairs = def.MaxHistoryPairs
	}
	if cfg.EmbedWorkers == 0 {
		cfg.EmbedWorkers = def.EmbedWorkers
	}
}

func applyEnv(cfg *Config) error {
	sets := []struct {
		key string
		fn  func(string) error
	}{
		{"DOCQA_ADDR", func(v string) error { cfg.Addr = v; return nil }},
		{"DOCQA_DATA_DIR", func(v string) error { cfg.DataDir = v; return nil }},
		{"DOCQA_DB_PATH", func(v string) error { cfg.DBPath = v; return nil }},
		{"DOCQA_CHUNK_SIZE", intSetter(&cfg.ChunkSize)},
		{"DOCQA_CHUNK_OVERLAP", intSetter(&cfg.ChunkOverlap)},
		{"DOCQA_TOP_K", intSetter(&cfg.TopK)},
		{"DOCQA_MIN_TEXT_CHARS", intSetter(&cfg.MinTextChars)},
		{"DOCQA_EMBEDDING_MODEL", func(v string) error { cfg.EmbeddingModel = v; return nil }},
		{"DOCQA_CHAT_MODEL", func(v string) error { cfg.ChatModel = v; return nil }},
		{"DOCQA_TEMPERATURE", func(v string) error {
			f, err := strconv.ParseFloat(v, 32)
			if err != nil {
				return fmt.Errorf("%w: DOCQA_TEMPERATURE=%q", ErrInvalid, v)
			}
			cfg.Temperature = float32(f)
			return nil
		}},
		{"DOCQA_MAX_TOKENS", intSetter(&cfg.MaxTokens)},
		{"DOCQA_MAX_HISTORY_PAIRS", intSetter(&cfg.MaxHistoryPairs)},
		{"DOCQA_EMBED_WORKERS", intSetter(&cfg.EmbedWorkers)},
		{"DOCQA_OPENAI_BASE_URL", func(v string) error { cfg.OpenAIBaseURL = v; return nil }},
	}
	for _, s := range sets {
		v := os.Getenv(s.key)
		if v == "" {
			continue
		}
		if err := s.fn(v); err != nil {
			return err
		}
	}
	return nil
}

func intSetter(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %q is not an integer", ErrInvalid, v)
		}
		*dst = n
		return nil
	}
}

func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalid, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk_overlap must not be negative, got %d", ErrInvalid, c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d must be smaller than chunk_size %d", ErrInvalid, c.ChunkOverlap, c.ChunkSize)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalid, c.TopK)
	}
	if c.MaxHistoryPairs < 0 {
		return fmt.Errorf("%w: max_history_pairs must not be negative, got %d", ErrInvalid, c.MaxHistoryPairs)
	}
	if c.EmbedWorkers <= 0 {
		return fmt.Errorf("%w: embed_workers must be positive, got %d", ErrInvalid, c.EmbedWorkers)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: max_tokens must be positive, got %d", ErrInvalid, c.MaxTokens)
	}
	if c.Temperature < 0 {
		return fmt.Errorf("%w: temperature must not be negative, got %v", ErrInvalid, c.Temperature)
	}
	return nil
}
