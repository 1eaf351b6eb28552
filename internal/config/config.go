package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CorpusConfig locates the statute source text.
type CorpusConfig struct {
	Path string `yaml:"path"`
}

// IndexConfig locates the persisted index artifacts.
type IndexConfig struct {
	Path       string `yaml:"path"`
	MatrixPath string `yaml:"matrix_path"`
}

// RetrievalConfig configures nearest-neighbor retrieval.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// EmbedderConfig configures the embedding service client.
type EmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// GeneratorConfig configures the generative text service client.
type GeneratorConfig struct {
	BaseURL         string `yaml:"base_url"`
	Model           string `yaml:"model"`
	ReasoningMarker string `yaml:"reasoning_marker"`
	TimeoutSecs     int    `yaml:"timeout_secs"`
}

// SpeechConfig configures the text-to-speech renderer.
type SpeechConfig struct {
	BaseURL     string `yaml:"base_url"`
	Language    string `yaml:"language"`
	OutputDir   string `yaml:"output_dir"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Index     IndexConfig     `yaml:"index"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Generator GeneratorConfig `yaml:"generator"`
	Speech    SpeechConfig    `yaml:"speech"`
}

// Load reads a config from a specified path. If the file does not exist,
// returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			mergeEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	mergeEnv(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/lawqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/lawqa/config.yaml and
// returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	mergeEnv(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "lawqa", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Corpus.Path == "" {
		cfg.Corpus.Path = "statute.txt"
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = "index.gob"
	}
	if cfg.Index.MatrixPath == "" {
		cfg.Index.MatrixPath = "embeddings.f32"
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Embedder.BaseURL == "" {
		cfg.Embedder.BaseURL = "http://localhost:11434"
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "mxbai-embed-large"
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = 60
	}
	if cfg.Generator.BaseURL == "" {
		cfg.Generator.BaseURL = "http://localhost:11434"
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "deepseek-r1:1.5b"
	}
	if cfg.Generator.ReasoningMarker == "" {
		cfg.Generator.ReasoningMarker = "</think>"
	}
	if cfg.Generator.TimeoutSecs == 0 {
		cfg.Generator.TimeoutSecs = 120
	}
	if cfg.Speech.BaseURL == "" {
		cfg.Speech.BaseURL = "https://translate.google.com"
	}
	if cfg.Speech.Language == "" {
		cfg.Speech.Language = "en"
	}
	if cfg.Speech.OutputDir == "" {
		cfg.Speech.OutputDir = "."
	}
	if cfg.Speech.TimeoutSecs == 0 {
		cfg.Speech.TimeoutSecs = 30
	}
}

func mergeEnv(cfg *AppConfig) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		cfg.Embedder.BaseURL = baseURL
		cfg.Generator.BaseURL = baseURL
	}
}
