package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type ProjectConfig struct {
	Project       string              `yaml:"project"`
	Version       int                 `yaml:"version"`
	Database      DatabaseConfig      `yaml:"database"`
	Similarity    SimilarityConfig    `yaml:"similarity"`
	OpenAI        OpenAIConfig        `yaml:"openai"`
	Auth          AuthConfig          `yaml:"auth"`
	Planner       PlannerConfig       `yaml:"planner"`
	Linker        LinkerConfig        `yaml:"linker"`
	Staging       StagingConfig       `yaml:"staging"`
	Recap         RecapConfig         `yaml:"recap"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

type DatabaseConfig struct {
	Backend string `yaml:"backend"`
	DSN     string `yaml:"dsn"`
}

type SimilarityConfig struct {
	Backend             string  `yaml:"backend"`
	Path                string  `yaml:"path"`
	RecencyWeight       float64 `yaml:"recency_weight"`
	RecencyHalfLifeDays int     `yaml:"recency_half_life_days"`
}

type OpenAIConfig struct {
	APIKeyEnv       string `yaml:"api_key_env"`
	Model           string `yaml:"model"`
	EmbeddingModel  string `yaml:"embedding_model"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
}

type AuthConfig struct {
	JWTSecretEnv string `yaml:"jwt_secret_env"`
}

type PlannerConfig struct {
	SearchTopN         int `yaml:"search_top_n"`
	NeighborsPerEntity int `yaml:"neighbors_per_entity"`
	EntityPoolCap      int `yaml:"entity_pool_cap"`
	ContextWindow      int `yaml:"context_window"`
}

type LinkerConfig struct {
	MinScore int `yaml:"min_score"`
}

type StagingConfig struct {
	DedupThreshold     float64 `yaml:"dedup_threshold"`
	ExplicitConfidence float64 `yaml:"explicit_confidence"`
}

type RecapConfig struct {
	DigestCount int `yaml:"digest_count"`
}

type NotificationsConfig struct {
	SlackTokenEnv string `yaml:"slack_token_env"`
	SlackChannel  string `yaml:"slack_channel"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return &cfg, nil
}

func Default(project string) *ProjectConfig {
	cfg := &ProjectConfig{Project: project, Version: 1}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *ProjectConfig) {
	if cfg.Database.Backend == "" {
		cfg.Database.Backend = "sqlite"
	}
	if cfg.Database.Backend == "sqlite" && cfg.Database.DSN == "" {
		cfg.Database.DSN = "lorekeeper.db"
	}
	if cfg.Similarity.Backend == "" {
		cfg.Similarity.Backend = "lexical"
	}
	if cfg.Similarity.Path == "" {
		cfg.Similarity.Path = ".lorekeeper/vectors"
	}
	if cfg.Similarity.RecencyWeight == 0 {
		cfg.Similarity.RecencyWeight = 0.25
	}
	if cfg.Similarity.RecencyHalfLifeDays == 0 {
		cfg.Similarity.RecencyHalfLifeDays = 14
	}
	if cfg.OpenAI.APIKeyEnv == "" {
		cfg.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-4o-mini"
	}
	if cfg.OpenAI.EmbeddingModel == "" {
		cfg.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.OpenAI.MaxOutputTokens == 0 {
		cfg.OpenAI.MaxOutputTokens = 4096
	}
	if cfg.Auth.JWTSecretEnv == "" {
		cfg.Auth.JWTSecretEnv = "LOREKEEPER_JWT_SECRET"
	}
	if cfg.Planner.SearchTopN == 0 {
		cfg.Planner.SearchTopN = 10
	}
	if cfg.Planner.NeighborsPerEntity == 0 {
		cfg.Planner.NeighborsPerEntity = 5
	}
	if cfg.Planner.EntityPoolCap == 0 {
		cfg.Planner.EntityPoolCap = 30
	}
	if cfg.Planner.ContextWindow == 0 {
		cfg.Planner.ContextWindow = 200
	}
	if cfg.Linker.MinScore == 0 {
		cfg.Linker.MinScore = 2
	}
	if cfg.Staging.DedupThreshold == 0 {
		cfg.Staging.DedupThreshold = 0.92
	}
	if cfg.Staging.ExplicitConfidence == 0 {
		cfg.Staging.ExplicitConfidence = 0.95
	}
	if cfg.Recap.DigestCount == 0 {
		cfg.Recap.DigestCount = 5
	}
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	switch cfg.Database.Backend {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database backend: %s", cfg.Database.Backend)
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return fmt.Errorf("database dsn is required")
	}
	switch cfg.Similarity.Backend {
	case "openai", "lexical":
	default:
		return fmt.Errorf("unsupported similarity backend: %s", cfg.Similarity.Backend)
	}
	if cfg.Similarity.RecencyWeight < 0 || cfg.Similarity.RecencyWeight > 1 {
		return fmt.Errorf("recency weight must be between 0 and 1")
	}
	if cfg.Staging.DedupThreshold < 0 || cfg.Staging.DedupThreshold > 1 {
		return fmt.Errorf("dedup threshold must be between 0 and 1")
	}
	if cfg.Staging.ExplicitConfidence < 0 || cfg.Staging.ExplicitConfidence > 1 {
		return fmt.Errorf("explicit confidence must be between 0 and 1")
	}
	if cfg.Planner.SearchTopN < 1 {
		return fmt.Errorf("planner search top n must be positive")
	}
	if cfg.Planner.NeighborsPerEntity < 1 {
		return fmt.Errorf("planner neighbors per entity must be positive")
	}
	if cfg.Planner.EntityPoolCap < 1 {
		return fmt.Errorf("planner entity pool cap must be positive")
	}
	if cfg.Planner.ContextWindow < 1 {
		return fmt.Errorf("planner context window must be positive")
	}
	if cfg.Linker.MinScore < 1 {
		return fmt.Errorf("linker min score must be positive")
	}
	return nil
}

func (c OpenAIConfig) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

func (c AuthConfig) JWTSecret() string {
	return os.Getenv(c.JWTSecretEnv)
}

func (c NotificationsConfig) SlackToken() string {
	if c.SlackTokenEnv == "" {
		return ""
	}
	return os.Getenv(c.SlackTokenEnv)
}
