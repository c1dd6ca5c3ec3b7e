package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadProjectConfig(t *testing.T) {
	t.Run("valid config loads", func(t *testing.T) {
		path := writeTempConfig(t, strings.Join([]string{
			"project: veldt-campaign",
			"version: 1",
			"database:",
			"  backend: sqlite",
			"  dsn: veldt.db",
			"similarity:",
			"  backend: lexical",
			"recap:",
			"  digest_count: 3",
		}, "\n"))
		cfg, err := LoadProjectConfig(path)
		if err != nil {
			t.Fatalf("LoadProjectConfig: %v", err)
		}
		if cfg.Project != "veldt-campaign" {
			t.Errorf("project = %q", cfg.Project)
		}
		if cfg.Database.DSN != "veldt.db" {
			t.Errorf("dsn = %q", cfg.Database.DSN)
		}
		if cfg.Recap.DigestCount != 3 {
			t.Errorf("digest count = %d, explicit value must survive defaulting", cfg.Recap.DigestCount)
		}
	})

	t.Run("defaults fill the gaps", func(t *testing.T) {
		path := writeTempConfig(t, "project: minimal\nversion: 1\n")
		cfg, err := LoadProjectConfig(path)
		if err != nil {
			t.Fatalf("LoadProjectConfig: %v", err)
		}
		if cfg.Database.Backend != "sqlite" || cfg.Database.DSN != "lorekeeper.db" {
			t.Errorf("database defaults = %+v", cfg.Database)
		}
		if cfg.Similarity.Backend != "lexical" || cfg.Similarity.RecencyWeight != 0.25 {
			t.Errorf("similarity defaults = %+v", cfg.Similarity)
		}
		if cfg.OpenAI.Model != "gpt-4o-mini" || cfg.OpenAI.EmbeddingModel != "text-embedding-3-small" {
			t.Errorf("openai defaults = %+v", cfg.OpenAI)
		}
		if cfg.Auth.JWTSecretEnv != "LOREKEEPER_JWT_SECRET" {
			t.Errorf("auth defaults = %+v", cfg.Auth)
		}
		if cfg.Planner.SearchTopN != 10 || cfg.Planner.EntityPoolCap != 30 || cfg.Planner.ContextWindow != 200 {
			t.Errorf("planner defaults = %+v", cfg.Planner)
		}
		if cfg.Staging.DedupThreshold != 0.92 || cfg.Staging.ExplicitConfidence != 0.95 {
			t.Errorf("staging defaults = %+v", cfg.Staging)
		}
		if cfg.Linker.MinScore != 2 || cfg.Recap.DigestCount != 5 {
			t.Errorf("linker/recap defaults = %+v %+v", cfg.Linker, cfg.Recap)
		}
	})

	t.Run("missing project name", func(t *testing.T) {
		path := writeTempConfig(t, "version: 1\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("unsupported version", func(t *testing.T) {
		path := writeTempConfig(t, "project: p\nversion: 2\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("unknown database backend", func(t *testing.T) {
		path := writeTempConfig(t, "project: p\nversion: 1\ndatabase:\n  backend: oracle\n  dsn: x\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("postgres requires a dsn", func(t *testing.T) {
		path := writeTempConfig(t, "project: p\nversion: 1\ndatabase:\n  backend: postgres\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("unknown similarity backend", func(t *testing.T) {
		path := writeTempConfig(t, "project: p\nversion: 1\nsimilarity:\n  backend: pinecone\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("out of range dedup threshold", func(t *testing.T) {
		path := writeTempConfig(t, "project: p\nversion: 1\nstaging:\n  dedup_threshold: 1.5\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("file not found", func(t *testing.T) {
		if _, err := LoadProjectConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeTempConfig(t, "project: [\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestDefault(t *testing.T) {
	cfg := Default("fresh")
	if cfg.Project != "fresh" || cfg.Version != 1 {
		t.Errorf("header = %q v%d", cfg.Project, cfg.Version)
	}
	if err := validateProjectConfig(cfg); err != nil {
		t.Errorf("Default() does not validate: %v", err)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("LOREKEEPER_TEST_KEY", "sk-123")
	t.Setenv("LOREKEEPER_TEST_SECRET", "hush")

	openai := OpenAIConfig{APIKeyEnv: "LOREKEEPER_TEST_KEY"}
	if got := openai.APIKey(); got != "sk-123" {
		t.Errorf("APIKey = %q", got)
	}
	auth := AuthConfig{JWTSecretEnv: "LOREKEEPER_TEST_SECRET"}
	if got := auth.JWTSecret(); got != "hush" {
		t.Errorf("JWTSecret = %q", got)
	}
	// Slack is optional; an unset env name means no token, not a lookup
	// of the empty variable.
	notifications := NotificationsConfig{}
	if got := notifications.SlackToken(); got != "" {
		t.Errorf("SlackToken = %q, want empty", got)
	}
}

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}
