package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lorekeeper/internal/auth"
	"lorekeeper/internal/config"
	"lorekeeper/internal/llm"
	"lorekeeper/internal/metrics"
	"lorekeeper/internal/notify"
	"lorekeeper/internal/ops"
	"lorekeeper/internal/planner"
	"lorekeeper/internal/recap"
	"lorekeeper/internal/similarity"
	"lorekeeper/internal/staging"
	"lorekeeper/internal/store"
	"lorekeeper/internal/store/postgres"
	"lorekeeper/internal/store/sqlite"
	"lorekeeper/internal/tasks"
	"lorekeeper/internal/worldstate"
)

func openStore(ctx context.Context, cfg *config.ProjectConfig) (store.Store, error) {
	switch cfg.Database.Backend {
	case "postgres":
		return postgres.New(ctx, cfg.Database.DSN)
	default:
		return sqlite.New(ctx, cfg.Database.DSN)
	}
}

func buildOracle(cfg *config.ProjectConfig, db store.Store) (similarity.Oracle, error) {
	weights := similarity.Weights{
		Alpha:        cfg.Similarity.RecencyWeight,
		HalfLifeDays: float64(cfg.Similarity.RecencyHalfLifeDays),
	}
	switch cfg.Similarity.Backend {
	case "openai":
		key := cfg.OpenAI.APIKey()
		if key == "" {
			return nil, fmt.Errorf("similarity backend %q requires %s", cfg.Similarity.Backend, cfg.OpenAI.APIKeyEnv)
		}
		embed := similarity.NewOpenAIEmbedding(key, cfg.OpenAI.EmbeddingModel)
		return similarity.NewVectorOracle(cfg.Similarity.Path, true, embed, weights)
	default:
		return similarity.NewLexicalOracle(db, weights), nil
	}
}

// buildEngine wires every service the engine delegates to. The returned
// engine owns no connections; closing the store is the caller's job.
func buildEngine(cfg *config.ProjectConfig, db store.Store, m *metrics.Metrics, logger *zap.Logger) (*ops.Engine, error) {
	secret := cfg.Auth.JWTSecret()
	if secret == "" {
		return nil, fmt.Errorf("%s is not set; cannot authenticate callers", cfg.Auth.JWTSecretEnv)
	}
	verifier, err := auth.NewJWTVerifier(secret)
	if err != nil {
		return nil, fmt.Errorf("building token verifier: %w", err)
	}

	oracle, err := buildOracle(cfg, db)
	if err != nil {
		return nil, fmt.Errorf("building similarity oracle: %w", err)
	}

	// Without an API key the planner reports the missing credential at
	// call time instead of blocking everything else at startup.
	var provider llm.Provider
	if key := cfg.OpenAI.APIKey(); key != "" {
		provider = llm.NewOpenAI(key, cfg.OpenAI.Model, int64(cfg.OpenAI.MaxOutputTokens))
	}

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if token := cfg.Notifications.SlackToken(); token != "" && cfg.Notifications.SlackChannel != "" {
		slack, err := notify.NewSlackNotifier(token, cfg.Notifications.SlackChannel)
		if err != nil {
			return nil, fmt.Errorf("building slack notifier: %w", err)
		}
		notifier = slack
	}

	taskSvc := tasks.NewService(db, tasks.KeywordScorer{}, cfg.Linker.MinScore, logger)
	stagingSvc := staging.NewService(db, oracle, taskSvc, notifier, staging.Thresholds{
		Dedup:    cfg.Staging.DedupThreshold,
		Explicit: cfg.Staging.ExplicitConfidence,
	}, logger)
	worldSvc := worldstate.NewService(db, logger)
	recapSvc := recap.NewService(db, worldSvc, taskSvc, cfg.Recap.DigestCount, logger)
	planSvc := planner.NewService(db, oracle, provider, planner.KeywordClassifier{}, planner.Options{
		SearchTopN:         cfg.Planner.SearchTopN,
		NeighborsPerEntity: cfg.Planner.NeighborsPerEntity,
		EntityPoolCap:      cfg.Planner.EntityPoolCap,
		ContextWindow:      cfg.Planner.ContextWindow,
	}, logger)

	return ops.NewEngine(ops.Deps{
		Store:   db,
		Auth:    verifier,
		Staging: stagingSvc,
		World:   worldSvc,
		Tasks:   taskSvc,
		Recap:   recapSvc,
		Planner: planSvc,
		Search:  oracle,
		Metrics: m,
		Logger:  logger,
	}), nil
}
