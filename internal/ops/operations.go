package ops

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	lkerrors "lorekeeper/internal/errors"
	"lorekeeper/internal/planner"
	"lorekeeper/internal/similarity"
	"lorekeeper/internal/store"
	"lorekeeper/internal/worldstate"
)

func (e *Engine) CreateCampaign(ctx context.Context, token, name, system, description string) Result {
	return e.userOp(ctx, "create_campaign", token, func(ctx context.Context, username string) (string, any, error) {
		name = strings.TrimSpace(name)
		if name == "" {
			return "", nil, lkerrors.NewFieldError("name", "must not be empty")
		}
		campaign := store.Campaign{
			ID:          uuid.NewString(),
			Name:        name,
			Owner:       username,
			System:      strings.TrimSpace(system),
			Description: strings.TrimSpace(description),
			CreatedAt:   time.Now().UTC(),
		}
		if err := e.db.CreateCampaign(ctx, campaign); err != nil {
			return "", nil, fmt.Errorf("creating campaign: %w", err)
		}
		return fmt.Sprintf("created campaign %q", name), campaign, nil
	})
}

func (e *Engine) ListCampaigns(ctx context.Context, token string) Result {
	return e.userOp(ctx, "list_campaigns", token, func(ctx context.Context, username string) (string, any, error) {
		campaigns, err := e.db.ListCampaigns(ctx, username)
		if err != nil {
			return "", nil, fmt.Errorf("listing campaigns: %w", err)
		}
		return fmt.Sprintf("%d campaign(s)", len(campaigns)), campaigns, nil
	})
}

func (e *Engine) StageContext(ctx context.Context, token, campaignID string, items []store.ShardInput) Result {
	return e.campaignOp(ctx, "stage_context", token, campaignID, func(ctx context.Context, campaign *store.Campaign) (string, any, error) {
		report, err := e.staging.StageBatch(ctx, campaign, items)
		if err != nil {
			return "", nil, err
		}
		for _, outcome := range report.Outcomes {
			if outcome.Deduplicated {
				e.metrics.RecordShard("deduplicated")
			} else {
				e.metrics.RecordShard("staged")
			}
			if outcome.LinkedTaskID != "" {
				e.metrics.RecordTaskLinked()
			}
		}
		msg := fmt.Sprintf("staged %d shard(s), skipped %d duplicate(s)", report.Staged, report.Duplicates)
		return msg, report, nil
	})
}

func (e *Engine) ReviewShard(ctx context.Context, token, campaignID, shardID, decision string) Result {
	return e.campaignOp(ctx, "review_shard", token, campaignID, func(ctx context.Context, campaign *store.Campaign) (string, any, error) {
		shard, err := e.staging.Review(ctx, campaign.ID, shardID, decision)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("shard %s", shard.Status), shard, nil
	})
}

func (e *Engine) ListShards(ctx context.Context, token, campaignID, status string) Result {
	return e.campaignOp(ctx, "list_shards", token, campaignID, func(ctx context.Context, campaign *store.Campaign) (string, any, error) {
		shards, err := e.staging.ListShards(ctx, campaign.ID, status)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%d shard(s)", len(shards)), shards, nil
	})
}

func (e *Engine) RecordWorldState(ctx context.Context, token, campaignID string, sessionNumber int, updates []store.EntityUpdate, relationships []store.RelationshipUpdate, newEntities []store.NewEntity) Result {
	return e.campaignOp(ctx, "record_world_state", token, campaignID, func(ctx context.Context, campaign *store.Campaign) (string, any, error) {
		entry, err := e.world.Record(ctx, worldstate.RecordInput{
			CampaignID:          campaign.ID,
			SessionNumber:       sessionNumber,
			EntityUpdates:       updates,
			RelationshipUpdates: relationships,
			NewEntities:         newEntities,
		})
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("recorded world state entry %s", entry.ID), entry, nil
	})
}

func (e *Engine) GetEntityState(ctx context.Context, token, campaignID, entityID string) Result {
	return e.campaignOp(ctx, "get_entity_state", token, campaignID, func(ctx context.Context, campaign *store.Campaign) (string, any, error) {
		state, err := e.world.EntityState(ctx, campaign.ID, entityID)
		if err != nil {
			return "", nil, err
		}
		if state == nil {
			return "", nil, fmt.Errorf("%w: entity %s has no recorded state", lkerrors.ErrNotFound, entityID)
		}
		return fmt.Sprintf("state for %s", entityID), state, nil
	})
}

func (e *Engine) GetRecap(ctx context.Context, token, campaignID string, since time.Time) Result {
	return e.campaignOp(ctx, "get_recap", token, campaignID, func(ctx context.Context, campaign *store.Campaign) (string, any, error) {
		rec, err := e.recaps.Build(ctx, campaign.ID, since)
		if err != nil {
			return "", nil, err
		}
		msg := fmt.Sprintf("recap for %q: %d open task(s), %d completed", campaign.Name, rec.OpenCount, rec.CompletedCount)
		return msg, rec, nil
	})
}

func (e *Engine) PlanSession(ctx context.Context, token, campaignID string, req planner.Request) Result {
	return e.campaignOp(ctx, "plan_session", token, campaignID, func(ctx context.Context, campaign *store.Campaign) (string, any, error) {
		plan, err := e.planner.Plan(ctx, campaign, req)
		if err != nil {
			return "", nil, err
		}
		msg := fmt.Sprintf("planned %q with %d gap(s)", req.Title, len(plan.Gaps))
		return msg, plan, nil
	})
}

func (e *Engine) CreateTasks(ctx context.Context, token, campaignID string, titles []string) Result {
	return e.campaignOp(ctx, "create_tasks", token, campaignID, func(ctx context.Context, campaign *store.Campaign) (string, any, error) {
		created, err := e.tasks.CreateTasks(ctx, campaign.ID, titles)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("created %d task(s)", len(created)), created, nil
	})
}

func (e *Engine) ListTasks(ctx context.Context, token, campaignID string, statuses []string) Result {
	return e.campaignOp(ctx, "list_tasks", token, campaignID, func(ctx context.Context, campaign *store.Campaign) (string, any, error) {
		list, err := e.tasks.List(ctx, campaign.ID, statuses...)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%d task(s)", len(list)), list, nil
	})
}

func (e *Engine) CompleteTask(ctx context.Context, token, campaignID, taskID, linkedContentID string) Result {
	return e.campaignOp(ctx, "complete_task", token, campaignID, func(ctx context.Context, campaign *store.Campaign) (string, any, error) {
		task, changed, err := e.tasks.Complete(ctx, campaign.ID, taskID, linkedContentID)
		if err != nil {
			return "", nil, err
		}
		msg := "task completed"
		if !changed {
			msg = "task was already completed"
		}
		return msg, task, nil
	})
}

func (e *Engine) SearchCampaign(ctx context.Context, token, campaignID, query string, topN int, recencyWeighted bool) Result {
	return e.campaignOp(ctx, "search_campaign", token, campaignID, func(ctx context.Context, campaign *store.Campaign) (string, any, error) {
		if strings.TrimSpace(query) == "" {
			return "", nil, lkerrors.NewFieldError("query", "must not be empty")
		}
		if topN < 1 {
			topN = similarity.DefaultTopN
		}
		matches, err := e.search.Search(ctx, campaign.ID, query, topN, recencyWeighted)
		if err != nil {
			return "", nil, fmt.Errorf("%w: searching campaign content: %v", lkerrors.ErrUnavailable, err)
		}
		return fmt.Sprintf("%d match(es)", len(matches)), matches, nil
	})
}

func (e *Engine) RecordSessionDigest(ctx context.Context, token, campaignID string, sessionNumber int, title, summary string) Result {
	return e.campaignOp(ctx, "record_session_digest", token, campaignID, func(ctx context.Context, campaign *store.Campaign) (string, any, error) {
		if strings.TrimSpace(title) == "" {
			return "", nil, lkerrors.NewFieldError("title", "must not be empty")
		}
		if strings.TrimSpace(summary) == "" {
			return "", nil, lkerrors.NewFieldError("summary", "must not be empty")
		}
		if sessionNumber < 1 {
			return "", nil, lkerrors.NewFieldError("session_number", "must be positive")
		}
		digest := store.SessionDigest{
			ID:            uuid.NewString(),
			CampaignID:    campaign.ID,
			SessionNumber: sessionNumber,
			Title:         strings.TrimSpace(title),
			Summary:       strings.TrimSpace(summary),
			CreatedAt:     time.Now().UTC(),
		}
		if err := e.db.InsertSessionDigest(ctx, digest); err != nil {
			return "", nil, fmt.Errorf("inserting session digest: %w", err)
		}
		return fmt.Sprintf("recorded digest for session %d", sessionNumber), digest, nil
	})
}
