package validate

import (
	"context"
	"time"

	"lorekeeper/internal/store"
)

// Store is the read-only slice of the persistence layer the audit walks.
type Store interface {
	ListEntities(ctx context.Context, campaignID string) ([]store.Entity, error)
	ListRelationships(ctx context.Context, campaignID string) ([]store.Relationship, error)
	ListWorldState(ctx context.Context, campaignID string, since time.Time) ([]store.WorldStateEntry, error)
	ListTasks(ctx context.Context, campaignID string, statuses ...string) ([]store.PlanningTask, error)
	GetShard(ctx context.Context, campaignID, id string) (*store.Shard, error)
}
