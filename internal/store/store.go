package store

import (
	"context"
	"time"
)

type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	CreateCampaign(ctx context.Context, c Campaign) error
	GetCampaign(ctx context.Context, id string) (*Campaign, error)
	GetCampaignForOwner(ctx context.Context, id, owner string) (*Campaign, error)
	ListCampaigns(ctx context.Context, owner string) ([]Campaign, error)

	InsertShard(ctx context.Context, s Shard) error
	GetShard(ctx context.Context, campaignID, id string) (*Shard, error)
	ListShards(ctx context.Context, campaignID, status string) ([]Shard, error)
	UpdateShardStatus(ctx context.Context, campaignID, id, status string) (bool, error)
	SearchShards(ctx context.Context, campaignID, query string, limit int) ([]ShardSearchResult, error)

	InsertTask(ctx context.Context, t PlanningTask) error
	GetTask(ctx context.Context, campaignID, id string) (*PlanningTask, error)
	ListTasks(ctx context.Context, campaignID string, statuses ...string) ([]PlanningTask, error)
	CompleteTask(ctx context.Context, campaignID, id, linkedContentID string) (bool, error)
	CountTasksByStatus(ctx context.Context, campaignID string) (map[string]int, error)

	AppendWorldState(ctx context.Context, e WorldStateEntry) error
	ListWorldState(ctx context.Context, campaignID string, since time.Time) ([]WorldStateEntry, error)

	UpsertEntity(ctx context.Context, e Entity) error
	GetEntitiesByID(ctx context.Context, campaignID string, ids []string) ([]Entity, error)
	ListEntities(ctx context.Context, campaignID string) ([]Entity, error)
	ListEntitiesByType(ctx context.Context, campaignID, entityType string) ([]Entity, error)
	UpsertRelationship(ctx context.Context, r Relationship) error
	ListRelationships(ctx context.Context, campaignID string) ([]Relationship, error)
	Neighbors(ctx context.Context, campaignID string, entityIDs []string, perNode, total int) ([]Entity, error)

	InsertSessionDigest(ctx context.Context, d SessionDigest) error
	ListSessionDigests(ctx context.Context, campaignID string, limit int) ([]SessionDigest, error)
}
