package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lorekeeper/internal/store"
)

func (c *Client) InsertShard(ctx context.Context, s store.Shard) error {
	entityIDs := s.EntityIDs
	if len(entityIDs) == 0 {
		entityIDs = nil
	}

	query := `
INSERT INTO shards (id, campaign_id, shard_type, title, content, confidence, source_ref, status, content_hash, entity_ids, created_at, search_vector)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, '{}'::text[]), $11,
    setweight(to_tsvector('simple', coalesce($4, '')), 'A') ||
    setweight(to_tsvector('english', coalesce($5, '')), 'B')
)
`

	_, err := c.pool.Exec(ctx, query,
		s.ID,
		s.CampaignID,
		s.Type,
		s.Title,
		s.Content,
		s.Confidence,
		s.SourceRef,
		s.Status,
		s.ContentHash,
		entityIDs,
		orNow(s.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting shard: %w", err)
	}
	return nil
}

func (c *Client) GetShard(ctx context.Context, campaignID, id string) (*store.Shard, error) {
	query := `
SELECT id, campaign_id, shard_type, title, content, confidence, source_ref, status, content_hash, entity_ids, created_at
FROM shards
WHERE campaign_id = $1 AND id = $2
`

	var s store.Shard
	err := c.pool.QueryRow(ctx, query, campaignID, id).Scan(
		&s.ID, &s.CampaignID, &s.Type, &s.Title, &s.Content,
		&s.Confidence, &s.SourceRef, &s.Status, &s.ContentHash,
		&s.EntityIDs, &s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning shard: %w", err)
	}
	if s.EntityIDs == nil {
		s.EntityIDs = []string{}
	}
	return &s, nil
}

func (c *Client) ListShards(ctx context.Context, campaignID, status string) ([]store.Shard, error) {
	query := `
SELECT id, campaign_id, shard_type, title, content, confidence, source_ref, status, content_hash, entity_ids, created_at
FROM shards
WHERE campaign_id = $1
  AND ($2 = '' OR status = $2)
ORDER BY created_at DESC
`

	rows, err := c.pool.Query(ctx, query, campaignID, status)
	if err != nil {
		return nil, fmt.Errorf("listing shards: %w", err)
	}
	defer rows.Close()

	var shards []store.Shard
	for rows.Next() {
		var s store.Shard
		err := rows.Scan(
			&s.ID, &s.CampaignID, &s.Type, &s.Title, &s.Content,
			&s.Confidence, &s.SourceRef, &s.Status, &s.ContentHash,
			&s.EntityIDs, &s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning shard: %w", err)
		}
		if s.EntityIDs == nil {
			s.EntityIDs = []string{}
		}
		shards = append(shards, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating shard rows: %w", err)
	}

	if shards == nil {
		shards = []store.Shard{}
	}
	return shards, nil
}

// UpdateShardStatus applies the one allowed lifecycle transition. Only
// pending shards move; anything else reports false with no change.
func (c *Client) UpdateShardStatus(ctx context.Context, campaignID, id, status string) (bool, error) {
	query := `
UPDATE shards
SET status = $1
WHERE campaign_id = $2 AND id = $3 AND status = 'pending'
`

	tag, err := c.pool.Exec(ctx, query, status, campaignID, id)
	if err != nil {
		return false, fmt.Errorf("updating shard status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
