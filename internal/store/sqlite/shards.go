package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"lorekeeper/internal/store"
)

func (c *Client) InsertShard(ctx context.Context, s store.Shard) error {
	entityIDs := s.EntityIDs
	if entityIDs == nil {
		entityIDs = []string{}
	}
	entityIDsJSON, err := json.Marshal(entityIDs)
	if err != nil {
		return fmt.Errorf("marshaling entity ids: %w", err)
	}

	query := `
	INSERT INTO shards (id, campaign_id, shard_type, title, content, confidence, source_ref, status, content_hash, entity_ids, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = c.db.ExecContext(ctx, query,
		s.ID,
		s.CampaignID,
		s.Type,
		s.Title,
		s.Content,
		s.Confidence,
		s.SourceRef,
		s.Status,
		s.ContentHash,
		entityIDsJSON,
		formatTime(s.CreatedAt),
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
	WHERE campaign_id = ? AND id = ?
	`

	row := c.db.QueryRowContext(ctx, query, campaignID, id)

	var s store.Shard
	var entityIDsBytes []byte
	var createdAt string
	err := row.Scan(
		&s.ID, &s.CampaignID, &s.Type, &s.Title, &s.Content,
		&s.Confidence, &s.SourceRef, &s.Status, &s.ContentHash,
		&entityIDsBytes, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning shard: %w", err)
	}

	if len(entityIDsBytes) > 0 {
		if err := json.Unmarshal(entityIDsBytes, &s.EntityIDs); err != nil {
			return nil, fmt.Errorf("unmarshaling entity ids: %w", err)
		}
	}
	if s.EntityIDs == nil {
		s.EntityIDs = []string{}
	}
	s.CreatedAt = parseTime(createdAt)
	return &s, nil
}

func (c *Client) ListShards(ctx context.Context, campaignID, status string) ([]store.Shard, error) {
	query := `
	SELECT id, campaign_id, shard_type, title, content, confidence, source_ref, status, content_hash, entity_ids, created_at
	FROM shards
	WHERE campaign_id = ?
	  AND (? = '' OR status = ?)
	ORDER BY created_at DESC
	`

	rows, err := c.db.QueryContext(ctx, query, campaignID, status, status)
	if err != nil {
		return nil, fmt.Errorf("listing shards: %w", err)
	}
	defer rows.Close()

	var shards []store.Shard
	for rows.Next() {
		var s store.Shard
		var entityIDsBytes []byte
		var createdAt string
		err := rows.Scan(
			&s.ID, &s.CampaignID, &s.Type, &s.Title, &s.Content,
			&s.Confidence, &s.SourceRef, &s.Status, &s.ContentHash,
			&entityIDsBytes, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning shard: %w", err)
		}
		if len(entityIDsBytes) > 0 {
			if err := json.Unmarshal(entityIDsBytes, &s.EntityIDs); err != nil {
				return nil, fmt.Errorf("unmarshaling entity ids: %w", err)
			}
		}
		if s.EntityIDs == nil {
			s.EntityIDs = []string{}
		}
		s.CreatedAt = parseTime(createdAt)
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
	SET status = ?
	WHERE campaign_id = ? AND id = ? AND status = 'pending'
	`

	res, err := c.db.ExecContext(ctx, query, status, campaignID, id)
	if err != nil {
		return false, fmt.Errorf("updating shard status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	return n > 0, nil
}
