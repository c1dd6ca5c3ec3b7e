package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"lorekeeper/internal/store"
)

const entityColumns = "id, campaign_id, name, name_normalized, entity_type, status, description, metadata, is_placeholder, created_at, updated_at"

func (c *Client) UpsertEntity(ctx context.Context, e store.Entity) error {
	nameNormalized := strings.ToLower(strings.TrimSpace(e.Name))
	if nameNormalized == "" {
		return fmt.Errorf("entity name must not be empty")
	}

	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	now := formatTime(time.Now())

	query := `
	INSERT INTO entities (id, campaign_id, name, name_normalized, entity_type, status, description, metadata, is_placeholder, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	ON CONFLICT (campaign_id, name_normalized) DO UPDATE SET
		name = excluded.name,
		entity_type = CASE WHEN excluded.entity_type != '' THEN excluded.entity_type ELSE entities.entity_type END,
		status = CASE WHEN excluded.status != '' THEN excluded.status ELSE entities.status END,
		description = CASE WHEN excluded.description != '' THEN excluded.description ELSE entities.description END,
		metadata = CASE WHEN excluded.metadata != '{}' THEN excluded.metadata ELSE entities.metadata END,
		is_placeholder = 0,
		updated_at = excluded.updated_at
	`

	_, err = c.db.ExecContext(ctx, query,
		e.ID,
		e.CampaignID,
		e.Name,
		nameNormalized,
		e.Type,
		e.Status,
		e.Description,
		metadataJSON,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("upserting entity: %w", err)
	}
	return nil
}

func (c *Client) GetEntitiesByID(ctx context.Context, campaignID string, ids []string) ([]store.Entity, error) {
	if len(ids) == 0 {
		return []store.Entity{}, nil
	}

	placeholders := make([]string, len(ids))
	args := []any{campaignID}
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := fmt.Sprintf(`
	SELECT %s
	FROM entities
	WHERE campaign_id = ? AND id IN (%s)
	ORDER BY name_normalized ASC
	`, entityColumns, strings.Join(placeholders, ","))

	return c.queryEntities(ctx, query, args...)
}

func (c *Client) ListEntities(ctx context.Context, campaignID string) ([]store.Entity, error) {
	query := fmt.Sprintf(`
	SELECT %s
	FROM entities
	WHERE campaign_id = ?
	ORDER BY name_normalized ASC
	`, entityColumns)

	return c.queryEntities(ctx, query, campaignID)
}

func (c *Client) ListEntitiesByType(ctx context.Context, campaignID, entityType string) ([]store.Entity, error) {
	query := fmt.Sprintf(`
	SELECT %s
	FROM entities
	WHERE campaign_id = ?
	  AND (? = '' OR entity_type = ?)
	  AND is_placeholder = 0
	ORDER BY name_normalized ASC
	`, entityColumns)

	return c.queryEntities(ctx, query, campaignID, entityType, entityType)
}

func (c *Client) queryEntities(ctx context.Context, query string, args ...any) ([]store.Entity, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	var entities []store.Entity
	for rows.Next() {
		var e store.Entity
		var nameNormalized string
		var metadataBytes []byte
		var placeholder int
		var createdAt, updatedAt string
		err := rows.Scan(
			&e.ID, &e.CampaignID, &e.Name, &nameNormalized, &e.Type,
			&e.Status, &e.Description, &metadataBytes, &placeholder,
			&createdAt, &updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		if len(metadataBytes) > 0 {
			if err := json.Unmarshal(metadataBytes, &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling metadata: %w", err)
			}
		}
		if e.Metadata == nil {
			e.Metadata = map[string]any{}
		}
		e.Placeholder = placeholder != 0
		e.CreatedAt = parseTime(createdAt)
		e.UpdatedAt = parseTime(updatedAt)
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entity rows: %w", err)
	}

	if entities == nil {
		entities = []store.Entity{}
	}
	return entities, nil
}
