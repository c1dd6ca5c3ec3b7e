package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

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

	query := `
INSERT INTO entities (id, campaign_id, name, name_normalized, entity_type, status, description, metadata, is_placeholder, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, now(), now())
ON CONFLICT (campaign_id, name_normalized) DO UPDATE SET
    name = EXCLUDED.name,
    entity_type = CASE WHEN EXCLUDED.entity_type <> '' THEN EXCLUDED.entity_type ELSE entities.entity_type END,
    status = CASE WHEN EXCLUDED.status <> '' THEN EXCLUDED.status ELSE entities.status END,
    description = CASE WHEN EXCLUDED.description <> '' THEN EXCLUDED.description ELSE entities.description END,
    metadata = CASE WHEN EXCLUDED.metadata::text <> '{}' THEN EXCLUDED.metadata ELSE entities.metadata END,
    is_placeholder = FALSE,
    updated_at = now()
`

	_, err = c.pool.Exec(ctx, query,
		e.ID,
		e.CampaignID,
		e.Name,
		nameNormalized,
		e.Type,
		e.Status,
		e.Description,
		metadataJSON,
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

	query := fmt.Sprintf(`
SELECT %s
FROM entities
WHERE campaign_id = $1 AND id = ANY($2)
ORDER BY name_normalized ASC
`, entityColumns)

	return c.queryEntities(ctx, query, campaignID, ids)
}

func (c *Client) ListEntities(ctx context.Context, campaignID string) ([]store.Entity, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM entities
WHERE campaign_id = $1
ORDER BY name_normalized ASC
`, entityColumns)

	return c.queryEntities(ctx, query, campaignID)
}

func (c *Client) ListEntitiesByType(ctx context.Context, campaignID, entityType string) ([]store.Entity, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM entities
WHERE campaign_id = $1
  AND ($2 = '' OR entity_type = $2)
  AND is_placeholder = FALSE
ORDER BY name_normalized ASC
`, entityColumns)

	return c.queryEntities(ctx, query, campaignID, entityType)
}

func (c *Client) queryEntities(ctx context.Context, query string, args ...any) ([]store.Entity, error) {
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	var entities []store.Entity
	for rows.Next() {
		var e store.Entity
		var nameNormalized string
		var metadataBytes []byte
		err := rows.Scan(
			&e.ID, &e.CampaignID, &e.Name, &nameNormalized, &e.Type,
			&e.Status, &e.Description, &metadataBytes, &e.Placeholder,
			&e.CreatedAt, &e.UpdatedAt,
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
