package postgres

import (
	"context"
	"fmt"
	"strings"

	"lorekeeper/internal/store"
)

// UpsertRelationship stores an edge between two entities. Endpoints that do
// not exist yet are inserted as placeholder rows so the edge is never
// dangling; a later entity upsert fills them in.
func (c *Client) UpsertRelationship(ctx context.Context, r store.Relationship) error {
	if strings.TrimSpace(r.FromID) == "" || strings.TrimSpace(r.ToID) == "" {
		return fmt.Errorf("relationship endpoints must not be empty")
	}

	relType := strings.TrimSpace(r.Type)
	if relType == "" {
		relType = "related_to"
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	placeholderQuery := `
INSERT INTO entities (id, campaign_id, name, name_normalized, entity_type, status, description, metadata, is_placeholder, created_at, updated_at)
VALUES ($1, $2, $1, lower($1), 'other', '', '', '{}', TRUE, now(), now())
ON CONFLICT (id) DO NOTHING
`
	for _, id := range []string{r.FromID, r.ToID} {
		if _, err := tx.Exec(ctx, placeholderQuery, id, r.CampaignID); err != nil {
			return fmt.Errorf("upserting placeholder entity: %w", err)
		}
	}

	edgeQuery := `
INSERT INTO relationships (campaign_id, from_id, to_id, rel_type, status, description)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (campaign_id, from_id, to_id, rel_type) DO UPDATE SET
    status = CASE WHEN EXCLUDED.status <> '' THEN EXCLUDED.status ELSE relationships.status END,
    description = CASE WHEN EXCLUDED.description <> '' THEN EXCLUDED.description ELSE relationships.description END
`
	if _, err := tx.Exec(ctx, edgeQuery, r.CampaignID, r.FromID, r.ToID, relType, r.Status, r.Description); err != nil {
		return fmt.Errorf("upserting relationship: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (c *Client) ListRelationships(ctx context.Context, campaignID string) ([]store.Relationship, error) {
	query := `
SELECT campaign_id, from_id, to_id, rel_type, status, description
FROM relationships
WHERE campaign_id = $1
ORDER BY from_id ASC, to_id ASC, rel_type ASC
`

	rows, err := c.pool.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("listing relationships: %w", err)
	}
	defer rows.Close()

	var relationships []store.Relationship
	for rows.Next() {
		var r store.Relationship
		if err := rows.Scan(&r.CampaignID, &r.FromID, &r.ToID, &r.Type, &r.Status, &r.Description); err != nil {
			return nil, fmt.Errorf("scanning relationship: %w", err)
		}
		relationships = append(relationships, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating relationship rows: %w", err)
	}

	if relationships == nil {
		relationships = []store.Relationship{}
	}
	return relationships, nil
}

// Neighbors walks one hop out from the seed entities, taking at most perNode
// neighbors per seed and at most total overall. Seeds themselves are not
// returned.
func (c *Client) Neighbors(ctx context.Context, campaignID string, entityIDs []string, perNode, total int) ([]store.Entity, error) {
	if len(entityIDs) == 0 || perNode < 1 || total < 1 {
		return []store.Entity{}, nil
	}

	visited := make(map[string]bool, len(entityIDs))
	for _, id := range entityIDs {
		visited[id] = true
	}

	query := fmt.Sprintf(`
SELECT %s FROM (
    SELECT e.id, e.campaign_id, e.name, e.name_normalized, e.entity_type, e.status, e.description, e.metadata, e.is_placeholder, e.created_at, e.updated_at
    FROM relationships r
    JOIN entities e ON e.id = r.to_id
    WHERE r.campaign_id = $1 AND r.from_id = $2 AND e.is_placeholder = FALSE
    UNION
    SELECT e.id, e.campaign_id, e.name, e.name_normalized, e.entity_type, e.status, e.description, e.metadata, e.is_placeholder, e.created_at, e.updated_at
    FROM relationships r
    JOIN entities e ON e.id = r.from_id
    WHERE r.campaign_id = $1 AND r.to_id = $2 AND e.is_placeholder = FALSE
) neighbors
ORDER BY name_normalized ASC
LIMIT $3
`, entityColumns)

	var pool []store.Entity
	for _, seed := range entityIDs {
		if len(pool) >= total {
			break
		}

		neighbors, err := c.queryEntities(ctx, query, campaignID, seed, perNode)
		if err != nil {
			return nil, fmt.Errorf("querying neighbors of %s: %w", seed, err)
		}

		for _, n := range neighbors {
			if visited[n.ID] {
				continue
			}
			visited[n.ID] = true
			pool = append(pool, n)
			if len(pool) >= total {
				break
			}
		}
	}

	if pool == nil {
		pool = []store.Entity{}
	}
	return pool, nil
}
