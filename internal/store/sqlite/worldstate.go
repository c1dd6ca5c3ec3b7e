package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lorekeeper/internal/store"
)

// AppendWorldState inserts a changelog entry. Entries are never updated or
// deleted afterwards.
func (c *Client) AppendWorldState(ctx context.Context, e store.WorldStateEntry) error {
	entityUpdates := e.EntityUpdates
	if entityUpdates == nil {
		entityUpdates = []store.EntityUpdate{}
	}
	relationshipUpdates := e.RelationshipUpdates
	if relationshipUpdates == nil {
		relationshipUpdates = []store.RelationshipUpdate{}
	}
	newEntities := e.NewEntities
	if newEntities == nil {
		newEntities = []store.NewEntity{}
	}

	entityJSON, err := json.Marshal(entityUpdates)
	if err != nil {
		return fmt.Errorf("marshaling entity updates: %w", err)
	}
	relationshipJSON, err := json.Marshal(relationshipUpdates)
	if err != nil {
		return fmt.Errorf("marshaling relationship updates: %w", err)
	}
	newEntityJSON, err := json.Marshal(newEntities)
	if err != nil {
		return fmt.Errorf("marshaling new entities: %w", err)
	}

	query := `
	INSERT INTO world_state_entries (id, campaign_id, session_number, entity_updates, relationship_updates, new_entities, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = c.db.ExecContext(ctx, query,
		e.ID, e.CampaignID, e.SessionNumber,
		entityJSON, relationshipJSON, newEntityJSON,
		formatTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("appending world state entry: %w", err)
	}
	return nil
}

func (c *Client) ListWorldState(ctx context.Context, campaignID string, since time.Time) ([]store.WorldStateEntry, error) {
	sinceStr := ""
	if !since.IsZero() {
		sinceStr = formatTime(since)
	}

	query := `
	SELECT id, campaign_id, session_number, entity_updates, relationship_updates, new_entities, created_at
	FROM world_state_entries
	WHERE campaign_id = ?
	  AND (? = '' OR created_at >= ?)
	ORDER BY created_at ASC, id ASC
	`

	rows, err := c.db.QueryContext(ctx, query, campaignID, sinceStr, sinceStr)
	if err != nil {
		return nil, fmt.Errorf("listing world state entries: %w", err)
	}
	defer rows.Close()

	var entries []store.WorldStateEntry
	for rows.Next() {
		var e store.WorldStateEntry
		var entityBytes, relationshipBytes, newEntityBytes []byte
		var createdAt string
		err := rows.Scan(&e.ID, &e.CampaignID, &e.SessionNumber,
			&entityBytes, &relationshipBytes, &newEntityBytes, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scanning world state entry: %w", err)
		}

		if len(entityBytes) > 0 {
			if err := json.Unmarshal(entityBytes, &e.EntityUpdates); err != nil {
				return nil, fmt.Errorf("unmarshaling entity updates: %w", err)
			}
		}
		if len(relationshipBytes) > 0 {
			if err := json.Unmarshal(relationshipBytes, &e.RelationshipUpdates); err != nil {
				return nil, fmt.Errorf("unmarshaling relationship updates: %w", err)
			}
		}
		if len(newEntityBytes) > 0 {
			if err := json.Unmarshal(newEntityBytes, &e.NewEntities); err != nil {
				return nil, fmt.Errorf("unmarshaling new entities: %w", err)
			}
		}
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating world state rows: %w", err)
	}

	if entries == nil {
		entries = []store.WorldStateEntry{}
	}
	return entries, nil
}
