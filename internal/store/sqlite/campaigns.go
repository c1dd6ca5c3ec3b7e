package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lorekeeper/internal/store"
)

func (c *Client) CreateCampaign(ctx context.Context, cam store.Campaign) error {
	query := `
	INSERT INTO campaigns (id, name, owner, system, description, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.ExecContext(ctx, query,
		cam.ID, cam.Name, cam.Owner, cam.System, cam.Description, formatTime(cam.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting campaign: %w", err)
	}
	return nil
}

func (c *Client) GetCampaign(ctx context.Context, id string) (*store.Campaign, error) {
	query := `
	SELECT id, name, owner, system, description, created_at
	FROM campaigns
	WHERE id = ?
	`
	return scanCampaignRow(c.db.QueryRowContext(ctx, query, id))
}

func (c *Client) GetCampaignForOwner(ctx context.Context, id, owner string) (*store.Campaign, error) {
	query := `
	SELECT id, name, owner, system, description, created_at
	FROM campaigns
	WHERE id = ? AND owner = ?
	`
	return scanCampaignRow(c.db.QueryRowContext(ctx, query, id, owner))
}

func (c *Client) ListCampaigns(ctx context.Context, owner string) ([]store.Campaign, error) {
	query := `
	SELECT id, name, owner, system, description, created_at
	FROM campaigns
	WHERE (? = '' OR owner = ?)
	ORDER BY created_at DESC
	`

	rows, err := c.db.QueryContext(ctx, query, owner, owner)
	if err != nil {
		return nil, fmt.Errorf("listing campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []store.Campaign
	for rows.Next() {
		var cam store.Campaign
		var createdAt string
		if err := rows.Scan(&cam.ID, &cam.Name, &cam.Owner, &cam.System, &cam.Description, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning campaign: %w", err)
		}
		cam.CreatedAt = parseTime(createdAt)
		campaigns = append(campaigns, cam)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating campaign rows: %w", err)
	}

	if campaigns == nil {
		campaigns = []store.Campaign{}
	}
	return campaigns, nil
}

func scanCampaignRow(row *sql.Row) (*store.Campaign, error) {
	var cam store.Campaign
	var createdAt string
	err := row.Scan(&cam.ID, &cam.Name, &cam.Owner, &cam.System, &cam.Description, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning campaign: %w", err)
	}
	cam.CreatedAt = parseTime(createdAt)
	return &cam, nil
}
