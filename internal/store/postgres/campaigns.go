package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lorekeeper/internal/store"
)

func (c *Client) CreateCampaign(ctx context.Context, cam store.Campaign) error {
	query := `
INSERT INTO campaigns (id, name, owner, system, description, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`

	_, err := c.pool.Exec(ctx, query,
		cam.ID, cam.Name, cam.Owner, cam.System, cam.Description, orNow(cam.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting campaign: %w", err)
	}
	return nil
}

func (c *Client) GetCampaign(ctx context.Context, id string) (*store.Campaign, error) {
	query := `
SELECT id, name, owner, system, description, created_at
FROM campaigns
WHERE id = $1
`
	return c.scanCampaign(ctx, query, id)
}

func (c *Client) GetCampaignForOwner(ctx context.Context, id, owner string) (*store.Campaign, error) {
	query := `
SELECT id, name, owner, system, description, created_at
FROM campaigns
WHERE id = $1 AND owner = $2
`
	return c.scanCampaign(ctx, query, id, owner)
}

func (c *Client) ListCampaigns(ctx context.Context, owner string) ([]store.Campaign, error) {
	query := `
SELECT id, name, owner, system, description, created_at
FROM campaigns
WHERE ($1 = '' OR owner = $1)
ORDER BY created_at DESC
`

	rows, err := c.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("listing campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []store.Campaign
	for rows.Next() {
		var cam store.Campaign
		if err := rows.Scan(&cam.ID, &cam.Name, &cam.Owner, &cam.System, &cam.Description, &cam.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning campaign: %w", err)
		}
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

func (c *Client) scanCampaign(ctx context.Context, query string, args ...any) (*store.Campaign, error) {
	var cam store.Campaign
	err := c.pool.QueryRow(ctx, query, args...).Scan(
		&cam.ID, &cam.Name, &cam.Owner, &cam.System, &cam.Description, &cam.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning campaign: %w", err)
	}
	return &cam, nil
}
