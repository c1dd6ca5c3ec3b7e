package postgres

import (
	"context"
	"fmt"

	"lorekeeper/internal/store"
)

func (c *Client) InsertSessionDigest(ctx context.Context, d store.SessionDigest) error {
	query := `
INSERT INTO session_digests (id, campaign_id, session_number, title, summary, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`

	_, err := c.pool.Exec(ctx, query,
		d.ID, d.CampaignID, d.SessionNumber, d.Title, d.Summary, orNow(d.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting session digest: %w", err)
	}
	return nil
}

func (c *Client) ListSessionDigests(ctx context.Context, campaignID string, limit int) ([]store.SessionDigest, error) {
	if limit < 1 {
		limit = 5
	}

	query := `
SELECT id, campaign_id, session_number, title, summary, created_at
FROM session_digests
WHERE campaign_id = $1
ORDER BY session_number DESC, created_at DESC
LIMIT $2
`

	rows, err := c.pool.Query(ctx, query, campaignID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing session digests: %w", err)
	}
	defer rows.Close()

	var digests []store.SessionDigest
	for rows.Next() {
		var d store.SessionDigest
		if err := rows.Scan(&d.ID, &d.CampaignID, &d.SessionNumber, &d.Title, &d.Summary, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning session digest: %w", err)
		}
		digests = append(digests, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating digest rows: %w", err)
	}

	if digests == nil {
		digests = []store.SessionDigest{}
	}
	return digests, nil
}
