package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"lorekeeper/internal/store"
)

func (c *Client) InsertTask(ctx context.Context, t store.PlanningTask) error {
	query := `
INSERT INTO planning_tasks (id, campaign_id, title, status, linked_content_id, created_at, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

	_, err := c.pool.Exec(ctx, query,
		t.ID, t.CampaignID, t.Title, t.Status, t.LinkedContentID, orNow(t.CreatedAt), t.CompletedAt)
	if err != nil {
		return fmt.Errorf("inserting planning task: %w", err)
	}
	return nil
}

func (c *Client) GetTask(ctx context.Context, campaignID, id string) (*store.PlanningTask, error) {
	query := `
SELECT id, campaign_id, title, status, linked_content_id, created_at, completed_at
FROM planning_tasks
WHERE campaign_id = $1 AND id = $2
`

	var t store.PlanningTask
	err := c.pool.QueryRow(ctx, query, campaignID, id).Scan(
		&t.ID, &t.CampaignID, &t.Title, &t.Status, &t.LinkedContentID, &t.CreatedAt, &t.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning planning task: %w", err)
	}
	return &t, nil
}

func (c *Client) ListTasks(ctx context.Context, campaignID string, statuses ...string) ([]store.PlanningTask, error) {
	query := `
SELECT id, campaign_id, title, status, linked_content_id, created_at, completed_at
FROM planning_tasks
WHERE campaign_id = $1
  AND (cardinality($2::text[]) = 0 OR status = ANY($2))
ORDER BY created_at ASC, id ASC
`

	if statuses == nil {
		statuses = []string{}
	}

	rows, err := c.pool.Query(ctx, query, campaignID, statuses)
	if err != nil {
		return nil, fmt.Errorf("listing planning tasks: %w", err)
	}
	defer rows.Close()

	var tasks []store.PlanningTask
	for rows.Next() {
		var t store.PlanningTask
		err := rows.Scan(&t.ID, &t.CampaignID, &t.Title, &t.Status, &t.LinkedContentID, &t.CreatedAt, &t.CompletedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning planning task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task rows: %w", err)
	}

	if tasks == nil {
		tasks = []store.PlanningTask{}
	}
	return tasks, nil
}

// CompleteTask moves a task to completed. Already-completed tasks are left
// untouched and reported as false, keeping the transition forward-only.
func (c *Client) CompleteTask(ctx context.Context, campaignID, id, linkedContentID string) (bool, error) {
	query := `
UPDATE planning_tasks
SET status = 'completed', linked_content_id = $1, completed_at = $2
WHERE campaign_id = $3 AND id = $4 AND status != 'completed'
`

	tag, err := c.pool.Exec(ctx, query, linkedContentID, time.Now(), campaignID, id)
	if err != nil {
		return false, fmt.Errorf("completing planning task: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (c *Client) CountTasksByStatus(ctx context.Context, campaignID string) (map[string]int, error) {
	query := `
SELECT status, COUNT(*)
FROM planning_tasks
WHERE campaign_id = $1
GROUP BY status
`

	rows, err := c.pool.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("counting planning tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning task count: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task counts: %w", err)
	}
	return counts, nil
}
