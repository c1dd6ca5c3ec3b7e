package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"lorekeeper/internal/store"
)

func (c *Client) InsertTask(ctx context.Context, t store.PlanningTask) error {
	query := `
	INSERT INTO planning_tasks (id, campaign_id, title, status, linked_content_id, created_at, completed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var completedAt any
	if t.CompletedAt != nil {
		completedAt = formatTime(*t.CompletedAt)
	}

	_, err := c.db.ExecContext(ctx, query,
		t.ID, t.CampaignID, t.Title, t.Status, t.LinkedContentID, formatTime(t.CreatedAt), completedAt)
	if err != nil {
		return fmt.Errorf("inserting planning task: %w", err)
	}
	return nil
}

func (c *Client) GetTask(ctx context.Context, campaignID, id string) (*store.PlanningTask, error) {
	query := `
	SELECT id, campaign_id, title, status, linked_content_id, created_at, completed_at
	FROM planning_tasks
	WHERE campaign_id = ? AND id = ?
	`

	row := c.db.QueryRowContext(ctx, query, campaignID, id)
	t, err := scanTask(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (c *Client) ListTasks(ctx context.Context, campaignID string, statuses ...string) ([]store.PlanningTask, error) {
	query := `
	SELECT id, campaign_id, title, status, linked_content_id, created_at, completed_at
	FROM planning_tasks
	WHERE campaign_id = ?
	`
	args := []any{campaignID}

	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, s := range statuses {
			placeholders[i] = "?"
			args = append(args, s)
		}
		query += fmt.Sprintf(" AND status IN (%s)", strings.Join(placeholders, ","))
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing planning tasks: %w", err)
	}
	defer rows.Close()

	var tasks []store.PlanningTask
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
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
	SET status = 'completed', linked_content_id = ?, completed_at = ?
	WHERE campaign_id = ? AND id = ? AND status != 'completed'
	`

	res, err := c.db.ExecContext(ctx, query, linkedContentID, formatTime(time.Now()), campaignID, id)
	if err != nil {
		return false, fmt.Errorf("completing planning task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	return n > 0, nil
}

func (c *Client) CountTasksByStatus(ctx context.Context, campaignID string) (map[string]int, error) {
	query := `
	SELECT status, COUNT(*)
	FROM planning_tasks
	WHERE campaign_id = ?
	GROUP BY status
	`

	rows, err := c.db.QueryContext(ctx, query, campaignID)
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

func scanTask(scan func(dest ...any) error) (*store.PlanningTask, error) {
	var t store.PlanningTask
	var createdAt string
	var completedAt sql.NullString
	err := scan(&t.ID, &t.CampaignID, &t.Title, &t.Status, &t.LinkedContentID, &createdAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning planning task: %w", err)
	}
	t.CreatedAt = parseTime(createdAt)
	if completedAt.Valid {
		done := parseTime(completedAt.String)
		t.CompletedAt = &done
	}
	return &t, nil
}
