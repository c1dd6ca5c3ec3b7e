package postgres

import (
	"context"
	"fmt"
	"strings"

	"lorekeeper/internal/store"
)

// SearchShards runs a full-text query over staged content. Rejected shards
// are excluded; they stay in the table for audit only.
func (c *Client) SearchShards(ctx context.Context, campaignID, query string, limit int) ([]store.ShardSearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if limit < 1 {
		limit = 10
	}

	sql := `
SELECT id, title, content, shard_type, status, entity_ids,
    ts_rank(search_vector, websearch_to_tsquery('english', $1)) AS score,
    ts_headline('english', content, websearch_to_tsquery('english', $1),
        'MaxFragments=2, MaxWords=40, MinWords=20, StartSel=**, StopSel=**') AS snippet,
    created_at
FROM shards
WHERE search_vector @@ websearch_to_tsquery('english', $1)
  AND campaign_id = $2
  AND status != 'rejected'
ORDER BY score DESC, created_at DESC
LIMIT $3
`

	rows, err := c.pool.Query(ctx, sql, query, campaignID, limit)
	if err != nil {
		return nil, fmt.Errorf("searching shards: %w", err)
	}
	defer rows.Close()

	var results []store.ShardSearchResult
	for rows.Next() {
		var r store.ShardSearchResult
		err := rows.Scan(&r.ID, &r.Title, &r.Content, &r.Type, &r.Status, &r.EntityIDs, &r.Score, &r.Snippet, &r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		if r.EntityIDs == nil {
			r.EntityIDs = []string{}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}

	if results == nil {
		results = []store.ShardSearchResult{}
	}
	return results, nil
}
