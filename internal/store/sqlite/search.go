package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"lorekeeper/internal/store"
)

// SearchShards runs a full-text query over staged content. Rejected shards
// are excluded; they stay in the table for audit only. Score is positive
// with higher meaning a better match.
func (c *Client) SearchShards(ctx context.Context, campaignID, query string, limit int) ([]store.ShardSearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if limit < 1 {
		limit = 10
	}

	ftsQuery := convertWebsearchToFTS5(query)

	sqlQuery := `
	SELECT s.id, s.title, s.content, s.shard_type, s.status, s.entity_ids,
		   -bm25(shards_fts, 10.0, 1.0) AS score,
		   snippet(shards_fts, 1, '**', '**', '...', 50) AS snippet,
		   s.created_at
	FROM shards_fts
	JOIN shards s ON shards_fts.rowid = s.seq
	WHERE shards_fts MATCH ?
	  AND s.campaign_id = ?
	  AND s.status != 'rejected'
	ORDER BY score DESC, s.created_at DESC
	LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, sqlQuery, ftsQuery, campaignID, limit)
	if err != nil {
		return nil, fmt.Errorf("searching shards: %w", err)
	}
	defer rows.Close()

	var results []store.ShardSearchResult
	for rows.Next() {
		var r store.ShardSearchResult
		var entityIDsBytes []byte
		var createdAt string
		err := rows.Scan(&r.ID, &r.Title, &r.Content, &r.Type, &r.Status, &entityIDsBytes, &r.Score, &r.Snippet, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		if len(entityIDsBytes) > 0 {
			if err := json.Unmarshal(entityIDsBytes, &r.EntityIDs); err != nil {
				return nil, fmt.Errorf("unmarshaling entity ids: %w", err)
			}
		}
		if r.EntityIDs == nil {
			r.EntityIDs = []string{}
		}
		r.CreatedAt = parseTime(createdAt)
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

func convertWebsearchToFTS5(query string) string {
	var result strings.Builder
	var inQuote bool
	var current strings.Builder

	flushToken := func() {
		token := current.String()
		current.Reset()
		if token == "" {
			return
		}

		upper := strings.ToUpper(token)
		switch upper {
		case "AND", "OR", "NOT":
			if result.Len() > 0 {
				result.WriteString(" ")
			}
			result.WriteString(upper)
			return
		}

		if result.Len() > 0 {
			lastWord := lastWord(result.String())
			if lastWord != "AND" && lastWord != "OR" && lastWord != "NOT" && lastWord != "" {
				result.WriteString(" AND ")
			} else {
				result.WriteString(" ")
			}
		}

		if strings.HasPrefix(token, "-") && len(token) > 1 {
			result.WriteString("NOT ")
			result.WriteString(token[1:])
		} else {
			result.WriteString(token)
		}
	}

	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '"':
			if inQuote {
				inQuote = false
				token := current.String()
				current.Reset()
				if token != "" {
					if result.Len() > 0 {
						result.WriteString(" AND ")
					}
					result.WriteString(`"`)
					result.WriteString(token)
					result.WriteString(`"`)
				}
			} else {
				flushToken()
				inQuote = true
			}
		case inQuote:
			current.WriteByte(ch)
		case ch == ' ' || ch == '\t':
			flushToken()
		default:
			current.WriteByte(ch)
		}
	}

	flushToken()

	return result.String()
}

func lastWord(s string) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}
	return words[len(words)-1]
}
