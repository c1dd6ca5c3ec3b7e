package similarity

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"lorekeeper/internal/store"
)

// ShardSearcher is the slice of the store the lexical oracle needs.
type ShardSearcher interface {
	SearchShards(ctx context.Context, campaignID, query string, limit int) ([]store.ShardSearchResult, error)
}

// LexicalOracle scores content by token overlap and searches through the
// SQL backend's full-text index. It needs no API key, which makes it the
// default for local setups.
type LexicalOracle struct {
	shards  ShardSearcher
	weights Weights
}

var _ Oracle = (*LexicalOracle)(nil)

func NewLexicalOracle(shards ShardSearcher, w Weights) *LexicalOracle {
	return &LexicalOracle{shards: shards, weights: w}
}

func (o *LexicalOracle) Score(_ context.Context, a, b string) (float64, error) {
	as, bs := tokenSet(a), tokenSet(b)
	if len(as) == 0 || len(bs) == 0 {
		return 0, nil
	}
	common := 0
	for tok := range as {
		if _, ok := bs[tok]; ok {
			common++
		}
	}
	union := len(as) + len(bs) - common
	return float64(common) / float64(union), nil
}

func (o *LexicalOracle) Search(ctx context.Context, campaignID, query string, topN int, recencyWeighted bool) ([]Match, error) {
	if topN < 1 {
		topN = DefaultTopN
	}
	rows, err := o.shards.SearchShards(ctx, campaignID, query, topN)
	if err != nil {
		return nil, fmt.Errorf("searching shards: %w", err)
	}
	matches := make([]Match, 0, len(rows))
	for _, row := range rows {
		raw := row.Score
		if raw < 0 {
			raw = 0
		}
		matches = append(matches, Match{
			DocID:     row.ID,
			Content:   row.Content,
			Score:     raw / (1 + raw),
			EntityIDs: row.EntityIDs,
			CreatedAt: row.CreatedAt,
		})
	}
	if recencyWeighted {
		matches = blendRecency(matches, time.Now().UTC(), o.weights)
	}
	return matches, nil
}

// The SQL backends maintain their full-text indexes at write time, so
// the lexical oracle has nothing to register or remove.
func (o *LexicalOracle) Index(context.Context, Doc) error { return nil }

func (o *LexicalOracle) Remove(context.Context, string, string) error { return nil }

func tokenSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
