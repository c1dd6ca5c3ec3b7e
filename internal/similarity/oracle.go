package similarity

import (
	"context"
	"math"
	"sort"
	"time"
)

const DefaultTopN = 10

// Doc is a unit of campaign content registered with the oracle.
type Doc struct {
	CampaignID string
	DocID      string
	Content    string
	EntityIDs  []string
	CreatedAt  time.Time
}

// Match is a scored search hit. Score is in [0, 1], higher is closer.
type Match struct {
	DocID     string
	Content   string
	Score     float64
	EntityIDs []string
	CreatedAt time.Time
}

// Weights controls recency blending. Alpha is the share of the final
// score taken from recency; HalfLifeDays is the decay constant in days.
type Weights struct {
	Alpha        float64
	HalfLifeDays float64
}

// Oracle answers similarity questions about campaign content. Search
// with recencyWeighted set favors newer material over raw similarity.
type Oracle interface {
	Score(ctx context.Context, a, b string) (float64, error)
	Search(ctx context.Context, campaignID, query string, topN int, recencyWeighted bool) ([]Match, error)
	Index(ctx context.Context, doc Doc) error
	Remove(ctx context.Context, campaignID, docID string) error
}

func blendRecency(matches []Match, now time.Time, w Weights) []Match {
	if w.Alpha <= 0 || w.HalfLifeDays <= 0 {
		return matches
	}
	for i := range matches {
		if matches[i].CreatedAt.IsZero() {
			continue
		}
		ageDays := now.Sub(matches[i].CreatedAt).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		recency := math.Exp(-ageDays / w.HalfLifeDays)
		matches[i].Score = (1-w.Alpha)*matches[i].Score + w.Alpha*recency
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}
