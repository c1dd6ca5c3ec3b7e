package similarity

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/philippgille/chromem-go"
)

// VectorOracle keeps one persistent chromem collection per campaign and
// scores content by embedding cosine similarity.
type VectorOracle struct {
	db      *chromem.DB
	embed   chromem.EmbeddingFunc
	weights Weights
}

var _ Oracle = (*VectorOracle)(nil)

func NewVectorOracle(path string, compress bool, embed chromem.EmbeddingFunc, w Weights) (*VectorOracle, error) {
	db, err := chromem.NewPersistentDB(path, compress)
	if err != nil {
		return nil, fmt.Errorf("opening similarity store: %w", err)
	}
	return &VectorOracle{db: db, embed: embed, weights: w}, nil
}

// NewOpenAIEmbedding builds the embedding function used by the vector
// oracle. model must be an OpenAI embedding model name.
func NewOpenAIEmbedding(apiKey, model string) chromem.EmbeddingFunc {
	return chromem.NewEmbeddingFuncOpenAI(apiKey, chromem.EmbeddingModelOpenAI(model))
}

func (o *VectorOracle) Score(ctx context.Context, a, b string) (float64, error) {
	va, err := o.embed(ctx, a)
	if err != nil {
		return 0, fmt.Errorf("embedding text: %w", err)
	}
	vb, err := o.embed(ctx, b)
	if err != nil {
		return 0, fmt.Errorf("embedding text: %w", err)
	}
	return cosine(va, vb), nil
}

func (o *VectorOracle) Search(ctx context.Context, campaignID, query string, topN int, recencyWeighted bool) ([]Match, error) {
	if topN < 1 {
		topN = DefaultTopN
	}
	col := o.db.GetCollection(collectionName(campaignID), o.embed)
	if col == nil {
		return []Match{}, nil
	}
	count := col.Count()
	if count == 0 {
		return []Match{}, nil
	}
	// chromem rejects nResults larger than the collection.
	if topN > count {
		topN = count
	}
	results, err := col.Query(ctx, query, topN, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying similarity index: %w", err)
	}
	matches := make([]Match, 0, len(results))
	for _, r := range results {
		m := Match{DocID: r.ID, Content: r.Content, Score: float64(r.Similarity)}
		if raw := r.Metadata["entity_ids"]; raw != "" {
			m.EntityIDs = strings.Split(raw, ",")
		}
		if raw := r.Metadata["created_at"]; raw != "" {
			if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
				m.CreatedAt = t
			}
		}
		matches = append(matches, m)
	}
	if recencyWeighted {
		matches = blendRecency(matches, time.Now().UTC(), o.weights)
	}
	return matches, nil
}

func (o *VectorOracle) Index(ctx context.Context, doc Doc) error {
	if doc.CampaignID == "" || doc.DocID == "" {
		return fmt.Errorf("campaign id and doc id are required")
	}
	col, err := o.db.GetOrCreateCollection(collectionName(doc.CampaignID), nil, o.embed)
	if err != nil {
		return fmt.Errorf("opening similarity collection: %w", err)
	}
	created := doc.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	meta := map[string]string{
		"created_at": created.UTC().Format(time.RFC3339Nano),
	}
	if len(doc.EntityIDs) > 0 {
		meta["entity_ids"] = strings.Join(doc.EntityIDs, ",")
	}
	if err := col.AddDocument(ctx, chromem.Document{ID: doc.DocID, Content: doc.Content, Metadata: meta}); err != nil {
		return fmt.Errorf("indexing document: %w", err)
	}
	return nil
}

func (o *VectorOracle) Remove(ctx context.Context, campaignID, docID string) error {
	col := o.db.GetCollection(collectionName(campaignID), o.embed)
	if col == nil {
		return nil
	}
	if err := col.Delete(ctx, nil, nil, docID); err != nil {
		return fmt.Errorf("removing document: %w", err)
	}
	return nil
}

func collectionName(campaignID string) string {
	var b strings.Builder
	b.WriteString("campaign-")
	for _, r := range campaignID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	// Oracle scores are [0, 1]; anti-correlated texts are just "not similar".
	return math.Max(0, dot/(math.Sqrt(na)*math.Sqrt(nb)))
}
