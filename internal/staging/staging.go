// Package staging accepts captured campaign knowledge, screens it for
// near-duplicates, and persists novel entries as pending shards awaiting
// human review.
package staging

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	lkerrors "lorekeeper/internal/errors"
	"lorekeeper/internal/notify"
	"lorekeeper/internal/parser"
	"lorekeeper/internal/similarity"
	"lorekeeper/internal/store"
)

// dedupCandidates is how many search hits are rescored pairwise when
// looking for a near-duplicate.
const dedupCandidates = 5

// SourceExplicit marks an item the user asked to save verbatim rather
// than one a capture heuristic inferred from conversation.
const SourceExplicit = "explicit"

type Store interface {
	InsertShard(ctx context.Context, s store.Shard) error
	GetShard(ctx context.Context, campaignID, id string) (*store.Shard, error)
	ListShards(ctx context.Context, campaignID, status string) ([]store.Shard, error)
	UpdateShardStatus(ctx context.Context, campaignID, id, status string) (bool, error)
	ListEntities(ctx context.Context, campaignID string) ([]store.Entity, error)
}

// Linker associates new content with the open planning task it fulfills.
type Linker interface {
	LinkNewContent(ctx context.Context, campaignID, contentID, content, explicitTaskID string) (string, error)
}

type Outcome struct {
	Index        int    `json:"index"`
	ShardID      string `json:"shard_id,omitempty"`
	Title        string `json:"title"`
	Deduplicated bool   `json:"deduplicated"`
	DuplicateOf  string `json:"duplicate_of,omitempty"`
	LinkedTaskID string `json:"linked_task_id,omitempty"`
}

type Report struct {
	Outcomes   []Outcome `json:"outcomes"`
	Staged     int       `json:"staged"`
	Duplicates int       `json:"duplicates"`
}

// Thresholds tunes staging behavior.
type Thresholds struct {
	// Dedup is the pairwise similarity score at or above which a new
	// item counts as a duplicate of an existing shard.
	Dedup float64
	// Explicit is the minimum confidence recorded for explicit saves.
	Explicit float64
}

type Service struct {
	db        Store
	oracle    similarity.Oracle
	linker    Linker
	notifier  notify.Notifier
	threshold float64
	explicit  float64
	logger    *zap.Logger
}

func NewService(db Store, oracle similarity.Oracle, linker Linker, notifier notify.Notifier, t Thresholds, logger *zap.Logger) *Service {
	if t.Dedup <= 0 || t.Dedup > 1 {
		t.Dedup = 0.92
	}
	if t.Explicit <= 0 || t.Explicit > 1 {
		t.Explicit = 0.95
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, oracle: oracle, linker: linker, notifier: notifier, threshold: t.Dedup, explicit: t.Explicit, logger: logger}
}

// StageBatch validates every item up front, then stages each one in
// turn. Near-duplicates of approved or pending shards are skipped and
// reported, not persisted. Secondary effects (similarity indexing, task
// linking, the owner notification) are logged and swallowed on failure;
// the persisted shard is the primary outcome.
func (s *Service) StageBatch(ctx context.Context, campaign *store.Campaign, items []store.ShardInput) (*Report, error) {
	if len(items) == 0 {
		return nil, lkerrors.NewFieldError("items", "must not be empty")
	}
	for i, item := range items {
		if err := validateItem(i, item); err != nil {
			return nil, err
		}
	}

	names, idByName := s.knownEntities(ctx, campaign.ID)
	report := &Report{Outcomes: make([]Outcome, 0, len(items))}

	for i, item := range items {
		outcome := Outcome{Index: i, Title: strings.TrimSpace(item.Title)}

		if dupID := s.findDuplicate(ctx, campaign.ID, item.Content); dupID != "" {
			outcome.Deduplicated = true
			outcome.DuplicateOf = dupID
			report.Duplicates++
			report.Outcomes = append(report.Outcomes, outcome)
			continue
		}

		confidence := item.Confidence
		if item.SourceRef == SourceExplicit && confidence < s.explicit {
			// The user asked for this save; the capture heuristic's
			// own confidence no longer applies.
			confidence = s.explicit
		}

		shard := store.Shard{
			ID:          uuid.NewString(),
			CampaignID:  campaign.ID,
			Type:        item.Type,
			Title:       outcome.Title,
			Content:     item.Content,
			Confidence:  confidence,
			SourceRef:   item.SourceRef,
			Status:      store.ShardPending,
			ContentHash: contentHash(item.Content),
			EntityIDs:   matchEntityIDs(item.Content, names, idByName),
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.db.InsertShard(ctx, shard); err != nil {
			return report, fmt.Errorf("inserting shard: %w", err)
		}
		outcome.ShardID = shard.ID
		report.Staged++

		if err := s.oracle.Index(ctx, similarity.Doc{
			CampaignID: campaign.ID,
			DocID:      shard.ID,
			Content:    shard.Content,
			EntityIDs:  shard.EntityIDs,
			CreatedAt:  shard.CreatedAt,
		}); err != nil {
			s.logger.Warn("indexing shard for similarity",
				zap.String("shard_id", shard.ID),
				zap.Error(err),
			)
		}

		if s.linker != nil {
			linked, err := s.linker.LinkNewContent(ctx, campaign.ID, shard.ID, shard.Content, "")
			if err != nil {
				s.logger.Warn("linking shard to planning task",
					zap.String("shard_id", shard.ID),
					zap.Error(err),
				)
			} else {
				outcome.LinkedTaskID = linked
			}
		}

		report.Outcomes = append(report.Outcomes, outcome)
	}

	if report.Staged > 0 && s.notifier != nil {
		err := s.notifier.Notify(ctx, campaign.Owner, "shards_staged", map[string]any{
			"campaign":   campaign.Name,
			"staged":     report.Staged,
			"duplicates": report.Duplicates,
		})
		if err != nil {
			s.logger.Warn("notifying campaign owner",
				zap.String("campaign_id", campaign.ID),
				zap.Error(err),
			)
		}
	}

	return report, nil
}

// Review applies a human approval decision. A shard transitions out of
// pending exactly once; repeat reviews fail validation. Rejected shards
// leave the similarity index so they stop participating in dedup, but
// the row itself is kept for audit.
func (s *Service) Review(ctx context.Context, campaignID, shardID, decision string) (*store.Shard, error) {
	var status string
	switch decision {
	case "approve":
		status = store.ShardApproved
	case "reject":
		status = store.ShardRejected
	default:
		return nil, lkerrors.NewFieldError("decision", `must be "approve" or "reject"`)
	}

	shard, err := s.db.GetShard(ctx, campaignID, shardID)
	if err != nil {
		return nil, fmt.Errorf("loading shard: %w", err)
	}
	if shard == nil {
		return nil, fmt.Errorf("%w: shard %s", lkerrors.ErrNotFound, shardID)
	}

	changed, err := s.db.UpdateShardStatus(ctx, campaignID, shardID, status)
	if err != nil {
		return nil, fmt.Errorf("updating shard status: %w", err)
	}
	if !changed {
		return nil, fmt.Errorf("%w: shard %s is already %s", lkerrors.ErrInvalidInput, shardID, shard.Status)
	}
	shard.Status = status

	if status == store.ShardRejected {
		if err := s.oracle.Remove(ctx, campaignID, shardID); err != nil {
			s.logger.Warn("removing rejected shard from similarity index",
				zap.String("shard_id", shardID),
				zap.Error(err),
			)
		}
	}
	return shard, nil
}

func (s *Service) ListShards(ctx context.Context, campaignID, status string) ([]store.Shard, error) {
	switch status {
	case "", store.ShardPending, store.ShardApproved, store.ShardRejected:
	default:
		return nil, lkerrors.NewFieldError("status", `must be "pending", "approved" or "rejected"`)
	}
	shards, err := s.db.ListShards(ctx, campaignID, status)
	if err != nil {
		return nil, fmt.Errorf("listing shards: %w", err)
	}
	return shards, nil
}

// findDuplicate returns the id of an existing shard whose pairwise
// similarity with content meets the threshold, or "". Oracle trouble
// degrades to "no duplicate": a redundant pending shard is reviewable,
// a silently dropped capture is not.
func (s *Service) findDuplicate(ctx context.Context, campaignID, content string) string {
	candidates, err := s.oracle.Search(ctx, campaignID, content, dedupCandidates, false)
	if err != nil {
		s.logger.Warn("searching for duplicates", zap.Error(err))
		return ""
	}
	for _, candidate := range candidates {
		score, err := s.oracle.Score(ctx, content, candidate.Content)
		if err != nil {
			s.logger.Warn("scoring duplicate candidate",
				zap.String("candidate_id", candidate.DocID),
				zap.Error(err),
			)
			continue
		}
		if score >= s.threshold {
			return candidate.DocID
		}
	}
	return ""
}

func (s *Service) knownEntities(ctx context.Context, campaignID string) ([]string, map[string]string) {
	entities, err := s.db.ListEntities(ctx, campaignID)
	if err != nil {
		s.logger.Warn("loading entities for mention scan", zap.Error(err))
		return nil, nil
	}
	names := make([]string, 0, len(entities))
	idByName := make(map[string]string, len(entities))
	for _, e := range entities {
		names = append(names, e.Name)
		idByName[parser.Normalize(e.Name)] = e.ID
	}
	return names, idByName
}

func matchEntityIDs(content string, names []string, idByName map[string]string) []string {
	ids := make([]string, 0, 4)
	for _, name := range parser.MatchNames(content, names) {
		if id, ok := idByName[parser.Normalize(name)]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func validateItem(i int, item store.ShardInput) error {
	field := func(name string) string {
		return fmt.Sprintf("items[%d].%s", i, name)
	}
	if strings.TrimSpace(item.Title) == "" {
		return lkerrors.NewFieldError(field("title"), "must not be empty")
	}
	if strings.TrimSpace(item.Content) == "" {
		return lkerrors.NewFieldError(field("content"), "must not be empty")
	}
	if !store.ValidContextType(item.Type) {
		return lkerrors.NewFieldError(field("type"), fmt.Sprintf("must be one of %s", strings.Join(store.ContextTypes, ", ")))
	}
	if item.Confidence < 0 || item.Confidence > 1 {
		return lkerrors.NewFieldError(field("confidence"), "must be between 0 and 1")
	}
	return nil
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
