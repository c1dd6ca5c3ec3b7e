// Package planner turns a session request into a run-ready script grounded
// in the campaign's approved content, plus a list of narrative gaps the
// script introduced.
package planner

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	lkerrors "lorekeeper/internal/errors"
	"lorekeeper/internal/llm"
	"lorekeeper/internal/parser"
	"lorekeeper/internal/similarity"
	"lorekeeper/internal/store"
)

const promptDigestLimit = 3

// Store is the slice of the persistence layer the planner reads from.
type Store interface {
	GetEntitiesByID(ctx context.Context, campaignID string, ids []string) ([]store.Entity, error)
	ListEntitiesByType(ctx context.Context, campaignID, entityType string) ([]store.Entity, error)
	Neighbors(ctx context.Context, campaignID string, entityIDs []string, perNode, total int) ([]store.Entity, error)
	ListSessionDigests(ctx context.Context, campaignID string, limit int) ([]store.SessionDigest, error)
}

// Searcher retrieves campaign content relevant to the session being planned.
type Searcher interface {
	Search(ctx context.Context, campaignID, query string, topN int, recencyWeighted bool) ([]similarity.Match, error)
}

type Request struct {
	Title         string
	SessionType   string
	DurationHours float64
	FocusAreas    []string
	OneOff        bool
}

// Gap is a narrative element the generated script relies on that the
// campaign graph does not know about.
type Gap struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
}

type Plan struct {
	Script         string `json:"script"`
	Gaps           []Gap  `json:"gaps"`
	RetrievedCount int    `json:"retrieved_count"`
	EntityCount    int    `json:"entity_count"`
}

type Options struct {
	SearchTopN         int
	NeighborsPerEntity int
	EntityPoolCap      int
	ContextWindow      int
}

type Service struct {
	db       Store
	oracle   Searcher
	provider llm.Provider
	classify Classifier
	opts     Options
	logger   *zap.Logger
}

func NewService(db Store, oracle Searcher, provider llm.Provider, classifier Classifier, opts Options, logger *zap.Logger) *Service {
	if opts.SearchTopN < 1 {
		opts.SearchTopN = similarity.DefaultTopN
	}
	if opts.NeighborsPerEntity < 1 {
		opts.NeighborsPerEntity = 5
	}
	if opts.EntityPoolCap < 1 {
		opts.EntityPoolCap = 30
	}
	if opts.ContextWindow < 1 {
		opts.ContextWindow = 200
	}
	if classifier == nil {
		classifier = KeywordClassifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, oracle: oracle, provider: provider, classify: classifier, opts: opts, logger: logger}
}

// Plan retrieves relevant campaign content, expands it one hop through the
// entity graph, asks the generation provider for a script, and reports any
// entities the script mentions that the campaign does not track.
func (s *Service) Plan(ctx context.Context, campaign *store.Campaign, req Request) (*Plan, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, &lkerrors.FieldError{Field: "session_title", Reason: "must not be empty"}
	}
	if req.DurationHours < 0 {
		return nil, &lkerrors.FieldError{Field: "estimated_duration_hours", Reason: "must not be negative"}
	}
	if s.provider == nil {
		return nil, fmt.Errorf("%w: no generation provider configured", lkerrors.ErrUnavailable)
	}
	if s.oracle == nil {
		return nil, fmt.Errorf("%w: no similarity backend configured", lkerrors.ErrUnavailable)
	}

	matches, err := s.oracle.Search(ctx, campaign.ID, buildQuery(req), s.opts.SearchTopN, true)
	if err != nil {
		return nil, fmt.Errorf("%w: searching campaign content: %v", lkerrors.ErrUnavailable, err)
	}

	entities, err := s.entityPool(ctx, campaign.ID, matches)
	if err != nil {
		return nil, err
	}

	digests, err := s.db.ListSessionDigests(ctx, campaign.ID, promptDigestLimit)
	if err != nil {
		s.logger.Warn("loading session digests for plan",
			zap.String("campaign_id", campaign.ID),
			zap.Error(err))
		digests = nil
	}

	prompt := buildPrompt(campaign, req, digests, matches, entities)
	script, err := s.provider.Complete(ctx, llm.Request{Instructions: planInstructions, Input: prompt})
	if err != nil {
		return nil, fmt.Errorf("generating session script: %w", err)
	}

	return &Plan{
		Script:         script,
		Gaps:           s.analyzeGaps(script, entities),
		RetrievedCount: len(matches),
		EntityCount:    len(entities),
	}, nil
}

// entityPool collects the entities referenced by the retrieved content plus
// every player character, then expands one hop through the graph. Player
// characters are always in scope and never count against the pool cap.
func (s *Service) entityPool(ctx context.Context, campaignID string, matches []similarity.Match) ([]store.Entity, error) {
	seen := make(map[string]struct{})
	var seedIDs []string
	for _, m := range matches {
		for _, id := range m.EntityIDs {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			seedIDs = append(seedIDs, id)
		}
	}

	pcs, err := s.db.ListEntitiesByType(ctx, campaignID, "player_character")
	if err != nil {
		return nil, fmt.Errorf("loading player characters: %w", err)
	}

	var seeds []store.Entity
	if len(seedIDs) > 0 {
		seeds, err = s.db.GetEntitiesByID(ctx, campaignID, seedIDs)
		if err != nil {
			return nil, fmt.Errorf("loading referenced entities: %w", err)
		}
	}

	hopFrom := make([]string, 0, len(seedIDs)+len(pcs))
	hopFrom = append(hopFrom, seedIDs...)
	for _, pc := range pcs {
		hopFrom = append(hopFrom, pc.ID)
	}

	var neighbors []store.Entity
	if len(hopFrom) > 0 {
		neighbors, err = s.db.Neighbors(ctx, campaignID, hopFrom, s.opts.NeighborsPerEntity, s.opts.EntityPoolCap)
		if err != nil {
			return nil, fmt.Errorf("expanding entity graph: %w", err)
		}
	}

	pool := make([]store.Entity, 0, len(pcs)+len(seeds)+len(neighbors))
	inPool := make(map[string]struct{}, len(pcs)+len(seeds)+len(neighbors))
	for _, pc := range pcs {
		if _, ok := inPool[pc.ID]; ok {
			continue
		}
		inPool[pc.ID] = struct{}{}
		pool = append(pool, pc)
	}

	candidates := make([]store.Entity, 0, len(seeds)+len(neighbors))
	candidates = append(candidates, seeds...)
	candidates = append(candidates, neighbors...)

	capped := 0
	for _, e := range candidates {
		if _, ok := inPool[e.ID]; ok {
			continue
		}
		if capped >= s.opts.EntityPoolCap {
			break
		}
		inPool[e.ID] = struct{}{}
		pool = append(pool, e)
		capped++
	}
	return pool, nil
}

// analyzeGaps is best effort. A bad script must never sink the plan that
// produced it, so any internal failure degrades to an empty gap list.
func (s *Service) analyzeGaps(script string, known []store.Entity) (gaps []Gap) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("gap analysis aborted", zap.Any("panic", r))
			gaps = nil
		}
	}()

	knownNames := make(map[string]struct{}, len(known))
	for _, e := range known {
		knownNames[parser.Normalize(e.Name)] = struct{}{}
	}

	for _, m := range parser.ExtractMentions(script) {
		if _, ok := knownNames[parser.Normalize(m.Name)]; ok {
			continue
		}
		window := contextWindow(script, m.Offset, len(m.Name), s.opts.ContextWindow)
		gapType := s.classify.Classify(m.Name, window)
		gaps = append(gaps, Gap{
			Type:        gapType,
			Name:        m.Name,
			Description: fmt.Sprintf("%q appears in the script but is not in the campaign graph.", m.Name),
			Suggestion:  suggestionFor(gapType, m.Name),
		})
	}
	return gaps
}

// contextWindow returns the script text around a mention. The parser reports
// where a mention starts but not how wide its decoration is, so the right
// edge is approximated from the name length plus the widest marker ([[...]]).
func contextWindow(text string, offset, nameLen, radius int) string {
	start := offset - radius
	if start < 0 {
		start = 0
	}
	end := offset + nameLen + 4 + radius
	if end > len(text) {
		end = len(text)
	}
	return text[start:end]
}
