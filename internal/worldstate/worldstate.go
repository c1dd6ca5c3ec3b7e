// Package worldstate records point-in-time entity and relationship
// transitions as an append-only changelog. Current state is never stored
// directly; readers derive it by replaying entries in timestamp order.
package worldstate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	lkerrors "lorekeeper/internal/errors"
	"lorekeeper/internal/store"
)

type Store interface {
	AppendWorldState(ctx context.Context, e store.WorldStateEntry) error
	ListWorldState(ctx context.Context, campaignID string, since time.Time) ([]store.WorldStateEntry, error)
	UpsertEntity(ctx context.Context, e store.Entity) error
	UpsertRelationship(ctx context.Context, r store.Relationship) error
	GetEntitiesByID(ctx context.Context, campaignID string, ids []string) ([]store.Entity, error)
}

type RecordInput struct {
	CampaignID          string
	SessionNumber       int
	EntityUpdates       []store.EntityUpdate
	RelationshipUpdates []store.RelationshipUpdate
	NewEntities         []store.NewEntity
}

// State is the replayed view of one entity at read time.
type State struct {
	EntityID      string         `json:"entity_id"`
	Name          string         `json:"name,omitempty"`
	Type          string         `json:"type,omitempty"`
	Status        string         `json:"status,omitempty"`
	Description   string         `json:"description,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	SessionNumber int            `json:"session_number,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// EntityDelta summarizes all changes to one entity inside a window.
type EntityDelta struct {
	EntityID    string    `json:"entity_id"`
	Name        string    `json:"name,omitempty"`
	Status      string    `json:"status,omitempty"`
	Description string    `json:"description,omitempty"`
	Changes     int       `json:"changes"`
	LastChanged time.Time `json:"last_changed"`
}

type Delta struct {
	Entities            []EntityDelta `json:"entities"`
	RelationshipChanges int           `json:"relationship_changes"`
	Entries             int           `json:"entries"`
}

type Service struct {
	db     Store
	logger *zap.Logger
}

func NewService(db Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, logger: logger}
}

// Record validates the update shapes and appends one changelog entry.
// The append is the primary outcome; mirroring new entities and
// relationship updates into the campaign graph is best effort and never
// fails the call. Prior entries are never read or modified.
func (s *Service) Record(ctx context.Context, input RecordInput) (*store.WorldStateEntry, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	entry := store.WorldStateEntry{
		ID:                  uuid.NewString(),
		CampaignID:          input.CampaignID,
		SessionNumber:       input.SessionNumber,
		EntityUpdates:       input.EntityUpdates,
		RelationshipUpdates: input.RelationshipUpdates,
		NewEntities:         input.NewEntities,
		CreatedAt:           time.Now().UTC(),
	}
	if err := s.db.AppendWorldState(ctx, entry); err != nil {
		return nil, fmt.Errorf("appending world state entry: %w", err)
	}

	s.mirrorToGraph(ctx, entry)
	return &entry, nil
}

// EntityState replays the changelog and returns the current view of one
// entity. Returns nil when no entry has ever named it.
func (s *Service) EntityState(ctx context.Context, campaignID, entityID string) (*State, error) {
	if strings.TrimSpace(entityID) == "" {
		return nil, lkerrors.NewFieldError("entity_id", "must not be empty")
	}
	entries, err := s.db.ListWorldState(ctx, campaignID, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("listing world state: %w", err)
	}

	var state *State
	for _, entry := range entries {
		state = applyEntry(state, entry, entityID)
	}
	return state, nil
}

// ChangesSince returns the per-entity folded summary of everything that
// happened after since.
func (s *Service) ChangesSince(ctx context.Context, campaignID string, since time.Time) (*Delta, error) {
	entries, err := s.db.ListWorldState(ctx, campaignID, since)
	if err != nil {
		return nil, fmt.Errorf("listing world state: %w", err)
	}

	delta := &Delta{Entries: len(entries)}
	byEntity := make(map[string]*EntityDelta)

	touch := func(entityID, name, status, description string, at time.Time) {
		d, ok := byEntity[entityID]
		if !ok {
			d = &EntityDelta{EntityID: entityID}
			byEntity[entityID] = d
		}
		d.Changes++
		if name != "" {
			d.Name = name
		}
		if status != "" {
			d.Status = status
		}
		if description != "" {
			d.Description = description
		}
		if at.After(d.LastChanged) {
			d.LastChanged = at
		}
	}

	for _, entry := range entries {
		for _, ne := range entry.NewEntities {
			touch(ne.EntityID, ne.Name, ne.Status, ne.Description, entry.CreatedAt)
		}
		for _, eu := range entry.EntityUpdates {
			touch(eu.EntityID, "", eu.Status, eu.Description, entry.CreatedAt)
		}
		delta.RelationshipChanges += len(entry.RelationshipUpdates)
	}

	s.fillNames(ctx, campaignID, byEntity)

	delta.Entities = make([]EntityDelta, 0, len(byEntity))
	for _, d := range byEntity {
		delta.Entities = append(delta.Entities, *d)
	}
	sort.Slice(delta.Entities, func(i, j int) bool {
		if !delta.Entities[i].LastChanged.Equal(delta.Entities[j].LastChanged) {
			return delta.Entities[i].LastChanged.After(delta.Entities[j].LastChanged)
		}
		return delta.Entities[i].EntityID < delta.Entities[j].EntityID
	})
	return delta, nil
}

func (s *Service) mirrorToGraph(ctx context.Context, entry store.WorldStateEntry) {
	now := time.Now().UTC()
	for _, ne := range entry.NewEntities {
		err := s.db.UpsertEntity(ctx, store.Entity{
			ID:          ne.EntityID,
			CampaignID:  entry.CampaignID,
			Name:        ne.Name,
			Type:        ne.Type,
			Status:      ne.Status,
			Description: ne.Description,
			Metadata:    ne.Metadata,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			s.logger.Warn("mirroring new entity to graph",
				zap.String("entity_id", ne.EntityID),
				zap.Error(err),
			)
		}
	}
	for _, ru := range entry.RelationshipUpdates {
		err := s.db.UpsertRelationship(ctx, store.Relationship{
			CampaignID:  entry.CampaignID,
			FromID:      ru.From,
			ToID:        ru.To,
			Type:        ru.Type,
			Status:      ru.Status,
			Description: ru.Description,
		})
		if err != nil {
			s.logger.Warn("mirroring relationship to graph",
				zap.String("from", ru.From),
				zap.String("to", ru.To),
				zap.Error(err),
			)
		}
	}
}

// fillNames resolves display names for entities the window itself never
// named. Best effort; the delta is still useful without them.
func (s *Service) fillNames(ctx context.Context, campaignID string, byEntity map[string]*EntityDelta) {
	var missing []string
	for id, d := range byEntity {
		if d.Name == "" {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return
	}
	entities, err := s.db.GetEntitiesByID(ctx, campaignID, missing)
	if err != nil {
		s.logger.Warn("resolving entity names for delta", zap.Error(err))
		return
	}
	for _, e := range entities {
		if d, ok := byEntity[e.ID]; ok {
			d.Name = e.Name
		}
	}
}

func applyEntry(state *State, entry store.WorldStateEntry, entityID string) *State {
	overlay := func(status, description string, metadata map[string]any) {
		if state == nil {
			state = &State{EntityID: entityID}
		}
		if status != "" {
			state.Status = status
		}
		if description != "" {
			state.Description = description
		}
		if metadata != nil {
			state.Metadata = metadata
		}
		state.SessionNumber = entry.SessionNumber
		state.UpdatedAt = entry.CreatedAt
	}

	for _, ne := range entry.NewEntities {
		if ne.EntityID != entityID {
			continue
		}
		overlay(ne.Status, ne.Description, ne.Metadata)
		if ne.Name != "" {
			state.Name = ne.Name
		}
		if ne.Type != "" {
			state.Type = ne.Type
		}
	}
	for _, eu := range entry.EntityUpdates {
		if eu.EntityID != entityID {
			continue
		}
		overlay(eu.Status, eu.Description, eu.Metadata)
	}
	return state
}

func validateInput(input RecordInput) error {
	for i, eu := range input.EntityUpdates {
		if strings.TrimSpace(eu.EntityID) == "" {
			return lkerrors.NewFieldError(fmt.Sprintf("entity_updates[%d].entity_id", i), "must not be empty")
		}
	}
	for i, ru := range input.RelationshipUpdates {
		if strings.TrimSpace(ru.From) == "" {
			return lkerrors.NewFieldError(fmt.Sprintf("relationship_updates[%d].from", i), "must not be empty")
		}
		if strings.TrimSpace(ru.To) == "" {
			return lkerrors.NewFieldError(fmt.Sprintf("relationship_updates[%d].to", i), "must not be empty")
		}
	}
	for i, ne := range input.NewEntities {
		field := func(name string) string {
			return fmt.Sprintf("new_entities[%d].%s", i, name)
		}
		if strings.TrimSpace(ne.EntityID) == "" {
			return lkerrors.NewFieldError(field("entity_id"), "must not be empty")
		}
		if strings.TrimSpace(ne.Name) == "" {
			return lkerrors.NewFieldError(field("name"), "must not be empty")
		}
		if !store.ValidEntityType(ne.Type) {
			return lkerrors.NewFieldError(field("type"), fmt.Sprintf("must be one of %s", strings.Join(store.EntityTypes, ", ")))
		}
	}
	return nil
}
