package worldstate

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	lkerrors "lorekeeper/internal/errors"
	"lorekeeper/internal/store"
)

type fakeStore struct {
	entries  []store.WorldStateEntry
	entities map[string]store.Entity

	appendErr error
	listErr   error
	upsertErr error

	upsertedEntities      []store.Entity
	upsertedRelationships []store.Relationship
}

func newFakeStore() *fakeStore {
	return &fakeStore{entities: map[string]store.Entity{}}
}

func (f *fakeStore) AppendWorldState(_ context.Context, e store.WorldStateEntry) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeStore) ListWorldState(_ context.Context, campaignID string, since time.Time) ([]store.WorldStateEntry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []store.WorldStateEntry
	for _, e := range f.entries {
		if e.CampaignID != campaignID {
			continue
		}
		if !since.IsZero() && e.CreatedAt.Before(since) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) UpsertEntity(_ context.Context, e store.Entity) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upsertedEntities = append(f.upsertedEntities, e)
	f.entities[e.ID] = e
	return nil
}

func (f *fakeStore) UpsertRelationship(_ context.Context, r store.Relationship) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upsertedRelationships = append(f.upsertedRelationships, r)
	return nil
}

func (f *fakeStore) GetEntitiesByID(_ context.Context, _ string, ids []string) ([]store.Entity, error) {
	var out []store.Entity
	for _, id := range ids {
		if e, ok := f.entities[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestRecordAppendsEntry(t *testing.T) {
	db := newFakeStore()
	svc := NewService(db, zap.NewNop())

	entry, err := svc.Record(context.Background(), RecordInput{
		CampaignID:    "camp",
		SessionNumber: 4,
		EntityUpdates: []store.EntityUpdate{{EntityID: "varn", Status: "dead"}},
		NewEntities: []store.NewEntity{
			{EntityID: "mira", Name: "Mira", Type: "npc", Status: "alive"},
		},
		RelationshipUpdates: []store.RelationshipUpdate{
			{From: "mira", To: "varn", Type: "rival", Status: "ended"},
		},
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Errorf("entry not stamped: %+v", entry)
	}
	if len(db.entries) != 1 {
		t.Fatalf("appended %d entries, want 1", len(db.entries))
	}
	if len(db.upsertedEntities) != 1 || db.upsertedEntities[0].ID != "mira" {
		t.Errorf("new entity not mirrored: %+v", db.upsertedEntities)
	}
	if len(db.upsertedRelationships) != 1 || db.upsertedRelationships[0].FromID != "mira" {
		t.Errorf("relationship not mirrored: %+v", db.upsertedRelationships)
	}
}

func TestRecordEmptyEntryAccepted(t *testing.T) {
	db := newFakeStore()
	svc := NewService(db, zap.NewNop())

	if _, err := svc.Record(context.Background(), RecordInput{CampaignID: "camp"}); err != nil {
		t.Errorf("Record() error = %v, empty entries are accepted", err)
	}
	if len(db.entries) != 1 {
		t.Errorf("appended %d entries, want 1", len(db.entries))
	}
}

func TestRecordValidation(t *testing.T) {
	tests := []struct {
		name  string
		input RecordInput
	}{
		{
			name: "entity update without id",
			input: RecordInput{CampaignID: "camp", EntityUpdates: []store.EntityUpdate{{Status: "dead"}}},
		},
		{
			name: "relationship without from",
			input: RecordInput{CampaignID: "camp", RelationshipUpdates: []store.RelationshipUpdate{{To: "b"}}},
		},
		{
			name: "relationship without to",
			input: RecordInput{CampaignID: "camp", RelationshipUpdates: []store.RelationshipUpdate{{From: "a"}}},
		},
		{
			name: "new entity without name",
			input: RecordInput{CampaignID: "camp", NewEntities: []store.NewEntity{{EntityID: "x", Type: "npc"}}},
		},
		{
			name: "new entity with bad type",
			input: RecordInput{CampaignID: "camp", NewEntities: []store.NewEntity{{EntityID: "x", Name: "X", Type: "deity"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newFakeStore()
			svc := NewService(db, zap.NewNop())
			if _, err := svc.Record(context.Background(), tt.input); !errors.Is(err, lkerrors.ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
			if len(db.entries) != 0 {
				t.Errorf("entry appended despite validation failure")
			}
		})
	}
}

func TestRecordMirrorFailureSwallowed(t *testing.T) {
	db := newFakeStore()
	db.upsertErr = errors.New("graph offline")
	svc := NewService(db, zap.NewNop())

	_, err := svc.Record(context.Background(), RecordInput{
		CampaignID:  "camp",
		NewEntities: []store.NewEntity{{EntityID: "mira", Name: "Mira", Type: "npc"}},
	})
	if err != nil {
		t.Fatalf("Record() error = %v, mirror failures must not propagate", err)
	}
	if len(db.entries) != 1 {
		t.Errorf("changelog append lost: %d entries", len(db.entries))
	}
}

func entryAt(campaignID string, at time.Time, session int) store.WorldStateEntry {
	return store.WorldStateEntry{ID: "e-" + at.Format("150405"), CampaignID: campaignID, SessionNumber: session, CreatedAt: at}
}

func TestEntityStateReplaysLastWriteWins(t *testing.T) {
	base := time.Date(2026, 1, 10, 18, 0, 0, 0, time.UTC)
	db := newFakeStore()

	first := entryAt("camp", base, 1)
	first.NewEntities = []store.NewEntity{{EntityID: "varn", Name: "Varn", Type: "npc", Status: "alive", Description: "a smuggler"}}
	second := entryAt("camp", base.Add(time.Hour), 2)
	second.EntityUpdates = []store.EntityUpdate{{EntityID: "varn", Status: "imprisoned"}}
	third := entryAt("camp", base.Add(2*time.Hour), 3)
	third.EntityUpdates = []store.EntityUpdate{{EntityID: "varn", Status: "dead", Description: "executed at dawn"}}
	db.entries = []store.WorldStateEntry{first, second, third}

	svc := NewService(db, zap.NewNop())
	state, err := svc.EntityState(context.Background(), "camp", "varn")
	if err != nil {
		t.Fatalf("EntityState() error = %v", err)
	}
	if state == nil {
		t.Fatal("EntityState() = nil, want replayed state")
	}
	if state.Status != "dead" {
		t.Errorf("status = %q, want dead", state.Status)
	}
	if state.Description != "executed at dawn" {
		t.Errorf("description = %q, want the latest", state.Description)
	}
	if state.Name != "Varn" || state.Type != "npc" {
		t.Errorf("identity fields lost: %+v", state)
	}
	if state.SessionNumber != 3 {
		t.Errorf("session = %d, want 3", state.SessionNumber)
	}
}

func TestEntityStatePartialUpdateKeepsPriorFields(t *testing.T) {
	base := time.Date(2026, 1, 10, 18, 0, 0, 0, time.UTC)
	db := newFakeStore()

	first := entryAt("camp", base, 1)
	first.NewEntities = []store.NewEntity{{EntityID: "varn", Name: "Varn", Type: "npc", Status: "alive", Description: "a smuggler"}}
	second := entryAt("camp", base.Add(time.Hour), 2)
	second.EntityUpdates = []store.EntityUpdate{{EntityID: "varn", Status: "dead"}}
	db.entries = []store.WorldStateEntry{first, second}

	svc := NewService(db, zap.NewNop())
	state, err := svc.EntityState(context.Background(), "camp", "varn")
	if err != nil {
		t.Fatalf("EntityState() error = %v", err)
	}
	if state.Status != "dead" {
		t.Errorf("status = %q, want dead", state.Status)
	}
	if state.Description != "a smuggler" {
		t.Errorf("description = %q, empty update must not clear it", state.Description)
	}
}

func TestEntityStateUnknownEntity(t *testing.T) {
	svc := NewService(newFakeStore(), zap.NewNop())
	state, err := svc.EntityState(context.Background(), "camp", "nobody")
	if err != nil {
		t.Fatalf("EntityState() error = %v", err)
	}
	if state != nil {
		t.Errorf("state = %+v, want nil for never-named entity", state)
	}
}

func TestChangesSinceFoldsPerEntity(t *testing.T) {
	base := time.Date(2026, 1, 10, 18, 0, 0, 0, time.UTC)
	db := newFakeStore()
	db.entities["ghost"] = store.Entity{ID: "ghost", CampaignID: "camp", Name: "The Pale Ghost"}

	old := entryAt("camp", base.Add(-48*time.Hour), 1)
	old.EntityUpdates = []store.EntityUpdate{{EntityID: "varn", Status: "alive"}}

	recent := entryAt("camp", base, 2)
	recent.NewEntities = []store.NewEntity{{EntityID: "mira", Name: "Mira", Type: "npc", Status: "alive"}}
	recent.EntityUpdates = []store.EntityUpdate{{EntityID: "ghost", Status: "banished"}}

	later := entryAt("camp", base.Add(time.Hour), 2)
	later.EntityUpdates = []store.EntityUpdate{{EntityID: "mira", Status: "missing"}}
	later.RelationshipUpdates = []store.RelationshipUpdate{{From: "mira", To: "ghost", Status: "bound"}}

	db.entries = []store.WorldStateEntry{old, recent, later}

	svc := NewService(db, zap.NewNop())
	delta, err := svc.ChangesSince(context.Background(), "camp", base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("ChangesSince() error = %v", err)
	}
	if delta.Entries != 2 {
		t.Errorf("entries = %d, want 2 inside the window", delta.Entries)
	}
	if delta.RelationshipChanges != 1 {
		t.Errorf("relationship changes = %d, want 1", delta.RelationshipChanges)
	}
	if len(delta.Entities) != 2 {
		t.Fatalf("entity deltas = %d, want 2", len(delta.Entities))
	}
	// Most recently changed first.
	if delta.Entities[0].EntityID != "mira" {
		t.Errorf("first delta = %s, want mira", delta.Entities[0].EntityID)
	}
	if delta.Entities[0].Status != "missing" || delta.Entities[0].Changes != 2 {
		t.Errorf("mira delta = %+v", delta.Entities[0])
	}
	// Name resolved from the entity table when the window never named it.
	if delta.Entities[1].Name != "The Pale Ghost" {
		t.Errorf("ghost name = %q, want resolved from graph", delta.Entities[1].Name)
	}
}

func TestAppendOnlyNeverRewrites(t *testing.T) {
	db := newFakeStore()
	svc := NewService(db, zap.NewNop())

	for i := 0; i < 3; i++ {
		if _, err := svc.Record(context.Background(), RecordInput{
			CampaignID:    "camp",
			EntityUpdates: []store.EntityUpdate{{EntityID: "varn", Status: "alive"}},
		}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	if len(db.entries) != 3 {
		t.Errorf("entries = %d, want one appended per call", len(db.entries))
	}
	seen := map[string]bool{}
	for _, e := range db.entries {
		if seen[e.ID] {
			t.Errorf("entry id %s reused", e.ID)
		}
		seen[e.ID] = true
	}
}
