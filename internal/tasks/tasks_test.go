package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	lkerrors "lorekeeper/internal/errors"
	"lorekeeper/internal/store"
)

func TestKeywordScorer(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		content string
		want    int
	}{
		{
			name:    "partial word overlap",
			title:   "Find the missing sword",
			content: "The party found the missing sword in the vault",
			want:    2,
		},
		{
			name:    "no overlap",
			title:   "Negotiate with the Duke",
			content: "The weather was cold and rainy",
			want:    0,
		},
		{
			name:    "verbatim title plus words",
			title:   "The heist",
			content: "Planning the heist tonight at the docks",
			want:    4,
		},
		{
			name:    "case insensitive",
			title:   "RESCUE THE PRISONER",
			content: "they rescue the prisoner at dawn",
			want:    5,
		},
		{
			name:    "short words ignored",
			title:   "go to the inn",
			content: "go to the inn",
			want:    3,
		},
		{
			name:    "empty title",
			title:   "",
			content: "anything",
			want:    0,
		},
		{
			name:    "empty content",
			title:   "Find the sword",
			content: "",
			want:    0,
		},
	}

	scorer := KeywordScorer{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scorer.Score(tt.title, tt.content); got != tt.want {
				t.Errorf("Score(%q, %q) = %d, want %d", tt.title, tt.content, got, tt.want)
			}
		})
	}
}

type fakeStore struct {
	tasks   []store.PlanningTask
	listErr error

	inserted  []store.PlanningTask
	completed map[string]string
}

func newFakeStore(tasks ...store.PlanningTask) *fakeStore {
	return &fakeStore{tasks: tasks, completed: map[string]string{}}
}

func (f *fakeStore) InsertTask(_ context.Context, t store.PlanningTask) error {
	f.inserted = append(f.inserted, t)
	f.tasks = append(f.tasks, t)
	return nil
}

func (f *fakeStore) GetTask(_ context.Context, campaignID, id string) (*store.PlanningTask, error) {
	for i := range f.tasks {
		if f.tasks[i].CampaignID == campaignID && f.tasks[i].ID == id {
			task := f.tasks[i]
			return &task, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListTasks(_ context.Context, campaignID string, statuses ...string) ([]store.PlanningTask, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	wanted := func(status string) bool {
		if len(statuses) == 0 {
			return true
		}
		for _, s := range statuses {
			if s == status {
				return true
			}
		}
		return false
	}
	var out []store.PlanningTask
	for _, task := range f.tasks {
		if task.CampaignID == campaignID && wanted(task.Status) {
			out = append(out, task)
		}
	}
	return out, nil
}

func (f *fakeStore) CompleteTask(_ context.Context, campaignID, id, linkedContentID string) (bool, error) {
	for i := range f.tasks {
		if f.tasks[i].CampaignID != campaignID || f.tasks[i].ID != id {
			continue
		}
		if f.tasks[i].Status == store.TaskCompleted {
			return false, nil
		}
		now := time.Now()
		f.tasks[i].Status = store.TaskCompleted
		f.tasks[i].LinkedContentID = linkedContentID
		f.tasks[i].CompletedAt = &now
		f.completed[id] = linkedContentID
		return true, nil
	}
	return false, nil
}

func (f *fakeStore) CountTasksByStatus(_ context.Context, campaignID string) (map[string]int, error) {
	counts := map[string]int{}
	for _, task := range f.tasks {
		if task.CampaignID == campaignID {
			counts[task.Status]++
		}
	}
	return counts, nil
}

func openTask(id, campaignID, title string, created time.Time) store.PlanningTask {
	return store.PlanningTask{ID: id, CampaignID: campaignID, Title: title, Status: store.TaskPending, CreatedAt: created}
}

func TestLinkNewContentCompletesBestMatch(t *testing.T) {
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	db := newFakeStore(
		openTask("t1", "camp", "Negotiate with the Duke", base),
		openTask("t2", "camp", "Find the missing sword", base.Add(time.Hour)),
	)
	svc := NewService(db, nil, 2, zap.NewNop())

	linked, err := svc.LinkNewContent(context.Background(), "camp", "shard-9", "The party found the missing sword in the vault", "")
	if err != nil {
		t.Fatalf("LinkNewContent() error = %v", err)
	}
	if linked != "t2" {
		t.Fatalf("linked = %q, want t2", linked)
	}
	if db.completed["t2"] != "shard-9" {
		t.Errorf("fulfillment reference = %q, want shard-9", db.completed["t2"])
	}
	if db.completed["t1"] != "" {
		t.Errorf("unrelated task t1 was completed")
	}
}

func TestLinkNewContentBelowThreshold(t *testing.T) {
	db := newFakeStore(openTask("t1", "camp", "Negotiate with the Duke", time.Now()))
	svc := NewService(db, nil, 2, zap.NewNop())

	linked, err := svc.LinkNewContent(context.Background(), "camp", "shard-9", "The weather was cold and rainy", "")
	if err != nil {
		t.Fatalf("LinkNewContent() error = %v", err)
	}
	if linked != "" {
		t.Errorf("linked = %q, want no linkage", linked)
	}
	if len(db.completed) != 0 {
		t.Errorf("tasks completed: %v, want none", db.completed)
	}
}

func TestLinkNewContentTieBreaksToOldest(t *testing.T) {
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	db := newFakeStore(
		openTask("older", "camp", "Recover the sunken chest", base),
		openTask("newer", "camp", "Recover the sunken chest", base.Add(time.Hour)),
	)
	svc := NewService(db, nil, 2, zap.NewNop())

	linked, err := svc.LinkNewContent(context.Background(), "camp", "shard-1", "They recover the sunken chest at last", "")
	if err != nil {
		t.Fatalf("LinkNewContent() error = %v", err)
	}
	if linked != "older" {
		t.Errorf("linked = %q, want the older task", linked)
	}
}

func TestLinkNewContentExplicitTask(t *testing.T) {
	db := newFakeStore(openTask("t1", "camp", "Completely unrelated title", time.Now()))
	svc := NewService(db, nil, 2, zap.NewNop())

	linked, err := svc.LinkNewContent(context.Background(), "camp", "shard-1", "irrelevant content", "t1")
	if err != nil {
		t.Fatalf("LinkNewContent() error = %v", err)
	}
	if linked != "t1" {
		t.Errorf("linked = %q, want t1", linked)
	}
	if db.completed["t1"] != "shard-1" {
		t.Errorf("fulfillment reference = %q, want shard-1", db.completed["t1"])
	}
}

func TestLinkNewContentExplicitTaskMissing(t *testing.T) {
	db := newFakeStore()
	svc := NewService(db, nil, 2, zap.NewNop())

	_, err := svc.LinkNewContent(context.Background(), "camp", "shard-1", "content", "ghost")
	if !errors.Is(err, lkerrors.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestLinkNewContentCompletedStaysCompleted(t *testing.T) {
	now := time.Now()
	done := store.PlanningTask{ID: "t1", CampaignID: "camp", Title: "Find the sword", Status: store.TaskCompleted, LinkedContentID: "earlier", CreatedAt: now, CompletedAt: &now}
	db := newFakeStore(done)
	svc := NewService(db, nil, 2, zap.NewNop())

	linked, err := svc.LinkNewContent(context.Background(), "camp", "shard-2", "anything at all", "t1")
	if err != nil {
		t.Fatalf("LinkNewContent() error = %v", err)
	}
	if linked != "t1" {
		t.Errorf("linked = %q, want t1", linked)
	}
	if db.tasks[0].LinkedContentID != "earlier" {
		t.Errorf("completed task was relinked to %q", db.tasks[0].LinkedContentID)
	}
}

func TestCreateTasksValidatesBeforeWriting(t *testing.T) {
	db := newFakeStore()
	svc := NewService(db, nil, 2, zap.NewNop())

	_, err := svc.CreateTasks(context.Background(), "camp", []string{"Good title", "   "})
	if !errors.Is(err, lkerrors.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
	if len(db.inserted) != 0 {
		t.Errorf("%d tasks inserted despite validation failure", len(db.inserted))
	}
}

func TestCreateTasks(t *testing.T) {
	db := newFakeStore()
	svc := NewService(db, nil, 2, zap.NewNop())

	created, err := svc.CreateTasks(context.Background(), "camp", []string{"First", "  Second  "})
	if err != nil {
		t.Fatalf("CreateTasks() error = %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("created %d tasks, want 2", len(created))
	}
	for _, task := range created {
		if task.ID == "" || task.Status != store.TaskPending || task.CampaignID != "camp" {
			t.Errorf("malformed task: %+v", task)
		}
	}
	if created[1].Title != "Second" {
		t.Errorf("title = %q, want trimmed Second", created[1].Title)
	}
}

func TestCounts(t *testing.T) {
	now := time.Now()
	db := newFakeStore(
		openTask("t1", "camp", "a", now),
		store.PlanningTask{ID: "t2", CampaignID: "camp", Title: "b", Status: store.TaskInProgress, CreatedAt: now},
		store.PlanningTask{ID: "t3", CampaignID: "camp", Title: "c", Status: store.TaskCompleted, CreatedAt: now},
	)
	svc := NewService(db, nil, 2, zap.NewNop())

	open, completed, err := svc.Counts(context.Background(), "camp")
	if err != nil {
		t.Fatalf("Counts() error = %v", err)
	}
	if open != 2 || completed != 1 {
		t.Errorf("Counts() = (%d, %d), want (2, 1)", open, completed)
	}
}
