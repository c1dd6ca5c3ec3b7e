// Package tasks tracks campaign planning tasks and links newly captured
// content to the open task it most likely fulfills.
package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	lkerrors "lorekeeper/internal/errors"
	"lorekeeper/internal/store"
)

type Store interface {
	InsertTask(ctx context.Context, t store.PlanningTask) error
	GetTask(ctx context.Context, campaignID, id string) (*store.PlanningTask, error)
	ListTasks(ctx context.Context, campaignID string, statuses ...string) ([]store.PlanningTask, error)
	CompleteTask(ctx context.Context, campaignID, id, linkedContentID string) (bool, error)
	CountTasksByStatus(ctx context.Context, campaignID string) (map[string]int, error)
}

type Service struct {
	db       Store
	scorer   Scorer
	minScore int
	logger   *zap.Logger
}

func NewService(db Store, scorer Scorer, minScore int, logger *zap.Logger) *Service {
	if scorer == nil {
		scorer = KeywordScorer{}
	}
	if minScore < 1 {
		minScore = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, scorer: scorer, minScore: minScore, logger: logger}
}

// LinkNewContent finds the open task best matching content and completes
// it with contentID as the fulfillment reference. Returns the completed
// task id, or "" when no task scored high enough. With explicitTaskID
// set the caller has already decided the association and no scoring
// happens.
func (s *Service) LinkNewContent(ctx context.Context, campaignID, contentID, content, explicitTaskID string) (string, error) {
	if explicitTaskID != "" {
		task, err := s.db.GetTask(ctx, campaignID, explicitTaskID)
		if err != nil {
			return "", fmt.Errorf("loading task: %w", err)
		}
		if task == nil {
			return "", fmt.Errorf("%w: task %s", lkerrors.ErrNotFound, explicitTaskID)
		}
		changed, err := s.db.CompleteTask(ctx, campaignID, explicitTaskID, contentID)
		if err != nil {
			return "", fmt.Errorf("completing task: %w", err)
		}
		if !changed {
			s.logger.Debug("task already completed", zap.String("task_id", explicitTaskID))
		}
		return explicitTaskID, nil
	}

	open, err := s.db.ListTasks(ctx, campaignID, store.TaskPending, store.TaskInProgress)
	if err != nil {
		return "", fmt.Errorf("listing open tasks: %w", err)
	}
	// Tasks arrive oldest first, so strict comparison keeps the oldest on ties.
	best := -1
	bestScore := 0
	for i := range open {
		if score := s.scorer.Score(open[i].Title, content); score > bestScore {
			bestScore = score
			best = i
		}
	}
	if best < 0 || bestScore < s.minScore {
		return "", nil
	}
	if _, err := s.db.CompleteTask(ctx, campaignID, open[best].ID, contentID); err != nil {
		return "", fmt.Errorf("completing task: %w", err)
	}
	s.logger.Info("linked content to task",
		zap.String("campaign_id", campaignID),
		zap.String("task_id", open[best].ID),
		zap.Int("score", bestScore),
	)
	return open[best].ID, nil
}

// CreateTasks persists one pending task per title. All titles are
// validated before anything is written.
func (s *Service) CreateTasks(ctx context.Context, campaignID string, titles []string) ([]store.PlanningTask, error) {
	if len(titles) == 0 {
		return nil, lkerrors.NewFieldError("titles", "must not be empty")
	}
	cleaned := make([]string, 0, len(titles))
	for _, raw := range titles {
		title := strings.TrimSpace(raw)
		if title == "" {
			return nil, lkerrors.NewFieldError("title", "must not be empty")
		}
		cleaned = append(cleaned, title)
	}

	now := time.Now().UTC()
	created := make([]store.PlanningTask, 0, len(cleaned))
	for _, title := range cleaned {
		task := store.PlanningTask{
			ID:         uuid.NewString(),
			CampaignID: campaignID,
			Title:      title,
			Status:     store.TaskPending,
			CreatedAt:  now,
		}
		if err := s.db.InsertTask(ctx, task); err != nil {
			return created, fmt.Errorf("inserting task: %w", err)
		}
		created = append(created, task)
	}
	return created, nil
}

func (s *Service) List(ctx context.Context, campaignID string, statuses ...string) ([]store.PlanningTask, error) {
	for _, st := range statuses {
		if !store.ValidTaskStatus(st) {
			return nil, lkerrors.NewFieldError("status", fmt.Sprintf("must be pending, in_progress or completed, got %q", st))
		}
	}
	tasks, err := s.db.ListTasks(ctx, campaignID, statuses...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return tasks, nil
}

// Complete marks a task completed at the user's request. Unlike the
// linker path this surfaces every failure to the caller. The returned
// bool reports whether this call changed the task.
func (s *Service) Complete(ctx context.Context, campaignID, taskID, linkedContentID string) (*store.PlanningTask, bool, error) {
	task, err := s.db.GetTask(ctx, campaignID, taskID)
	if err != nil {
		return nil, false, fmt.Errorf("loading task: %w", err)
	}
	if task == nil {
		return nil, false, fmt.Errorf("%w: task %s", lkerrors.ErrNotFound, taskID)
	}
	changed, err := s.db.CompleteTask(ctx, campaignID, taskID, linkedContentID)
	if err != nil {
		return nil, false, fmt.Errorf("completing task: %w", err)
	}
	if changed {
		task, err = s.db.GetTask(ctx, campaignID, taskID)
		if err != nil {
			return nil, false, fmt.Errorf("reloading task: %w", err)
		}
	}
	return task, changed, nil
}

// Counts returns the open (pending plus in-progress) and completed task
// counts used by the recap directive table.
func (s *Service) Counts(ctx context.Context, campaignID string) (open, completed int, err error) {
	counts, err := s.db.CountTasksByStatus(ctx, campaignID)
	if err != nil {
		return 0, 0, fmt.Errorf("counting tasks: %w", err)
	}
	return counts[store.TaskPending] + counts[store.TaskInProgress], counts[store.TaskCompleted], nil
}
