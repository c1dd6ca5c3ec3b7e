// Package ops exposes the engine's named operations behind a uniform result
// envelope. Every operation authenticates the caller's token, resolves the
// campaign under that owner, runs the underlying service, and maps failures
// to stable numeric codes.
package ops

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lorekeeper/internal/auth"
	lkerrors "lorekeeper/internal/errors"
	"lorekeeper/internal/metrics"
	"lorekeeper/internal/planner"
	"lorekeeper/internal/recap"
	"lorekeeper/internal/similarity"
	"lorekeeper/internal/staging"
	"lorekeeper/internal/store"
	"lorekeeper/internal/worldstate"
)

// Result is the envelope every operation returns. Failures carry a numeric
// code instead of a Go error so transports can pass them through unchanged.
type Result struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

type Store interface {
	CreateCampaign(ctx context.Context, c store.Campaign) error
	GetCampaignForOwner(ctx context.Context, id, owner string) (*store.Campaign, error)
	ListCampaigns(ctx context.Context, owner string) ([]store.Campaign, error)
	InsertSessionDigest(ctx context.Context, d store.SessionDigest) error
}

type Stager interface {
	StageBatch(ctx context.Context, campaign *store.Campaign, items []store.ShardInput) (*staging.Report, error)
	Review(ctx context.Context, campaignID, shardID, decision string) (*store.Shard, error)
	ListShards(ctx context.Context, campaignID, status string) ([]store.Shard, error)
}

type WorldLog interface {
	Record(ctx context.Context, input worldstate.RecordInput) (*store.WorldStateEntry, error)
	EntityState(ctx context.Context, campaignID, entityID string) (*worldstate.State, error)
}

type TaskManager interface {
	CreateTasks(ctx context.Context, campaignID string, titles []string) ([]store.PlanningTask, error)
	List(ctx context.Context, campaignID string, statuses ...string) ([]store.PlanningTask, error)
	Complete(ctx context.Context, campaignID, taskID, linkedContentID string) (*store.PlanningTask, bool, error)
}

type Recapper interface {
	Build(ctx context.Context, campaignID string, since time.Time) (*recap.Recap, error)
}

type SessionPlanner interface {
	Plan(ctx context.Context, campaign *store.Campaign, req planner.Request) (*planner.Plan, error)
}

type Searcher interface {
	Search(ctx context.Context, campaignID, query string, topN int, recencyWeighted bool) ([]similarity.Match, error)
}

// Deps carries every collaborator an Engine needs. Nothing is reached
// through ambient globals; what the engine can touch is what it was given.
type Deps struct {
	Store   Store
	Auth    auth.Verifier
	Staging Stager
	World   WorldLog
	Tasks   TaskManager
	Recap   Recapper
	Planner SessionPlanner
	Search  Searcher
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

type Engine struct {
	db      Store
	auth    auth.Verifier
	staging Stager
	world   WorldLog
	tasks   TaskManager
	recaps  Recapper
	planner SessionPlanner
	search  Searcher
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewEngine(d Deps) *Engine {
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Engine{
		db:      d.Store,
		auth:    d.Auth,
		staging: d.Staging,
		world:   d.World,
		tasks:   d.Tasks,
		recaps:  d.Recap,
		planner: d.Planner,
		search:  d.Search,
		metrics: d.Metrics,
		logger:  d.Logger,
	}
}

func ok(message string, data any) Result {
	return Result{Success: true, Message: message, Data: data}
}

func fail(err error) Result {
	return Result{Success: false, Message: err.Error(), ErrorCode: lkerrors.Code(err)}
}

// campaignOp authenticates the token and resolves the campaign under that
// owner before running fn. A campaign that does not exist and a campaign
// owned by someone else read identically as not found.
func (e *Engine) campaignOp(ctx context.Context, op, token, campaignID string, fn func(ctx context.Context, campaign *store.Campaign) (string, any, error)) Result {
	return e.instrument(op, func() Result {
		username, err := e.auth.Username(token)
		if err != nil {
			return fail(err)
		}
		if campaignID == "" {
			return fail(lkerrors.NewFieldError("campaign_id", "must not be empty"))
		}
		campaign, err := e.db.GetCampaignForOwner(ctx, campaignID, username)
		if err != nil {
			return fail(fmt.Errorf("loading campaign: %w", err))
		}
		if campaign == nil {
			return fail(fmt.Errorf("%w: campaign %s", lkerrors.ErrNotFound, campaignID))
		}
		message, data, err := fn(ctx, campaign)
		if err != nil {
			return fail(err)
		}
		return ok(message, data)
	})
}

func (e *Engine) userOp(ctx context.Context, op, token string, fn func(ctx context.Context, username string) (string, any, error)) Result {
	return e.instrument(op, func() Result {
		username, err := e.auth.Username(token)
		if err != nil {
			return fail(err)
		}
		message, data, err := fn(ctx, username)
		if err != nil {
			return fail(err)
		}
		return ok(message, data)
	})
}

func (e *Engine) instrument(op string, fn func() Result) Result {
	start := time.Now()
	result := fn()
	e.metrics.ObserveDuration(op, time.Since(start).Seconds())

	status := "ok"
	if !result.Success {
		status = "error"
	}
	e.metrics.RecordOperation(op, status)

	if result.Success {
		e.logger.Debug("operation completed",
			zap.String("operation", op),
			zap.String("message", result.Message))
	} else {
		e.logger.Warn("operation failed",
			zap.String("operation", op),
			zap.Int("error_code", result.ErrorCode),
			zap.String("message", result.Message))
	}
	return result
}
