package mcp

import (
	"context"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	lkerrors "lorekeeper/internal/errors"
	"lorekeeper/internal/ops"
	"lorekeeper/internal/planner"
	"lorekeeper/internal/store"
)

// Operations is the engine surface the MCP tools call into. Every method
// returns the uniform result envelope; tool handlers never unwrap it.
type Operations interface {
	CreateCampaign(ctx context.Context, token, name, system, description string) ops.Result
	ListCampaigns(ctx context.Context, token string) ops.Result
	StageContext(ctx context.Context, token, campaignID string, items []store.ShardInput) ops.Result
	ReviewShard(ctx context.Context, token, campaignID, shardID, decision string) ops.Result
	ListShards(ctx context.Context, token, campaignID, status string) ops.Result
	RecordWorldState(ctx context.Context, token, campaignID string, sessionNumber int, updates []store.EntityUpdate, relationships []store.RelationshipUpdate, newEntities []store.NewEntity) ops.Result
	GetEntityState(ctx context.Context, token, campaignID, entityID string) ops.Result
	GetRecap(ctx context.Context, token, campaignID string, since time.Time) ops.Result
	PlanSession(ctx context.Context, token, campaignID string, req planner.Request) ops.Result
	CreateTasks(ctx context.Context, token, campaignID string, titles []string) ops.Result
	ListTasks(ctx context.Context, token, campaignID string, statuses []string) ops.Result
	CompleteTask(ctx context.Context, token, campaignID, taskID, linkedContentID string) ops.Result
	SearchCampaign(ctx context.Context, token, campaignID, query string, topN int, recencyWeighted bool) ops.Result
	RecordSessionDigest(ctx context.Context, token, campaignID string, sessionNumber int, title, summary string) ops.Result
}

var _ Operations = (*ops.Engine)(nil)

type CreateCampaignInput struct {
	Token       string `json:"token" jsonschema:"caller bearer token"`
	Name        string `json:"name" jsonschema:"campaign name"`
	System      string `json:"system,omitempty" jsonschema:"game system, e.g. D&D 5e"`
	Description string `json:"description,omitempty" jsonschema:"short campaign premise"`
}

type ListCampaignsInput struct {
	Token string `json:"token" jsonschema:"caller bearer token"`
}

type StagedItem struct {
	Type       string  `json:"type" jsonschema:"context type, e.g. npc, location, plot_decision"`
	Title      string  `json:"title" jsonschema:"short shard title"`
	Content    string  `json:"content" jsonschema:"the captured knowledge"`
	Confidence float64 `json:"confidence" jsonschema:"capture confidence in [0,1]"`
	SourceRef  string  `json:"source_ref,omitempty" jsonschema:"where the knowledge came from"`
}

type StageContextInput struct {
	Token      string       `json:"token" jsonschema:"caller bearer token"`
	CampaignID string       `json:"campaign_id" jsonschema:"campaign identifier"`
	Items      []StagedItem `json:"items" jsonschema:"knowledge items to stage"`
}

type ReviewShardInput struct {
	Token      string `json:"token" jsonschema:"caller bearer token"`
	CampaignID string `json:"campaign_id" jsonschema:"campaign identifier"`
	ShardID    string `json:"shard_id" jsonschema:"shard to review"`
	Decision   string `json:"decision" jsonschema:"approve or reject"`
}

type ListShardsInput struct {
	Token      string `json:"token" jsonschema:"caller bearer token"`
	CampaignID string `json:"campaign_id" jsonschema:"campaign identifier"`
	Status     string `json:"status,omitempty" jsonschema:"filter by pending, approved, or rejected"`
}

type RecordWorldStateInput struct {
	Token               string                     `json:"token" jsonschema:"caller bearer token"`
	CampaignID          string                     `json:"campaign_id" jsonschema:"campaign identifier"`
	SessionNumber       int                        `json:"session_number,omitempty" jsonschema:"session the changes happened in"`
	EntityUpdates       []store.EntityUpdate       `json:"entity_updates,omitempty" jsonschema:"status or description changes to known entities"`
	RelationshipUpdates []store.RelationshipUpdate `json:"relationship_updates,omitempty" jsonschema:"relationship changes between entities"`
	NewEntities         []store.NewEntity          `json:"new_entities,omitempty" jsonschema:"entities introduced this session"`
}

type GetEntityStateInput struct {
	Token      string `json:"token" jsonschema:"caller bearer token"`
	CampaignID string `json:"campaign_id" jsonschema:"campaign identifier"`
	EntityID   string `json:"entity_id" jsonschema:"entity to replay"`
}

type GetRecapInput struct {
	Token      string `json:"token" jsonschema:"caller bearer token"`
	CampaignID string `json:"campaign_id" jsonschema:"campaign identifier"`
	Since      string `json:"since,omitempty" jsonschema:"RFC3339 timestamp; defaults to one hour ago"`
}

type PlanSessionInput struct {
	Token         string   `json:"token" jsonschema:"caller bearer token"`
	CampaignID    string   `json:"campaign_id" jsonschema:"campaign identifier"`
	Title         string   `json:"session_title" jsonschema:"working title for the session"`
	SessionType   string   `json:"session_type,omitempty" jsonschema:"e.g. combat, intrigue, exploration"`
	DurationHours float64  `json:"estimated_duration_hours,omitempty" jsonschema:"expected play time"`
	FocusAreas    []string `json:"focus_areas,omitempty" jsonschema:"themes or threads to center"`
	OneOff        bool     `json:"one_off,omitempty" jsonschema:"true for a self-contained session"`
}

type CreateTasksInput struct {
	Token      string   `json:"token" jsonschema:"caller bearer token"`
	CampaignID string   `json:"campaign_id" jsonschema:"campaign identifier"`
	Titles     []string `json:"titles" jsonschema:"task titles to create"`
}

type ListTasksInput struct {
	Token      string   `json:"token" jsonschema:"caller bearer token"`
	CampaignID string   `json:"campaign_id" jsonschema:"campaign identifier"`
	Statuses   []string `json:"statuses,omitempty" jsonschema:"filter by pending, in_progress, or completed"`
}

type CompleteTaskInput struct {
	Token           string `json:"token" jsonschema:"caller bearer token"`
	CampaignID      string `json:"campaign_id" jsonschema:"campaign identifier"`
	TaskID          string `json:"task_id" jsonschema:"task to complete"`
	LinkedContentID string `json:"linked_content_id,omitempty" jsonschema:"shard that fulfills the task"`
}

type SearchCampaignInput struct {
	Token           string `json:"token" jsonschema:"caller bearer token"`
	CampaignID      string `json:"campaign_id" jsonschema:"campaign identifier"`
	Query           string `json:"query" jsonschema:"search terms"`
	TopN            int    `json:"top_n,omitempty" jsonschema:"maximum results, default 10"`
	RecencyWeighted bool   `json:"recency_weighted,omitempty" jsonschema:"favor recently captured content"`
}

type RecordSessionDigestInput struct {
	Token         string `json:"token" jsonschema:"caller bearer token"`
	CampaignID    string `json:"campaign_id" jsonschema:"campaign identifier"`
	SessionNumber int    `json:"session_number" jsonschema:"which session this summarizes"`
	Title         string `json:"title" jsonschema:"session title"`
	Summary       string `json:"summary" jsonschema:"what happened"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "create_campaign",
		Description: "Create a campaign owned by the caller",
	}, s.handleCreateCampaign)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_campaigns",
		Description: "List campaigns owned by the caller",
	}, s.handleListCampaigns)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "stage_context",
		Description: "Capture campaign knowledge as pending shards for review",
	}, s.handleStageContext)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "review_shard",
		Description: "Approve or reject a pending shard",
	}, s.handleReviewShard)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_shards",
		Description: "List captured shards, optionally filtered by status",
	}, s.handleListShards)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "record_world_state",
		Description: "Append entity and relationship changes to the campaign changelog",
	}, s.handleRecordWorldState)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_entity_state",
		Description: "Replay the changelog to get an entity's current state",
	}, s.handleGetEntityState)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_recap",
		Description: "Summarize recent sessions, world changes, and planning tasks",
	}, s.handleGetRecap)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "plan_session",
		Description: "Generate a session script grounded in campaign canon",
	}, s.handlePlanSession)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "create_tasks",
		Description: "Create planning tasks for the campaign",
	}, s.handleCreateTasks)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_tasks",
		Description: "List planning tasks, optionally filtered by status",
	}, s.handleListTasks)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "complete_task",
		Description: "Mark a planning task completed",
	}, s.handleCompleteTask)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "search_campaign",
		Description: "Search captured campaign content",
	}, s.handleSearchCampaign)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "record_session_digest",
		Description: "Record a short summary of a played session",
	}, s.handleRecordSessionDigest)
}

func (s *Server) handleCreateCampaign(ctx context.Context, _ *sdk.CallToolRequest, input CreateCampaignInput) (*sdk.CallToolResult, ops.Result, error) {
	return nil, s.engine.CreateCampaign(ctx, input.Token, input.Name, input.System, input.Description), nil
}

func (s *Server) handleListCampaigns(ctx context.Context, _ *sdk.CallToolRequest, input ListCampaignsInput) (*sdk.CallToolResult, ops.Result, error) {
	return nil, s.engine.ListCampaigns(ctx, input.Token), nil
}

func (s *Server) handleStageContext(ctx context.Context, _ *sdk.CallToolRequest, input StageContextInput) (*sdk.CallToolResult, ops.Result, error) {
	items := make([]store.ShardInput, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, store.ShardInput{
			Type:       item.Type,
			Title:      item.Title,
			Content:    item.Content,
			Confidence: item.Confidence,
			SourceRef:  item.SourceRef,
		})
	}
	return nil, s.engine.StageContext(ctx, input.Token, input.CampaignID, items), nil
}

func (s *Server) handleReviewShard(ctx context.Context, _ *sdk.CallToolRequest, input ReviewShardInput) (*sdk.CallToolResult, ops.Result, error) {
	return nil, s.engine.ReviewShard(ctx, input.Token, input.CampaignID, input.ShardID, input.Decision), nil
}

func (s *Server) handleListShards(ctx context.Context, _ *sdk.CallToolRequest, input ListShardsInput) (*sdk.CallToolResult, ops.Result, error) {
	return nil, s.engine.ListShards(ctx, input.Token, input.CampaignID, input.Status), nil
}

func (s *Server) handleRecordWorldState(ctx context.Context, _ *sdk.CallToolRequest, input RecordWorldStateInput) (*sdk.CallToolResult, ops.Result, error) {
	result := s.engine.RecordWorldState(ctx, input.Token, input.CampaignID, input.SessionNumber,
		input.EntityUpdates, input.RelationshipUpdates, input.NewEntities)
	return nil, result, nil
}

func (s *Server) handleGetEntityState(ctx context.Context, _ *sdk.CallToolRequest, input GetEntityStateInput) (*sdk.CallToolResult, ops.Result, error) {
	return nil, s.engine.GetEntityState(ctx, input.Token, input.CampaignID, input.EntityID), nil
}

func (s *Server) handleGetRecap(ctx context.Context, _ *sdk.CallToolRequest, input GetRecapInput) (*sdk.CallToolResult, ops.Result, error) {
	var since time.Time
	if input.Since != "" {
		parsed, err := time.Parse(time.RFC3339, input.Since)
		if err != nil {
			return nil, failResult(lkerrors.NewFieldError("since", "must be an RFC3339 timestamp")), nil
		}
		since = parsed
	}
	return nil, s.engine.GetRecap(ctx, input.Token, input.CampaignID, since), nil
}

func (s *Server) handlePlanSession(ctx context.Context, _ *sdk.CallToolRequest, input PlanSessionInput) (*sdk.CallToolResult, ops.Result, error) {
	req := planner.Request{
		Title:         input.Title,
		SessionType:   input.SessionType,
		DurationHours: input.DurationHours,
		FocusAreas:    input.FocusAreas,
		OneOff:        input.OneOff,
	}
	return nil, s.engine.PlanSession(ctx, input.Token, input.CampaignID, req), nil
}

func (s *Server) handleCreateTasks(ctx context.Context, _ *sdk.CallToolRequest, input CreateTasksInput) (*sdk.CallToolResult, ops.Result, error) {
	return nil, s.engine.CreateTasks(ctx, input.Token, input.CampaignID, input.Titles), nil
}

func (s *Server) handleListTasks(ctx context.Context, _ *sdk.CallToolRequest, input ListTasksInput) (*sdk.CallToolResult, ops.Result, error) {
	return nil, s.engine.ListTasks(ctx, input.Token, input.CampaignID, input.Statuses), nil
}

func (s *Server) handleCompleteTask(ctx context.Context, _ *sdk.CallToolRequest, input CompleteTaskInput) (*sdk.CallToolResult, ops.Result, error) {
	return nil, s.engine.CompleteTask(ctx, input.Token, input.CampaignID, input.TaskID, input.LinkedContentID), nil
}

func (s *Server) handleSearchCampaign(ctx context.Context, _ *sdk.CallToolRequest, input SearchCampaignInput) (*sdk.CallToolResult, ops.Result, error) {
	result := s.engine.SearchCampaign(ctx, input.Token, input.CampaignID, input.Query, input.TopN, input.RecencyWeighted)
	return nil, result, nil
}

func (s *Server) handleRecordSessionDigest(ctx context.Context, _ *sdk.CallToolRequest, input RecordSessionDigestInput) (*sdk.CallToolResult, ops.Result, error) {
	result := s.engine.RecordSessionDigest(ctx, input.Token, input.CampaignID, input.SessionNumber, input.Title, input.Summary)
	return nil, result, nil
}

func failResult(err error) ops.Result {
	return ops.Result{Success: false, Message: err.Error(), ErrorCode: lkerrors.Code(err)}
}
