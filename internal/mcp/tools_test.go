package mcp

import (
	"context"
	"testing"
	"time"

	"lorekeeper/internal/ops"
	"lorekeeper/internal/planner"
	"lorekeeper/internal/store"
)

// opsRecorder captures the arguments each handler forwards to the engine.
type opsRecorder struct {
	result ops.Result

	method     string
	token      string
	campaignID string

	name     string
	system   string
	items    []store.ShardInput
	shardID  string
	decision string
	status   string
	entityID string
	since    time.Time
	planReq  planner.Request
	titles   []string
	statuses []string
	taskID   string
	linkedID string
	query    string
	topN     int
	recency  bool
	session  int
	title    string
	summary  string
}

func (r *opsRecorder) CreateCampaign(_ context.Context, token, name, system, _ string) ops.Result {
	r.method, r.token, r.name, r.system = "CreateCampaign", token, name, system
	return r.result
}

func (r *opsRecorder) ListCampaigns(_ context.Context, token string) ops.Result {
	r.method, r.token = "ListCampaigns", token
	return r.result
}

func (r *opsRecorder) StageContext(_ context.Context, token, campaignID string, items []store.ShardInput) ops.Result {
	r.method, r.token, r.campaignID, r.items = "StageContext", token, campaignID, items
	return r.result
}

func (r *opsRecorder) ReviewShard(_ context.Context, token, campaignID, shardID, decision string) ops.Result {
	r.method, r.token, r.campaignID, r.shardID, r.decision = "ReviewShard", token, campaignID, shardID, decision
	return r.result
}

func (r *opsRecorder) ListShards(_ context.Context, token, campaignID, status string) ops.Result {
	r.method, r.token, r.campaignID, r.status = "ListShards", token, campaignID, status
	return r.result
}

func (r *opsRecorder) RecordWorldState(_ context.Context, token, campaignID string, sessionNumber int, _ []store.EntityUpdate, _ []store.RelationshipUpdate, _ []store.NewEntity) ops.Result {
	r.method, r.token, r.campaignID, r.session = "RecordWorldState", token, campaignID, sessionNumber
	return r.result
}

func (r *opsRecorder) GetEntityState(_ context.Context, token, campaignID, entityID string) ops.Result {
	r.method, r.token, r.campaignID, r.entityID = "GetEntityState", token, campaignID, entityID
	return r.result
}

func (r *opsRecorder) GetRecap(_ context.Context, token, campaignID string, since time.Time) ops.Result {
	r.method, r.token, r.campaignID, r.since = "GetRecap", token, campaignID, since
	return r.result
}

func (r *opsRecorder) PlanSession(_ context.Context, token, campaignID string, req planner.Request) ops.Result {
	r.method, r.token, r.campaignID, r.planReq = "PlanSession", token, campaignID, req
	return r.result
}

func (r *opsRecorder) CreateTasks(_ context.Context, token, campaignID string, titles []string) ops.Result {
	r.method, r.token, r.campaignID, r.titles = "CreateTasks", token, campaignID, titles
	return r.result
}

func (r *opsRecorder) ListTasks(_ context.Context, token, campaignID string, statuses []string) ops.Result {
	r.method, r.token, r.campaignID, r.statuses = "ListTasks", token, campaignID, statuses
	return r.result
}

func (r *opsRecorder) CompleteTask(_ context.Context, token, campaignID, taskID, linkedContentID string) ops.Result {
	r.method, r.token, r.campaignID, r.taskID, r.linkedID = "CompleteTask", token, campaignID, taskID, linkedContentID
	return r.result
}

func (r *opsRecorder) SearchCampaign(_ context.Context, token, campaignID, query string, topN int, recencyWeighted bool) ops.Result {
	r.method, r.token, r.campaignID, r.query, r.topN, r.recency = "SearchCampaign", token, campaignID, query, topN, recencyWeighted
	return r.result
}

func (r *opsRecorder) RecordSessionDigest(_ context.Context, token, campaignID string, sessionNumber int, title, summary string) ops.Result {
	r.method, r.token, r.campaignID, r.session, r.title, r.summary = "RecordSessionDigest", token, campaignID, sessionNumber, title, summary
	return r.result
}

func okResult() ops.Result {
	return ops.Result{Success: true, Message: "ok"}
}

func TestNewServerRegistersTools(t *testing.T) {
	s := NewServer(&opsRecorder{result: okResult()}, "test")
	if s.mcp == nil {
		t.Fatal("expected an initialized MCP server")
	}
}

func TestHandleCreateCampaignForwards(t *testing.T) {
	rec := &opsRecorder{result: okResult()}
	s := &Server{engine: rec}

	_, result, err := s.handleCreateCampaign(context.Background(), nil, CreateCampaignInput{
		Token:  "tok-1",
		Name:   "Shadows of Veldt",
		System: "D&D 5e",
	})
	if err != nil {
		t.Fatalf("handleCreateCampaign: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if rec.method != "CreateCampaign" || rec.token != "tok-1" || rec.name != "Shadows of Veldt" || rec.system != "D&D 5e" {
		t.Fatalf("unexpected forwarding: %+v", rec)
	}
}

func TestHandleStageContextConvertsItems(t *testing.T) {
	rec := &opsRecorder{result: okResult()}
	s := &Server{engine: rec}

	input := StageContextInput{
		Token:      "tok-1",
		CampaignID: "c1",
		Items: []StagedItem{
			{Type: "npc", Title: "The Broker", Content: "Fences stolen relics.", Confidence: 0.9, SourceRef: "session 3"},
			{Type: "location", Title: "Harbor Gate", Content: "Northern entrance.", Confidence: 0.8},
		},
	}
	_, result, err := s.handleStageContext(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("handleStageContext: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if rec.campaignID != "c1" {
		t.Fatalf("campaign id = %q", rec.campaignID)
	}
	if len(rec.items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(rec.items))
	}
	first := rec.items[0]
	if first.Type != "npc" || first.Title != "The Broker" || first.Confidence != 0.9 || first.SourceRef != "session 3" {
		t.Fatalf("unexpected item conversion: %+v", first)
	}
}

func TestHandleGetRecapSinceParsing(t *testing.T) {
	stamp := "2026-03-01T18:00:00Z"
	parsed, _ := time.Parse(time.RFC3339, stamp)

	tests := []struct {
		name       string
		since      string
		wantCalled bool
		wantSince  time.Time
	}{
		{name: "empty defaults to zero time", since: "", wantCalled: true, wantSince: time.Time{}},
		{name: "valid timestamp is forwarded", since: stamp, wantCalled: true, wantSince: parsed},
		{name: "garbage is rejected", since: "yesterdayish", wantCalled: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &opsRecorder{result: okResult()}
			s := &Server{engine: rec}

			_, result, err := s.handleGetRecap(context.Background(), nil, GetRecapInput{
				Token:      "tok-1",
				CampaignID: "c1",
				Since:      tt.since,
			})
			if err != nil {
				t.Fatalf("handleGetRecap: %v", err)
			}
			if !tt.wantCalled {
				if rec.method != "" {
					t.Fatalf("engine called with invalid since: %q", rec.method)
				}
				if result.Success || result.ErrorCode != 400 {
					t.Fatalf("expected validation failure envelope, got %+v", result)
				}
				return
			}
			if rec.method != "GetRecap" {
				t.Fatalf("engine method = %q", rec.method)
			}
			if !rec.since.Equal(tt.wantSince) {
				t.Fatalf("since = %v, want %v", rec.since, tt.wantSince)
			}
		})
	}
}

func TestHandlePlanSessionBuildsRequest(t *testing.T) {
	rec := &opsRecorder{result: okResult()}
	s := &Server{engine: rec}

	_, _, err := s.handlePlanSession(context.Background(), nil, PlanSessionInput{
		Token:         "tok-1",
		CampaignID:    "c1",
		Title:         "The Heist",
		SessionType:   "intrigue",
		DurationHours: 3.5,
		FocusAreas:    []string{"guild politics", "the vault"},
		OneOff:        true,
	})
	if err != nil {
		t.Fatalf("handlePlanSession: %v", err)
	}
	req := rec.planReq
	if req.Title != "The Heist" || req.SessionType != "intrigue" || req.DurationHours != 3.5 || !req.OneOff {
		t.Fatalf("unexpected request: %+v", req)
	}
	if len(req.FocusAreas) != 2 || req.FocusAreas[1] != "the vault" {
		t.Fatalf("focus areas = %v", req.FocusAreas)
	}
}

func TestHandleCompleteTaskForwards(t *testing.T) {
	rec := &opsRecorder{result: okResult()}
	s := &Server{engine: rec}

	_, _, err := s.handleCompleteTask(context.Background(), nil, CompleteTaskInput{
		Token:           "tok-1",
		CampaignID:      "c1",
		TaskID:          "t1",
		LinkedContentID: "s1",
	})
	if err != nil {
		t.Fatalf("handleCompleteTask: %v", err)
	}
	if rec.taskID != "t1" || rec.linkedID != "s1" {
		t.Fatalf("unexpected forwarding: task=%q linked=%q", rec.taskID, rec.linkedID)
	}
}

func TestHandleSearchCampaignForwards(t *testing.T) {
	rec := &opsRecorder{result: okResult()}
	s := &Server{engine: rec}

	_, _, err := s.handleSearchCampaign(context.Background(), nil, SearchCampaignInput{
		Token:           "tok-1",
		CampaignID:      "c1",
		Query:           "harbor smugglers",
		TopN:            5,
		RecencyWeighted: true,
	})
	if err != nil {
		t.Fatalf("handleSearchCampaign: %v", err)
	}
	if rec.query != "harbor smugglers" || rec.topN != 5 || !rec.recency {
		t.Fatalf("unexpected forwarding: query=%q topN=%d recency=%v", rec.query, rec.topN, rec.recency)
	}
}

func TestHandleRecordSessionDigestForwards(t *testing.T) {
	rec := &opsRecorder{result: okResult()}
	s := &Server{engine: rec}

	_, _, err := s.handleRecordSessionDigest(context.Background(), nil, RecordSessionDigestInput{
		Token:         "tok-1",
		CampaignID:    "c1",
		SessionNumber: 4,
		Title:         "The Vault Job",
		Summary:       "The party cracked the vault and woke something below it.",
	})
	if err != nil {
		t.Fatalf("handleRecordSessionDigest: %v", err)
	}
	if rec.session != 4 || rec.title != "The Vault Job" {
		t.Fatalf("unexpected forwarding: session=%d title=%q", rec.session, rec.title)
	}
}

func TestHandlerPassesThroughFailureEnvelope(t *testing.T) {
	rec := &opsRecorder{result: ops.Result{Success: false, Message: "campaign c1: not found", ErrorCode: 404}}
	s := &Server{engine: rec}

	_, result, err := s.handleListShards(context.Background(), nil, ListShardsInput{Token: "tok-1", CampaignID: "c1"})
	if err != nil {
		t.Fatalf("handleListShards: %v", err)
	}
	if result.Success || result.ErrorCode != 404 {
		t.Fatalf("expected failure envelope to pass through, got %+v", result)
	}
}
