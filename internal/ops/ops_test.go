package ops

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"lorekeeper/internal/auth"
	lkerrors "lorekeeper/internal/errors"
	"lorekeeper/internal/planner"
	"lorekeeper/internal/recap"
	"lorekeeper/internal/similarity"
	"lorekeeper/internal/staging"
	"lorekeeper/internal/store"
	"lorekeeper/internal/worldstate"
)

type fakeDB struct {
	campaigns map[string]store.Campaign
	created   []store.Campaign
	digests   []store.SessionDigest
}

func (f *fakeDB) CreateCampaign(_ context.Context, c store.Campaign) error {
	f.created = append(f.created, c)
	return nil
}

func (f *fakeDB) GetCampaignForOwner(_ context.Context, id, owner string) (*store.Campaign, error) {
	c, ok := f.campaigns[id]
	if !ok || c.Owner != owner {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeDB) ListCampaigns(_ context.Context, owner string) ([]store.Campaign, error) {
	var out []store.Campaign
	for _, c := range f.campaigns {
		if c.Owner == owner {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeDB) InsertSessionDigest(_ context.Context, d store.SessionDigest) error {
	f.digests = append(f.digests, d)
	return nil
}

type fakeStaging struct {
	report  *staging.Report
	err     error
	batches int
}

func (f *fakeStaging) StageBatch(_ context.Context, _ *store.Campaign, _ []store.ShardInput) (*staging.Report, error) {
	f.batches++
	return f.report, f.err
}

func (f *fakeStaging) Review(_ context.Context, _, shardID, _ string) (*store.Shard, error) {
	return &store.Shard{ID: shardID, Status: store.ShardApproved}, nil
}

func (f *fakeStaging) ListShards(_ context.Context, _, _ string) ([]store.Shard, error) {
	return []store.Shard{{ID: "s1"}}, nil
}

type fakeWorld struct {
	state *worldstate.State
}

func (f *fakeWorld) Record(_ context.Context, input worldstate.RecordInput) (*store.WorldStateEntry, error) {
	return &store.WorldStateEntry{ID: "w1", CampaignID: input.CampaignID, SessionNumber: input.SessionNumber}, nil
}

func (f *fakeWorld) EntityState(_ context.Context, _, _ string) (*worldstate.State, error) {
	return f.state, nil
}

type fakeTasks struct {
	changed bool
	calls   int
}

func (f *fakeTasks) CreateTasks(_ context.Context, campaignID string, titles []string) ([]store.PlanningTask, error) {
	f.calls++
	out := make([]store.PlanningTask, len(titles))
	for i, title := range titles {
		out[i] = store.PlanningTask{ID: "t1", CampaignID: campaignID, Title: title, Status: store.TaskPending}
	}
	return out, nil
}

func (f *fakeTasks) List(_ context.Context, _ string, _ ...string) ([]store.PlanningTask, error) {
	f.calls++
	return []store.PlanningTask{{ID: "t1"}}, nil
}

func (f *fakeTasks) Complete(_ context.Context, _, taskID, _ string) (*store.PlanningTask, bool, error) {
	f.calls++
	return &store.PlanningTask{ID: taskID, Status: store.TaskCompleted}, f.changed, nil
}

type fakeRecap struct{}

func (fakeRecap) Build(_ context.Context, _ string, _ time.Time) (*recap.Recap, error) {
	return &recap.Recap{Narrative: "all quiet", Directive: "x", OpenCount: 1, CompletedCount: 2}, nil
}

type fakePlanner struct {
	err error
}

func (f *fakePlanner) Plan(_ context.Context, _ *store.Campaign, req planner.Request) (*planner.Plan, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &planner.Plan{Script: "scene one", Gaps: []planner.Gap{{Name: "Vex"}}}, nil
}

type fakeSearch struct {
	topN int
}

func (f *fakeSearch) Search(_ context.Context, _, _ string, topN int, _ bool) ([]similarity.Match, error) {
	f.topN = topN
	return []similarity.Match{{DocID: "s1", Score: 0.8}}, nil
}

type fixture struct {
	engine  *Engine
	db      *fakeDB
	staging *fakeStaging
	world   *fakeWorld
	tasks   *fakeTasks
	planner *fakePlanner
	search  *fakeSearch
}

func newFixture() *fixture {
	f := &fixture{
		db: &fakeDB{campaigns: map[string]store.Campaign{
			"c1": {ID: "c1", Name: "Shadows of Veldt", Owner: "alice"},
			"c2": {ID: "c2", Name: "Someone Else's Game", Owner: "bob"},
		}},
		staging: &fakeStaging{report: &staging.Report{
			Outcomes: []staging.Outcome{
				{Index: 0, ShardID: "s1", LinkedTaskID: "t1"},
				{Index: 1, Deduplicated: true, DuplicateOf: "s0"},
			},
			Staged:     1,
			Duplicates: 1,
		}},
		world:   &fakeWorld{},
		tasks:   &fakeTasks{changed: true},
		planner: &fakePlanner{},
		search:  &fakeSearch{},
	}
	f.engine = NewEngine(Deps{
		Store:   f.db,
		Auth:    auth.Static{"tok-alice": "alice", "tok-bob": "bob"},
		Staging: f.staging,
		World:   f.world,
		Tasks:   f.tasks,
		Recap:   fakeRecap{},
		Planner: f.planner,
		Search:  f.search,
	})
	return f
}

func items() []store.ShardInput {
	return []store.ShardInput{{Type: "npc", Title: "Vex", Content: "Captain Vex runs the docks.", Confidence: 0.9}}
}

func TestAuthenticationFailure(t *testing.T) {
	f := newFixture()
	res := f.engine.StageContext(context.Background(), "bogus", "c1", items())
	if res.Success {
		t.Fatal("operation succeeded with a bad token")
	}
	if res.ErrorCode != lkerrors.CodeAuth {
		t.Errorf("error code = %d, want %d", res.ErrorCode, lkerrors.CodeAuth)
	}
	if f.staging.batches != 0 {
		t.Error("staging ran despite failed authentication")
	}
}

func TestUnownedCampaignReadsAsNotFound(t *testing.T) {
	f := newFixture()
	for _, campaignID := range []string{"c2", "missing"} {
		res := f.engine.StageContext(context.Background(), "tok-alice", campaignID, items())
		if res.Success {
			t.Fatalf("staging against %q succeeded", campaignID)
		}
		if res.ErrorCode != lkerrors.CodeNotFound {
			t.Errorf("campaign %q: error code = %d, want %d", campaignID, res.ErrorCode, lkerrors.CodeNotFound)
		}
	}
	if f.staging.batches != 0 {
		t.Error("staging ran against an unowned campaign")
	}
}

func TestEmptyCampaignIDIsValidation(t *testing.T) {
	f := newFixture()
	res := f.engine.ListTasks(context.Background(), "tok-alice", "", nil)
	if res.Success || res.ErrorCode != lkerrors.CodeValidation {
		t.Fatalf("result = %+v, want validation failure", res)
	}
}

func TestStageContextReportsCounts(t *testing.T) {
	f := newFixture()
	res := f.engine.StageContext(context.Background(), "tok-alice", "c1", items())
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if !strings.Contains(res.Message, "staged 1") || !strings.Contains(res.Message, "1 duplicate") {
		t.Errorf("message = %q", res.Message)
	}
	report, ok := res.Data.(*staging.Report)
	if !ok {
		t.Fatalf("data is %T, want *staging.Report", res.Data)
	}
	if report.Staged != 1 {
		t.Errorf("report staged = %d, want 1", report.Staged)
	}
}

func TestStageContextValidationCode(t *testing.T) {
	f := newFixture()
	f.staging.err = lkerrors.NewFieldError("items[0].confidence", "must be between 0 and 1")
	res := f.engine.StageContext(context.Background(), "tok-alice", "c1", items())
	if res.Success || res.ErrorCode != lkerrors.CodeValidation {
		t.Fatalf("result = %+v, want validation failure", res)
	}
	if !strings.Contains(res.Message, "items[0].confidence") {
		t.Errorf("message %q does not name the field", res.Message)
	}
}

func TestCreateCampaignSetsOwnerFromToken(t *testing.T) {
	f := newFixture()
	res := f.engine.CreateCampaign(context.Background(), "tok-bob", "  New Game  ", "PF2e", "")
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if len(f.db.created) != 1 {
		t.Fatalf("created %d campaigns, want 1", len(f.db.created))
	}
	c := f.db.created[0]
	if c.Owner != "bob" {
		t.Errorf("owner = %q, want bob", c.Owner)
	}
	if c.Name != "New Game" {
		t.Errorf("name = %q, want trimmed", c.Name)
	}
	if c.ID == "" {
		t.Error("campaign id is empty")
	}
}

func TestCreateCampaignEmptyName(t *testing.T) {
	f := newFixture()
	res := f.engine.CreateCampaign(context.Background(), "tok-alice", "   ", "", "")
	if res.Success || res.ErrorCode != lkerrors.CodeValidation {
		t.Fatalf("result = %+v, want validation failure", res)
	}
	if len(f.db.created) != 0 {
		t.Error("campaign was persisted despite invalid name")
	}
}

func TestCompleteTaskMessages(t *testing.T) {
	f := newFixture()
	res := f.engine.CompleteTask(context.Background(), "tok-alice", "c1", "t1", "")
	if !res.Success || res.Message != "task completed" {
		t.Fatalf("result = %+v", res)
	}

	f.tasks.changed = false
	res = f.engine.CompleteTask(context.Background(), "tok-alice", "c1", "t1", "")
	if !res.Success || res.Message != "task was already completed" {
		t.Fatalf("result = %+v", res)
	}
}

func TestSearchCampaignDefaultsTopN(t *testing.T) {
	f := newFixture()
	res := f.engine.SearchCampaign(context.Background(), "tok-alice", "c1", "the docks", 0, true)
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if f.search.topN != similarity.DefaultTopN {
		t.Errorf("topN = %d, want %d", f.search.topN, similarity.DefaultTopN)
	}
}

func TestSearchCampaignEmptyQuery(t *testing.T) {
	f := newFixture()
	res := f.engine.SearchCampaign(context.Background(), "tok-alice", "c1", "  ", 5, false)
	if res.Success || res.ErrorCode != lkerrors.CodeValidation {
		t.Fatalf("result = %+v, want validation failure", res)
	}
}

func TestGetEntityStateNotFound(t *testing.T) {
	f := newFixture()
	res := f.engine.GetEntityState(context.Background(), "tok-alice", "c1", "ghost")
	if res.Success || res.ErrorCode != lkerrors.CodeNotFound {
		t.Fatalf("result = %+v, want not found", res)
	}

	f.world.state = &worldstate.State{EntityID: "e1", Status: "alive"}
	res = f.engine.GetEntityState(context.Background(), "tok-alice", "c1", "e1")
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
}

func TestPlanSessionUnavailableCode(t *testing.T) {
	f := newFixture()
	f.planner.err = lkerrors.ErrUnavailable
	res := f.engine.PlanSession(context.Background(), "tok-alice", "c1", planner.Request{Title: "The heist"})
	if res.Success || res.ErrorCode != lkerrors.CodeUnavailable {
		t.Fatalf("result = %+v, want unavailable", res)
	}
}

func TestRecordSessionDigestValidation(t *testing.T) {
	f := newFixture()
	tests := []struct {
		name    string
		session int
		title   string
		summary string
	}{
		{"empty title", 1, " ", "summary"},
		{"empty summary", 1, "title", " "},
		{"zero session", 0, "title", "summary"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.engine.RecordSessionDigest(context.Background(), "tok-alice", "c1", tt.session, tt.title, tt.summary)
			if res.Success || res.ErrorCode != lkerrors.CodeValidation {
				t.Fatalf("result = %+v, want validation failure", res)
			}
		})
	}
	if len(f.db.digests) != 0 {
		t.Error("digest was persisted despite invalid input")
	}
}

func TestRecordSessionDigestSuccess(t *testing.T) {
	f := newFixture()
	res := f.engine.RecordSessionDigest(context.Background(), "tok-alice", "c1", 3, "The Heist", "They stole the ledger.")
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if len(f.db.digests) != 1 {
		t.Fatalf("persisted %d digests, want 1", len(f.db.digests))
	}
	if f.db.digests[0].CampaignID != "c1" || f.db.digests[0].SessionNumber != 3 {
		t.Errorf("digest = %+v", f.db.digests[0])
	}
}

func TestResultEnvelopeShape(t *testing.T) {
	f := newFixture()
	res := f.engine.ListTasks(context.Background(), "bogus", "c1", nil)
	raw, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["success"] != false {
		t.Errorf("success = %v", decoded["success"])
	}
	if _, ok := decoded["message"].(string); !ok {
		t.Error("message missing")
	}
	if _, ok := decoded["error_code"]; !ok {
		t.Error("error_code missing on failure")
	}
	if _, ok := decoded["data"]; ok {
		t.Error("data present on failure")
	}
}
