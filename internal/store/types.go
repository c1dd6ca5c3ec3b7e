package store

import "time"

const (
	ShardPending  = "pending"
	ShardApproved = "approved"
	ShardRejected = "rejected"
)

const (
	TaskPending    = "pending"
	TaskInProgress = "in_progress"
	TaskCompleted  = "completed"
)

var ContextTypes = []string{
	"plot_decision",
	"npc",
	"location",
	"item",
	"quest",
	"world_event",
	"lore",
	"other",
}

var EntityTypes = []string{
	"npc",
	"location",
	"item",
	"faction",
	"player_character",
	"other",
}

type Campaign struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Owner       string    `json:"owner"`
	System      string    `json:"system,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type ShardInput struct {
	CampaignID string  `json:"campaign_id,omitempty"`
	Type       string  `json:"type"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
	SourceRef  string  `json:"source_ref,omitempty"`
}

type Shard struct {
	ID          string    `json:"id"`
	CampaignID  string    `json:"campaign_id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Confidence  float64   `json:"confidence"`
	SourceRef   string    `json:"source_ref,omitempty"`
	Status      string    `json:"status"`
	ContentHash string    `json:"content_hash"`
	EntityIDs   []string  `json:"entity_ids,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type ShardSearchResult struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	EntityIDs []string  `json:"entity_ids,omitempty"`
	Score     float64   `json:"score"`
	Snippet   string    `json:"snippet,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type PlanningTask struct {
	ID              string     `json:"id"`
	CampaignID      string     `json:"campaign_id"`
	Title           string     `json:"title"`
	Status          string     `json:"status"`
	LinkedContentID string     `json:"linked_content_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

type EntityUpdate struct {
	EntityID    string         `json:"entity_id"`
	Status      string         `json:"status,omitempty"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type RelationshipUpdate struct {
	From        string         `json:"from"`
	To          string         `json:"to"`
	Type        string         `json:"type,omitempty"`
	Status      string         `json:"status,omitempty"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type NewEntity struct {
	EntityID    string         `json:"entity_id"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Status      string         `json:"status,omitempty"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type WorldStateEntry struct {
	ID                  string               `json:"id"`
	CampaignID          string               `json:"campaign_id"`
	SessionNumber       int                  `json:"session_number"`
	EntityUpdates       []EntityUpdate       `json:"entity_updates,omitempty"`
	RelationshipUpdates []RelationshipUpdate `json:"relationship_updates,omitempty"`
	NewEntities         []NewEntity          `json:"new_entities,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
}

type Entity struct {
	ID          string         `json:"id"`
	CampaignID  string         `json:"campaign_id"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Status      string         `json:"status,omitempty"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Placeholder bool           `json:"placeholder,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type Relationship struct {
	CampaignID  string `json:"campaign_id"`
	FromID      string `json:"from_id"`
	ToID        string `json:"to_id"`
	Type        string `json:"type,omitempty"`
	Status      string `json:"status,omitempty"`
	Description string `json:"description,omitempty"`
}

type SessionDigest struct {
	ID            string    `json:"id"`
	CampaignID    string    `json:"campaign_id"`
	SessionNumber int       `json:"session_number"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary"`
	CreatedAt     time.Time `json:"created_at"`
}

func ValidContextType(t string) bool {
	for _, ct := range ContextTypes {
		if ct == t {
			return true
		}
	}
	return false
}

func ValidEntityType(t string) bool {
	for _, et := range EntityTypes {
		if et == t {
			return true
		}
	}
	return false
}

func ValidTaskStatus(s string) bool {
	return s == TaskPending || s == TaskInProgress || s == TaskCompleted
}
