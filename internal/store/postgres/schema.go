package postgres

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	// All DDL statements run in one call, which PostgreSQL executes inside an
	// implicit transaction. IF NOT EXISTS keeps this idempotent; schema
	// changes beyond additive ones will need a real migration tool.
	ddl := `
CREATE TABLE IF NOT EXISTS campaigns (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    owner       TEXT NOT NULL,
    system      TEXT DEFAULT '',
    description TEXT DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS shards (
    id           TEXT PRIMARY KEY,
    campaign_id  TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
    shard_type   TEXT NOT NULL,
    title        TEXT NOT NULL,
    content      TEXT NOT NULL,
    confidence   DOUBLE PRECISION NOT NULL,
    source_ref   TEXT DEFAULT '',
    status       TEXT NOT NULL DEFAULT 'pending',
    content_hash TEXT NOT NULL,
    entity_ids   TEXT[] DEFAULT '{}',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

ALTER TABLE shards ADD COLUMN IF NOT EXISTS search_vector TSVECTOR;

CREATE TABLE IF NOT EXISTS planning_tasks (
    id                TEXT PRIMARY KEY,
    campaign_id       TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
    title             TEXT NOT NULL,
    status            TEXT NOT NULL DEFAULT 'pending',
    linked_content_id TEXT DEFAULT '',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    completed_at      TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS world_state_entries (
    id                   TEXT PRIMARY KEY,
    campaign_id          TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
    session_number       INTEGER DEFAULT 0,
    entity_updates       JSONB DEFAULT '[]',
    relationship_updates JSONB DEFAULT '[]',
    new_entities         JSONB DEFAULT '[]',
    created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS entities (
    id              TEXT PRIMARY KEY,
    campaign_id     TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
    name            TEXT NOT NULL,
    name_normalized TEXT NOT NULL,
    entity_type     TEXT NOT NULL,
    status          TEXT DEFAULT '',
    description     TEXT DEFAULT '',
    metadata        JSONB DEFAULT '{}',
    is_placeholder  BOOLEAN DEFAULT FALSE,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT uq_entity_name UNIQUE (campaign_id, name_normalized)
);

CREATE TABLE IF NOT EXISTS relationships (
    id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    campaign_id TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
    from_id     TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
    to_id       TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
    rel_type    TEXT NOT NULL DEFAULT 'related_to',
    status      TEXT DEFAULT '',
    description TEXT DEFAULT '',
    CONSTRAINT uq_relationship UNIQUE (campaign_id, from_id, to_id, rel_type)
);

CREATE TABLE IF NOT EXISTS session_digests (
    id             TEXT PRIMARY KEY,
    campaign_id    TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
    session_number INTEGER DEFAULT 0,
    title          TEXT DEFAULT '',
    summary        TEXT NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_campaigns_owner ON campaigns (owner);
CREATE INDEX IF NOT EXISTS idx_shards_search ON shards USING GIN (search_vector);
CREATE INDEX IF NOT EXISTS idx_shards_campaign ON shards (campaign_id, status);
CREATE INDEX IF NOT EXISTS idx_shards_created ON shards (campaign_id, created_at);
CREATE INDEX IF NOT EXISTS idx_tasks_campaign ON planning_tasks (campaign_id, status);
CREATE INDEX IF NOT EXISTS idx_world_state_campaign ON world_state_entries (campaign_id, created_at);
CREATE INDEX IF NOT EXISTS idx_entities_campaign ON entities (campaign_id);
CREATE INDEX IF NOT EXISTS idx_entities_type ON entities (campaign_id, entity_type);
CREATE INDEX IF NOT EXISTS idx_entities_placeholder ON entities (is_placeholder) WHERE is_placeholder = TRUE;
CREATE INDEX IF NOT EXISTS idx_relationships_campaign ON relationships (campaign_id);
CREATE INDEX IF NOT EXISTS idx_relationships_from ON relationships (from_id);
CREATE INDEX IF NOT EXISTS idx_relationships_to ON relationships (to_id);
CREATE INDEX IF NOT EXISTS idx_digests_campaign ON session_digests (campaign_id, session_number);
`
	_, err := c.pool.Exec(ctx, ddl)
	if err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
