package sqlite

import (
	"context"
	"fmt"
	"strings"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS campaigns (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		owner       TEXT NOT NULL,
		system      TEXT DEFAULT '',
		description TEXT DEFAULT '',
		created_at  TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS shards (
		seq          INTEGER PRIMARY KEY AUTOINCREMENT,
		id           TEXT NOT NULL UNIQUE,
		campaign_id  TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
		shard_type   TEXT NOT NULL,
		title        TEXT NOT NULL,
		content      TEXT NOT NULL,
		confidence   REAL NOT NULL,
		source_ref   TEXT DEFAULT '',
		status       TEXT NOT NULL DEFAULT 'pending',
		content_hash TEXT NOT NULL,
		entity_ids   TEXT DEFAULT '[]',
		created_at   TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS planning_tasks (
		id                TEXT PRIMARY KEY,
		campaign_id       TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
		title             TEXT NOT NULL,
		status            TEXT NOT NULL DEFAULT 'pending',
		linked_content_id TEXT DEFAULT '',
		created_at        TEXT NOT NULL DEFAULT (datetime('now')),
		completed_at      TEXT
	);

	CREATE TABLE IF NOT EXISTS world_state_entries (
		id                   TEXT PRIMARY KEY,
		campaign_id          TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
		session_number       INTEGER DEFAULT 0,
		entity_updates       TEXT DEFAULT '[]',
		relationship_updates TEXT DEFAULT '[]',
		new_entities         TEXT DEFAULT '[]',
		created_at           TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS entities (
		id              TEXT PRIMARY KEY,
		campaign_id     TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
		name            TEXT NOT NULL,
		name_normalized TEXT NOT NULL,
		entity_type     TEXT NOT NULL,
		status          TEXT DEFAULT '',
		description     TEXT DEFAULT '',
		metadata        TEXT DEFAULT '{}',
		is_placeholder  INTEGER DEFAULT 0,
		created_at      TEXT NOT NULL DEFAULT (datetime('now')),
		updated_at      TEXT NOT NULL DEFAULT (datetime('now')),
		CONSTRAINT uq_entity_name UNIQUE (campaign_id, name_normalized)
	);

	CREATE TABLE IF NOT EXISTS relationships (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
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
		created_at     TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE INDEX IF NOT EXISTS idx_campaigns_owner ON campaigns (owner);
	CREATE INDEX IF NOT EXISTS idx_shards_campaign ON shards (campaign_id, status);
	CREATE INDEX IF NOT EXISTS idx_shards_created ON shards (campaign_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_tasks_campaign ON planning_tasks (campaign_id, status);
	CREATE INDEX IF NOT EXISTS idx_world_state_campaign ON world_state_entries (campaign_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_entities_campaign ON entities (campaign_id);
	CREATE INDEX IF NOT EXISTS idx_entities_type ON entities (campaign_id, entity_type);
	CREATE INDEX IF NOT EXISTS idx_relationships_campaign ON relationships (campaign_id);
	CREATE INDEX IF NOT EXISTS idx_relationships_from ON relationships (from_id);
	CREATE INDEX IF NOT EXISTS idx_relationships_to ON relationships (to_id);
	CREATE INDEX IF NOT EXISTS idx_digests_campaign ON session_digests (campaign_id, session_number);

	CREATE VIRTUAL TABLE IF NOT EXISTS shards_fts USING fts5(
		title,
		content,
		content=shards,
		content_rowid=seq
	);

	CREATE TRIGGER IF NOT EXISTS shards_ai AFTER INSERT ON shards BEGIN
		INSERT INTO shards_fts(rowid, title, content)
		VALUES (new.seq, new.title, new.content);
	END;

	CREATE TRIGGER IF NOT EXISTS shards_ad AFTER DELETE ON shards BEGIN
		INSERT INTO shards_fts(shards_fts, rowid, title, content)
		VALUES ('delete', old.seq, old.title, old.content);
	END;

	CREATE TRIGGER IF NOT EXISTS shards_au AFTER UPDATE ON shards BEGIN
		INSERT INTO shards_fts(shards_fts, rowid, title, content)
		VALUES ('delete', old.seq, old.title, old.content);
		INSERT INTO shards_fts(rowid, title, content)
		VALUES (new.seq, new.title, new.content);
	END;
	`

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	statements := splitStatements(ddl)
	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}

	return nil
}

// splitStatements breaks the DDL blob into single statements. Trigger bodies
// contain semicolons of their own, so a trigger only ends at its END.
func splitStatements(ddl string) []string {
	var statements []string
	var current strings.Builder
	var inTrigger bool

	for _, line := range strings.Split(ddl, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		upper := strings.ToUpper(stripped)
		if strings.Contains(upper, "CREATE TRIGGER") {
			inTrigger = true
		}

		if !strings.HasSuffix(stripped, ";") {
			continue
		}
		if inTrigger && !strings.HasSuffix(upper, "END;") {
			continue
		}

		statements = append(statements, current.String())
		current.Reset()
		inTrigger = false
	}

	if strings.TrimSpace(current.String()) != "" {
		statements = append(statements, current.String())
	}

	return statements
}
