package sqldriver

import (
	"entgo.io/ent/dialect"
)

// Dialect pairs an ent dialect name with the schema it needs.
type Dialect struct {
	// Name is the ent dialect (dialect.SQLite or dialect.Postgres). The
	// query builder derives quoting, placeholders and upsert syntax from it.
	Name string

	// Schema is run once at startup. Every statement must be idempotent.
	Schema []string
}

// SQLite is the dialect used by the mattn/go-sqlite3 driver.
var SQLite = Dialect{
	Name: dialect.SQLite,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS memories (
			seq             INTEGER PRIMARY KEY AUTOINCREMENT,
			id              TEXT NOT NULL UNIQUE,
			owner_id        TEXT NOT NULL,
			content         TEXT NOT NULL,
			category        TEXT NOT NULL,
			confidence      REAL NOT NULL,
			created_at      DATETIME NOT NULL,
			conversation_id TEXT NOT NULL DEFAULT '',
			tags            TEXT NOT NULL DEFAULT '[]',
			active          BOOLEAN NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_owner_active ON memories (owner_id, active, created_at)`,
		`CREATE TABLE IF NOT EXISTS memory_retirements (
			seq               INTEGER PRIMARY KEY AUTOINCREMENT,
			id                TEXT NOT NULL UNIQUE,
			owner_id          TEXT NOT NULL,
			memory_id         TEXT NOT NULL,
			related_memory_id TEXT NOT NULL DEFAULT '',
			relationship_type TEXT NOT NULL,
			reason            TEXT NOT NULL DEFAULT '',
			created_at        DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_retirements_owner ON memory_retirements (owner_id)`,
	},
}

// Postgres is the dialect used by the pgx stdlib driver.
var Postgres = Dialect{
	Name: dialect.Postgres,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS memories (
			seq             BIGSERIAL PRIMARY KEY,
			id              TEXT NOT NULL UNIQUE,
			owner_id        TEXT NOT NULL,
			content         TEXT NOT NULL,
			category        TEXT NOT NULL,
			confidence      DOUBLE PRECISION NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL,
			conversation_id TEXT NOT NULL DEFAULT '',
			tags            TEXT NOT NULL DEFAULT '[]',
			active          BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_owner_active ON memories (owner_id, active, created_at)`,
		`CREATE TABLE IF NOT EXISTS memory_retirements (
			seq               BIGSERIAL PRIMARY KEY,
			id                TEXT NOT NULL UNIQUE,
			owner_id          TEXT NOT NULL,
			memory_id         TEXT NOT NULL,
			related_memory_id TEXT NOT NULL DEFAULT '',
			relationship_type TEXT NOT NULL,
			reason            TEXT NOT NULL DEFAULT '',
			created_at        TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_retirements_owner ON memory_retirements (owner_id)`,
	},
}
