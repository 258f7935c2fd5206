package store

import "database/sql"

// Schema is the complete docpatrol schema. All timestamps are milliseconds
// since epoch; booleans are INTEGER 0/1; scores are REAL in [0,1].
const Schema = `
-- Monitored documentation sources
CREATE TABLE IF NOT EXISTS sources (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    url             TEXT NOT NULL,
    category        TEXT NOT NULL DEFAULT 'general',
    frequency       TEXT NOT NULL DEFAULT 'daily',
    priority        INTEGER NOT NULL DEFAULT 5,
    reliability     REAL NOT NULL DEFAULT 0.5,
    extract_enabled INTEGER NOT NULL DEFAULT 1,
    active          INTEGER NOT NULL DEFAULT 1,
    last_scraped_at INTEGER,
    last_hash       TEXT NOT NULL DEFAULT '',
    last_error      TEXT NOT NULL DEFAULT '',
    fail_count      INTEGER NOT NULL DEFAULT 0,
    created_at      INTEGER NOT NULL,
    updated_at      INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_sources_url_unique ON sources(url);
CREATE INDEX IF NOT EXISTS idx_sources_due ON sources(active, frequency, last_scraped_at);

-- Append-only content snapshots. Rows are never updated except for the
-- one-way processed flip.
CREATE TABLE IF NOT EXISTS updates (
    id                TEXT PRIMARY KEY,
    source_id         TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
    title             TEXT NOT NULL DEFAULT '',
    content           TEXT NOT NULL,
    markdown          TEXT NOT NULL DEFAULT '',
    content_hash      TEXT NOT NULL,
    changed           INTEGER NOT NULL DEFAULT 0,
    fetch_method      TEXT NOT NULL DEFAULT 'http',
    fetch_duration_ms INTEGER NOT NULL DEFAULT 0,
    status_code       INTEGER NOT NULL DEFAULT 0,
    scraped_at        INTEGER NOT NULL,
    processed         INTEGER NOT NULL DEFAULT 0,
    processed_at      INTEGER
);
CREATE INDEX IF NOT EXISTS idx_updates_source ON updates(source_id, scraped_at DESC);
CREATE INDEX IF NOT EXISTS idx_updates_unprocessed ON updates(processed, scraped_at);

-- Durable extraction work queue. One live entry per update; claims use a
-- visibility timeout so crashed workers release entries.
CREATE TABLE IF NOT EXISTS extraction_queue (
    id          TEXT PRIMARY KEY,
    update_id   TEXT NOT NULL REFERENCES updates(id) ON DELETE CASCADE,
    source_id   TEXT NOT NULL,
    priority    INTEGER NOT NULL DEFAULT 5,
    attempts    INTEGER NOT NULL DEFAULT 0,
    visible_at  INTEGER NOT NULL DEFAULT 0,
    created_at  INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_queue_update_unique ON extraction_queue(update_id);
CREATE INDEX IF NOT EXISTS idx_queue_claim ON extraction_queue(visible_at, priority DESC, created_at);

-- Extracted patterns
CREATE TABLE IF NOT EXISTS patterns (
    id           TEXT PRIMARY KEY,
    update_id    TEXT NOT NULL DEFAULT '',
    source_id    TEXT NOT NULL DEFAULT '',
    title        TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    content      TEXT NOT NULL,
    category     TEXT NOT NULL DEFAULT 'other',
    confidence   REAL NOT NULL DEFAULT 0.5,
    relevance    REAL NOT NULL DEFAULT 0.5,
    tags_json    TEXT NOT NULL DEFAULT '[]',
    status       TEXT NOT NULL DEFAULT 'pending',
    extracted_by TEXT NOT NULL DEFAULT 'ai',
    approved_at  INTEGER,
    approved_by  TEXT NOT NULL DEFAULT '',
    usage_count  INTEGER NOT NULL DEFAULT 0,
    last_used_at INTEGER,
    created_at   INTEGER NOT NULL,
    updated_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_patterns_status ON patterns(status, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_patterns_category ON patterns(category);
CREATE INDEX IF NOT EXISTS idx_patterns_source ON patterns(source_id);

-- Append-only review history. Status on patterns is derived from this table.
CREATE TABLE IF NOT EXISTS reviews (
    id          TEXT PRIMARY KEY,
    pattern_id  TEXT NOT NULL REFERENCES patterns(id) ON DELETE CASCADE,
    action      TEXT NOT NULL,
    feedback    TEXT NOT NULL DEFAULT '',
    reviewer_id TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reviews_pattern ON reviews(pattern_id, created_at);

-- Append-only usage events. Counters on patterns are a cache over this table.
CREATE TABLE IF NOT EXISTS usage_events (
    id         TEXT PRIMARY KEY,
    pattern_id TEXT NOT NULL REFERENCES patterns(id) ON DELETE CASCADE,
    user_id    TEXT NOT NULL DEFAULT '',
    action     TEXT NOT NULL,
    context    TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_pattern ON usage_events(pattern_id, created_at DESC);

-- Fetch log (observability): every attempt including failures
CREATE TABLE IF NOT EXISTS fetch_log (
    id            TEXT PRIMARY KEY,
    source_id     TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
    status        TEXT NOT NULL,
    status_code   INTEGER,
    content_hash  TEXT NOT NULL DEFAULT '',
    error_message TEXT NOT NULL DEFAULT '',
    duration_ms   INTEGER NOT NULL DEFAULT 0,
    fetched_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fetch_log_source ON fetch_log(source_id, fetched_at DESC);
`

// ApplySchema creates all tables and indexes on the given database.
// Idempotent (IF NOT EXISTS throughout).
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
