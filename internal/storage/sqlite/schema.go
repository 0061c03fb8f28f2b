package sqlite

// SchemaVersion is bumped on any incompatible schema change. The doctor
// command compares it against the version recorded in the database.
const SchemaVersion = "v1.1.0"

const schema = `
-- Extracted release records
CREATE TABLE IF NOT EXISTS releases (
    id TEXT PRIMARY KEY,
    source_message_id TEXT NOT NULL,
    source_channel_id TEXT NOT NULL,
    source_thread_id TEXT NOT NULL DEFAULT '',
    source_edited_version TEXT NOT NULL DEFAULT '',
    prompt_version TEXT NOT NULL DEFAULT '',
    date DATETIME NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    type TEXT NOT NULL DEFAULT 'Update',
    why_this_matters TEXT NOT NULL DEFAULT '',
    impact TEXT NOT NULL DEFAULT '',
    media TEXT NOT NULL DEFAULT '[]',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_releases_message ON releases(source_message_id);
CREATE INDEX IF NOT EXISTS idx_releases_channel ON releases(source_channel_id);
CREATE INDEX IF NOT EXISTS idx_releases_date ON releases(date);

-- Named LLM prompts with monotonically increasing versions
CREATE TABLE IF NOT EXISTS prompts (
    name TEXT PRIMARY KEY,
    text TEXT NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- One row per pipeline run
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    fetched INTEGER NOT NULL DEFAULT 0,
    already_processed INTEGER NOT NULL DEFAULT 0,
    processed INTEGER NOT NULL DEFAULT 0,
    extracted INTEGER NOT NULL DEFAULT 0,
    skipped INTEGER NOT NULL DEFAULT 0,
    edited INTEGER NOT NULL DEFAULT 0,
    prompt_version TEXT NOT NULL DEFAULT '',
    errors TEXT NOT NULL DEFAULT '[]',
    started_at DATETIME NOT NULL,
    finished_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
