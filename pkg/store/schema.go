package store

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the run history tables.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    trigger_name TEXT NOT NULL,
    inputs TEXT NOT NULL,
    fingerprint TEXT NOT NULL,
    outcome TEXT NOT NULL,
    errors INTEGER NOT NULL,
    warnings INTEGER NOT NULL,
    infos INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS violations (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    table_name TEXT NOT NULL,
    cell TEXT NOT NULL,
    level TEXT NOT NULL,
    message TEXT NOT NULL,
    suggestion TEXT,
    rule TEXT,
    rule_id TEXT,
    PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_violations_table ON violations(run_id, table_name);
`

const insertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

const getSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const insertRun = `
INSERT INTO runs (
    id, started_at, duration_ms, trigger_name, inputs, fingerprint,
    outcome, errors, warnings, infos
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const insertViolation = `
INSERT INTO violations (
    run_id, seq, table_name, cell, level, message, suggestion, rule, rule_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectRuns = `
SELECT id, started_at, duration_ms, trigger_name, inputs, fingerprint,
       outcome, errors, warnings, infos
FROM runs
`

const selectViolations = `
SELECT table_name, cell, level, message, suggestion, rule, rule_id
FROM violations
WHERE run_id = ?
ORDER BY seq
`

// pruneRuns keeps the newest ? runs.
const pruneRuns = `
DELETE FROM runs WHERE id NOT IN (
    SELECT id FROM runs ORDER BY started_at DESC LIMIT ?
)
`

// pruneBefore removes runs started before ? (unix nanoseconds).
const pruneBefore = `
DELETE FROM runs WHERE started_at < ?
`

// pruneOrphans removes violations of deleted runs when foreign keys are
// not enforced by the connection.
const pruneOrphans = `
DELETE FROM violations WHERE run_id NOT IN (SELECT id FROM runs)
`
