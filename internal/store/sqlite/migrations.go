package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    accounts    INTEGER NOT NULL DEFAULT 0,
    started_at  INTEGER NOT NULL,
    finished_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS account_events (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    account_id  TEXT NOT NULL,
    state       TEXT NOT NULL,
    detail      TEXT,
    created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS worker_results (
    run_id      TEXT NOT NULL,
    account_id  TEXT NOT NULL,
    pid         INTEGER,
    deleted     INTEGER NOT NULL DEFAULT 0,
    created     INTEGER NOT NULL DEFAULT 0,
    failed      INTEGER NOT NULL DEFAULT 0,
    error       TEXT,
    finished_at INTEGER NOT NULL,
    PRIMARY KEY (run_id, account_id)
);

CREATE INDEX IF NOT EXISTS idx_account_events_run ON account_events(run_id);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
`
