package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    run_id               TEXT PRIMARY KEY,
    created_at           TEXT NOT NULL,
    profile              TEXT NOT NULL,
    inflation            REAL NOT NULL,
    fee                  REAL NOT NULL,
    seed                 INTEGER NOT NULL,
    starting_balance     REAL NOT NULL,
    monthly_contribution REAL NOT NULL,
    contribution_growth  REAL NOT NULL,
    horizon_years        INTEGER NOT NULL,
    annual_mean_return   REAL NOT NULL,
    annual_volatility    REAL NOT NULL,
    trials               INTEGER NOT NULL,
    target_value         REAL NOT NULL,
    p10                  REAL NOT NULL,
    p50                  REAL NOT NULL,
    p90                  REAL NOT NULL,
    hit_rate             INTEGER,
    min_balance          REAL NOT NULL,
    max_balance          REAL NOT NULL,
    mean_balance         REAL NOT NULL,
    duration_ms          INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_bands (
    run_id               TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
    year                 INTEGER NOT NULL,
    p10                  REAL NOT NULL,
    p25                  REAL NOT NULL,
    p50                  REAL NOT NULL,
    p75                  REAL NOT NULL,
    p90                  REAL NOT NULL,
    PRIMARY KEY (run_id, year)
);

CREATE TABLE IF NOT EXISTS assumptions_cache (
    cache_key            TEXT PRIMARY KEY,
    body                 BLOB NOT NULL,
    fetched_at           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`
