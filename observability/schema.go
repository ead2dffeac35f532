package observability

// Schema holds the DDL for the metrics store. Timestamps are Unix milliseconds
// and labels a JSON object.
const Schema = `
CREATE TABLE IF NOT EXISTS metrics (
    id     INTEGER PRIMARY KEY AUTOINCREMENT,
    name   TEXT NOT NULL,
    ts     INTEGER NOT NULL,
    value  REAL NOT NULL,
    labels TEXT,
    unit   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_metrics_name_ts ON metrics(name, ts DESC);
`
