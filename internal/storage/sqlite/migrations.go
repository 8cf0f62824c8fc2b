package sqlite

// schema contains the database schema DDL.
const schema = `
-- Datasets, stored as their ingestion payload
CREATE TABLE IF NOT EXISTS datasets (
    id TEXT PRIMARY KEY,
    payload TEXT NOT NULL,
    row_count INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Configuration
CREATE TABLE IF NOT EXISTS config (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`
