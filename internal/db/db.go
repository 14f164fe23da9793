package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB with coinlens-specific helpers.
type DB struct {
	*sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	d := &DB{DB: sqlDB, path: path}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// OpenMemory creates an in-memory SQLite database (useful for testing).
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}

	d := &DB{DB: sqlDB, path: ":memory:"}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// migrate runs all schema migrations.
func (d *DB) migrate() error {
	_, err := d.Exec(schema)
	return err
}

// schema contains the full database schema. New tables are added here.
// Market tables are populated by the upstream ingestion jobs; this service
// only reads them, except query_history which it appends to.
const schema = `
CREATE TABLE IF NOT EXISTS market_snapshots (
    id TEXT PRIMARY KEY,
    symbol TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    price_usd REAL NOT NULL,
    change_24h REAL NOT NULL DEFAULT 0,
    change_7d REAL NOT NULL DEFAULT 0,
    market_cap REAL NOT NULL DEFAULT 0,
    volume_24h REAL NOT NULL DEFAULT 0,
    fetched_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_snapshots_symbol ON market_snapshots(symbol, fetched_at);

CREATE TABLE IF NOT EXISTS fear_greed_history (
    id TEXT PRIMARY KEY,
    value INTEGER NOT NULL,
    label TEXT NOT NULL DEFAULT '',
    recorded_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS whale_transactions (
    id TEXT PRIMARY KEY,
    symbol TEXT NOT NULL,
    amount_usd REAL NOT NULL,
    from_kind TEXT NOT NULL DEFAULT 'unknown',
    to_kind TEXT NOT NULL DEFAULT 'unknown',
    observed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_whales_observed ON whale_transactions(observed_at);

CREATE TABLE IF NOT EXISTS derivatives_cache (
    id TEXT PRIMARY KEY,
    symbol TEXT NOT NULL,
    open_interest_usd REAL NOT NULL DEFAULT 0,
    funding_rate REAL NOT NULL DEFAULT 0,
    long_short_ratio REAL NOT NULL DEFAULT 0,
    liquidations_24h_usd REAL NOT NULL DEFAULT 0,
    fetched_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS macro_indicators (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    value REAL NOT NULL,
    change REAL NOT NULL DEFAULT 0,
    recorded_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS prediction_cache (
    id TEXT PRIMARY KEY,
    symbol TEXT NOT NULL,
    horizon TEXT NOT NULL DEFAULT '24h',
    predicted_price REAL NOT NULL,
    confidence REAL NOT NULL DEFAULT 0,
    generated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS daily_summaries (
    id TEXT PRIMARY KEY,
    day TEXT NOT NULL,
    summary TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS sentiment_signals (
    id TEXT PRIMARY KEY,
    category TEXT NOT NULL,
    score REAL NOT NULL,
    bullish_factors TEXT NOT NULL DEFAULT '[]',
    bearish_factors TEXT NOT NULL DEFAULT '[]',
    generated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS smart_money_signals (
    id TEXT PRIMARY KEY,
    symbol TEXT NOT NULL,
    whale_sentiment TEXT NOT NULL DEFAULT 'neutral',
    net_exchange_flow_usd REAL NOT NULL DEFAULT 0,
    flow_trend TEXT NOT NULL DEFAULT 'flat',
    accumulation_score REAL NOT NULL DEFAULT 0,
    generated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS query_history (
    id TEXT PRIMARY KEY,
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    user_id TEXT NOT NULL DEFAULT '',
    query TEXT NOT NULL,
    query_type TEXT NOT NULL,
    data_used TEXT NOT NULL DEFAULT '[]',
    confidence TEXT NOT NULL,
    user_level TEXT NOT NULL DEFAULT 'intermediate',
    coins TEXT NOT NULL DEFAULT '[]',
    market_session TEXT NOT NULL DEFAULT '',
    latency_ms INTEGER NOT NULL DEFAULT 0,
    fear_greed_value INTEGER
);

CREATE INDEX IF NOT EXISTS idx_history_created ON query_history(created_at);
CREATE INDEX IF NOT EXISTS idx_history_user ON query_history(user_id);
`
