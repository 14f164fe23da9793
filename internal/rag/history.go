package rag

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/coinlens/coinlens/internal/db"
)

// HistoryRecord is one append-only audit entry for an answered query.
type HistoryRecord struct {
	UserID         string
	Query          string
	QueryType      QueryType
	DataUsed       []string
	Confidence     Confidence
	UserLevel      string
	Coins          []string
	MarketSession  string
	LatencyMs      int64
	FearGreedValue *int
}

// HistoryStore appends query-history records to SQLite.
type HistoryStore struct {
	db *db.DB
}

// NewHistoryStore creates a history store.
func NewHistoryStore(database *db.DB) *HistoryStore {
	return &HistoryStore{db: database}
}

// Insert appends one record.
func (s *HistoryStore) Insert(ctx context.Context, rec HistoryRecord) error {
	dataUsed, _ := json.Marshal(rec.DataUsed)
	coins, _ := json.Marshal(rec.Coins)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO query_history (id, created_at, user_id, query, query_type, data_used, confidence, user_level, coins, market_session, latency_ms, fear_greed_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		time.Now().UTC().Format(time.DateTime),
		rec.UserID,
		rec.Query,
		string(rec.QueryType),
		string(dataUsed),
		string(rec.Confidence),
		rec.UserLevel,
		string(coins),
		rec.MarketSession,
		rec.LatencyMs,
		rec.FearGreedValue,
	)
	return err
}

// Count returns the number of stored records. Used by diagnostics and tests.
func (s *HistoryStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM query_history`).Scan(&n)
	return n, err
}
