package signals

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coinlens/coinlens/internal/db"
)

// Store reads profiler output from SQLite.
type Store struct {
	db *db.DB
}

// NewStore creates a signals store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// SentimentSummary returns the latest sentiment reading per category,
// merged into one summary. Returns nil when no signals exist.
func (s *Store) SentimentSummary(ctx context.Context) (*SentimentSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, score, bullish_factors, bearish_factors, generated_at
		FROM sentiment_signals
		WHERE (category, generated_at) IN (
			SELECT category, MAX(generated_at) FROM sentiment_signals GROUP BY category
		)
		ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := &SentimentSummary{}
	for rows.Next() {
		var cs CategoryScore
		var bullish, bearish, generatedAt string
		if err := rows.Scan(&cs.Category, &cs.Score, &bullish, &bearish, &generatedAt); err != nil {
			return nil, err
		}
		summary.Categories = append(summary.Categories, cs)

		var factors []string
		if json.Unmarshal([]byte(bullish), &factors) == nil {
			summary.BullishFactors = append(summary.BullishFactors, factors...)
		}
		factors = nil
		if json.Unmarshal([]byte(bearish), &factors) == nil {
			summary.BearishFactors = append(summary.BearishFactors, factors...)
		}
		if t, err := time.Parse(time.DateTime, generatedAt); err == nil && t.After(summary.GeneratedAt) {
			summary.GeneratedAt = t
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(summary.Categories) == 0 {
		return nil, nil
	}
	return summary, nil
}

// SmartMoney returns the latest smart-money signal for the given coin, or
// nil when none exists.
func (s *Store) SmartMoney(ctx context.Context, symbol string) (*SmartMoney, error) {
	var sm SmartMoney
	var generatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT symbol, whale_sentiment, net_exchange_flow_usd, flow_trend, accumulation_score, generated_at
		FROM smart_money_signals WHERE symbol = ?
		ORDER BY generated_at DESC LIMIT 1`,
		strings.ToUpper(symbol),
	).Scan(&sm.Symbol, &sm.WhaleSentiment, &sm.NetExchangeFlowUSD, &sm.FlowTrend,
		&sm.AccumulationScore, &generatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if t, perr := time.Parse(time.DateTime, generatedAt); perr == nil {
		sm.GeneratedAt = t
	}
	return &sm, nil
}

// InsertSentiment writes one sentiment signal row. Used by the profiler
// import job and tests.
func (s *Store) InsertSentiment(ctx context.Context, category string, score float64, bullish, bearish []string) error {
	bullishJSON, _ := json.Marshal(bullish)
	bearishJSON, _ := json.Marshal(bearish)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sentiment_signals (id, category, score, bullish_factors, bearish_factors, generated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), category, score, string(bullishJSON), string(bearishJSON),
		time.Now().UTC().Format(time.DateTime))
	return err
}

// InsertSmartMoney writes one smart-money signal row.
func (s *Store) InsertSmartMoney(ctx context.Context, sm SmartMoney) error {
	generatedAt := sm.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO smart_money_signals (id, symbol, whale_sentiment, net_exchange_flow_usd, flow_trend, accumulation_score, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), strings.ToUpper(sm.Symbol), sm.WhaleSentiment, sm.NetExchangeFlowUSD,
		sm.FlowTrend, sm.AccumulationScore, generatedAt.Format(time.DateTime))
	return err
}
