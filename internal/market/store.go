package market

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coinlens/coinlens/internal/db"
)

// Store reads cached market data from SQLite, optionally fronted by a
// read-through cache for the hottest queries. The ingestion jobs that
// populate the tables live outside this service.
type Store struct {
	db    *db.DB
	cache Cache
}

// NewStore creates a market data store. cache may be nil to disable caching.
func NewStore(database *db.DB, cache Cache) *Store {
	if cache == nil {
		cache = noopCache{}
	}
	return &Store{db: database, cache: cache}
}

// Snapshots returns the latest snapshot per coin. When symbols is empty, the
// top coins by market cap are returned instead. Results are capped at limit.
func (s *Store) Snapshots(ctx context.Context, symbols []string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 10
	}

	cacheKey := fmt.Sprintf("snapshots:%s:%d", strings.Join(symbols, ","), limit)
	var cached []Snapshot
	if s.cache.GetJSON(ctx, cacheKey, &cached) {
		return cached, nil
	}

	query := `
		SELECT symbol, name, price_usd, change_24h, change_7d, market_cap, volume_24h, fetched_at
		FROM market_snapshots
		WHERE (symbol, fetched_at) IN (
			SELECT symbol, MAX(fetched_at) FROM market_snapshots GROUP BY symbol
		)`
	var args []interface{}
	if len(symbols) > 0 {
		placeholders := make([]string, len(symbols))
		for i, sym := range symbols {
			placeholders[i] = "?"
			args = append(args, strings.ToUpper(sym))
		}
		query += " AND symbol IN (" + strings.Join(placeholders, ",") + ")"
	}
	query += fmt.Sprintf(" ORDER BY market_cap DESC LIMIT %d", limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Snapshot
	for rows.Next() {
		var snap Snapshot
		var fetchedAt string
		if err := rows.Scan(&snap.Symbol, &snap.Name, &snap.PriceUSD, &snap.Change24h,
			&snap.Change7d, &snap.MarketCap, &snap.Volume24h, &fetchedAt); err != nil {
			return nil, err
		}
		snap.FetchedAt = parseTime(fetchedAt)
		results = append(results, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.cache.SetJSON(ctx, cacheKey, results, 30*time.Second)
	return results, nil
}

// LatestFearGreed returns the most recent fear & greed reading, or nil when
// the table is empty.
func (s *Store) LatestFearGreed(ctx context.Context) (*FearGreed, error) {
	var fg FearGreed
	var recordedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT value, label, recorded_at FROM fear_greed_history
		ORDER BY recorded_at DESC LIMIT 1`).Scan(&fg.Value, &fg.Label, &recordedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	fg.RecordedAt = parseTime(recordedAt)
	return &fg, nil
}

// RecentWhales returns the most recent whale transactions, newest first.
func (s *Store) RecentWhales(ctx context.Context, limit int) ([]WhaleTransaction, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT symbol, amount_usd, from_kind, to_kind, observed_at
		FROM whale_transactions ORDER BY observed_at DESC LIMIT %d`, limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []WhaleTransaction
	for rows.Next() {
		var tx WhaleTransaction
		var observedAt string
		if err := rows.Scan(&tx.Symbol, &tx.AmountUSD, &tx.FromKind, &tx.ToKind, &observedAt); err != nil {
			return nil, err
		}
		tx.ObservedAt = parseTime(observedAt)
		results = append(results, tx)
	}
	return results, rows.Err()
}

// Derivatives returns the latest derivatives metrics for the given symbols,
// or for every cached symbol when symbols is empty.
func (s *Store) Derivatives(ctx context.Context, symbols []string) ([]Derivatives, error) {
	query := `
		SELECT symbol, open_interest_usd, funding_rate, long_short_ratio, liquidations_24h_usd, fetched_at
		FROM derivatives_cache
		WHERE (symbol, fetched_at) IN (
			SELECT symbol, MAX(fetched_at) FROM derivatives_cache GROUP BY symbol
		)`
	var args []interface{}
	if len(symbols) > 0 {
		placeholders := make([]string, len(symbols))
		for i, sym := range symbols {
			placeholders[i] = "?"
			args = append(args, strings.ToUpper(sym))
		}
		query += " AND symbol IN (" + strings.Join(placeholders, ",") + ")"
	}
	query += " ORDER BY open_interest_usd DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Derivatives
	for rows.Next() {
		var d Derivatives
		var fetchedAt string
		if err := rows.Scan(&d.Symbol, &d.OpenInterestUSD, &d.FundingRate,
			&d.LongShortRatio, &d.Liquidations24USD, &fetchedAt); err != nil {
			return nil, err
		}
		d.FetchedAt = parseTime(fetchedAt)
		results = append(results, d)
	}
	return results, rows.Err()
}

// MacroIndicators returns the latest reading per macro indicator.
func (s *Store) MacroIndicators(ctx context.Context, limit int) ([]MacroIndicator, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT name, value, change, recorded_at FROM macro_indicators
		WHERE (name, recorded_at) IN (
			SELECT name, MAX(recorded_at) FROM macro_indicators GROUP BY name
		)
		ORDER BY name LIMIT %d`, limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []MacroIndicator
	for rows.Next() {
		var m MacroIndicator
		var recordedAt string
		if err := rows.Scan(&m.Name, &m.Value, &m.Change, &recordedAt); err != nil {
			return nil, err
		}
		m.RecordedAt = parseTime(recordedAt)
		results = append(results, m)
	}
	return results, rows.Err()
}

// Predictions returns the latest cached prediction per symbol/horizon.
func (s *Store) Predictions(ctx context.Context, symbols []string) ([]Prediction, error) {
	query := `
		SELECT symbol, horizon, predicted_price, confidence, generated_at
		FROM prediction_cache
		WHERE (symbol, horizon, generated_at) IN (
			SELECT symbol, horizon, MAX(generated_at) FROM prediction_cache GROUP BY symbol, horizon
		)`
	var args []interface{}
	if len(symbols) > 0 {
		placeholders := make([]string, len(symbols))
		for i, sym := range symbols {
			placeholders[i] = "?"
			args = append(args, strings.ToUpper(sym))
		}
		query += " AND symbol IN (" + strings.Join(placeholders, ",") + ")"
	}
	query += " ORDER BY symbol, horizon"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Prediction
	for rows.Next() {
		var p Prediction
		var generatedAt string
		if err := rows.Scan(&p.Symbol, &p.Horizon, &p.PredictedPrice, &p.Confidence, &generatedAt); err != nil {
			return nil, err
		}
		p.GeneratedAt = parseTime(generatedAt)
		results = append(results, p)
	}
	return results, rows.Err()
}

// RecentSummaries returns the most recent daily AI summaries, newest first.
func (s *Store) RecentSummaries(ctx context.Context, limit int) ([]DailySummary, error) {
	if limit <= 0 {
		limit = 3
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT day, summary, created_at FROM daily_summaries
		ORDER BY day DESC LIMIT %d`, limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []DailySummary
	for rows.Next() {
		var ds DailySummary
		var createdAt string
		if err := rows.Scan(&ds.Day, &ds.Summary, &createdAt); err != nil {
			return nil, err
		}
		ds.CreatedAt = parseTime(createdAt)
		results = append(results, ds)
	}
	return results, rows.Err()
}

// InsertSnapshot writes one market snapshot row. Used by the ingestion CLI
// and tests.
func (s *Store) InsertSnapshot(ctx context.Context, snap Snapshot) error {
	fetchedAt := snap.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO market_snapshots (id, symbol, name, price_usd, change_24h, change_7d, market_cap, volume_24h, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), strings.ToUpper(snap.Symbol), snap.Name, snap.PriceUSD,
		snap.Change24h, snap.Change7d, snap.MarketCap, snap.Volume24h,
		fetchedAt.Format(time.DateTime))
	return err
}

// InsertFearGreed writes one fear & greed reading.
func (s *Store) InsertFearGreed(ctx context.Context, fg FearGreed) error {
	recordedAt := fg.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fear_greed_history (id, value, label, recorded_at) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), fg.Value, fg.Label, recordedAt.Format(time.DateTime))
	return err
}

// InsertWhale writes one whale transaction row.
func (s *Store) InsertWhale(ctx context.Context, tx WhaleTransaction) error {
	observedAt := tx.ObservedAt
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO whale_transactions (id, symbol, amount_usd, from_kind, to_kind, observed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), strings.ToUpper(tx.Symbol), tx.AmountUSD, tx.FromKind, tx.ToKind,
		observedAt.Format(time.DateTime))
	return err
}

// InsertDerivatives writes one derivatives metrics row.
func (s *Store) InsertDerivatives(ctx context.Context, d Derivatives) error {
	fetchedAt := d.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO derivatives_cache (id, symbol, open_interest_usd, funding_rate, long_short_ratio, liquidations_24h_usd, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), strings.ToUpper(d.Symbol), d.OpenInterestUSD, d.FundingRate,
		d.LongShortRatio, d.Liquidations24USD, fetchedAt.Format(time.DateTime))
	return err
}

// InsertMacro writes one macro indicator reading.
func (s *Store) InsertMacro(ctx context.Context, m MacroIndicator) error {
	recordedAt := m.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO macro_indicators (id, name, value, change, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), m.Name, m.Value, m.Change, recordedAt.Format(time.DateTime))
	return err
}

// InsertPrediction writes one cached prediction row.
func (s *Store) InsertPrediction(ctx context.Context, p Prediction) error {
	generatedAt := p.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now().UTC()
	}
	horizon := p.Horizon
	if horizon == "" {
		horizon = "24h"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prediction_cache (id, symbol, horizon, predicted_price, confidence, generated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), strings.ToUpper(p.Symbol), horizon, p.PredictedPrice, p.Confidence,
		generatedAt.Format(time.DateTime))
	return err
}

// InsertSummary writes one daily summary row.
func (s *Store) InsertSummary(ctx context.Context, ds DailySummary) error {
	createdAt := ds.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_summaries (id, day, summary, created_at) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), ds.Day, ds.Summary, createdAt.Format(time.DateTime))
	return err
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.DateTime, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
