package market

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/coinlens/coinlens/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database, nil)
}

func TestSnapshotsReturnsLatestPerSymbol(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := store.InsertSnapshot(ctx, Snapshot{Symbol: "BTC", PriceUSD: 40000, MarketCap: 8e11, FetchedAt: old}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.InsertSnapshot(ctx, Snapshot{Symbol: "BTC", PriceUSD: 50000, MarketCap: 1e12}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.InsertSnapshot(ctx, Snapshot{Symbol: "ETH", PriceUSD: 3000, MarketCap: 4e11}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	snaps, err := store.Snapshots(ctx, nil, 10)
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	// Ordered by market cap descending.
	if snaps[0].Symbol != "BTC" || snaps[0].PriceUSD != 50000 {
		t.Errorf("expected latest BTC row first, got %+v", snaps[0])
	}
	if snaps[1].Symbol != "ETH" {
		t.Errorf("expected ETH second, got %+v", snaps[1])
	}
}

func TestSnapshotsFiltersBySymbol(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.InsertSnapshot(ctx, Snapshot{Symbol: "BTC", PriceUSD: 50000, MarketCap: 1e12})
	store.InsertSnapshot(ctx, Snapshot{Symbol: "ETH", PriceUSD: 3000, MarketCap: 4e11})

	snaps, err := store.Snapshots(ctx, []string{"eth"}, 10)
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	if len(snaps) != 1 || snaps[0].Symbol != "ETH" {
		t.Fatalf("expected only ETH, got %+v", snaps)
	}
}

func TestLatestFearGreedEmpty(t *testing.T) {
	store := newTestStore(t)

	fg, err := store.LatestFearGreed(context.Background())
	if err != nil {
		t.Fatalf("LatestFearGreed: %v", err)
	}
	if fg != nil {
		t.Errorf("expected nil on empty table, got %+v", fg)
	}
}

func TestLatestFearGreedReturnsNewest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.InsertFearGreed(ctx, FearGreed{Value: 30, Label: "Fear", RecordedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)})
	store.InsertFearGreed(ctx, FearGreed{Value: 72, Label: "Greed", RecordedAt: time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)})

	fg, err := store.LatestFearGreed(ctx)
	if err != nil {
		t.Fatalf("LatestFearGreed: %v", err)
	}
	if fg == nil || fg.Value != 72 {
		t.Fatalf("expected latest value 72, got %+v", fg)
	}
}

func TestPredictionsLatestPerHorizon(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.InsertPrediction(ctx, Prediction{Symbol: "BTC", Horizon: "24h", PredictedPrice: 51000,
		GeneratedAt: time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)})
	store.InsertPrediction(ctx, Prediction{Symbol: "BTC", Horizon: "24h", PredictedPrice: 52000,
		GeneratedAt: time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)})
	store.InsertPrediction(ctx, Prediction{Symbol: "BTC", Horizon: "7d", PredictedPrice: 55000,
		GeneratedAt: time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)})

	preds, err := store.Predictions(ctx, []string{"BTC"})
	if err != nil {
		t.Fatalf("Predictions: %v", err)
	}
	if len(preds) != 2 {
		t.Fatalf("expected 2 predictions, got %d", len(preds))
	}
	for _, p := range preds {
		if p.Horizon == "24h" && p.PredictedPrice != 52000 {
			t.Errorf("expected latest 24h prediction 52000, got %v", p.PredictedPrice)
		}
	}
}

func TestTopEndpoint(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.InsertSnapshot(ctx, Snapshot{Symbol: "BTC", PriceUSD: 50000, MarketCap: 1e12})

	r := chi.NewRouter()
	RegisterRoutes(r, store)

	req := httptest.NewRequest("GET", "/api/market/top?limit=5", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var snaps []Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snaps); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(snaps) != 1 || snaps[0].Symbol != "BTC" {
		t.Fatalf("unexpected response: %+v", snaps)
	}
}

func TestSymbolEndpointNotFound(t *testing.T) {
	store := newTestStore(t)

	r := chi.NewRouter()
	RegisterRoutes(r, store)

	req := httptest.NewRequest("GET", "/api/market/DOGE", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != 404 {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
