package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/coinlens/coinlens/internal/config"
	"github.com/coinlens/coinlens/internal/market"
	"github.com/coinlens/coinlens/internal/signals"
)

// fakeMarket serves canned rows and optionally fails every call.
type fakeMarket struct {
	snapshots []market.Snapshot
	fearGreed *market.FearGreed
	whales    []market.WhaleTransaction
	derivs    []market.Derivatives
	macro     []market.MacroIndicator
	preds     []market.Prediction
	summaries []market.DailySummary
	failAll   bool
}

var errFake = errors.New("source unavailable")

func (f *fakeMarket) Snapshots(_ context.Context, symbols []string, limit int) ([]market.Snapshot, error) {
	if f.failAll {
		return nil, errFake
	}
	if len(symbols) == 0 {
		return f.snapshots, nil
	}
	var out []market.Snapshot
	for _, s := range f.snapshots {
		for _, sym := range symbols {
			if strings.EqualFold(s.Symbol, sym) {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (f *fakeMarket) LatestFearGreed(context.Context) (*market.FearGreed, error) {
	if f.failAll {
		return nil, errFake
	}
	return f.fearGreed, nil
}

func (f *fakeMarket) RecentWhales(context.Context, int) ([]market.WhaleTransaction, error) {
	if f.failAll {
		return nil, errFake
	}
	return f.whales, nil
}

func (f *fakeMarket) Derivatives(context.Context, []string) ([]market.Derivatives, error) {
	if f.failAll {
		return nil, errFake
	}
	return f.derivs, nil
}

func (f *fakeMarket) MacroIndicators(context.Context, int) ([]market.MacroIndicator, error) {
	if f.failAll {
		return nil, errFake
	}
	return f.macro, nil
}

func (f *fakeMarket) Predictions(context.Context, []string) ([]market.Prediction, error) {
	if f.failAll {
		return nil, errFake
	}
	return f.preds, nil
}

func (f *fakeMarket) RecentSummaries(context.Context, int) ([]market.DailySummary, error) {
	if f.failAll {
		return nil, errFake
	}
	return f.summaries, nil
}

type fakeSignals struct {
	sentiment  *signals.SentimentSummary
	smartMoney *signals.SmartMoney
	failAll    bool
}

func (f *fakeSignals) SentimentSummary(context.Context) (*signals.SentimentSummary, error) {
	if f.failAll {
		return nil, errFake
	}
	return f.sentiment, nil
}

func (f *fakeSignals) SmartMoney(context.Context, string) (*signals.SmartMoney, error) {
	if f.failAll {
		return nil, errFake
	}
	return f.smartMoney, nil
}

func testSnapshots() []market.Snapshot {
	return []market.Snapshot{
		{Symbol: "BTC", PriceUSD: 50000, Change24h: 2.5, Change7d: -1.2, MarketCap: 1e12, Volume24h: 3e10},
		{Symbol: "ETH", PriceUSD: 3000, Change24h: 3.1, Change7d: 0.8, MarketCap: 4e11, Volume24h: 1.5e10},
	}
}

func testEngine(m MarketData, s SignalSource, flags config.Features) *Engine {
	e := NewEngine(m, s, flags, time.Second)
	e.now = func() time.Time { return time.Date(2025, 3, 5, 15, 0, 0, 0, time.UTC) } // Wednesday, us_hours
	return e
}

func TestBuildContextGeneral(t *testing.T) {
	m := &fakeMarket{snapshots: testSnapshots()}
	e := testEngine(m, &fakeSignals{}, config.Features{})

	fused := e.BuildContext(context.Background(), "how is bitcoin doing", Options{})

	if fused.Session != SessionUS {
		t.Errorf("session = %s, want %s", fused.Session, SessionUS)
	}
	if !strings.Contains(fused.Text, "BTC: $50000.00") {
		t.Errorf("context missing BTC price:\n%s", fused.Text)
	}
	wantUsed := []string{"market_session", "market_data"}
	if len(fused.DataUsed) != len(wantUsed) {
		t.Fatalf("dataUsed = %v, want %v", fused.DataUsed, wantUsed)
	}
	for i, src := range wantUsed {
		if fused.DataUsed[i] != src {
			t.Errorf("dataUsed[%d] = %s, want %s", i, fused.DataUsed[i], src)
		}
	}
	if len(fused.Coins) != 1 || fused.Coins[0] != "BTC" {
		t.Errorf("coins = %v, want [BTC]", fused.Coins)
	}
}

func TestBuildContextAllSourcesFail(t *testing.T) {
	m := &fakeMarket{failAll: true}
	s := &fakeSignals{failAll: true}
	e := testEngine(m, s, config.Features{DailySummaries: true, SentimentSignals: true, SmartMoney: true})

	fused := e.BuildContext(context.Background(), "whale sentiment funding macro forecast for BTC", Options{})

	// Only the locally computed session fragment survives.
	if len(fused.DataUsed) != 1 || fused.DataUsed[0] != "market_session" {
		t.Fatalf("dataUsed = %v, want [market_session]", fused.DataUsed)
	}
	if !strings.Contains(fused.Text, "Market session:") {
		t.Errorf("context missing session fragment:\n%s", fused.Text)
	}
}

func TestBuildContextComparison(t *testing.T) {
	m := &fakeMarket{snapshots: testSnapshots()}
	e := testEngine(m, &fakeSignals{}, config.Features{})

	fused := e.BuildContext(context.Background(), "compare BTC and ETH", Options{})

	if fused.Comparison == nil {
		t.Fatal("comparison is nil")
	}
	if fused.Comparison.Coins != [2]string{"BTC", "ETH"} {
		t.Fatalf("comparison coins = %v", fused.Comparison.Coins)
	}

	var mcap *ComparisonMetric
	for i := range fused.Comparison.Metrics {
		if fused.Comparison.Metrics[i].Name == "Market Cap" {
			mcap = &fused.Comparison.Metrics[i]
		}
	}
	if mcap == nil {
		t.Fatal("no Market Cap metric")
	}
	if mcap.Winner != "BTC" {
		t.Errorf("market cap winner = %s, want BTC", mcap.Winner)
	}
	if mcap.Values["BTC"] != 1e12 || mcap.Values["ETH"] != 4e11 {
		t.Errorf("market cap values = %v", mcap.Values)
	}

	// Price carries no winner.
	for _, metric := range fused.Comparison.Metrics {
		if metric.Name == "Current Price" && metric.Winner != "" {
			t.Errorf("price winner = %s, want none", metric.Winner)
		}
	}

	if !containsString(fused.DataUsed, "comparison") {
		t.Errorf("dataUsed = %v, missing comparison", fused.DataUsed)
	}
}

func TestBuildContextScenario(t *testing.T) {
	m := &fakeMarket{snapshots: testSnapshots()}
	e := testEngine(m, &fakeSignals{}, config.Features{})

	fused := e.BuildContext(context.Background(), "what if BTC drops 20%", Options{})

	if fused.Intent.Type != QueryScenario {
		t.Fatalf("intent = %s, want scenario", fused.Intent.Type)
	}
	if !strings.Contains(fused.Text, "$40000.00") {
		t.Errorf("scenario fragment missing projected price:\n%s", fused.Text)
	}
	if !containsString(fused.DataUsed, "scenario_analysis") {
		t.Errorf("dataUsed = %v, missing scenario_analysis", fused.DataUsed)
	}
}

func TestBuildContextConditionalSources(t *testing.T) {
	m := &fakeMarket{
		snapshots: testSnapshots(),
		fearGreed: &market.FearGreed{Value: 72, Label: "Greed"},
		whales:    []market.WhaleTransaction{{Symbol: "BTC", AmountUSD: 5e7, FromKind: "wallet", ToKind: "exchange"}},
		macro:     []market.MacroIndicator{{Name: "DXY", Value: 104.2, Change: -0.3}},
	}
	e := testEngine(m, &fakeSignals{}, config.Features{})

	fused := e.BuildContext(context.Background(), "is whale activity driving the fear in the market?", Options{})

	if !containsString(fused.DataUsed, "fear_greed") {
		t.Errorf("dataUsed = %v, missing fear_greed", fused.DataUsed)
	}
	if !containsString(fused.DataUsed, "whale_transactions") {
		t.Errorf("dataUsed = %v, missing whale_transactions", fused.DataUsed)
	}
	if containsString(fused.DataUsed, "macro_data") {
		t.Errorf("dataUsed = %v, macro_data fetched without a macro keyword", fused.DataUsed)
	}
	if fused.FearGreedValue == nil || *fused.FearGreedValue != 72 {
		t.Errorf("fearGreedValue = %v, want 72", fused.FearGreedValue)
	}
}

func TestBuildContextFeatureFlagsGateSignals(t *testing.T) {
	s := &fakeSignals{
		sentiment: &signals.SentimentSummary{
			Categories:     []signals.CategoryScore{{Category: "news", Score: 0.4}, {Category: "social", Score: -0.1}},
			BullishFactors: []string{"ETF inflows"},
		},
		smartMoney: &signals.SmartMoney{Symbol: "BTC", WhaleSentiment: "bullish", FlowTrend: "outflow", AccumulationScore: 0.7},
	}
	m := &fakeMarket{snapshots: testSnapshots()}

	off := testEngine(m, s, config.Features{})
	fused := off.BuildContext(context.Background(), "how is BTC doing", Options{})
	if containsString(fused.DataUsed, "sentiment_signals") || containsString(fused.DataUsed, "smart_money") {
		t.Errorf("signals included with flags off: %v", fused.DataUsed)
	}

	on := testEngine(m, s, config.Features{SentimentSignals: true, SmartMoney: true})
	fused = on.BuildContext(context.Background(), "how is BTC doing", Options{})
	if !containsString(fused.DataUsed, "sentiment_signals") {
		t.Errorf("dataUsed = %v, missing sentiment_signals", fused.DataUsed)
	}
	if !containsString(fused.DataUsed, "smart_money") {
		t.Errorf("dataUsed = %v, missing smart_money", fused.DataUsed)
	}
}

func TestPortfolioFragment(t *testing.T) {
	m := &fakeMarket{snapshots: testSnapshots()}
	e := testEngine(m, &fakeSignals{}, config.Features{})

	opts := Options{
		Holdings: []Holding{
			{Symbol: "BTC", Quantity: 0.5, AvgBuyPrice: 40000},
			{Symbol: "ETH", Quantity: 2, AvgBuyPrice: 0}, // airdrop: no cost basis
		},
	}
	fused := e.BuildContext(context.Background(), "how is my portfolio", opts)

	if !containsString(fused.DataUsed, "portfolio") {
		t.Fatalf("dataUsed = %v, missing portfolio", fused.DataUsed)
	}
	// 0.5 BTC bought at 40000, now 50000: +25%.
	if !strings.Contains(fused.Text, "(+25.00%)") {
		t.Errorf("portfolio fragment missing BTC P&L:\n%s", fused.Text)
	}
	// Zero cost basis reports 0% instead of dividing by zero.
	if !strings.Contains(fused.Text, "(+0.00%)") {
		t.Errorf("portfolio fragment missing zero-basis P&L:\n%s", fused.Text)
	}
}

func TestBuildContextDeterministicOrder(t *testing.T) {
	m := &fakeMarket{
		snapshots: testSnapshots(),
		fearGreed: &market.FearGreed{Value: 30, Label: "Fear"},
		whales:    []market.WhaleTransaction{{Symbol: "ETH", AmountUSD: 2e7, FromKind: "exchange", ToKind: "wallet"}},
	}
	e := testEngine(m, &fakeSignals{}, config.Features{})

	query := "whale moves and market fear around bitcoin"
	first := e.BuildContext(context.Background(), query, Options{})
	for i := 0; i < 25; i++ {
		next := e.BuildContext(context.Background(), query, Options{})
		if next.Text != first.Text {
			t.Fatalf("run %d produced different context text", i)
		}
	}

	// Precedence: market data before fear & greed before whales.
	mkt := strings.Index(first.Text, "CURRENT MARKET DATA")
	fg := strings.Index(first.Text, "FEAR & GREED")
	wh := strings.Index(first.Text, "WHALE TRANSACTIONS")
	if mkt == -1 || fg == -1 || wh == -1 || !(mkt < fg && fg < wh) {
		t.Fatalf("fragment order wrong: market=%d fearGreed=%d whales=%d", mkt, fg, wh)
	}
}
