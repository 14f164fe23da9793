package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coinlens/coinlens/internal/config"
	"github.com/coinlens/coinlens/internal/market"
	"github.com/coinlens/coinlens/internal/signals"
)

// MarketData is the read-side persistence collaborator. Implemented by
// market.Store.
type MarketData interface {
	Snapshots(ctx context.Context, symbols []string, limit int) ([]market.Snapshot, error)
	LatestFearGreed(ctx context.Context) (*market.FearGreed, error)
	RecentWhales(ctx context.Context, limit int) ([]market.WhaleTransaction, error)
	Derivatives(ctx context.Context, symbols []string) ([]market.Derivatives, error)
	MacroIndicators(ctx context.Context, limit int) ([]market.MacroIndicator, error)
	Predictions(ctx context.Context, symbols []string) ([]market.Prediction, error)
	RecentSummaries(ctx context.Context, limit int) ([]market.DailySummary, error)
}

// SignalSource is the profiler collaborator. Implemented by signals.Store.
type SignalSource interface {
	SentimentSummary(ctx context.Context) (*signals.SentimentSummary, error)
	SmartMoney(ctx context.Context, symbol string) (*signals.SmartMoney, error)
}

// Fragment slots in final-context precedence order. Concurrent fetches fill
// slots; assembly walks the slots in index order, so the output is
// deterministic no matter which fetch resolves first.
const (
	slotSession = iota
	slotPortfolio
	slotAnalysis // comparison or scenario
	slotMarket
	slotFearGreed
	slotWhales
	slotDerivatives
	slotMacro
	slotPredictions
	slotSummaries
	slotSentiment
	slotSmartMoney
	slotCount
)

// sourceNeeds gates the conditional fetches on keyword intent in the raw
// query. Kept as a table so tests can target individual rules.
var sourceNeeds = []struct {
	slot     int
	keywords []string
}{
	{slotFearGreed, []string{"sentiment", "fear", "greed", "mood", "feel"}},
	{slotWhales, []string{"whale", "dump", "accumul", "large transaction", "big money"}},
	{slotDerivatives, []string{"funding", "open interest", "liquidat", "futures", "leverage", "long/short"}},
	{slotMacro, []string{"fed", "treasury", "vix", "inflation", "cpi", "dxy", "macro", "rate", "dollar"}},
	{slotPredictions, []string{"predict", "forecast", "outlook", "target"}},
}

// FusedContext is the output of BuildContext.
type FusedContext struct {
	Text           string
	DataUsed       []string
	Intent         Intent
	Coins          []string
	Comparison     *Comparison
	Session        string
	FearGreedValue *int
}

// Engine fuses independent data sources into one context block. Individual
// fetch failures degrade to an omitted fragment; partial context is always
// better than no answer.
type Engine struct {
	market       MarketData
	signals      SignalSource
	flags        config.Features
	fetchTimeout time.Duration
	now          func() time.Time
}

// NewEngine creates a fusion engine.
func NewEngine(marketData MarketData, signalSource SignalSource, flags config.Features, fetchTimeout time.Duration) *Engine {
	if fetchTimeout <= 0 {
		fetchTimeout = 5 * time.Second
	}
	return &Engine{
		market:       marketData,
		signals:      signalSource,
		flags:        flags,
		fetchTimeout: fetchTimeout,
		now:          time.Now,
	}
}

// sourceLabels names each slot in DataUsed and in the prompt.
var sourceLabels = [slotCount]string{
	slotSession:     "market_session",
	slotPortfolio:   "portfolio",
	slotAnalysis:    "", // filled per intent
	slotMarket:      "market_data",
	slotFearGreed:   "fear_greed",
	slotWhales:      "whale_transactions",
	slotDerivatives: "derivatives",
	slotMacro:       "macro_data",
	slotPredictions: "predictions",
	slotSummaries:   "daily_summaries",
	slotSentiment:   "sentiment_signals",
	slotSmartMoney:  "smart_money",
}

// BuildContext classifies the query, fires the applicable source fetches
// concurrently, and concatenates the non-empty fragments in fixed
// precedence order. It never fails because one source did.
func (e *Engine) BuildContext(ctx context.Context, query string, opts Options) *FusedContext {
	intent := Classify(query)
	coins := DetectCoins(query)
	if opts.CoinSymbol != "" && !containsString(coins, strings.ToUpper(opts.CoinSymbol)) {
		coins = append(coins, strings.ToUpper(opts.CoinSymbol))
	}

	fused := &FusedContext{
		Intent:  intent,
		Coins:   coins,
		Session: MarketSession(e.now()),
	}

	var fragments [slotCount]string
	labels := sourceLabels
	fragments[slotSession] = fmt.Sprintf("Market session: %s (all times UTC)", fused.Session)

	fetchCtx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	var wg sync.WaitGroup
	run := func(slot int, fn func(context.Context) string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fragments[slot] = fn(fetchCtx)
		}()
	}

	lower := strings.ToLower(query)
	needs := make(map[int]bool)
	for _, rule := range sourceNeeds {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				needs[rule.slot] = true
				break
			}
		}
	}
	if intent.Type == QueryPrediction {
		needs[slotPredictions] = true
	}

	// Portfolio fragment: watchlist and holdings state supplied by the caller.
	if len(opts.Watchlist) > 0 || len(opts.Holdings) > 0 {
		run(slotPortfolio, func(c context.Context) string {
			return e.portfolioFragment(c, opts)
		})
	}

	// Intent-triggered sub-analyses.
	switch intent.Type {
	case QueryComparison:
		labels[slotAnalysis] = "comparison"
		run(slotAnalysis, func(c context.Context) string {
			text, cmp := e.comparisonFragment(c, intent.ComparisonCoins)
			fused.Comparison = cmp
			return text
		})
	case QueryScenario:
		labels[slotAnalysis] = "scenario_analysis"
		run(slotAnalysis, func(c context.Context) string {
			return e.scenarioFragment(c, intent.Scenario)
		})
	}

	// General market data is always fetched: the named coins when the query
	// mentions any, the top coins otherwise.
	run(slotMarket, func(c context.Context) string {
		return e.marketFragment(c, coins)
	})

	if needs[slotFearGreed] {
		run(slotFearGreed, func(c context.Context) string {
			text, value := e.fearGreedFragment(c)
			fused.FearGreedValue = value
			return text
		})
	}
	if needs[slotWhales] {
		run(slotWhales, e.whaleFragment)
	}
	if needs[slotDerivatives] {
		run(slotDerivatives, func(c context.Context) string {
			return e.derivativesFragment(c, coins)
		})
	}
	if needs[slotMacro] {
		run(slotMacro, e.macroFragment)
	}
	if needs[slotPredictions] {
		run(slotPredictions, func(c context.Context) string {
			return e.predictionsFragment(c, coins)
		})
	}

	if e.flags.DailySummaries {
		run(slotSummaries, e.summariesFragment)
	}
	if e.flags.SentimentSignals {
		run(slotSentiment, e.sentimentFragment)
	}
	if e.flags.SmartMoney && (needs[slotWhales] || needs[slotPredictions] || len(coins) > 0) {
		symbol := "BTC"
		if len(coins) > 0 {
			symbol = coins[0]
		}
		if opts.CoinSymbol != "" {
			symbol = strings.ToUpper(opts.CoinSymbol)
		}
		run(slotSmartMoney, func(c context.Context) string {
			return e.smartMoneyFragment(c, symbol)
		})
	}

	wg.Wait()

	var parts []string
	for slot := 0; slot < slotCount; slot++ {
		if fragments[slot] == "" {
			continue
		}
		parts = append(parts, fragments[slot])
		if labels[slot] != "" {
			fused.DataUsed = append(fused.DataUsed, labels[slot])
		}
	}
	fused.Text = strings.Join(parts, "\n\n")
	return fused
}

func (e *Engine) portfolioFragment(ctx context.Context, opts Options) string {
	symbols := append([]string{}, opts.Watchlist...)
	for _, h := range opts.Holdings {
		if !containsString(symbols, strings.ToUpper(h.Symbol)) {
			symbols = append(symbols, strings.ToUpper(h.Symbol))
		}
	}

	snaps, err := e.market.Snapshots(ctx, symbols, len(symbols))
	if err != nil || len(snaps) == 0 {
		return ""
	}
	prices := make(map[string]float64, len(snaps))
	for _, s := range snaps {
		prices[s.Symbol] = s.PriceUSD
	}

	var b strings.Builder
	b.WriteString("USER PORTFOLIO:")
	for _, h := range opts.Holdings {
		sym := strings.ToUpper(h.Symbol)
		price, ok := prices[sym]
		if !ok {
			continue
		}
		marketValue := h.Quantity * price
		costBasis := h.Quantity * h.AvgBuyPrice
		pnl := marketValue - costBasis
		pnlPct := 0.0
		if costBasis != 0 {
			pnlPct = pnl / costBasis * 100
		}
		fmt.Fprintf(&b, "\n- %s: %.6g units, value $%s, cost basis $%s, P&L $%s (%+.2f%%)",
			sym, h.Quantity, fmtUSD(marketValue), fmtUSD(costBasis), fmtUSD(pnl), pnlPct)
	}
	if len(opts.Watchlist) > 0 {
		fmt.Fprintf(&b, "\nWatchlist: %s", strings.Join(opts.Watchlist, ", "))
	}
	return b.String()
}

// comparisonMetrics defines the fixed comparison table. Higher wins except
// for price and volume, where "higher" means nothing.
var comparisonMetrics = []struct {
	name   string
	value  func(market.Snapshot) float64
	ranked bool
}{
	{"Current Price", func(s market.Snapshot) float64 { return s.PriceUSD }, false},
	{"24h Change", func(s market.Snapshot) float64 { return s.Change24h }, true},
	{"7d Change", func(s market.Snapshot) float64 { return s.Change7d }, true},
	{"Market Cap", func(s market.Snapshot) float64 { return s.MarketCap }, true},
	{"24h Volume", func(s market.Snapshot) float64 { return s.Volume24h }, false},
}

func (e *Engine) comparisonFragment(ctx context.Context, coins [2]string) (string, *Comparison) {
	snaps, err := e.market.Snapshots(ctx, coins[:], 2)
	if err != nil {
		return "", nil
	}
	bySymbol := make(map[string]market.Snapshot, len(snaps))
	for _, s := range snaps {
		bySymbol[s.Symbol] = s
	}
	a, okA := bySymbol[coins[0]]
	b, okB := bySymbol[coins[1]]
	if !okA || !okB {
		return "", nil
	}

	cmp := &Comparison{Coins: coins}
	var text strings.Builder
	fmt.Fprintf(&text, "COMPARISON %s vs %s:", coins[0], coins[1])
	for _, metric := range comparisonMetrics {
		va, vb := metric.value(a), metric.value(b)
		row := ComparisonMetric{
			Name:   metric.name,
			Values: map[string]float64{coins[0]: va, coins[1]: vb},
		}
		if metric.ranked {
			row.Winner = coins[0]
			if vb > va {
				row.Winner = coins[1]
			}
		}
		cmp.Metrics = append(cmp.Metrics, row)

		fmt.Fprintf(&text, "\n- %s: %s $%s vs %s $%s", metric.name, coins[0], fmtUSD(va), coins[1], fmtUSD(vb))
		if row.Winner != "" {
			fmt.Fprintf(&text, " (edge: %s)", row.Winner)
		}
	}
	return text.String(), cmp
}

func (e *Engine) scenarioFragment(ctx context.Context, params *ScenarioParams) string {
	if params == nil {
		return ""
	}
	snaps, err := e.market.Snapshots(ctx, []string{params.Coin}, 1)
	if err != nil || len(snaps) == 0 {
		return ""
	}
	snap := snaps[0]

	factor := 1 + params.ChangePercent/100
	if params.Direction == DirectionDown {
		factor = 1 - params.ChangePercent/100
	}
	newPrice := snap.PriceUSD * factor
	mcapDelta := snap.MarketCap * (factor - 1)

	verb := "rises"
	if params.Direction == DirectionDown {
		verb = "drops"
	}
	return fmt.Sprintf(
		"SCENARIO (hypothetical arithmetic, not a prediction):\nIf %s %s %.2f%% from its current price $%.2f, the price would be $%.2f and roughly $%s of market cap would be %s.",
		params.Coin, verb, params.ChangePercent, snap.PriceUSD, newPrice,
		fmtUSD(absFloat(mcapDelta)), gainedOrLost(params.Direction))
}

func (e *Engine) marketFragment(ctx context.Context, coins []string) string {
	limit := 10
	if len(coins) > 0 {
		limit = len(coins)
	}
	snaps, err := e.market.Snapshots(ctx, coins, limit)
	if err != nil || len(snaps) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("CURRENT MARKET DATA:")
	for _, s := range snaps {
		fmt.Fprintf(&b, "\n- %s: $%.2f (24h %+.2f%%, 7d %+.2f%%), mcap $%s, vol $%s",
			s.Symbol, s.PriceUSD, s.Change24h, s.Change7d, fmtUSD(s.MarketCap), fmtUSD(s.Volume24h))
	}
	return b.String()
}

func (e *Engine) fearGreedFragment(ctx context.Context) (string, *int) {
	fg, err := e.market.LatestFearGreed(ctx)
	if err != nil || fg == nil {
		return "", nil
	}
	value := fg.Value
	return fmt.Sprintf("FEAR & GREED INDEX: %d (%s)", fg.Value, fg.Label), &value
}

func (e *Engine) whaleFragment(ctx context.Context) string {
	whales, err := e.market.RecentWhales(ctx, 5)
	if err != nil || len(whales) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("RECENT WHALE TRANSACTIONS:")
	for _, w := range whales {
		fmt.Fprintf(&b, "\n- %s: $%s moved %s -> %s", w.Symbol, fmtUSD(w.AmountUSD), w.FromKind, w.ToKind)
	}
	return b.String()
}

func (e *Engine) derivativesFragment(ctx context.Context, coins []string) string {
	metrics, err := e.market.Derivatives(ctx, coins)
	if err != nil || len(metrics) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("DERIVATIVES:")
	for _, d := range metrics {
		fmt.Fprintf(&b, "\n- %s: OI $%s, funding %.4f%%, long/short %.2f, 24h liquidations $%s",
			d.Symbol, fmtUSD(d.OpenInterestUSD), d.FundingRate*100, d.LongShortRatio, fmtUSD(d.Liquidations24USD))
	}
	return b.String()
}

func (e *Engine) macroFragment(ctx context.Context) string {
	indicators, err := e.market.MacroIndicators(ctx, 8)
	if err != nil || len(indicators) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("MACRO INDICATORS:")
	for _, m := range indicators {
		fmt.Fprintf(&b, "\n- %s: %.2f (%+.2f)", m.Name, m.Value, m.Change)
	}
	return b.String()
}

func (e *Engine) predictionsFragment(ctx context.Context, coins []string) string {
	preds, err := e.market.Predictions(ctx, coins)
	if err != nil || len(preds) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("MODEL PREDICTIONS (cached):")
	for _, p := range preds {
		fmt.Fprintf(&b, "\n- %s %s: $%s (conf %.0f%%)", p.Symbol, p.Horizon, fmtUSD(p.PredictedPrice), p.Confidence*100)
	}
	return b.String()
}

func (e *Engine) summariesFragment(ctx context.Context) string {
	summaries, err := e.market.RecentSummaries(ctx, 3)
	if err != nil || len(summaries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("RECENT DAILY SUMMARIES:")
	for _, s := range summaries {
		fmt.Fprintf(&b, "\n[%s] %s", s.Day, s.Summary)
	}
	return b.String()
}

func (e *Engine) sentimentFragment(ctx context.Context) string {
	summary, err := e.signals.SentimentSummary(ctx)
	if err != nil || summary == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("SENTIMENT SIGNALS:")
	for _, c := range summary.Categories {
		fmt.Fprintf(&b, "\n- %s: %+.2f", c.Category, c.Score)
	}
	if len(summary.BullishFactors) > 0 {
		fmt.Fprintf(&b, "\nBullish: %s", strings.Join(summary.BullishFactors, "; "))
	}
	if len(summary.BearishFactors) > 0 {
		fmt.Fprintf(&b, "\nBearish: %s", strings.Join(summary.BearishFactors, "; "))
	}
	return b.String()
}

func (e *Engine) smartMoneyFragment(ctx context.Context, symbol string) string {
	sm, err := e.signals.SmartMoney(ctx, symbol)
	if err != nil || sm == nil {
		return ""
	}
	return fmt.Sprintf(
		"SMART MONEY (%s): whale sentiment %s, net exchange flow $%s (%s), accumulation score %.2f",
		sm.Symbol, sm.WhaleSentiment, fmtUSD(absFloat(sm.NetExchangeFlowUSD)), sm.FlowTrend, sm.AccumulationScore)
}

func fmtUSD(v float64) string {
	switch {
	case absFloat(v) >= 1e12:
		return fmt.Sprintf("%.2fT", v/1e12)
	case absFloat(v) >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case absFloat(v) >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case absFloat(v) >= 1e3:
		return fmt.Sprintf("%.2fK", v/1e3)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func gainedOrLost(d Direction) string {
	if d == DirectionDown {
		return "erased"
	}
	return "added"
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
