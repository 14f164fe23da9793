package signals

import "time"

// CategoryScore is one sentiment category with its aggregate score in [-1, 1].
type CategoryScore struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// SentimentSummary is a pre-aggregated multi-category sentiment snapshot
// produced by the profiler pipeline. The assistant treats it as opaque text
// material; it never recomputes the scores.
type SentimentSummary struct {
	Categories     []CategoryScore `json:"categories"`
	BullishFactors []string        `json:"bullish_factors"`
	BearishFactors []string        `json:"bearish_factors"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

// SmartMoney is a pre-aggregated wallet-flow and exchange-flow signal for
// one coin.
type SmartMoney struct {
	Symbol             string    `json:"symbol"`
	WhaleSentiment     string    `json:"whale_sentiment"` // bullish, bearish, neutral
	NetExchangeFlowUSD float64   `json:"net_exchange_flow_usd"`
	FlowTrend          string    `json:"flow_trend"` // inflow, outflow, flat
	AccumulationScore  float64   `json:"accumulation_score"`
	GeneratedAt        time.Time `json:"generated_at"`
}
