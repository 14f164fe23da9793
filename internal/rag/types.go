package rag

import (
	"github.com/coinlens/coinlens/internal/config"
)

// QueryType classifies what the user is asking for.
type QueryType string

const (
	QueryGeneral    QueryType = "general"
	QueryComparison QueryType = "comparison"
	QueryScenario   QueryType = "scenario"
	QueryPrediction QueryType = "prediction"
	QueryEducation  QueryType = "education"
)

// Direction of a hypothetical price move.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ScenarioParams captures a "what if X moves N%" question.
type ScenarioParams struct {
	Coin          string    `json:"coin"`
	ChangePercent float64   `json:"change_percent"`
	Direction     Direction `json:"direction"`
}

// Intent is the classification result for one query.
type Intent struct {
	Type            QueryType       `json:"type"`
	ComparisonCoins [2]string       `json:"comparison_coins,omitempty"`
	Scenario        *ScenarioParams `json:"scenario,omitempty"`
}

// ChatMessage is one turn of prior conversation supplied by the caller.
type ChatMessage struct {
	Role    string `json:"role"` // user or assistant
	Content string `json:"content"`
}

// Holding is one portfolio position supplied by the caller.
type Holding struct {
	Symbol      string  `json:"symbol"`
	Quantity    float64 `json:"quantity"`
	AvgBuyPrice float64 `json:"avg_buy_price"`
}

// Options carries the optional per-request user state.
type Options struct {
	UserLevel  config.UserLevel `json:"user_level,omitempty"`
	CoinSymbol string           `json:"coin_symbol,omitempty"`
	Watchlist  []string         `json:"watchlist,omitempty"`
	Holdings   []Holding        `json:"portfolio_holdings,omitempty"`
	UserID     string           `json:"user_id,omitempty"`
}

// Confidence is the coarse trust label derived from how many data sources
// contributed to an answer.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ConfidenceFor maps a source count to a confidence label.
func ConfidenceFor(sourceCount int) Confidence {
	switch {
	case sourceCount >= 5:
		return ConfidenceHigh
	case sourceCount >= 3:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ComparisonMetric is one row of a two-coin comparison table. Winner is
// empty for metrics where "higher" is not "better" (price, volume).
type ComparisonMetric struct {
	Name   string             `json:"name"`
	Values map[string]float64 `json:"values"`
	Winner string             `json:"winner,omitempty"`
}

// Comparison is the structured result of a comparison query.
type Comparison struct {
	Coins   [2]string          `json:"coins"`
	Metrics []ComparisonMetric `json:"metrics"`
}

// SourceQuality describes the reliability and freshness of one used source.
type SourceQuality struct {
	Source      string `json:"source"`
	Reliability string `json:"reliability"` // high or medium
	Freshness   string `json:"freshness"`   // <5 min, <1 hr, <24 hr
}

// Response is the assistant's answer envelope.
type Response struct {
	Answer             string           `json:"answer"`
	DataUsed           []string         `json:"data_used"`
	Confidence         Confidence       `json:"confidence"`
	TokensUsed         int              `json:"tokens_used,omitempty"`
	UserLevel          config.UserLevel `json:"user_level"`
	SuggestedQuestions []string         `json:"suggested_questions"`
	SourceQuality      []SourceQuality  `json:"source_quality"`
	MarketSession      string           `json:"market_session"`
	QueryType          QueryType        `json:"query_type"`
	Comparison         *Comparison      `json:"comparison_data,omitempty"`
}

// FrameKind discriminates streamed frames.
type FrameKind string

const (
	FrameChunk    FrameKind = "chunk"
	FrameMetadata FrameKind = "metadata"
)

// Frame is one element of a streamed answer: zero or more chunk frames in
// emission order, then exactly one metadata frame carrying the Response
// minus the answer text.
type Frame struct {
	Kind     FrameKind `json:"kind"`
	Chunk    string    `json:"chunk,omitempty"`
	Metadata *Response `json:"metadata,omitempty"`
}
