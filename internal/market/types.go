package market

import "time"

// Snapshot is one row of cached market data for a coin.
type Snapshot struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name,omitempty"`
	PriceUSD  float64   `json:"price_usd"`
	Change24h float64   `json:"change_24h"`
	Change7d  float64   `json:"change_7d"`
	MarketCap float64   `json:"market_cap"`
	Volume24h float64   `json:"volume_24h"`
	FetchedAt time.Time `json:"fetched_at"`
}

// FearGreed is one reading of the fear & greed index.
type FearGreed struct {
	Value      int       `json:"value"`
	Label      string    `json:"label"`
	RecordedAt time.Time `json:"recorded_at"`
}

// WhaleTransaction is a single observed large on-chain transfer.
type WhaleTransaction struct {
	Symbol     string    `json:"symbol"`
	AmountUSD  float64   `json:"amount_usd"`
	FromKind   string    `json:"from_kind"` // exchange, wallet, unknown
	ToKind     string    `json:"to_kind"`
	ObservedAt time.Time `json:"observed_at"`
}

// Derivatives holds cached futures-market metrics for one coin.
type Derivatives struct {
	Symbol            string    `json:"symbol"`
	OpenInterestUSD   float64   `json:"open_interest_usd"`
	FundingRate       float64   `json:"funding_rate"`
	LongShortRatio    float64   `json:"long_short_ratio"`
	Liquidations24USD float64   `json:"liquidations_24h_usd"`
	FetchedAt         time.Time `json:"fetched_at"`
}

// MacroIndicator is one macro-economic reading (DXY, VIX, treasury yields...).
type MacroIndicator struct {
	Name       string    `json:"name"`
	Value      float64   `json:"value"`
	Change     float64   `json:"change"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Prediction is a cached model price prediction for a coin.
type Prediction struct {
	Symbol         string    `json:"symbol"`
	Horizon        string    `json:"horizon"`
	PredictedPrice float64   `json:"predicted_price"`
	Confidence     float64   `json:"confidence"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// DailySummary is one AI-generated market recap.
type DailySummary struct {
	Day       string    `json:"day"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}
