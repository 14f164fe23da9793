package rag

// highReliabilitySources are the sources backed by exchange-grade feeds.
// Everything else is medium.
var highReliabilitySources = map[string]bool{
	"market_data": true,
	"fear_greed":  true,
	"derivatives": true,
	"macro_data":  true,
}

// freshnessBuckets maps source categories to estimated data age.
var freshnessBuckets = map[string]string{
	"market_data":        "<5 min",
	"derivatives":        "<5 min",
	"market_session":     "<5 min",
	"comparison":         "<5 min",
	"scenario_analysis":  "<5 min",
	"portfolio":          "<5 min",
	"fear_greed":         "<1 hr",
	"whale_transactions": "<1 hr",
	"macro_data":         "<1 hr",
	"sentiment_signals":  "<1 hr",
	"smart_money":        "<1 hr",
	"predictions":        "<24 hr",
	"daily_summaries":    "<24 hr",
}

// SourceQualityFor annotates each used source with its reliability tier and
// freshness bucket.
func SourceQualityFor(dataUsed []string) []SourceQuality {
	out := make([]SourceQuality, 0, len(dataUsed))
	for _, src := range dataUsed {
		reliability := "medium"
		if highReliabilitySources[src] {
			reliability = "high"
		}
		freshness, ok := freshnessBuckets[src]
		if !ok {
			freshness = "<24 hr"
		}
		out = append(out, SourceQuality{
			Source:      src,
			Reliability: reliability,
			Freshness:   freshness,
		})
	}
	return out
}
