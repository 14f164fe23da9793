package rag

import (
	"testing"

	"github.com/coinlens/coinlens/internal/config"
)

func TestSuggestQuestionsCap(t *testing.T) {
	// Nothing used, coins named, beginner tier: far more than four rules fire.
	got := SuggestQuestions(QueryGeneral, nil, []string{"BTC", "ETH"}, config.LevelBeginner)
	if len(got) != maxSuggestions {
		t.Fatalf("got %d suggestions, want %d: %v", len(got), maxSuggestions, got)
	}
	seen := make(map[string]bool)
	for _, q := range got {
		if seen[q] {
			t.Errorf("duplicate suggestion %q", q)
		}
		seen[q] = true
	}
}

func TestSuggestQuestionsSkipUsedSources(t *testing.T) {
	got := SuggestQuestions(QueryGeneral, []string{"fear_greed", "whale_transactions", "macro_data"}, nil, config.LevelIntermediate)
	for _, q := range got {
		switch q {
		case "What is the current market sentiment?",
			"Any notable whale activity lately?",
			"How are macro conditions affecting crypto right now?":
			t.Errorf("suggested already-used source: %q", q)
		}
	}
}

func TestSuggestQuestionsQueryTypeRules(t *testing.T) {
	got := SuggestQuestions(QueryPrediction, []string{"fear_greed", "whale_transactions", "macro_data"}, []string{"BTC"}, config.LevelIntermediate)
	if len(got) != 1 || got[0] != "What would invalidate this outlook?" {
		t.Fatalf("prediction suggestions = %v", got)
	}

	got = SuggestQuestions(QueryComparison, []string{"fear_greed", "whale_transactions", "macro_data"}, []string{"BTC", "ETH"}, config.LevelIntermediate)
	want := map[string]bool{
		"What is the outlook for BTC next week?":     true,
		"Which has stronger fundamentals long-term?": true,
	}
	for _, q := range got {
		if !want[q] {
			t.Errorf("unexpected comparison suggestion %q", q)
		}
	}
}
