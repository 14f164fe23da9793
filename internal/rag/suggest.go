package rag

import (
	"fmt"

	"github.com/coinlens/coinlens/internal/config"
)

// maxSuggestions caps the follow-up question list.
const maxSuggestions = 4

// suggestionRule proposes one follow-up question when its condition holds.
// Rules are evaluated in order; duplicates are dropped and the list is
// capped at maxSuggestions.
type suggestionRule struct {
	applies func(in suggestionInput) bool
	text    func(in suggestionInput) string
}

type suggestionInput struct {
	queryType QueryType
	dataUsed  map[string]bool
	coins     []string
	level     config.UserLevel
}

var suggestionRules = []suggestionRule{
	// Unused sources the user might want pulled in.
	{
		applies: func(in suggestionInput) bool { return !in.dataUsed["fear_greed"] },
		text:    func(suggestionInput) string { return "What is the current market sentiment?" },
	},
	{
		applies: func(in suggestionInput) bool { return !in.dataUsed["whale_transactions"] },
		text:    func(suggestionInput) string { return "Any notable whale activity lately?" },
	},
	{
		applies: func(in suggestionInput) bool { return !in.dataUsed["macro_data"] },
		text:    func(suggestionInput) string { return "How are macro conditions affecting crypto right now?" },
	},
	// Coin-specific follow-ups.
	{
		applies: func(in suggestionInput) bool { return len(in.coins) >= 1 && in.queryType != QueryPrediction },
		text: func(in suggestionInput) string {
			return fmt.Sprintf("What is the outlook for %s next week?", in.coins[0])
		},
	},
	{
		applies: func(in suggestionInput) bool { return len(in.coins) >= 2 && in.queryType != QueryComparison },
		text: func(in suggestionInput) string {
			return fmt.Sprintf("Compare %s and %s", in.coins[0], in.coins[1])
		},
	},
	// Query-type follow-ups.
	{
		applies: func(in suggestionInput) bool { return in.queryType == QueryPrediction },
		text:    func(suggestionInput) string { return "What would invalidate this outlook?" },
	},
	{
		applies: func(in suggestionInput) bool { return in.queryType == QueryComparison },
		text:    func(suggestionInput) string { return "Which has stronger fundamentals long-term?" },
	},
	// Tier follow-ups.
	{
		applies: func(in suggestionInput) bool { return in.level == config.LevelBeginner },
		text:    func(suggestionInput) string { return "Can you explain that in simpler terms?" },
	},
	{
		applies: func(in suggestionInput) bool { return in.level == config.LevelPro },
		text:    func(suggestionInput) string { return "What are the key levels and on-chain flows to watch?" },
	},
}

// SuggestQuestions produces up to four deduplicated follow-up questions
// from the fixed rule table.
func SuggestQuestions(queryType QueryType, dataUsed []string, coins []string, level config.UserLevel) []string {
	in := suggestionInput{
		queryType: queryType,
		dataUsed:  make(map[string]bool, len(dataUsed)),
		coins:     coins,
		level:     level,
	}
	for _, src := range dataUsed {
		in.dataUsed[src] = true
	}

	seen := make(map[string]bool)
	var out []string
	for _, rule := range suggestionRules {
		if len(out) == maxSuggestions {
			break
		}
		if !rule.applies(in) {
			continue
		}
		q := rule.text(in)
		if seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
	}
	return out
}
