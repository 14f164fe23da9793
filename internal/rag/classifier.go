package rag

import (
	"regexp"
	"strconv"
	"strings"
)

// Classification is rule-table driven: the first matching rule wins, and the
// rules are ordered so comparison patterns beat scenario patterns beat
// education and prediction keyword checks. Queries matching nothing are
// general.

type intentRule struct {
	name  string
	match func(q string) (Intent, bool)
}

var comparisonPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bcompare\s+(\w+)\s+(?:and|with|to|vs\.?|versus)\s+(\w+)`),
	regexp.MustCompile(`(?i)\b(\w+)\s+(?:vs\.?|versus)\s+(\w+)`),
	regexp.MustCompile(`(?i)\bwhich\s+is\s+better[,:]?\s+(\w+)\s+or\s+(\w+)`),
}

var scenarioPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwhat\s+if\s+(\w+)\s+(drops|falls|crashes|declines|dips|tanks|rises|pumps|rallies|gains|moons)\s*(?:by\s*)?(\d+(?:\.\d+)?)?\s*%?`),
	regexp.MustCompile(`(?i)\bif\s+(\w+)\s+goes\s+(up|down)\s*(?:by\s*)?(\d+(?:\.\d+)?)?\s*%?`),
}

var downWords = regexp.MustCompile(`(?i)\b(drops?|falls?|crash(?:es)?|declines?|dips?|tanks?|down)\b`)

var educationKeywords = []string{"what is", "what are", "how does", "how do", "explain", "teach", "mean"}

var predictionKeywords = []string{"predict", "forecast", "will go", "outlook", "next week", "next month", "price target"}

// defaultScenarioPercent is used when the query names no parsable number.
const defaultScenarioPercent = 10

var intentRules = []intentRule{
	{name: "comparison", match: matchComparison},
	{name: "scenario", match: matchScenario},
	{name: "education", match: matchKeywords(educationKeywords, QueryEducation)},
	{name: "prediction", match: matchKeywords(predictionKeywords, QueryPrediction)},
}

// Classify derives the query intent from the raw text.
func Classify(query string) Intent {
	for _, rule := range intentRules {
		if intent, ok := rule.match(query); ok {
			return intent
		}
	}
	return Intent{Type: QueryGeneral}
}

func matchComparison(q string) (Intent, bool) {
	for _, pat := range comparisonPatterns {
		if m := pat.FindStringSubmatch(q); m != nil {
			return Intent{
				Type:            QueryComparison,
				ComparisonCoins: [2]string{normalizeCoinToken(m[1]), normalizeCoinToken(m[2])},
			}, true
		}
	}
	return Intent{}, false
}

// normalizeCoinToken maps a full coin name to its symbol when the alias
// table knows it, and uppercases the token otherwise.
func normalizeCoinToken(token string) string {
	lower := strings.ToLower(token)
	for _, ca := range coinAliases {
		for _, alias := range ca.Aliases {
			if lower == alias {
				return ca.Symbol
			}
		}
	}
	return strings.ToUpper(token)
}

func matchScenario(q string) (Intent, bool) {
	for _, pat := range scenarioPatterns {
		m := pat.FindStringSubmatch(q)
		if m == nil {
			continue
		}

		pct := float64(defaultScenarioPercent)
		// The percentage group is the last submatch in both patterns.
		if raw := m[len(m)-1]; raw != "" {
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				pct = v
			}
		}

		direction := DirectionUp
		if downWords.MatchString(q) {
			direction = DirectionDown
		}

		return Intent{
			Type: QueryScenario,
			Scenario: &ScenarioParams{
				Coin:          normalizeCoinToken(m[1]),
				ChangePercent: pct,
				Direction:     direction,
			},
		}, true
	}
	return Intent{}, false
}

func matchKeywords(keywords []string, qt QueryType) func(string) (Intent, bool) {
	return func(q string) (Intent, bool) {
		lower := strings.ToLower(q)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return Intent{Type: qt}, true
			}
		}
		return Intent{}, false
	}
}

// coinAliases maps each supported symbol to its recognized spellings. The
// slice keeps a stable check order for symbols tied at the same position.
var coinAliases = []struct {
	Symbol  string
	Aliases []string
}{
	{"BTC", []string{"btc", "bitcoin"}},
	{"ETH", []string{"eth", "ethereum"}},
	{"SOL", []string{"sol", "solana"}},
	{"XRP", []string{"xrp", "ripple"}},
	{"BNB", []string{"bnb"}},
	{"ADA", []string{"ada", "cardano"}},
	{"DOGE", []string{"doge", "dogecoin"}},
}

var aliasPatterns = buildAliasPatterns()

func buildAliasPatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(coinAliases))
	for _, ca := range coinAliases {
		patterns[ca.Symbol] = regexp.MustCompile(`(?i)\b(` + strings.Join(ca.Aliases, "|") + `)\b`)
	}
	return patterns
}

// DetectCoins scans the query for known coin names and symbols, returning
// matched symbols in first-seen order.
func DetectCoins(query string) []string {
	type hit struct {
		symbol string
		pos    int
	}
	var hits []hit
	for _, ca := range coinAliases {
		if loc := aliasPatterns[ca.Symbol].FindStringIndex(query); loc != nil {
			hits = append(hits, hit{symbol: ca.Symbol, pos: loc[0]})
		}
	}

	// Order by position in the text, keeping alias-table order for ties.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	symbols := make([]string, 0, len(hits))
	for _, h := range hits {
		symbols = append(symbols, h.symbol)
	}
	return symbols
}
