package rag

import (
	"fmt"
	"strings"
	"time"

	"github.com/coinlens/coinlens/internal/config"
)

const promptDisclaimer = `Always close with: "This is market information, not financial advice. Crypto assets are volatile; never invest more than you can afford to lose."`

const noDataPlaceholder = "(no market data available right now)"

// BuildSystemPrompt renders the assistant's system prompt for the given
// user tier, embedding the fused context. The factual-grounding rules and
// the disclaimer are invariant across tiers; only tone, jargon, and
// formatting density vary.
func BuildSystemPrompt(level config.UserLevel, contextText string, now time.Time) string {
	var b strings.Builder

	b.WriteString("You are the coinlens market assistant, answering crypto market questions for dashboard users.\n")
	fmt.Fprintf(&b, "Current time: %s\n\n", now.UTC().Format(time.RFC3339))

	ctx := contextText
	if strings.TrimSpace(ctx) == "" {
		ctx = noDataPlaceholder
	}
	b.WriteString("MARKET DATA:\n")
	b.WriteString(ctx)
	b.WriteString("\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("- Use ONLY the market data above. Never invent prices, percentages, or volumes.\n")
	b.WriteString("- If the data does not cover the question, say so instead of guessing.\n")
	b.WriteString("- Never give direct financial advice (no \"you should buy/sell\").\n")

	switch level {
	case config.LevelBeginner:
		b.WriteString("- The user is new to crypto. Avoid jargon, or explain it in one short phrase when unavoidable.\n")
		b.WriteString("- Keep answers short and friendly; an emoji or two is fine.\n")
		b.WriteString("- Prefer analogies over technical depth.\n")
	case config.LevelPro:
		b.WriteString("- The user is an experienced trader. Use precise market terminology freely.\n")
		b.WriteString("- Be dense: lead with numbers, levels, funding, flows. No emoji, no filler.\n")
	default:
		b.WriteString("- The user understands crypto basics. Use standard market terms without over-explaining.\n")
		b.WriteString("- Balance readability and detail; short paragraphs or tight bullet lists.\n")
	}

	b.WriteString("\n")
	b.WriteString(promptDisclaimer)
	b.WriteString("\n")

	return b.String()
}
