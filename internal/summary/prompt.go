package summary

import (
	"strings"
)

// promptTemplate asks for strict JSON in the summary schema. The template is
// applied with string replacement, not fmt verbs: the JSON example is full
// of braces.
const promptTemplate = `You are an industry analyst focused on cross-border ecommerce SaaS platform strategy.

Based on the news below, output strict JSON only (no Markdown, no code fences, no extra commentary).

The output JSON must contain exactly these fields:
{
  "title_zh": "Chinese title of the news (concise and accurate, at most 40 characters)",
  "tldr": "One-sentence strategic judgment (at most 120 characters)",
  "impact_score": 0,
  "risk_level": "low",
  "platform": "Global",
  "region": "Global",
  "dimensions": {
    "subscription": {"impact": "none", "analysis": ""},
    "commission": {"impact": "none", "analysis": ""},
    "payment": {"impact": "none", "analysis": ""},
    "ecosystem": {"impact": "none", "analysis": ""}
  },
  "strategic_actions": [
    {"priority": "P1", "owner": "strategy", "action": ""}
  ],
  "tags": ["platform"]
}

Constraints:
1) risk_level must be one of: low/medium/high
2) platform must be one of: Shopify/Shopline/Amazon/TikTok Shop/Global
3) region must be one of: US/EU/SEA/UK/Global
4) dimensions must contain exactly subscription/commission/payment/ecosystem
5) dimensions.*.impact must be one of: high/medium/low/none
6) strategic_actions.priority must be one of: P0/P1/P2
7) strategic_actions.owner must be one of: product/strategy/monetization
8) output valid JSON only

Special rule: if the article body is too thin, lower impact_score and briefly state the reason in tldr (for example "insufficient information, low confidence").

News title:
{title}

News body:
{content}
`

const repairPromptTemplate = `The following text was supposed to be a strict JSON object but is malformed. Convert it into valid strict JSON preserving as much of the original data as possible. Output the JSON object only, nothing else.

{text}
`

// buildPrompt fills the analysis template, bounding the article body to the
// given character budget on a rune boundary.
func buildPrompt(title, content string, maxInputChars int) string {
	content = strings.TrimSpace(strings.ReplaceAll(content, "\r", ""))
	runes := []rune(content)
	if maxInputChars > 0 && len(runes) > maxInputChars {
		trimmed := string(runes[:maxInputChars])
		// prefer ending at a sentence boundary when one is close enough
		if idx := strings.LastIndex(trimmed, ". "); idx > maxInputChars/4 {
			trimmed = trimmed[:idx+1]
		}
		content = trimmed + "\n[TRUNCATED]"
	}

	prompt := strings.ReplaceAll(promptTemplate, "{title}", title)
	return strings.ReplaceAll(prompt, "{content}", content)
}

func buildRepairPrompt(broken string) string {
	return strings.ReplaceAll(repairPromptTemplate, "{text}", broken)
}
