package news

import "strings"

// Hand-curated relevance lists for the cross-border-commerce beat. Matching
// is deliberately plain case-insensitive substring search over normalized
// title+content; the lists trade recall for simplicity and will both over-
// and under-match at the margins.

var crossBorderKeywords = []string{
	"cross-border",
	"cross border",
	"crossborder",
	"de minimis",
	"customs clearance",
	"import duty",
	"import duties",
	"export control",
	"international shipping",
	"global ecommerce",
	"global e-commerce",
}

var commerceKeywords = []string{
	"ecommerce",
	"e-commerce",
	"online retail",
	"online store",
	"marketplace",
	"merchant",
	"seller",
	"storefront",
	"dropship",
	"checkout",
	"gmv",
	"retail",
}

var strategicKeywords = []string{
	"tariff",
	"duty",
	"duties",
	"sanction",
	"trade policy",
	"regulation",
	"compliance",
	"antitrust",
	"payment",
	"payments",
	"payout",
	"transaction fee",
	"logistics",
	"supply chain",
	"fulfillment",
	"shipping",
	"warehouse",
	"shopify",
	"shopline",
	"woocommerce",
	"amazon",
	"temu",
	"tiktok shop",
	"aliexpress",
	"shein",
	"alibaba",
	"stripe",
	"paypal",
	"earnings",
	"quarterly results",
	"acquisition",
	"funding",
	"tax",
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// Relevant is the relevance/quality gate: empty or title-echo content never
// passes; otherwise accept on an explicit cross-border keyword, or on the
// conjunction of a commerce-domain keyword and a strategic-impact keyword.
func Relevant(title, content string) bool {
	if strings.TrimSpace(content) == "" {
		return false
	}
	if IsTitleEcho(title, content) {
		return false
	}

	text := strings.ToLower(normalizeSpace(title + " " + content))

	if containsAny(text, crossBorderKeywords) {
		return true
	}
	return containsAny(text, commerceKeywords) && containsAny(text, strategicKeywords)
}
