package summary

// Enumerated field values. Anything outside these sets is overwritten with
// the safe default during normalization, never rejected.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"

	ImpactHigh   = "high"
	ImpactMedium = "medium"
	ImpactLow    = "low"
	ImpactNone   = "none"

	PriorityP0 = "P0"
	PriorityP1 = "P1"
	PriorityP2 = "P2"

	OwnerProduct      = "product"
	OwnerStrategy     = "strategy"
	OwnerMonetization = "monetization"

	PlatformGlobal = "Global"
	RegionGlobal   = "Global"
)

// UntranslatedTitle marks a record whose localized title still needs a
// backfill pass.
const UntranslatedTitle = "（待翻译）"

// LowConfidenceMarker is appended to the tldr of thin-content summaries and
// carried by default payloads; the cleanup scan keys off it.
const LowConfidenceMarker = "low confidence"

var (
	allowedRisk     = map[string]bool{RiskLow: true, RiskMedium: true, RiskHigh: true}
	allowedImpact   = map[string]bool{ImpactHigh: true, ImpactMedium: true, ImpactLow: true, ImpactNone: true}
	allowedPriority = map[string]bool{PriorityP0: true, PriorityP1: true, PriorityP2: true}
	allowedOwner    = map[string]bool{OwnerProduct: true, OwnerStrategy: true, OwnerMonetization: true}
	allowedPlatform = map[string]bool{"Shopify": true, "Shopline": true, "Amazon": true, "TikTok Shop": true, PlatformGlobal: true}
	allowedRegion   = map[string]bool{"US": true, "EU": true, "SEA": true, "UK": true, RegionGlobal: true}
)

// dimensionKeys is the fixed set of analysis dimensions, always exactly
// these four, in this order.
var dimensionKeys = []string{"subscription", "commission", "payment", "ecosystem"}

// Dimension is one analysis axis of a summary.
type Dimension struct {
	Impact   string `json:"impact"`
	Analysis string `json:"analysis"`
}

// Action is a single prioritized strategic follow-up.
type Action struct {
	Priority string `json:"priority"`
	Owner    string `json:"owner"`
	Action   string `json:"action"`
}

// Summary is the fixed-shape strategic-analysis record persisted with each
// ingested item. It is only ever produced by Normalize, so every instance
// is schema-valid by construction.
type Summary struct {
	TitleZH          string               `json:"title_zh"`
	TLDR             string               `json:"tldr"`
	ImpactScore      int                  `json:"impact_score"`
	RiskLevel        string               `json:"risk_level"`
	Platform         string               `json:"platform"`
	Region           string               `json:"region"`
	Dimensions       map[string]Dimension `json:"dimensions"`
	StrategicActions []Action             `json:"strategic_actions"`
	Tags             []string             `json:"tags"`
}

// Default returns the fixed fallback payload used when the model yields
// nothing parseable. The tldr names the failure reason.
func Default(reason string) Summary {
	dims := make(map[string]Dimension, len(dimensionKeys))
	for _, key := range dimensionKeys {
		dims[key] = Dimension{Impact: ImpactNone, Analysis: "insufficient information"}
	}

	return Summary{
		TitleZH:     UntranslatedTitle,
		TLDR:        truncateRunes("Insufficient information, "+LowConfidenceMarker+". Reason: "+reason, maxTLDRLen),
		ImpactScore: 25,
		RiskLevel:   RiskLow,
		Platform:    PlatformGlobal,
		Region:      RegionGlobal,
		Dimensions:  dims,
		StrategicActions: []Action{
			{Priority: PriorityP2, Owner: OwnerStrategy, Action: "Gather more first-hand information before making a strategic call"},
		},
		Tags: []string{"insufficient-information"},
	}
}
