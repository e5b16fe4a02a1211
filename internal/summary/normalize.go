package summary

import (
	"strconv"
	"strings"
)

const (
	maxTitleLen = 40
	maxTLDRLen  = 120
	maxTags     = 12

	// Content shorter than this is considered too thin to support a
	// high-impact judgment.
	shortContentLen   = 120
	shortContentScore = 30
)

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func coerceString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func coerceInt(v interface{}, fallback int) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return fallback
}

// Normalize coerces an untyped model payload into a schema-valid Summary.
// This is the single boundary where untyped data becomes the typed model:
// every field is clamped to its allowed type/enum/length, out-of-enum values
// are overwritten with safe defaults, and the four dimension keys are always
// present. A thin content body depresses the impact score and marks the tldr
// as low-confidence.
func Normalize(payload map[string]interface{}, title, content string) Summary {
	result := Default("model output missing fields")

	if v := coerceString(payload["title_zh"]); strings.TrimSpace(v) != "" {
		result.TitleZH = truncateRunes(v, maxTitleLen)
	} else if strings.TrimSpace(title) != "" {
		result.TitleZH = truncateRunes(title, maxTitleLen)
	}

	if v := coerceString(payload["tldr"]); strings.TrimSpace(v) != "" {
		result.TLDR = truncateRunes(v, maxTLDRLen)
	}

	score := coerceInt(payload["impact_score"], result.ImpactScore)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	if len([]rune(strings.TrimSpace(content))) < shortContentLen {
		if score > shortContentScore {
			score = shortContentScore
		}
		if !strings.Contains(strings.ToLower(result.TLDR), LowConfidenceMarker) {
			// the marker must survive the length cap, so truncate first
			suffix := " (insufficient information, " + LowConfidenceMarker + ")"
			result.TLDR = truncateRunes(result.TLDR, maxTLDRLen-len([]rune(suffix))) + suffix
		}
	}
	result.ImpactScore = score

	if risk := coerceString(payload["risk_level"]); risk != "" {
		if allowedRisk[risk] {
			result.RiskLevel = risk
		} else {
			result.RiskLevel = RiskMedium
		}
	}

	if platform := coerceString(payload["platform"]); platform != "" {
		if allowedPlatform[platform] {
			result.Platform = platform
		} else {
			result.Platform = PlatformGlobal
		}
	}

	if region := coerceString(payload["region"]); region != "" {
		if allowedRegion[region] {
			result.Region = region
		} else {
			result.Region = RegionGlobal
		}
	}

	result.Dimensions = normalizeDimensions(payload["dimensions"])
	result.StrategicActions = normalizeActions(payload["strategic_actions"], result.StrategicActions)
	result.Tags = normalizeTags(payload["tags"], result.Tags)

	return result
}

func normalizeDimensions(raw interface{}) map[string]Dimension {
	dims, _ := raw.(map[string]interface{})

	// Exactly the four fixed keys, never more, never fewer.
	normalized := make(map[string]Dimension, len(dimensionKeys))
	for _, key := range dimensionKeys {
		entry, _ := dims[key].(map[string]interface{})

		impact := coerceString(entry["impact"])
		if !allowedImpact[impact] {
			impact = ImpactNone
		}

		normalized[key] = Dimension{
			Impact:   impact,
			Analysis: coerceString(entry["analysis"]),
		}
	}
	return normalized
}

func normalizeActions(raw interface{}, fallback []Action) []Action {
	list, _ := raw.([]interface{})

	var normalized []Action
	for _, item := range list {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		text := strings.TrimSpace(coerceString(entry["action"]))
		if text == "" {
			continue
		}

		priority := coerceString(entry["priority"])
		if !allowedPriority[priority] {
			priority = PriorityP2
		}
		owner := coerceString(entry["owner"])
		if !allowedOwner[owner] {
			owner = OwnerStrategy
		}

		normalized = append(normalized, Action{Priority: priority, Owner: owner, Action: text})
	}

	if len(normalized) == 0 {
		return fallback
	}
	return normalized
}

func normalizeTags(raw interface{}, fallback []string) []string {
	list, _ := raw.([]interface{})

	var tags []string
	for _, item := range list {
		tag := strings.TrimSpace(coerceString(item))
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
		if len(tags) >= maxTags {
			break
		}
	}

	if len(tags) == 0 {
		return fallback
	}
	return tags
}
