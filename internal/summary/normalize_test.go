package summary

import (
	"strings"
	"testing"
)

const longContent = "The European Commission proposed a flat customs duty on low-value parcels entering the bloc, a move aimed at marketplaces shipping directly from Asia to European consumers."

func validPayload() map[string]interface{} {
	return map[string]interface{}{
		"title_zh":     "欧盟拟对低价值包裹征收关税",
		"tldr":         "EU proposes a flat duty on low-value parcels, raising costs for direct-from-Asia marketplaces.",
		"impact_score": float64(72),
		"risk_level":   "high",
		"platform":     "Global",
		"region":       "EU",
		"dimensions": map[string]interface{}{
			"subscription": map[string]interface{}{"impact": "low", "analysis": "little effect on subscriptions"},
			"commission":   map[string]interface{}{"impact": "medium", "analysis": "order volumes may dip"},
			"payment":      map[string]interface{}{"impact": "low", "analysis": "no direct payment change"},
			"ecosystem":    map[string]interface{}{"impact": "high", "analysis": "cost structure shifts for cross-border apps"},
		},
		"strategic_actions": []interface{}{
			map[string]interface{}{"priority": "P1", "owner": "strategy", "action": "Model duty impact on merchant pricing"},
		},
		"tags": []interface{}{"eu", "tariff", "cross-border"},
	}
}

func TestNormalize_ValidPayloadPassesThrough(t *testing.T) {
	sum := Normalize(validPayload(), "EU proposes parcel duty", longContent)

	if sum.TitleZH != "欧盟拟对低价值包裹征收关税" {
		t.Errorf("TitleZH = %q", sum.TitleZH)
	}
	if sum.ImpactScore != 72 {
		t.Errorf("ImpactScore = %d, want 72", sum.ImpactScore)
	}
	if sum.RiskLevel != RiskHigh {
		t.Errorf("RiskLevel = %q, want high", sum.RiskLevel)
	}
	if sum.Region != "EU" {
		t.Errorf("Region = %q, want EU", sum.Region)
	}
	if len(sum.Dimensions) != 4 {
		t.Fatalf("Dimensions has %d keys, want 4", len(sum.Dimensions))
	}
	if sum.Dimensions["ecosystem"].Impact != ImpactHigh {
		t.Errorf("ecosystem impact = %q, want high", sum.Dimensions["ecosystem"].Impact)
	}
	if len(sum.StrategicActions) != 1 || sum.StrategicActions[0].Priority != PriorityP1 {
		t.Errorf("StrategicActions = %+v", sum.StrategicActions)
	}
	if len(sum.Tags) != 3 {
		t.Errorf("Tags = %v", sum.Tags)
	}
}

func TestNormalize_OutOfEnumValuesFallBack(t *testing.T) {
	payload := validPayload()
	payload["risk_level"] = "extreme"
	payload["platform"] = "MySpace"
	payload["region"] = "Mars"

	sum := Normalize(payload, "title", longContent)

	if sum.RiskLevel != RiskMedium {
		t.Errorf("RiskLevel = %q, want medium fallback", sum.RiskLevel)
	}
	if sum.Platform != PlatformGlobal {
		t.Errorf("Platform = %q, want Global fallback", sum.Platform)
	}
	if sum.Region != RegionGlobal {
		t.Errorf("Region = %q, want Global fallback", sum.Region)
	}
}

func TestNormalize_MissingDimensionGetsNoneImpact(t *testing.T) {
	payload := validPayload()
	dims := payload["dimensions"].(map[string]interface{})
	delete(dims, "payment")

	sum := Normalize(payload, "title", longContent)

	dim, ok := sum.Dimensions["payment"]
	if !ok {
		t.Fatal("payment dimension missing after normalization")
	}
	if dim.Impact != ImpactNone {
		t.Errorf("payment impact = %q, want none", dim.Impact)
	}
}

func TestNormalize_ScoreClampedToRange(t *testing.T) {
	for _, tc := range []struct {
		raw  interface{}
		want int
	}{
		{float64(150), 100},
		{float64(-5), 0},
		{"88", 88},
		{"not a number", 25},
	} {
		payload := validPayload()
		payload["impact_score"] = tc.raw
		sum := Normalize(payload, "title", longContent)
		if sum.ImpactScore != tc.want {
			t.Errorf("impact_score %v normalized to %d, want %d", tc.raw, sum.ImpactScore, tc.want)
		}
	}
}

func TestNormalize_ShortContentCapsScoreAndMarksTLDR(t *testing.T) {
	for name, content := range map[string]string{
		"ascii blurb": "A one-line blurb.",
		// 60 characters but over 120 bytes: the threshold counts characters
		"cjk blurb": strings.Repeat("关", 60),
	} {
		sum := Normalize(validPayload(), "title", content)

		if sum.ImpactScore > 30 {
			t.Errorf("%s: ImpactScore = %d, want <= 30 for thin content", name, sum.ImpactScore)
		}
		if !strings.Contains(strings.ToLower(sum.TLDR), LowConfidenceMarker) {
			t.Errorf("%s: TLDR %q missing low-confidence marker", name, sum.TLDR)
		}
	}
}

func TestNormalize_LongCJKContentKeepsScore(t *testing.T) {
	sum := Normalize(validPayload(), "title", strings.Repeat("关税政策变动", 25))
	if sum.ImpactScore != 72 {
		t.Errorf("ImpactScore = %d, want model score kept for 150-character content", sum.ImpactScore)
	}
}

func TestNormalize_TitleAndTLDRTruncated(t *testing.T) {
	payload := validPayload()
	payload["title_zh"] = strings.Repeat("长", 60)
	payload["tldr"] = strings.Repeat("x", 300)

	sum := Normalize(payload, "title", longContent)

	if n := len([]rune(sum.TitleZH)); n != 40 {
		t.Errorf("TitleZH rune length = %d, want 40", n)
	}
	if n := len([]rune(sum.TLDR)); n != 120 {
		t.Errorf("TLDR rune length = %d, want 120", n)
	}
}

func TestNormalize_EmptyPayloadYieldsDefaultShape(t *testing.T) {
	sum := Normalize(map[string]interface{}{}, "Original title", longContent)

	if sum.TitleZH != "Original title" {
		t.Errorf("TitleZH = %q, want source title fallback", sum.TitleZH)
	}
	if sum.ImpactScore != 25 {
		t.Errorf("ImpactScore = %d, want default 25", sum.ImpactScore)
	}
	if len(sum.Dimensions) != 4 {
		t.Errorf("Dimensions has %d keys, want 4", len(sum.Dimensions))
	}
	if len(sum.StrategicActions) == 0 {
		t.Error("StrategicActions empty, want default action")
	}
	if len(sum.Tags) == 0 {
		t.Error("Tags empty, want default tag")
	}
}

func TestNormalize_ActionsDropEmptyTextAndFixEnums(t *testing.T) {
	payload := validPayload()
	payload["strategic_actions"] = []interface{}{
		map[string]interface{}{"priority": "P9", "owner": "finance", "action": "Review tariff exposure"},
		map[string]interface{}{"priority": "P0", "owner": "product", "action": "   "},
	}

	sum := Normalize(payload, "title", longContent)

	if len(sum.StrategicActions) != 1 {
		t.Fatalf("StrategicActions = %+v, want single surviving action", sum.StrategicActions)
	}
	got := sum.StrategicActions[0]
	if got.Priority != PriorityP2 || got.Owner != OwnerStrategy {
		t.Errorf("invalid enums not defaulted: %+v", got)
	}
}

func TestDefault_ShapeIsSchemaValid(t *testing.T) {
	sum := Default("model did not return valid JSON")

	if sum.TitleZH != UntranslatedTitle {
		t.Errorf("TitleZH = %q", sum.TitleZH)
	}
	if !strings.Contains(sum.TLDR, LowConfidenceMarker) {
		t.Errorf("default TLDR %q missing marker", sum.TLDR)
	}
	if len(sum.Dimensions) != 4 {
		t.Errorf("Dimensions has %d keys, want 4", len(sum.Dimensions))
	}
	for key, dim := range sum.Dimensions {
		if dim.Impact != ImpactNone {
			t.Errorf("dimension %s impact = %q, want none", key, dim.Impact)
		}
	}
}
