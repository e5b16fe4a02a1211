package news

import (
	"html"
	"regexp"
	"strings"
)

// Scoring weights for ranking body-text candidates. Kept as named constants
// so the heuristic is tunable and testable in isolation.
const (
	lengthCap        = 4000
	lengthWeight     = 14.0 // capped length contributes len/lengthWeight
	paragraphWeight  = 18.0
	promoPenalty     = 45.0
	ellipsisPenalty  = 20.0
	navNoisePenalty  = 60.0
	minParagraphLen  = 20
	titleEchoSlack   = 20 // extra chars beyond the title that still count as an echo
	stubTrailWords   = 8  // trailing words beyond the title that still count as a stub
	strictMinLen     = 90
	strictMaxDots    = 2
	looseMinLen      = 140
	looseMaxDots     = 3
	feedFragmentMin  = 30
)

var boilerplatePhrases = []string{
	"privacy policy",
	"terms of service",
	"cookie policy",
	"sign in",
	"log in",
	"subscribe",
	"newsletter",
	"menu",
	"all rights reserved",
	"follow us",
	"contact us",
	"advertis",
}

var languageTokens = []string{
	"english", "español", "français", "deutsch", "italiano", "português",
	"русский", "中文", "日本語", "한국어", "العربية", "nederlands", "polski",
}

var promoPhrases = []string{
	"sponsored",
	"promo code",
	"discount code",
	"subscribe now",
	"sign up today",
	"limited time offer",
	"free trial",
	"% off",
	"buy now",
	"click here",
	"special offer",
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var reTags = regexp.MustCompile(`<[^>]*>`)

// StripHTML turns a feed summary/description into plain text. Feed payloads
// routinely carry markup even inside CDATA.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	return normalizeSpace(html.UnescapeString(reTags.ReplaceAllString(s, " ")))
}

// IsTitleEcho reports whether text is effectively just the headline: equal to
// the title, or a prefix extension of it by at most titleEchoSlack characters
// ("X - Source" style stubs).
func IsTitleEcho(title, text string) bool {
	t := strings.ToLower(normalizeSpace(title))
	c := strings.ToLower(normalizeSpace(text))
	if t == "" || c == "" {
		return c == "" && t == ""
	}
	if !strings.HasPrefix(c, t) {
		return false
	}
	// slack is measured in characters, not bytes
	return len([]rune(c))-len([]rune(t)) <= titleEchoSlack
}

// isStub matches the "title plus a short trailing fragment" pattern: the
// candidate repeats the title and trails off within a few words.
func isStub(title, text string) bool {
	t := strings.ToLower(normalizeSpace(title))
	c := strings.ToLower(normalizeSpace(text))
	if t == "" || !strings.HasPrefix(c, t) {
		return false
	}
	trail := strings.Fields(c[len(t):])
	return len(trail) <= stubTrailWords
}

// IsNavigationNoise detects site chrome: a candidate matching three or more
// boilerplate phrases, or three or more language names (multi-language menus).
func IsNavigationNoise(text string) bool {
	lower := strings.ToLower(text)

	hits := 0
	for _, phrase := range boilerplatePhrases {
		if strings.Contains(lower, phrase) {
			hits++
			if hits >= 3 {
				return true
			}
		}
	}

	langs := 0
	for _, token := range languageTokens {
		if strings.Contains(lower, token) {
			langs++
			if langs >= 3 {
				return true
			}
		}
	}

	return false
}

func countEllipses(text string) int {
	return strings.Count(text, "...") + strings.Count(text, "…")
}

func countParagraphs(text string) int {
	count := 0
	for _, seg := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	}) {
		if len(strings.TrimSpace(seg)) >= minParagraphLen {
			count++
		}
	}
	return count
}

func countPromoHits(lower string) int {
	hits := 0
	for _, phrase := range promoPhrases {
		hits += strings.Count(lower, phrase)
	}
	return hits
}

// Score ranks a candidate by body-likeness. Longer prose with many full
// sentences scores high; promo copy, truncation ellipses and navigation
// chrome push the score down.
func Score(text string) float64 {
	length := len(text)
	if length > lengthCap {
		length = lengthCap
	}

	score := float64(length)/lengthWeight + paragraphWeight*float64(countParagraphs(text))

	lower := strings.ToLower(text)
	score -= promoPenalty * float64(countPromoHits(lower))
	score -= ellipsisPenalty * float64(countEllipses(text))
	if IsNavigationNoise(text) {
		score -= navNoisePenalty
	}

	return score
}

// PickContent selects the single best body text for an entry from the page
// extraction candidates and the feed's own summary/description fields.
// Returns "" when nothing usable survives.
func PickContent(title string, page []Candidate, feedSummary, feedDescription string) string {
	all := make([]Candidate, 0, len(page)+2)
	all = append(all, page...)
	if s := strings.TrimSpace(feedSummary); s != "" {
		all = append(all, Candidate{Text: s, Origin: OriginFeedSummary})
	}
	if d := strings.TrimSpace(feedDescription); d != "" {
		all = append(all, Candidate{Text: d, Origin: OriginFeedDesc})
	}

	// Echoes and stubs are rejected outright before any ranking.
	usable := all[:0:0]
	for _, c := range all {
		text := strings.TrimSpace(c.Text)
		if text == "" || IsTitleEcho(title, text) || isStub(title, text) {
			continue
		}
		c.Text = text
		usable = append(usable, c)
	}

	// Strict bar: a full-page extraction that reads like real body text.
	for _, c := range usable {
		if !c.Origin.FromPage() {
			continue
		}
		if len(c.Text) >= strictMinLen && countEllipses(c.Text) <= strictMaxDots && !IsNavigationNoise(c.Text) {
			return c.Text
		}
	}

	// Loose bar: any candidate long enough to stand on its own.
	for _, c := range usable {
		if len(c.Text) >= looseMinLen && countEllipses(c.Text) <= looseMaxDots {
			return c.Text
		}
	}

	// Bleed through to the highest-scoring leftover.
	best := ""
	bestScore := 0.0
	for _, c := range usable {
		if s := Score(c.Text); best == "" || s > bestScore {
			best = c.Text
			bestScore = s
		}
	}
	if best != "" {
		return best
	}

	// Last resort: stitch together the feed's own minimally-usable fragments.
	var fragments []string
	for _, raw := range []string{feedSummary, feedDescription} {
		text := strings.TrimSpace(raw)
		if len(text) >= feedFragmentMin && !IsTitleEcho(title, text) {
			fragments = append(fragments, text)
		}
	}
	return strings.Join(fragments, "\n\n")
}
