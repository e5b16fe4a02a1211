package llm

import (
	"encoding/json"
	"strings"
)

// NoUsableText is the sentinel substituted when a response carries no text
// in any known field. Callers short-circuit to their default payload on it.
const NoUsableText = "no usable text"

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ExtractText pulls a single text string out of a response, trying the
// provider-specific fields in priority order: content (string or block
// list), reasoning text, plain text, then raw fallbacks.
func ExtractText(resp *Response) string {
	if resp == nil || len(resp.Choices) == 0 {
		return NoUsableText
	}
	msg := resp.Choices[0].Message

	if text := contentText(msg.Content); text != "" {
		return text
	}
	for _, fallback := range []string{msg.ReasoningContent, msg.Text, msg.RawText, msg.GeneratedText} {
		if text := strings.TrimSpace(fallback); text != "" {
			return text
		}
	}
	return NoUsableText
}

func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return strings.TrimSpace(plain)
	}

	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var parts []string
		for _, b := range blocks {
			if t := strings.TrimSpace(b.Text); t != "" {
				parts = append(parts, t)
			}
		}
		return strings.Join(parts, "\n")
	}

	return ""
}

// StripCodeFence removes an optional markdown code-fence wrapper, with or
// without a json language tag.
func StripCodeFence(text string) string {
	stripped := strings.TrimSpace(text)
	if !strings.HasPrefix(stripped, "```") {
		return stripped
	}

	stripped = strings.Trim(stripped, "`")
	if len(stripped) >= 4 && strings.EqualFold(stripped[:4], "json") {
		stripped = stripped[4:]
	}
	return strings.TrimSpace(stripped)
}

// ExtractJSONObject scans raw text for the first balanced brace-delimited
// object, skipping braces inside string literals. Returns "" when no
// complete object exists.
func ExtractJSONObject(raw string) string {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return raw[start : i+1]
				}
			}
		}
	}
	return ""
}
