package oracle

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/amishk599/jobwatch/internal/model"
)

// DefaultAffirmativeTokens are the line-1 prefixes that mean "retain".
var DefaultAffirmativeTokens = []string{"OUI", "YES"}

var objectSpan = regexp.MustCompile(`(?s)\{.*\}`)

// ParseVerdict interprets a raw oracle answer. Line 1 is the verdict token,
// matched case-insensitively as a prefix against tokens. The remaining lines
// are decoded as a JSON object when possible; a should_save field in that
// object overrides line 1.
func ParseVerdict(raw string, tokens []string) model.Verdict {
	text := strings.TrimSpace(raw)

	var first, rest string
	if text != "" {
		lines := strings.Split(text, "\n")
		first = strings.TrimSpace(lines[0])
		rest = strings.TrimSpace(strings.Join(lines[1:], "\n"))
	}

	v := model.Verdict{
		Retain: hasAffirmativePrefix(first, tokens),
		Analysis: model.Analysis{
			RawOutput: text,
			FirstLine: first,
			Parsed:    parsePayload(rest),
		},
	}

	if ss, ok := v.Analysis.Parsed["should_save"]; ok {
		v.Retain = truthy(ss)
	}
	return v
}

func hasAffirmativePrefix(line string, tokens []string) bool {
	upper := strings.ToUpper(line)
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if strings.HasPrefix(upper, strings.ToUpper(tok)) {
			return true
		}
	}
	return false
}

// parsePayload decodes rest as a JSON object, falling back to the widest
// {...} span. Returns nil when nothing decodes.
func parsePayload(rest string) map[string]any {
	if rest == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(rest), &m); err == nil {
		return m
	}
	span := objectSpan.FindString(rest)
	if span == "" {
		return nil
	}
	m = nil
	if err := json.Unmarshal([]byte(span), &m); err != nil {
		return nil
	}
	return m
}

// truthy converts a decoded JSON value to a boolean: false, 0, "", empty
// arrays and objects, and null are false.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}
