package automation

import (
	"regexp"
	"strings"
)

var (
	numericComparison = regexp.MustCompile(`(float|int)\s*[><]=?`)
	simpleIsState     = regexp.MustCompile(`is_state\s*\(\s*['"]([^'"]+)['"]\s*,\s*['"]([^'"]+)['"]\s*\)`)
)

// Functions and context references that make a template more than a plain
// state check
var auxiliaryTemplateTokens = []string{
	"is_state_attr(",
	"states(",
	"state_attr(",
	"expand(",
	"namespace(",
	"trigger.",
	"this.",
}

// IsSimpleStateTemplate reports whether expr is a single is_state check
// that a native state condition can replace. Connectives, auxiliary
// functions and filters rule it out.
func IsSimpleStateTemplate(expr string) bool {
	if !strings.Contains(expr, "is_state(") {
		return false
	}
	lower := strings.ToLower(expr)
	for _, op := range []string{" and ", " or ", " not "} {
		if strings.Contains(lower, op) {
			return false
		}
	}
	for _, tok := range auxiliaryTemplateTokens {
		if strings.Contains(expr, tok) {
			return false
		}
	}
	return !strings.Contains(expr, " | ")
}

// ParseSimpleState extracts entity and expected state from a simple
// is_state template
func ParseSimpleState(expr string) (entityID, state string, ok bool) {
	m := simpleIsState.FindStringSubmatch(expr)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// HasNumericComparison reports a float/int comparison in a template
func HasNumericComparison(expr string) bool {
	return numericComparison.MatchString(expr)
}

// HasTimeCheck reports an hour or minute comparison on now()
func HasTimeCheck(expr string) bool {
	return strings.Contains(expr, "now().hour") || strings.Contains(expr, "now().minute")
}
