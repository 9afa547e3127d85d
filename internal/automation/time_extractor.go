package automation

import (
	"fmt"
	"regexp"
	"strconv"
)

// TimeCheck is an hour comparison found in a template
type TimeCheck struct {
	Hour     int
	Operator string
}

var hourComparison = regexp.MustCompile(`now\(\)\.hour\s*(==|>=|<=|>|<)\s*(\d{1,2})`)

// ExtractTimeChecks finds now().hour comparisons in a template
func ExtractTimeChecks(expr string) []TimeCheck {
	var checks []TimeCheck
	for _, m := range hourComparison.FindAllStringSubmatch(expr, -1) {
		hour, err := strconv.Atoi(m[2])
		if err != nil || hour < 0 || hour > 23 {
			continue
		}
		checks = append(checks, TimeCheck{Hour: hour, Operator: m[1]})
	}
	return checks
}

// NativeTimeCondition describes the time condition equivalent to the
// checks, or "" when they do not map onto after/before bounds
func NativeTimeCondition(checks []TimeCheck) string {
	var after, before string
	for _, c := range checks {
		switch c.Operator {
		case ">=":
			after = fmt.Sprintf("%02d:00:00", c.Hour)
		case ">":
			after = fmt.Sprintf("%02d:00:00", (c.Hour+1)%24)
		case "<":
			before = fmt.Sprintf("%02d:00:00", c.Hour)
		case "<=":
			before = fmt.Sprintf("%02d:00:00", (c.Hour+1)%24)
		case "==":
			after = fmt.Sprintf("%02d:00:00", c.Hour)
			before = fmt.Sprintf("%02d:00:00", (c.Hour+1)%24)
		}
	}
	switch {
	case after != "" && before != "":
		return fmt.Sprintf("condition: time, after: %q, before: %q", after, before)
	case after != "":
		return fmt.Sprintf("condition: time, after: %q", after)
	case before != "":
		return fmt.Sprintf("condition: time, before: %q", before)
	}
	return ""
}
