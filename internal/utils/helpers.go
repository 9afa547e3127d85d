package utils

import "strings"

// EntitySlug derives the object id Home Assistant gives an automation
// from its alias
func EntitySlug(alias string) string {
	return strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(alias))
}

// IDSlug is the alias form accepted by automation lookups
func IDSlug(alias string) string {
	return strings.NewReplacer(" ", "_", ".", "_").Replace(strings.ToLower(alias))
}

// SceneSlug derives a scene object id from its name
func SceneSlug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// Unique drops duplicates keeping first occurrences
func Unique(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// Truncate shortens s to at most n bytes
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
