package document

import (
	"fmt"
	"sort"
	"strings"
)

// Value walks nested mappings along path
func Value(m map[string]any, path ...string) (any, bool) {
	var cur any = m
	for _, key := range path {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = mm[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns the string at path, or "" when absent or not a string
func String(m map[string]any, path ...string) string {
	v, ok := Value(m, path...)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Text renders a scalar at path as text. Numbers and booleans are
// formatted, mappings and sequences yield "".
func Text(m map[string]any, path ...string) string {
	v, ok := Value(m, path...)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// Map returns the mapping at path, or nil
func Map(m map[string]any, path ...string) map[string]any {
	v, ok := Value(m, path...)
	if !ok {
		return nil
	}
	mm, _ := v.(map[string]any)
	return mm
}

// Has reports whether path exists with a non-nil value
func Has(m map[string]any, path ...string) bool {
	v, ok := Value(m, path...)
	return ok && v != nil
}

// StringList accepts a scalar string, a comma separated string or a list
// of strings and returns the individual values
func StringList(v any) []string {
	var out []string
	switch t := v.(type) {
	case string:
		for _, part := range strings.Split(t, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, t...)
	}
	return out
}

// CollectKey recursively gathers the string values stored under key
// anywhere inside v
func CollectKey(v any, key string) []string {
	var out []string
	var walk func(any)
	walk = func(n any) {
		switch t := n.(type) {
		case map[string]any:
			for _, k := range SortedKeys(t) {
				if k == key {
					out = append(out, StringList(t[k])...)
					continue
				}
				walk(t[k])
			}
		case []any:
			for _, child := range t {
				walk(child)
			}
		}
	}
	walk(v)
	return out
}

// Templates returns every string inside v that contains template markup
func Templates(v any) []string {
	var out []string
	var walk func(any)
	walk = func(n any) {
		switch t := n.(type) {
		case string:
			if IsTemplate(t) {
				out = append(out, t)
			}
		case map[string]any:
			for _, k := range SortedKeys(t) {
				walk(t[k])
			}
		case []any:
			for _, child := range t {
				walk(child)
			}
		}
	}
	walk(v)
	return out
}

// SortedKeys returns the keys of m in lexical order
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsTemplate reports whether s contains template markup
func IsTemplate(s string) bool {
	return strings.Contains(s, "{{") || strings.Contains(s, "{%")
}

// IsEntityID reports whether s has the shape domain.object_id
func IsEntityID(s string) bool {
	i := strings.IndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return false
	}
	return !strings.ContainsAny(s, " \t\n/:")
}
