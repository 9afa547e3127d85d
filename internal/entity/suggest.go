package entity

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	suggestionCount  = 3
	suggestionCutoff = 0.6
)

// Suggest returns up to three known entity ids that look like id, best
// match first. Suggestions are advisory and never applied automatically.
func Suggest(id string, known []string) []string {
	type scored struct {
		id    string
		ratio float64
	}
	target := strings.Split(id, "")
	m := difflib.NewMatcher(nil, target)

	var matches []scored
	for _, candidate := range known {
		if candidate == id {
			continue
		}
		m.SetSeq1(strings.Split(candidate, ""))
		if m.RealQuickRatio() < suggestionCutoff || m.QuickRatio() < suggestionCutoff {
			continue
		}
		if r := m.Ratio(); r >= suggestionCutoff {
			matches = append(matches, scored{id: candidate, ratio: r})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].ratio != matches[j].ratio {
			return matches[i].ratio > matches[j].ratio
		}
		return matches[i].id < matches[j].id
	})

	out := []string{}
	for i := 0; i < len(matches) && i < suggestionCount; i++ {
		out = append(out, matches[i].id)
	}
	return out
}
