package score

import (
	"math"

	"haca/internal/models"
)

// decay is the per weight point multiplier of the health curve
const decay = 0.99

// Weight of one issue of the given severity
func Weight(s models.Severity) int {
	switch s {
	case models.SeverityHigh:
		return 5
	case models.SeverityMedium:
		return 3
	case models.SeverityLow:
		return 1
	}
	return 0
}

// Secondary reports whether a category counts at half weight
func Secondary(c models.Category) bool {
	return c == models.CategoryPerformance || c == models.CategorySecurity
}

// TotalWeight sums primary issues at full weight and secondary issues at
// half weight, floor divided per issue
func TotalWeight(primary, secondary []models.Issue) int {
	total := 0
	for _, i := range primary {
		total += Weight(i.Severity)
	}
	for _, i := range secondary {
		total += Weight(i.Severity) / 2
	}
	return total
}

// Calculate returns 100 * 0.99^weight cut to an integer, never below 0
func Calculate(primary, secondary []models.Issue) int {
	return FromWeight(TotalWeight(primary, secondary))
}

// FromWeight maps a total weight onto the 0..100 scale. The fraction is
// truncated: 20 low issues score 81, 100 low issues score 36.
func FromWeight(weight int) int {
	s := int(math.Floor(100 * math.Pow(decay, float64(weight))))
	if s < 0 {
		return 0
	}
	return s
}

// FromCategories scores issues grouped by category
func FromCategories(byCategory map[models.Category][]models.Issue) int {
	var primary, secondary []models.Issue
	for c, issues := range byCategory {
		if Secondary(c) {
			secondary = append(secondary, issues...)
		} else {
			primary = append(primary, issues...)
		}
	}
	return Calculate(primary, secondary)
}
