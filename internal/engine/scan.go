package engine

import (
	"context"
	"fmt"
	"time"

	"haca/internal/automation"
	"haca/internal/document"
	"haca/internal/entity"
	"haca/internal/models"
	"haca/internal/performance"
	"haca/internal/refindex"
	"haca/internal/registry"
	"haca/internal/score"
	"haca/internal/security"
)

// Result is one complete scan. It is never modified after Scan returns.
type Result struct {
	Timestamp time.Time                           `json:"timestamp"`
	Duration  time.Duration                       `json:"-"`
	Score     int                                 `json:"health_score"`
	Total     int                                 `json:"total_issues"`
	Issues    map[models.Category][]models.Issue `json:"issues"`
	// References is the entity to documents index the scan was built on
	References *refindex.Index `json:"-"`
}

// Counts returns the number of issues per category
func (r *Result) Counts() map[models.Category]int {
	counts := make(map[models.Category]int, len(models.Categories))
	for _, c := range models.Categories {
		counts[c] = len(r.Issues[c])
	}
	return counts
}

// All returns every issue in category order
func (r *Result) All() []models.Issue {
	out := make([]models.Issue, 0, r.Total)
	for _, c := range models.Categories {
		out = append(out, r.Issues[c]...)
	}
	return out
}

// Summary is the compact form kept in history and published
func (r *Result) Summary() models.ScanSummary {
	return models.ScanSummary{
		Timestamp:  r.Timestamp,
		Score:      r.Score,
		TotalCount: r.Total,
		Counts:     r.Counts(),
		DurationMS: r.Duration.Milliseconds(),
	}
}

// Scan loads the documents under configDir, takes a registry snapshot
// and runs every rule family. provider may be nil for an offline scan.
func Scan(ctx context.Context, configDir string, provider registry.Provider, now time.Time) (*Result, error) {
	started := time.Now()
	if now.IsZero() {
		now = started
	}

	// Without a registry, automations are named from their alias alone
	snap := registry.NewSnapshot(nil, nil, nil, nil)
	var lookup document.EntityLookup
	if provider != nil {
		var err error
		if snap, err = registry.Fetch(ctx, provider); err != nil {
			return nil, fmt.Errorf("registry snapshot: %w", err)
		}
		lookup = snap
	}

	set, err := document.Load(configDir, lookup)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	docs := set.All()
	index := refindex.Build(docs)

	structural, err := automation.Analyze(ctx, set)
	if err != nil {
		return nil, err
	}
	entityIssues, neverTriggered, err := entity.Analyze(ctx, entity.Input{Docs: docs, Snapshot: snap, Index: index, Now: now})
	if err != nil {
		return nil, err
	}
	perf, err := performance.Analyze(ctx, set, snap, now)
	if err != nil {
		return nil, err
	}
	sec, err := security.Analyze(ctx, set)
	if err != nil {
		return nil, err
	}

	issues := make(map[models.Category][]models.Issue, len(models.Categories))
	for _, c := range models.Categories {
		issues[c] = []models.Issue{}
	}
	for _, i := range structural {
		c := models.CategoryForEntity(i.EntityID)
		issues[c] = append(issues[c], i)
	}
	issues[models.CategoryAutomation] = append(issues[models.CategoryAutomation], neverTriggered...)
	issues[models.CategoryEntity] = append(issues[models.CategoryEntity], entityIssues...)
	issues[models.CategoryPerformance] = append(issues[models.CategoryPerformance], perf...)
	issues[models.CategorySecurity] = append(issues[models.CategorySecurity], sec...)

	total := 0
	for _, list := range issues {
		total += len(list)
	}
	return &Result{
		Timestamp:  now,
		Duration:   time.Since(started),
		Score:      score.FromCategories(issues),
		Total:      total,
		Issues:     issues,
		References: index,
	}, nil
}
