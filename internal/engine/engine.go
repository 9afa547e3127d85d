package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"haca/internal/models"
	"haca/internal/registry"
	"haca/internal/utils"
)

// ReportsDir holds reports written on demand, relative to the config root
const ReportsDir = "haca_reports"

// Publisher announces scan outcomes, e.g. over MQTT
type Publisher interface {
	PublishSummary(summary models.ScanSummary) error
	PublishNewIssues(issues []models.Issue) error
}

// Cache mirrors the latest scan into a shared store
type Cache interface {
	StoreReport(ctx context.Context, report []byte) error
	KnownSignatures(ctx context.Context) (map[string]bool, error)
	ReplaceKnownSignatures(ctx context.Context, signatures []string) error
	IndexReferences(ctx context.Context, refs map[string][]string) error
}

// HistoryStore keeps scan summaries
type HistoryStore interface {
	Append(ctx context.Context, summary models.ScanSummary) error
	Recent(ctx context.Context, limit int) ([]models.ScanSummary, error)
}

// Engine coordinates scans and keeps the last good result
type Engine struct {
	configDir string
	provider  registry.Provider
	publisher Publisher
	cache     Cache
	history   HistoryStore
	now       func() time.Time

	scanMu sync.Mutex // one scan at a time
	mu     sync.RWMutex
	last   *Result
	known  map[string]bool
}

// Option configures optional sinks of an engine
type Option func(*Engine)

func WithPublisher(p Publisher) Option { return func(e *Engine) { e.publisher = p } }
func WithCache(c Cache) Option         { return func(e *Engine) { e.cache = c } }
func WithHistory(h HistoryStore) Option {
	return func(e *Engine) { e.history = h }
}

// NewEngine creates a new engine instance
func NewEngine(configDir string, provider registry.Provider, opts ...Option) *Engine {
	e := &Engine{
		configDir: configDir,
		provider:  provider,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ConfigDir is the configuration root being audited
func (e *Engine) ConfigDir() string {
	return e.configDir
}

// Provider is the registry source scans use
func (e *Engine) Provider() registry.Provider {
	return e.provider
}

// Last returns the last good scan, or nil before the first one
func (e *Engine) Last() *Result {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last
}

// Run performs a full scan. On failure the previous result is kept.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	e.scanMu.Lock()
	defer e.scanMu.Unlock()
	log := utils.Logger("SCANNER")

	log.Infof("Starting scan of %s", e.configDir)
	res, err := Scan(ctx, e.configDir, e.provider, e.now())
	if err != nil {
		log.Errorf("Scan failed, keeping previous result: %v", err)
		return nil, err
	}

	e.mu.Lock()
	e.last = res
	e.mu.Unlock()
	log.Infof("Scan complete: score %d, %d issues in %s", res.Score, res.Total, res.Duration)

	e.afterScan(ctx, res)
	return res, nil
}

// afterScan feeds the optional sinks. Their failures never fail a scan.
func (e *Engine) afterScan(ctx context.Context, res *Result) {
	log := utils.Logger("SCANNER")
	summary := res.Summary()

	fresh := e.newIssues(ctx, res)
	if e.publisher != nil {
		if err := e.publisher.PublishSummary(summary); err != nil {
			log.Warnf("Publishing summary failed: %v", err)
		}
		if len(fresh) > 0 {
			if err := e.publisher.PublishNewIssues(fresh); err != nil {
				log.Warnf("Publishing new issues failed: %v", err)
			}
		}
	}

	if e.history != nil {
		if err := e.history.Append(ctx, summary); err != nil {
			log.Warnf("Recording history failed: %v", err)
		}
	}

	if e.cache != nil {
		if report, err := json.Marshal(Report(res)); err == nil {
			if err := e.cache.StoreReport(ctx, report); err != nil {
				log.Warnf("Caching report failed: %v", err)
			}
		}
		refs := make(map[string][]string, res.References.Len())
		for _, id := range res.References.Entities() {
			refs[id] = res.References.Documents(id)
		}
		if err := e.cache.IndexReferences(ctx, refs); err != nil {
			log.Warnf("Mirroring references failed: %v", err)
		}
	}
}

// newIssues returns issues whose signature was not seen by the previous
// scan, then replaces the known set. The first scan reports nothing new.
func (e *Engine) newIssues(ctx context.Context, res *Result) []models.Issue {
	log := utils.Logger("SCANNER")

	known := e.known
	if e.cache != nil {
		if cached, err := e.cache.KnownSignatures(ctx); err != nil {
			log.Warnf("Reading known issues failed: %v", err)
		} else if len(cached) > 0 {
			known = cached
		}
	}
	first := known == nil

	var fresh []models.Issue
	signatures := make([]string, 0, res.Total)
	current := make(map[string]bool, res.Total)
	for _, i := range res.All() {
		sig := i.Signature()
		if current[sig] {
			continue
		}
		current[sig] = true
		signatures = append(signatures, sig)
		if !first && !known[sig] {
			fresh = append(fresh, i)
		}
	}

	e.known = current
	if e.cache != nil {
		if err := e.cache.ReplaceKnownSignatures(ctx, signatures); err != nil {
			log.Warnf("Storing known issues failed: %v", err)
		}
	}
	if len(fresh) > 0 {
		log.Infof("%d new issues since the previous scan", len(fresh))
	}
	return fresh
}

// ReportDocument is the JSON form of a scan
type ReportDocument struct {
	Timestamp   string                             `json:"timestamp"`
	HealthScore int                                `json:"health_score"`
	TotalIssues int                                `json:"total_issues"`
	DurationMS  int64                              `json:"duration_ms"`
	Counts      map[models.Category]int            `json:"counts"`
	Issues      map[models.Category][]models.Issue `json:"issues"`
}

// Report converts a result into its JSON document
func Report(r *Result) ReportDocument {
	return ReportDocument{
		Timestamp:   r.Timestamp.Format(time.RFC3339),
		HealthScore: r.Score,
		TotalIssues: r.Total,
		DurationMS:  r.Duration.Milliseconds(),
		Counts:      r.Counts(),
		Issues:      r.Issues,
	}
}

// WriteReport stores the last result under haca_reports and returns the
// file path
func (e *Engine) WriteReport() (string, error) {
	res := e.Last()
	if res == nil {
		return "", ErrNoScan
	}
	data, err := json.MarshalIndent(Report(res), "", "  ")
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("haca_report_%s.json", res.Timestamp.Format("20060102_150405"))
	path := filepath.Join(e.configDir, ReportsDir, name)
	if err := utils.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	utils.Logger("SCANNER").Infof("Report written to %s", path)
	return path, nil
}

// History returns recent scan summaries, newest first
func (e *Engine) History(ctx context.Context, limit int) ([]models.ScanSummary, error) {
	if e.history == nil {
		return []models.ScanSummary{}, nil
	}
	return e.history.Recent(ctx, limit)
}
