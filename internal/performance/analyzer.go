package performance

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"haca/internal/document"
	"haca/internal/entity"
	"haca/internal/models"
	"haca/internal/registry"
	"haca/internal/utils"
)

const (
	maxActions        = 10
	maxParallel       = 5
	defaultMax        = 10
	veryHighFrequency = 36 * time.Second
	highFrequency     = 72 * time.Second
	checkpointEvery   = 10
)

var (
	statesSelectattr = regexp.MustCompile(`\bstates\s*\|\s*selectattr`)
	domainFilter     = regexp.MustCompile(`domain\s*[=!]=\s*['"]`)
	statesAll        = regexp.MustCompile(`\bstates\s*\|\s*list\b|states\(\s*['"]all['"]\s*\)`)
)

// Measured sensors that need a state_class for long term statistics
var measuredKeywords = []string{"power", "energy", "voltage", "current"}

// Analyze runs the performance rules over automations, scripts and the
// state snapshot. The snapshot may be nil.
func Analyze(ctx context.Context, set *document.Set, snap *registry.Snapshot, now time.Time) ([]models.Issue, error) {
	if now.IsZero() {
		now = time.Now()
	}
	issues := []models.Issue{}
	for i, d := range set.All() {
		if i%checkpointEvery == 0 {
			if err := ctx.Err(); err != nil {
				return issues, err
			}
		}
		switch d.Kind {
		case document.KindAutomation:
			issues = append(issues, AnalyzeAutomation(d)...)
		case document.KindScript:
			issues = append(issues, expensiveTemplates(d)...)
		}
	}
	if snap != nil {
		issues = append(issues, TriggerFrequency(snap, now)...)
		issues = append(issues, MissingStateClass(snap)...)
	}
	utils.Logger("PERFORMANCE").Infof("Performance analysis complete: %d issues", len(issues))
	return issues, nil
}

func issue(d *document.Document, t models.IssueType, sev models.Severity, location, message, recommendation string) models.Issue {
	return models.Issue{
		EntityID:       d.EntityID,
		Alias:          d.Name(),
		Type:           t,
		Severity:       sev,
		Message:        message,
		Location:       location,
		Recommendation: recommendation,
	}
}

// AnalyzeAutomation applies the per document performance rules
func AnalyzeAutomation(d *document.Document) []models.Issue {
	var out []models.Issue

	if n := len(document.Section(d.Raw, document.Actions)); n > maxActions {
		out = append(out, issue(d, models.IssueHighComplexityActions, models.SeverityMedium, "root",
			fmt.Sprintf("Automation has %d actions", n),
			"Split the actions into scripts to keep the automation readable and cheaper to trace"))
	}

	if document.String(d.Raw, "mode") == "parallel" {
		limit, numeric := defaultMax, true
		if raw := strings.TrimSpace(document.Text(d.Raw, "max")); raw != "" {
			var err error
			// a templated max cannot be judged statically
			limit, err = strconv.Atoi(raw)
			numeric = err == nil
		}
		if numeric && limit > maxParallel {
			out = append(out, issue(d, models.IssueHighParallelMax, models.SeverityMedium, "mode",
				fmt.Sprintf("Parallel mode allows %d concurrent runs", limit),
				fmt.Sprintf("Lower max to %d or less, or use queued mode", maxParallel)))
		}
	}

	if loop := selfLoop(d); len(loop) > 0 {
		i := issue(d, models.IssuePotentialSelfLoop, models.SeverityMedium, "logic",
			fmt.Sprintf("Automation changes entities it is triggered by: %s", strings.Join(loop, ", ")),
			"Add a condition or use a different trigger so the actions cannot retrigger the automation")
		i.Related = loop
		out = append(out, i)
	}

	return append(out, expensiveTemplates(d)...)
}

func selfLoop(d *document.Document) []string {
	triggers := map[string]bool{}
	for _, it := range d.Items(document.Triggers) {
		for _, id := range document.StringList(it.Item["entity_id"]) {
			triggers[id] = true
		}
	}
	if len(triggers) == 0 {
		return nil
	}
	var loop []string
	for _, it := range d.Items(document.Actions) {
		for _, id := range document.EntityRefs(it.Item) {
			if triggers[id] {
				loop = append(loop, id)
			}
		}
	}
	return utils.Unique(loop)
}

func expensiveTemplates(d *document.Document) []models.Issue {
	var out []models.Issue
	var selectattr, all bool
	for _, tpl := range document.Templates(d.Raw) {
		if !selectattr && statesSelectattr.MatchString(tpl) && !domainFilter.MatchString(tpl) {
			selectattr = true
			out = append(out, issue(d, models.IssueExpensiveSelectattr, models.SeverityHigh, "template",
				"Template filters every state with selectattr",
				"Iterate a single domain (states.light | selectattr ...) or filter on domain first"))
		}
		if !all && statesAll.MatchString(tpl) {
			all = true
			out = append(out, issue(d, models.IssueExpensiveStatesAll, models.SeverityHigh, "template",
				"Template lists every state of the instance",
				"Restrict the template to the entities or domain it needs"))
		}
	}
	return out
}

// TriggerFrequency flags automations whose last trigger was very recent,
// which hints at a trigger firing in a tight loop
func TriggerFrequency(snap *registry.Snapshot, now time.Time) []models.Issue {
	var out []models.Issue
	for _, st := range snap.StatesWithPrefix("automation.") {
		raw, _ := st.Attributes["last_triggered"].(string)
		if raw == "" {
			continue
		}
		last, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			utils.Logger("PERFORMANCE").Debugf("Unparseable last_triggered %q on %s", raw, st.EntityID)
			continue
		}
		since := now.Sub(last)
		if since < 0 {
			continue
		}
		var (
			t   models.IssueType
			sev models.Severity
		)
		switch {
		case since < veryHighFrequency:
			t, sev = models.IssueVeryHighTriggerFrequency, models.SeverityHigh
		case since < highFrequency:
			t, sev = models.IssueHighTriggerFrequency, models.SeverityMedium
		default:
			continue
		}
		out = append(out, models.Issue{
			EntityID:       st.EntityID,
			Type:           t,
			Severity:       sev,
			Message:        fmt.Sprintf("Automation last triggered %ds ago", int(since.Seconds())),
			Location:       "trigger",
			Recommendation: "Check for a flapping trigger or add a for: duration",
		})
	}
	return out
}

// MissingStateClass flags measurement sensors without a state_class
func MissingStateClass(snap *registry.Snapshot) []models.Issue {
	var out []models.Issue
	for _, st := range snap.StatesWithPrefix("sensor.") {
		if strings.HasPrefix(st.EntityID, entity.SelfPrefix) {
			continue
		}
		if _, ok := st.Attributes["state_class"]; ok {
			continue
		}
		lower := strings.ToLower(st.EntityID)
		for _, kw := range measuredKeywords {
			if strings.Contains(lower, kw) {
				out = append(out, models.Issue{
					EntityID:       st.EntityID,
					Type:           models.IssueMissingStateClass,
					Severity:       models.SeverityLow,
					Message:        fmt.Sprintf("%s looks like a %s sensor but has no state_class", st.EntityID, kw),
					Location:       "attributes",
					Recommendation: "Set state_class: measurement (or total_increasing) so statistics are recorded",
				})
				break
			}
		}
	}
	return out
}
