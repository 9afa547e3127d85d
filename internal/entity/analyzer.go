package entity

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"haca/internal/document"
	"haca/internal/models"
	"haca/internal/refindex"
	"haca/internal/registry"
	"haca/internal/utils"
)

// SelfPrefix marks the auditor's own sensors, which are never audited
const SelfPrefix = "sensor.h_a_c_a_"

// StaleAfter is how long an entity may go without an update
const StaleAfter = 7 * 24 * time.Hour

const checkpointEvery = 10

// Domains that legitimately update rarely
var staleExempt = map[string]bool{
	"sun":            true,
	"zone":           true,
	"person":         true,
	"automation":     true,
	"script":         true,
	"scene":          true,
	"input_boolean":  true,
	"input_number":   true,
	"input_select":   true,
	"input_text":     true,
	"input_datetime": true,
	"input_button":   true,
}

// HelperDomains are user-created helpers expected to be referenced
var HelperDomains = map[string]bool{
	"input_boolean":  true,
	"input_number":   true,
	"input_select":   true,
	"input_text":     true,
	"input_datetime": true,
	"input_button":   true,
	"counter":        true,
	"timer":          true,
}

// Input is everything the liveness rules look at
type Input struct {
	Docs     []*document.Document
	Snapshot *registry.Snapshot
	Index    *refindex.Index
	Now      time.Time
}

// Analyzer runs the liveness rules
type Analyzer struct {
	in     Input
	issues []models.Issue
}

// Analyze returns entity issues and never_triggered automation issues
// separately; the latter belong to the automation category.
func Analyze(ctx context.Context, in Input) (entityIssues, automationIssues []models.Issue, err error) {
	if in.Now.IsZero() {
		in.Now = time.Now()
	}
	a := &Analyzer{in: in}

	for i, st := range in.Snapshot.States() {
		if i%checkpointEvery == 0 {
			if err := ctx.Err(); err != nil {
				return a.issues, nil, err
			}
		}
		if strings.HasPrefix(st.EntityID, SelfPrefix) {
			continue
		}
		a.checkState(st)
	}
	if err := ctx.Err(); err != nil {
		return a.issues, nil, err
	}

	a.checkReferences()
	a.checkRegistry()
	a.checkDevices()
	a.checkUnusedHelpers()

	utils.Logger("ENTITY").Infof("Entity analysis complete: %d issues", len(a.issues))
	return a.issues, NeverTriggered(in.Snapshot), nil
}

func (a *Analyzer) add(i models.Issue) {
	a.issues = append(a.issues, i)
}

func friendlyName(st models.State) string {
	if name, ok := st.Attributes["friendly_name"].(string); ok && name != "" {
		return name
	}
	return st.EntityID
}

func (a *Analyzer) checkState(st models.State) {
	referenced := a.in.Index.Referenced(st.EntityID)
	usedBy := ""
	if referenced {
		usedBy = fmt.Sprintf(" and is used by %s", strings.Join(a.in.Index.Documents(st.EntityID), ", "))
	}

	switch st.State {
	case "unavailable":
		sev := models.SeverityMedium
		if referenced {
			sev = models.SeverityHigh
		}
		a.add(models.Issue{
			EntityID:       st.EntityID,
			Alias:          friendlyName(st),
			Type:           models.IssueUnavailableEntity,
			Severity:       sev,
			Message:        fmt.Sprintf("%s is unavailable%s", st.EntityID, usedBy),
			Recommendation: "Check the device or integration, or remove the entity if it is gone",
		})
	case "unknown":
		sev := models.SeverityLow
		if referenced {
			sev = models.SeverityMedium
		}
		a.add(models.Issue{
			EntityID:       st.EntityID,
			Alias:          friendlyName(st),
			Type:           models.IssueUnknownState,
			Severity:       sev,
			Message:        fmt.Sprintf("%s has an unknown state%s", st.EntityID, usedBy),
			Recommendation: "Check that the integration providing it reports a value",
		})
	}

	if staleExempt[st.Domain()] || st.LastUpdated.IsZero() {
		return
	}
	age := a.in.Now.Sub(st.LastUpdated)
	if age <= StaleAfter {
		return
	}
	sev := models.SeverityLow
	if referenced {
		sev = models.SeverityMedium
	}
	a.add(models.Issue{
		EntityID:       st.EntityID,
		Alias:          friendlyName(st),
		Type:           models.IssueStaleEntity,
		Severity:       sev,
		Message:        fmt.Sprintf("%s has not updated for %d days%s", st.EntityID, int(age.Hours()/24), usedBy),
		Recommendation: "Check whether the device still reports, or remove the entity",
	})
}

func (a *Analyzer) checkReferences() {
	known := a.in.Snapshot.KnownEntityIDs()
	for _, entityID := range a.in.Index.Entities() {
		if strings.HasPrefix(entityID, SelfPrefix) {
			continue
		}
		docs := a.in.Index.Documents(entityID)
		if !a.in.Snapshot.Exists(entityID) {
			a.add(models.Issue{
				EntityID:       entityID,
				Type:           models.IssueZombieEntity,
				Severity:       models.SeverityHigh,
				Message:        fmt.Sprintf("%s is referenced by %s but does not exist", entityID, strings.Join(docs, ", ")),
				Recommendation: "Fix the entity id or remove the reference",
				Related:        docs,
				Suggestions:    Suggest(entityID, known),
			})
			continue
		}
		if e, ok := a.in.Snapshot.Entity(entityID); ok && e.Disabled() {
			a.add(models.Issue{
				EntityID:       entityID,
				Type:           models.IssueDisabledButReferenced,
				Severity:       models.SeverityHigh,
				Message:        fmt.Sprintf("%s is disabled (%s) but referenced by %s", entityID, e.DisabledBy, strings.Join(docs, ", ")),
				Recommendation: "Enable the entity or remove the references",
				Related:        docs,
			})
		}
	}
}

func (a *Analyzer) checkRegistry() {
	for _, e := range a.in.Snapshot.Entities() {
		if e.Disabled() || e.ConfigEntryID == "" || strings.HasPrefix(e.EntityID, SelfPrefix) {
			continue
		}
		if _, ok := a.in.Snapshot.State(e.EntityID); ok {
			continue
		}
		entry, ok := a.in.Snapshot.ConfigEntry(e.ConfigEntryID)
		if ok && entry.Recoverable() {
			continue
		}
		reason := "its integration entry no longer exists"
		if ok {
			reason = fmt.Sprintf("its integration %s is in state %s", entry.Domain, entry.State)
		}
		sev := models.SeverityMedium
		if a.in.Index.Referenced(e.EntityID) {
			sev = models.SeverityHigh
		}
		a.add(models.Issue{
			EntityID:       e.EntityID,
			Type:           models.IssueGhostRegistryEntry,
			Severity:       sev,
			Message:        fmt.Sprintf("%s is registered but has no state and %s", e.EntityID, reason),
			Recommendation: "Remove the orphaned entity from Settings > Entities",
		})
	}
}

func (a *Analyzer) checkDevices() {
	for _, d := range a.in.Docs {
		seen := map[string]bool{}
		for _, deviceID := range document.CollectKey(d.Raw, "device_id") {
			if seen[deviceID] {
				continue
			}
			seen[deviceID] = true
			if _, ok := a.in.Snapshot.Device(deviceID); ok {
				continue
			}
			a.add(models.Issue{
				EntityID:       d.EntityID,
				Alias:          d.Name(),
				Type:           models.IssueBrokenDeviceReference,
				Severity:       models.SeverityHigh,
				Message:        fmt.Sprintf("%s references device %s which no longer exists", d.Name(), deviceID),
				Recommendation: "Re-select the device or switch to entity based references",
				DeviceID:       deviceID,
			})
		}
	}
}

func (a *Analyzer) checkUnusedHelpers() {
	var ids []string
	for _, st := range a.in.Snapshot.States() {
		if HelperDomains[st.Domain()] && !a.in.Index.Referenced(st.EntityID) {
			ids = append(ids, st.EntityID)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		st, _ := a.in.Snapshot.State(id)
		a.add(models.Issue{
			EntityID:       id,
			Alias:          friendlyName(st),
			Type:           models.IssueUnusedHelper,
			Severity:       models.SeverityLow,
			Message:        fmt.Sprintf("Helper %s is not used by any automation, script or scene", id),
			Recommendation: "Delete the helper if it is no longer needed",
		})
	}
}

// NeverTriggered flags automations whose last_triggered attribute is
// absent or null
func NeverTriggered(snap *registry.Snapshot) []models.Issue {
	var out []models.Issue
	for _, st := range snap.StatesWithPrefix("automation.") {
		if v, ok := st.Attributes["last_triggered"]; ok && v != nil {
			continue
		}
		out = append(out, models.Issue{
			EntityID:       st.EntityID,
			Alias:          friendlyName(st),
			Type:           models.IssueNeverTriggered,
			Severity:       models.SeverityLow,
			Message:        "Automation has never been triggered",
			Location:       "trigger",
			Recommendation: "Check that the triggers can actually fire",
		})
	}
	return out
}
