package automation

import (
	"context"
	"fmt"
	"strings"

	"haca/internal/document"
	"haca/internal/models"
	"haca/internal/utils"
)

// checkpointEvery is how many documents are processed between
// cancellation checks
const checkpointEvery = 10

var deprecatedServices = map[string]bool{
	"homeassistant.turn_on":  true,
	"homeassistant.turn_off": true,
	"homeassistant.toggle":   true,
}

// Analyze runs the structural rules over every document of the set.
// Issue order follows document order, then rule order.
func Analyze(ctx context.Context, set *document.Set) ([]models.Issue, error) {
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
			issues = append(issues, AnalyzeScript(d)...)
		case document.KindScene:
			issues = append(issues, AnalyzeScene(d)...)
		}
	}
	utils.Logger("AUTOMATION").Infof("Structural analysis complete: %d issues in %d documents", len(issues), len(set.All()))
	return issues, nil
}

type builder struct {
	doc    *document.Document
	issues []models.Issue
}

func (b *builder) add(t models.IssueType, sev models.Severity, location, message, recommendation string, fix bool) *models.Issue {
	b.issues = append(b.issues, models.Issue{
		EntityID:       b.doc.EntityID,
		Alias:          b.doc.Name(),
		Type:           t,
		Severity:       sev,
		Message:        message,
		Location:       location,
		Recommendation: recommendation,
		FixAvailable:   fix,
	})
	return &b.issues[len(b.issues)-1]
}

// AnalyzeAutomation applies the automation rules to one document
func AnalyzeAutomation(d *document.Document) []models.Issue {
	b := &builder{doc: d}

	if d.Alias == "" {
		b.add(models.IssueNoAlias, models.SeverityMedium, "root",
			"Automation has no alias",
			"Give the automation an alias so it can be identified in logs and traces", false)
	}
	if document.String(d.Raw, "description") == "" {
		b.add(models.IssueNoDescription, models.SeverityLow, "root",
			"Automation has no description",
			"Describe what the automation does and why", true)
	}

	for _, it := range d.Items(document.Triggers) {
		checkTrigger(b, it)
	}
	for _, it := range d.Items(document.Conditions) {
		checkCondition(b, it)
	}
	for _, it := range d.Items(document.Actions) {
		checkAction(b, it, true)
	}
	checkMode(b)

	return b.issues
}

// AnalyzeScript applies the script rules, including the action rules over
// the script sequence
func AnalyzeScript(d *document.Document) []models.Issue {
	b := &builder{doc: d}

	if document.String(d.Raw, "description") == "" {
		b.add(models.IssueNoDescription, models.SeverityLow, "root",
			fmt.Sprintf("Script %s has no description", d.Name()),
			"Describe what the script does and which fields it expects", true)
	}
	items := d.Items(document.Actions)
	if len(items) == 0 {
		b.add(models.IssueEmptyScript, models.SeverityHigh, "sequence",
			fmt.Sprintf("Script %s has no steps in its sequence", d.Name()),
			"Add steps to the sequence or delete the script", false)
	}
	for _, it := range items {
		checkAction(b, it, false)
	}
	return b.issues
}

// AnalyzeScene applies the scene rules
func AnalyzeScene(d *document.Document) []models.Issue {
	b := &builder{doc: d}
	if len(document.Map(d.Raw, "entities")) == 0 {
		b.add(models.IssueEmptyScene, models.SeverityMedium, "entities",
			fmt.Sprintf("Scene %s does not set any entity", d.Name()),
			"Add entities to the scene or delete it", false)
	}
	return b.issues
}

func checkTrigger(b *builder, it document.Indexed) {
	loc := b.doc.Location(document.Triggers, it.Index)
	_, hasDevice := it.Item["device_id"]
	if hasDevice {
		b.add(models.IssueDeviceIDInTrigger, models.SeverityHigh, loc,
			fmt.Sprintf("Trigger %d references a device_id", it.Index),
			"Use an entity_id based state trigger; device ids change when hardware is replaced", true).
			DeviceID = document.Text(it.Item, "device_id")
	}

	switch v := document.Classify(document.Triggers, it.Item).(type) {
	case document.Device:
		b.add(models.IssueDeviceTriggerPlatform, models.SeverityHigh, loc,
			fmt.Sprintf("Trigger %d uses the device platform", it.Index),
			"Use a state trigger on the entity instead of a device trigger", true).
			DeviceID = v.DeviceID
	case document.Zone:
		if len(v.EntityIDs) == 0 {
			b.add(models.IssueZoneNoEntity, models.SeverityMedium, loc,
				fmt.Sprintf("Zone trigger %d does not name a person or device tracker", it.Index),
				"Set entity_id to the person or device_tracker to follow", false)
		}
	}
}

func checkCondition(b *builder, it document.Indexed) {
	loc := b.doc.Location(document.Conditions, it.Index)
	if _, ok := it.Item["device_id"]; ok {
		b.add(models.IssueDeviceIDInCondition, models.SeverityHigh, loc,
			fmt.Sprintf("Condition %d references a device_id", it.Index),
			"Use a state or numeric_state condition on the entity", true).
			DeviceID = document.Text(it.Item, "device_id")
	}

	switch v := document.Classify(document.Conditions, it.Item).(type) {
	case document.Device:
		b.add(models.IssueDeviceConditionPlatform, models.SeverityHigh, loc,
			fmt.Sprintf("Condition %d is a device condition", it.Index),
			"Use a state or numeric_state condition on the entity", true).
			DeviceID = v.DeviceID
	case document.Template:
		checkTemplateCondition(b, loc, it.Index, v.Expr)
	}
}

func checkTemplateCondition(b *builder, loc string, index int, expr string) {
	if IsSimpleStateTemplate(expr) {
		b.add(models.IssueTemplateSimpleState, models.SeverityHigh, loc,
			fmt.Sprintf("Template condition %d only checks the state of one entity", index),
			"Replace it with a native state condition, which is evaluated without the template engine", true)
	}
	if HasNumericComparison(expr) {
		b.add(models.IssueTemplateNumericComparison, models.SeverityHigh, loc,
			fmt.Sprintf("Template condition %d compares a numeric value", index),
			"Use a numeric_state condition with above/below", false)
	}
	if HasTimeCheck(expr) {
		rec := "Use a native time condition"
		if native := NativeTimeCondition(ExtractTimeChecks(expr)); native != "" {
			rec = fmt.Sprintf("Use a native time condition (%s)", native)
		}
		b.add(models.IssueTemplateTimeCheck, models.SeverityMedium, loc,
			fmt.Sprintf("Template condition %d checks the time of day", index), rec, false)
	}
}

func checkAction(b *builder, it document.Indexed, fixable bool) {
	loc := b.doc.Location(document.Actions, it.Index)
	if _, ok := it.Item["device_id"]; ok {
		b.add(models.IssueDeviceIDInAction, models.SeverityHigh, loc,
			fmt.Sprintf("Action %d targets a device_id", it.Index),
			"Call a service with target.entity_id instead of a device action", fixable).
			DeviceID = document.Text(it.Item, "device_id")
	}
	if target := document.Map(it.Item, "target"); target != nil {
		if _, ok := target["device_id"]; ok {
			b.add(models.IssueDeviceIDInTarget, models.SeverityHigh, loc+".target",
				fmt.Sprintf("Action %d targets devices instead of entities", it.Index),
				"Use target.entity_id", fixable).
				DeviceID = strings.Join(document.StringList(target["device_id"]), ",")
		}
	}
	if wait := document.String(it.Item, "wait_template"); strings.Contains(wait, "is_state(") {
		b.add(models.IssueWaitTemplate, models.SeverityMedium, loc,
			fmt.Sprintf("Action %d polls a state with wait_template", it.Index),
			"Use wait_for_trigger with a state trigger", false)
	}
	if svc, ok := document.Classify(document.Actions, it.Item).(document.Service); ok && deprecatedServices[svc.Service] {
		b.add(models.IssueDeprecatedService, models.SeverityLow, loc,
			fmt.Sprintf("Action %d uses the generic service %s", it.Index, svc.Service),
			"Call the service of the target domain, e.g. light.turn_on", false)
	}
}

func checkMode(b *builder) {
	mode := document.String(b.doc.Raw, "mode")
	if mode == "" {
		mode = "single"
	}
	if mode != "single" {
		return
	}

	motion := false
	for _, it := range b.doc.Items(document.Triggers) {
		for _, id := range document.StringList(it.Item["entity_id"]) {
			lower := strings.ToLower(id)
			if strings.Contains(lower, "motion") || strings.Contains(lower, "occupancy") {
				motion = true
			}
		}
	}
	if !motion {
		return
	}

	for _, it := range b.doc.Items(document.Actions) {
		if hasWait(it.Item) {
			b.add(models.IssueIncorrectModeMotion, models.SeverityHigh, "mode",
				"Motion triggered automation waits in single mode; new motion during the wait is dropped",
				"Set mode: restart so each motion event restarts the timer", true)
			return
		}
	}
}

func hasWait(item map[string]any) bool {
	for _, k := range []string{"delay", "wait_template", "wait_for_trigger"} {
		if _, ok := item[k]; ok {
			return true
		}
	}
	return false
}
