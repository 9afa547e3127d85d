package models

import (
	"strings"
	"time"
)

// Severity of an issue
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Category groups issues for reporting and scoring
type Category string

const (
	CategoryAutomation  Category = "automation"
	CategoryScript      Category = "script"
	CategoryScene       Category = "scene"
	CategoryEntity      Category = "entity"
	CategoryPerformance Category = "performance"
	CategorySecurity    Category = "security"
)

// Categories lists every category in report order
var Categories = []Category{
	CategoryAutomation,
	CategoryScript,
	CategoryScene,
	CategoryEntity,
	CategoryPerformance,
	CategorySecurity,
}

// IssueType identifies the rule that produced an issue
type IssueType string

const (
	IssueNoAlias                   IssueType = "no_alias"
	IssueNoDescription             IssueType = "no_description"
	IssueDeviceIDInTrigger         IssueType = "device_id_in_trigger"
	IssueDeviceTriggerPlatform     IssueType = "device_trigger_platform"
	IssueZoneNoEntity              IssueType = "zone_no_entity"
	IssueDeviceIDInCondition       IssueType = "device_id_in_condition"
	IssueDeviceConditionPlatform   IssueType = "device_condition_platform"
	IssueTemplateSimpleState       IssueType = "template_simple_state"
	IssueTemplateNumericComparison IssueType = "template_numeric_comparison"
	IssueTemplateTimeCheck         IssueType = "template_time_check"
	IssueDeviceIDInAction          IssueType = "device_id_in_action"
	IssueDeviceIDInTarget          IssueType = "device_id_in_target"
	IssueWaitTemplate              IssueType = "wait_template_vs_wait_for_trigger"
	IssueDeprecatedService         IssueType = "deprecated_service"
	IssueIncorrectModeMotion       IssueType = "incorrect_mode_motion_single"
	IssueEmptyScript               IssueType = "empty_script"
	IssueEmptyScene                IssueType = "empty_scene"

	IssueNeverTriggered        IssueType = "never_triggered"
	IssueUnavailableEntity     IssueType = "unavailable_entity"
	IssueUnknownState          IssueType = "unknown_state"
	IssueStaleEntity           IssueType = "stale_entity"
	IssueZombieEntity          IssueType = "zombie_entity"
	IssueDisabledButReferenced IssueType = "disabled_but_referenced"
	IssueGhostRegistryEntry    IssueType = "ghost_registry_entry"
	IssueBrokenDeviceReference IssueType = "broken_device_reference"
	IssueUnusedHelper          IssueType = "unused_helper"

	IssueHighComplexityActions    IssueType = "high_complexity_actions"
	IssueHighParallelMax          IssueType = "high_parallel_max"
	IssuePotentialSelfLoop        IssueType = "potential_self_loop"
	IssueVeryHighTriggerFrequency IssueType = "very_high_trigger_frequency"
	IssueHighTriggerFrequency     IssueType = "high_trigger_frequency"
	IssueMissingStateClass        IssueType = "missing_state_class"
	IssueExpensiveSelectattr      IssueType = "expensive_template_selectattr"
	IssueExpensiveStatesAll       IssueType = "expensive_template_states_all"

	IssueHardcodedSecret       IssueType = "hardcoded_secret"
	IssueSensitiveDataExposure IssueType = "sensitive_data_exposure"
)

// Issue is a single finding of a scan
type Issue struct {
	EntityID       string    `json:"entity_id"`
	Alias          string    `json:"alias,omitempty"`
	Type           IssueType `json:"type"`
	Severity       Severity  `json:"severity"`
	Message        string    `json:"message"`
	Location       string    `json:"location,omitempty"`
	Recommendation string    `json:"recommendation,omitempty"`
	FixAvailable   bool      `json:"fix_available"`
	DeviceID       string    `json:"device_id,omitempty"`
	Related        []string  `json:"related,omitempty"`
	Suggestions    []string  `json:"suggestions,omitempty"`
}

// Signature identifies an issue across scans
func (i Issue) Signature() string {
	msg := i.Message
	if len(msg) > 100 {
		msg = msg[:100]
	}
	return i.EntityID + "|" + string(i.Type) + "|" + msg
}

// CategoryForEntity maps a document entity id to its issue category
func CategoryForEntity(entityID string) Category {
	switch {
	case strings.HasPrefix(entityID, "script."):
		return CategoryScript
	case strings.HasPrefix(entityID, "scene."):
		return CategoryScene
	default:
		return CategoryAutomation
	}
}

// EntityEntry is one record of the entity registry
type EntityEntry struct {
	ID            string `json:"id"`
	EntityID      string `json:"entity_id"`
	UniqueID      string `json:"unique_id"`
	Platform      string `json:"platform"`
	DeviceID      string `json:"device_id,omitempty"`
	ConfigEntryID string `json:"config_entry_id,omitempty"`
	DisabledBy    string `json:"disabled_by,omitempty"`
}

// Disabled reports whether the registry entry is disabled
func (e EntityEntry) Disabled() bool {
	return e.DisabledBy != ""
}

// DeviceEntry is one record of the device registry
type DeviceEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	NameByUser   string `json:"name_by_user,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty"`
}

// ConfigEntry is an integration config entry
type ConfigEntry struct {
	EntryID string `json:"entry_id"`
	Domain  string `json:"domain"`
	Title   string `json:"title"`
	State   string `json:"state,omitempty"`
}

// Recoverable reports whether the entry can come back without user action
func (c ConfigEntry) Recoverable() bool {
	switch c.State {
	case "migration_error", "failed_unload":
		return false
	}
	return true
}

// State is a live state snapshot of one entity
type State struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged time.Time      `json:"last_changed"`
	LastUpdated time.Time      `json:"last_updated"`
}

// Domain returns the domain part of the entity id
func (s State) Domain() string {
	return Domain(s.EntityID)
}

// Domain returns the part of an entity id before the first dot
func Domain(entityID string) string {
	if i := strings.IndexByte(entityID, '.'); i >= 0 {
		return entityID[:i]
	}
	return ""
}

// ScanSummary is the compact form of a scan kept in history
type ScanSummary struct {
	Timestamp  time.Time        `json:"timestamp"`
	Score      int              `json:"score"`
	TotalCount int              `json:"total_issues"`
	Counts     map[Category]int `json:"counts"`
	DurationMS int64            `json:"duration_ms"`
}
