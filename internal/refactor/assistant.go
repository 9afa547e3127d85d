package refactor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"haca/internal/backup"
	"haca/internal/document"
	"haca/internal/registry"
	"haca/internal/resolver"
	"haca/internal/utils"

	"github.com/gofrs/flock"
	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"
)

var (
	ErrNotFound            = errors.New("automation not found")
	ErrNoChanges           = errors.New("No changes to apply")
	ErrNoDeviceResolved    = errors.New("No device_id references could be resolved")
	ErrInvalidMode         = errors.New("invalid mode")
	ErrNoTemplate          = errors.New("No simple template conditions found to fix")
	ErrHasDescription      = errors.New("document already has a description")
	ErrDescriptionRequired = errors.New("description text is required")
	ErrUnknownFix          = errors.New("unknown fix type")
	ErrNotPreviewed        = errors.New("preview was already applied or discarded")
	ErrStaleChange         = errors.New("change no longer matches the document")
	ErrLocked              = errors.New("another apply holds the file lock")
	ErrNoRegistry          = errors.New("registry snapshot unavailable")
)

// Fix selects the rewrite a preview computes
type Fix string

const (
	FixDeviceID    Fix = "device_id"
	FixMode        Fix = "mode"
	FixTemplate    Fix = "template"
	FixDescription Fix = "description"
)

// Status of a preview. Previewed is the only state Apply accepts.
type Status string

const (
	StatusPreviewed Status = "previewed"
	StatusApplied   Status = "applied"
	StatusDiscarded Status = "discarded"
)

// Request names the document and the fix to preview
type Request struct {
	Target      string `json:"automation_id"`
	Fix         Fix    `json:"fix"`
	Mode        string `json:"mode,omitempty"`
	Description string `json:"description,omitempty"`
}

// Preview is a computed change set with before/after renderings
type Preview struct {
	Request
	Kind        document.Kind `json:"kind"`
	EntityID    string        `json:"entity_id"`
	Alias       string        `json:"alias"`
	File        string        `json:"file"`
	Changes     []Change      `json:"changes"`
	CurrentYAML string        `json:"current_yaml"`
	NewYAML     string        `json:"new_yaml"`
	Diff        string        `json:"diff"`
	Status      Status        `json:"status"`
}

// Result reports an apply or a dry run
type Result struct {
	Success        bool     `json:"success"`
	DryRun         bool     `json:"dry_run"`
	AutomationID   string   `json:"automation_id"`
	ChangesApplied int      `json:"changes_applied"`
	Changes        []Change `json:"changes,omitempty"`
	BackupPath     string   `json:"backup_path,omitempty"`
	Message        string   `json:"message"`
}

// Assistant previews and applies rewrites of the document files under a
// configuration root
type Assistant struct {
	configDir   string
	provider    registry.Provider
	backups     *backup.Manager
	lockTimeout time.Duration
}

// NewAssistant creates an assistant. provider may be nil, in which case
// device fixes are unavailable.
func NewAssistant(configDir string, provider registry.Provider, backups *backup.Manager) *Assistant {
	return &Assistant{
		configDir:   configDir,
		provider:    provider,
		backups:     backups,
		lockTimeout: 5 * time.Second,
	}
}

func (a *Assistant) snapshot(ctx context.Context) *registry.Snapshot {
	if a.provider == nil {
		return nil
	}
	snap, err := registry.Fetch(ctx, a.provider)
	if err != nil {
		utils.Logger("REFACTOR").Warnf("Registry unavailable: %v", err)
		return nil
	}
	return snap
}

type located struct {
	doc  *document.Document
	root *yaml.Node
	file string
}

// locate reads the live file and finds the target document in it
func (a *Assistant) locate(req Request, kind document.Kind, snap *registry.Snapshot) (*located, error) {
	switch kind {
	case document.KindScript:
		docs, root, err := document.LoadScripts(a.configDir)
		if err != nil {
			return nil, err
		}
		if d := FindScript(docs, req.Target); d != nil {
			return &located{doc: d, root: root, file: filepath.Join(a.configDir, document.ScriptsFile)}, nil
		}
	default:
		var lookup document.EntityLookup
		if snap != nil {
			lookup = snap
		}
		docs, root, err := document.LoadAutomations(a.configDir, lookup)
		if err != nil {
			return nil, err
		}
		if d := FindAutomation(docs, req.Target, snap); d != nil {
			return &located{doc: d, root: root, file: filepath.Join(a.configDir, document.AutomationsFile)}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, req.Target)
}

// locateAny looks in automations first; description fixes also reach
// scripts
func (a *Assistant) locateAny(req Request, snap *registry.Snapshot) (*located, error) {
	loc, err := a.locate(req, document.KindAutomation, snap)
	if err == nil || req.Fix != FixDescription || !errors.Is(err, ErrNotFound) {
		return loc, err
	}
	return a.locate(req, document.KindScript, snap)
}

// Preview computes the change set of a fix without touching any file
func (a *Assistant) Preview(ctx context.Context, req Request) (*Preview, error) {
	switch req.Fix {
	case FixMode:
		if !slices.Contains(ValidModes, req.Mode) {
			return nil, fmt.Errorf("%w %q: must be one of %s", ErrInvalidMode, req.Mode, strings.Join(ValidModes, ", "))
		}
	case FixDeviceID, FixTemplate, FixDescription:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFix, req.Fix)
	}

	snap := a.snapshot(ctx)
	loc, err := a.locateAny(req, snap)
	if err != nil {
		return nil, err
	}
	d := loc.doc

	var changes []Change
	switch req.Fix {
	case FixDeviceID:
		if snap == nil {
			return nil, ErrNoRegistry
		}
		changes = deviceChanges(d, resolver.New(snap))
		if len(changes) == 0 {
			return nil, ErrNoDeviceResolved
		}
	case FixMode:
		changes = modeChanges(d, req.Mode)
	case FixTemplate:
		changes = templateChanges(d)
		if len(changes) == 0 {
			return nil, ErrNoTemplate
		}
	case FixDescription:
		if document.String(d.Raw, "description") != "" {
			return nil, fmt.Errorf("%w: %s", ErrHasDescription, d.Name())
		}
		if strings.TrimSpace(req.Description) == "" {
			return nil, ErrDescriptionRequired
		}
		changes = descriptionChanges(d, strings.TrimSpace(req.Description))
	}

	current, err := document.Render(d.Node)
	if err != nil {
		return nil, fmt.Errorf("render current: %w", err)
	}
	proposed := document.Clone(d.Node)
	if err := applyChanges(proposed, d.Raw, d.Kind, changes); err != nil {
		return nil, err
	}
	next, err := document.Render(proposed)
	if err != nil {
		return nil, fmt.Errorf("render proposed: %w", err)
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(current)),
		B:        difflib.SplitLines(string(next)),
		FromFile: "current",
		ToFile:   "proposed",
		Context:  3,
	})
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}

	utils.Logger("REFACTOR").Infof("Previewed %s fix for %s: %d changes", req.Fix, d.EntityID, len(changes))
	return &Preview{
		Request:     req,
		Kind:        d.Kind,
		EntityID:    d.EntityID,
		Alias:       d.Alias,
		File:        loc.file,
		Changes:     changes,
		CurrentYAML: string(current),
		NewYAML:     string(next),
		Diff:        diff,
		Status:      StatusPreviewed,
	}, nil
}

// Discard abandons a preview
func (a *Assistant) Discard(p *Preview) {
	if p != nil && p.Status == StatusPreviewed {
		p.Status = StatusDiscarded
	}
}

// Apply writes a previewed change set back. With dryRun the change set is
// validated against the live file and returned; nothing is backed up or
// written.
func (a *Assistant) Apply(ctx context.Context, p *Preview, dryRun bool) (*Result, error) {
	if p == nil || p.Status != StatusPreviewed {
		return nil, ErrNotPreviewed
	}
	if len(p.Changes) == 0 {
		return nil, ErrNoChanges
	}
	log := utils.Logger("REFACTOR")
	snap := a.snapshot(ctx)

	if dryRun {
		loc, err := a.locate(p.Request, p.Kind, snap)
		if err != nil {
			return nil, err
		}
		if err := applyChanges(document.Clone(loc.doc.Node), loc.doc.Raw, loc.doc.Kind, p.Changes); err != nil {
			return nil, err
		}
		return &Result{
			Success:      true,
			DryRun:       true,
			AutomationID: p.Target,
			Changes:      p.Changes,
			Message:      "Dry run complete. No changes applied.",
		}, nil
	}

	lock := flock.New(p.File + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, a.lockTimeout)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil || !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, p.File)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Warnf("Unlock %s: %v", p.File, err)
		}
	}()

	backupPath, err := a.backups.Create(p.File)
	if err != nil {
		return nil, fmt.Errorf("backup: %w", err)
	}

	loc, err := a.locate(p.Request, p.Kind, snap)
	if err != nil {
		return &Result{BackupPath: backupPath}, err
	}
	if err := applyChanges(loc.doc.Node, loc.doc.Raw, loc.doc.Kind, p.Changes); err != nil {
		return &Result{BackupPath: backupPath}, err
	}
	data, err := document.Render(loc.root)
	if err != nil {
		return &Result{BackupPath: backupPath}, fmt.Errorf("render %s: %w", loc.file, err)
	}
	perm := os.FileMode(0o644)
	if info, err := os.Stat(loc.file); err == nil {
		perm = info.Mode().Perm()
	}
	if err := utils.WriteFileAtomic(loc.file, data, perm); err != nil {
		log.Errorf("Write %s failed: %v", loc.file, err)
		return &Result{BackupPath: backupPath}, err
	}

	p.Status = StatusApplied
	log.Infof("Applied %d changes to %s (backup %s)", len(p.Changes), loc.doc.EntityID, backupPath)
	return &Result{
		Success:        true,
		AutomationID:   p.Target,
		ChangesApplied: len(p.Changes),
		BackupPath:     backupPath,
		Message:        "Changes applied successfully. Reload automations to apply.",
	}, nil
}
