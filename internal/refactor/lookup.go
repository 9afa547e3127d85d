package refactor

import (
	"strconv"
	"strings"

	"haca/internal/document"
	"haca/internal/registry"
	"haca/internal/utils"
)

// FindAutomation locates an automation by id, alias, runtime entity id or
// registry unique_id. The first rule that matches wins.
func FindAutomation(docs []*document.Document, target string, snap *registry.Snapshot) *document.Document {
	for _, d := range docs {
		if d.ID != "" && d.ID == target {
			return d
		}
	}
	for _, d := range docs {
		if d.Alias != "" && (d.Alias == target || utils.IDSlug(d.Alias) == target) {
			return d
		}
	}

	if name, ok := strings.CutPrefix(target, "automation."); ok {
		for _, d := range docs {
			if d.Alias != "" && utils.EntitySlug(d.Alias) == name {
				return d
			}
		}
		for _, d := range docs {
			if d.Alias != "" && strings.EqualFold(d.Alias, name) {
				return d
			}
		}
	}

	if part, ok := strings.CutPrefix(target, "automation.unknown_"); ok {
		for _, d := range docs {
			if d.ID == part {
				return d
			}
		}
		for _, d := range docs {
			if d.Alias != "" && utils.EntitySlug(d.Alias) == part {
				return d
			}
		}
		if index, err := strconv.Atoi(part); err == nil {
			for _, d := range docs {
				if d.Index == index {
					return d
				}
			}
		}
	}

	if snap != nil && strings.HasPrefix(target, "automation.") {
		if e, ok := snap.Entity(target); ok && e.UniqueID != "" {
			for _, d := range docs {
				if d.ID == e.UniqueID {
					return d
				}
			}
		}
	}

	for _, d := range docs {
		if d.EntityID == target {
			return d
		}
	}
	return nil
}

// FindScript locates a script by slug or script entity id
func FindScript(docs []*document.Document, target string) *document.Document {
	slug := strings.TrimPrefix(target, "script.")
	for _, d := range docs {
		if d.Slug == slug || d.EntityID == target {
			return d
		}
	}
	for _, d := range docs {
		if d.Alias != "" && (d.Alias == target || utils.EntitySlug(d.Alias) == slug) {
			return d
		}
	}
	return nil
}
