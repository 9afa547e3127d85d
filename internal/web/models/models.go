package models

import "haca/internal/refactor"

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// FixRequest previews or applies one fix. Apply recomputes the preview
// against the live file first.
type FixRequest struct {
	AutomationID string `json:"automation_id" binding:"required"`
	Fix          string `json:"fix" binding:"required"`
	Mode         string `json:"mode"`
	Description  string `json:"description"`
	DryRun       bool   `json:"dry_run"`
	Async        bool   `json:"async"`
}

// Refactor converts the request for the rewrite assistant
func (r FixRequest) Refactor() refactor.Request {
	return refactor.Request{
		Target:      r.AutomationID,
		Fix:         refactor.Fix(r.Fix),
		Mode:        r.Mode,
		Description: r.Description,
	}
}

// BackupRequest names a document file to back up
type BackupRequest struct {
	File string `json:"file" binding:"required"`
}

// BackupPathRequest names an existing backup
type BackupPathRequest struct {
	Path string `json:"path" binding:"required"`
}
