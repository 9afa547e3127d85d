package api

import (
	"context"
	"errors"
	"net/http"

	"haca/internal/backup"
	"haca/internal/engine"
	"haca/internal/models"
	"haca/internal/refactor"

	"github.com/gin-gonic/gin"
)

// Scanner is the part of the scan engine the API uses
type Scanner interface {
	Last() *engine.Result
	Run(ctx context.Context) (*engine.Result, error)
	History(ctx context.Context, limit int) ([]models.ScanSummary, error)
	WriteReport() (string, error)
}

// Dependencies of the API routes. The enqueue functions are nil when no
// task queue is running; work then happens inside the request.
type Dependencies struct {
	Engine      Scanner
	Assistant   *refactor.Assistant
	Backups     *backup.Manager
	EnqueueScan func(reason string) error
	EnqueueFix  func(req refactor.Request, dryRun bool) (string, error)
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, refactor.ErrInvalidMode),
		errors.Is(err, refactor.ErrUnknownFix),
		errors.Is(err, refactor.ErrDescriptionRequired),
		errors.Is(err, refactor.ErrHasDescription),
		errors.Is(err, backup.ErrOutsideBackupDir):
		return http.StatusBadRequest
	case errors.Is(err, refactor.ErrNotFound),
		errors.Is(err, backup.ErrNotFound),
		errors.Is(err, backup.ErrSourceMissing):
		return http.StatusNotFound
	case errors.Is(err, refactor.ErrLocked):
		return http.StatusConflict
	case errors.Is(err, refactor.ErrNoDeviceResolved),
		errors.Is(err, refactor.ErrNoTemplate),
		errors.Is(err, refactor.ErrNoChanges),
		errors.Is(err, refactor.ErrStaleChange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrNoScan),
		errors.Is(err, refactor.ErrNoRegistry):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"success": false, "error": err.Error()})
}
