package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"haca/internal/engine"
	"haca/internal/refactor"
	"haca/internal/utils"

	"github.com/hibiken/asynq"
)

// Task types
const (
	TypeScan     = "scan:run"
	TypeFixApply = "fix:apply"
)

var ErrNotInitialized = errors.New("task queue not initialized")

// Global instances - these should be initialized by the main application
var (
	scanEngine *engine.Engine
	assistant  *refactor.Assistant
)

// SetGlobalInstances sets the engine and rewrite assistant the handlers use
func SetGlobalInstances(e *engine.Engine, a *refactor.Assistant) {
	scanEngine = e
	assistant = a
}

// ScanTaskPayload for scan tasks
type ScanTaskPayload struct {
	Reason string `json:"reason"`
}

// FixTaskPayload for fix tasks. The preview is recomputed by the worker.
type FixTaskPayload struct {
	Request refactor.Request `json:"request"`
	DryRun  bool             `json:"dry_run"`
}

// NewScanTask builds a scan task
func NewScanTask(reason string) (*asynq.Task, error) {
	payload, err := json.Marshal(ScanTaskPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeScan, payload), nil
}

// NewFixTask builds a fix task
func NewFixTask(req refactor.Request, dryRun bool) (*asynq.Task, error) {
	payload, err := json.Marshal(FixTaskPayload{Request: req, DryRun: dryRun})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeFixApply, payload), nil
}

// EnqueueScan enqueues a full scan. Concurrent scan requests collapse into
// one task while it is pending.
func EnqueueScan(reason string) error {
	log := utils.Logger("TASKQUEUE")
	if asynqClient == nil {
		return ErrNotInitialized
	}
	task, err := NewScanTask(reason)
	if err != nil {
		return err
	}
	info, err := asynqClient.Enqueue(task, asynq.MaxRetry(3), asynq.Timeout(5*time.Minute), asynq.Unique(time.Minute))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		log.Debugf("Scan already pending, skipping (%s)", reason)
		return nil
	}
	if err != nil {
		log.Errorf("Failed to enqueue scan: %v", err)
		return err
	}
	log.Infof("Enqueued scan task %s (%s)", info.ID, reason)
	return nil
}

// EnqueueFix enqueues a rewrite of one document
func EnqueueFix(req refactor.Request, dryRun bool) (string, error) {
	log := utils.Logger("TASKQUEUE")
	if asynqClient == nil {
		return "", ErrNotInitialized
	}
	task, err := NewFixTask(req, dryRun)
	if err != nil {
		return "", err
	}
	info, err := asynqClient.Enqueue(task, asynq.MaxRetry(0), asynq.Timeout(30*time.Second))
	if err != nil {
		log.Errorf("Failed to enqueue %s fix for %s: %v", req.Fix, req.Target, err)
		return "", err
	}
	log.Infof("Enqueued %s fix task %s for %s", req.Fix, info.ID, req.Target)
	return info.ID, nil
}

// handleScanTask runs a scan on the worker
func handleScanTask(ctx context.Context, t *asynq.Task) error {
	log := utils.Logger("TASKQUEUE")
	var payload ScanTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if scanEngine == nil {
		return fmt.Errorf("%w: %w", ErrNotInitialized, asynq.SkipRetry)
	}
	log.Infof("Processing scan task (%s)", payload.Reason)
	res, err := scanEngine.Run(ctx)
	if err != nil {
		return err
	}
	log.Infof("Scan task finished with score %d", res.Score)
	return nil
}

// handleFixTask previews and applies a fix. Validation failures are final.
func handleFixTask(ctx context.Context, t *asynq.Task) error {
	log := utils.Logger("TASKQUEUE")
	var payload FixTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if assistant == nil {
		return fmt.Errorf("%w: %w", ErrNotInitialized, asynq.SkipRetry)
	}

	preview, err := assistant.Preview(ctx, payload.Request)
	if err != nil {
		log.Warnf("Fix %s for %s rejected: %v", payload.Request.Fix, payload.Request.Target, err)
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	res, err := assistant.Apply(ctx, preview, payload.DryRun)
	if err != nil {
		if errors.Is(err, refactor.ErrLocked) {
			return err
		}
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	log.Infof("Fix task for %s: %s", res.AutomationID, res.Message)

	if !payload.DryRun && scanEngine != nil {
		if err := EnqueueScan("fix applied"); err != nil && !errors.Is(err, ErrNotInitialized) {
			log.Warnf("Follow-up scan not enqueued: %v", err)
		}
	}
	return nil
}
