package taskqueue

import (
	"haca/internal/utils"

	"github.com/hibiken/asynq"
)

var (
	asynqClient *asynq.Client
	asynqSrv    *asynq.Server
)

// NewMux routes task types to their handlers
func NewMux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeScan, handleScanTask)
	mux.HandleFunc(TypeFixApply, handleFixTask)
	return mux
}

// StartWorkers starts Asynq workers in the background
func StartWorkers(redisAddr string) error {
	log := utils.Logger("TASKQUEUE")
	log.Infof("Starting Asynq workers with Redis at %s", redisAddr)
	opt := asynq.RedisClientOpt{Addr: redisAddr}
	asynqClient = asynq.NewClient(opt)
	// One scan at a time is enforced by the engine; fixes lock per file
	asynqSrv = asynq.NewServer(opt, asynq.Config{
		Concurrency: 2,
		Logger:      utils.Logger("ASYNQ"),
	})
	if err := asynqSrv.Start(NewMux()); err != nil {
		log.Errorf("Failed to start workers: %v", err)
		_ = asynqClient.Close()
		asynqClient = nil
		return err
	}
	log.Infof("Workers started, waiting for tasks...")
	return nil
}

// StopWorkers stops workers
func StopWorkers() {
	log := utils.Logger("TASKQUEUE")
	log.Infof("Stopping workers...")
	if asynqSrv != nil {
		asynqSrv.Shutdown()
	}
	if asynqClient != nil {
		_ = asynqClient.Close()
		asynqClient = nil
	}
	log.Infof("Workers stopped")
}

// Running reports whether tasks can be enqueued
func Running() bool {
	return asynqClient != nil
}
