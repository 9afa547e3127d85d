package scheduler

import (
	"sync"

	"haca/internal/utils"

	"github.com/robfig/cron/v3"
)

// ScanScheduleID is the schedule entry of the periodic full scan
const ScanScheduleID = "scan"

// Scheduler manages time-based scans
type Scheduler struct {
	cron      *cron.Cron
	jobMap    map[string]cron.EntryID // Maps schedule ID to cron entry ID
	jobMapMux sync.RWMutex            // Protects jobMap
}

// NewScheduler creates a scheduler. A job still running when its next
// tick arrives is skipped rather than stacked.
func NewScheduler() *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{}))),
		jobMap: make(map[string]cron.EntryID),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	utils.Logger("SCHEDULER").Infof("Cron scheduler started")
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	utils.Logger("SCHEDULER").Infof("Cron scheduler stopped")
}

// AddJob adds a cron job and returns the entry ID
func (s *Scheduler) AddJob(spec string, fn func()) (cron.EntryID, error) {
	return s.cron.AddFunc(spec, fn)
}

// RemoveSchedule removes a specific schedule by its ID
func (s *Scheduler) RemoveSchedule(scheduleID string) {
	s.jobMapMux.Lock()
	defer s.jobMapMux.Unlock()

	if entryID, exists := s.jobMap[scheduleID]; exists {
		s.cron.Remove(entryID)
		delete(s.jobMap, scheduleID)
		utils.Logger("SCHEDULER").Infof("Removed schedule %s (entry ID: %d)", scheduleID, entryID)
	}
}

// AddOrUpdateSchedule adds or replaces a single schedule
func (s *Scheduler) AddOrUpdateSchedule(scheduleID, spec string, fn func(), enabled bool) error {
	log := utils.Logger("SCHEDULER")
	s.RemoveSchedule(scheduleID)

	if !enabled {
		log.Infof("Schedule %s is disabled, not adding", scheduleID)
		return nil
	}

	entryID, err := s.AddJob(spec, func() {
		log.Debugf("Cron job triggered for schedule %s", scheduleID)
		fn()
	})
	if err != nil {
		log.Errorf("Failed to add/update schedule %s with cron '%s': %v", scheduleID, spec, err)
		return err
	}

	s.jobMapMux.Lock()
	s.jobMap[scheduleID] = entryID
	s.jobMapMux.Unlock()

	log.Infof("Added/updated schedule %s with cron '%s' (entry ID: %d)", scheduleID, spec, entryID)
	return nil
}

// ScheduleScan installs the periodic scan
func (s *Scheduler) ScheduleScan(spec string, run func()) error {
	return s.AddOrUpdateSchedule(ScanScheduleID, spec, run, true)
}

// GetScheduledJobCount returns the number of currently scheduled jobs
func (s *Scheduler) GetScheduledJobCount() int {
	s.jobMapMux.RLock()
	defer s.jobMapMux.RUnlock()
	return len(s.jobMap)
}

// cronLogger adapts the zap logger to cron's logger interface
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	utils.Logger("SCHEDULER").Debugw(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	utils.Logger("SCHEDULER").Errorw(msg, append(keysAndValues, "error", err)...)
}
