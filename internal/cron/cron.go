package cron

import (
	"sync"

	cronv3 "github.com/robfig/cron/v3"

	"github.com/customeros/mailmigrate/internal/logger"
)

// Manager wraps the cron scheduler for --schedule mode. Jobs registered here
// never overlap themselves: a tick that fires while the previous run is still
// going is skipped, not queued.
type Manager struct {
	log    logger.Logger
	cron   *cronv3.Cron
	stopCh chan struct{}
	jobIDs map[string]cronv3.EntryID
	locks  map[string]*sync.Mutex
}

func NewManager(log logger.Logger) *Manager {
	return &Manager{
		log:    log,
		cron:   cronv3.New(cronv3.WithChain(cronv3.Recover(cronv3.DefaultLogger))),
		stopCh: make(chan struct{}),
		jobIDs: make(map[string]cronv3.EntryID),
		locks:  make(map[string]*sync.Mutex),
	}
}

// Schedule registers job under the standard five-field cron spec.
func (m *Manager) Schedule(spec, name string, job func()) error {
	lock := &sync.Mutex{}
	m.locks[name] = lock

	id, err := m.cron.AddFunc(spec, func() {
		if !lock.TryLock() {
			m.log.Warnf("Previous %s run still going, skipping this tick", name)
			return
		}
		defer lock.Unlock()
		job()
	})
	if err != nil {
		return err
	}

	m.jobIDs[name] = id
	m.log.Infof("Registered %s job with schedule: %s", name, spec)
	return nil
}

// Start begins firing scheduled jobs.
func (m *Manager) Start() {
	m.log.Infof("Starting cron manager")
	m.cron.Start()
}

// Stop waits for any running job to finish, then releases Wait.
func (m *Manager) Stop() {
	m.log.Infof("Stopping cron manager")
	ctx := m.cron.Stop()
	<-ctx.Done()
	close(m.stopCh)
}

// Wait blocks until Stop is called.
func (m *Manager) Wait() {
	<-m.stopCh
}
