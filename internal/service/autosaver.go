package service

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"reportstudio/internal/logger"
)

// ── Autosaver (cron) ──────────────────────────────────────

// Autosaver checkpoints the open document and its undo history on a cron
// schedule, so history survives a crash between explicit saves.
type Autosaver struct {
	svc *DocumentService
	log *logger.Logger

	mu    sync.Mutex
	sched *cron.Cron
	runs  int
}

// NewAutosaver creates a stopped Autosaver for svc.
func NewAutosaver(svc *DocumentService, log *logger.Logger) *Autosaver {
	if log == nil {
		log = logger.Nop()
	}
	return &Autosaver{svc: svc, log: log.With("autosaver")}
}

// Start schedules checkpoints with a cron spec such as "@every 5m". An empty
// spec leaves the autosaver stopped. Calling Start again replaces the
// schedule.
func (a *Autosaver) Start(spec string) error {
	a.Stop()
	if spec == "" {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, a.tick); err != nil {
		return fmt.Errorf("autosave schedule %q: %w", spec, err)
	}
	c.Start()

	a.mu.Lock()
	a.sched = c
	a.mu.Unlock()
	a.log.Info().Str("schedule", spec).Msg("autosave scheduled")
	return nil
}

func (a *Autosaver) tick() {
	queued := a.svc.Checkpoint()
	a.mu.Lock()
	a.runs++
	a.mu.Unlock()
	if queued {
		a.log.Debug().Str("document", a.svc.DocumentID()).Msg("checkpoint queued")
	}
}

// Runs returns how many times the schedule fired.
func (a *Autosaver) Runs() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runs
}

// Stop cancels the schedule and waits for a running checkpoint.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	c := a.sched
	a.sched = nil
	a.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
