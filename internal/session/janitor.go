package session

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// defaultJanitorSchedule runs the sweep every 15 seconds, comfortably
// inside tooldispatch.PromptTimeout (30s) so a stuck request is cleaned up
// well before a second sweep would find it again.
const defaultJanitorSchedule = "@every 15s"

// Janitor runs periodic session maintenance in the background: sweeping
// approval requests whose timeout elapsed without their own Await caller
// ever observing it. Grounded on the teacher's internal/cron package,
// which wraps github.com/robfig/cron/v3 for schedule parsing
// (cron.NewParser in schedule.go); unlike the teacher's
// webhook/message/agent job scheduler, the janitor has no persisted job
// definitions to normalize from configuration, so it wires the library's
// own Cron scheduler directly rather than reimplementing dispatch.
type Janitor struct {
	c      *cron.Cron
	sess   *Session
	logger *slog.Logger
}

// NewJanitor builds a Janitor for sess. An empty schedule uses
// defaultJanitorSchedule; an invalid schedule string falls back to the
// default rather than leaving the janitor unscheduled.
func NewJanitor(sess *Session, schedule string, logger *slog.Logger) *Janitor {
	if schedule == "" {
		schedule = defaultJanitorSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	j := &Janitor{sess: sess, logger: logger}

	c := cron.New()
	if _, err := c.AddFunc(schedule, j.sweep); err != nil {
		logger.Warn("janitor schedule invalid, falling back to default", "schedule", schedule, "error", err)
		c = cron.New()
		_, _ = c.AddFunc(defaultJanitorSchedule, j.sweep)
	}
	j.c = c
	return j
}

// Start begins running the janitor's scheduled jobs in the background.
func (j *Janitor) Start() { j.c.Start() }

// Stop halts the scheduler and blocks until any in-flight sweep finishes.
func (j *Janitor) Stop() {
	<-j.c.Stop().Done()
}

func (j *Janitor) sweep() {
	if j.sess.approval == nil {
		return
	}
	if n := j.sess.approval.ExpireStale(time.Now()); n > 0 {
		j.logger.Warn("janitor expired stale approval requests", "count", n)
	}
}
