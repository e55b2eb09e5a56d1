package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// Trigger matches a point in the monthly calendar: a job fires when the
// current day, hour and minute all match.
type Trigger struct {
	Day    int
	Hour   int
	Minute int
}

// Monthly returns a trigger for the given day of month at hour:00.
func Monthly(day, hour int) Trigger {
	return Trigger{Day: day, Hour: hour}
}

// Matches reports whether now lands on the trigger.
func (t Trigger) Matches(now time.Time) bool {
	return now.Day() == t.Day && now.Hour() == t.Hour && now.Minute() == t.Minute
}

// Job is a scheduled unit of work. Errors are logged and swallowed so a
// failed run never stops the scheduler; the job simply runs again at the
// next firing.
type Job func(ctx context.Context) error

type entry struct {
	name      string
	trigger   Trigger
	job       Job
	lastFired time.Time
}

// Scheduler fires registered jobs when their triggers match. It owns its
// loop: Start blocks until the context is cancelled or Stop is called.
type Scheduler struct {
	mu       sync.Mutex
	entries  []*entry
	logger   *log.Logger
	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// New constructs a scheduler ticking once per minute.
func New(logger *log.Logger) *Scheduler {
	return &Scheduler{
		logger:   logger,
		interval: time.Minute,
		stop:     make(chan struct{}),
	}
}

// Register adds a (trigger, job) pair. Not safe to call after Start.
func (s *Scheduler) Register(name string, trigger Trigger, job Job) {
	if s == nil || job == nil {
		return
	}
	s.entries = append(s.entries, &entry{name: name, trigger: trigger, job: job})
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || len(s.entries) == 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.tick(ctx, now.UTC())
		}
	}
}

// Stop ends the scheduler loop.
func (s *Scheduler) Stop() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if !e.trigger.Matches(now) {
			continue
		}
		// Two ticks can land in the matching minute; fire once.
		if !e.lastFired.IsZero() && now.Sub(e.lastFired) < time.Minute {
			continue
		}
		e.lastFired = now
		if err := e.job(ctx); err != nil {
			if s.logger != nil {
				s.logger.Printf("scheduled job failed: job=%s err=%v", e.name, err)
			}
			continue
		}
		if s.logger != nil {
			s.logger.Printf("scheduled job complete: job=%s", e.name)
		}
	}
}
