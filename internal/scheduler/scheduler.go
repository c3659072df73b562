// Package scheduler runs named recurring tasks on cron schedules. Each task
// is armed as a one-shot timer for its next fire time and re-arms itself
// after every run, so a task that overruns its interval never overlaps with
// itself.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shopworks/be-repair-core/internal/errors"
	"github.com/shopworks/be-repair-core/internal/logger"
	"github.com/shopworks/be-repair-core/internal/metrics"
)

// TaskFunc is the body of a scheduled task.
type TaskFunc func(ctx context.Context) error

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

type task struct {
	name     string
	schedule cron.Schedule
	fn       TaskFunc
	timer    *time.Timer
}

// Scheduler holds a registry of named tasks. Register before Start; Stop
// cancels everything.
type Scheduler struct {
	mu      sync.Mutex
	tasks   map[string]*task
	started bool
	stopped bool
	cancel  context.CancelFunc
	ctx     context.Context
	log     *logger.Logger
	now     func() time.Time
	wg      sync.WaitGroup
}

// New creates a stopped scheduler.
func New(log *logger.Logger) *Scheduler {
	return &Scheduler{
		tasks: make(map[string]*task),
		log:   log,
		now:   time.Now,
	}
}

// WithClock overrides the clock used to compute next fire times.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Register adds a named task with a standard 5-field cron expression.
// Registering a name twice replaces the earlier task.
func (s *Scheduler) Register(name, cronExpr string, fn TaskFunc) error {
	schedule, err := cronParser.Parse(cronExpr)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid cron expression for task "+name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prior, ok := s.tasks[name]; ok && prior.timer != nil {
		prior.timer.Stop()
	}
	t := &task{name: name, schedule: schedule, fn: fn}
	s.tasks[name] = t
	if s.started && !s.stopped {
		s.arm(t)
	}
	return nil
}

// Start arms every registered task. Calling Start twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(context.Background())
	for _, t := range s.tasks {
		s.arm(t)
	}
	s.log.Info().Int("task_count", len(s.tasks)).Msg("Scheduler started")
}

// arm schedules the task's next run. Caller holds s.mu.
func (s *Scheduler) arm(t *task) {
	next := t.schedule.Next(s.now())
	delay := next.Sub(s.now())
	if delay < 0 {
		delay = 0
	}
	s.log.Debug().
		Str("task", t.name).
		Time("next_run", next).
		Msg("task armed")
	t.timer = time.AfterFunc(delay, func() {
		s.fire(t)
	})
}

// fire runs a task and re-arms it regardless of the outcome.
func (s *Scheduler) fire(t *task) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.mu.Unlock()

	s.run(ctx, t)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.arm(t)
}

func (s *Scheduler) run(ctx context.Context, t *task) {
	s.wg.Add(1)
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			metrics.SchedulerRuns.WithLabelValues(t.name, "panic").Inc()
			s.log.Error().
				Str("task", t.name).
				Interface("panic", r).
				Msg("scheduled task panicked")
		}
	}()

	start := s.now()
	if err := t.fn(ctx); err != nil {
		metrics.SchedulerRuns.WithLabelValues(t.name, "error").Inc()
		s.log.Error().Err(err).
			Str("task", t.name).
			Dur("duration", s.now().Sub(start)).
			Msg("scheduled task failed")
		return
	}
	metrics.SchedulerRuns.WithLabelValues(t.name, "success").Inc()
	s.log.Info().
		Str("task", t.name).
		Dur("duration", s.now().Sub(start)).
		Msg("scheduled task completed")
}

// RunNow triggers a registered task immediately, outside its schedule. The
// run does not disturb the task's next scheduled fire time.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return errors.NotFound("scheduled task", name)
	}
	s.run(ctx, t)
	return nil
}

// Stop cancels all pending timers and waits for in-flight runs to finish.
// The scheduler cannot be restarted after Stop.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
	for _, t := range s.tasks {
		if t.timer != nil {
			t.timer.Stop()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info().Msg("Scheduler stopped")
}
