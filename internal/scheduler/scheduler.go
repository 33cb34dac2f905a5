package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTimezone anchors the default schedule; the content team works in
// New Zealand time.
const DefaultTimezone = "Pacific/Auckland"

// TimeOfDay is a wall-clock trigger time within the schedule's location.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay parses "HH:MM" wall-clock notation.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d", &t.Hour, &t.Minute); err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time %q, expected HH:MM: %w", s, err)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return t, nil
}

func DefaultTimes() []TimeOfDay {
	return []TimeOfDay{
		{Hour: 7, Minute: 30},
		{Hour: 12, Minute: 30},
		{Hour: 21, Minute: 0},
	}
}

type Config struct {
	Times    []TimeOfDay
	Location *time.Location
}

// Job is the work a scheduler tick triggers.
type Job func(ctx context.Context)

// Scheduler fires a job at fixed wall-clock times. A tick that arrives
// while the previous run is still going is skipped, not queued.
type Scheduler struct {
	cfg    Config
	job    Job
	logger *slog.Logger
	now    func() time.Time

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfg Config, job Job, logger *slog.Logger) (*Scheduler, error) {
	if len(cfg.Times) == 0 {
		cfg.Times = DefaultTimes()
	}
	for _, t := range cfg.Times {
		if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
			return nil, fmt.Errorf("invalid schedule time %s", t)
		}
	}
	if cfg.Location == nil {
		loc, err := time.LoadLocation(DefaultTimezone)
		if err != nil {
			return nil, fmt.Errorf("load schedule timezone: %w", err)
		}
		cfg.Location = loc
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:    cfg,
		job:    job,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Start launches the scheduling loop. Calling Start on a started
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	s.logger.Info("scheduler started",
		"times", fmt.Sprint(s.cfg.Times),
		"timezone", s.cfg.Location.String())

	go s.loop(ctx)
}

// Stop cancels the loop and waits for an in-flight run to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	for {
		next := s.nextRun(s.now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.fire(ctx)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("skipping scheduled run, previous run still in progress")
		return
	}
	defer s.running.Store(false)

	start := s.now()
	s.job(ctx)
	s.logger.Info("scheduled run finished", "duration", s.now().Sub(start))
}

// nextRun picks the earliest configured time strictly after now, rolling
// over to the next day when today's triggers have all passed. Computing in
// the configured location keeps DST shifts from drifting the schedule.
func (s *Scheduler) nextRun(now time.Time) time.Time {
	local := now.In(s.cfg.Location)

	var next time.Time
	for dayOffset := 0; dayOffset <= 1; dayOffset++ {
		day := local.AddDate(0, 0, dayOffset)
		for _, t := range s.cfg.Times {
			candidate := time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, s.cfg.Location)
			if !candidate.After(local) {
				continue
			}
			if next.IsZero() || candidate.Before(next) {
				next = candidate
			}
		}
		if !next.IsZero() {
			break
		}
	}
	return next
}
