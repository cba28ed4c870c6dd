package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/billsync/pkg/logger"
)

// JobFunc is the body of a periodic job.
type JobFunc func(ctx context.Context) error

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCheckInterval sets how often due jobs are looked for. Defaults to one second.
func WithCheckInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.checkInterval = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// JobOption configures a single job.
type JobOption func(*job)

// RunOnStart makes the job due as soon as the scheduler starts.
func RunOnStart() JobOption {
	return func(j *job) { j.runOnStart = true }
}

type job struct {
	name       string
	schedule   Schedule
	fn         JobFunc
	runOnStart bool

	next    time.Time
	running atomic.Bool
}

// Scheduler runs registered jobs on their schedules.
type Scheduler struct {
	mu            sync.Mutex
	jobs          map[string]*job
	started       bool
	checkInterval time.Duration
	now           func() time.Time
	logger        *slog.Logger
	wg            sync.WaitGroup
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs:          make(map[string]*job),
		checkInterval: time.Second,
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddJob registers fn under name. Jobs must be added before Start.
func (s *Scheduler) AddJob(name string, schedule Schedule, fn JobFunc, opts ...JobOption) error {
	if name == "" || schedule == nil || fn == nil {
		return ErrInvalidJob
	}

	j := &job{name: name, schedule: schedule, fn: fn}
	for _, opt := range opts {
		opt(j)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyRegistered, name)
	}
	s.jobs[name] = j

	s.logger.Info("registered periodic job",
		logger.Job(name),
		slog.String("schedule", schedule.String()))
	return nil
}

// Jobs returns the registered job names in lexical order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start blocks until ctx is done, then waits for running jobs to return.
// Jobs receive ctx, so cancellation reaches them.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if len(s.jobs) == 0 {
		s.mu.Unlock()
		return ErrNoJobs
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true

	jobs := make([]*job, 0, len(s.jobs))
	now := s.now()
	for _, j := range s.jobs {
		if j.runOnStart {
			j.next = now
		} else {
			j.next = j.schedule.Next(now)
		}
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	s.dispatch(ctx, jobs)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler shutting down")
			s.wg.Wait()
			return nil
		case <-ticker.C:
			s.dispatch(ctx, jobs)
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context, jobs []*job) {
	now := s.now()
	for _, j := range jobs {
		if now.Before(j.next) {
			continue
		}
		j.next = j.schedule.Next(now)

		if !j.running.CompareAndSwap(false, true) {
			s.logger.Warn("periodic job still running, skipping tick",
				logger.Job(j.name))
			continue
		}

		s.wg.Add(1)
		go s.run(ctx, j)
	}
}

func (s *Scheduler) run(ctx context.Context, j *job) {
	defer s.wg.Done()
	defer j.running.Store(false)

	start := s.now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "periodic job panicked",
				logger.Job(j.name),
				slog.Any("panic", r))
		}
	}()

	if err := j.fn(ctx); err != nil {
		s.logger.ErrorContext(ctx, "periodic job failed",
			logger.Job(j.name),
			logger.Duration(s.now().Sub(start)),
			logger.Error(err))
		return
	}

	s.logger.DebugContext(ctx, "periodic job finished",
		logger.Job(j.name),
		logger.Duration(s.now().Sub(start)))
}
