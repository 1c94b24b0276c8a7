// Package scheduler runs named jobs on structured schedules.
//
// Jobs are registered stopped. StartAll/Start arm a timer loop per job;
// StopAll/Stop disarm it without interrupting a run already in flight.
// RunManually executes a job synchronously regardless of its timer.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dossier/internal/scheduler/metrics"
	dErrors "dossier/pkg/domain-errors"
	"dossier/pkg/platform/audit"
	"dossier/pkg/requestcontext"
)

const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// Handler is the body of a job. It must tolerate concurrent invocations.
type Handler func(ctx context.Context) error

// FailureHook is told about failed scheduled runs.
type FailureHook func(ctx context.Context, job string, err error)

// Status is the externally visible state of one job.
type Status struct {
	Name         string     `json:"name"`
	Running      bool       `json:"running"`
	Schedule     string     `json:"schedule"`
	Timezone     string     `json:"timezone"`
	InFlight     int        `json:"in_flight"`
	Runs         int        `json:"runs"`
	LastRunAt    *time.Time `json:"last_run_at,omitempty"`
	LastDuration string     `json:"last_duration,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	NextRunAt    *time.Time `json:"next_run_at,omitempty"`
}

type job struct {
	name     string
	schedule Schedule
	handler  Handler

	running  bool
	gen      int
	cancel   context.CancelFunc
	inFlight int
	runs     int
	lastRun  *time.Time
	lastDur  time.Duration
	lastErr  string
	nextRun  *time.Time
}

// Scheduler is the job registry. The zero value is not usable; call New.
type Scheduler struct {
	mu    sync.Mutex
	jobs  map[string]*job
	order []string
	wg    sync.WaitGroup

	base      context.Context
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	now       func() time.Time
	after     func(time.Duration) <-chan time.Time
	onFailure FailureHook
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithClock replaces the wall clock and timer source, for tests.
func WithClock(now func() time.Time, after func(time.Duration) <-chan time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
		if after != nil {
			s.after = after
		}
	}
}

// WithFailureHook is called after every failed scheduled run.
func WithFailureHook(hook FailureHook) Option {
	return func(s *Scheduler) {
		s.onFailure = hook
	}
}

// WithBaseContext sets the parent context of scheduled runs. Cancelling it
// aborts in-flight scheduled runs and stops every timer loop.
func WithBaseContext(ctx context.Context) Option {
	return func(s *Scheduler) {
		if ctx != nil {
			s.base = ctx
		}
	}
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs:   make(map[string]*job),
		base:   context.Background(),
		logger: slog.Default(),
		tracer: otel.Tracer("dossier/scheduler"),
		now:    time.Now,
		after:  time.After,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds or replaces a job definition. A new job starts stopped; a
// replaced job keeps its running state and is re-armed with the new schedule.
func (s *Scheduler) Register(name string, schedule Schedule, handler Handler) error {
	if name == "" {
		return dErrors.New(dErrors.CodeValidation, "job name is required")
	}
	if handler == nil {
		return dErrors.New(dErrors.CodeValidation, "job handler is required")
	}
	if err := schedule.Validate(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid schedule for job "+name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[name]; ok {
		wasRunning := existing.running
		s.stopLocked(existing)
		existing.schedule = schedule
		existing.handler = handler
		if wasRunning {
			s.startLocked(existing)
		}
		s.logger.Info("job re-registered", "job", name, "schedule", schedule.String())
		return nil
	}

	s.jobs[name] = &job{name: name, schedule: schedule, handler: handler}
	s.order = append(s.order, name)
	s.logger.Info("job registered", "job", name, "schedule", schedule.String())
	return nil
}

// StartAll arms every registered job. Already running jobs are left alone.
func (s *Scheduler) StartAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range s.order {
		s.startLocked(s.jobs[name])
	}
}

// StopAll disarms every job. In-flight runs finish; use Wait to join them.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range s.order {
		s.stopLocked(s.jobs[name])
	}
}

func (s *Scheduler) Start(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return unknownJob(name)
	}
	s.startLocked(j)
	return nil
}

func (s *Scheduler) Stop(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return unknownJob(name)
	}
	s.stopLocked(j)
	return nil
}

// RunManually executes the job once and waits for it, whether or not its
// timer is running. The handler's error is returned as is.
func (s *Scheduler) RunManually(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return unknownJob(name)
	}
	return s.execute(requestcontext.WithTrigger(ctx, TriggerManual), j)
}

// Status lists every job in registration order.
func (s *Scheduler) Status() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Status, 0, len(s.order))
	for _, name := range s.order {
		j := s.jobs[name]
		st := Status{
			Name:      j.name,
			Running:   j.running,
			Schedule:  j.schedule.Cron(),
			Timezone:  j.schedule.Timezone(),
			InFlight:  j.inFlight,
			Runs:      j.runs,
			LastRunAt: copyTime(j.lastRun),
			LastError: j.lastErr,
		}
		if j.lastRun != nil {
			st.LastDuration = j.lastDur.String()
		}
		if j.running {
			st.NextRunAt = copyTime(j.nextRun)
		}
		out = append(out, st)
	}
	return out
}

// Wait blocks until every timer loop has exited and every scheduled run
// started by them has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) startLocked(j *job) {
	if j.running {
		return
	}
	ctx, cancel := context.WithCancel(s.base)
	j.running = true
	j.gen++
	j.cancel = cancel
	next := j.schedule.Next(s.now())
	j.nextRun = &next
	if s.metrics != nil {
		s.metrics.SetRunning(j.name, true)
	}
	s.wg.Add(1)
	go s.loop(ctx, j, j.schedule, j.gen)
	s.logger.Info("job started", "job", j.name, "next_run_at", next)
}

func (s *Scheduler) stopLocked(j *job) {
	if !j.running {
		return
	}
	j.cancel()
	j.running = false
	j.cancel = nil
	j.nextRun = nil
	if s.metrics != nil {
		s.metrics.SetRunning(j.name, false)
	}
	s.logger.Info("job stopped", "job", j.name)
}

func (s *Scheduler) loop(ctx context.Context, j *job, schedule Schedule, gen int) {
	defer s.wg.Done()
	for {
		next := schedule.Next(s.now())
		s.mu.Lock()
		if j.running && j.gen == gen {
			j.nextRun = &next
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-s.after(next.Sub(s.now())):
		}
		if ctx.Err() != nil {
			return
		}

		runCtx := requestcontext.WithTrigger(s.base, TriggerSchedule)
		if err := s.execute(runCtx, j); err != nil && s.onFailure != nil {
			s.onFailure(runCtx, j.name, err)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, j *job) error {
	trigger := requestcontext.Trigger(ctx)
	ctx, span := s.tracer.Start(ctx, "scheduler.job",
		trace.WithAttributes(
			attribute.String("job", j.name),
			attribute.String("trigger", trigger),
		))
	defer span.End()

	s.mu.Lock()
	j.inFlight++
	handler := j.handler
	s.mu.Unlock()

	started := s.now()
	s.logger.InfoContext(ctx, "job run started", "job", j.name, "trigger", trigger)
	err := safeRun(ctx, handler)
	finished := s.now()
	dur := finished.Sub(started)

	s.mu.Lock()
	j.inFlight--
	j.runs++
	j.lastRun = &started
	j.lastDur = dur
	j.lastErr = ""
	if err != nil {
		j.lastErr = err.Error()
	}
	s.mu.Unlock()

	outcome := "success"
	if err != nil {
		outcome = "failure"
		span.RecordError(err)
		span.SetStatus(codes.Error, "job failed")
		s.logger.ErrorContext(ctx, "job run failed", "job", j.name, "trigger", trigger, "duration", dur, "error", err)
		audit.LogAudit(ctx, s.logger, "job_failed", "job", j.name, "error", err.Error())
	} else {
		s.logger.InfoContext(ctx, "job run finished", "job", j.name, "trigger", trigger, "duration", dur)
	}
	if s.metrics != nil {
		s.metrics.ObserveRun(j.name, trigger, outcome, dur)
	}
	return err
}

// safeRun turns a handler panic into an error so one bad run cannot take the
// timer loop down with it.
func safeRun(ctx context.Context, h Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return h(ctx)
}

func unknownJob(name string) error {
	return dErrors.New(dErrors.CodeNotFound, "unknown job "+name)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
