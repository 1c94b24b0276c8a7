// Package reminder runs the reminder pipeline: fetch due requirements,
// classify, throttle, notify, log, and flip lapsed requirements to expired.
package reminder

//go:generate mockgen -source=pipeline.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"dossier/internal/compliance/metrics"
	"dossier/internal/compliance/models"
	notificationModels "dossier/internal/notification/models"
	"dossier/pkg/calendar"
	id "dossier/pkg/domain"
)

type RequirementStore interface {
	List(ctx context.Context, filter models.RequirementFilter) ([]*models.Requirement, error)
	RecordReminderSent(ctx context.Context, requirementID id.RequirementID, sentAt time.Time) error
	Expire(ctx context.Context, requirementID id.RequirementID, today, at time.Time) (bool, error)
}

type PolicyStore interface {
	ListPolicies(ctx context.Context) (models.PolicySet, error)
}

type LogStore interface {
	Append(ctx context.Context, entry *models.ReminderLogEntry) error
}

// Throttle decides whether a reminder may be sent on a civil date.
type Throttle interface {
	ShouldSend(ctx context.Context, requirementID id.RequirementID, reminderType models.ReminderType, today time.Time) (bool, error)
}

// Notifier is the notification emitter.
type Notifier interface {
	Send(ctx context.Context, msg notificationModels.Message) ([]*notificationModels.Notification, error)
}

// Claimer takes short-lived claims keyed by (requirement, type, day).
type Claimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

const (
	defaultCallTimeout = 10 * time.Second
	defaultConcurrency = 8
	defaultClaimTTL    = 6 * time.Hour
)

// Pipeline orchestrates the four reminder passes.
type Pipeline struct {
	requirements RequirementStore
	policies     PolicyStore
	logs         LogStore
	throttle     Throttle
	notifier     Notifier
	claims       Claimer

	metrics     *metrics.Metrics
	logger      *slog.Logger
	tracer      trace.Tracer
	loc         *time.Location
	now         func() time.Time
	callTimeout time.Duration
	concurrency int
	claimTTL    time.Duration
}

type Option func(*Pipeline)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithClaims enables cross-process claims. Without them only the throttle
// guards against duplicates.
func WithClaims(c Claimer, ttl time.Duration) Option {
	return func(p *Pipeline) {
		p.claims = c
		if ttl > 0 {
			p.claimTTL = ttl
		}
	}
}

// WithLocation sets the organizational timezone "today" is computed in.
func WithLocation(loc *time.Location) Option {
	return func(p *Pipeline) {
		if loc != nil {
			p.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithCallTimeout bounds every store and emitter call.
func WithCallTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.callTimeout = d
		}
	}
}

// WithConcurrency bounds per-requirement parallelism inside a pass.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func New(requirements RequirementStore, policies PolicyStore, logs LogStore, throttle Throttle, notifier Notifier, opts ...Option) (*Pipeline, error) {
	if requirements == nil {
		return nil, fmt.Errorf("requirement store is required")
	}
	if policies == nil {
		return nil, fmt.Errorf("policy store is required")
	}
	if logs == nil {
		return nil, fmt.Errorf("reminder log store is required")
	}
	if throttle == nil {
		return nil, fmt.Errorf("throttle is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	p := &Pipeline{
		requirements: requirements,
		policies:     policies,
		logs:         logs,
		throttle:     throttle,
		notifier:     notifier,
		logger:       slog.Default(),
		tracer:       otel.Tracer("dossier/compliance/reminder"),
		loc:          time.UTC,
		now:          time.Now,
		callTimeout:  defaultCallTimeout,
		concurrency:  defaultConcurrency,
		claimTTL:     defaultClaimTTL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Today is the current civil date in the organizational timezone.
func (p *Pipeline) Today() time.Time {
	return calendar.Day(p.now(), p.loc)
}

// Run executes all four passes once. Per-item failures never abort a pass and
// per-pass failures never abort the run; both are collected into the report.
// The returned error is non-nil only when ctx was cancelled.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	started := p.now()
	today := calendar.Day(started, p.loc)

	ctx, span := p.tracer.Start(ctx, "reminder.pipeline.run",
		trace.WithAttributes(attribute.String("date", today.Format(time.DateOnly))))
	defer span.End()

	report := &Report{Date: today, StartedAt: started}

	policies, err := p.loadPolicies(ctx)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		p.logger.ErrorContext(ctx, "reminder pipeline could not load policies", "error", err)
	}

	for _, pass := range Passes {
		if ctx.Err() != nil {
			break
		}
		report.Passes = append(report.Passes, p.runPass(ctx, pass, policies, today))
	}

	report.FinishedAt = p.now()
	if p.metrics != nil {
		p.metrics.ObserveRun(report.FinishedAt.Sub(started))
	}
	span.SetAttributes(attribute.Int("reminders.sent", report.TotalSent()))
	if report.HasErrors() {
		span.SetStatus(codes.Error, "reminder pipeline finished with errors")
	}

	p.logger.InfoContext(ctx, "reminder pipeline finished",
		"date", today.Format(time.DateOnly),
		"sent", report.TotalSent(),
		"errors", report.HasErrors(),
		"duration", report.FinishedAt.Sub(started),
	)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// RunPass executes a single pass, for operators and tests.
func (p *Pipeline) RunPass(ctx context.Context, pass Pass) (*PassReport, error) {
	policies, err := p.loadPolicies(ctx)
	if err != nil {
		return nil, err
	}
	return p.runPass(ctx, pass, policies, p.Today()), nil
}

func (p *Pipeline) loadPolicies(ctx context.Context) (models.PolicySet, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	policies, err := p.policies.ListPolicies(callCtx)
	if err != nil {
		return nil, fmt.Errorf("load document type policies: %w", err)
	}
	return policies, nil
}

func (p *Pipeline) runPass(ctx context.Context, pass Pass, policies models.PolicySet, today time.Time) *PassReport {
	ctx, span := p.tracer.Start(ctx, "reminder.pipeline.pass",
		trace.WithAttributes(attribute.String("pass", string(pass))))
	defer span.End()

	pr := &PassReport{Pass: pass}
	if policies == nil {
		pr.Errors = append(pr.Errors, "no document type policies loaded")
		span.SetStatus(codes.Error, "no policies")
		return pr
	}

	candidates, err := p.fetch(ctx, pass, policies, today)
	if err != nil {
		pr.Errors = append(pr.Errors, err.Error())
		p.logger.ErrorContext(ctx, "reminder pass could not fetch requirements", "pass", pass, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return pr
	}

	results := make([]ItemResult, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, req := range candidates {
		g.Go(func() error {
			results[i] = p.processItem(gctx, pass, req, policies, today)
			return nil
		})
	}
	_ = g.Wait()

	for _, item := range results {
		pr.add(item)
	}
	span.SetAttributes(
		attribute.Int("processed", pr.Processed),
		attribute.Int("sent", pr.Sent),
		attribute.Int("failed", pr.Failed),
	)
	p.logger.InfoContext(ctx, "reminder pass finished",
		"pass", pass,
		"processed", pr.Processed,
		"sent", pr.Sent,
		"throttled", pr.Throttled,
		"skipped", pr.Skipped,
		"flagged", pr.Flagged,
		"failed", pr.Failed,
		"expired", pr.Expired,
	)
	return pr
}

// fetch narrows the store query to the widest window any policy could act
// on. Per-policy tiers are decided afterwards by the classifier.
func (p *Pipeline) fetch(ctx context.Context, pass Pass, policies models.PolicySet, today time.Time) ([]*models.Requirement, error) {
	horizon := calendar.AddDays(today, policies.MaxReminderBeforeDays())
	live := []models.RequirementStatus{models.StatusSubmitted, models.StatusApproved}

	var filter models.RequirementFilter
	switch pass {
	case PassExpiring:
		filter = models.RequirementFilter{Statuses: live, ExpirationFrom: &today, ExpirationTo: &horizon}
	case PassExpired:
		yesterday := calendar.AddDays(today, -1)
		filter = models.RequirementFilter{Statuses: live, ExpirationTo: &yesterday}
	case PassPending:
		filter = models.RequirementFilter{Statuses: []models.RequirementStatus{models.StatusPending}, RequiredBy: &horizon}
	case PassRenewal:
		until := calendar.AddDays(today, renewalWindowDays)
		filter = models.RequirementFilter{Statuses: []models.RequirementStatus{models.StatusApproved}, RenewalFrom: &today, RenewalTo: &until}
	default:
		return nil, fmt.Errorf("unknown pass %q", pass)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	reqs, err := p.requirements.List(callCtx, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch %s candidates: %w", pass, err)
	}
	return reqs, nil
}
