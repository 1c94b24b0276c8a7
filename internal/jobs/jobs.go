// Package jobs binds the standard compliance jobs to a scheduler.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dossier/internal/compliance/maintenance"
	"dossier/internal/compliance/reminder"
	"dossier/internal/compliance/report"
	"dossier/internal/notification/models"
	"dossier/internal/platform/config"
	"dossier/internal/scheduler"
	"dossier/pkg/platform/audit"
)

const (
	DocumentReminders   = "document_reminders"
	DailyMaintenance    = "daily_maintenance"
	NotificationCleanup = "notification_cleanup"
	WeeklyReports       = "weekly_reports"

	defaultCallTimeout = 10 * time.Second
)

type Registrar interface {
	Register(name string, schedule scheduler.Schedule, handler scheduler.Handler) error
}

type ReminderRunner interface {
	Run(ctx context.Context) (*reminder.Report, error)
}

type MaintenanceRunner interface {
	Run(ctx context.Context) (*maintenance.Result, error)
}

type ReportBuilder interface {
	Build(ctx context.Context) (*report.Weekly, error)
}

type Notifier interface {
	NotifyAdmins(ctx context.Context, msg models.Message) ([]*models.Notification, error)
	CleanupRead(ctx context.Context, retention time.Duration) (int, error)
}

// Deps are the services the standard jobs drive.
type Deps struct {
	Reminders   ReminderRunner
	Maintenance MaintenanceRunner
	Reports     ReportBuilder
	Notifier    Notifier
	Logger      *slog.Logger
	// CallTimeout bounds each notifier call the jobs make directly.
	CallTimeout time.Duration
}

func (d Deps) validate() error {
	switch {
	case d.Reminders == nil:
		return fmt.Errorf("reminder runner is required")
	case d.Maintenance == nil:
		return fmt.Errorf("maintenance runner is required")
	case d.Reports == nil:
		return fmt.Errorf("report builder is required")
	case d.Notifier == nil:
		return fmt.Errorf("notifier is required")
	}
	return nil
}

// Register adds the four standard jobs to s with the cadence from cfg,
// evaluated in loc. Jobs are registered stopped.
func Register(s Registrar, cfg config.JobsConfig, loc *time.Location, deps Deps) error {
	if err := deps.validate(); err != nil {
		return err
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.CallTimeout <= 0 {
		deps.CallTimeout = defaultCallTimeout
	}

	remindersH, remindersM, err := config.ParseClock(cfg.RemindersAt)
	if err != nil {
		return err
	}
	maintenanceH, maintenanceM, err := config.ParseClock(cfg.MaintenanceAt)
	if err != nil {
		return err
	}
	cleanupH, cleanupM, err := config.ParseClock(cfg.CleanupAt)
	if err != nil {
		return err
	}
	cleanupDay, err := config.ParseWeekday(cfg.CleanupWeekday)
	if err != nil {
		return err
	}
	reportH, reportM, err := config.ParseClock(cfg.ReportAt)
	if err != nil {
		return err
	}
	reportDay, err := config.ParseWeekday(cfg.ReportWeekday)
	if err != nil {
		return err
	}
	retention := time.Duration(cfg.NotificationRetentionDays) * 24 * time.Hour

	jobs := []struct {
		name     string
		schedule scheduler.Schedule
		handler  scheduler.Handler
	}{
		{DocumentReminders, scheduler.Daily(remindersH, remindersM, loc), reminders(deps)},
		{DailyMaintenance, scheduler.Daily(maintenanceH, maintenanceM, loc), dailyMaintenance(deps)},
		{NotificationCleanup, scheduler.Weekly(cleanupDay, cleanupH, cleanupM, loc), cleanup(deps, retention)},
		{WeeklyReports, scheduler.Weekly(reportDay, reportH, reportM, loc), weeklyReport(deps)},
	}
	for _, j := range jobs {
		if err := s.Register(j.name, j.schedule, j.handler); err != nil {
			return fmt.Errorf("register %s: %w", j.name, err)
		}
	}
	return nil
}

// reminders fails the run when any pass recorded an error, so scheduled runs
// with lost reminders reach the failure hook.
func reminders(deps Deps) scheduler.Handler {
	return func(ctx context.Context) error {
		rep, err := deps.Reminders.Run(ctx)
		if err != nil {
			return err
		}
		errs := len(rep.Errors)
		for _, p := range rep.Passes {
			errs += len(p.Errors)
		}
		if errs > 0 {
			return fmt.Errorf("reminder run finished with %d errors, %d reminders sent", errs, rep.TotalSent())
		}
		return nil
	}
}

func dailyMaintenance(deps Deps) scheduler.Handler {
	return func(ctx context.Context) error {
		_, err := deps.Maintenance.Run(ctx)
		return err
	}
}

func cleanup(deps Deps, retention time.Duration) scheduler.Handler {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, deps.CallTimeout)
		defer cancel()
		_, err := deps.Notifier.CleanupRead(ctx, retention)
		return err
	}
}

func weeklyReport(deps Deps) scheduler.Handler {
	return func(ctx context.Context) error {
		w, err := deps.Reports.Build(ctx)
		if err != nil {
			return err
		}
		callCtx, cancel := context.WithTimeout(ctx, deps.CallTimeout)
		sent, err := deps.Notifier.NotifyAdmins(callCtx, models.Message{
			Title:    w.Title(),
			Message:  w.Summary(),
			Type:     models.TypeInfo,
			Priority: models.PriorityMedium,
			Data:     w.Data(),
		})
		cancel()
		if err != nil {
			return fmt.Errorf("deliver weekly report: %w", err)
		}
		deps.Logger.InfoContext(ctx, "weekly report delivered",
			"period_start", w.PeriodStart.Format(time.DateOnly),
			"period_end", w.PeriodEnd.Format(time.DateOnly),
			"recipients", len(sent),
		)
		return nil
	}
}

// FailureHook alerts administrators when a scheduled run fails. Alert
// delivery errors are logged and dropped. The alert outlives the run's
// cancellation but not timeout.
func FailureHook(notifier Notifier, logger *slog.Logger, timeout time.Duration) scheduler.FailureHook {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return func(ctx context.Context, job string, jobErr error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		_, err := notifier.NotifyAdmins(ctx, models.Message{
			Title:    "Falla en tarea programada: " + job,
			Message:  fmt.Sprintf("La tarea %s falló: %v", job, jobErr),
			Type:     models.TypeError,
			Priority: models.PriorityHigh,
			Data: map[string]any{
				"job":   job,
				"error": jobErr.Error(),
			},
		})
		if err != nil {
			logger.ErrorContext(ctx, "failed to alert administrators", "job", job, "error", err)
			return
		}
		audit.LogAudit(ctx, logger, "job_failure_alerted", "job", job)
	}
}
