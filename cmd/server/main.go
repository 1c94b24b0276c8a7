package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dossier/internal/compliance/aggregate"
	compliancehandler "dossier/internal/compliance/handler"
	"dossier/internal/compliance/maintenance"
	compliancemetrics "dossier/internal/compliance/metrics"
	"dossier/internal/compliance/reminder"
	"dossier/internal/compliance/report"
	"dossier/internal/compliance/store/claim"
	"dossier/internal/compliance/throttle"
	"dossier/internal/jobs"
	"dossier/internal/jwt_token"
	notificationhandler "dossier/internal/notification/handler"
	notificationmetrics "dossier/internal/notification/metrics"
	"dossier/internal/notification/publisher"
	"dossier/internal/notification/service"
	"dossier/internal/platform/config"
	"dossier/internal/platform/httpserver"
	"dossier/internal/platform/logger"
	"dossier/internal/platform/metrics"
	"dossier/internal/platform/redis"
	"dossier/internal/scheduler"
	schedulerhandler "dossier/internal/scheduler/handler"
	schedulermetrics "dossier/internal/scheduler/metrics"
	httptransport "dossier/internal/transport/http"
	"dossier/pkg/platform/circuit"
)

var version = "dev"

// main wires high-level dependencies and owns the process lifecycle. Business
// logic lives in the internal service packages.
func main() {
	if err := run(); err != nil {
		slog.Error("dossier exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)
	loc, err := cfg.Reminder.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := metrics.New(version)
	complianceMetrics := compliancemetrics.New(registry.Registerer())

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	notifier, closeNotifier, err := buildNotifier(ctx, cfg, st, registry, log)
	if err != nil {
		return err
	}
	defer closeNotifier()

	claims, closeClaims, err := buildClaims(ctx, cfg, st, log)
	if err != nil {
		return err
	}
	defer closeClaims()

	thr, err := throttle.New(st.logs, throttle.WithLogger(log), throttle.WithLocation(loc))
	if err != nil {
		return err
	}
	pipeline, err := reminder.New(st.requirements, st.policies, st.logs, thr, notifier,
		reminder.WithLogger(log),
		reminder.WithMetrics(complianceMetrics),
		reminder.WithLocation(loc),
		reminder.WithCallTimeout(cfg.Reminder.CallTimeout),
		reminder.WithConcurrency(cfg.Reminder.Concurrency),
		reminder.WithClaims(claims, cfg.Reminder.ClaimTTL),
	)
	if err != nil {
		return err
	}
	snapshots, err := aggregate.New(st.requirements, st.documents,
		aggregate.WithLogger(log),
		aggregate.WithLocation(loc),
	)
	if err != nil {
		return err
	}
	upkeep, err := maintenance.New(st.requirements, st.logs,
		maintenance.WithLogger(log),
		maintenance.WithMetrics(complianceMetrics),
		maintenance.WithLocation(loc),
		maintenance.WithLogRetentionMonths(cfg.Jobs.LogRetentionMonths),
		maintenance.WithCallTimeout(cfg.Reminder.CallTimeout),
	)
	if err != nil {
		return err
	}
	reports, err := report.New(st.requirements, st.logs, snapshots,
		report.WithLogger(log),
		report.WithLocation(loc),
		report.WithWindowDays(cfg.Jobs.ReportWindowDays),
		report.WithCallTimeout(cfg.Reminder.CallTimeout),
	)
	if err != nil {
		return err
	}

	// Scheduled runs outlive the signal context so shutdown can let them
	// finish; cancelJobs aborts them once the shutdown deadline passes.
	jobsCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelJobs()
	sched := scheduler.New(
		scheduler.WithLogger(log),
		scheduler.WithMetrics(schedulermetrics.New(registry.Registerer())),
		scheduler.WithFailureHook(jobs.FailureHook(notifier, log, cfg.Reminder.CallTimeout)),
		scheduler.WithBaseContext(jobsCtx),
	)
	if err := jobs.Register(sched, cfg.Jobs, loc, jobs.Deps{
		Reminders:   pipeline,
		Maintenance: upkeep,
		Reports:     reports,
		Notifier:    notifier,
		Logger:      log,
		CallTimeout: cfg.Reminder.CallTimeout,
	}); err != nil {
		return err
	}
	if cfg.Jobs.AutoStart {
		sched.StartAll()
	}

	tokens := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer)
	router := httptransport.NewRouter(httptransport.Deps{
		Logger:        log,
		Tokens:        tokens.Validator(),
		Compliance:    compliancehandler.New(pipeline, snapshots, log),
		Notifications: notificationhandler.New(notifier, log),
		Jobs:          schedulerhandler.New(sched, log),
		Metrics:       registry.Handler(),
		Health:        st.health,
	})
	srv := httpserver.New(cfg.Server, router, log)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting dossier", "addr", cfg.Server.Addr, "version", version, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	sched.StopAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", "error", err)
	}

	jobsDone := make(chan struct{})
	go func() {
		sched.Wait()
		close(jobsDone)
	}()
	select {
	case <-jobsDone:
	case <-shutdownCtx.Done():
		log.Warn("aborting in-flight jobs", "timeout", cfg.Server.ShutdownTimeout)
		cancelJobs()
		<-jobsDone
	}
	log.Info("dossier stopped")
	return nil
}

func buildNotifier(ctx context.Context, cfg *config.Config, st *stores, registry *metrics.Registry, log *slog.Logger) (*service.Service, func(), error) {
	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(notificationmetrics.New(registry.Registerer())),
	}
	closeFn := func() {}

	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := publisher.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Kafka.CreateTopic {
			topicCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := kafka.EnsureTopic(topicCtx, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor)
			cancel()
			if err != nil {
				kafka.Close()
				return nil, nil, err
			}
		}
		breaker := circuit.New("kafka-notifications",
			circuit.WithFailureThreshold(cfg.Kafka.BreakerFailures),
			circuit.WithCooldown(cfg.Kafka.BreakerCooldown),
		)
		opts = append(opts, service.WithPusher(kafka, breaker))
		st.health["kafka"] = kafka.Health
		closeFn = kafka.Close
		log.Info("notification push enabled", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
	}

	svc, err := service.New(st.notifications, st.directory, opts...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return svc, closeFn, nil
}

func buildClaims(ctx context.Context, cfg *config.Config, st *stores, log *slog.Logger) (reminder.Claimer, func(), error) {
	if cfg.Redis.URL == "" {
		log.Info("redis not configured, reminder claims are process-local")
		return claim.NewInMemory(), func() {}, nil
	}
	client, err := redis.Open(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	st.health["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	return claim.NewRedis(client), func() { _ = client.Close() }, nil
}
