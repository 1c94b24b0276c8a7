package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dossier/internal/compliance/models"
	"dossier/internal/compliance/reminder"
	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
	"dossier/pkg/platform/httputil"
	"dossier/pkg/requestcontext"
)

// Pipeline runs the reminder passes on demand.
type Pipeline interface {
	Run(ctx context.Context) (*reminder.Report, error)
	RunPass(ctx context.Context, pass reminder.Pass) (*reminder.PassReport, error)
}

// Snapshots computes compliance snapshots.
type Snapshots interface {
	Snapshot(ctx context.Context, userID id.UserID) (*models.ComplianceSnapshot, error)
}

type Handler struct {
	pipeline  Pipeline
	snapshots Snapshots
	logger    *slog.Logger
}

func New(pipeline Pipeline, snapshots Snapshots, logger *slog.Logger) *Handler {
	return &Handler{pipeline: pipeline, snapshots: snapshots, logger: logger}
}

// RegisterUser mounts endpoints for any authenticated caller.
func (h *Handler) RegisterUser(r chi.Router) {
	r.Get("/compliance/me", h.HandleMySnapshot)
}

// RegisterAdmin mounts operator endpoints. Callers wrap r with admin auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/reminders/run", h.HandleRunReminders)
	r.Get("/admin/compliance/{userID}", h.HandleUserSnapshot)
}

// HandleRunReminders handles POST /admin/reminders/run[?pass=expiring].
func (h *Handler) HandleRunReminders(w http.ResponseWriter, r *http.Request) {
	ctx := requestcontext.WithTrigger(r.Context(), "manual")
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	if raw := r.URL.Query().Get("pass"); raw != "" {
		pass, ok := parsePass(raw)
		if !ok {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown pass "+raw))
			return
		}
		pr, err := h.pipeline.RunPass(ctx, pass)
		if err != nil {
			h.logger.ErrorContext(ctx, "manual reminder pass failed", "pass", pass, "request_id", requestID, "error", err)
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "reminder pass could not start"))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, pr)
		return
	}

	report, err := h.pipeline.Run(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "manual reminder run interrupted", "request_id", requestID, "error", err)
		if report == nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeTimeout, "reminder run interrupted"))
			return
		}
	}

	h.logger.InfoContext(ctx, "manual reminder run finished",
		"request_id", requestID,
		"user_id", requestcontext.UserID(ctx),
		"sent", report.TotalSent(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleMySnapshot handles GET /compliance/me.
func (h *Handler) HandleMySnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	h.writeSnapshot(w, r, userID)
}

// HandleUserSnapshot handles GET /admin/compliance/{userID}.
func (h *Handler) HandleUserSnapshot(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}
	h.writeSnapshot(w, r, userID)
}

func (h *Handler) writeSnapshot(w http.ResponseWriter, r *http.Request, userID id.UserID) {
	ctx := r.Context()
	snap, err := h.snapshots.Snapshot(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "compliance snapshot failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func parsePass(raw string) (reminder.Pass, bool) {
	for _, p := range reminder.Passes {
		if string(p) == raw {
			return p, true
		}
	}
	return "", false
}
