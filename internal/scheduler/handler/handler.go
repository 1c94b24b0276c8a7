package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dossier/internal/scheduler"
	"dossier/pkg/platform/httputil"
	"dossier/pkg/requestcontext"
)

// Scheduler is the subset of the job registry the ops API drives.
type Scheduler interface {
	Status() []scheduler.Status
	StartAll()
	StopAll()
	Start(name string) error
	Stop(name string) error
	RunManually(ctx context.Context, name string) error
}

type Handler struct {
	scheduler Scheduler
	logger    *slog.Logger
}

func New(s Scheduler, logger *slog.Logger) *Handler {
	return &Handler{scheduler: s, logger: logger}
}

// Register mounts the job endpoints. Callers wrap r with admin auth.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/jobs", h.HandleStatus)
	r.Post("/admin/jobs/start", h.HandleStartAll)
	r.Post("/admin/jobs/stop", h.HandleStopAll)
	r.Post("/admin/jobs/{name}/start", h.HandleStart)
	r.Post("/admin/jobs/{name}/stop", h.HandleStop)
	r.Post("/admin/jobs/{name}/run", h.HandleRun)
}

type statusResponse struct {
	Jobs []scheduler.Status `json:"jobs"`
}

type runResponse struct {
	Job       string `json:"job"`
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error,omitempty"`
}

func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, statusResponse{Jobs: h.scheduler.Status()})
}

func (h *Handler) HandleStartAll(w http.ResponseWriter, r *http.Request) {
	h.scheduler.StartAll()
	h.logger.InfoContext(r.Context(), "all jobs started by operator",
		"user_id", requestcontext.UserID(r.Context()),
		"request_id", requestcontext.RequestID(r.Context()),
	)
	httputil.WriteJSON(w, http.StatusOK, statusResponse{Jobs: h.scheduler.Status()})
}

func (h *Handler) HandleStopAll(w http.ResponseWriter, r *http.Request) {
	h.scheduler.StopAll()
	h.logger.InfoContext(r.Context(), "all jobs stopped by operator",
		"user_id", requestcontext.UserID(r.Context()),
		"request_id", requestcontext.RequestID(r.Context()),
	)
	httputil.WriteJSON(w, http.StatusOK, statusResponse{Jobs: h.scheduler.Status()})
}

func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduler.Start(chi.URLParam(r, "name")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statusResponse{Jobs: h.scheduler.Status()})
}

func (h *Handler) HandleStop(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduler.Stop(chi.URLParam(r, "name")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statusResponse{Jobs: h.scheduler.Status()})
}

// HandleRun runs a job synchronously. A failing job answers 500 with the
// job's error; an unknown job answers 404.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	if !h.known(name) {
		httputil.WriteError(w, h.scheduler.RunManually(ctx, name))
		return
	}

	err := h.scheduler.RunManually(ctx, name)
	if err != nil {
		h.logger.ErrorContext(ctx, "manual job run failed",
			"job", name,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteJSON(w, http.StatusInternalServerError, runResponse{Job: name, Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, runResponse{Job: name, Succeeded: true})
}

func (h *Handler) known(name string) bool {
	for _, st := range h.scheduler.Status() {
		if st.Name == name {
			return true
		}
	}
	return false
}
