// Package httptransport assembles the HTTP surface from the per-context
// handlers. Handlers own their routes; this package owns middleware order and
// the auth boundary.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	compliancehandler "dossier/internal/compliance/handler"
	notificationhandler "dossier/internal/notification/handler"
	"dossier/internal/notification/store/directory"
	schedulerhandler "dossier/internal/scheduler/handler"
	"dossier/pkg/platform/httputil"
	authmw "dossier/pkg/platform/middleware/auth"
	"dossier/pkg/platform/middleware/request"
)

// HealthCheck probes one backing dependency.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Logger        *slog.Logger
	Tokens        authmw.JWTValidator
	Compliance    *compliancehandler.Handler
	Notifications *notificationhandler.Handler
	Jobs          *schedulerhandler.Handler
	Metrics       http.Handler
	Health        map[string]HealthCheck
}

// NewRouter wires public, authenticated and admin routes.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Time)
	r.Use(request.Logger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", health(d.Health))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(d.Tokens, logger))
		if d.Compliance != nil {
			d.Compliance.RegisterUser(r)
		}
		if d.Notifications != nil {
			d.Notifications.Register(r)
		}

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireRole(directory.RoleAdmin, logger))
			if d.Compliance != nil {
				d.Compliance.RegisterAdmin(r)
			}
			if d.Jobs != nil {
				d.Jobs.Register(r)
			}
		})
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func health(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(names) > 0 {
			resp.Checks = make(map[string]string, len(names))
		}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
