package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"dossier/internal/platform/config"
)

// New builds the ops API server. WriteTimeout is generous because a manual
// pipeline run answers synchronously. Server-level errors (TLS handshakes,
// broken connections) go to logger at warn level.
func New(cfg config.Server, handler http.Handler, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
}
