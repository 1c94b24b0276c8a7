package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dossier/internal/jwt_token"
	"dossier/internal/scheduler"
	schedulerhandler "dossier/internal/scheduler/handler"
	id "dossier/pkg/domain"
)

func newTestRouter(t *testing.T, checks map[string]HealthCheck) (http.Handler, *jwttoken.JWTService) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := jwttoken.NewJWTService("test-signing-key", "dossier")
	sched := scheduler.New(scheduler.WithLogger(logger))
	require.NoError(t, sched.Register("document_reminders", scheduler.Daily(8, 0, time.UTC), func(context.Context) error { return nil }))

	return NewRouter(Deps{
		Logger: logger,
		Tokens: tokens.Validator(),
		Jobs:   schedulerhandler.New(sched, logger),
		Health: checks,
	}), tokens
}

func bearer(t *testing.T, tokens *jwttoken.JWTService, role string) string {
	t.Helper()
	tok, err := tokens.GenerateAccessToken(id.NewUserID(), role, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	router, tokens := newTestRouter(t, nil)

	cases := []struct {
		name   string
		auth   string
		status int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"employee", bearer(t, tokens, "employee"), http.StatusForbidden},
		{"admin", bearer(t, tokens, "admin"), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/jobs", nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestHealth(t *testing.T) {
	t.Run("no checks", func(t *testing.T) {
		router, _ := newTestRouter(t, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("failing dependency", func(t *testing.T) {
		router, _ := newTestRouter(t, map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body healthResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "degraded", body.Status)
		assert.Equal(t, "ok", body.Checks["postgres"])
		assert.Equal(t, "connection refused", body.Checks["redis"])
	})
}
