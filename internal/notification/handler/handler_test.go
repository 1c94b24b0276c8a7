package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"dossier/internal/notification/models"
	"dossier/internal/notification/service"
	"dossier/internal/notification/store/directory"
	"dossier/internal/notification/store/notification"
	id "dossier/pkg/domain"
	"dossier/pkg/testutil"
)

// =============================================================================
// Inbox API Test Suite
// =============================================================================

type HandlerSuite struct {
	suite.Suite
	service *service.Service
	router  chi.Router
	alice   id.UserID
	bob     id.UserID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	svc, err := service.New(notification.NewInMemory(), directory.NewInMemory())
	s.Require().NoError(err)
	s.service = svc
	s.alice = id.NewUserID()
	s.bob = id.NewUserID()

	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *HandlerSuite) send(to id.UserID, title string) *models.Notification {
	sent, err := s.service.Send(context.Background(), models.Message{
		Recipients: []id.UserID{to},
		Title:      title,
		Message:    title,
		Type:       models.TypeWarning,
		Priority:   models.PriorityHigh,
	})
	s.Require().NoError(err)
	s.Require().Len(sent, 1)
	return sent[0]
}

func (s *HandlerSuite) as(userID id.UserID, method, path string) *httptest.ResponseRecorder {
	req := testutil.AsUser(httptest.NewRequest(method, path, nil), userID, "employee")
	return testutil.Do(s.router, req)
}

func (s *HandlerSuite) list(userID id.UserID, query string) listResponse {
	rec := s.as(userID, http.MethodGet, "/notifications"+query)
	s.Require().Equal(http.StatusOK, rec.Code)
	return testutil.DecodeJSON[listResponse](s.T(), rec)
}

func (s *HandlerSuite) TestListOwnNotifications() {
	s.send(s.alice, "Licencia de conducir vence en 5 días")
	s.send(s.alice, "Seguro vence mañana")
	s.send(s.bob, "Recordatorio")

	body := s.list(s.alice, "")
	s.Len(body.Notifications, 2)
	s.Equal(2, body.Unread)
	for _, n := range body.Notifications {
		s.Equal(s.alice, n.RecipientID)
	}
}

func (s *HandlerSuite) TestListEmptyInbox() {
	body := s.list(s.alice, "")
	s.NotNil(body.Notifications)
	s.Empty(body.Notifications)
}

func (s *HandlerSuite) TestListLimit() {
	for range 3 {
		s.send(s.alice, "Recordatorio")
	}
	s.Len(s.list(s.alice, "?limit=2").Notifications, 2)

	rec := s.as(s.alice, http.MethodGet, "/notifications?limit=zero")
	testutil.AssertError(s.T(), rec, http.StatusBadRequest, "bad_request")
}

func (s *HandlerSuite) TestListRequiresUser() {
	rec := s.as(id.UserID{}, http.MethodGet, "/notifications")
	testutil.AssertError(s.T(), rec, http.StatusUnauthorized, "unauthorized")
}

func (s *HandlerSuite) TestMarkRead() {
	n := s.send(s.alice, "Recordatorio")

	rec := s.as(s.alice, http.MethodPost, "/notifications/"+n.ID.String()+"/read")
	s.Equal(http.StatusNoContent, rec.Code)

	body := s.list(s.alice, "")
	s.Require().Len(body.Notifications, 1)
	s.True(body.Notifications[0].IsRead)
	s.Zero(body.Unread)
}

func (s *HandlerSuite) TestMarkReadOtherRecipient() {
	n := s.send(s.alice, "Recordatorio")

	rec := s.as(s.bob, http.MethodPost, "/notifications/"+n.ID.String()+"/read")
	testutil.AssertError(s.T(), rec, http.StatusNotFound, "not_found")
	s.Equal(1, s.list(s.alice, "").Unread)
}

func (s *HandlerSuite) TestMarkReadBadID() {
	rec := s.as(s.alice, http.MethodPost, "/notifications/nope/read")
	s.Equal(http.StatusBadRequest, rec.Code)
}
