package aggregate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"dossier/internal/compliance/models"
	"dossier/internal/compliance/store/document"
	"dossier/internal/compliance/store/requirement"
	"dossier/pkg/calendar"
	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
)

// =============================================================================
// Compliance Aggregator Test Suite
// =============================================================================

type AggregateSuite struct {
	suite.Suite
	today time.Time
	user  id.UserID
}

func TestAggregateSuite(t *testing.T) {
	suite.Run(t, new(AggregateSuite))
}

func (s *AggregateSuite) SetupTest() {
	s.today = calendar.Date(2026, 10, 15)
	s.user = id.NewUserID()
}

func (s *AggregateSuite) doc(status models.DocumentStatus, expiresIn *int) *models.Document {
	d := &models.Document{ID: id.NewDocumentID(), UserID: s.user, DocumentTypeID: id.NewDocumentTypeID(), Status: status}
	if expiresIn != nil {
		exp := calendar.AddDays(s.today, *expiresIn)
		d.ExpirationDate = &exp
	}
	return d
}

func (s *AggregateSuite) req(status models.RequirementStatus, dueIn int) *models.Requirement {
	return &models.Requirement{
		ID:             id.NewRequirementID(),
		UserID:         s.user,
		DocumentTypeID: id.NewDocumentTypeID(),
		RequiredDate:   calendar.AddDays(s.today, dueIn),
		Status:         status,
	}
}

func days(n int) *int { return &n }

// =============================================================================
// Buckets
// =============================================================================

func (s *AggregateSuite) TestDocumentBuckets() {
	docs := []*models.Document{
		s.doc(models.DocumentActive, nil),
		s.doc(models.DocumentActive, days(31)),
		s.doc(models.DocumentActive, days(30)),
		s.doc(models.DocumentActive, days(0)),
		s.doc(models.DocumentActive, days(-1)),
		s.doc(models.DocumentExpired, days(-10)),
		s.doc(models.DocumentPending, nil),
		s.doc(models.DocumentRejected, nil),
	}
	snap := ComputeSnapshot(s.user, nil, docs, s.today)
	s.Equal(models.DocumentCounts{Active: 2, ExpiringSoon: 2, Expired: 2, Pending: 1}, snap.DocumentStatus)
}

func (s *AggregateSuite) TestRequirementBuckets() {
	reqs := []*models.Requirement{
		s.req(models.StatusPending, 5),
		s.req(models.StatusPending, 0),
		s.req(models.StatusPending, -1),
		s.req(models.StatusApproved, -100),
		s.req(models.StatusSubmitted, -3),
		s.req(models.StatusRejected, -3),
		s.req(models.StatusExpired, -3),
	}
	snap := ComputeSnapshot(s.user, reqs, nil, s.today)
	s.Equal(models.RequirementCounts{Pending: 3, Overdue: 1, Completed: 1}, snap.RequirementStatus)
}

// =============================================================================
// Rollup
// =============================================================================

func (s *AggregateSuite) TestRollupPriority() {
	cases := []struct {
		name string
		docs models.DocumentCounts
		reqs models.RequirementCounts
		want models.OverallStatus
	}{
		{"expired document", models.DocumentCounts{Expired: 1}, models.RequirementCounts{}, models.OverallCritical},
		{"overdue requirement", models.DocumentCounts{}, models.RequirementCounts{Pending: 1, Overdue: 1}, models.OverallCritical},
		{"expired beats everything", models.DocumentCounts{Expired: 1, ExpiringSoon: 3, Pending: 2}, models.RequirementCounts{Pending: 4}, models.OverallCritical},
		{"expiring soon", models.DocumentCounts{ExpiringSoon: 1, Pending: 1}, models.RequirementCounts{}, models.OverallAttention},
		{"pending requirement", models.DocumentCounts{Active: 3}, models.RequirementCounts{Pending: 1}, models.OverallAttention},
		{"pending document only", models.DocumentCounts{Pending: 1, Active: 2}, models.RequirementCounts{Completed: 2}, models.OverallNormal},
		{"no exceptions", models.DocumentCounts{Active: 4}, models.RequirementCounts{Completed: 4}, models.OverallComplete},
		{"empty", models.DocumentCounts{}, models.RequirementCounts{}, models.OverallComplete},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.Equal(tc.want, Rollup(tc.docs, tc.reqs))
		})
	}
}

func (s *AggregateSuite) TestExpiredDocumentDominatesPendingRequirement() {
	reqs := []*models.Requirement{s.req(models.StatusPending, 20)}
	docs := []*models.Document{s.doc(models.DocumentExpired, days(-2))}

	snap := ComputeSnapshot(s.user, reqs, docs, s.today)
	s.Equal(models.OverallCritical, snap.OverallStatus)
	s.Equal(0, snap.RequirementStatus.Overdue)
}

func (s *AggregateSuite) TestRollupIsTotal() {
	for e := 0; e < 2; e++ {
		for es := 0; es < 2; es++ {
			for p := 0; p < 2; p++ {
				for rp := 0; rp < 2; rp++ {
					for ro := 0; ro <= rp; ro++ {
						got := Rollup(
							models.DocumentCounts{Expired: e, ExpiringSoon: es, Pending: p},
							models.RequirementCounts{Pending: rp, Overdue: ro},
						)
						s.Contains(models.OverallStatuses, got)
					}
				}
			}
		}
	}
}

// =============================================================================
// Service
// =============================================================================

func (s *AggregateSuite) TestServiceSnapshot() {
	ctx := context.Background()
	reqStore := requirement.NewInMemory()
	docStore := document.NewInMemory()

	s.Require().NoError(reqStore.Save(ctx, s.req(models.StatusApproved, -30)))
	s.Require().NoError(docStore.Save(ctx, s.doc(models.DocumentActive, days(400))))

	other := s.req(models.StatusPending, -5)
	other.UserID = id.NewUserID()
	s.Require().NoError(reqStore.Save(ctx, other))

	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	svc, err := New(reqStore, docStore, WithClock(func() time.Time { return now }))
	s.Require().NoError(err)

	snap, err := svc.Snapshot(ctx, s.user)
	s.Require().NoError(err)
	s.Equal(models.OverallComplete, snap.OverallStatus)
	s.Equal(1, snap.RequirementStatus.Completed)
	s.Equal(s.today, snap.AsOf)

	s.Run("nil user is rejected", func() {
		_, err := svc.Snapshot(ctx, id.UserID{})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("store failures surface as internal", func() {
		failing, err := New(failingRequirements{}, docStore)
		s.Require().NoError(err)
		_, err = failing.Snapshot(ctx, s.user)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

type failingRequirements struct{}

func (failingRequirements) List(context.Context, models.RequirementFilter) ([]*models.Requirement, error) {
	return nil, errors.New("db down")
}
