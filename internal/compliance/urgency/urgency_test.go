package urgency

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"dossier/internal/compliance/models"
	"dossier/pkg/calendar"
	id "dossier/pkg/domain"
)

// =============================================================================
// Urgency Classifier Test Suite
// =============================================================================
// Justification for unit tests: tier boundaries are off-by-one sensitive and the
// classifier is pure, so every boundary is pinned here instead of through the
// pipeline.

type ClassifierSuite struct {
	suite.Suite
	today  time.Time
	policy *models.DocumentTypePolicy
}

func TestClassifierSuite(t *testing.T) {
	suite.Run(t, new(ClassifierSuite))
}

func (s *ClassifierSuite) SetupTest() {
	s.today = calendar.Date(2026, 10, 15)
	s.policy = &models.DocumentTypePolicy{
		ID:                 id.DocumentTypeID(uuid.New()),
		Name:               "Licencia de conducir",
		ReminderBeforeDays: 30,
		UrgentReminderDays: 7,
	}
}

func (s *ClassifierSuite) approvedExpiringIn(days int) *models.Requirement {
	exp := calendar.AddDays(s.today, days)
	return &models.Requirement{
		ID:             id.NewRequirementID(),
		UserID:         id.UserID(uuid.New()),
		DocumentTypeID: s.policy.ID,
		RequiredDate:   calendar.AddDays(s.today, -90),
		Status:         models.StatusApproved,
		ExpirationDate: &exp,
	}
}

func (s *ClassifierSuite) pendingDueIn(days int) *models.Requirement {
	return &models.Requirement{
		ID:             id.NewRequirementID(),
		UserID:         id.UserID(uuid.New()),
		DocumentTypeID: s.policy.ID,
		RequiredDate:   calendar.AddDays(s.today, days),
		Status:         models.StatusPending,
	}
}

// =============================================================================
// Expiration Axis
// =============================================================================

func (s *ClassifierSuite) TestExpirationBoundaries() {
	cases := []struct {
		days int
		want ExpirationTier
	}{
		{31, ExpirationOK},
		{30, ExpirationWarning},
		{8, ExpirationWarning},
		{7, ExpirationUrgent},
		{5, ExpirationUrgent},
		{0, ExpirationUrgent},
		{-1, ExpirationExpired},
		{-40, ExpirationExpired},
	}
	for _, tc := range cases {
		tier, days := ClassifyExpiration(s.approvedExpiringIn(tc.days), s.policy, s.today)
		s.Equal(tc.want, tier, "days until expiration = %d", tc.days)
		s.Equal(tc.days, days)
	}
}

func (s *ClassifierSuite) TestExpirationAsDaysPass() {
	// One document expiring on a fixed date, evaluated on successive days.
	expiresOn := calendar.AddDays(s.today, 10)
	req := s.approvedExpiringIn(10)

	tierOn := func(day time.Time) ExpirationTier {
		tier, _ := ClassifyExpiration(req, s.policy, day)
		return tier
	}

	s.Equal(ExpirationWarning, tierOn(calendar.AddDays(expiresOn, -10)))
	s.Equal(ExpirationWarning, tierOn(calendar.AddDays(expiresOn, -8)))
	s.Equal(ExpirationUrgent, tierOn(calendar.AddDays(expiresOn, -7)))
	s.Equal(ExpirationUrgent, tierOn(expiresOn))
	s.Equal(ExpirationExpired, tierOn(calendar.AddDays(expiresOn, 1)))
}

func (s *ClassifierSuite) TestExpirationIgnoredOutsideLiveStatuses() {
	for _, status := range []models.RequirementStatus{models.StatusPending, models.StatusRejected, models.StatusExpired} {
		req := s.approvedExpiringIn(-3)
		req.Status = status
		tier, _ := ClassifyExpiration(req, s.policy, s.today)
		s.Equal(ExpirationNone, tier, "status %s", status)
	}

	s.Run("submitted requirements take part", func() {
		req := s.approvedExpiringIn(3)
		req.Status = models.StatusSubmitted
		tier, _ := ClassifyExpiration(req, s.policy, s.today)
		s.Equal(ExpirationUrgent, tier)
	})

	s.Run("missing expiration date", func() {
		req := s.approvedExpiringIn(3)
		req.ExpirationDate = nil
		tier, _ := ClassifyExpiration(req, s.policy, s.today)
		s.Equal(ExpirationNone, tier)
	})
}

// =============================================================================
// Submission Axis
// =============================================================================

func (s *ClassifierSuite) TestSubmissionBoundaries() {
	cases := []struct {
		days int
		want SubmissionTier
	}{
		{31, SubmissionNormal},
		{30, SubmissionDueSoon},
		{1, SubmissionDueSoon},
		{0, SubmissionUrgent},
		{-1, SubmissionOverdue},
		{-2, SubmissionOverdue},
	}
	for _, tc := range cases {
		tier, days := ClassifySubmission(s.pendingDueIn(tc.days), s.policy, s.today)
		s.Equal(tc.want, tier, "days until due = %d", tc.days)
		s.Equal(tc.days, days)
	}
}

func (s *ClassifierSuite) TestSubmissionOnlyForPending() {
	req := s.pendingDueIn(-2)
	req.Status = models.StatusSubmitted
	tier, _ := ClassifySubmission(req, s.policy, s.today)
	s.Equal(SubmissionNone, tier)
}

// =============================================================================
// Renewal Axis
// =============================================================================

func (s *ClassifierSuite) TestRenewalWindow() {
	cases := []struct {
		days int
		want bool
	}{
		{8, false},
		{7, true},
		{0, true},
		{-1, false},
	}
	for _, tc := range cases {
		req := s.approvedExpiringIn(200)
		next := calendar.AddDays(s.today, tc.days)
		req.NextRenewalDate = &next
		due, _ := ClassifyRenewal(req, s.today)
		s.Equal(tc.want, due, "days until renewal = %d", tc.days)
	}

	s.Run("only approved requirements renew", func() {
		req := s.approvedExpiringIn(200)
		next := calendar.AddDays(s.today, 3)
		req.NextRenewalDate = &next
		req.Status = models.StatusSubmitted
		due, _ := ClassifyRenewal(req, s.today)
		s.False(due)
	})
}

// =============================================================================
// Combined Classification
// =============================================================================

func (s *ClassifierSuite) TestApprovedTriggersExpirationAndRenewal() {
	req := s.approvedExpiringIn(5)
	next := calendar.AddDays(s.today, 2)
	req.NextRenewalDate = &next

	c := Classify(req, s.policy, s.today)
	s.Equal(ExpirationUrgent, c.Expiration)
	s.True(c.RenewalDue)
	s.Equal(SubmissionNone, c.Submission)
}

func (s *ClassifierSuite) TestExactlyOneTierPerAxis() {
	reqs := []*models.Requirement{
		s.approvedExpiringIn(5),
		s.approvedExpiringIn(-5),
		s.pendingDueIn(3),
		s.pendingDueIn(-3),
		{Status: models.StatusRejected, RequiredDate: s.today},
	}
	for _, req := range reqs {
		c := Classify(req, s.policy, s.today)
		s.NotEmpty(c.Expiration)
		s.NotEmpty(c.Submission)
		// Axes never both fire: status selects the axis.
		s.False(c.Expiration.Actionable() && c.Submission.Actionable())
	}
}

func (s *ClassifierSuite) TestDeterministic() {
	req := s.approvedExpiringIn(12)
	first := Classify(req, s.policy, s.today)
	for range 5 {
		s.Equal(first, Classify(req, s.policy, s.today))
	}
}
