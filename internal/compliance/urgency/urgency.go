// Package urgency classifies requirements into urgency tiers.
//
// Everything here is pure: the caller supplies the requirement, its document
// type policy and the civil date to evaluate against. No clock is read.
package urgency

import (
	"time"

	"dossier/internal/compliance/models"
	"dossier/pkg/calendar"
)

// RenewalWindowDays is how far ahead a renewal date becomes actionable.
const RenewalWindowDays = 7

// ExpirationTier is the urgency of an approved or submitted document's expiry.
type ExpirationTier string

const (
	ExpirationNone    ExpirationTier = "none"
	ExpirationOK      ExpirationTier = "ok"
	ExpirationWarning ExpirationTier = "warning"
	ExpirationUrgent  ExpirationTier = "urgent"
	ExpirationExpired ExpirationTier = "expired"
)

// Actionable reports whether the tier calls for a reminder.
func (t ExpirationTier) Actionable() bool {
	return t == ExpirationWarning || t == ExpirationUrgent || t == ExpirationExpired
}

// ReminderType maps an actionable tier to its reminder type.
func (t ExpirationTier) ReminderType() (models.ReminderType, bool) {
	switch t {
	case ExpirationWarning:
		return models.ReminderWarning, true
	case ExpirationUrgent:
		return models.ReminderUrgent, true
	case ExpirationExpired:
		return models.ReminderExpired, true
	}
	return "", false
}

// SubmissionTier is the urgency of a pending requirement's deadline.
type SubmissionTier string

const (
	SubmissionNone    SubmissionTier = "none"
	SubmissionNormal  SubmissionTier = "normal"
	SubmissionDueSoon SubmissionTier = "due_soon"
	SubmissionUrgent  SubmissionTier = "urgent"
	SubmissionOverdue SubmissionTier = "overdue"
)

func (t SubmissionTier) Actionable() bool {
	return t == SubmissionDueSoon || t == SubmissionUrgent || t == SubmissionOverdue
}

func (t SubmissionTier) ReminderType() (models.ReminderType, bool) {
	switch t {
	case SubmissionDueSoon:
		return models.ReminderDueSoon, true
	case SubmissionUrgent:
		return models.ReminderUrgent, true
	case SubmissionOverdue:
		return models.ReminderOverdue, true
	}
	return "", false
}

// Classification is the full urgency picture of one requirement on one day.
// Requirements outside an axis's statuses get the axis's None tier, so every
// result carries exactly one expiration tier and exactly one submission tier.
type Classification struct {
	Expiration          ExpirationTier
	DaysUntilExpiration int
	Submission          SubmissionTier
	DaysUntilDue        int
	RenewalDue          bool
	DaysUntilRenewal    int
}

// ClassifyExpiration evaluates the expiration axis. Only submitted or approved
// requirements with an expiration date take part.
func ClassifyExpiration(req *models.Requirement, policy *models.DocumentTypePolicy, today time.Time) (ExpirationTier, int) {
	if req == nil || policy == nil || !req.HasLiveExpiration() {
		return ExpirationNone, 0
	}
	days := calendar.DaysBetween(today, *req.ExpirationDate)
	switch {
	case days < 0:
		return ExpirationExpired, days
	case days <= policy.UrgentReminderDays:
		return ExpirationUrgent, days
	case days <= policy.ReminderBeforeDays:
		return ExpirationWarning, days
	default:
		return ExpirationOK, days
	}
}

// ClassifySubmission evaluates the submission axis. Only pending requirements
// take part.
func ClassifySubmission(req *models.Requirement, policy *models.DocumentTypePolicy, today time.Time) (SubmissionTier, int) {
	if req == nil || policy == nil || req.Status != models.StatusPending {
		return SubmissionNone, 0
	}
	days := calendar.DaysBetween(today, req.RequiredDate)
	switch {
	case days < 0:
		return SubmissionOverdue, days
	case days == 0:
		return SubmissionUrgent, days
	case days <= policy.ReminderBeforeDays:
		return SubmissionDueSoon, days
	default:
		return SubmissionNormal, days
	}
}

// ClassifyRenewal evaluates the renewal axis: approved requirements whose next
// renewal falls within the coming RenewalWindowDays (today included).
func ClassifyRenewal(req *models.Requirement, today time.Time) (bool, int) {
	if req == nil || req.Status != models.StatusApproved || req.NextRenewalDate == nil {
		return false, 0
	}
	days := calendar.DaysBetween(today, *req.NextRenewalDate)
	return days >= 0 && days <= RenewalWindowDays, days
}

// Classify evaluates all three axes. An approved requirement is evaluated under
// both expiration and renewal independently.
func Classify(req *models.Requirement, policy *models.DocumentTypePolicy, today time.Time) Classification {
	var c Classification
	c.Expiration, c.DaysUntilExpiration = ClassifyExpiration(req, policy, today)
	c.Submission, c.DaysUntilDue = ClassifySubmission(req, policy, today)
	c.RenewalDue, c.DaysUntilRenewal = ClassifyRenewal(req, today)
	return c
}
