package models

import (
	"slices"
	"time"

	"dossier/pkg/calendar"
	id "dossier/pkg/domain"
)

// RequirementStatus is the lifecycle state of a requirement.
type RequirementStatus string

const (
	StatusPending   RequirementStatus = "pending"
	StatusSubmitted RequirementStatus = "submitted"
	StatusApproved  RequirementStatus = "approved"
	StatusRejected  RequirementStatus = "rejected"
	StatusExpired   RequirementStatus = "expired"
)

func (s RequirementStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusSubmitted, StatusApproved, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// CanExpire reports whether a requirement in this status carries a meaningful
// expiration date and may transition to expired.
func (s RequirementStatus) CanExpire() bool {
	return s == StatusSubmitted || s == StatusApproved
}

// Requirement is one person's obligation to hold one document type.
// Dates are civil dates (see pkg/calendar).
type Requirement struct {
	ID                id.RequirementID  `json:"id"`
	UserID            id.UserID         `json:"user_id"`
	DocumentTypeID    id.DocumentTypeID `json:"document_type_id"`
	RequiredDate      time.Time         `json:"required_date"`
	Status            RequirementStatus `json:"status"`
	ExpirationDate    *time.Time        `json:"expiration_date,omitempty"`
	NextRenewalDate   *time.Time        `json:"next_renewal_date,omitempty"`
	ReminderSentCount int               `json:"reminder_sent_count"`
	LastReminderSent  *time.Time        `json:"last_reminder_sent,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// HasLiveExpiration reports whether ExpirationDate participates in urgency
// classification.
func (r *Requirement) HasLiveExpiration() bool {
	return r.ExpirationDate != nil && r.Status.CanExpire()
}

// ExpirationFromApproval derives the expiration date for an approval given on
// approvedOn under policy. Policies without a validity period never expire.
func ExpirationFromApproval(approvedOn time.Time, policy *DocumentTypePolicy) *time.Time {
	if policy == nil || policy.ValidityPeriodMonths == nil {
		return nil
	}
	exp := approvedOn.AddDate(0, *policy.ValidityPeriodMonths, 0)
	return &exp
}

// NextRenewalFrom computes the next renewal date after from under policy.
func NextRenewalFrom(from time.Time, policy *DocumentTypePolicy) *time.Time {
	if policy == nil || !policy.HasRenewal || policy.RenewalPeriod == nil {
		return nil
	}
	n := *policy.RenewalPeriod
	var next time.Time
	switch policy.RenewalUnit {
	case RenewalDays:
		next = from.AddDate(0, 0, n)
	case RenewalYears:
		next = from.AddDate(n, 0, 0)
	default:
		next = from.AddDate(0, n, 0)
	}
	return &next
}

// RequirementFilter selects requirements from a store. Nil bounds are open and
// all date bounds are inclusive civil dates. An empty Statuses matches any.
type RequirementFilter struct {
	Statuses       []RequirementStatus
	UserID         *id.UserID
	ExpirationFrom *time.Time
	ExpirationTo   *time.Time
	RequiredBy     *time.Time
	RenewalFrom    *time.Time
	RenewalTo      *time.Time
}

// Matches applies the filter in memory.
func (f RequirementFilter) Matches(r *Requirement) bool {
	if r == nil {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, r.Status) {
		return false
	}
	if f.UserID != nil && r.UserID != *f.UserID {
		return false
	}
	if (f.ExpirationFrom != nil || f.ExpirationTo != nil) && !inRange(r.ExpirationDate, f.ExpirationFrom, f.ExpirationTo) {
		return false
	}
	if f.RequiredBy != nil && calendar.DaysBetween(r.RequiredDate, *f.RequiredBy) < 0 {
		return false
	}
	if (f.RenewalFrom != nil || f.RenewalTo != nil) && !inRange(r.NextRenewalDate, f.RenewalFrom, f.RenewalTo) {
		return false
	}
	return true
}

func inRange(v, from, to *time.Time) bool {
	if v == nil {
		return false
	}
	if from != nil && calendar.DaysBetween(*from, *v) < 0 {
		return false
	}
	if to != nil && calendar.DaysBetween(*v, *to) < 0 {
		return false
	}
	return true
}
