package reminder

import (
	"time"

	"dossier/internal/compliance/models"
	id "dossier/pkg/domain"
)

// Pass names one of the four reminder passes.
type Pass string

const (
	PassExpiring Pass = "expiring"
	PassExpired  Pass = "expired"
	PassPending  Pass = "pending"
	PassRenewal  Pass = "renewal"
)

// Passes is the order a run executes them in.
var Passes = []Pass{PassExpiring, PassExpired, PassPending, PassRenewal}

// Outcome is what happened to one requirement in one pass.
type Outcome string

const (
	OutcomeSent      Outcome = "sent"
	OutcomeThrottled Outcome = "throttled"
	// OutcomeSkipped means the requirement was fetched but is not actionable
	// under its own policy.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFlagged means the requirement needs manual review: its document
	// type has no usable policy.
	OutcomeFlagged Outcome = "flagged"
	OutcomeFailed  Outcome = "failed"
)

// ItemResult is the per-requirement result of a pass.
type ItemResult struct {
	RequirementID id.RequirementID    `json:"requirement_id"`
	UserID        id.UserID           `json:"user_id"`
	ReminderType  models.ReminderType `json:"reminder_type,omitempty"`
	Outcome       Outcome             `json:"outcome"`
	// Expired is set by the expired pass when the status flip was applied.
	Expired bool   `json:"expired,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PassReport aggregates one pass.
type PassReport struct {
	Pass      Pass         `json:"pass"`
	Processed int          `json:"processed"`
	Sent      int          `json:"sent"`
	Throttled int          `json:"throttled"`
	Skipped   int          `json:"skipped"`
	Flagged   int          `json:"flagged"`
	Failed    int          `json:"failed"`
	Expired   int          `json:"expired,omitempty"`
	Errors    []string     `json:"errors,omitempty"`
	Items     []ItemResult `json:"items,omitempty"`
}

func (p *PassReport) add(item ItemResult) {
	p.Processed++
	switch item.Outcome {
	case OutcomeSent:
		p.Sent++
	case OutcomeThrottled:
		p.Throttled++
	case OutcomeSkipped:
		p.Skipped++
	case OutcomeFlagged:
		p.Flagged++
	case OutcomeFailed:
		p.Failed++
	}
	if item.Expired {
		p.Expired++
	}
	if item.Error != "" {
		p.Errors = append(p.Errors, item.RequirementID.String()+": "+item.Error)
	}
	p.Items = append(p.Items, item)
}

// Report is the result of one pipeline run.
type Report struct {
	Date       time.Time     `json:"date"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Passes     []*PassReport `json:"passes"`
	Errors     []string      `json:"errors,omitempty"`
}

// Pass returns the report of one pass, or nil.
func (r *Report) Pass(name Pass) *PassReport {
	for _, p := range r.Passes {
		if p.Pass == name {
			return p
		}
	}
	return nil
}

// TotalSent counts reminders sent across all passes.
func (r *Report) TotalSent() int {
	total := 0
	for _, p := range r.Passes {
		total += p.Sent
	}
	return total
}

// HasErrors reports whether any pass or the run itself recorded an error.
func (r *Report) HasErrors() bool {
	if len(r.Errors) > 0 {
		return true
	}
	for _, p := range r.Passes {
		if len(p.Errors) > 0 {
			return true
		}
	}
	return false
}
