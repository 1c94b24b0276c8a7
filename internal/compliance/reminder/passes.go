package reminder

import (
	"context"
	"errors"
	"time"

	"dossier/internal/compliance/models"
	"dossier/internal/compliance/store/claim"
	"dossier/internal/compliance/urgency"
	notificationModels "dossier/internal/notification/models"
	"dossier/pkg/calendar"
	id "dossier/pkg/domain"
	"dossier/pkg/platform/audit"
)

const renewalWindowDays = urgency.RenewalWindowDays

// processItem runs one requirement through one pass. It never returns an
// error: every failure is folded into the item result.
func (p *Pipeline) processItem(ctx context.Context, pass Pass, req *models.Requirement, policies models.PolicySet, today time.Time) ItemResult {
	item := ItemResult{RequirementID: req.ID, UserID: req.UserID}

	policy, err := policies.Lookup(req.DocumentTypeID)
	if err != nil {
		item.Outcome = OutcomeFlagged
		item.Error = err.Error()
		p.logger.WarnContext(ctx, "requirement flagged for manual review",
			"pass", pass,
			"requirement_id", req.ID,
			"document_type_id", req.DocumentTypeID,
			"error", err,
		)
		if p.metrics != nil {
			p.metrics.IncFlagged(string(pass))
		}
		return item
	}

	c := urgency.Classify(req, policy, today)
	switch pass {
	case PassExpiring:
		rt, ok := c.Expiration.ReminderType()
		if !ok || c.Expiration == urgency.ExpirationExpired {
			item.Outcome = OutcomeSkipped
			return item
		}
		item.ReminderType = rt
		p.deliver(ctx, pass, &item, req, today, c.DaysUntilExpiration, expiringContent(policy.Name, rt, c.DaysUntilExpiration))

	case PassExpired:
		if c.Expiration != urgency.ExpirationExpired {
			item.Outcome = OutcomeSkipped
			return item
		}
		item.ReminderType = models.ReminderExpired
		p.deliver(ctx, pass, &item, req, today, c.DaysUntilExpiration, expiredContent(policy.Name, c.DaysUntilExpiration))
		// The status flip does not depend on delivery.
		p.expire(ctx, &item, req, today)

	case PassPending:
		rt, ok := c.Submission.ReminderType()
		if !ok {
			item.Outcome = OutcomeSkipped
			return item
		}
		item.ReminderType = rt
		p.deliver(ctx, pass, &item, req, today, c.DaysUntilDue, pendingContent(policy.Name, rt, c.DaysUntilDue))

	case PassRenewal:
		if !c.RenewalDue {
			item.Outcome = OutcomeSkipped
			return item
		}
		item.ReminderType = models.ReminderRenewal
		p.deliver(ctx, pass, &item, req, today, c.DaysUntilRenewal, renewalContent(policy.Name, c.DaysUntilRenewal))
	}
	return item
}

// deliver runs throttle, claim, notify, log and counter update for one
// reminder, setting item.Outcome.
func (p *Pipeline) deliver(ctx context.Context, pass Pass, item *ItemResult, req *models.Requirement, today time.Time, daysOffset int, msg content) {
	rt := item.ReminderType

	ok, err := p.shouldSend(ctx, req.ID, rt, today)
	if err != nil {
		p.fail(ctx, pass, item, "throttle check failed", err)
		return
	}
	if !ok {
		p.throttled(pass, item)
		return
	}

	key := claim.Key(req.ID, rt, today)
	if p.claims != nil {
		held, err := p.claim(ctx, key)
		if err != nil {
			p.fail(ctx, pass, item, "reminder claim failed", err)
			return
		}
		if !held {
			p.throttled(pass, item)
			return
		}
	}

	notificationID, err := p.notify(ctx, req, rt, daysOffset, msg)
	if err != nil {
		p.release(ctx, key)
		p.fail(ctx, pass, item, "notification failed", err)
		return
	}

	sentAt := p.now()
	entry := &models.ReminderLogEntry{
		ID:             id.NewReminderLogID(),
		RequirementID:  req.ID,
		UserID:         req.UserID,
		ReminderType:   rt,
		DaysOffset:     daysOffset,
		SentAt:         sentAt,
		NotificationID: notificationID,
	}
	if err := p.appendLog(ctx, entry); err != nil {
		p.release(ctx, key)
		p.fail(ctx, pass, item, "reminder log append failed", err)
		return
	}

	item.Outcome = OutcomeSent
	if err := p.recordSent(ctx, req.ID, sentAt); err != nil {
		// The counter is informational; the log entry already throttles.
		p.logger.WarnContext(ctx, "reminder counter update failed",
			"requirement_id", req.ID,
			"error", err,
		)
	}
	if p.metrics != nil {
		p.metrics.IncSent(string(pass), string(rt))
	}
	audit.LogAudit(ctx, p.logger, "reminder_sent",
		"requirement_id", req.ID.String(),
		"user_id", req.UserID.String(),
		"reminder_type", string(rt),
		"days_offset", daysOffset,
		"notification_id", notificationID.String(),
	)
}

func (p *Pipeline) expire(ctx context.Context, item *ItemResult, req *models.Requirement, today time.Time) {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	changed, err := p.requirements.Expire(callCtx, req.ID, today, p.now())
	if err != nil {
		if item.Error == "" {
			item.Error = "expire requirement: " + err.Error()
		} else {
			item.Error += "; expire requirement: " + err.Error()
		}
		if item.Outcome != OutcomeFailed {
			item.Outcome = OutcomeFailed
			if p.metrics != nil {
				p.metrics.IncFailed(string(PassExpired))
			}
		}
		p.logger.ErrorContext(ctx, "failed to expire requirement", "requirement_id", req.ID, "error", err)
		return
	}
	if !changed {
		return
	}
	item.Expired = true
	if p.metrics != nil {
		p.metrics.AddExpired("pipeline", 1)
	}
	audit.LogAudit(ctx, p.logger, "requirement_expired",
		"requirement_id", req.ID.String(),
		"user_id", req.UserID.String(),
		"expiration_date", req.ExpirationDate.Format(time.DateOnly),
		"days_overdue", calendar.DaysBetween(*req.ExpirationDate, today),
	)
}

func (p *Pipeline) shouldSend(ctx context.Context, reqID id.RequirementID, rt models.ReminderType, today time.Time) (bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	return p.throttle.ShouldSend(callCtx, reqID, rt, today)
}

func (p *Pipeline) claim(ctx context.Context, key string) (bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	return p.claims.Claim(callCtx, key, p.claimTTL)
}

func (p *Pipeline) release(ctx context.Context, key string) {
	if p.claims == nil {
		return
	}
	// Release even when the run's context is already done.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.callTimeout)
	defer cancel()
	if err := p.claims.Release(callCtx, key); err != nil {
		p.logger.WarnContext(ctx, "failed to release reminder claim", "key", key, "error", err)
	}
}

func (p *Pipeline) notify(ctx context.Context, req *models.Requirement, rt models.ReminderType, daysOffset int, msg content) (id.NotificationID, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	data := map[string]any{
		"requirement_id":   req.ID.String(),
		"document_type_id": req.DocumentTypeID.String(),
		"reminder_type":    string(rt),
		"days_offset":      daysOffset,
	}
	if req.ExpirationDate != nil {
		data["expiration_date"] = req.ExpirationDate.Format(time.DateOnly)
	}
	if rt == models.ReminderRenewal && req.NextRenewalDate != nil {
		data["next_renewal_date"] = req.NextRenewalDate.Format(time.DateOnly)
	}

	sent, err := p.notifier.Send(callCtx, notificationModels.Message{
		Recipients: []id.UserID{req.UserID},
		Title:      msg.Title,
		Message:    msg.Message,
		Type:       msg.Type,
		Priority:   msg.Priority,
		Data:       data,
	})
	if err != nil {
		return id.NotificationID{}, err
	}
	if len(sent) == 0 {
		return id.NotificationID{}, errors.New("notifier returned no notification")
	}
	return sent[0].ID, nil
}

func (p *Pipeline) appendLog(ctx context.Context, entry *models.ReminderLogEntry) error {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	return p.logs.Append(callCtx, entry)
}

func (p *Pipeline) recordSent(ctx context.Context, reqID id.RequirementID, sentAt time.Time) error {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	return p.requirements.RecordReminderSent(callCtx, reqID, sentAt)
}

func (p *Pipeline) throttled(pass Pass, item *ItemResult) {
	item.Outcome = OutcomeThrottled
	if p.metrics != nil {
		p.metrics.IncThrottled(string(pass), string(item.ReminderType))
	}
}

func (p *Pipeline) fail(ctx context.Context, pass Pass, item *ItemResult, msg string, err error) {
	item.Outcome = OutcomeFailed
	item.Error = msg + ": " + err.Error()
	if p.metrics != nil {
		p.metrics.IncFailed(string(pass))
	}
	p.logger.WarnContext(ctx, msg,
		"pass", pass,
		"requirement_id", item.RequirementID,
		"reminder_type", item.ReminderType,
		"error", err,
	)
}
