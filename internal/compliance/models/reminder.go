package models

import (
	"time"

	id "dossier/pkg/domain"
)

// ReminderType identifies the kind of reminder sent for a requirement.
type ReminderType string

const (
	ReminderWarning ReminderType = "warning"
	ReminderUrgent  ReminderType = "urgent"
	ReminderExpired ReminderType = "expired"
	ReminderDueSoon ReminderType = "due_soon"
	ReminderOverdue ReminderType = "overdue"
	ReminderRenewal ReminderType = "renewal"
)

// ReminderTypes lists every reminder type in a stable order.
var ReminderTypes = []ReminderType{
	ReminderWarning, ReminderUrgent, ReminderExpired, ReminderDueSoon, ReminderOverdue, ReminderRenewal,
}

func (t ReminderType) IsValid() bool {
	for _, known := range ReminderTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ReminderLogEntry is the immutable audit record of one reminder sent.
// DaysOffset is signed: positive means days until the relevant date,
// negative means days since it passed.
type ReminderLogEntry struct {
	ID             id.ReminderLogID  `json:"id"`
	RequirementID  id.RequirementID  `json:"requirement_id"`
	UserID         id.UserID         `json:"user_id"`
	ReminderType   ReminderType      `json:"reminder_type"`
	DaysOffset     int               `json:"days_offset"`
	SentAt         time.Time         `json:"sent_at"`
	NotificationID id.NotificationID `json:"notification_id"`
}
