package models

import (
	"time"

	id "dossier/pkg/domain"
)

// Type is the visual category of a notification.
type Type string

const (
	TypeInfo    Type = "info"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
	TypeSuccess Type = "success"
)

// Priority orders notifications for the recipient.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Notification is one persisted message to one recipient.
type Notification struct {
	ID          id.NotificationID `json:"id"`
	RecipientID id.UserID         `json:"recipient_id"`
	Title       string            `json:"title"`
	Message     string            `json:"message"`
	Type        Type              `json:"type"`
	Priority    Priority          `json:"priority"`
	Data        map[string]any    `json:"data,omitempty"`
	IsRead      bool              `json:"is_read"`
	ReadAt      *time.Time        `json:"read_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Message is a request to notify one or more recipients.
type Message struct {
	Recipients []id.UserID `validate:"required,min=1"`
	Title      string      `validate:"required"`
	Message    string      `validate:"required"`
	Type       Type        `validate:"required,oneof=info warning error success"`
	Priority   Priority    `validate:"required,oneof=low medium high urgent"`
	Data       map[string]any
}
