// Package domain holds typed identifiers shared across bounded contexts.
//
// Each identifier wraps a UUID so a RequirementID can never be passed where a
// UserID is expected. Parsing happens once at trust boundaries (HTTP, stores);
// everything inside works with the typed values.
package domain

import (
	"github.com/google/uuid"

	dErrors "dossier/pkg/domain-errors"
)

type (
	UserID         uuid.UUID
	RequirementID  uuid.UUID
	DocumentTypeID uuid.UUID
	DocumentID     uuid.UUID
	NotificationID uuid.UUID
	ReminderLogID  uuid.UUID
)

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id RequirementID) String() string  { return uuid.UUID(id).String() }
func (id DocumentTypeID) String() string { return uuid.UUID(id).String() }
func (id DocumentID) String() string     { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }
func (id ReminderLogID) String() string  { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id RequirementID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id DocumentTypeID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ReminderLogID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

func NewRequirementID() RequirementID   { return RequirementID(uuid.New()) }
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }
func NewReminderLogID() ReminderLogID   { return ReminderLogID(uuid.New()) }
func NewUserID() UserID                 { return UserID(uuid.New()) }
func NewDocumentTypeID() DocumentTypeID { return DocumentTypeID(uuid.New()) }
func NewDocumentID() DocumentID         { return DocumentID(uuid.New()) }

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	return UserID(u), err
}

func ParseRequirementID(s string) (RequirementID, error) {
	u, err := parseUUID(s, "requirement_id")
	return RequirementID(u), err
}

func ParseDocumentTypeID(s string) (DocumentTypeID, error) {
	u, err := parseUUID(s, "document_type_id")
	return DocumentTypeID(u), err
}

func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s, "document_id")
	return DocumentID(u), err
}

func ParseNotificationID(s string) (NotificationID, error) {
	u, err := parseUUID(s, "notification_id")
	return NotificationID(u), err
}

// parseUUID rejects empty, malformed and nil UUIDs with CodeInvalidInput.
func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be nil")
	}
	return u, nil
}

// Text marshaling keeps ids as canonical UUID strings in JSON and logs.

func (id UserID) MarshalText() ([]byte, error)         { return uuid.UUID(id).MarshalText() }
func (id RequirementID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id DocumentTypeID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id DocumentID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id NotificationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id ReminderLogID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error         { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RequirementID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *DocumentTypeID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *DocumentID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *NotificationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ReminderLogID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
