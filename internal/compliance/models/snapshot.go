package models

import (
	"time"

	id "dossier/pkg/domain"
)

// DocumentStatus is the review state of an uploaded document.
type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "pending"
	DocumentActive   DocumentStatus = "active"
	DocumentExpired  DocumentStatus = "expired"
	DocumentRejected DocumentStatus = "rejected"
)

// Document is an uploaded file backing a requirement. Only the fields the
// aggregator needs are modeled here.
type Document struct {
	ID             id.DocumentID     `json:"id"`
	UserID         id.UserID         `json:"user_id"`
	DocumentTypeID id.DocumentTypeID `json:"document_type_id"`
	Status         DocumentStatus    `json:"status"`
	ExpirationDate *time.Time        `json:"expiration_date,omitempty"`
}

// OverallStatus is the rolled-up compliance health of one person.
type OverallStatus string

const (
	OverallCritical  OverallStatus = "critical"
	OverallAttention OverallStatus = "attention"
	OverallNormal    OverallStatus = "normal"
	OverallComplete  OverallStatus = "complete"
)

// OverallStatuses lists the rollup values from most to least severe.
var OverallStatuses = []OverallStatus{OverallCritical, OverallAttention, OverallNormal, OverallComplete}

type DocumentCounts struct {
	Active       int `json:"active"`
	Expired      int `json:"expired"`
	ExpiringSoon int `json:"expiring_soon"`
	Pending      int `json:"pending"`
}

type RequirementCounts struct {
	Pending   int `json:"pending"`
	Overdue   int `json:"overdue"`
	Completed int `json:"completed"`
}

// ComplianceSnapshot is a derived, point-in-time rollup for one person.
type ComplianceSnapshot struct {
	UserID            id.UserID         `json:"user_id"`
	AsOf              time.Time         `json:"as_of"`
	DocumentStatus    DocumentCounts    `json:"document_status"`
	RequirementStatus RequirementCounts `json:"requirement_status"`
	OverallStatus     OverallStatus     `json:"overall_status"`
}
