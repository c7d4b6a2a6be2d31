package models

import "time"

// AuditAction is the kind of governance action an entry records.
type AuditAction string

const (
	AuditCreated   AuditAction = "created"
	AuditUpdated   AuditAction = "updated"
	AuditApproved  AuditAction = "approved"
	AuditRejected  AuditAction = "rejected"
	AuditShared    AuditAction = "shared"
	AuditExported  AuditAction = "exported"
	AuditArchived  AuditAction = "archived"
	AuditCommented AuditAction = "commented"
)

// FieldChange is the old and new value of one changed field.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// AuditEntry is one immutable record in a workflow's audit ledger.
type AuditEntry struct {
	ID         string                 `json:"id"`
	WorkflowID string                 `json:"workflowId"`
	Action     AuditAction            `json:"action"`
	UserID     string                 `json:"userId"`
	UserName   string                 `json:"userName"`
	Timestamp  time.Time              `json:"timestamp"`
	Changes    map[string]FieldChange `json:"changes,omitempty"`
	Notes      string                 `json:"notes,omitempty"`
}
