package models

import (
	"time"
)

// WorkflowStatus is the publication state of a workflow document.
type WorkflowStatus string

const (
	StatusDraft     WorkflowStatus = "draft"
	StatusReview    WorkflowStatus = "review"
	StatusPublished WorkflowStatus = "published"
	StatusArchived  WorkflowStatus = "archived"
)

// Valid reports whether s is one of the known statuses.
func (s WorkflowStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusReview, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Permission is the access level granted to collaborators.
type Permission string

const (
	PermissionView  Permission = "view"
	PermissionEdit  Permission = "edit"
	PermissionAdmin Permission = "admin"
)

// Valid reports whether p is one of the known permission levels.
func (p Permission) Valid() bool {
	switch p {
	case PermissionView, PermissionEdit, PermissionAdmin:
		return true
	}
	return false
}

// ApprovalStatus is the state of the current approval cycle.
type ApprovalStatus string

const (
	ApprovalNone     ApprovalStatus = "none"
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// InitialVersion is assigned to workflows that carry no version yet.
const InitialVersion = "1.0.0"

// Pricing holds the advertised price of a tool. StartingPrice is a
// currency string such as "$29/month".
type Pricing struct {
	StartingPrice string `json:"startingPrice"`
	Model         string `json:"model,omitempty"`
}

// Tool is a reference to a catalog tool selected for a workflow.
type Tool struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Pricing  Pricing `json:"pricing"`
}

// Metadata carries versioning and ownership attributes of a workflow.
type Metadata struct {
	Version      string         `json:"version"`
	LastModified time.Time      `json:"lastModified"`
	CreatedBy    string         `json:"createdBy"`
	ApprovedBy   string         `json:"approvedBy,omitempty"`
	Status       WorkflowStatus `json:"status"`
	Tags         []string       `json:"tags,omitempty"`
	Department   string         `json:"department,omitempty"`
}

// Collaboration describes how a workflow is shared.
type Collaboration struct {
	IsShared        bool       `json:"isShared"`
	Permissions     Permission `json:"permissions"`
	SharedWith      []string   `json:"sharedWith,omitempty"`
	AllowComments   bool       `json:"allowComments"`
	RequireApproval bool       `json:"requireApproval"`
}

// ApprovalState is the persisted state of the approval state machine.
type ApprovalState struct {
	IsEnabled     bool           `json:"isEnabled"`
	Approvers     []string       `json:"approvers,omitempty"`
	Status        ApprovalStatus `json:"status"`
	RequestedAt   *time.Time     `json:"requestedAt,omitempty"`
	ApprovedAt    *time.Time     `json:"approvedAt,omitempty"`
	RejectedAt    *time.Time     `json:"rejectedAt,omitempty"`
	ApprovalNotes string         `json:"approvalNotes,omitempty"`
}

// VersionControl holds the linear history of a workflow.
type VersionControl struct {
	CurrentVersion   string            `json:"currentVersion"`
	PreviousVersions []VersionSnapshot `json:"previousVersions,omitempty"`
	ChangeLog        []string          `json:"changeLog,omitempty"`
	AutoSave         bool              `json:"autoSave"`
	BackupEnabled    bool              `json:"backupEnabled"`
}

// VersionSnapshot is an immutable copy of workflow content at a version.
type VersionSnapshot struct {
	Version     string          `json:"version"`
	CreatedAt   time.Time       `json:"createdAt"`
	CreatedBy   string          `json:"createdBy"`
	Description string          `json:"description"`
	Snapshot    WorkflowContent `json:"snapshot"`
}

// WorkflowContent is everything a snapshot captures and a restore
// replaces: all workflow fields except identity and the append-only
// histories.
type WorkflowContent struct {
	Name                   string         `json:"name"`
	Description            string         `json:"description"`
	UseCase                string         `json:"useCase"`
	Tools                  []Tool         `json:"tools"`
	TotalCost              float64        `json:"totalCost"`
	ComplianceRequirements []string       `json:"complianceRequirements,omitempty"`
	ROIAnalysis            string         `json:"roiAnalysis,omitempty"`
	RiskAssessment         string         `json:"riskAssessment,omitempty"`
	Metadata               Metadata       `json:"metadata"`
	Collaboration          Collaboration  `json:"collaboration"`
	ApprovalWorkflow       ApprovalState  `json:"approvalWorkflow"`
}

// Workflow is the governed enterprise workflow document.
type Workflow struct {
	ID string `json:"id,omitempty"`
	WorkflowContent
	VersionControl VersionControl `json:"versionControl"`
	AuditLog       []AuditEntry   `json:"auditLog,omitempty"`
}

// Clone returns a deep copy of the content.
func (c WorkflowContent) Clone() WorkflowContent {
	out := c
	out.Tools = cloneSlice(c.Tools)
	out.ComplianceRequirements = cloneSlice(c.ComplianceRequirements)
	out.Metadata.Tags = cloneSlice(c.Metadata.Tags)
	out.Collaboration.SharedWith = cloneSlice(c.Collaboration.SharedWith)
	out.ApprovalWorkflow.Approvers = cloneSlice(c.ApprovalWorkflow.Approvers)
	out.ApprovalWorkflow.RequestedAt = cloneTime(c.ApprovalWorkflow.RequestedAt)
	out.ApprovalWorkflow.ApprovedAt = cloneTime(c.ApprovalWorkflow.ApprovedAt)
	out.ApprovalWorkflow.RejectedAt = cloneTime(c.ApprovalWorkflow.RejectedAt)
	return out
}

// Clone returns a deep copy of the workflow. Snapshots and audit
// entries are immutable, so their elements are copied by value.
func (w Workflow) Clone() Workflow {
	out := w
	out.WorkflowContent = w.WorkflowContent.Clone()
	out.VersionControl.PreviousVersions = cloneSlice(w.VersionControl.PreviousVersions)
	out.VersionControl.ChangeLog = cloneSlice(w.VersionControl.ChangeLog)
	out.AuditLog = cloneSlice(w.AuditLog)
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
