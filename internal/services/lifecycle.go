package services

import (
	"context"
	"errors"
	"fmt"

	"workflow-governance/backend/internal/approval"
	"workflow-governance/backend/internal/errs"
	"workflow-governance/backend/internal/versioning"
	"workflow-governance/backend/pkg/models"
)

const approvalRequestedNote = "Approval requested"

// RequestApproval opens an approval cycle with the given approvers.
func (s *GovernanceService) RequestApproval(ctx context.Context, id string, approvers []string, notes string, actor models.Identity) (_ *models.Workflow, err error) {
	ctx, end := s.begin(ctx, "request_approval", id)
	defer func() { end(err) }()

	stored, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := approval.Request(stored, approvers, notes, s.clock.Now())
	if err != nil {
		return nil, err
	}
	changes := map[string]models.FieldChange{
		"approvalWorkflow.status": {Old: stored.ApprovalWorkflow.Status, New: next.ApprovalWorkflow.Status},
	}
	out, err := s.commit(ctx, next, s.entry(id, actor, models.AuditUpdated, changes, approvalRequestedNote))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ApproveWorkflow approves the pending cycle as actor and publishes the
// workflow. Membership in the approver list is not checked.
func (s *GovernanceService) ApproveWorkflow(ctx context.Context, id, notes string, actor models.Identity) (_ *models.Workflow, err error) {
	ctx, end := s.begin(ctx, "approve", id)
	defer func() { end(err) }()

	stored, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := approval.Approve(stored, actor.UserID, notes, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !approval.IsApprover(stored, actor.UserID) {
		s.logger.Warn("workflow approved by unlisted approver", "workflow_id", id, "user_id", actor.UserID)
	}
	changes := map[string]models.FieldChange{
		"metadata.status": {Old: stored.Metadata.Status, New: next.Metadata.Status},
	}
	out, err := s.commit(ctx, next, s.entry(id, actor, models.AuditApproved, changes, notes))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RejectWorkflow rejects the pending cycle as actor.
func (s *GovernanceService) RejectWorkflow(ctx context.Context, id, notes string, actor models.Identity) (_ *models.Workflow, err error) {
	ctx, end := s.begin(ctx, "reject", id)
	defer func() { end(err) }()

	stored, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := approval.Reject(stored, actor.UserID, notes, s.clock.Now())
	if err != nil {
		return nil, err
	}
	out, err := s.commit(ctx, next, s.entry(id, actor, models.AuditRejected, nil, notes))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateVersion snapshots the current content and bumps the version.
func (s *GovernanceService) CreateVersion(ctx context.Context, id, description string, actor models.Identity) (_ *models.Workflow, err error) {
	ctx, end := s.begin(ctx, "create_version", id)
	defer func() { end(err) }()

	stored, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next := versioning.Snapshot(stored, description, actor.UserID, s.clock.Now())
	changes := map[string]models.FieldChange{
		"versionControl.currentVersion": {Old: stored.VersionControl.CurrentVersion, New: next.VersionControl.CurrentVersion},
	}
	notes := fmt.Sprintf("Created version %s", next.VersionControl.CurrentVersion)
	out, err := s.commit(ctx, next, s.entry(id, actor, models.AuditUpdated, changes, notes))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Versions lists the snapshots of a workflow, newest first.
func (s *GovernanceService) Versions(ctx context.Context, id string) ([]models.VersionSnapshot, error) {
	stored, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return versioning.History(stored), nil
}

// RestoreVersion brings back the content of version. The live content is
// snapshotted first, so the current version still moves forward.
func (s *GovernanceService) RestoreVersion(ctx context.Context, id, version string, actor models.Identity) (_ *models.Workflow, err error) {
	ctx, end := s.begin(ctx, "restore_version", id)
	defer func() { end(err) }()

	stored, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, ok := versioning.Find(stored, version); !ok {
		return nil, fmt.Errorf("version %q of workflow %s: %w", version, id, errs.ErrNotFound)
	}

	now := s.clock.Now()
	backup := versioning.Snapshot(stored, "Before restore to version "+version, actor.UserID, now)
	next, err := versioning.Restore(backup, version)
	if err != nil {
		return nil, err
	}
	next.Metadata.LastModified = now

	changes := diff(stored.WorkflowContent, next.WorkflowContent)
	out, err := s.commit(ctx, next, s.entry(id, actor, models.AuditUpdated, changes, "Restored to version "+version))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AuditTrail returns the audit entries of a workflow, oldest first. For a
// deleted workflow the ledger is consulted, when one is configured.
func (s *GovernanceService) AuditTrail(ctx context.Context, id string) (_ []models.AuditEntry, err error) {
	ctx, end := s.begin(ctx, "audit_trail", id)
	defer func() { end(err) }()

	stored, err := s.load(ctx, id)
	if err == nil {
		out := make([]models.AuditEntry, len(stored.AuditLog))
		copy(out, stored.AuditLog)
		return out, nil
	}
	if !errors.Is(err, errs.ErrNotFound) || s.ledger == nil {
		return nil, err
	}

	entries, lerr := s.ledger.List(ctx, id)
	if lerr != nil {
		return nil, lerr
	}
	if len(entries) == 0 {
		return nil, err
	}
	return entries, nil
}

// ExportWorkflow renders a stored workflow and records the export.
func (s *GovernanceService) ExportWorkflow(ctx context.Context, id, format string, actor models.Identity) (_ string, err error) {
	ctx, end := s.begin(ctx, "export", id)
	defer func() { end(err) }()

	stored, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	out, err := Export(stored, format)
	if err != nil {
		return "", err
	}
	if _, err := s.commit(ctx, stored, s.entry(id, actor, models.AuditExported, nil, "Exported as "+format)); err != nil {
		return "", err
	}
	return out, nil
}
