package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func sample() Workflow {
	requested := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	return Workflow{
		ID: "wf-1",
		WorkflowContent: WorkflowContent{
			Name:  "Intake",
			Tools: []Tool{{ID: "a", Name: "A"}},
			Metadata: Metadata{
				Version: "1.0.0",
				Tags:    []string{"ops"},
			},
			ApprovalWorkflow: ApprovalState{Approvers: []string{"bob"}, RequestedAt: &requested},
		},
		VersionControl: VersionControl{CurrentVersion: "1.0.0", ChangeLog: []string{"v1.0.0: init"}},
		AuditLog:       []AuditEntry{{ID: "e1", Action: AuditCreated}},
	}
}

func TestClone_IsDeep(t *testing.T) {
	w := sample()
	c := w.Clone()

	c.Tools[0].Name = "changed"
	c.Metadata.Tags[0] = "changed"
	c.ApprovalWorkflow.Approvers[0] = "changed"
	*c.ApprovalWorkflow.RequestedAt = time.Time{}
	c.VersionControl.ChangeLog[0] = "changed"
	c.AuditLog[0].Notes = "changed"

	assert.Equal(t, sample(), w)
}

func TestWithHelpers_LeaveReceiverUntouched(t *testing.T) {
	w := sample()
	now := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)

	out := w.
		WithAuditEntry(AuditEntry{ID: "e2", Action: AuditUpdated}).
		WithSnapshot(VersionSnapshot{Version: "1.0.0"}).
		WithChangeLog("v1.0.1: edit").
		WithVersion("1.0.1").
		WithStatus(StatusReview, now)

	assert.Equal(t, sample(), w)
	assert.Len(t, out.AuditLog, 2)
	assert.Len(t, out.VersionControl.PreviousVersions, 1)
	assert.Equal(t, []string{"v1.0.0: init", "v1.0.1: edit"}, out.VersionControl.ChangeLog)
	assert.Equal(t, "1.0.1", out.VersionControl.CurrentVersion)
	assert.Equal(t, "1.0.1", out.Metadata.Version)
	assert.Equal(t, StatusReview, out.Metadata.Status)
	assert.Equal(t, now, out.Metadata.LastModified)
}

func TestWithHistoryFrom(t *testing.T) {
	stored := sample().WithSnapshot(VersionSnapshot{Version: "1.0.0"}).WithVersion("1.0.1")

	incoming := sample()
	incoming.AuditLog = nil
	incoming.VersionControl = VersionControl{CurrentVersion: "9.9.9", BackupEnabled: true}
	incoming.Metadata.Version = "9.9.9"

	out := incoming.WithHistoryFrom(stored)

	assert.Equal(t, "1.0.1", out.VersionControl.CurrentVersion)
	assert.Equal(t, "1.0.1", out.Metadata.Version)
	assert.Len(t, out.VersionControl.PreviousVersions, 1)
	assert.True(t, out.VersionControl.BackupEnabled)
	assert.Equal(t, stored.AuditLog, out.AuditLog)
}

func TestHasAuditAction(t *testing.T) {
	w := sample()
	assert.True(t, w.HasAuditAction(AuditCreated))
	assert.False(t, w.HasAuditAction(AuditApproved))
}

func TestPermissionValid(t *testing.T) {
	assert.True(t, PermissionAdmin.Valid())
	assert.False(t, Permission("owner").Valid())
}

func TestWorkflowStatusValid(t *testing.T) {
	assert.True(t, StatusArchived.Valid())
	assert.False(t, WorkflowStatus("").Valid())
	assert.False(t, WorkflowStatus("bogus").Valid())
}

func TestDraftRecordExpired(t *testing.T) {
	exp := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)
	r := DraftRecord{ExpiresAt: exp}
	assert.False(t, r.Expired(exp))
	assert.True(t, r.Expired(exp.Add(time.Nanosecond)))
}
