package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workflow-governance/backend/internal/errs"
	"workflow-governance/backend/pkg/models"
)

func countAction(entries []models.AuditEntry, a models.AuditAction) int {
	n := 0
	for _, e := range entries {
		if e.Action == a {
			n++
		}
	}
	return n
}

func TestApproval_UnlistedApproverSucceeds(t *testing.T) {
	f := newFixture(t)
	w := newWorkflow()
	w.Collaboration.RequireApproval = true
	created := f.create(t, w)
	ctx := context.Background()

	_, err := f.svc.RequestApproval(ctx, created.ID, []string{"alice"}, "please check", alice)
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	got, err := f.svc.ApproveWorkflow(ctx, created.ID, "looks fine", bob)
	require.NoError(t, err)

	assert.Equal(t, models.ApprovalApproved, got.ApprovalWorkflow.Status)
	assert.Equal(t, models.StatusPublished, got.Metadata.Status)
	assert.Equal(t, "bob", got.Metadata.ApprovedBy)
	assert.Equal(t, 1, countAction(got.AuditLog, models.AuditApproved))
	assert.Equal(t,
		[]models.AuditAction{models.AuditCreated, models.AuditUpdated, models.AuditApproved},
		actions(got.AuditLog))
	assert.Equal(t, "Approval requested", got.AuditLog[1].Notes)

	// A published workflow that requires approval has an approved entry.
	stored, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, stored.Collaboration.RequireApproval)
	assert.True(t, stored.HasAuditAction(models.AuditApproved))
}

func TestApproval_OnlyFromPending(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, newWorkflow())
	ctx := context.Background()

	_, err := f.svc.ApproveWorkflow(ctx, created.ID, "", bob)
	assert.ErrorIs(t, err, errs.ErrStateConflict)
	_, err = f.svc.RejectWorkflow(ctx, created.ID, "", bob)
	assert.ErrorIs(t, err, errs.ErrStateConflict)

	_, err = f.svc.RequestApproval(ctx, created.ID, []string{"bob"}, "", alice)
	require.NoError(t, err)
	_, err = f.svc.RequestApproval(ctx, created.ID, []string{"bob"}, "", alice)
	assert.ErrorIs(t, err, errs.ErrStateConflict)

	_, err = f.svc.RequestApproval(ctx, created.ID, nil, "", alice)
	assert.ErrorIs(t, err, errs.ErrStateConflict)

	stored, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, stored.Metadata.Status)
	assert.Len(t, stored.AuditLog, 2)
}

func TestApproval_RejectThenRequestAgain(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, newWorkflow())
	ctx := context.Background()

	_, err := f.svc.RequestApproval(ctx, created.ID, []string{"bob"}, "", alice)
	require.NoError(t, err)
	rejected, err := f.svc.RejectWorkflow(ctx, created.ID, "add risk notes", bob)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalRejected, rejected.ApprovalWorkflow.Status)
	assert.Equal(t, models.StatusDraft, rejected.Metadata.Status)

	again, err := f.svc.RequestApproval(ctx, created.ID, []string{"bob"}, "", alice)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalPending, again.ApprovalWorkflow.Status)
	assert.Equal(t,
		[]models.AuditAction{models.AuditCreated, models.AuditUpdated, models.AuditRejected, models.AuditUpdated},
		actions(again.AuditLog))
}

func TestVersions_CreateAndRestore(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, newWorkflow())
	ctx := context.Background()

	v, err := f.svc.CreateVersion(ctx, created.ID, "baseline", alice)
	require.NoError(t, err)
	assert.Equal(t, "1.0.1", v.VersionControl.CurrentVersion)

	edit := v.Clone()
	edit.Name = "Edited"
	edit.Tools = priced("$5")
	_, err = f.svc.Update(ctx, created.ID, edit, alice)
	require.NoError(t, err)

	restored, err := f.svc.RestoreVersion(ctx, created.ID, "1.0.0", bob)
	require.NoError(t, err)

	assert.Equal(t, "Contract review", restored.Name)
	assert.Len(t, restored.Tools, 2)
	assert.Equal(t, created.ID, restored.ID)
	assert.Equal(t, "1.0.2", restored.VersionControl.CurrentVersion)
	assert.Equal(t, "1.0.2", restored.Metadata.Version)
	assert.Equal(t, []string{
		"v1.0.1: baseline",
		"v1.0.2: Before restore to version 1.0.0",
		"Restored to version 1.0.0",
	}, restored.VersionControl.ChangeLog)

	history, err := f.svc.Versions(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "1.0.1", history[0].Version)
	assert.Equal(t, "Edited", history[0].Snapshot.Name)

	assert.Equal(t, models.AuditUpdated, restored.AuditLog[len(restored.AuditLog)-1].Action)
	assert.Equal(t, "Restored to version 1.0.0", restored.AuditLog[len(restored.AuditLog)-1].Notes)
}

func TestRestoreVersion_Unknown(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, newWorkflow())

	_, err := f.svc.RestoreVersion(context.Background(), created.ID, "4.0.0", alice)

	assert.ErrorIs(t, err, errs.ErrNotFound)
	stored, err := f.svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.VersionControl.PreviousVersions)
}

func TestExportWorkflow(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, newWorkflow())
	ctx := context.Background()

	out, err := f.svc.ExportWorkflow(ctx, created.ID, "csv", bob)
	require.NoError(t, err)
	assert.Contains(t, out, "Workflow,Contract review")

	_, err = f.svc.ExportWorkflow(ctx, created.ID, "pdf", bob)
	assert.ErrorIs(t, err, errs.ErrValidation)

	trail, err := f.svc.AuditTrail(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.AuditAction{models.AuditCreated, models.AuditExported}, actions(trail))
	assert.Equal(t, "Exported as csv", trail[1].Notes)
}

// Every operation leaves the existing audit entries untouched.
func TestAuditTrail_AppendOnlyAcrossOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := newWorkflow()
	w.Collaboration.RequireApproval = true
	created := f.create(t, w)
	id := created.ID

	ops := []func() error{
		func() error {
			next := created.Clone()
			next.Description = "changed"
			_, err := f.svc.Update(ctx, id, next, alice)
			return err
		},
		func() error { _, err := f.svc.Share(ctx, id, []string{"bob"}, models.PermissionEdit, alice); return err },
		func() error { _, err := f.svc.AddComment(ctx, id, bob, "looks good", ""); return err },
		func() error { _, err := f.svc.CreateVersion(ctx, id, "v", alice); return err },
		func() error { _, err := f.svc.RestoreVersion(ctx, id, "1.0.0", alice); return err },
		func() error { _, err := f.svc.RequestApproval(ctx, id, []string{"bob"}, "", alice); return err },
		func() error { _, err := f.svc.ApproveWorkflow(ctx, id, "", bob); return err },
		func() error { _, err := f.svc.ExportWorkflow(ctx, id, "json", bob); return err },
		// Failing operations must not shrink the trail either.
		func() error { _, _ = f.svc.ApproveWorkflow(ctx, id, "", bob); return nil },
		func() error { _, err := f.svc.Archive(ctx, id, alice); return err },
	}

	before, err := f.svc.AuditTrail(ctx, id)
	require.NoError(t, err)
	for i, op := range ops {
		f.clock.Advance(time.Second)
		require.NoError(t, op(), "op %d", i)
		after, err := f.svc.AuditTrail(ctx, id)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(after), len(before), "op %d", i)
		assert.Equal(t, before, after[:len(before)], "op %d", i)
		before = after
	}
	assert.Len(t, before, 10)
}
