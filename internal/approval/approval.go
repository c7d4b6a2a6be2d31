// Package approval implements the approval state machine of a workflow:
//
//	none/rejected/approved -> pending -> approved | rejected
//
// Every transition returns a new Workflow and leaves its input untouched.
// The caller records the matching audit entry.
package approval

import (
	"fmt"
	"strings"
	"time"

	"workflow-governance/backend/internal/errs"
	"workflow-governance/backend/pkg/models"
)

// ErrNoApprovers is the validation message for an empty approver list.
const ErrNoApprovers = "At least one approver is required"

// Request opens a new approval cycle.
func Request(w models.Workflow, approvers []string, notes string, now time.Time) (models.Workflow, error) {
	state := current(w)
	if state == models.ApprovalPending {
		return models.Workflow{}, fmt.Errorf("approval already pending: %w", errs.ErrStateConflict)
	}

	list := normalize(approvers)
	if len(list) == 0 {
		return models.Workflow{}, errs.Validation(ErrNoApprovers)
	}

	out := w.Clone()
	requested := now
	out.ApprovalWorkflow = models.ApprovalState{
		IsEnabled:     true,
		Approvers:     list,
		Status:        models.ApprovalPending,
		RequestedAt:   &requested,
		ApprovalNotes: notes,
	}
	out.Metadata.LastModified = now
	return out, nil
}

// Approve closes the pending cycle as approved and publishes the workflow.
// Any approver id is accepted; see IsApprover.
func Approve(w models.Workflow, approverID, notes string, now time.Time) (models.Workflow, error) {
	if err := requirePending(w); err != nil {
		return models.Workflow{}, err
	}

	out := w.WithStatus(models.StatusPublished, now)
	approved := now
	out.ApprovalWorkflow.Status = models.ApprovalApproved
	out.ApprovalWorkflow.ApprovedAt = &approved
	out.ApprovalWorkflow.RejectedAt = nil
	if notes != "" {
		out.ApprovalWorkflow.ApprovalNotes = notes
	}
	out.Metadata.ApprovedBy = approverID
	return out, nil
}

// Reject closes the pending cycle as rejected. The workflow status is kept.
func Reject(w models.Workflow, approverID, notes string, now time.Time) (models.Workflow, error) {
	if err := requirePending(w); err != nil {
		return models.Workflow{}, err
	}

	out := w.Clone()
	rejected := now
	out.ApprovalWorkflow.Status = models.ApprovalRejected
	out.ApprovalWorkflow.RejectedAt = &rejected
	out.ApprovalWorkflow.ApprovedAt = nil
	if notes != "" {
		out.ApprovalWorkflow.ApprovalNotes = notes
	}
	out.Metadata.LastModified = now
	return out, nil
}

// IsApprover reports whether id is listed on the current cycle.
func IsApprover(w models.Workflow, id string) bool {
	for _, a := range w.ApprovalWorkflow.Approvers {
		if a == id {
			return true
		}
	}
	return false
}

// CanPublish reports whether w may be published without a new cycle.
func CanPublish(w models.Workflow) bool {
	return !w.Collaboration.RequireApproval || current(w) == models.ApprovalApproved
}

func requirePending(w models.Workflow) error {
	if s := current(w); s != models.ApprovalPending {
		return fmt.Errorf("approval is %s, not pending: %w", s, errs.ErrStateConflict)
	}
	return nil
}

func current(w models.Workflow) models.ApprovalStatus {
	if w.ApprovalWorkflow.Status == "" {
		return models.ApprovalNone
	}
	return w.ApprovalWorkflow.Status
}

// normalize trims ids and drops blanks and duplicates, keeping order.
func normalize(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
