// Package versioning maintains the linear version history of a workflow.
package versioning

import (
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"

	"workflow-governance/backend/internal/errs"
	"workflow-governance/backend/pkg/models"
)

// Next returns the patch successor of current. An empty or malformed
// version restarts the sequence at the initial version.
func Next(current string) string {
	v, err := semver.StrictNewVersion(current)
	if err != nil {
		return models.InitialVersion
	}
	return v.IncPatch().String()
}

// Snapshot records the content of w under its current version and moves
// w to the next patch version.
func Snapshot(w models.Workflow, description, userID string, now time.Time) models.Workflow {
	current := w.VersionControl.CurrentVersion
	if current == "" {
		current = w.Metadata.Version
	}
	snap := models.VersionSnapshot{
		Version:     current,
		CreatedAt:   now,
		CreatedBy:   userID,
		Description: description,
		Snapshot:    w.WorkflowContent.Clone(),
	}
	next := Next(current)
	return w.
		WithSnapshot(snap).
		WithVersion(next).
		WithChangeLog(fmt.Sprintf("v%s: %s", next, description))
}

// Restore replaces the content of w with the snapshot taken at target.
// Identity, history, current version and audit log are kept.
func Restore(w models.Workflow, target string) (models.Workflow, error) {
	snap, ok := Find(w, target)
	if !ok {
		return models.Workflow{}, fmt.Errorf("version %q: %w", target, errs.ErrNotFound)
	}
	out := w.Clone()
	out.WorkflowContent = snap.Snapshot.Clone()
	out.Metadata.Version = out.VersionControl.CurrentVersion
	return out.WithChangeLog("Restored to version " + target), nil
}

// Find returns the most recent snapshot taken at version.
func Find(w models.Workflow, version string) (models.VersionSnapshot, bool) {
	prev := w.VersionControl.PreviousVersions
	for i := len(prev) - 1; i >= 0; i-- {
		if prev[i].Version == version {
			return prev[i], true
		}
	}
	return models.VersionSnapshot{}, false
}

// History lists the snapshots of w, newest first.
func History(w models.Workflow) []models.VersionSnapshot {
	prev := w.VersionControl.PreviousVersions
	out := make([]models.VersionSnapshot, 0, len(prev))
	for i := len(prev) - 1; i >= 0; i-- {
		out = append(out, prev[i])
	}
	return out
}
