package models

import "time"

// The With* helpers are the only way the append-only histories grow.
// Each returns a copy and leaves the receiver untouched.

// WithAuditEntry returns a copy of w with e appended to the audit log.
func (w Workflow) WithAuditEntry(e AuditEntry) Workflow {
	out := w.Clone()
	out.AuditLog = append(out.AuditLog, e)
	return out
}

// WithSnapshot returns a copy of w with s appended to the version history.
func (w Workflow) WithSnapshot(s VersionSnapshot) Workflow {
	out := w.Clone()
	out.VersionControl.PreviousVersions = append(out.VersionControl.PreviousVersions, s)
	return out
}

// WithChangeLog returns a copy of w with line appended to the change log.
func (w Workflow) WithChangeLog(line string) Workflow {
	out := w.Clone()
	out.VersionControl.ChangeLog = append(out.VersionControl.ChangeLog, line)
	return out
}

// WithVersion returns a copy of w whose current version, mirrored into
// the metadata, is v.
func (w Workflow) WithVersion(v string) Workflow {
	out := w.Clone()
	out.VersionControl.CurrentVersion = v
	out.Metadata.Version = v
	return out
}

// WithStatus returns a copy of w in status s, touched at now.
func (w Workflow) WithStatus(s WorkflowStatus, now time.Time) Workflow {
	out := w.Clone()
	out.Metadata.Status = s
	out.Metadata.LastModified = now
	return out
}

// WithHistoryFrom returns a copy of w carrying the version history and
// audit log of stored. Callers cannot rewrite either through a full
// document replace.
func (w Workflow) WithHistoryFrom(stored Workflow) Workflow {
	out := w.Clone()
	vc := stored.Clone().VersionControl
	vc.AutoSave = w.VersionControl.AutoSave
	vc.BackupEnabled = w.VersionControl.BackupEnabled
	out.VersionControl = vc
	out.Metadata.Version = vc.CurrentVersion
	out.AuditLog = cloneSlice(stored.AuditLog)
	return out
}

// HasAuditAction reports whether the embedded audit log holds an entry
// with action a.
func (w Workflow) HasAuditAction(a AuditAction) bool {
	for _, e := range w.AuditLog {
		if e.Action == a {
			return true
		}
	}
	return false
}
