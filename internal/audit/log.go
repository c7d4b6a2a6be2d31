// Package audit persists the per-workflow governance ledger.
//
// Entries are immutable once written: the ledger offers append and list,
// nothing else. Writes triggered by workflow mutations go through a
// Recorder so that a failing ledger never fails the mutation itself.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"workflow-governance/backend/internal/clock"
	"workflow-governance/backend/internal/errs"
	"workflow-governance/backend/internal/repository"
	"workflow-governance/backend/pkg/models"
)

// Collection holds ledger entries in the document store.
const Collection = "audit_log"

// entryIDKey keeps the entry's own id, since the store assigns record ids.
const entryIDKey = "entryId"

// NewEntry builds an entry with a fresh id.
func NewEntry(workflowID, userID, userName string, action models.AuditAction, changes map[string]models.FieldChange, notes string, now time.Time) models.AuditEntry {
	return models.AuditEntry{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		Action:     action,
		UserID:     userID,
		UserName:   userName,
		Timestamp:  now,
		Changes:    changes,
		Notes:      notes,
	}
}

// Log is the ledger over a document store.
type Log struct {
	store repository.DocumentStore
	clock clock.Clock
}

// NewLog creates a ledger. A nil clock means the wall clock.
func NewLog(store repository.DocumentStore, clk clock.Clock) *Log {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Log{store: store, clock: clk}
}

// Append records a new entry stamped with the current time.
func (l *Log) Append(ctx context.Context, workflowID, userID, userName string, action models.AuditAction, changes map[string]models.FieldChange, notes string) (models.AuditEntry, error) {
	return l.Write(ctx, NewEntry(workflowID, userID, userName, action, changes, notes, l.clock.Now()))
}

// Write persists a prepared entry. Entries without an id get one.
func (l *Log) Write(ctx context.Context, e models.AuditEntry) (models.AuditEntry, error) {
	if e.WorkflowID == "" {
		return models.AuditEntry{}, errs.Validation("audit entry has no workflow id")
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	rec, err := repository.Encode(e)
	if err != nil {
		return models.AuditEntry{}, err
	}
	rec[entryIDKey] = e.ID

	saved, err := l.store.Insert(ctx, Collection, rec)
	if err != nil {
		return models.AuditEntry{}, fmt.Errorf("failed to append audit entry: %w: %w", errs.ErrStorage, err)
	}
	return decode(saved)
}

// List returns the entries of a workflow, oldest first.
func (l *Log) List(ctx context.Context, workflowID string) ([]models.AuditEntry, error) {
	recs, err := l.store.Query(ctx, Collection, repository.Filter{"workflowId": workflowID}, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w: %w", errs.ErrStorage, err)
	}
	out := make([]models.AuditEntry, 0, len(recs))
	for _, rec := range recs {
		e, err := decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func decode(rec repository.Record) (models.AuditEntry, error) {
	var e models.AuditEntry
	if err := repository.Decode(rec, &e); err != nil {
		return models.AuditEntry{}, err
	}
	if id, ok := rec[entryIDKey].(string); ok && id != "" {
		e.ID = id
	}
	return e, nil
}

// Recent returns at most n entries, newest first. n <= 0 means all.
func Recent(entries []models.AuditEntry, n int) []models.AuditEntry {
	if n <= 0 || n > len(entries) {
		n = len(entries)
	}
	out := make([]models.AuditEntry, 0, n)
	for i := len(entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, entries[i])
	}
	return out
}
