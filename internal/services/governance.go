// Package services holds the governance service: the lifecycle of
// workflow documents, with version history, audit trail and approvals.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"workflow-governance/backend/internal/approval"
	"workflow-governance/backend/internal/audit"
	"workflow-governance/backend/internal/clock"
	"workflow-governance/backend/internal/errs"
	"workflow-governance/backend/internal/logging"
	"workflow-governance/backend/internal/repository"
	"workflow-governance/backend/internal/telemetry"
	"workflow-governance/backend/internal/validation"
	"workflow-governance/backend/internal/versioning"
	"workflow-governance/backend/pkg/models"
)

// Document store collections.
const (
	WorkflowsCollection = "workflows"
	CommentsCollection  = "workflow_comments"
	SharesCollection    = "workflow_shares"
)

const backupDescription = "Automatic backup before update"

// DraftClearer drops the draft of the client that made a durable save.
type DraftClearer interface {
	Clear(ctx context.Context) error
}

// ListOptions filters and pages List.
type ListOptions struct {
	Status    models.WorkflowStatus
	CreatedBy string
	Limit     int
	Offset    int
}

// GovernanceService manages governed workflow documents.
type GovernanceService struct {
	store    repository.DocumentStore
	recorder audit.Recorder
	clock    clock.Clock
	logger   *logging.Logger

	ledger     *audit.Log
	validation validation.Context
	tracer     trace.Tracer
	actions    *telemetry.ActionCounter
}

// Option configures a GovernanceService.
type Option func(*GovernanceService)

// WithLedger lets AuditTrail answer for deleted workflows.
func WithLedger(l *audit.Log) Option {
	return func(s *GovernanceService) { s.ledger = l }
}

// WithValidation sets the rules checked before publishing.
func WithValidation(vctx validation.Context) Option {
	return func(s *GovernanceService) { s.validation = vctx }
}

// WithTracer replaces the module tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *GovernanceService) { s.tracer = t }
}

// WithActionCounter sets the counter of service actions.
func WithActionCounter(c *telemetry.ActionCounter) Option {
	return func(s *GovernanceService) { s.actions = c }
}

// NewGovernanceService creates a new GovernanceService.
func NewGovernanceService(store repository.DocumentStore, recorder audit.Recorder, clk clock.Clock, logger *logging.Logger, opts ...Option) *GovernanceService {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = logging.NewDiscard()
	}
	s := &GovernanceService{
		store:    store,
		recorder: recorder,
		clock:    clk,
		logger:   logger,
		tracer:   telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new workflow owned by actor. The status defaults to
// draft. A workflow created in review with approval required opens an
// approval request at once.
func (s *GovernanceService) Create(ctx context.Context, w models.Workflow, actor models.Identity, drafts ...DraftClearer) (_ *models.Workflow, err error) {
	ctx, end := s.begin(ctx, "create", "")
	defer func() { end(err) }()

	now := s.clock.Now()
	next := w.Clone()
	next.ID = ""
	next.AuditLog = nil
	next.VersionControl.PreviousVersions = nil
	next.VersionControl.ChangeLog = nil
	if next.Metadata.Status == "" {
		next.Metadata.Status = models.StatusDraft
	}
	if err := checkEnums(next); err != nil {
		return nil, err
	}
	version := next.VersionControl.CurrentVersion
	if version == "" {
		version = next.Metadata.Version
	}
	if version == "" {
		version = models.InitialVersion
	}
	next = next.WithVersion(version)
	next.Metadata.CreatedBy = actor.UserID
	next.Metadata.LastModified = now
	next.Metadata.ApprovedBy = ""
	next.TotalCost = TotalCost(next.Tools)
	next.ApprovalWorkflow = models.ApprovalState{
		IsEnabled: next.ApprovalWorkflow.IsEnabled,
		Approvers: next.ApprovalWorkflow.Approvers,
		Status:    models.ApprovalNone,
	}

	if next.Metadata.Status == models.StatusPublished {
		if err := s.checkPublish(next); err != nil {
			return nil, err
		}
	}

	opensApproval := next.Collaboration.RequireApproval && next.Metadata.Status == models.StatusReview
	if opensApproval {
		next, err = approval.Request(next, next.ApprovalWorkflow.Approvers, next.ApprovalWorkflow.ApprovalNotes, now)
		if err != nil {
			return nil, err
		}
	}

	rec, err := repository.Encode(next)
	if err != nil {
		return nil, err
	}
	saved, err := s.store.Insert(ctx, WorkflowsCollection, rec)
	if err != nil {
		return nil, storageError("create workflow", err)
	}
	next.ID = saved.ID()

	entries := []models.AuditEntry{s.entry(next.ID, actor, models.AuditCreated, nil, "")}
	if opensApproval {
		entries = append(entries, s.entry(next.ID, actor, models.AuditUpdated, nil, approvalRequestedNote))
	}
	out, err := s.commit(ctx, next, entries...)
	if err != nil {
		return nil, err
	}

	s.logger.Info("workflow created", "workflow_id", out.ID, "user_id", actor.UserID, "status", out.Metadata.Status)
	s.clearDrafts(ctx, drafts)
	return &out, nil
}

// Get returns a workflow by id.
func (s *GovernanceService) Get(ctx context.Context, id string) (_ *models.Workflow, err error) {
	ctx, end := s.begin(ctx, "get", id)
	defer func() { end(err) }()

	w, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// List returns workflows matching opts, most recently modified first.
func (s *GovernanceService) List(ctx context.Context, opts ListOptions) (_ []models.Workflow, err error) {
	ctx, end := s.begin(ctx, "list", "")
	defer func() { end(err) }()

	filter := repository.Filter{}
	if opts.Status != "" {
		filter["metadata.status"] = string(opts.Status)
	}
	if opts.CreatedBy != "" {
		filter["metadata.createdBy"] = opts.CreatedBy
	}
	recs, err := s.store.Query(ctx, WorkflowsCollection, filter, nil, nil)
	if err != nil {
		return nil, storageError("list workflows", err)
	}

	out := make([]models.Workflow, 0, len(recs))
	for _, rec := range recs {
		w, err := decodeWorkflow(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Metadata.LastModified.After(out[j].Metadata.LastModified)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return []models.Workflow{}, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

// Update replaces the workflow content with w. Identity, owner, version
// history, approval state and audit log are carried over from the stored
// document. Concurrent updates are not detected: the last write wins.
func (s *GovernanceService) Update(ctx context.Context, id string, w models.Workflow, actor models.Identity, drafts ...DraftClearer) (_ *models.Workflow, err error) {
	ctx, end := s.begin(ctx, "update", id)
	defer func() { end(err) }()

	stored, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	base := stored
	if w.VersionControl.BackupEnabled {
		base = versioning.Snapshot(stored, backupDescription, actor.UserID, now)
	}

	next := w.WithHistoryFrom(base)
	next.ID = id
	next.Metadata.CreatedBy = stored.Metadata.CreatedBy
	next.Metadata.ApprovedBy = stored.Metadata.ApprovedBy
	next.Metadata.LastModified = now
	next.ApprovalWorkflow = stored.Clone().ApprovalWorkflow
	if next.Metadata.Status == "" {
		next.Metadata.Status = stored.Metadata.Status
	}
	if toolsEqual(stored.Tools, next.Tools) {
		next.TotalCost = stored.TotalCost
	} else {
		next.TotalCost = TotalCost(next.Tools)
	}

	if err := checkEnums(next); err != nil {
		return nil, err
	}

	from, to := stored.Metadata.Status, next.Metadata.Status
	switch {
	case to == models.StatusPublished && from != models.StatusPublished:
		if err := s.checkPublish(next); err != nil {
			return nil, err
		}
	case to == models.StatusPublished && !approval.CanPublish(next):
		// Turning on approval for a live workflow needs an approved cycle.
		return nil, errs.Validation("Approval is required before publishing")
	}
	if from == models.StatusPublished && to != models.StatusPublished &&
		next.ApprovalWorkflow.Status == models.ApprovalApproved {
		next.ApprovalWorkflow = models.ApprovalState{
			IsEnabled: next.ApprovalWorkflow.IsEnabled,
			Approvers: next.ApprovalWorkflow.Approvers,
			Status:    models.ApprovalNone,
		}
	}

	action := models.AuditUpdated
	if to == models.StatusArchived && from != models.StatusArchived {
		action = models.AuditArchived
	}
	changes := diff(stored.WorkflowContent, next.WorkflowContent)
	out, err := s.commit(ctx, next, s.entry(id, actor, action, changes, ""))
	if err != nil {
		return nil, err
	}

	s.logger.Info("workflow updated", "workflow_id", id, "user_id", actor.UserID, "action", action, "changed_fields", len(changes))
	s.clearDrafts(ctx, drafts)
	return &out, nil
}

// Archive moves a workflow to archived through Update, keeping the
// document.
func (s *GovernanceService) Archive(ctx context.Context, id string, actor models.Identity) (*models.Workflow, error) {
	stored, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Update(ctx, id, stored.WithStatus(models.StatusArchived, s.clock.Now()), actor)
}

// Delete removes a workflow for good. An archived entry is written to the
// audit trail before the document goes.
func (s *GovernanceService) Delete(ctx context.Context, id string, actor models.Identity) (err error) {
	ctx, end := s.begin(ctx, "delete", id)
	defer func() { end(err) }()

	stored, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.commit(ctx, stored, s.entry(id, actor, models.AuditArchived, nil, "Deleted")); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, WorkflowsCollection, id); err != nil {
		return storageError("delete workflow", err)
	}
	s.logger.Info("workflow deleted", "workflow_id", id, "user_id", actor.UserID)
	return nil
}

// checkEnums rejects unknown status and permission values. An empty
// permission is left unset.
func checkEnums(w models.Workflow) error {
	var msgs []string
	if !w.Metadata.Status.Valid() {
		msgs = append(msgs, fmt.Sprintf("Unknown workflow status %q", w.Metadata.Status))
	}
	if p := w.Collaboration.Permissions; p != "" && !p.Valid() {
		msgs = append(msgs, fmt.Sprintf("Unknown permission level %q", p))
	}
	if len(msgs) > 0 {
		return errs.Validation(msgs...)
	}
	return nil
}

// checkPublish reports why w cannot be published directly, if it cannot.
func (s *GovernanceService) checkPublish(w models.Workflow) error {
	if !approval.CanPublish(w) {
		return errs.Validation("Approval is required before publishing")
	}
	if res := validation.Validate(w, s.validation); !res.IsValid {
		return errs.Validation(res.Errors...)
	}
	return nil
}

// load fetches and decodes a workflow.
func (s *GovernanceService) load(ctx context.Context, id string) (models.Workflow, error) {
	rec, err := s.store.GetByID(ctx, WorkflowsCollection, id)
	if err != nil {
		return models.Workflow{}, storageError("workflow "+id, err)
	}
	return decodeWorkflow(rec)
}

// commit appends entries to w, writes it, then hands the entries to the
// recorder. Recorder failures never reach the caller.
func (s *GovernanceService) commit(ctx context.Context, w models.Workflow, entries ...models.AuditEntry) (models.Workflow, error) {
	for _, e := range entries {
		w = w.WithAuditEntry(e)
	}
	rec, err := repository.Encode(w)
	if err != nil {
		return models.Workflow{}, err
	}
	if _, err := s.store.Update(ctx, WorkflowsCollection, w.ID, rec); err != nil {
		return models.Workflow{}, storageError("save workflow "+w.ID, err)
	}
	if s.recorder != nil {
		for _, e := range entries {
			s.recorder.Record(ctx, e)
		}
	}
	return w, nil
}

func (s *GovernanceService) entry(workflowID string, actor models.Identity, action models.AuditAction, changes map[string]models.FieldChange, notes string) models.AuditEntry {
	return audit.NewEntry(workflowID, actor.UserID, actor.DisplayName, action, changes, notes, s.clock.Now())
}

func (s *GovernanceService) clearDrafts(ctx context.Context, drafts []DraftClearer) {
	for _, d := range drafts {
		if d == nil {
			continue
		}
		if err := d.Clear(ctx); err != nil {
			s.logger.Warn("failed to clear draft", "error", err)
		}
	}
}

// begin opens a span for op and returns the function that closes it.
func (s *GovernanceService) begin(ctx context.Context, op, workflowID string) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, "governance."+op)
	if workflowID != "" {
		span.SetAttributes(attribute.String("workflow.id", workflowID))
	}
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		s.actions.Add(ctx, op, err)
		span.End()
	}
}

func decodeWorkflow(rec repository.Record) (models.Workflow, error) {
	var w models.Workflow
	if err := repository.Decode(rec, &w); err != nil {
		return models.Workflow{}, fmt.Errorf("%w: %w", errs.ErrStorage, err)
	}
	w.ID = rec.ID()
	return w, nil
}

// storageError maps store errors onto the service taxonomy.
func storageError(what string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, errs.ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", what, errs.ErrStorage, err)
}
