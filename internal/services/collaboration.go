package services

import (
	"context"
	"fmt"
	"strings"

	"workflow-governance/backend/internal/errs"
	"workflow-governance/backend/internal/repository"
	"workflow-governance/backend/pkg/models"
)

// Share grants each user permissions on a workflow. One share record is
// stored per user and one audit entry covers them all.
func (s *GovernanceService) Share(ctx context.Context, id string, userIDs []string, permissions models.Permission, sharedBy models.Identity) (_ *models.Workflow, err error) {
	ctx, end := s.begin(ctx, "share", id)
	defer func() { end(err) }()

	users := uniqueIDs(userIDs)
	var problems []string
	if len(users) == 0 {
		problems = append(problems, "At least one user is required")
	}
	if !permissions.Valid() {
		problems = append(problems, fmt.Sprintf("Unknown permission: %s", permissions))
	}
	if len(problems) > 0 {
		return nil, errs.Validation(problems...)
	}

	stored, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	for _, u := range users {
		rec, err := repository.Encode(models.ShareRecord{
			WorkflowID:  id,
			UserID:      u,
			Permissions: permissions,
			SharedBy:    sharedBy.UserID,
			SharedAt:    now,
		})
		if err != nil {
			return nil, err
		}
		if _, err := s.store.Insert(ctx, SharesCollection, rec); err != nil {
			return nil, storageError("share workflow", err)
		}
	}

	next := stored.Clone()
	next.Collaboration.IsShared = true
	next.Collaboration.Permissions = permissions
	next.Collaboration.SharedWith = uniqueIDs(append(next.Collaboration.SharedWith, users...))
	next.Metadata.LastModified = now

	changes := map[string]models.FieldChange{
		"collaboration.sharedWith": {Old: stored.Collaboration.SharedWith, New: next.Collaboration.SharedWith},
	}
	if stored.Collaboration.Permissions != permissions {
		changes["collaboration.permissions"] = models.FieldChange{Old: stored.Collaboration.Permissions, New: permissions}
	}
	notes := "Shared with " + strings.Join(users, ", ")
	out, err := s.commit(ctx, next, s.entry(id, sharedBy, models.AuditShared, changes, notes))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Shares lists the share records of a workflow, oldest first.
func (s *GovernanceService) Shares(ctx context.Context, id string) ([]models.ShareRecord, error) {
	recs, err := s.store.Query(ctx, SharesCollection, repository.Filter{"workflowId": id}, nil, nil)
	if err != nil {
		return nil, storageError("list shares", err)
	}
	out := make([]models.ShareRecord, 0, len(recs))
	for _, rec := range recs {
		var sr models.ShareRecord
		if err := repository.Decode(rec, &sr); err != nil {
			return nil, err
		}
		sr.ID = rec.ID()
		out = append(out, sr)
	}
	return out, nil
}

// AddComment attaches a comment to a workflow that allows comments.
// parentID, when set, must name a comment on the same workflow.
func (s *GovernanceService) AddComment(ctx context.Context, id string, actor models.Identity, content, parentID string) (_ *models.Comment, err error) {
	ctx, end := s.begin(ctx, "comment", id)
	defer func() { end(err) }()

	stored, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !stored.Collaboration.AllowComments {
		return nil, errs.Validation("Comments are disabled for this workflow")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errs.Validation("Comment content is required")
	}
	if parentID != "" {
		if err := s.checkParent(ctx, id, parentID); err != nil {
			return nil, err
		}
	}

	c := models.Comment{
		WorkflowID: id,
		UserID:     actor.UserID,
		UserName:   actor.DisplayName,
		Content:    content,
		ParentID:   parentID,
		CreatedAt:  s.clock.Now(),
	}
	rec, err := repository.Encode(c)
	if err != nil {
		return nil, err
	}
	saved, err := s.store.Insert(ctx, CommentsCollection, rec)
	if err != nil {
		return nil, storageError("add comment", err)
	}
	c.ID = saved.ID()

	if _, err := s.commit(ctx, stored, s.entry(id, actor, models.AuditCommented, nil, "Comment "+c.ID)); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *GovernanceService) checkParent(ctx context.Context, workflowID, parentID string) error {
	rec, err := s.store.GetByID(ctx, CommentsCollection, parentID)
	if err != nil {
		return storageError("parent comment "+parentID, err)
	}
	var parent models.Comment
	if err := repository.Decode(rec, &parent); err != nil {
		return err
	}
	if parent.WorkflowID != workflowID {
		return errs.Validation("Parent comment belongs to another workflow")
	}
	return nil
}

// ListComments returns the comments of a workflow, oldest first.
func (s *GovernanceService) ListComments(ctx context.Context, id string) ([]models.Comment, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	recs, err := s.store.Query(ctx, CommentsCollection, repository.Filter{"workflowId": id}, nil, nil)
	if err != nil {
		return nil, storageError("list comments", err)
	}
	out := make([]models.Comment, 0, len(recs))
	for _, rec := range recs {
		var c models.Comment
		if err := repository.Decode(rec, &c); err != nil {
			return nil, err
		}
		c.ID = rec.ID()
		out = append(out, c)
	}
	return out, nil
}

// uniqueIDs trims ids and drops blanks and duplicates, keeping order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := []string{}
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
