package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"workflow-governance/backend/internal/services"
	"workflow-governance/backend/pkg/models"
)

// ShareRequest is the body of a share call.
type ShareRequest struct {
	UserIDs     []string          `json:"userIds"`
	Permissions models.Permission `json:"permissions"`
}

// CommentRequest is the body of a comment call.
type CommentRequest struct {
	Content  string `json:"content"`
	ParentID string `json:"parentId,omitempty"`
}

// ListWorkflows returns stored workflows, newest first
// (GET /api/v1/workflows)
func (s *Server) ListWorkflows(c echo.Context) error {
	var opts services.ListOptions
	var status string
	if err := queryParam(c, "status", &status); err != nil {
		return err
	}
	opts.Status = models.WorkflowStatus(status)
	if err := queryParam(c, "createdBy", &opts.CreatedBy); err != nil {
		return err
	}
	if err := queryParam(c, "limit", &opts.Limit); err != nil {
		return err
	}
	if err := queryParam(c, "offset", &opts.Offset); err != nil {
		return err
	}
	if opts.Limit < 0 || opts.Offset < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "limit and offset must not be negative")
	}

	workflows, err := s.Service.List(c.Request().Context(), opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, workflows)
}

// CreateWorkflow stores a new workflow
// (POST /api/v1/workflows)
func (s *Server) CreateWorkflow(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var w models.Workflow
	if err := c.Bind(&w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}

	created, err := s.Service.Create(c.Request().Context(), w, actor, s.draftClearer(c)...)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderLocation, c.Request().URL.Path+"/"+created.ID)
	return c.JSON(http.StatusCreated, created)
}

// GetWorkflow returns one workflow
// (GET /api/v1/workflows/{id})
func (s *Server) GetWorkflow(c echo.Context) error {
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	w, err := s.Service.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

// UpdateWorkflow replaces the editable content of a workflow
// (PUT /api/v1/workflows/{id})
func (s *Server) UpdateWorkflow(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	var w models.Workflow
	if err := c.Bind(&w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}

	updated, err := s.Service.Update(c.Request().Context(), id, w, actor, s.draftClearer(c)...)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteWorkflow removes a workflow after recording its removal
// (DELETE /api/v1/workflows/{id})
func (s *Server) DeleteWorkflow(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	if err := s.Service.Delete(c.Request().Context(), id, actor); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ArchiveWorkflow moves a workflow to the archived status
// (POST /api/v1/workflows/{id}/archive)
func (s *Server) ArchiveWorkflow(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	w, err := s.Service.Archive(c.Request().Context(), id, actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

// ShareWorkflow grants users access to a workflow
// (POST /api/v1/workflows/{id}/share)
func (s *Server) ShareWorkflow(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	var req ShareRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}

	w, err := s.Service.Share(c.Request().Context(), id, req.UserIDs, req.Permissions, actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

// ListShares returns the share records of a workflow
// (GET /api/v1/workflows/{id}/shares)
func (s *Server) ListShares(c echo.Context) error {
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	shares, err := s.Service.Shares(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, shares)
}

// ListComments returns the comments on a workflow
// (GET /api/v1/workflows/{id}/comments)
func (s *Server) ListComments(c echo.Context) error {
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	comments, err := s.Service.ListComments(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, comments)
}

// AddComment posts a comment or a reply
// (POST /api/v1/workflows/{id}/comments)
func (s *Server) AddComment(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	var req CommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}

	comment, err := s.Service.AddComment(c.Request().Context(), id, actor, req.Content, req.ParentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, comment)
}
