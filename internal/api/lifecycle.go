package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"workflow-governance/backend/internal/audit"
	"workflow-governance/backend/internal/services"
)

// ApprovalRequest is the body of an approval request.
type ApprovalRequest struct {
	Approvers []string `json:"approvers"`
	Notes     string   `json:"notes,omitempty"`
}

// DecisionRequest is the body of an approve or reject call.
type DecisionRequest struct {
	Notes string `json:"notes,omitempty"`
}

// VersionRequest is the body of a manual snapshot.
type VersionRequest struct {
	Description string `json:"description"`
}

// RequestApproval opens an approval cycle
// (POST /api/v1/workflows/{id}/approval/request)
func (s *Server) RequestApproval(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	var req ApprovalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}

	w, err := s.Service.RequestApproval(c.Request().Context(), id, req.Approvers, req.Notes, actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

// ApproveWorkflow approves the pending cycle and publishes the workflow
// (POST /api/v1/workflows/{id}/approval/approve)
func (s *Server) ApproveWorkflow(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	var req DecisionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}

	w, err := s.Service.ApproveWorkflow(c.Request().Context(), id, req.Notes, actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

// RejectWorkflow rejects the pending cycle
// (POST /api/v1/workflows/{id}/approval/reject)
func (s *Server) RejectWorkflow(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	var req DecisionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}

	w, err := s.Service.RejectWorkflow(c.Request().Context(), id, req.Notes, actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

// ListVersions returns the snapshots of a workflow, newest first
// (GET /api/v1/workflows/{id}/versions)
func (s *Server) ListVersions(c echo.Context) error {
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	versions, err := s.Service.Versions(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, versions)
}

// CreateVersion snapshots the current content
// (POST /api/v1/workflows/{id}/versions)
func (s *Server) CreateVersion(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	var req VersionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}

	w, err := s.Service.CreateVersion(c.Request().Context(), id, req.Description, actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, w)
}

// RestoreVersion brings back the content of an earlier version
// (POST /api/v1/workflows/{id}/versions/{version}/restore)
func (s *Server) RestoreVersion(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	version, err := pathParam(c, "version")
	if err != nil {
		return err
	}

	w, err := s.Service.RestoreVersion(c.Request().Context(), id, version, actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

// AuditTrail returns the audit entries of a workflow. With ?recent=n only
// the n newest entries are returned, newest first.
// (GET /api/v1/workflows/{id}/audit)
func (s *Server) AuditTrail(c echo.Context) error {
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	var recent int
	if err := queryParam(c, "recent", &recent); err != nil {
		return err
	}

	entries, err := s.Service.AuditTrail(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if recent > 0 {
		entries = audit.Recent(entries, recent)
	}
	return c.JSON(http.StatusOK, entries)
}

// ExportWorkflow renders a workflow as json, yaml or csv
// (GET /api/v1/workflows/{id}/export?format=)
func (s *Server) ExportWorkflow(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	format := services.FormatJSON
	if err := queryParam(c, "format", &format); err != nil {
		return err
	}
	format = strings.ToLower(format)

	body, err := s.Service.ExportWorkflow(c.Request().Context(), id, format, actor)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", "workflow-"+id+"."+format))
	return c.Blob(http.StatusOK, services.ContentType(format), []byte(body))
}
