// Package api contains the HTTP handlers of the workflow governance service.
package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"

	"workflow-governance/backend/internal/auth"
	"workflow-governance/backend/internal/draft"
	"workflow-governance/backend/internal/logging"
	"workflow-governance/backend/internal/services"
	"workflow-governance/backend/internal/validation"
	"workflow-governance/backend/pkg/models"
)

// DraftClientHeader names the client context whose draft a durable save
// clears.
const DraftClientHeader = "X-Draft-Client"

// Pinger checks a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the dependencies for the API server.
type Server struct {
	Service    *services.GovernanceService
	Drafts     *draft.Registry
	Catalog    []models.Bundle
	Validation validation.Context
	Store      Pinger
	Logger     *logging.Logger
	Version    string
}

// NewServer creates a new Server.
func NewServer(svc *services.GovernanceService, drafts *draft.Registry, catalog []models.Bundle, vctx validation.Context, store Pinger, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewDiscard()
	}
	return &Server{
		Service:    svc,
		Drafts:     drafts,
		Catalog:    catalog,
		Validation: vctx,
		Store:      store,
		Logger:     logger,
		Version:    "1.0.0",
	}
}

// RegisterHandlers mounts the authenticated routes on g, normally the
// /api/v1 group.
func RegisterHandlers(g *echo.Group, s *Server) {
	g.GET("/workflows", s.ListWorkflows)
	g.POST("/workflows", s.CreateWorkflow)
	g.GET("/workflows/:id", s.GetWorkflow)
	g.PUT("/workflows/:id", s.UpdateWorkflow)
	g.DELETE("/workflows/:id", s.DeleteWorkflow)
	g.POST("/workflows/:id/archive", s.ArchiveWorkflow)

	g.POST("/workflows/:id/share", s.ShareWorkflow)
	g.GET("/workflows/:id/shares", s.ListShares)
	g.GET("/workflows/:id/comments", s.ListComments)
	g.POST("/workflows/:id/comments", s.AddComment)

	g.POST("/workflows/:id/approval/request", s.RequestApproval)
	g.POST("/workflows/:id/approval/approve", s.ApproveWorkflow)
	g.POST("/workflows/:id/approval/reject", s.RejectWorkflow)

	g.GET("/workflows/:id/versions", s.ListVersions)
	g.POST("/workflows/:id/versions", s.CreateVersion)
	g.POST("/workflows/:id/versions/:version/restore", s.RestoreVersion)

	g.GET("/workflows/:id/audit", s.AuditTrail)
	g.GET("/workflows/:id/export", s.ExportWorkflow)

	g.POST("/validate", s.Validate)
	g.POST("/recommendations", s.Recommend)

	g.GET("/drafts/:client", s.GetDraft)
	g.PUT("/drafts/:client", s.SaveDraft)
	g.DELETE("/drafts/:client", s.ClearDraft)
	g.GET("/drafts/:client/info", s.DraftInfo)
}

// identity returns the caller placed in the context by auth.RequireAuth.
func identity(c echo.Context) (models.Identity, error) {
	id, ok := auth.FromContext(c.Request().Context())
	if !ok || id.UserID == "" {
		return models.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "identity not found in context")
	}
	return id, nil
}

// pathParam binds a required simple-style path parameter.
func pathParam(c echo.Context, name string) (string, error) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, c.Param(name), &v,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "Invalid format for parameter "+name+": "+err.Error())
	}
	return v, nil
}

// queryParam binds an optional form-style query parameter into dest.
func queryParam(c echo.Context, name string, dest any) error {
	if err := runtime.BindQueryParameter("form", true, false, name, c.QueryParams(), dest); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid format for parameter "+name+": "+err.Error())
	}
	return nil
}

// draftClearer returns the caller's draft store named by the request
// header, if any.
func (s *Server) draftClearer(c echo.Context) []services.DraftClearer {
	client := c.Request().Header.Get(DraftClientHeader)
	if client == "" || s.Drafts == nil {
		return nil
	}
	actor, err := identity(c)
	if err != nil {
		return nil
	}
	return []services.DraftClearer{s.Drafts.For(draftKey(actor, client))}
}
