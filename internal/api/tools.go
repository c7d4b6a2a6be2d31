package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"workflow-governance/backend/internal/recommend"
	"workflow-governance/backend/internal/validation"
	"workflow-governance/backend/pkg/models"
)

// RecommendRequest is the body of a recommendation call.
type RecommendRequest struct {
	Text string `json:"text"`
}

// Validate checks a workflow without storing it
// (POST /api/v1/validate)
func (s *Server) Validate(c echo.Context) error {
	var w models.Workflow
	if err := c.Bind(&w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	return c.JSON(http.StatusOK, validation.Validate(w, s.Validation))
}

// Recommend suggests a bundle for a use case description
// (POST /api/v1/recommendations)
func (s *Server) Recommend(c echo.Context) error {
	var req RecommendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	return c.JSON(http.StatusOK, recommend.Match(req.Text, s.Catalog))
}
