package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/trace"

	"workflow-governance/backend/internal/errs"
	"workflow-governance/backend/internal/logging"
	"workflow-governance/backend/pkg/models"
)

// problemFor maps an error onto an RFC 7807 body.
func problemFor(err error) models.ProblemDetails {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return models.ProblemDetails{
			Type:   "about:blank",
			Title:  http.StatusText(he.Code),
			Status: he.Code,
			Detail: fmt.Sprint(he.Message),
		}
	case errors.Is(err, errs.ErrValidation):
		return models.ProblemDetails{
			Type:   "about:blank",
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Detail: err.Error(),
			Errors: errs.Messages(err),
		}
	case errors.Is(err, errs.ErrNotFound):
		return models.ProblemDetails{Type: "about:blank", Title: "Not Found", Status: http.StatusNotFound, Detail: err.Error()}
	case errors.Is(err, errs.ErrStateConflict):
		return models.ProblemDetails{Type: "about:blank", Title: "Conflict", Status: http.StatusConflict, Detail: err.Error()}
	default:
		return models.ProblemDetails{
			Type:   "about:blank",
			Title:  "Internal Server Error",
			Status: http.StatusInternalServerError,
			Detail: "the request could not be completed",
		}
	}
}

// ErrorHandler renders handler errors as problem details. It replaces
// echo's default HTTPErrorHandler.
func ErrorHandler(logger *logging.Logger) echo.HTTPErrorHandler {
	if logger == nil {
		logger = logging.NewDiscard()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		problem := problemFor(err)
		problem.Instance = c.Request().URL.Path
		if sc := trace.SpanContextFromContext(c.Request().Context()); sc.HasTraceID() {
			problem.TraceID = sc.TraceID().String()
		}
		if problem.Status >= http.StatusInternalServerError {
			logger.Error("request failed", "method", c.Request().Method, "path", problem.Instance, "error", err)
		}

		c.Response().Header().Set(echo.HeaderContentType, "application/problem+json")
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(problem.Status)
		} else {
			err = c.JSON(problem.Status, problem)
		}
		if err != nil {
			logger.Error("failed to write error response", "error", err)
		}
	}
}
