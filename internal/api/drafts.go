package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"workflow-governance/backend/internal/draft"
	"workflow-governance/backend/pkg/models"
)

// draftKey scopes a client context to the caller, so one user never
// reaches another user's drafts.
func draftKey(actor models.Identity, client string) string {
	return actor.UserID + "/" + client
}

func (s *Server) draftKeyOf(c echo.Context) (string, error) {
	if s.Drafts == nil {
		return "", echo.NewHTTPError(http.StatusServiceUnavailable, "draft storage is not configured")
	}
	actor, err := identity(c)
	if err != nil {
		return "", err
	}
	client, err := pathParam(c, "client")
	if err != nil {
		return "", err
	}
	return draftKey(actor, client), nil
}

func (s *Server) draftStore(c echo.Context) (*draft.Store, error) {
	key, err := s.draftKeyOf(c)
	if err != nil {
		return nil, err
	}
	return s.Drafts.For(key), nil
}

// GetDraft returns the recoverable draft of a client
// (GET /api/v1/drafts/{client})
func (s *Server) GetDraft(c echo.Context) error {
	store, err := s.draftStore(c)
	if err != nil {
		return err
	}
	w, err := store.Load(c.Request().Context())
	if err != nil {
		return err
	}
	if w == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no draft stored")
	}
	return c.JSON(http.StatusOK, w)
}

// SaveDraft stores the draft of a client. With ?autosave=true the write
// is debounced and the call returns 202 at once.
// (PUT /api/v1/drafts/{client})
func (s *Server) SaveDraft(c echo.Context) error {
	store, err := s.draftStore(c)
	if err != nil {
		return err
	}
	var autosave bool
	if err := queryParam(c, "autosave", &autosave); err != nil {
		return err
	}
	var w models.Workflow
	if err := c.Bind(&w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}

	if autosave {
		store.AutoSave(c.Request().Context(), w)
		return c.NoContent(http.StatusAccepted)
	}
	if err := store.Save(c.Request().Context(), w); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ClearDraft discards the draft of a client
// (DELETE /api/v1/drafts/{client})
func (s *Server) ClearDraft(c echo.Context) error {
	key, err := s.draftKeyOf(c)
	if err != nil {
		return err
	}
	if err := s.Drafts.Clear(c.Request().Context(), key); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// DraftInfo describes the draft of a client for a recovery prompt
// (GET /api/v1/drafts/{client}/info)
func (s *Server) DraftInfo(c echo.Context) error {
	store, err := s.draftStore(c)
	if err != nil {
		return err
	}
	info := store.Info(c.Request().Context())
	if info == nil {
		info = &draft.Info{}
	}
	return c.JSON(http.StatusOK, info)
}
