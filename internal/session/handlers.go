package session

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/movieshelf/movieshelf/internal/metadata"
)

// Handlers provides HTTP handlers for sessions.
type Handlers struct {
	manager *Manager
}

// NewHandlers creates session handlers.
func NewHandlers(manager *Manager) *Handlers {
	return &Handlers{manager: manager}
}

// RegisterRoutes registers the session routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Create)
	g.GET("/:sid", h.Get)
	g.DELETE("/:sid", h.Delete)
	g.PUT("/:sid/query", h.SetQuery)
	g.POST("/:sid/select", h.Select)
	g.POST("/:sid/back", h.Back)
	g.POST("/:sid/favourite", h.ToggleFavourite)
	g.PUT("/:sid/favourite", h.AddFavourite)
	g.DELETE("/:sid/favourite", h.RemoveFavourite)
	g.POST("/:sid/alert/dismiss", h.DismissAlert)
}

type queryRequest struct {
	Query string `json:"query"`
}

type selectRequest struct {
	ImdbID string `json:"imdbID"`
}

func (h *Handlers) session(c echo.Context) (*Session, error) {
	s, err := h.manager.Get(c.Param("sid"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return s, nil
}

func respond(c echo.Context, s *Session, st State) error {
	return c.JSON(http.StatusOK, StateMessage{SessionID: s.ID(), State: st})
}

// Create starts a session and runs the initial default search. A failed
// initial search still creates the session, with empty results.
// POST /api/v1/sessions
func (h *Handlers) Create(c echo.Context) error {
	s := h.manager.Create()
	st, err := s.SetQuery(c.Request().Context(), "")
	if err != nil {
		h.manager.logger.Warn().Err(err).Str("session", s.ID()).Msg("Initial search failed")
	}
	return c.JSON(http.StatusCreated, StateMessage{SessionID: s.ID(), State: st})
}

// Get returns the session state.
// GET /api/v1/sessions/:sid
func (h *Handlers) Get(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return respond(c, s, s.Snapshot())
}

// Delete closes the session.
// DELETE /api/v1/sessions/:sid
func (h *Handlers) Delete(c echo.Context) error {
	if err := h.manager.Delete(c.Param("sid")); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// SetQuery runs a search for the session.
// PUT /api/v1/sessions/:sid/query
func (h *Handlers) SetQuery(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}

	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	st, err := s.SetQuery(c.Request().Context(), req.Query)
	if err != nil {
		if errors.Is(err, ErrStale) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return metadata.ToHTTPError(err)
	}
	return respond(c, s, st)
}

// Select opens the detail view. Fetch failures are reported through the
// state's alert, not the status code.
// POST /api/v1/sessions/:sid/select
func (h *Handlers) Select(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}

	var req selectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	st, err := s.Select(c.Request().Context(), req.ImdbID)
	if errors.Is(err, ErrStale) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return respond(c, s, st)
}

// Back closes the detail view.
// POST /api/v1/sessions/:sid/back
func (h *Handlers) Back(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return respond(c, s, s.Back())
}

// DismissAlert clears the alert.
// POST /api/v1/sessions/:sid/alert/dismiss
func (h *Handlers) DismissAlert(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return respond(c, s, s.DismissAlert())
}

// ToggleFavourite adds or removes the selected title.
// POST /api/v1/sessions/:sid/favourite
func (h *Handlers) ToggleFavourite(c echo.Context) error {
	return h.favourite(c, (*Session).ToggleFavourite)
}

// AddFavourite adds the selected title.
// PUT /api/v1/sessions/:sid/favourite
func (h *Handlers) AddFavourite(c echo.Context) error {
	return h.favourite(c, (*Session).AddFavourite)
}

// RemoveFavourite removes the selected title.
// DELETE /api/v1/sessions/:sid/favourite
func (h *Handlers) RemoveFavourite(c echo.Context) error {
	return h.favourite(c, (*Session).RemoveFavourite)
}

func (h *Handlers) favourite(c echo.Context, op func(*Session, context.Context) (State, error)) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}

	st, err := op(s, c.Request().Context())
	if err != nil {
		if errors.Is(err, ErrNoSelection) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return respond(c, s, st)
}
