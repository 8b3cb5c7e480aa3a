package favourites

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/movieshelf/movieshelf/internal/movie"
)

// DetailFetcher loads a full record when a client adds by identifier only.
type DetailFetcher interface {
	GetDetail(ctx context.Context, imdbID string) (*movie.Detail, error)
}

// Handlers provides HTTP handlers for favourites.
type Handlers struct {
	store   *Store
	details DetailFetcher
	mapErr  func(error) *echo.HTTPError
}

// NewHandlers creates favourites handlers. mapErr converts detail fetch
// failures into HTTP errors.
func NewHandlers(store *Store, details DetailFetcher, mapErr func(error) *echo.HTTPError) *Handlers {
	return &Handlers{store: store, details: details, mapErr: mapErr}
}

// RegisterRoutes registers the favourites routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Add)
	g.GET("/export", h.Export)
	g.POST("/import", h.Import)
	g.GET("/:id", h.Check)
	g.DELETE("/:id", h.Remove)
}

// MutationResponse is returned by add and remove. Warning is set when the
// change could not be persisted.
type MutationResponse struct {
	Favourites Collection `json:"favourites"`
	Warning    string     `json:"warning,omitempty"`
}

func mutationResponse(c Collection, err error) MutationResponse {
	resp := MutationResponse{Favourites: c}
	if err != nil {
		resp.Warning = err.Error()
	}
	return resp
}

// List returns the collection.
// GET /api/v1/favourites
func (h *Handlers) List(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.List())
}

// Add adds a title. A body with only imdbID triggers a detail fetch first.
// POST /api/v1/favourites
func (h *Handlers) Add(c echo.Context) error {
	var entry movie.Detail
	if err := c.Bind(&entry); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if entry.ImdbID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, ErrInvalidEntry.Error())
	}

	if entry.Title == "" && h.details != nil {
		d, err := h.details.GetDetail(c.Request().Context(), entry.ImdbID)
		if err != nil {
			return h.mapErr(err)
		}
		entry = *d
	}

	coll, err := h.store.Add(c.Request().Context(), entry)
	if err != nil && !errors.Is(err, ErrStorage) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, mutationResponse(coll, err))
}

// Check reports whether a title is a favourite.
// GET /api/v1/favourites/:id
func (h *Handlers) Check(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"favourite": h.store.IsFavourite(c.Param("id"))})
}

// Remove removes a title. Removing an absent title succeeds.
// DELETE /api/v1/favourites/:id
func (h *Handlers) Remove(c echo.Context) error {
	coll, err := h.store.Remove(c.Request().Context(), c.Param("id"))
	return c.JSON(http.StatusOK, mutationResponse(coll, err))
}

// Export downloads the collection.
// GET /api/v1/favourites/export?format=json|yaml
func (h *Handlers) Export(c echo.Context) error {
	format := c.QueryParam("format")
	data, err := h.store.Export(format)
	if err != nil {
		if errors.Is(err, ErrUnsupportedFormat) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	contentType := echo.MIMEApplicationJSON
	filename := "favourites.json"
	if format == FormatYAML || format == "yml" {
		contentType = "application/yaml"
		filename = "favourites.yaml"
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, contentType, data)
}

// Import merges an uploaded document.
// POST /api/v1/favourites/import
func (h *Handlers) Import(c echo.Context) error {
	data, err := io.ReadAll(io.LimitReader(c.Request().Body, 4<<20))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}

	result, err := h.store.Import(c.Request().Context(), data)
	if result == nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	resp := struct {
		*ImportResult
		Warning string `json:"warning,omitempty"`
	}{ImportResult: result}
	if err != nil {
		resp.Warning = err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}
