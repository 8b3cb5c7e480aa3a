package metadata

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/movieshelf/movieshelf/internal/metadata/omdb"
)

// Handlers provides HTTP handlers for metadata operations.
type Handlers struct {
	service *Service
}

// NewHandlers creates new metadata handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the metadata routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/search", h.Search)
	g.GET("/movies/:id", h.GetDetail)

	g.GET("/metadata/status", h.GetStatus)
	g.DELETE("/metadata/cache", h.ClearCache)
}

// Search searches titles. An empty query uses the provider's default term.
// GET /api/v1/search?query=...
func (h *Handlers) Search(c echo.Context) error {
	results, err := h.service.Search(c.Request().Context(), c.QueryParam("query"))
	if err != nil {
		return ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, results)
}

// GetDetail gets the full record for one title.
// GET /api/v1/movies/:id
func (h *Handlers) GetDetail(c echo.Context) error {
	d, err := h.service.GetDetail(c.Request().Context(), c.Param("id"))
	if err != nil {
		return ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, d)
}

// ClearCache clears the metadata cache.
// DELETE /api/v1/metadata/cache
func (h *Handlers) ClearCache(c echo.Context) error {
	h.service.ClearCache()
	return c.NoContent(http.StatusNoContent)
}

// StatusResponse represents the metadata service status.
type StatusResponse struct {
	Provider   string `json:"provider"`
	Configured bool   `json:"configured"`
	Cached     bool   `json:"cached"`
}

// GetStatus returns the status of the active provider.
// GET /api/v1/metadata/status
func (h *Handlers) GetStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{
		Provider:   h.service.ProviderName(),
		Configured: h.service.IsConfigured(),
		Cached:     h.service.CacheEnabled(),
	})
}

// ToHTTPError maps provider errors onto HTTP status codes. Provider-reported
// failures keep the provider's message.
func ToHTTPError(err error) *echo.HTTPError {
	var perr *omdb.ProviderError
	switch {
	case errors.As(err, &perr):
		return echo.NewHTTPError(http.StatusNotFound, perr.Message)
	case errors.Is(err, ErrNoProvidersConfigured), errors.Is(err, omdb.ErrAPIKeyMissing):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "no metadata providers configured")
	case errors.Is(err, omdb.ErrNetwork):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
