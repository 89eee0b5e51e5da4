package runstatus

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/status", h.LatestRuns)
}

// LatestRuns returns the most recent import runs, newest first.
func (h *Handler) LatestRuns(c echo.Context) error {
	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	runs, err := h.repo.Latest(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if runs == nil {
		runs = []*Run{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"runs": runs,
	})
}
