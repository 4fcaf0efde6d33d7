package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/neighborhood-exchange/internal/service"
)

// Dashboards produces the landing views and the calendar feed.
type Dashboards interface {
	Home(ctx context.Context) (service.Home, error)
	Dashboard(ctx context.Context, userID uint64) (service.Dashboard, error)
	Calendar(ctx context.Context, userID uint64) (string, error)
}

type DashboardHandler struct {
	Service Dashboards
}

func NewDashboardHandler(s *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{Service: s}
}

// Home is public and served through the response cache.
func (h *DashboardHandler) Home(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	home, err := h.Service.Home(ctx)
	if err != nil {
		return writeError(c, "load home failed", err)
	}
	return c.JSON(http.StatusOK, home)
}

// Dashboard returns the caller's last-day notifications and upcoming items.
func (h *DashboardHandler) Dashboard(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	d, err := h.Service.Dashboard(ctx, uid)
	if err != nil {
		return writeError(c, "load dashboard failed", err)
	}
	return c.JSON(http.StatusOK, d)
}

// Calendar exports the upcoming items as text/calendar.
func (h *DashboardHandler) Calendar(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	feed, err := h.Service.Calendar(ctx, uid)
	if err != nil {
		return writeError(c, "render calendar failed", err)
	}
	c.Response().Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(feed))
}
