package handler // handler defines http handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/neighborhood-exchange/internal/logging"
	"github.com/iliyamo/neighborhood-exchange/internal/middleware"
	"github.com/iliyamo/neighborhood-exchange/internal/repository"
	"github.com/iliyamo/neighborhood-exchange/internal/service"
)

// dbTimeout bounds the store calls of a single request.
const dbTimeout = 5 * time.Second

// getUserID extracts the authenticated user id placed in the context by
// middleware.JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get(middleware.ContextUserID).(type) {
	case uint64:
		if t != 0 {
			return t, nil
		}
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil && n != 0 {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// requestContext derives the per-request store context.
func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

// bindValid binds the body into req and runs the echo validator on it.
func bindValid(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errors.New("invalid body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}

// writeError maps a domain or store error to its HTTP status.  Anything
// unrecognised is logged and reported as a 500 with the generic message
// op, so store details never reach the client.
func writeError(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidRange):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must not be before start_date"})
	case errors.Is(err, service.ErrOverlapConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "dates overlap an existing reservation"})
	case errors.Is(err, service.ErrAlreadyAttending):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already attending"})
	case errors.Is(err, service.ErrNotAuthorized), errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not authorized"})
	case errors.Is(err, service.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	}
	logging.Error(op, err,
		"method", c.Request().Method,
		"path", c.Path(),
		"request_id", c.Response().Header().Get(echo.HeaderXRequestID))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": op})
}
