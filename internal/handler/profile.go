package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/neighborhood-exchange/internal/repository"
)

// ProfileHandler serves the caller's identity and profile and the user
// pick list.
type ProfileHandler struct {
	Users UserStore
}

func NewProfileHandler(u *repository.UserRepo) *ProfileHandler {
	return &ProfileHandler{Users: u}
}

type profileReq struct {
	Name         string `json:"name" validate:"required,max=255"`
	Email        string `json:"email" validate:"required,email,max=255"`
	Location     string `json:"location" validate:"max=255"`
	ProfileImage string `json:"profile_image" validate:"max=255"`
}

// Me: simple protected endpoint.
func (h *ProfileHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": uid})
}

// GetProfile returns the caller's stored profile.
func (h *ProfileHandler) GetProfile(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return writeError(c, "load profile failed", err)
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateProfile replaces name, email, location and profile image.  The
// email stays unique across users (409 on collision).
func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req profileReq
	if err := bindValid(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return writeError(c, "load profile failed", err)
	}
	u.Name = strings.TrimSpace(req.Name)
	u.Email = repository.NormalizeEmail(req.Email)
	u.Location = strings.TrimSpace(req.Location)
	u.ProfileImage = strings.TrimSpace(req.ProfileImage)
	if err := h.Users.UpdateProfile(ctx, u); err != nil {
		return writeError(c, "update profile failed", err)
	}
	return c.JSON(http.StatusOK, u)
}

// ListUsers returns everyone except the caller, for choosing whom to
// review or message.
func (h *ProfileHandler) ListUsers(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := h.Users.ListOthers(ctx, uid)
	if err != nil {
		return writeError(c, "list users failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}
