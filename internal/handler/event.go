package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/neighborhood-exchange/internal/model"
	"github.com/iliyamo/neighborhood-exchange/internal/repository"
	"github.com/iliyamo/neighborhood-exchange/internal/service"
)

// EventStore is the event CRUD surface of repository.EventRepo.
type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
	Browse(ctx context.Context, callerID uint64, q repository.BrowseQuery, today model.Date) ([]model.Event, int64, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]model.Event, error)
	Update(ctx context.Context, e *model.Event) error
	Delete(ctx context.Context, id, ownerID uint64) error
}

// AttendanceLister lists the events a user attends.
type AttendanceLister interface {
	Attending(ctx context.Context, userID uint64) ([]model.AttendingEvent, error)
}

// Attender registers and cancels attendance.
type Attender interface {
	Attend(ctx context.Context, eventID, userID uint64) (uint64, error)
	CancelAttendance(ctx context.Context, attendanceID, userID uint64) error
}

// EventHandler serves events and attendance.
type EventHandler struct {
	Events     EventStore
	Attendance AttendanceLister
	Attend     Attender
	Location   *time.Location
	Now        func() time.Time
}

func NewEventHandler(events *repository.EventRepo, attendance *repository.AttendanceRepo, svc *service.AttendanceService, loc *time.Location) *EventHandler {
	return &EventHandler{Events: events, Attendance: attendance, Attend: svc, Location: loc, Now: time.Now}
}

func (h *EventHandler) today() model.Date {
	return model.Today(h.Now(), h.Location)
}

type eventReq struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"max=5000"`
	Category    string `json:"category" validate:"max=100"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Image       string `json:"image" validate:"max=255"`
}

func (r eventReq) apply(e *model.Event) error {
	d, err := model.ParseDate(r.Date)
	if err != nil {
		return err
	}
	e.Title = strings.TrimSpace(r.Title)
	e.Description = strings.TrimSpace(r.Description)
	e.Category = strings.TrimSpace(r.Category)
	e.Image = strings.TrimSpace(r.Image)
	e.Date = d
	return nil
}

// Browse lists other users' events; upcoming only unless searching.
func (h *EventHandler) Browse(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	q := browseQuery(c)
	items, total, err := h.Events.Browse(ctx, uid, q, h.today())
	if err != nil {
		return writeError(c, "browse failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "total": total, "query": q.Text})
}

func (h *EventHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req eventReq
	if err := bindValid(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	e := model.Event{OwnerID: uid}
	if err := req.apply(&e); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Events.Create(ctx, &e); err != nil {
		return writeError(c, "create failed", err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *EventHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	e, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return writeError(c, "load failed", err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *EventHandler) Mine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.Events.ListByOwner(ctx, uid)
	if err != nil {
		return writeError(c, "list failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Attending lists events the caller registered for, with the attendance
// id needed to cancel.
func (h *EventHandler) Attending(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.Attendance.Attending(ctx, uid)
	if err != nil {
		return writeError(c, "list failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *EventHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req eventReq
	if err := bindValid(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	e := model.Event{ID: id, OwnerID: uid}
	if err := req.apply(&e); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Events.Update(ctx, &e); err != nil {
		return writeError(c, "update failed", err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *EventHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Events.Delete(ctx, id, uid); err != nil {
		return writeError(c, "delete failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Register records the caller's attendance of an event.
func (h *EventHandler) Register(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	attID, err := h.Attend.Attend(ctx, id, uid)
	if err != nil {
		return writeError(c, "attend failed", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"attendance_id": attID})
}

// CancelAttendance withdraws one of the caller's registrations.
func (h *EventHandler) CancelAttendance(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Attend.CancelAttendance(ctx, id, uid); err != nil {
		return writeError(c, "cancel failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}
