package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/neighborhood-exchange/internal/model"
	"github.com/iliyamo/neighborhood-exchange/internal/repository"
	"github.com/iliyamo/neighborhood-exchange/internal/service"
)

// ListingStore is the listing CRUD surface of repository.ListingRepo.
type ListingStore interface {
	Create(ctx context.Context, l *model.Listing) error
	Browse(ctx context.Context, kind model.ListingKind, callerID uint64, q repository.BrowseQuery, today model.Date) ([]model.Listing, int64, error)
	ListByOwner(ctx context.Context, kind model.ListingKind, ownerID uint64, today model.Date) ([]model.Listing, error)
	Update(ctx context.Context, l *model.Listing) error
	Delete(ctx context.Context, kind model.ListingKind, id, ownerID uint64) error
}

// ReservationLister lists a user's own reservations.
type ReservationLister interface {
	ListByUser(ctx context.Context, kind model.ListingKind, userID uint64) ([]model.Reservation, error)
}

// Booker is the reservation service as seen by handlers.
type Booker interface {
	Today() model.Date
	Reserve(ctx context.Context, kind model.ListingKind, listingID, userID uint64, r model.DateRange) (uint64, error)
	Cancel(ctx context.Context, kind model.ListingKind, reservationID, userID uint64) error
	ListingReservations(ctx context.Context, kind model.ListingKind, listingID uint64) ([]model.DateRange, error)
	Listing(ctx context.Context, kind model.ListingKind, listingID uint64) (*model.Listing, []model.DateRange, error)
}

// ListingHandler serves one listing kind.  Resources and spaces are routed
// to two instances that differ only in Kind.
type ListingHandler struct {
	Kind         model.ListingKind
	Listings     ListingStore
	Reservations ReservationLister
	Booking      Booker
}

func NewListingHandler(kind model.ListingKind, listings *repository.ListingRepo, reservations *repository.ReservationRepo, booking *service.ReservationService) *ListingHandler {
	if listings == nil || reservations == nil || booking == nil {
		panic("nil dependency passed to NewListingHandler")
	}
	return &ListingHandler{Kind: kind, Listings: listings, Reservations: reservations, Booking: booking}
}

type listingReq struct {
	Title        string `json:"title" validate:"required,max=255"`
	Description  string `json:"description" validate:"max=5000"`
	Category     string `json:"category" validate:"max=100"`
	Availability string `json:"availability" validate:"max=50"`
	Image        string `json:"image" validate:"max=255"`
}

func (r listingReq) apply(l *model.Listing) {
	l.Title = strings.TrimSpace(r.Title)
	l.Description = strings.TrimSpace(r.Description)
	l.Category = strings.TrimSpace(r.Category)
	l.Availability = strings.TrimSpace(r.Availability)
	if l.Availability == "" {
		l.Availability = model.AvailabilityAvailable
	}
	l.Image = strings.TrimSpace(r.Image)
}

type reserveReq struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// browseQuery reads ?query=&page=&page_size=.
func browseQuery(c echo.Context) repository.BrowseQuery {
	q := repository.BrowseQuery{Text: strings.TrimSpace(c.QueryParam("query"))}
	q.Page, _ = strconv.Atoi(c.QueryParam("page"))
	q.PageSize, _ = strconv.Atoi(c.QueryParam("page_size"))
	return q
}

// Browse lists other users' listings with their status for today.
func (h *ListingHandler) Browse(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	q := browseQuery(c)
	items, total, err := h.Listings.Browse(ctx, h.Kind, uid, q, h.Booking.Today())
	if err != nil {
		return writeError(c, "browse failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "total": total, "query": q.Text})
}

// Create adds a listing owned by the caller.
func (h *ListingHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req listingReq
	if err := bindValid(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	l := model.Listing{Kind: h.Kind, OwnerID: uid}
	req.apply(&l)
	if err := h.Listings.Create(ctx, &l); err != nil {
		return writeError(c, "create failed", err)
	}
	return c.JSON(http.StatusCreated, l)
}

// Mine lists the caller's own listings.
func (h *ListingHandler) Mine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.Listings.ListByOwner(ctx, h.Kind, uid, h.Booking.Today())
	if err != nil {
		return writeError(c, "list failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get returns one listing with its derived status and booked ranges.
func (h *ListingHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	l, ranges, err := h.Booking.Listing(ctx, h.Kind, id)
	if err != nil {
		return writeError(c, "load failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"listing": l, "reservations": ranges})
}

// Update edits an owned listing; another user's listing reads as 404.
func (h *ListingHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req listingReq
	if err := bindValid(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	l := model.Listing{ID: id, Kind: h.Kind, OwnerID: uid}
	req.apply(&l)
	if err := h.Listings.Update(ctx, &l); err != nil {
		return writeError(c, "update failed", err)
	}
	// Re-read so the response carries the status derived for today.
	updated, _, err := h.Booking.Listing(ctx, h.Kind, id)
	if err != nil {
		return writeError(c, "load failed", err)
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete removes an owned listing with its reservations and reviews.
func (h *ListingHandler) Delete(c echo.Context) error {
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

	if err := h.Listings.Delete(ctx, h.Kind, id, uid); err != nil {
		return writeError(c, "delete failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListReservations returns the booked ranges of a listing.
func (h *ListingHandler) ListReservations(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	ranges, err := h.Booking.ListingReservations(ctx, h.Kind, id)
	if err != nil {
		return writeError(c, "load reservations failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": ranges})
}

// Reserve books [start_date, end_date] for the caller.
func (h *ListingHandler) Reserve(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req reserveReq
	if err := bindValid(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	r, err := model.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	resID, err := h.Booking.Reserve(ctx, h.Kind, id, uid, r)
	if err != nil {
		return writeError(c, "reserve failed", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"reservation_id": resID})
}

// MyReservations lists the caller's reservations of this kind.
func (h *ListingHandler) MyReservations(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.Reservations.ListByUser(ctx, h.Kind, uid)
	if err != nil {
		return writeError(c, "list reservations failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// CancelReservation deletes one of the caller's reservations.  Someone
// else's reservation and a missing one both answer 403.
func (h *ListingHandler) CancelReservation(c echo.Context) error {
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

	if err := h.Booking.Cancel(ctx, h.Kind, id, uid); err != nil {
		return writeError(c, "cancel failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}
