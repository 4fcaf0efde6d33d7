package service

import (
	"context"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/iliyamo/neighborhood-exchange/internal/model"
	"github.com/iliyamo/neighborhood-exchange/internal/repository"
)

// NotificationWindow is how far back dashboard notifications reach.
const NotificationWindow = 24 * time.Hour

// TopRatedCount is the number of users ranked on the home page.
const TopRatedCount = 3

// Dashboard is the signed-in landing view.
type Dashboard struct {
	Notifications []model.Notification `json:"notifications"`
	Upcoming      []model.UpcomingItem `json:"upcoming"`
}

// Home is the public landing view.
type Home struct {
	NewestResource *model.Listing      `json:"newest_resource"`
	NewestSpace    *model.Listing      `json:"newest_space"`
	NewestEvent    *model.Event        `json:"newest_event"`
	TopRatedUsers  []model.UserSummary `json:"top_rated_users"`
}

// DashboardService assembles read models spanning several tables.
type DashboardService struct {
	Listings     *repository.ListingRepo
	Reservations *repository.ReservationRepo
	Events       *repository.EventRepo
	Attendance   *repository.AttendanceRepo
	Reviews      *repository.ReviewRepo
	Location     *time.Location
	Now          func() time.Time
}

func NewDashboardService(db *sqlx.DB, loc *time.Location) *DashboardService {
	return &DashboardService{
		Listings:     repository.NewListingRepo(db),
		Reservations: repository.NewReservationRepo(db),
		Events:       repository.NewEventRepo(db),
		Attendance:   repository.NewAttendanceRepo(db),
		Reviews:      repository.NewReviewRepo(db),
		Location:     loc,
		Now:          time.Now,
	}
}

// Dashboard returns what happened to userID's listings and events in the
// last 24 hours, and the user's active or upcoming reservations and
// attended events.
func (s *DashboardService) Dashboard(ctx context.Context, userID uint64) (Dashboard, error) {
	now := s.Now()
	since := now.Add(-NotificationWindow)
	today := model.Today(now, s.Location)

	resNotes, err := s.Reservations.RecentForOwner(ctx, userID, since)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "recent reservations")
	}
	attNotes, err := s.Attendance.RecentForOrganizer(ctx, userID, since)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "recent attendance")
	}
	notes := append(resNotes, attNotes...)
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt.Time)
	})

	upcoming, err := s.upcoming(ctx, userID, today)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{Notifications: notes, Upcoming: upcoming}, nil
}

// upcoming merges reservations and attended events ordered by start date.
func (s *DashboardService) upcoming(ctx context.Context, userID uint64, today model.Date) ([]model.UpcomingItem, error) {
	res, err := s.Reservations.Upcoming(ctx, userID, today)
	if err != nil {
		return nil, errors.Wrap(err, "upcoming reservations")
	}
	evs, err := s.Attendance.Upcoming(ctx, userID, today)
	if err != nil {
		return nil, errors.Wrap(err, "upcoming events")
	}
	items := append(res, evs...)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Start.Before(items[j].Start)
	})
	return items, nil
}

// Home returns the newest listing of each kind, the newest event and the
// top-rated users.  Missing items are nil.
func (s *DashboardService) Home(ctx context.Context) (Home, error) {
	today := model.Today(s.Now(), s.Location)
	var h Home
	var err error
	if h.NewestResource, err = optional(s.Listings.Newest(ctx, model.KindResource, today)); err != nil {
		return h, errors.Wrap(err, "newest resource")
	}
	if h.NewestSpace, err = optional(s.Listings.Newest(ctx, model.KindSpace, today)); err != nil {
		return h, errors.Wrap(err, "newest space")
	}
	if h.NewestEvent, err = optional(s.Events.Newest(ctx)); err != nil {
		return h, errors.Wrap(err, "newest event")
	}
	if h.TopRatedUsers, err = s.Reviews.TopRatedUsers(ctx, TopRatedCount); err != nil {
		return h, errors.Wrap(err, "top rated users")
	}
	return h, nil
}

// optional turns repository.ErrNotFound into a nil result.
func optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return v, err
}
