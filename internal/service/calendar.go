package service

import (
	"context"
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/iliyamo/neighborhood-exchange/internal/model"
)

// calendarNamespace seeds deterministic VEVENT UIDs so a re-exported feed
// updates entries in a client instead of duplicating them.
var calendarNamespace = uuid.MustParse("8f7d0f5e-4b7a-4c43-9a55-0f2f1f3c2a61")

// Calendar renders userID's active/upcoming reservations and attended
// events as an iCalendar feed of all-day events.
func (s *DashboardService) Calendar(ctx context.Context, userID uint64) (string, error) {
	now := s.Now()
	items, err := s.upcoming(ctx, userID, model.Today(now, s.Location))
	if err != nil {
		return "", err
	}
	return RenderCalendar(userID, items, now), nil
}

// RenderCalendar builds the feed.  DTEND of an all-day VEVENT is
// exclusive, so it is the day after the inclusive end date.
func RenderCalendar(userID uint64, items []model.UpcomingItem, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//neighborhood-exchange//activity//EN")
	cal.SetXWRCalName("My reservations and events")

	for _, it := range items {
		end := it.End
		if end.IsZero() {
			end = it.Start
		}
		key := fmt.Sprintf("%d/%s/%s/%s/%s", userID, it.Kind, it.Title, it.Start, end)
		ev := cal.AddEvent(uuid.NewSHA1(calendarNamespace, []byte(key)).String())
		ev.SetDtStampTime(stamp.UTC())
		ev.SetAllDayStartAt(it.Start.Time())
		ev.SetAllDayEndAt(end.AddDays(1).Time())
		ev.SetSummary(summary(it))
		if it.Counterpart != "" {
			ev.SetDescription("with " + it.Counterpart)
		}
	}
	return cal.Serialize()
}

func summary(it model.UpcomingItem) string {
	switch it.Kind {
	case "event":
		return "Event: " + it.Title
	case string(model.KindResource):
		return "Resource: " + it.Title
	case string(model.KindSpace):
		return "Space: " + it.Title
	}
	return it.Title
}
