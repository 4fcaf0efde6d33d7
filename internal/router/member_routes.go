package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/neighborhood-exchange/internal/handler"
	"github.com/iliyamo/neighborhood-exchange/internal/model"
)

// RegisterMember registers the caller-centric endpoints: identity,
// profile, dashboard, received reviews, users and messages.
func RegisterMember(g *echo.Group, h Handlers) {
	g.GET("/me", h.Profile.Me)
	g.GET("/me/profile", h.Profile.GetProfile)
	g.PUT("/me/profile", h.Profile.UpdateProfile)
	g.GET("/me/dashboard", h.Dashboards.Dashboard)
	g.GET("/me/calendar.ics", h.Dashboards.Calendar)
	g.GET("/me/reviews", h.Reviews.Received)

	g.GET("/users", h.Profile.ListUsers)
	g.POST("/users/:id/reviews", h.Reviews.CreateFor(model.ReviewUser))

	g.GET("/messages", h.Messages.Inbox)
	g.GET("/messages/:user_id", h.Messages.Conversation)
	g.POST("/messages/:user_id", h.Messages.Send)
}

// RegisterListing registers one listing kind under /v1/<kind>s.  Static
// segments (mine, reservations) take precedence over :id in echo's router.
func RegisterListing(g *echo.Group, l *handler.ListingHandler, rv *handler.ReviewHandler) {
	k := g.Group("/" + l.Kind.Plural())
	k.GET("", l.Browse)
	k.POST("", l.Create)
	k.GET("/mine", l.Mine)
	k.GET("/reservations/mine", l.MyReservations)
	k.DELETE("/reservations/:id", l.CancelReservation)

	k.GET("/:id", l.Get)
	k.PUT("/:id", l.Update)
	k.DELETE("/:id", l.Delete)
	k.GET("/:id/reservations", l.ListReservations)
	k.POST("/:id/reservations", l.Reserve)
	k.POST("/:id/reviews", rv.CreateFor(model.ReviewKind(l.Kind)))
}

// RegisterEvents registers events and attendance under /v1/events.
func RegisterEvents(g *echo.Group, h *handler.EventHandler) {
	ev := g.Group("/events")
	ev.GET("", h.Browse)
	ev.POST("", h.Create)
	ev.GET("/mine", h.Mine)
	ev.GET("/attending", h.Attending)
	ev.DELETE("/attendance/:id", h.CancelAttendance)

	ev.GET("/:id", h.Get)
	ev.PUT("/:id", h.Update)
	ev.DELETE("/:id", h.Delete)
	ev.POST("/:id/attendance", h.Register)
}
