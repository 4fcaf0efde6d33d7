package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/neighborhood-exchange/internal/handler"    // handlers implementing each endpoint
	"github.com/iliyamo/neighborhood-exchange/internal/middleware" // JWT authentication
)

// Handlers bundles every HTTP handler the API exposes.
type Handlers struct {
	Auth       *handler.AuthHandler
	Profile    *handler.ProfileHandler
	Resources  *handler.ListingHandler
	Spaces     *handler.ListingHandler
	Events     *handler.EventHandler
	Reviews    *handler.ReviewHandler
	Messages   *handler.MessageHandler
	Dashboards *handler.DashboardHandler
}

// Options carries the middleware chains applied to route groups.  Nil
// entries are skipped.
type Options struct {
	JWTSecret string
	Cache     echo.MiddlewareFunc // public read endpoints
	RateLimit echo.MiddlewareFunc // authenticated endpoints, keyed by user
}

// Register wires the full route table.
func Register(e *echo.Echo, h Handlers, opt Options) {
	RegisterRoutes(e)
	RegisterAuth(e, h.Auth)
	RegisterPublic(e, h, opt.Cache)

	auth := e.Group("/v1", middleware.JWTAuth(opt.JWTSecret))
	if opt.RateLimit != nil {
		auth.Use(opt.RateLimit)
	}
	RegisterMember(auth, h)
	RegisterListing(auth, h.Resources, h.Reviews)
	RegisterListing(auth, h.Spaces, h.Reviews)
	RegisterEvents(auth, h.Events)
}

// RegisterRoutes registers routes that do not require authentication and
// are not versioned.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the session endpoints under /v1/auth.  None of
// them require an existing access token; logout accepts either a bearer
// token or a refresh token in the body.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Issues a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)
	e.POST("/v1/logout", a.Logout)
}

// RegisterPublic registers the unauthenticated read endpoints.  They sit
// behind the response cache when one is configured.
func RegisterPublic(e *echo.Echo, h Handlers, cache echo.MiddlewareFunc) {
	var mw []echo.MiddlewareFunc
	if cache != nil {
		mw = append(mw, cache)
	}
	e.GET("/v1/home", h.Dashboards.Home, mw...)
	e.GET("/v1/reviews", h.Reviews.Search, mw...)
}
