package router // package router defines how HTTP routes are registered for the portal

import (
	"time" // session cookie lifetime derived from config

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/auth-portal/internal/config"     // runtime configuration
	"github.com/iliyamo/auth-portal/internal/handler"    // import the handlers that implement the flows
	"github.com/iliyamo/auth-portal/internal/middleware" // session resolution and login enforcement
	"github.com/iliyamo/auth-portal/internal/session"    // server-side session store
)

// RegisterRoutes registers routes that need no session on the provided Echo
// instance. Currently it exposes only a health check, which deliberately
// skips session resolution so load-balancer probes never mint sessions.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPortal registers the auth flows and the pages they redirect
// between. Every route below runs the session-resolution middleware, so
// handlers can rely on a session being present; the dashboard additionally
// requires an authenticated session and silently redirects anonymous
// visitors to the login page.
func RegisterPortal(e *echo.Echo, a *handler.AuthHandler, store *session.Store, cfg config.Config) {
	ttl := time.Duration(cfg.SessionTTLMin) * time.Minute

	// Group with an empty prefix: these are the site's top-level pages, the
	// group exists only to scope the session middleware.
	g := e.Group("", middleware.Resolve(store, cfg.SessionCookie, ttl))

	// Public pages. GET /login and GET /register also consume the one-shot
	// carry state left behind by a failed POST.
	g.GET("/", handler.Home)
	g.GET("/login", a.ShowLogin)
	g.POST("/login", a.Login)
	g.GET("/register", a.ShowRegister)
	g.POST("/register", a.Register)
	g.POST("/logout", a.Logout)

	// Protected pages: anonymous requests are redirected to /login.
	protected := g.Group("", middleware.RequireLogin)
	protected.GET("/dashboard", handler.Dashboard)
}
