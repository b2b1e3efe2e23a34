package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // cookie type and status codes
	"time"     // cookie lifetime arithmetic

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/auth-portal/internal/session" // server-side session state
)

// SessionKey is the Echo context key under which the resolved session is
// stored. Handlers access it through Sess().
const SessionKey = "sess"

// Resolve returns an Echo middleware that attaches the caller's session to
// the request context. The session identifier travels in the named cookie;
// when the cookie is missing, or names a session that has expired on the
// server, a fresh session is started and the cookie is (re)issued. Every
// request therefore sees a usable session object, authenticated or not.
func Resolve(store *session.Store, cookieName string, ttl time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Read the identifier from the cookie if the client sent one.
			var id string
			if ck, err := c.Cookie(cookieName); err == nil {
				id = ck.Value
			}
			sess, fresh, err := store.Start(c.Request().Context(), id)
			if err != nil {
				// Redis being unreachable means no request can be served
				// meaningfully; answer 500 without leaking the cause.
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session unavailable"})
			}
			if fresh {
				SetSessionCookie(c, cookieName, sess.ID(), ttl)
			}
			c.Set(SessionKey, sess)
			return next(c)
		}
	}
}

// Sess returns the session attached by Resolve. It panics if Resolve did not
// run, which would be a routing mistake, not a runtime condition.
func Sess(c echo.Context) *session.Session {
	return c.Get(SessionKey).(*session.Session)
}

// SetSessionCookie (re)issues the session identifier cookie. Handlers call
// it again after rotating the identifier on login.
func SetSessionCookie(c echo.Context, name, value string, ttl time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie on the client after logout.
func ClearSessionCookie(c echo.Context, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// RequireLogin redirects anonymous requests to the login page. Reaching a
// protected handler without a username in the session is not an error; the
// client is simply sent to authenticate first.
func RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ok, err := Sess(c).HasUser(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session unavailable"})
		}
		if !ok {
			return c.Redirect(http.StatusSeeOther, "/login")
		}
		return next(c)
	}
}

// RequireAdmin sends authenticated non-administrators back to the dashboard.
// It must run after RequireLogin.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		isAdmin, err := Sess(c).Get(c.Request().Context(), session.AuthIsAdmin)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session unavailable"})
		}
		if isAdmin != "1" {
			return c.Redirect(http.StatusSeeOther, "/dashboard")
		}
		return next(c)
	}
}
