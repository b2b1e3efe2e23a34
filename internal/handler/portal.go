package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-portal/internal/flash"
	"github.com/iliyamo/auth-portal/internal/middleware"
	"github.com/iliyamo/auth-portal/internal/session"
)

// Home answers the landing page state: whether the caller is logged in, and
// under which identity. Anonymous callers get pointers to login/register.
func Home(c echo.Context) error {
	sess := middleware.Sess(c)
	ctx := c.Request().Context()

	username, err := sess.Get(ctx, session.AuthUsername)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session read failed"})
	}
	if username == "" {
		return c.JSON(http.StatusOK, echo.Map{"logged_in": false})
	}
	isAdmin, err := sess.Get(ctx, session.AuthIsAdmin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session read failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"logged_in": true,
		"username":  username,
		"is_admin":  isAdmin == "1",
	})
}

// Dashboard answers the protected dashboard state. RequireLogin guards the
// route, so a username is always present here.
func Dashboard(c echo.Context) error {
	sess := middleware.Sess(c)
	ctx := c.Request().Context()

	username, err := sess.Get(ctx, session.AuthUsername)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session read failed"})
	}
	isAdmin, err := sess.Get(ctx, session.AuthIsAdmin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session read failed"})
	}
	accountType := "Regular User"
	if isAdmin == "1" {
		accountType = "Administrator"
	}
	msgs, err := flash.PopAll(ctx, sess)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session read failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"username":     username,
		"account_type": accountType,
		"status":       "active",
		"flash":        msgs,
	})
}
