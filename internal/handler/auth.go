package handler

import (
	"context"      // provides context with cancellation for DB calls
	"database/sql" // sql.ErrNoRows for unknown-user detection
	"net/http"     // HTTP status codes and primitives
	"strconv"      // user ID formatting for session storage
	"time"         // timeouts for DB calls

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/iliyamo/auth-portal/internal/config"     // app configuration
	"github.com/iliyamo/auth-portal/internal/flash"      // one-shot redirect state
	"github.com/iliyamo/auth-portal/internal/middleware" // session accessor and cookie helpers
	"github.com/iliyamo/auth-portal/internal/queue"      // auth event publishing
	"github.com/iliyamo/auth-portal/internal/repository" // DB repositories
	"github.com/iliyamo/auth-portal/internal/session"    // session field names
	"github.com/iliyamo/auth-portal/internal/utils"      // password hashing helpers
	"github.com/iliyamo/auth-portal/internal/validator"  // form validation engine
)

// AuthHandler bundles dependencies for the login and registration flows.
// Publish is queue.Publish in production; tests replace it.
type AuthHandler struct {
	Cfg     config.Config
	Users   *repository.UserRepo
	Valid   *validator.Validator
	Publish func(ctx context.Context, ev queue.AuthEvent) error
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, v *validator.Validator) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Valid: v, Publish: queue.Publish}
}

// invalidCredentials is the single message for every failed login. Unknown
// username and wrong password must be indistinguishable to the client.
const invalidCredentials = "Invalid username or password"

// ----- form definitions -----

// Rulesets are parsed once at package load; a typo in a rule name panics at
// startup instead of silently skipping a check.
var loginFields = map[string]validator.Ruleset{
	"username": validator.MustParseRules("required|alphanumeric|between:3,25"),
	"password": validator.MustParseRules("required"),
}

var registerFields = map[string]validator.Ruleset{
	"username":  validator.MustParseRules("required|alphanumeric|between:3,25|unique:users,username"),
	"email":     validator.MustParseRules("required|email|unique:users,email"),
	"password":  validator.MustParseRules("required|secure"),
	"password2": validator.MustParseRules("required|same:password"),
	"agree":     validator.MustParseRules("required"),
}

var registerMessages = validator.Messages{
	"password2": {
		"required": "Please enter the password again",
		"same":     "The password does not match",
	},
	"agree": {
		"required": "You need to agree to the terms of service to register",
	},
}

// formData collects the named POST fields, keeping the absent-vs-empty
// distinction the validation predicates depend on.
func formData(c echo.Context, fields ...string) map[string]string {
	data := make(map[string]string, len(fields))
	_ = c.Request().ParseForm()
	for _, f := range fields {
		if vs, ok := c.Request().Form[f]; ok && len(vs) > 0 {
			data[f] = vs[0]
		}
	}
	return data
}

// ShowLogin answers the login page state for the rendering layer: the
// inputs and errors carried over from a failed POST (consumed here, once)
// plus any pending flash messages.
func (h *AuthHandler) ShowLogin(c echo.Context) error {
	return h.showForm(c)
}

// ShowRegister is ShowLogin for the registration page.
func (h *AuthHandler) ShowRegister(c echo.Context) error {
	return h.showForm(c)
}

func (h *AuthHandler) showForm(c echo.Context) error {
	sess := middleware.Sess(c)
	ctx := c.Request().Context()

	carried, err := flash.TakeCarry(ctx, sess, "inputs", "errors")
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session read failed"})
	}
	msgs, err := flash.PopAll(ctx, sess)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session read failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"inputs": carried[0],
		"errors": carried[1],
		"flash":  msgs,
	})
}

// Login verifies credentials and promotes the session from anonymous to
// authenticated. The session identifier is rotated before any authenticated
// key is written, so an identifier planted before login is worthless after.
func (h *AuthHandler) Login(c echo.Context) error {
	sess := middleware.Sess(c)
	data := formData(c, "username", "password")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	inputs, errs, err := h.Valid.Validate(ctx, data, loginFields, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "validation failed"})
	}
	if len(errs) > 0 {
		return h.backToForm(c, sess, "/login", inputs, errs)
	}

	u, err := h.Users.GetByUsername(ctx, inputs["username"])
	if err != nil && err != sql.ErrNoRows {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err == sql.ErrNoRows || !utils.VerifyPassword(u.PasswordHash, inputs["password"]) {
		errs["login"] = invalidCredentials
		return h.backToForm(c, sess, "/login", inputs, errs)
	}

	// Rotation must complete before the authenticated keys are written.
	if err := sess.Rotate(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session rotate failed"})
	}
	middleware.SetSessionCookie(c, h.Cfg.SessionCookie, sess.ID(), h.sessionTTL())

	isAdmin := "0"
	if u.IsAdmin {
		isAdmin = "1"
	}
	for field, val := range map[string]string{
		session.AuthUsername: u.Username,
		session.AuthUserID:   strconv.FormatUint(u.ID, 10),
		session.AuthIsAdmin:  isAdmin,
	} {
		if err := sess.Set(ctx, field, val); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session write failed"})
		}
	}

	h.publish(queue.AuthEvent{
		Kind: queue.EventLogin, UserID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin,
		At: time.Now().UTC().Format(time.RFC3339),
	})

	return c.Redirect(http.StatusSeeOther, "/dashboard")
}

// Register validates the registration form and creates the account. On
// success the client is sent to the login page with a success flash; any
// failure redirects back with the inputs and errors carried over.
func (h *AuthHandler) Register(c echo.Context) error {
	sess := middleware.Sess(c)
	data := formData(c, "username", "email", "password", "password2", "agree")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	inputs, errs, err := h.Valid.Validate(ctx, data, registerFields, registerMessages)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "validation failed"})
	}
	if len(errs) > 0 {
		return h.backToForm(c, sess, "/register", inputs, errs)
	}

	uid, err := h.Users.Create(ctx, inputs["email"], inputs["username"], inputs["password"], false, h.Cfg.BcryptCost)
	if err != nil {
		// The unique rules race with concurrent registrations; the store's
		// constraint is the authority.
		switch err {
		case repository.ErrUsernameExists:
			errs["username"] = "The username already exists"
		case repository.ErrEmailExists:
			errs["email"] = "The email already exists"
		default:
			errs["register"] = "Registration failed, please try again"
		}
		return h.backToForm(c, sess, "/register", inputs, errs)
	}

	h.publish(queue.AuthEvent{
		Kind: queue.EventRegistered, UserID: uid, Username: inputs["username"], IsAdmin: false,
		At: time.Now().UTC().Format(time.RFC3339),
	})

	if err := flash.Put(ctx, sess, "register", "Your account has been created successfully. Please login.", flash.Success); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session write failed"})
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

// Logout returns the session to the anonymous state: the authenticated keys
// are unset, the server-side session is destroyed, the cookie is expired and
// the client lands on the login page. Logging out an anonymous session is a
// plain redirect.
func (h *AuthHandler) Logout(c echo.Context) error {
	sess := middleware.Sess(c)
	ctx := c.Request().Context()

	ok, err := sess.HasUser(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session read failed"})
	}
	if ok {
		if err := sess.Unset(ctx, session.AuthUsername, session.AuthUserID, session.AuthIsAdmin); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session write failed"})
		}
		if err := sess.Destroy(ctx); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session write failed"})
		}
		middleware.ClearSessionCookie(c, h.Cfg.SessionCookie)
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

// backToForm carries the validated inputs and the error mapping across the
// redirect back to the form. Passwords are dropped from the carried inputs;
// the form never re-renders them and the session should not hold plaintext.
func (h *AuthHandler) backToForm(c echo.Context, sess *session.Session, url string, inputs, errs map[string]string) error {
	delete(inputs, "password")
	delete(inputs, "password2")
	return flash.RedirectWith(c, sess, url, map[string]any{
		"inputs": inputs,
		"errors": errs,
	})
}

// publish sends an auth event without blocking the request; broker failures
// are logged by the publisher and otherwise ignored.
func (h *AuthHandler) publish(ev queue.AuthEvent) {
	go func() { _ = h.Publish(context.Background(), ev) }()
}

func (h *AuthHandler) sessionTTL() time.Duration {
	return time.Duration(h.Cfg.SessionTTLMin) * time.Minute
}
