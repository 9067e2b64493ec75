package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/labstack/echo/v4"

	"github.com/afec/formation-portal/internal/auth"
	"github.com/afec/formation-portal/internal/config"
	"github.com/afec/formation-portal/internal/middleware"
	"github.com/afec/formation-portal/internal/repository"
)

// RefreshCookie is the HttpOnly cookie carrying the refresh token.
const RefreshCookie = "refresh_token"

const dbTimeout = 5 * time.Second

// AuthHandler maps the session service onto HTTP. Tokens travel as HttpOnly
// cookies; the JSON body only ever carries the sanitized user view.
type AuthHandler struct {
	Cfg config.Config
	Svc *auth.Service
}

func NewAuthHandler(cfg config.Config, svc *auth.Service) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Svc: svc}
}

// ----- DTOs -----

type registerReq struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	AgencyID        uint64 `json:"agency_id"`
	Role            string `json:"role"`
}

func (r registerReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(2, 30)),
		validation.Field(&r.LastName, validation.Required, validation.Length(2, 30)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(&r.ConfirmPassword, validation.Required, validation.By(stringEquals(r.Password))),
		validation.Field(&r.AgencyID, validation.Required),
		validation.Field(&r.Role, validation.Required, validation.In("user", "stagiaire")),
	)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type forgotPasswordReq struct {
	Email string `json:"email"`
}

func (r forgotPasswordReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

type resetPasswordReq struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (r resetPasswordReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(&r.ConfirmPassword, validation.Required, validation.By(stringEquals(r.Password))),
	)
}

// stringEquals checks that both values match (confirm-password rule).
func stringEquals(str string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// ----- Endpoints -----

// Register creates a pending account. The response carries a generic
// acknowledgment; no tokens are issued until an admin validates the account.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	id, err := h.Svc.Register(ctx, auth.RegisterParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		AgencyID:  req.AgencyID,
		Role:      req.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusConflict, echo.Map{
				"success": false, "message": "an account with this email already exists",
			})
		case errors.Is(err, auth.ErrUnknownRole):
			return badRequest(c, "unknown role")
		}
		return internalError(c, "registration failed")
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "account created, awaiting validation by an administrator",
		"user_id": id,
	})
}

// Login verifies credentials and sets the access/refresh cookie pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	pair, view, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		var notActive *auth.AccountNotActiveError
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"success": false, "message": auth.ErrInvalidCredentials.Error(),
			})
		case errors.As(err, &notActive):
			return c.JSON(http.StatusForbidden, echo.Map{
				"success": false, "message": notActive.Error(),
			})
		}
		return internalError(c, "login failed")
	}

	h.setCookie(c, middleware.AccessCookie, pair.Access, pair.AccessExpires)
	h.setCookie(c, RefreshCookie, pair.Refresh, pair.RefreshExpires)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": view})
}

// Refresh exchanges the refresh cookie for a new access cookie. The refresh
// token itself is not rotated.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := refreshFromRequest(c)
	if raw == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"success": false, "message": "refresh token missing",
		})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	access, exp, err := h.Svc.Refresh(ctx, raw)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"success": false, "message": "refresh token expired", "expired": true,
			})
		case errors.Is(err, auth.ErrTokenMalformed):
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"success": false, "message": "invalid refresh token",
			})
		case errors.Is(err, auth.ErrTokenRevoked):
			return c.JSON(http.StatusForbidden, echo.Map{
				"success": false, "message": "token revoked",
			})
		case errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, auth.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{
				"success": false, "message": "invalid refresh token",
			})
		}
		return internalError(c, "token refresh failed")
	}

	h.setCookie(c, middleware.AccessCookie, access, exp)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "token refreshed"})
}

// Logout bumps the caller's token version — revoking every token issued so
// far — and clears both cookies.
func (h *AuthHandler) Logout(c echo.Context) error {
	id := middleware.CurrentIdentity(c)
	if id == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"success": false, "message": "authentication required",
		})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Svc.Revoke(ctx, id.UserID); err != nil {
		return internalError(c, "logout failed")
	}

	h.clearCookie(c, middleware.AccessCookie)
	h.clearCookie(c, RefreshCookie)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "logged out"})
}

// ForgotPassword acknowledges with the same message whether or not the email
// belongs to an account.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Svc.RequestPasswordReset(ctx, req.Email); err != nil {
		return internalError(c, "password reset request failed")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "if this email exists, a reset link has been sent",
	})
}

// ResetPassword completes the reset flow with a purpose-tagged token.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Svc.CompletePasswordReset(ctx, req.Token, req.Password); err != nil {
		var notActive *auth.AccountNotActiveError
		switch {
		case errors.Is(err, auth.ErrTokenExpired),
			errors.Is(err, auth.ErrTokenMalformed),
			errors.Is(err, auth.ErrTokenInvalid):
			return badRequest(c, "reset link is invalid or expired")
		case errors.As(err, &notActive):
			return c.JSON(http.StatusForbidden, echo.Map{
				"success": false, "message": notActive.Error(),
			})
		}
		return internalError(c, "password reset failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "password reset"})
}

// Me returns a fresh sanitized view of the authenticated user, with roles
// resolved from the store rather than the token snapshot.
func (h *AuthHandler) Me(c echo.Context) error {
	id := middleware.CurrentIdentity(c)
	if id == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"success": false, "message": "authentication required",
		})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	view, err := h.Svc.View(ctx, id.UserID)
	if err != nil {
		return internalError(c, "load user failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": view})
}

// ----- helpers -----

func (h *AuthHandler) setCookie(c echo.Context, name, value string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.Cfg.Env == "prod",
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(c echo.Context, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cfg.Env == "prod",
		SameSite: http.SameSiteLaxMode,
	})
}

// refreshFromRequest prefers the cookie and falls back to a JSON body for
// non-browser clients.
func refreshFromRequest(c echo.Context) string {
	if ck, err := c.Cookie(RefreshCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = c.Bind(&body)
	return strings.TrimSpace(body.RefreshToken)
}

func reqContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": msg})
}

func internalError(c echo.Context, msg string) error {
	return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": msg})
}
