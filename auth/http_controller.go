package auth

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"

	"github.com/centralhq/central/reply"
)

// SessionContextKey is the request-local key under which the access guard
// stores verified claims
const SessionContextKey = "auth_session"

// Controller exposes the session lifecycle over HTTP
type Controller struct {
	Debug   bool
	Logger  Logger
	session SessionLifecycle
	cfg     Config
}

// rejectPayload renders a validation failure, logging the field detail when
// debugging is on
func (ct *Controller) rejectPayload(c *fiber.Ctx, err error) error {
	if ct.Debug {
		ct.Logger.Debug("payload validation failed %s %s", c.Path(), print.MaybePrettyJSON(err))
	}
	return reply.BadRequest(c, "Validation failed", err)
}

// ControllerOption mutates a Controller during construction
type ControllerOption func(*Controller) *Controller

// WithControllerLogger sets the controller logger
func WithControllerLogger(logger Logger) ControllerOption {
	return func(ct *Controller) *Controller {
		if logger != nil {
			ct.Logger = logger
		}
		return ct
	}
}

// NewController builds the auth HTTP controller
func NewController(session SessionLifecycle, cfg Config, opts ...ControllerOption) *Controller {
	ct := &Controller{
		Logger:  defLogger{},
		session: session,
		cfg:     cfg,
	}
	for _, opt := range opts {
		ct = opt(ct)
	}
	return ct
}

// RegisterRoutes mounts the auth routes. The guard protects only the
// operations that need an authenticated caller; logout stays open so a
// session with an expired access token can still end itself.
func (ct *Controller) RegisterRoutes(r fiber.Router, guard fiber.Handler) {
	grp := r.Group("/auth")

	grp.Post("/login", ct.Login)
	grp.Post("/register", ct.Register)
	grp.Post("/forgot-password", ct.ForgotPassword)
	grp.Post("/reset-password", ct.ResetPassword)
	grp.Post("/refresh-token", ct.RefreshToken)
	grp.Post("/logout", ct.Logout)

	grp.Post("/change-password", guard, ct.ChangePassword)
	grp.Post("/sso-login", guard, ct.SSOLogin)
	grp.Post("/logout-all", guard, ct.LogoutAllDevices)
}

// LoginPayload is the login request body
type LoginPayload struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (ct *Controller) Login(c *fiber.Ctx) error {
	payload := LoginPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return reply.BadRequest(c, "Invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return ct.rejectPayload(c, err)
	}

	result, err := ct.session.Login(c.UserContext(), payload.Email, payload.Password, deviceInfo(c))
	if err != nil {
		ct.Logger.Error("login failed: %v", err)
		return reply.Error(c, err)
	}

	return reply.OK(c, "Login successful", result)
}

// RegisterPayload is the registration request body
type RegisterPayload struct {
	FirstName string `json:"first_name" form:"first_name"`
	LastName  string `json:"last_name" form:"last_name"`
	Email     string `json:"email" form:"email"`
	Password  string `json:"password" form:"password"`
}

func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (ct *Controller) Register(c *fiber.Ctx) error {
	payload := RegisterPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return reply.BadRequest(c, "Invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return ct.rejectPayload(c, err)
	}

	user, err := ct.session.Register(c.UserContext(), RegisterProfile{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Password:  payload.Password,
	})
	if err != nil {
		ct.Logger.Error("registration failed: %v", err)
		return reply.Error(c, err)
	}

	return reply.Created(c, "User registered successfully", user.Public())
}

// ChangePasswordPayload is the change password request body
type ChangePasswordPayload struct {
	CurrentPassword string `json:"current_password" form:"current_password"`
	NewPassword     string `json:"new_password" form:"new_password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

func (r ChangePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.ConfirmPassword, validation.Required),
	)
}

func (ct *Controller) ChangePassword(c *fiber.Ctx) error {
	claims, err := SessionFromFiber(c)
	if err != nil {
		return reply.Error(c, err)
	}

	payload := ChangePasswordPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return reply.BadRequest(c, "Invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return ct.rejectPayload(c, err)
	}

	if err := ct.session.ChangePassword(
		c.UserContext(),
		claims.UserID(),
		payload.CurrentPassword,
		payload.NewPassword,
		payload.ConfirmPassword,
	); err != nil {
		ct.Logger.Error("password change failed: %v", err)
		return reply.Error(c, err)
	}

	return reply.OK(c, "Password changed successfully")
}

// ForgotPasswordPayload is the forgot password request body
type ForgotPasswordPayload struct {
	Email string `json:"email" form:"email"`
}

func (r ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (ct *Controller) ForgotPassword(c *fiber.Ctx) error {
	payload := ForgotPasswordPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return reply.BadRequest(c, "Invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return ct.rejectPayload(c, err)
	}

	reset, err := ct.session.ForgotPassword(c.UserContext(), payload.Email)
	if err != nil {
		ct.Logger.Error("forgot password failed: %v", err)
		return reply.Error(c, err)
	}

	return reply.OK(c, "Password reset token generated", fiber.Map{
		"reset_url":  fmt.Sprintf("%s/reset-password?token=%s", ct.cfg.GetFrontendURL(), reset.Token),
		"expires_at": reset.ExpiresAt,
	})
}

// ResetPasswordPayload is the reset password request body
type ResetPasswordPayload struct {
	Token           string `json:"token" form:"token"`
	NewPassword     string `json:"new_password" form:"new_password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.ConfirmPassword, validation.Required),
	)
}

func (ct *Controller) ResetPassword(c *fiber.Ctx) error {
	payload := ResetPasswordPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return reply.BadRequest(c, "Invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return ct.rejectPayload(c, err)
	}

	if err := ct.session.ResetPassword(
		c.UserContext(),
		payload.Token,
		payload.NewPassword,
		payload.ConfirmPassword,
	); err != nil {
		ct.Logger.Error("password reset failed: %v", err)
		return reply.Error(c, err)
	}

	return reply.OK(c, "Password reset successful")
}

// RefreshTokenPayload is the token refresh request body
type RefreshTokenPayload struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

func (r RefreshTokenPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

func (ct *Controller) RefreshToken(c *fiber.Ctx) error {
	payload := RefreshTokenPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return reply.BadRequest(c, "Invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return ct.rejectPayload(c, err)
	}

	result, err := ct.session.Refresh(c.UserContext(), payload.RefreshToken)
	if err != nil {
		ct.Logger.Error("token refresh failed: %v", err)
		return reply.Error(c, err)
	}

	return reply.OK(c, "Token refreshed successfully", result)
}

// SSOLoginPayload is the SSO login request body
type SSOLoginPayload struct {
	ApplicationID string `json:"application_id" form:"application_id"`
}

func (r SSOLoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ApplicationID, validation.Required, is.UUID),
	)
}

func (ct *Controller) SSOLogin(c *fiber.Ctx) error {
	claims, err := SessionFromFiber(c)
	if err != nil {
		return reply.Error(c, err)
	}

	payload := SSOLoginPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return reply.BadRequest(c, "Invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return ct.rejectPayload(c, err)
	}

	result, err := ct.session.SSOLogin(c.UserContext(), claims.UserID(), payload.ApplicationID, deviceInfo(c))
	if err != nil {
		ct.Logger.Error("SSO login failed: %v", err)
		return reply.Error(c, err)
	}

	return reply.OK(c, "SSO login successful", result)
}

// LogoutPayload is the logout request body
type LogoutPayload struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

func (r LogoutPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

func (ct *Controller) Logout(c *fiber.Ctx) error {
	payload := LogoutPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return reply.BadRequest(c, "Invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return ct.rejectPayload(c, err)
	}

	if err := ct.session.Logout(c.UserContext(), payload.RefreshToken, BearerToken(c)); err != nil {
		ct.Logger.Error("logout failed: %v", err)
		return reply.Error(c, err)
	}

	return reply.OK(c, "Logged out successfully")
}

func (ct *Controller) LogoutAllDevices(c *fiber.Ctx) error {
	claims, err := SessionFromFiber(c)
	if err != nil {
		return reply.Error(c, err)
	}

	if err := ct.session.LogoutAllDevices(c.UserContext(), claims.UserID()); err != nil {
		ct.Logger.Error("logout all devices failed: %v", err)
		return reply.Error(c, err)
	}

	return reply.OK(c, "Logged out from all devices successfully")
}

// SessionFromFiber recovers the claims the access guard stored for this
// request, checking the request locals first and the standard context as a
// fallback.
func SessionFromFiber(c *fiber.Ctx) (AuthClaims, error) {
	if claims, ok := c.Locals(SessionContextKey).(AuthClaims); ok && claims != nil {
		return claims, nil
	}

	if claims, ok := GetClaims(c.UserContext()); ok && claims != nil {
		return claims, nil
	}

	return nil, goerrors.New("Authentication required", goerrors.CategoryAuth).
		WithTextCode(TextCodeAuthRequired).
		WithCode(goerrors.CodeUnauthorized)
}

// BearerToken pulls the raw token out of the Authorization header, "" when
// the header is absent or not a bearer scheme
func BearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func deviceInfo(c *fiber.Ctx) string {
	if ua := c.Get(fiber.HeaderUserAgent); ua != "" {
		return ua
	}
	return "Unknown device"
}
