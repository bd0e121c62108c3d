package auth

import (
	"context"
	"fmt"
	"time"
)

// Logger is the minimal logging surface used across the package
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds the signing and lifetime options for the auth core.
// Secrets and TTLs are loaded once at process start and passed in here;
// business logic never reads ambient state.
type Config interface {
	GetAccessSecret() string
	GetRefreshSecret() string
	GetAccessTTL() string
	GetRefreshTTL() string
	GetFrontendURL() string
	// GetApplicationBaseURL resolves the base URL for a registered
	// application. Unmapped ids return "" rather than an error.
	GetApplicationBaseURL(id string) string
}

// SessionLifecycle holds the operations the auth controller orchestrates
type SessionLifecycle interface {
	Login(ctx context.Context, email, password, deviceInfo string) (*LoginResult, error)
	Register(ctx context.Context, profile RegisterProfile) (*User, error)
	ChangePassword(ctx context.Context, userID, current, newPassword, confirm string) error
	ForgotPassword(ctx context.Context, email string) (*ResetRequest, error)
	ResetPassword(ctx context.Context, token, newPassword, confirm string) error
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)
	SSOLogin(ctx context.Context, userID, applicationID, deviceInfo string) (*SSOLoginResult, error)
	Logout(ctx context.Context, refreshToken, accessToken string) error
	LogoutAllDevices(ctx context.Context, userID string) error
}

// RegisterProfile is the input to Register
type RegisterProfile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// LoginResult is the outcome of Login and Refresh: the public profile
// plus a freshly issued token pair.
type LoginResult struct {
	User         *PublicUser `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

// ResetRequest is the outcome of ForgotPassword. The core hands back the
// token and expiry; composing the reset URL is the caller's job.
type ResetRequest struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SSOTokens carries the signed envelope handed to the third party
type SSOTokens struct {
	SSOToken string `json:"ssoToken"`
}

// SSOLoginResult is the outcome of SSOLogin
type SSOLoginResult struct {
	User               *PublicUser       `json:"user"`
	Application        *ApplicationClaim `json:"application"`
	ApplicationBaseURL *string           `json:"application_base_url"`
	Tokens             SSOTokens         `json:"tokens"`
}

// DefaultLogger returns the stdout logger used when nothing is injected
func DefaultLogger() Logger {
	return defLogger{}
}

// NopLogger discards all log output. Handy in tests.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
