// Package guardware guards HTTP routes with bearer access tokens. Beyond
// signature and expiry checks it requires the caller to hold at least one
// live session in the refresh-token ledger, so a logged-out user is locked
// out the moment their sessions are revoked, even while their access token
// is still cryptographically valid.
package guardware

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// Machine readable codes carried in guard error responses
const (
	CodeAuthRequired = "AUTH_REQUIRED"
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeInvalidToken = "INVALID_TOKEN"
	CodeTokenRevoked = "TOKEN_REVOKED"
)

// DefaultContextKey is where verified claims land in the request locals
const DefaultContextKey = "auth_session"

// AuthClaims mirrors the claims surface of the auth package so the guard
// can be wired without an import cycle
type AuthClaims interface {
	UserID() string
	UserEmail() string
	UserRole() string
	Expires() time.Time
	IssuedAt() time.Time
}

// TokenValidator mirrors the token service Validate method
type TokenValidator interface {
	Validate(token string) (AuthClaims, error)
}

// TokenValidatorFunc adapts a plain function into a TokenValidator
type TokenValidatorFunc func(token string) (AuthClaims, error)

func (f TokenValidatorFunc) Validate(token string) (AuthClaims, error) {
	return f(token)
}

// SessionLedger answers whether a user still holds any live session
type SessionLedger interface {
	HasLiveForUser(ctx context.Context, userID string) (bool, error)
}

// Config drives guard construction
type Config struct {
	// Validator is required
	Validator TokenValidator
	// Ledger is optional; when nil the liveness check is skipped
	Ledger SessionLedger
	// ContextKey defaults to DefaultContextKey
	ContextKey string
	// ErrorHandler renders guard failures; a JSON envelope by default
	ErrorHandler fiber.ErrorHandler
	// Filter skips the guard for matching requests
	Filter func(*fiber.Ctx) bool
	// ContextEnricher propagates verified claims into the request's
	// standard context for downstream consumers
	ContextEnricher func(ctx context.Context, claims AuthClaims) context.Context
	Logger          Logger
}

// Logger is the minimal logging surface the guard needs
type Logger interface {
	Debug(format string, args ...any)
	Warn(format string, args ...any)
}

// New builds the guard middleware. Panics when no validator is provided,
// since a guard without a validator protects nothing.
func New(cfg Config) fiber.Handler {
	if cfg.Validator == nil {
		panic("guardware: Config.Validator is required")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		token, err := TokenFromHeader(c)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		claims, err := cfg.Validator.Validate(token)
		if err != nil {
			return cfg.ErrorHandler(c, classify(err))
		}

		if cfg.Ledger != nil {
			live, err := cfg.Ledger.HasLiveForUser(c.UserContext(), claims.UserID())
			if err != nil {
				return cfg.ErrorHandler(c, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check session state"))
			}
			if !live {
				return cfg.ErrorHandler(c, goerrors.New("Token has been revoked", goerrors.CategoryAuth).
					WithTextCode(CodeTokenRevoked).
					WithCode(goerrors.CodeUnauthorized))
			}
		}

		c.Locals(cfg.ContextKey, claims)

		if cfg.ContextEnricher != nil {
			c.SetUserContext(cfg.ContextEnricher(c.UserContext(), claims))
		}

		return c.Next()
	}
}

// TokenFromHeader extracts the bearer token from the Authorization header
func TokenFromHeader(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", goerrors.New("Authentication required", goerrors.CategoryAuth).
			WithTextCode(CodeAuthRequired).
			WithCode(goerrors.CodeUnauthorized)
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", goerrors.New("Invalid authorization header", goerrors.CategoryAuth).
			WithTextCode(CodeInvalidToken).
			WithCode(goerrors.CodeUnauthorized)
	}

	return strings.TrimSpace(token), nil
}

// classify keeps already classified errors and folds everything else into
// the invalid token bucket
func classify(err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode != "" {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryAuth, "Invalid authentication token").
		WithTextCode(CodeInvalidToken).
		WithCode(goerrors.CodeUnauthorized)
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func defaultErrorHandler(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryAuth, "Invalid authentication token").
			WithTextCode(CodeInvalidToken).
			WithCode(goerrors.CodeUnauthorized)
	}

	status := fiber.StatusUnauthorized
	if richErr.Category == goerrors.CategoryInternal {
		status = fiber.StatusInternalServerError
	}

	return c.Status(status).JSON(envelope{
		Success: false,
		Message: richErr.Message,
		Code:    richErr.TextCode,
	})
}
