package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType discriminates the three token shapes this service signs
type TokenType = string

const (
	// TokenTypeRefresh marks refresh tokens so they can never be replayed
	// as access tokens.
	TokenTypeRefresh TokenType = "refresh"
	// TokenTypeSSOResponse marks the signed response envelope handed to
	// third-party applications.
	TokenTypeSSOResponse TokenType = "sso_response"
)

const (
	// SSOIssuer is the fixed issuer claim on SSO response tokens
	SSOIssuer = "centralized-application-system"
	// SSOAudience is the fixed audience claim on SSO response tokens
	SSOAudience = "sso-applications"
)

// AuthClaims is the surface the rest of the system reads off a verified token
type AuthClaims interface {
	UserID() string
	UserEmail() string
	UserRole() string
	Expires() time.Time
	IssuedAt() time.Time
}

// ApplicationClaim is the application descriptor embedded into access
// tokens minted for SSO handoffs.
type ApplicationClaim struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
}

// SessionClaims is the concrete claims payload for access and refresh tokens
type SessionClaims struct {
	jwt.RegisteredClaims
	UID         string            `json:"user_id,omitempty"`
	Email       string            `json:"email,omitempty"`
	Role        string            `json:"role,omitempty"`
	TokenType   TokenType         `json:"token_type,omitempty"`
	Application *ApplicationClaim `json:"application,omitempty"`
}

var _ AuthClaims = (*SessionClaims)(nil)

// UserID returns the user ID, falling back to the subject claim
func (c *SessionClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// UserEmail returns the email claim
func (c *SessionClaims) UserEmail() string {
	return c.Email
}

// UserRole returns the optional role claim
func (c *SessionClaims) UserRole() string {
	return c.Role
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *SessionClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// SSOResponsePayload is the login response wrapped inside the SSO response
// token. A third party can verify provenance off the signature alone,
// without a round trip back to the issuer.
type SSOResponsePayload struct {
	Message            string            `json:"message"`
	User               *PublicUser       `json:"user"`
	Application        *ApplicationClaim `json:"application"`
	ApplicationBaseURL *string           `json:"application_base_url"`
	Tokens             TokenPair         `json:"tokens"`
}

// TokenPair is a freshly issued access/refresh pair
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// SSOResponseClaims wraps the payload with the registered claims
type SSOResponseClaims struct {
	jwt.RegisteredClaims
	TokenType TokenType          `json:"token_type"`
	Payload   SSOResponsePayload `json:"payload"`
}
