package auth

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// DefaultTokenExpiry is the safe-default lifetime applied when a TTL
// expression cannot be parsed. Falling back instead of failing is a
// deliberate policy: a misconfigured TTL must never lock the system out.
const DefaultTokenExpiry = 30 * 24 * time.Hour

// TokenService signs and verifies access, refresh, and SSO-response tokens.
// Access and refresh tokens use separate secrets so one can never stand in
// for the other.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     string
	refreshTTL    string
	logger        Logger
}

// NewTokenService creates a TokenService from the loaded configuration
func NewTokenService(cfg Config, logger Logger) *TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenService{
		accessSecret:  []byte(cfg.GetAccessSecret()),
		refreshSecret: []byte(cfg.GetRefreshSecret()),
		accessTTL:     cfg.GetAccessTTL(),
		refreshTTL:    cfg.GetRefreshTTL(),
		logger:        logger,
	}
}

// IssueAccessToken mints a short-lived access token carrying the user's
// identity, an optional role, and an optional application descriptor for
// SSO handoffs.
func (ts *TokenService) IssueAccessToken(user *User, role string, application *ApplicationClaim) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TTLDuration(ts.accessTTL))),
		},
		UID:         user.ID.String(),
		Email:       user.Email,
		Role:        role,
		Application: application,
	}
	return ts.sign(claims, ts.accessSecret)
}

// IssueRefreshToken mints a refresh token with the token_type discriminator
// so it can never be replayed as an access token.
func (ts *TokenService) IssueRefreshToken(user *User, role string) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TTLDuration(ts.refreshTTL))),
		},
		UID:       user.ID.String(),
		Email:     user.Email,
		Role:      role,
		TokenType: TokenTypeRefresh,
	}
	return ts.sign(claims, ts.refreshSecret)
}

// IssueSSOResponseToken wraps an entire login response as the payload of one
// more signed token with fixed issuer and audience claims.
func (ts *TokenService) IssueSSOResponseToken(payload SSOResponsePayload) (string, error) {
	now := time.Now()
	claims := &SSOResponseClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    SSOIssuer,
			Audience:  jwt.ClaimStrings{SSOAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TTLDuration(ts.accessTTL))),
		},
		TokenType: TokenTypeSSOResponse,
		Payload:   payload,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.accessSecret)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign SSO response token")
	}
	return signed, nil
}

// VerifyOption adjusts claim validation during verification
type VerifyOption func(*verifyConfig)

type verifyConfig struct {
	ignoreExpiration bool
}

// WithIgnoreExpiration skips expiry validation. It exists to recover a user
// identity from an already-expired access token during logout; it is never
// an authorization check.
func WithIgnoreExpiration() VerifyOption {
	return func(c *verifyConfig) {
		c.ignoreExpiration = true
	}
}

// VerifyAccessToken parses and validates an access token
func (ts *TokenService) VerifyAccessToken(tokenString string, opts ...VerifyOption) (*SessionClaims, error) {
	return ts.verify(tokenString, ts.accessSecret, opts...)
}

// VerifyRefreshToken parses and validates a refresh token's signature. The
// token_type check belongs to the session lifecycle, not the codec.
func (ts *TokenService) VerifyRefreshToken(tokenString string) (*SessionClaims, error) {
	claims, err := ts.verify(tokenString, ts.refreshSecret)
	if err != nil {
		if IsTokenExpiredError(err) {
			return nil, ErrRefreshTokenExpired
		}
		return nil, ErrRefreshTokenInvalid
	}
	return claims, nil
}

// Validate is the guard-facing entry point: access-token verification with
// classified errors.
func (ts *TokenService) Validate(tokenString string) (AuthClaims, error) {
	return ts.VerifyAccessToken(tokenString)
}

func (ts *TokenService) verify(tokenString string, secret []byte, opts ...VerifyOption) (*SessionClaims, error) {
	cfg := &verifyConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	parserOptions := make([]jwt.ParserOption, 0, 1)
	if cfg.ignoreExpiration {
		parserOptions = append(parserOptions, jwt.WithoutClaimsValidation())
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService verify encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || (!token.Valid && !cfg.ignoreExpiration) {
		ts.logger.Error("TokenService verify could not decode or validate claims")
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

func (ts *TokenService) sign(claims *SessionClaims, secret []byte) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(secret)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// TTLDuration parses a trailing unit suffix (d=days, h=hours, m=minutes)
// into a duration. Unrecognized expressions fall back to DefaultTokenExpiry
// rather than failing.
func TTLDuration(expr string) time.Duration {
	var unit time.Duration

	switch {
	case strings.HasSuffix(expr, "d"):
		unit = 24 * time.Hour
	case strings.HasSuffix(expr, "h"):
		unit = time.Hour
	case strings.HasSuffix(expr, "m"):
		unit = time.Minute
	default:
		return DefaultTokenExpiry
	}

	n, err := strconv.Atoi(strings.TrimSuffix(expr, expr[len(expr)-1:]))
	if err != nil || n <= 0 {
		return DefaultTokenExpiry
	}

	return time.Duration(n) * unit
}

// TokenExpiry resolves a TTL expression against "now"
func TokenExpiry(expr string) time.Time {
	return time.Now().Add(TTLDuration(expr))
}
