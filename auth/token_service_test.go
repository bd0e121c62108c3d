package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/centralhq/central/auth"
)

// testConfig implements auth.Config for tests
type testConfig struct {
	accessSecret  string
	refreshSecret string
	accessTTL     string
	refreshTTL    string
	frontendURL   string
	appURLs       map[string]string
}

func (c *testConfig) GetAccessSecret() string  { return c.accessSecret }
func (c *testConfig) GetRefreshSecret() string { return c.refreshSecret }
func (c *testConfig) GetAccessTTL() string     { return c.accessTTL }
func (c *testConfig) GetRefreshTTL() string    { return c.refreshTTL }
func (c *testConfig) GetFrontendURL() string   { return c.frontendURL }
func (c *testConfig) GetApplicationBaseURL(id string) string {
	return c.appURLs[id]
}

func newTestConfig() *testConfig {
	return &testConfig{
		accessSecret:  "access-secret-for-tests",
		refreshSecret: "refresh-secret-for-tests",
		accessTTL:     "15m",
		refreshTTL:    "7d",
		frontendURL:   "http://localhost:3000",
	}
}

func newTestUser() *auth.User {
	return &auth.User{
		ID:     uuid.New(),
		Email:  "tess.tester@example.com",
		Status: auth.UserStatusActive,
	}
}

func TestTTLDuration(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want time.Duration
	}{
		{"days", "7d", 7 * 24 * time.Hour},
		{"hours", "24h", 24 * time.Hour},
		{"minutes", "15m", 15 * time.Minute},
		{"single day", "1d", 24 * time.Hour},
		{"empty falls back", "", auth.DefaultTokenExpiry},
		{"garbage falls back", "bananas", auth.DefaultTokenExpiry},
		{"no unit falls back", "42", auth.DefaultTokenExpiry},
		{"negative falls back", "-5m", auth.DefaultTokenExpiry},
		{"zero falls back", "0h", auth.DefaultTokenExpiry},
		{"non numeric prefix falls back", "xd", auth.DefaultTokenExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.TTLDuration(tt.expr))
		})
	}
}

func TestTokenExpiry(t *testing.T) {
	before := time.Now().Add(30 * 24 * time.Hour).Add(-time.Minute)
	got := auth.TokenExpiry("not-a-ttl")
	after := time.Now().Add(30 * 24 * time.Hour).Add(time.Minute)

	assert.True(t, got.After(before))
	assert.True(t, got.Before(after))
}

func TestIssueAccessToken(t *testing.T) {
	cfg := newTestConfig()
	ts := auth.NewTokenService(cfg, nil)
	user := newTestUser()

	t.Run("round trips identity claims", func(t *testing.T) {
		token, err := ts.IssueAccessToken(user, "admin", nil)
		assert.NoError(t, err)
		assert.NotEmpty(t, token)

		claims, err := ts.VerifyAccessToken(token)
		assert.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.UserID())
		assert.Equal(t, user.Email, claims.UserEmail())
		assert.Equal(t, "admin", claims.UserRole())
		assert.Empty(t, claims.TokenType)
	})

	t.Run("embeds an application descriptor", func(t *testing.T) {
		app := &auth.ApplicationClaim{
			ID:       uuid.New().String(),
			Name:     "reporting",
			IsActive: true,
		}

		token, err := ts.IssueAccessToken(user, "", app)
		assert.NoError(t, err)

		claims, err := ts.VerifyAccessToken(token)
		assert.NoError(t, err)
		assert.NotNil(t, claims.Application)
		assert.Equal(t, app.ID, claims.Application.ID)
		assert.Equal(t, "reporting", claims.Application.Name)
	})
}

func TestIssueRefreshToken(t *testing.T) {
	cfg := newTestConfig()
	ts := auth.NewTokenService(cfg, nil)
	user := newTestUser()

	token, err := ts.IssueRefreshToken(user, "")
	assert.NoError(t, err)

	t.Run("carries the refresh discriminator", func(t *testing.T) {
		claims, err := ts.VerifyRefreshToken(token)
		assert.NoError(t, err)
		assert.Equal(t, auth.TokenTypeRefresh, claims.TokenType)
		assert.Equal(t, user.ID.String(), claims.UserID())
	})

	t.Run("is rejected as an access token", func(t *testing.T) {
		_, err := ts.VerifyAccessToken(token)
		assert.Error(t, err)
	})

	t.Run("access token is rejected as a refresh token", func(t *testing.T) {
		accessToken, err := ts.IssueAccessToken(user, "", nil)
		assert.NoError(t, err)

		_, err = ts.VerifyRefreshToken(accessToken)
		assert.ErrorIs(t, err, auth.ErrRefreshTokenInvalid)
	})
}

func TestVerifyAccessToken(t *testing.T) {
	cfg := newTestConfig()
	ts := auth.NewTokenService(cfg, nil)
	user := newTestUser()

	expiredToken := func(t *testing.T) string {
		t.Helper()
		claims := jwt.MapClaims{
			"sub":     user.ID.String(),
			"user_id": user.ID.String(),
			"email":   user.Email,
			"iat":     time.Now().Add(-2 * time.Hour).Unix(),
			"exp":     time.Now().Add(-time.Hour).Unix(),
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
			SignedString([]byte(cfg.accessSecret))
		assert.NoError(t, err)
		return signed
	}

	t.Run("expired token is classified as expired", func(t *testing.T) {
		_, err := ts.VerifyAccessToken(expiredToken(t))
		assert.Error(t, err)
		assert.True(t, auth.IsTokenExpiredError(err))
	})

	t.Run("ignore expiration recovers identity", func(t *testing.T) {
		claims, err := ts.VerifyAccessToken(expiredToken(t), auth.WithIgnoreExpiration())
		assert.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.UserID())
	})

	t.Run("garbage is malformed, not expired", func(t *testing.T) {
		_, err := ts.VerifyAccessToken("not.a.token")
		assert.Error(t, err)
		assert.False(t, auth.IsTokenExpiredError(err))

		var richErr *goerrors.Error
		assert.True(t, goerrors.As(err, &richErr))
		assert.Equal(t, auth.TextCodeInvalidToken, richErr.TextCode)
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		other := auth.NewTokenService(&testConfig{
			accessSecret:  "a-different-secret",
			refreshSecret: "another-different-secret",
			accessTTL:     "15m",
			refreshTTL:    "7d",
		}, nil)

		token, err := other.IssueAccessToken(user, "", nil)
		assert.NoError(t, err)

		_, err = ts.VerifyAccessToken(token)
		assert.Error(t, err)
	})
}

func TestIssueSSOResponseToken(t *testing.T) {
	cfg := newTestConfig()
	ts := auth.NewTokenService(cfg, nil)
	user := newTestUser()

	baseURL := "https://app-one.example.com"
	payload := auth.SSOResponsePayload{
		Message: "Login successful",
		User:    user.Public(),
		Application: &auth.ApplicationClaim{
			ID:       uuid.New().String(),
			Name:     "app-one",
			IsActive: true,
		},
		ApplicationBaseURL: &baseURL,
		Tokens: auth.TokenPair{
			AccessToken:  "access",
			RefreshToken: "refresh",
		},
	}

	token, err := ts.IssueSSOResponseToken(payload)
	assert.NoError(t, err)

	claims := &auth.SSOResponseClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(cfg.accessSecret), nil
	})
	assert.NoError(t, err)

	assert.Equal(t, auth.SSOIssuer, claims.Issuer)
	assert.Contains(t, claims.Audience, auth.SSOAudience)
	assert.Equal(t, auth.TokenTypeSSOResponse, claims.TokenType)
	assert.Equal(t, "Login successful", claims.Payload.Message)
	assert.Equal(t, user.Email, claims.Payload.User.Email)
	assert.Equal(t, "app-one", claims.Payload.Application.Name)
	assert.NotNil(t, claims.Payload.ApplicationBaseURL)
	assert.Equal(t, baseURL, *claims.Payload.ApplicationBaseURL)
}
