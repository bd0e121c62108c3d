package auth_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centralhq/central/auth"
)

type httpFixture struct {
	*fixture
	app *fiber.App
}

func newHTTPFixture(t *testing.T) *httpFixture {
	t.Helper()

	f := newFixture(t)

	app := fiber.New()
	api := app.Group("/api/v1")

	guard := auth.NewGuard(f.tokens, f.repo.RefreshTokens(), auth.NopLogger{})
	auth.NewController(f.manager, f.cfg, auth.WithControllerLogger(auth.NopLogger{})).
		RegisterRoutes(api, guard)

	return &httpFixture{fixture: f, app: app}
}

func (f *httpFixture) post(t *testing.T, path, bearer string, payload any) (*http.Response, map[string]any) {
	t.Helper()

	var body bytes.Buffer
	require.NoError(t, json.NewEncoder(&body).Encode(payload))

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	res, err := f.app.Test(req, -1)
	require.NoError(t, err)

	decoded := map[string]any{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&decoded))
	return res, decoded
}

func TestAuthRoutes(t *testing.T) {
	f := newHTTPFixture(t)

	registerBody := map[string]any{
		"first_name": "Tess",
		"last_name":  "Tester",
		"email":      "routes.user@example.com",
		"password":   "a-strong-password",
	}

	t.Run("register", func(t *testing.T) {
		res, body := f.post(t, "/api/v1/auth/register", "", registerBody)

		assert.Equal(t, http.StatusCreated, res.StatusCode)
		assert.Equal(t, true, body["success"])

		data, _ := body["data"].(map[string]any)
		require.NotNil(t, data)
		assert.Equal(t, "routes.user@example.com", data["email"])
		_, leaked := data["password_hash"]
		assert.False(t, leaked, "credential material must never leave the service")
	})

	t.Run("register duplicate conflicts", func(t *testing.T) {
		res, body := f.post(t, "/api/v1/auth/register", "", registerBody)

		assert.Equal(t, http.StatusConflict, res.StatusCode)
		assert.Equal(t, false, body["success"])
	})

	t.Run("register validation failure", func(t *testing.T) {
		res, body := f.post(t, "/api/v1/auth/register", "", map[string]any{
			"first_name": "No",
			"last_name":  "Email",
			"password":   "a-strong-password",
		})

		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		assert.NotNil(t, body["errors"])
	})

	var accessToken, refreshToken string

	t.Run("login", func(t *testing.T) {
		res, body := f.post(t, "/api/v1/auth/login", "", map[string]any{
			"email":    "routes.user@example.com",
			"password": "a-strong-password",
		})

		require.Equal(t, http.StatusOK, res.StatusCode)
		data, _ := body["data"].(map[string]any)
		require.NotNil(t, data)

		accessToken, _ = data["accessToken"].(string)
		refreshToken, _ = data["refreshToken"].(string)
		assert.NotEmpty(t, accessToken)
		assert.NotEmpty(t, refreshToken)
	})

	t.Run("login with bad credentials", func(t *testing.T) {
		res, body := f.post(t, "/api/v1/auth/login", "", map[string]any{
			"email":    "routes.user@example.com",
			"password": "wrong",
		})

		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
		assert.Equal(t, "Invalid email or password.", body["message"])
	})

	t.Run("guarded route without a token", func(t *testing.T) {
		res, body := f.post(t, "/api/v1/auth/change-password", "", map[string]any{})

		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
		assert.Equal(t, "AUTH_REQUIRED", body["code"])
	})

	t.Run("change password through the guard", func(t *testing.T) {
		res, _ := f.post(t, "/api/v1/auth/change-password", accessToken, map[string]any{
			"current_password": "a-strong-password",
			"new_password":     "an-even-stronger-one",
			"confirm_password": "an-even-stronger-one",
		})

		assert.Equal(t, http.StatusOK, res.StatusCode)

		res, _ = f.post(t, "/api/v1/auth/login", "", map[string]any{
			"email":    "routes.user@example.com",
			"password": "an-even-stronger-one",
		})
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})

	t.Run("refresh token", func(t *testing.T) {
		res, body := f.post(t, "/api/v1/auth/refresh-token", "", map[string]any{
			"refresh_token": refreshToken,
		})

		require.Equal(t, http.StatusOK, res.StatusCode)
		data, _ := body["data"].(map[string]any)
		require.NotNil(t, data)

		rotated, _ := data["refreshToken"].(string)
		require.NotEmpty(t, rotated)
		assert.NotEqual(t, refreshToken, rotated)
		refreshToken = rotated
	})

	t.Run("logout kills the session behind the refresh token", func(t *testing.T) {
		res, _ := f.post(t, "/api/v1/auth/logout", accessToken, map[string]any{
			"refresh_token": refreshToken,
		})
		require.Equal(t, http.StatusOK, res.StatusCode)

		res, _ = f.post(t, "/api/v1/auth/refresh-token", "", map[string]any{
			"refresh_token": refreshToken,
		})
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

		res, body := f.post(t, "/api/v1/auth/logout", accessToken, map[string]any{
			"refresh_token": refreshToken,
		})
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
		assert.Equal(t, false, body["success"])
	})

	t.Run("logout-all locks the guard out", func(t *testing.T) {
		// The password-change subtest logged in again, so a live session
		// still backs this access token.
		res, _ := f.post(t, "/api/v1/auth/logout-all", accessToken, map[string]any{})
		require.Equal(t, http.StatusOK, res.StatusCode)

		res, body := f.post(t, "/api/v1/auth/change-password", accessToken, map[string]any{
			"current_password": "an-even-stronger-one",
			"new_password":     "yet-another-password",
			"confirm_password": "yet-another-password",
		})

		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
		assert.Equal(t, "TOKEN_REVOKED", body["code"])
	})

	t.Run("forgot and reset password", func(t *testing.T) {
		res, body := f.post(t, "/api/v1/auth/forgot-password", "", map[string]any{
			"email": "routes.user@example.com",
		})
		require.Equal(t, http.StatusOK, res.StatusCode)

		data, _ := body["data"].(map[string]any)
		require.NotNil(t, data)
		resetURL, _ := data["reset_url"].(string)
		assert.Contains(t, resetURL, f.cfg.frontendURL+"/reset-password?token=")
	})
}
