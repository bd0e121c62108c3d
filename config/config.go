// Package config loads process configuration from the environment, with an
// optional .env file for local development. Everything is read once at
// startup; business logic receives values through constructors and never
// touches the environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// App is the full configuration of one service process
type App struct {
	Port  string
	Env   string
	DBDSN string
	Auth  Auth
}

// Auth carries signing secrets, token lifetimes, and the registry of
// per-application base URLs
type Auth struct {
	AccessSecret    string
	RefreshSecret   string
	AccessTTL       string
	RefreshTTL      string
	FrontendURL     string
	applicationURLs map[string]string
}

// GetAccessSecret returns the access token signing secret
func (a *Auth) GetAccessSecret() string {
	return a.AccessSecret
}

// GetRefreshSecret returns the refresh token signing secret
func (a *Auth) GetRefreshSecret() string {
	return a.RefreshSecret
}

// GetAccessTTL returns the access token lifetime expression, e.g. "15m"
func (a *Auth) GetAccessTTL() string {
	return a.AccessTTL
}

// GetRefreshTTL returns the refresh token lifetime expression, e.g. "7d"
func (a *Auth) GetRefreshTTL() string {
	return a.RefreshTTL
}

// GetFrontendURL returns the base URL reset links are composed against
func (a *Auth) GetFrontendURL() string {
	return a.FrontendURL
}

// GetApplicationBaseURL resolves the base URL mapped to an application id.
// Unmapped ids return "", never an error.
func (a *Auth) GetApplicationBaseURL(id string) string {
	return a.applicationURLs[id]
}

// Load reads configuration from the environment. When a .env file exists
// it is loaded first; a missing file is not an error.
func Load(envFiles ...string) (*App, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			if err := godotenv.Load(file); err != nil {
				return nil, fmt.Errorf("config: loading %s: %w", file, err)
			}
		}
	}

	app := &App{
		Port:  getenv("PORT", "3000"),
		Env:   getenv("APP_ENV", "development"),
		DBDSN: os.Getenv("DATABASE_URL"),
		Auth: Auth{
			AccessSecret:    os.Getenv("JWT_ACCESS_SECRET"),
			RefreshSecret:   os.Getenv("JWT_REFRESH_SECRET"),
			AccessTTL:       getenv("JWT_ACCESS_EXPIRY", "15m"),
			RefreshTTL:      getenv("JWT_REFRESH_EXPIRY", "7d"),
			FrontendURL:     getenv("FRONTEND_URL", "http://localhost:3000"),
			applicationURLs: applicationURLs(os.Environ()),
		},
	}

	if app.Auth.AccessSecret == "" {
		return nil, fmt.Errorf("config: JWT_ACCESS_SECRET is required")
	}

	if app.Auth.RefreshSecret == "" {
		return nil, fmt.Errorf("config: JWT_REFRESH_SECRET is required")
	}

	return app, nil
}

// applicationURLs builds the application id to base URL map from indexed
// env pairs: APPLICATION_ID_1 + APPLICATION_URL_1, APPLICATION_ID_2 +
// APPLICATION_URL_2, and so on. A URL with no matching id is skipped.
func applicationURLs(environ []string) map[string]string {
	ids := map[string]string{}
	urls := map[string]string{}

	for _, entry := range environ {
		key, value, found := strings.Cut(entry, "=")
		if !found || value == "" {
			continue
		}
		if suffix, ok := strings.CutPrefix(key, "APPLICATION_ID_"); ok {
			ids[suffix] = value
		}
		if suffix, ok := strings.CutPrefix(key, "APPLICATION_URL_"); ok {
			urls[suffix] = value
		}
	}

	out := map[string]string{}
	for suffix, id := range ids {
		if url, ok := urls[suffix]; ok {
			out[id] = url
		}
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
