package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/centralhq/central/auth"
)

func TestClaimsContext(t *testing.T) {
	ctx := context.Background()

	t.Run("empty context has no claims", func(t *testing.T) {
		_, ok := auth.GetClaims(ctx)
		assert.False(t, ok)
	})

	t.Run("round trips claims", func(t *testing.T) {
		claims := &auth.SessionClaims{UID: "user-1", Email: "u@example.com"}

		enriched := auth.WithClaimsContext(ctx, claims)

		got, ok := auth.GetClaims(enriched)
		assert.True(t, ok)
		assert.Equal(t, "user-1", got.UserID())
	})
}

func TestUserContext(t *testing.T) {
	ctx := context.Background()
	user := newTestUser()

	_, ok := auth.UserFromContext(ctx)
	assert.False(t, ok)

	got, ok := auth.UserFromContext(auth.WithUserContext(ctx, user))
	assert.True(t, ok)
	assert.Equal(t, user.Email, got.Email)
}
