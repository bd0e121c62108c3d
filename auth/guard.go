package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/centralhq/central/middleware/guardware"
)

// guardValidator adapts the token service to the guard's validator surface
type guardValidator struct {
	tokens *TokenService
}

func (g guardValidator) Validate(token string) (guardware.AuthClaims, error) {
	claims, err := g.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// NewGuard wires the access guard for this auth stack: token verification
// through the token service, session liveness through the refresh token
// ledger, claims stored under SessionContextKey.
func NewGuard(tokens *TokenService, ledger RefreshTokens, logger Logger) fiber.Handler {
	return guardware.New(guardware.Config{
		Validator:       guardValidator{tokens: tokens},
		Ledger:          ledger,
		ContextKey:      SessionContextKey,
		ContextEnricher: contextEnricher,
		Logger:          logger,
	})
}

// contextEnricher stores verified claims in the standard context so code
// that only sees a context.Context can still read the caller's identity
func contextEnricher(ctx context.Context, claims guardware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return ctx
	}
	return WithClaimsContext(ctx, authClaims)
}
