package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const identityContextKey = "auth.identity"

type tokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// EchoAuthMiddleware guards routes behind bearer-token verification and
// stores the resolved identity on the request context.
type EchoAuthMiddleware struct {
	verifier tokenVerifier
}

func NewEchoAuthMiddleware(verifier tokenVerifier) *EchoAuthMiddleware {
	return &EchoAuthMiddleware{verifier: verifier}
}

func (m *EchoAuthMiddleware) RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token := bearerToken(ctx.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			identity, err := m.verifier.Verify(ctx.Request().Context(), token)
			if err != nil {
				if errors.Is(err, ErrTokenInvalid) {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "token verification unavailable")
			}

			ctx.Set(identityContextKey, identity)
			return next(ctx)
		}
	}
}

// IdentityFromContext returns the verified identity, or nil on
// unauthenticated routes.
func IdentityFromContext(ctx echo.Context) *Identity {
	identity, _ := ctx.Get(identityContextKey).(*Identity)
	return identity
}

// UserIDFromContext is a convenience accessor for party checks.
func UserIDFromContext(ctx echo.Context) string {
	if identity := IdentityFromContext(ctx); identity != nil {
		return identity.UserID
	}
	return ""
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
