package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mediclear/mediclear/internal/platform/apierror"
)

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller stored by Authenticate.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. Any other form yields "".
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// Authenticate rejects requests without a valid, unrevoked bearer token and
// stores the caller's Identity on the request context. revoker may be nil.
func Authenticate(tokens *TokenService, revoker Revoker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := BearerToken(c.Request())
			if raw == "" {
				return apierror.Unauthorized(apierror.CodeNoToken)
			}

			id, err := tokens.Verify(raw)
			if err != nil {
				return apierror.Wrap(http.StatusUnauthorized, apierror.CodeInvalidToken, err)
			}

			ctx := c.Request().Context()
			if revoker != nil && id.TokenID != "" {
				revoked, err := revoker.IsRevoked(ctx, id.TokenID)
				if err != nil {
					return apierror.Wrap(http.StatusServiceUnavailable, apierror.CodeUnavailable, err)
				}
				if revoked {
					return apierror.Unauthorized(apierror.CodeInvalidToken)
				}
			}

			c.Set("user_email", id.Email)
			c.SetRequest(c.Request().WithContext(WithIdentity(ctx, id)))
			return next(c)
		}
	}
}
