package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/checkout-backend/api/responses"
	pkgAuth "github.com/angelmondragon/checkout-backend/pkg/auth"
	"github.com/angelmondragon/checkout-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with its subject
// and role.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.Subject == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing token subject"))
				return
			}

			ctx := WithActor(r.Context(), claims.Subject, claims.Role)
			ctx = logg.WithUserID(ctx, claims.Subject)
			ctx = logg.WithField(ctx, "actor_role", claims.Role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) string {
	token := strings.TrimSpace(header)
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
