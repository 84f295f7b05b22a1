package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/eraverse/sales-admin-service/internal/http/response"
	"github.com/eraverse/sales-admin-service/internal/security"
)

const BotClaimsContextKey contextKey = "bot_claims"

// BotAuth admits requests bearing a valid bot token.
func BotAuth(jwtMgr *security.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token", nil)
				return
			}
			claims, err := jwtMgr.ParseBotToken(strings.TrimSpace(auth[7:]))
			if err != nil {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid bearer token", nil)
				return
			}
			ctx := context.WithValue(r.Context(), BotClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func BotClaimsFromContext(ctx context.Context) (*security.BotClaims, bool) {
	c, ok := ctx.Value(BotClaimsContextKey).(*security.BotClaims)
	return c, ok
}
