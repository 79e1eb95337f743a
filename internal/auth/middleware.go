package auth

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

const bearerScheme = "Bearer "

// Middleware authenticates requests carrying a bearer access token and
// places the caller's identity in the request context.
type Middleware struct {
	Tokens *TokenIssuer
	Logger *slog.Logger
}

// RequireAuth rejects requests without a valid access token.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "access token is required")
			return
		}

		claims, err := m.Tokens.ParseAccessToken(raw)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Debug("access token rejected", slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "access token is not valid")
			return
		}

		userID, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "access token is not valid")
			return
		}

		identity := shared.Identity{UserID: userID, Role: claims.Role}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), identity)))
	})
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) <= len(bearerScheme) {
		return "", false
	}
	if !strings.EqualFold(header[:len(bearerScheme)], bearerScheme) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerScheme):])
	return token, token != ""
}
