package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/moyijulius/crime-report-platform/config"
	"github.com/moyijulius/crime-report-platform/models"
)

// Messages written by the token middleware
const (
	MessageNoToken         = "Access denied. No token provided."
	MessageInvalidToken    = "Invalid or expired token"
	MessageAdminRequired   = "Access denied. Admin privileges required."
	MessageOfficerRequired = "Access denied. Officer privileges required."
)

// RequireToken rejects requests without a valid bearer token and stores the
// decoded claims on the request context
func (a *Authenticator) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.Authenticate(r)
		if errors.Is(err, ErrMissingToken) {
			config.ErrorStatus(MessageNoToken, http.StatusUnauthorized, w, nil)
			return
		}
		if err != nil {
			zap.S().Debugw("rejected token", "url", r.URL.Path, "error", err)
			config.ErrorStatus(MessageInvalidToken, http.StatusForbidden, w, nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// OptionalToken attaches claims when a valid token is presented and otherwise
// lets the request through anonymously
func (a *Authenticator) OptionalToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, err := a.Authenticate(r); err == nil {
			r = r.WithContext(WithClaims(r.Context(), claims))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole only lets callers holding one of roles through. It must run
// after RequireToken.
func RequireRole(message string, roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || !claims.HasRole(roles...) {
				config.ErrorStatus(message, http.StatusForbidden, w, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
