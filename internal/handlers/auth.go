package handlers

import (
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/khelmart/khelmart/internal/auth"
	"github.com/khelmart/khelmart/internal/logging"
	"github.com/khelmart/khelmart/internal/observability"
)

// RequireAuth resolves the caller's identity from the Authorization header
// and stores it in the request context.
func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		meter := observability.MeterFromContext(ctx)

		identity, err := h.authVerifier.VerifyAuthorizationHeader(r.Header.Get("Authorization"))
		if err != nil {
			meter.Count("auth.rejected", 1, sentry.WithAttributes(attribute.String("reason", authFailureReason(err))))
			h.loggerFromContext(ctx).Info("rejected unauthenticated request", "error", err, "path", r.URL.Path)
			h.respondJSON(w, r, http.StatusUnauthorized, errorBody("authentication required"))
			return
		}

		ctx = auth.WithIdentity(ctx, identity)
		ctx = logging.WithLogger(ctx, h.loggerFromContext(ctx).With("user_id", identity.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin gates the management surface to the configured admin emails.
// It must run after RequireAuth.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, ok := auth.IdentityFromContext(ctx)
		if !ok {
			h.respondJSON(w, r, http.StatusUnauthorized, errorBody("authentication required"))
			return
		}
		if !h.config.IsAdminEmail(identity.Email) {
			h.loggerFromContext(ctx).Warn("blocked non-admin management request", "user_id", identity.UserID, "path", r.URL.Path)
			h.respondJSON(w, r, http.StatusForbidden, errorBody("not allowed"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func authFailureReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingCredential):
		return "missing_credential"
	default:
		return "invalid_credential"
	}
}
