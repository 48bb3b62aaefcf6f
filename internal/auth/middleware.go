package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sqlscribe/sqlscribe/internal/observability"
)

type contextKey string

const identityKey contextKey = "auth_identity"

// Where a request presented its key.
const (
	keySourceHeader = "x-api-key"
	keySourceBearer = "bearer"
)

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// Middleware resolves the caller's API key to an Identity and stores it on
// the request context. The key itself is never logged.
func Middleware(logger *slog.Logger, validator APIKeyValidator) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			apiKey, source, reason := extractAPIKey(r)
			if reason != "" {
				observability.ObserveAuthRejection(reason)
				logger.DebugContext(ctx, "request without usable api key",
					slog.String("trace_id", observability.TraceIDFromContext(ctx)),
					slog.String("route", r.URL.Path),
					slog.String("reason", reason),
				)
				message := "missing API key"
				if reason == observability.AuthUnsupportedScheme {
					message = "authorization scheme must be Bearer"
				}
				writeUnauthorized(w, r, message)
				return
			}

			identity, ok := validator.Validate(ctx, apiKey)
			if !ok {
				observability.ObserveAuthRejection(observability.AuthUnknownKey)
				logger.WarnContext(ctx, "api key rejected",
					slog.String("trace_id", observability.TraceIDFromContext(ctx)),
					slog.String("route", r.URL.Path),
					slog.String("key_source", source),
					slog.String("remote_addr", r.RemoteAddr),
				)
				writeUnauthorized(w, r, "invalid API key")
				return
			}

			observability.SetSubject(ctx, identity.Subject)
			logger.DebugContext(ctx, "caller authenticated",
				slog.String("trace_id", observability.TraceIDFromContext(ctx)),
				slog.String("route", r.URL.Path),
				slog.String("subject", identity.Subject),
				slog.Any("roles", identity.Roles),
				slog.String("key_source", source),
			)
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

// extractAPIKey prefers X-API-Key over a bearer token. A non-empty reason
// means no key could be read.
func extractAPIKey(r *http.Request) (key, source, reason string) {
	if headerKey := strings.TrimSpace(r.Header.Get("X-API-Key")); headerKey != "" {
		return headerKey, keySourceHeader, ""
	}
	authorization := strings.TrimSpace(r.Header.Get("Authorization"))
	if authorization == "" {
		return "", "", observability.AuthMissingKey
	}
	scheme, token, _ := strings.Cut(authorization, " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return "", "", observability.AuthUnsupportedScheme
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", "", observability.AuthMissingKey
	}
	return token, keySourceBearer, ""
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error_code": "UNAUTHORIZED",
		"message":    message,
		"retryable":  false,
		"trace_id":   observability.TraceIDFromContext(r.Context()),
	})
}
