package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"sessiongate/internal/auth"
	"sessiongate/internal/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	userIDContextKey   contextKey = "user_id"
	requestLogStateKey contextKey = "request_log_state"
)

// requestLogState lets handlers deeper in the chain annotate the access log
// line written by the outer middleware.
type requestLogState struct {
	userID uuid.UUID
}

func newSlogMiddleware(logger *slog.Logger, recorder metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			state := &requestLogState{}
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestLogStateKey, state)))

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start).String(),
			}
			if reqID := middleware.GetReqID(r.Context()); reqID != "" {
				attrs = append(attrs, "request_id", reqID)
			}
			if state.userID != uuid.Nil {
				attrs = append(attrs, "user_id", state.userID.String())
			}

			level := slog.LevelInfo
			switch {
			case rec.status >= http.StatusInternalServerError:
				level = slog.LevelError
			case rec.status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "http request", attrs...)
			recorder.RecordHTTPStatus(rec.status)
		})
	}
}

// ContextWithUserID stores the authenticated user id on ctx.
func ContextWithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	if state, ok := ctx.Value(requestLogStateKey).(*requestLogState); ok {
		state.userID = userID
	}
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserIDFromContext extracts the authenticated user id from the request context.
// The boolean is false if the session guard hasn't populated the context.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDContextKey).(uuid.UUID)
	return userID, ok && userID != uuid.Nil
}

// tokenAuthenticator resolves an access token to a user id.
type tokenAuthenticator interface {
	Authenticate(token string) (uuid.UUID, error)
}

// newSessionGuard admits requests carrying a valid bearer access token and
// stores the user id on the request context. The user record itself is not
// loaded here.
func newSessionGuard(authn tokenAuthenticator, recorder metrics.Recorder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.ParseBearer(r.Header.Get("Authorization"))
			if err != nil {
				if errors.Is(err, auth.ErrMissingCredential) {
					recorder.RecordGuardRejection("missing")
					unauthorized(w, "No Authorization header")
					return
				}
				recorder.RecordGuardRejection("malformed")
				unauthorized(w, "Invalid Authorization header format")
				return
			}

			userID, err := authn.Authenticate(token)
			if err != nil {
				reason := "invalid"
				if errors.Is(err, auth.ErrExpiredCredential) {
					reason = "expired"
				}
				recorder.RecordGuardRejection(reason)
				logger.Debug("access token rejected", "reason", reason, "error", err)
				unauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, message)
}
