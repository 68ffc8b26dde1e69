package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"sessiongate/internal/auth"
	"sessiongate/internal/metrics"
)

// AuthHandler exposes login and profile endpoints.
type AuthHandler struct {
	service *auth.Service
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewAuthHandler creates a handler.
func NewAuthHandler(service *auth.Service, recorder metrics.Recorder, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: service, metrics: recorder, logger: logger}
}

type loginRequest struct {
	IDToken  string `json:"idToken"`
	Platform string `json:"platform"`
}

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
}

type loginResponse struct {
	User        userResponse `json:"user"`
	AccessToken string       `json:"accessToken"`
	ExpiresIn   int          `json:"expiresIn"`
}

func newUserResponse(user auth.User) userResponse {
	return userResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
	}
}

// Login exchanges a Google ID token for an access token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		h.metrics.RecordLoginLatency(time.Since(start))
	}()

	var req loginRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		h.metrics.RecordLogin("", metrics.OutcomeInvalid)
		writeJSONError(w, err)
		return
	}

	platform := auth.ParsePlatform(req.Platform).Label()
	result, err := h.service.Login(r.Context(), auth.LoginInput{IDToken: req.IDToken, Platform: req.Platform})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrValidation):
			h.metrics.RecordLogin(platform, metrics.OutcomeInvalid)
			writeError(w, http.StatusBadRequest, validationMessage(err))
		case errors.Is(err, auth.ErrAuthFailed):
			h.metrics.RecordLogin(platform, metrics.OutcomeRejected)
			h.logger.Warn("google login failed", "platform", platform, "error", err)
			writeError(w, http.StatusUnauthorized, "Invalid Google idToken")
		default:
			h.metrics.RecordLogin(platform, metrics.OutcomeUnhandled)
			h.logger.Error("login error", "error", err)
			writeError(w, http.StatusInternalServerError, "unexpected error")
		}
		return
	}

	h.metrics.RecordLogin(platform, metrics.OutcomeSuccess)
	h.logger.Info("user logged in", "user_id", result.User.ID.String(), "platform", platform)
	writeJSON(w, http.StatusOK, loginResponse{
		User:        newUserResponse(result.User),
		AccessToken: result.AccessToken,
		ExpiresIn:   result.ExpiresIn,
	})
}

// Me returns the profile of the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		unauthorized(w, "Unauthenticated")
		return
	}

	user, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("load profile", "user_id", userID.String(), "error", err)
		writeError(w, http.StatusInternalServerError, "unexpected error")
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), auth.ErrValidation.Error()+": ")
}
