package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"moneta/internal/auth"
	"moneta/internal/core"
	"moneta/internal/storage"
)

type contextKey string

const userIDKey contextKey = "user_id"

func withUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// userID returns the authenticated user of the request.
func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

// bearerToken extracts the token of an "Authorization: Bearer" header. A bare
// token is accepted too.
func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return h
}

// writeServiceError maps a ledger error to its HTTP status in one place.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, internalMsg string) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		BadRequestError(ve.Error()).Write(w)
	case errors.Is(err, errEmptyBody), errors.Is(err, errMalformedJSON):
		BadRequestError(err.Error()).Write(w)
	case core.IsNotFound(err):
		NotFoundError(notFoundMessage(err)).Write(w)
	default:
		slog.ErrorContext(r.Context(), internalMsg, "error", err, "path", r.URL.Path, "user_id", userID(r))
		InternalServerError(internalMsg).Write(w)
	}
}

// notFoundMessage turns "goal 42: not found" into "Goal not found".
func notFoundMessage(err error) string {
	msg := err.Error()
	entity, _, ok := strings.Cut(msg, " ")
	if !ok || entity == "" {
		return "Not found"
	}
	return strings.ToUpper(entity[:1]) + entity[1:] + " not found"
}

// writeAuthError maps auth failures. Auth routes answer with {"message"}.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, errEmptyBody), errors.Is(err, errMalformedJSON):
		MessageResponse(http.StatusBadRequest, err.Error()).Write(w)
	case errors.Is(err, storage.ErrEmailTaken):
		MessageResponse(http.StatusConflict, "User already exists").Write(w)
	case errors.Is(err, auth.ErrInvalidCredentials):
		MessageResponse(http.StatusUnauthorized, "Invalid credentials").Write(w)
	case errors.Is(err, auth.ErrTooManyAttempts):
		NewJSONResponse().
			Status(http.StatusTooManyRequests).
			Header("Retry-After", "900").
			Message("Too many failed login attempts, try again later").
			Write(w)
	default:
		slog.ErrorContext(r.Context(), "Auth request failed", "error", err, "path", r.URL.Path)
		MessageResponse(http.StatusInternalServerError, "Server error").Write(w)
	}
}
