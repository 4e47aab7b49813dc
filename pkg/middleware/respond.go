package middleware

import (
	"net/http"

	apperrors "parkly/pkg/errors"
)

var (
	tooLarge    = apperrors.New(apperrors.CodeBadRequest, "Request body too large", http.StatusRequestEntityTooLarge)
	rateLimited = apperrors.New(apperrors.CodeBadRequest, "Rate limit exceeded", http.StatusTooManyRequests)
	timedOut    = apperrors.Timeout("Request timeout")
)

// reject writes an error body in the same shape the handlers use.
func reject(w http.ResponseWriter, appErr *apperrors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode())
	_, _ = w.Write(appErr.ToJSON())
}
