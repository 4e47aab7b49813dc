package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	apperrors "parkly/pkg/errors"
	"parkly/pkg/logger"
	"parkly/pkg/sealer"
)

const adminEmailKey contextKey = "admin_email"

// TokenOpener is implemented by *sealer.Sealer.
type TokenOpener interface {
	Open(token string) (string, time.Time, error)
}

// AdminAuth guards a single route with a bearer token issued at admin login.
// The token subject is the admin email, made available through
// AdminEmailFromContext.
func AdminAuth(opener TokenOpener, log *logger.Logger) func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			token, ok := bearerToken(r)
			if !ok {
				rejectAdmin(w, log, r, "missing bearer token")
				return
			}

			email, _, err := opener.Open(token)
			if err != nil {
				reason := "invalid token"
				if errors.Is(err, sealer.ErrExpiredToken) {
					reason = "token expired"
				}
				rejectAdmin(w, log, r, reason)
				return
			}

			ctx := context.WithValue(r.Context(), adminEmailKey, email)
			next(w, r.WithContext(ctx), ps)
		}
	}
}

func AdminEmailFromContext(ctx context.Context) string {
	if email, ok := ctx.Value(adminEmailKey).(string); ok {
		return email
	}
	return ""
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func rejectAdmin(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.Warn("Admin authentication failed",
		"request_id", RequestIDFromContext(r.Context()),
		"reason", reason,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
	)
	reject(w, apperrors.Unauthorized("Admin authentication required"))
}
