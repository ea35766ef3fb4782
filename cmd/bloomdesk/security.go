package main

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	apperrors "bloomdesk/internal/errors"
	"bloomdesk/internal/httputil"
)

// requireAdminToken guards the moderation routes with a bearer token compared
// in constant time. In production an empty secret locks the routes entirely;
// in development it leaves them open so local setups work out of the box.
func (s *Server) requireAdminToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := s.cfg.Admin.TokenSecret

		if secret == "" {
			if os.Getenv("BLOOMDESK_ENV") == "production" {
				s.writeError(w, r, apperrors.New(apperrors.ErrCodeAuthorization, "admin token secret not configured").
					WithUserMessage("Admin access is not configured on this server."))
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			s.logger.WithField("remote_ip", httputil.GetClientIP(r)).
				Warn("Rejected admin request with invalid token")
			s.writeError(w, r, apperrors.New(apperrors.ErrCodeAuthorization, "invalid admin token").
				WithUserMessage("Your admin session has expired. Please sign in again."))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}
