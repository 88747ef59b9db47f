package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/campusgrid/forum-service/internal/auth"
	"github.com/campusgrid/forum-service/internal/domain"
	"github.com/go-chi/chi/v5/middleware"
)

// requireAuth verifies the bearer token and attaches the identity to the
// request context. Requests without a valid token are rejected before any
// handler logic runs.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractToken(r)
		if tokenString == "" {
			respondError(w, domain.ErrUnauthenticated)
			return
		}
		id, err := s.verifier.Verify(tokenString)
		if err != nil {
			respondError(w, domain.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

// extractToken pulls the token from the Authorization header or, for
// websocket clients that cannot set headers, the token query parameter.
func extractToken(r *http.Request) string {
	if qToken := r.URL.Query().Get("token"); qToken != "" {
		return qToken
	}
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}

// identity returns the verified identity attached by requireAuth.
func identity(r *http.Request) (domain.Identity, error) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return id, nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"requestId", middleware.GetReqID(r.Context()),
		)
	})
}
