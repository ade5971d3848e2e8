package middleware

import (
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/heksidee/blogAppPipeline/internal/auth"
)

// BearerToken extracts the raw token from the Authorization header,
// or returns an empty string when no bearer credential is present
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return ""
	}
	return strings.TrimSpace(authHeader[len("bearer "):])
}

type AuthMiddlewareHandler struct {
	resolver auth.Resolver
}

func NewAuthMiddlewareHandler(resolver auth.Resolver) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		resolver: resolver,
	}
}

// ExtractPrincipal resolves the bearer credential, when one is present, and
// attaches the principal to the request context. It never rejects a request:
// public reads stay public even with a garbled token attached, and each
// handler enforces its own authentication gate.
func (h *AuthMiddlewareHandler) ExtractPrincipal() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, PUT, DELETE, OPTIONS")
				w.WriteHeader(http.StatusOK)
				return
			}

			token := BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := h.resolver.Resolve(r.Context(), token)
			if err != nil {
				if !errors.Is(err, auth.ErrUnauthenticated) {
					log.Errorf("[auth middleware] resolve principal => %s: %s", r.URL.Path, err)
				}
				next.ServeHTTP(w, r)
				return
			}

			r = r.WithContext(auth.ContextWithPrincipal(r.Context(), principal))
			next.ServeHTTP(w, r)
		})
	}
}
