package middleware

import (
	"net/http"

	"github.com/pontaj-digital/pontaj-backend-go/internal/handler/http/response"
)

// RequireRole lets through callers whose role is one of roles. It must run
// after AuthRequired.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				response.Unauthorized(w, response.Localize(r, "error.unauthorized", "Unauthorized"))
				return
			}

			if _, ok := allowed[actor.Role]; !ok {
				response.Forbidden(w, response.Localize(r, "error.forbidden", "Insufficient permissions"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
