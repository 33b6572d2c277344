package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/pontaj-digital/pontaj-backend-go/internal/domain/shift"
	"github.com/pontaj-digital/pontaj-backend-go/internal/handler/http/response"
)

type actorKey struct{}

// ActorFromContext returns the caller stored by AuthRequired.
func ActorFromContext(ctx context.Context) (shift.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(shift.Actor)
	return actor, ok
}

// WithActor stores actor in ctx.
func WithActor(ctx context.Context, actor shift.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// AuthRequired accepts only verified access tokens that carry a user and a
// role, and stores the caller in the request context.
func AuthRequired(next http.Handler) http.Handler {
	hfn := func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			response.Unauthorized(w, response.Localize(r, "error.unauthorized", "Unauthorized"))
			return
		}

		tokenType, ok := claims["type"].(string)
		if !ok || tokenType != "access" {
			response.Unauthorized(w, response.Localize(r, "error.unauthorized", "Unauthorized"))
			return
		}

		userID, _ := claims["user_id"].(string)
		role, _ := claims["role"].(string)
		if userID == "" || role == "" {
			response.Unauthorized(w, response.Localize(r, "error.unauthorized", "Unauthorized"))
			return
		}

		ctx := WithActor(r.Context(), shift.Actor{UserID: userID, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	}
	return http.HandlerFunc(hfn)
}
