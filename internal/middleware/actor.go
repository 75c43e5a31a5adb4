package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/quantum-grit/your-sofia/signal-service/internal/models"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

type actorKey struct{}

// Actor reads the caller identity forwarded by the gateway. A missing role means
// citizen; an unknown role is rejected.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := models.Actor{
			ID:   strings.TrimSpace(r.Header.Get(HeaderUserID)),
			Role: models.RoleCitizen,
		}

		if raw := r.Header.Get(HeaderUserRole); strings.TrimSpace(raw) != "" {
			role, err := models.ParseRole(raw)
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "unknown role in "+HeaderUserRole)
				return
			}
			actor.Role = role
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the request actor, or an anonymous citizen.
func ActorFromContext(ctx context.Context) models.Actor {
	if actor, ok := ctx.Value(actorKey{}).(models.Actor); ok {
		return actor
	}
	return models.Actor{Role: models.RoleCitizen}
}
