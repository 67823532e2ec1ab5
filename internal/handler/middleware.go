package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/vikoba/loan-engine/internal/domain"
	"github.com/vikoba/loan-engine/pkg/response"
)

type contextKey string

const actorKey contextKey = "actor"

// ActorMiddleware resolves the authenticated principal from the gateway
// headers. Authentication itself happens upstream; an absent or malformed
// principal is treated as a guard failure, never as a default role.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		memberID, err := uuid.Parse(r.Header.Get("X-Member-ID"))
		if err != nil {
			response.Unauthorized(w, "missing or invalid member identity")
			return
		}

		role, err := domain.ParseRole(r.Header.Get("X-Member-Role"))
		if err != nil {
			response.Unauthorized(w, "missing or invalid member role")
			return
		}

		actor := domain.Actor{MemberID: memberID, Role: role}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
	})
}

// ActorFromContext returns the principal placed by ActorMiddleware.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(domain.Actor)
	return actor, ok
}
