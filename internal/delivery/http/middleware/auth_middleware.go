package middleware

import (
	"context"
	"net/http"
	"strings"

	"vehicle-service-scheduling/internal/domain/entity"
	"vehicle-service-scheduling/pkg/jwt"
	"vehicle-service-scheduling/pkg/response"

	"github.com/google/uuid"
)

type contextKey string

const ActorKey contextKey = "actor"

type AuthMiddleware struct {
	jwtService *jwt.JWTService
}

func NewAuthMiddleware(jwtService *jwt.JWTService) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
	}
}

// Authenticate verifies the bearer token and stores the caller as an entity.Actor.
// The raw token is kept so it can be forwarded to the profile services.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "Authorization header is required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(w, "Invalid authorization header format")
			return
		}

		tokenString := parts[1]

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			response.Unauthorized(w, "Invalid or expired token")
			return
		}

		ctx := WithActor(r.Context(), entity.Actor{
			ID:        claims.UserID,
			RoleID:    claims.RoleID,
			AuthToken: tokenString,
		})

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithActor returns a copy of ctx carrying actor
func WithActor(ctx context.Context, actor entity.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// GetActorFromContext extracts the authenticated caller from context
func GetActorFromContext(ctx context.Context) (entity.Actor, bool) {
	actor, ok := ctx.Value(ActorKey).(entity.Actor)
	return actor, ok
}

// GetUserIDFromContext extracts user ID from context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	actor, ok := GetActorFromContext(ctx)
	return actor.ID, ok
}

// GetRoleIDFromContext extracts role ID from context
func GetRoleIDFromContext(ctx context.Context) (int, bool) {
	actor, ok := GetActorFromContext(ctx)
	return actor.RoleID, ok
}
