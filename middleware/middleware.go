// Package middleware provides HTTP authorization middleware for Gatehouse.
package middleware

import (
	"encoding/json"

	"github.com/xraph/forge"

	"github.com/pawdesk/gatehouse"
	"github.com/pawdesk/gatehouse/catalog"
)

// Actor is the caller identity a check runs against: the active portal
// role plus an optional user for override resolution.
type Actor struct {
	Role   catalog.Role
	UserID string
}

// ActorResolver extracts the caller's active role and user from a request.
type ActorResolver func(ctx forge.Context) Actor

// UserActor resolves the user ID from the request context (Authsome user)
// and pins the given role. Portals that keep the active role server-side
// supply their own resolver instead.
func UserActor(r catalog.Role) ActorResolver {
	return func(ctx forge.Context) Actor {
		return Actor{Role: r, UserID: forge.UserIDFromContext(ctx.Context())}
	}
}

// RequireRoute guards the request path through the engine's route table.
// Paths without a matching rule are denied. The deny response is a 403
// JSON body, never a redirect.
func RequireRoute(eng *gatehouse.Engine, resolve ActorResolver) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			actor := resolve(ctx)
			allowed, err := eng.CanAccessRoute(ctx.Context(), actor.Role, ctx.Request().URL.Path, actor.UserID)
			if err != nil || !allowed {
				return denyResponse(ctx)
			}
			return next(ctx)
		}
	}
}

// RequirePermission allows the request only if the actor holds ALL of the
// given permissions.
func RequirePermission(eng *gatehouse.Engine, resolve ActorResolver, perms ...catalog.Permission) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			actor := resolve(ctx)
			for _, p := range perms {
				err := eng.Enforce(ctx.Context(), &gatehouse.CheckRequest{
					Role:       actor.Role,
					UserID:     actor.UserID,
					Permission: p,
				})
				if err != nil {
					return denyResponse(ctx)
				}
			}
			return next(ctx)
		}
	}
}

// RequireAnyPermission allows the request if the actor holds ANY of the
// given permissions.
func RequireAnyPermission(eng *gatehouse.Engine, resolve ActorResolver, perms ...catalog.Permission) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			actor := resolve(ctx)
			for _, p := range perms {
				result, err := eng.Check(ctx.Context(), &gatehouse.CheckRequest{
					Role:       actor.Role,
					UserID:     actor.UserID,
					Permission: p,
				})
				if err == nil && result.Allowed {
					return next(ctx)
				}
			}
			return denyResponse(ctx)
		}
	}
}

func denyResponse(ctx forge.Context) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(403)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": "access denied"})
}
