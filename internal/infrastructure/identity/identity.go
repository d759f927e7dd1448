// Package identity establishes the acting user from request headers.
package identity

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/garyjia/claim-lifecycle/internal/application/port"
	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

type contextKey struct{}

// WithActor returns a context carrying actor
func WithActor(ctx context.Context, actor entity.Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, actor)
}

// ActorFromContext returns the actor stored by WithActor
func ActorFromContext(ctx context.Context) (entity.Actor, bool) {
	actor, ok := ctx.Value(contextKey{}).(entity.Actor)
	return actor, ok
}

// FromHeaders parses the actor headers. Missing or malformed values return port.ErrIdentityUnresolved.
func FromHeaders(h http.Header) (entity.Actor, error) {
	rawID := strings.TrimSpace(h.Get(HeaderActorID))
	rawRole := strings.TrimSpace(h.Get(HeaderActorRole))
	if rawID == "" || rawRole == "" {
		return entity.Actor{}, port.ErrIdentityUnresolved
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return entity.Actor{}, fmt.Errorf("%w: bad %s %q", port.ErrIdentityUnresolved, HeaderActorID, rawID)
	}

	role, ok := parseRole(rawRole)
	if !ok {
		return entity.Actor{}, fmt.Errorf("%w: unknown role %q", port.ErrIdentityUnresolved, rawRole)
	}
	return entity.Actor{ID: id, Role: role}, nil
}

// roles are matched case-insensitively
func parseRole(s string) (entity.Role, bool) {
	for _, r := range []entity.Role{
		entity.RoleSubmitter,
		entity.RoleCoordinator,
		entity.RoleManager,
		entity.RoleHR,
		entity.RoleSystem,
	} {
		if strings.EqualFold(s, string(r)) {
			return r, true
		}
	}
	return "", false
}

// ContextResolver implements port.IdentityResolver over the request context.
// When the context carries no actor, the optional fallback (the automation's own
// service identity) is used; without one, resolution fails.
type ContextResolver struct {
	fallback *entity.Actor
}

// NewContextResolver creates a resolver. A fallbackID of zero disables the fallback.
func NewContextResolver(fallbackID int64) *ContextResolver {
	r := &ContextResolver{}
	if fallbackID > 0 {
		r.fallback = &entity.Actor{ID: fallbackID, Role: entity.RoleSystem}
	}
	return r
}

func (r *ContextResolver) Resolve(ctx context.Context) (entity.Actor, error) {
	if actor, ok := ActorFromContext(ctx); ok && actor.Resolved() {
		return actor, nil
	}
	if r.fallback != nil {
		return *r.fallback, nil
	}
	return entity.Actor{}, port.ErrIdentityUnresolved
}

// Verify interface compliance
var _ port.IdentityResolver = (*ContextResolver)(nil)
