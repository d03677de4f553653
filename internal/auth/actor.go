package auth

import (
	"context"
	"fmt"
	"strings"
)

// Role is the coarse permission level carried in a session token.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps a claim value to a Role. A missing role means a plain user.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Actor is the caller of an operation. The zero value is the anonymous actor.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// Anonymous is the actor for requests without a session.
var Anonymous = Actor{}

// Authenticated reports whether the actor presented a valid session.
func (a Actor) Authenticated() bool {
	return a.ID != ""
}

// IsAdmin reports whether the actor is an authenticated admin.
func (a Actor) IsAdmin() bool {
	return a.Authenticated() && a.Role == RoleAdmin
}

func (a Actor) String() string {
	if !a.Authenticated() {
		return "anonymous"
	}
	return string(a.Role) + ":" + a.ID
}

type ctxKey struct{}

// WithActor attaches the caller to ctx so storage adapters can record who
// performed a write.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// ActorFromContext returns the caller attached by WithActor, or Anonymous.
func ActorFromContext(ctx context.Context) Actor {
	a, _ := ctx.Value(ctxKey{}).(Actor)
	return a
}
