package auth

import (
	"context"
	"errors"
	"fmt"

	"karavanCanteen/models"
)

// ErrUnknownUser is returned when a valid token names a user that does not exist.
var ErrUnknownUser = errors.New("unknown user")

// UserLookup resolves a principal to its stored account.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

type actorKey struct{}

// WithActor stores the resolved actor in context.
func WithActor(ctx context.Context, a models.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFromContext returns the actor resolved for this request, if any.
func ActorFromContext(ctx context.Context) (models.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(models.Actor)
	return a, ok
}

// ResolveActor loads the user named by p and returns its Actor. The role always comes
// from the users table so a forged token cannot claim staff rights.
func ResolveActor(ctx context.Context, users UserLookup, p *Principal) (models.Actor, error) {
	if p == nil {
		return models.Actor{}, errors.New("missing principal")
	}
	u, err := users.GetByUsername(ctx, p.Name)
	if err != nil {
		return models.Actor{}, fmt.Errorf("get user: %w", err)
	}
	if u == nil || !u.Role.Valid() {
		return models.Actor{}, ErrUnknownUser
	}
	return models.ActorOf(u), nil
}
