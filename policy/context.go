package policy

import (
	"context"

	"github.com/acrepoint/sales-ledger/ledger"
)

// =============================================================================
// ACTOR CONTEXT - Explicit identity threading, no ambient globals
// =============================================================================

// Actor is the already-trusted identity the session provider supplies.
// This core never authenticates; it only authorizes.
type Actor struct {
	UserID ledger.UserID
	Role   Role
}

type actorKey struct{}

// WithActor returns a context carrying the acting identity.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom extracts the acting identity, reporting whether one is set.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}
