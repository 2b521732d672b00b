package auth

import (
	"context"

	"github.com/af-corp/imagerouter/internal/types"
)

type contextKey string

const identityContextKey contextKey = "imagerouter_identity"

// Identity is the authenticated caller plus the per-key limits.
type Identity struct {
	types.Caller
	RPMLimit           *int
	DailyAssistedQuota *int
}

func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(*Identity)
	return id, ok
}
