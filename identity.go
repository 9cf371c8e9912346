package filevault

import (
	"context"
	"fmt"
)

type ownerKey struct{}

// WithOwner returns a context carrying the caller's trusted owner id.
// It is set by the authentication layer only, never from request data.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerKey{}, ownerID)
}

// OwnerFromContext returns the trusted owner id placed by WithOwner.
// It fails with ErrAuthentication when the id is absent or malformed.
func OwnerFromContext(ctx context.Context) (string, error) {
	ownerID, ok := ctx.Value(ownerKey{}).(string)
	if !ok || ownerID == "" {
		return "", fmt.Errorf("owner from context: %w: missing owner claim", ErrAuthentication)
	}

	if !IsValidOwnerID(ownerID) {
		return "", fmt.Errorf("owner from context: %w: malformed owner claim", ErrAuthentication)
	}

	return ownerID, nil
}
