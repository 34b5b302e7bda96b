package quota

import "context"

// System defines the quota ledger operations.
type System interface {
	// CheckAndReserve admits one conversion for the owner, lazily
	// creating the quota record. Paid tiers are always admitted. Free
	// tiers are admitted and their used count incremented atomically
	// while under the allotment; otherwise ErrExceeded is returned and
	// nothing changes. The check and increment are one atomic operation
	// with respect to concurrent calls for the same owner.
	CheckAndReserve(ctx context.Context, ownerID string) (*Record, error)

	// Release returns a reserved slot, floored at zero. Used only when
	// a reserved job fails validation before any extraction attempt.
	Release(ctx context.Context, ownerID string) error

	// Get returns the owner's quota record, lazily creating it.
	Get(ctx context.Context, ownerID string) (*Record, error)

	// SetTier applies a tier change from the billing collaborator.
	SetTier(ctx context.Context, ownerID string, tier Tier) (*Record, error)
}
