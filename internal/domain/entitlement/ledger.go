package entitlement

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Account is the read-only view of an account this engine needs. The
// identity/subscription collaborator owns the record; only the tier and the
// period anchor are read here.
type Account struct {
	ID           uuid.UUID
	Tier         Tier
	PeriodAnchor time.Time // start of the account's first billing period
}

// AccountDirectory resolves account IDs to their entitlement-relevant view
type AccountDirectory interface {
	// FindByID returns the account, or shared.ErrNotFound
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
}

// UsageLedger is the only mutable state in the engine. TryIncrement is the
// single mutation entry point and the concurrency boundary: implementations
// must make it a linearizable increment-if-below-limit at the storage layer,
// never a read-then-write.
type UsageLedger interface {
	// Used returns the counter value for the period, 0 if no counter exists yet
	Used(ctx context.Context, accountID uuid.UUID, feature FeatureKey, periodKey string) (int64, error)

	// TryIncrement atomically increments the counter only if the
	// post-increment value stays within max (max = -1 means unlimited).
	// Returns false, leaving state unchanged, when the limit would be
	// exceeded.
	TryIncrement(ctx context.Context, accountID uuid.UUID, feature FeatureKey, periodKey string, max int64) (bool, error)

	// SetCount overwrites the counter with an externally recomputed value.
	// Only for counters that are never incremented elsewhere (profile
	// photos, recounted from the authoritative photo list after deletes);
	// mixing SetCount with TryIncrement on one feature double-books.
	SetCount(ctx context.Context, accountID uuid.UUID, feature FeatureKey, periodKey string, value int64) error
}
