package entitlement

import (
	"github.com/google/uuid"
	"github.com/pharmalink/entitlements/internal/domain/shared"
)

// UsageCounter is the durable per-account, per-feature, per-period counter.
// Rows are created lazily on first increment, read on every evaluation, and
// retained after rollover for audit; evaluation only ever reads the counter
// matching the current period key.
type UsageCounter struct {
	shared.BaseEntity
	AccountID  uuid.UUID
	FeatureKey FeatureKey
	PeriodKey  string
	Used       int64
}

// NewUsageCounter creates a fresh counter for a period
func NewUsageCounter(accountID uuid.UUID, feature FeatureKey, periodKey string) (*UsageCounter, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if !feature.IsValid() {
		return nil, shared.ErrUnknownFeature
	}
	if periodKey == "" {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period key cannot be empty")
	}
	return &UsageCounter{
		BaseEntity: shared.NewBaseEntity(),
		AccountID:  accountID,
		FeatureKey: feature,
		PeriodKey:  periodKey,
	}, nil
}
