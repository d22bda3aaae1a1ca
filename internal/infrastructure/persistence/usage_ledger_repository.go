package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/entitlements/internal/domain/entitlement"
	"github.com/pharmalink/entitlements/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UsageCounterModel is the GORM model for usage counters
type UsageCounterModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	AccountID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_usage_counters_scope,priority:1"`
	FeatureKey string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_usage_counters_scope,priority:2"`
	PeriodKey  string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_usage_counters_scope,priority:3"`
	Used       int64     `gorm:"not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (UsageCounterModel) TableName() string {
	return "usage_counters"
}

// ToEntity converts the model to a domain entity
func (m *UsageCounterModel) ToEntity() *entitlement.UsageCounter {
	return &entitlement.UsageCounter{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		AccountID:  m.AccountID,
		FeatureKey: entitlement.FeatureKey(m.FeatureKey),
		PeriodKey:  m.PeriodKey,
		Used:       m.Used,
	}
}

// GormUsageLedger implements entitlement.UsageLedger on PostgreSQL.
// The limit check lives inside the UPDATE statement so that concurrent
// commits at the boundary serialize on the row; the caller only sees the
// RowsAffected verdict.
type GormUsageLedger struct {
	db *gorm.DB
}

// NewGormUsageLedger creates a new usage ledger backed by GORM
func NewGormUsageLedger(db *gorm.DB) *GormUsageLedger {
	return &GormUsageLedger{db: db}
}

// Used returns the counter value for the period, 0 if no counter exists yet
func (r *GormUsageLedger) Used(ctx context.Context, accountID uuid.UUID, feature entitlement.FeatureKey, periodKey string) (int64, error) {
	var model UsageCounterModel
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Where("feature_key = ?", string(feature)).
		Where("period_key = ?", periodKey).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}
	return model.Used, nil
}

// TryIncrement atomically increments the counter if the result stays within max
func (r *GormUsageLedger) TryIncrement(ctx context.Context, accountID uuid.UUID, feature entitlement.FeatureKey, periodKey string, max int64) (bool, error) {
	if max == 0 {
		// Nothing can ever be admitted; skip the row churn
		return false, nil
	}

	if err := r.ensureCounter(ctx, accountID, feature, periodKey); err != nil {
		return false, err
	}

	result := r.db.WithContext(ctx).
		Model(&UsageCounterModel{}).
		Where("account_id = ?", accountID).
		Where("feature_key = ?", string(feature)).
		Where("period_key = ?", periodKey).
		Where("(? < 0 OR used < ?)", max, max).
		Updates(map[string]interface{}{
			"used":       gorm.Expr("used + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SetCount overwrites the counter with an externally recomputed value
func (r *GormUsageLedger) SetCount(ctx context.Context, accountID uuid.UUID, feature entitlement.FeatureKey, periodKey string, value int64) error {
	counter, err := entitlement.NewUsageCounter(accountID, feature, periodKey)
	if err != nil {
		return err
	}

	model := &UsageCounterModel{
		ID:         counter.ID,
		AccountID:  counter.AccountID,
		FeatureKey: string(counter.FeatureKey),
		PeriodKey:  counter.PeriodKey,
		Used:       value,
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "feature_key"}, {Name: "period_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"used", "updated_at"}),
		}).
		Create(model).Error
}

// FindByAccount returns every counter recorded for an account, newest period first
func (r *GormUsageLedger) FindByAccount(ctx context.Context, accountID uuid.UUID) ([]*entitlement.UsageCounter, error) {
	var models []UsageCounterModel
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("period_key DESC, feature_key ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	counters := make([]*entitlement.UsageCounter, len(models))
	for i := range models {
		counters[i] = models[i].ToEntity()
	}
	return counters, nil
}

// ensureCounter lazily creates the zero row so the conditional UPDATE has a
// target. ON CONFLICT handles the race between two first-time commits.
func (r *GormUsageLedger) ensureCounter(ctx context.Context, accountID uuid.UUID, feature entitlement.FeatureKey, periodKey string) error {
	counter, err := entitlement.NewUsageCounter(accountID, feature, periodKey)
	if err != nil {
		return err
	}

	model := &UsageCounterModel{
		ID:         counter.ID,
		AccountID:  counter.AccountID,
		FeatureKey: string(counter.FeatureKey),
		PeriodKey:  counter.PeriodKey,
		Used:       0,
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "feature_key"}, {Name: "period_key"}},
			DoNothing: true,
		}).
		Create(model).Error
}

// Ensure GormUsageLedger implements the interface
var _ entitlement.UsageLedger = (*GormUsageLedger)(nil)
