package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/entitlements/internal/domain/entitlement"
	"github.com/pharmalink/entitlements/internal/domain/shared"
	"gorm.io/gorm"
)

// AccountModel is the GORM model for the entitlement view of an account
type AccountModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Tier         string    `gorm:"type:varchar(20);not null;default:'free'"`
	PeriodAnchor time.Time `gorm:"not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (AccountModel) TableName() string {
	return "entitlement_accounts"
}

// ToEntity converts the model to a domain entity. An invalid stored tier is
// carried through as-is; catalog lookups fail closed on it downstream.
func (m *AccountModel) ToEntity() *entitlement.Account {
	return &entitlement.Account{
		ID:           m.ID,
		Tier:         entitlement.Tier(m.Tier),
		PeriodAnchor: m.PeriodAnchor,
	}
}

// GormAccountDirectory implements entitlement.AccountDirectory on PostgreSQL
type GormAccountDirectory struct {
	db *gorm.DB
}

// NewGormAccountDirectory creates a new account directory backed by GORM
func NewGormAccountDirectory(db *gorm.DB) *GormAccountDirectory {
	return &GormAccountDirectory{db: db}
}

// FindByID retrieves the entitlement view of an account
func (r *GormAccountDirectory) FindByID(ctx context.Context, id uuid.UUID) (*entitlement.Account, error) {
	var model AccountModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// Save persists the entitlement view of an account. The subscription
// collaborator calls this on signup and on every tier change.
func (r *GormAccountDirectory) Save(ctx context.Context, account *entitlement.Account) error {
	if account.ID == uuid.Nil {
		return shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if !account.Tier.IsValid() {
		return shared.ErrUnknownTier
	}

	model := &AccountModel{
		ID:           account.ID,
		Tier:         string(account.Tier),
		PeriodAnchor: account.PeriodAnchor,
	}
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormAccountDirectory implements the interface
var _ entitlement.AccountDirectory = (*GormAccountDirectory)(nil)
