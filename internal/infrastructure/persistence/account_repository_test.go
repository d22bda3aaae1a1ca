package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/entitlements/internal/domain/entitlement"
	"github.com/pharmalink/entitlements/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// AccountModelSQLite is a SQLite-compatible version of AccountModel for testing
type AccountModelSQLite struct {
	ID           string `gorm:"primaryKey"`
	Tier         string `gorm:"not null;default:'free'"`
	PeriodAnchor time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (AccountModelSQLite) TableName() string {
	return "entitlement_accounts"
}

func setupAccountTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&AccountModelSQLite{})
	require.NoError(t, err)

	return db
}

func TestGormAccountDirectory(t *testing.T) {
	db := setupAccountTestDB(t)
	repo := NewGormAccountDirectory(db)
	ctx := context.Background()

	anchor := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	t.Run("saves and finds an account", func(t *testing.T) {
		account := &entitlement.Account{
			ID:           uuid.New(),
			Tier:         entitlement.TierStarter,
			PeriodAnchor: anchor,
		}

		require.NoError(t, repo.Save(ctx, account))

		found, err := repo.FindByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, account.ID, found.ID)
		assert.Equal(t, entitlement.TierStarter, found.Tier)
		assert.True(t, found.PeriodAnchor.Equal(anchor))
	})

	t.Run("save upserts on tier change", func(t *testing.T) {
		account := &entitlement.Account{
			ID:           uuid.New(),
			Tier:         entitlement.TierFree,
			PeriodAnchor: anchor,
		}
		require.NoError(t, repo.Save(ctx, account))

		account.Tier = entitlement.TierPro
		require.NoError(t, repo.Save(ctx, account))

		found, err := repo.FindByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, entitlement.TierPro, found.Tier)
	})

	t.Run("returns ErrNotFound for unknown account", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("rejects nil account ID", func(t *testing.T) {
		err := repo.Save(ctx, &entitlement.Account{Tier: entitlement.TierFree, PeriodAnchor: anchor})
		require.Error(t, err)
	})

	t.Run("rejects invalid tier", func(t *testing.T) {
		err := repo.Save(ctx, &entitlement.Account{ID: uuid.New(), Tier: "platinum", PeriodAnchor: anchor})
		assert.ErrorIs(t, err, shared.ErrUnknownTier)
	})
}
