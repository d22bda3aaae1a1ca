package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/pharmalink/entitlements/internal/domain/entitlement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockUsageLedger creates a ledger with a mocked DB so the generated SQL
// can be asserted against. The limit check must live inside the UPDATE, not
// in a prior SELECT, so two racing commits cannot both pass it.
func newMockUsageLedger(t *testing.T) (*GormUsageLedger, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormUsageLedger(gormDB), mock, mockDB
}

func TestTryIncrement_ConditionalUpdate(t *testing.T) {
	accountID := uuid.New()

	t.Run("admits when the guarded update hits a row", func(t *testing.T) {
		ledger, mock, mockDB := newMockUsageLedger(t)
		defer mockDB.Close()

		mock.ExpectExec(`INSERT INTO "usage_counters" .* ON CONFLICT .* DO NOTHING`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "usage_counters" SET .*used.*used \+ 1.*WHERE .*used < \$`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := ledger.TryIncrement(context.Background(), accountID, entitlement.FeaturePosts, "2024-06-10", 3)

		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("denies when the guard filters the row out", func(t *testing.T) {
		ledger, mock, mockDB := newMockUsageLedger(t)
		defer mockDB.Close()

		// Counter already exists, insert is a no-op
		mock.ExpectExec(`INSERT INTO "usage_counters" .* ON CONFLICT .* DO NOTHING`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		// used already reached max, so the WHERE clause matches nothing
		mock.ExpectExec(`UPDATE "usage_counters" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := ledger.TryIncrement(context.Background(), accountID, entitlement.FeaturePosts, "2024-06-10", 3)

		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero max short-circuits without touching the database", func(t *testing.T) {
		ledger, mock, mockDB := newMockUsageLedger(t)
		defer mockDB.Close()

		ok, err := ledger.TryIncrement(context.Background(), accountID, entitlement.FeatureVideos, "2024-06-10", 0)

		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates update errors", func(t *testing.T) {
		ledger, mock, mockDB := newMockUsageLedger(t)
		defer mockDB.Close()

		mock.ExpectExec(`INSERT INTO "usage_counters"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "usage_counters" SET`).
			WillReturnError(assert.AnError)

		_, err := ledger.TryIncrement(context.Background(), accountID, entitlement.FeaturePosts, "2024-06-10", 3)

		require.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
