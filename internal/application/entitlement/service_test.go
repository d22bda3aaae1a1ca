package entitlement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/entitlements/internal/domain/entitlement"
	"github.com/pharmalink/entitlements/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Mock implementations

type mockUsageLedger struct {
	mock.Mock
}

func (m *mockUsageLedger) Used(ctx context.Context, accountID uuid.UUID, feature entitlement.FeatureKey, periodKey string) (int64, error) {
	args := m.Called(ctx, accountID, feature, periodKey)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUsageLedger) TryIncrement(ctx context.Context, accountID uuid.UUID, feature entitlement.FeatureKey, periodKey string, max int64) (bool, error) {
	args := m.Called(ctx, accountID, feature, periodKey, max)
	return args.Bool(0), args.Error(1)
}

func (m *mockUsageLedger) SetCount(ctx context.Context, accountID uuid.UUID, feature entitlement.FeatureKey, periodKey string, value int64) error {
	args := m.Called(ctx, accountID, feature, periodKey, value)
	return args.Error(0)
}

type mockAccountDirectory struct {
	mock.Mock
}

func (m *mockAccountDirectory) FindByID(ctx context.Context, id uuid.UUID) (*entitlement.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entitlement.Account), args.Error(1)
}

// Test fixture

var testNow = time.Date(2024, time.June, 20, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *mockUsageLedger, *mockAccountDirectory) {
	t.Helper()
	ledger := new(mockUsageLedger)
	accounts := new(mockAccountDirectory)
	svc := NewService(entitlement.DefaultCatalog(), ledger, accounts, zap.NewNop(), ServiceConfig{
		Clock: func() time.Time { return testNow },
	})
	return svc, ledger, accounts
}

func stubAccount(accounts *mockAccountDirectory, tier entitlement.Tier) *entitlement.Account {
	account := &entitlement.Account{
		ID:           uuid.New(),
		Tier:         tier,
		PeriodAnchor: time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC),
	}
	accounts.On("FindByID", mock.Anything, account.ID).Return(account, nil)
	return account
}

// monthlyKey is the active period key for the stubbed anchor at testNow
const monthlyKey = "2024-06-10"

func TestCanPublishPost(t *testing.T) {
	t.Run("free tier at the limit is denied", func(t *testing.T) {
		svc, ledger, accounts := newTestService(t)
		account := stubAccount(accounts, entitlement.TierFree)
		ledger.On("Used", mock.Anything, account.ID, entitlement.FeaturePosts, monthlyKey).Return(int64(3), nil)

		decision, err := svc.CanPublishPost(context.Background(), account.ID)

		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, int64(3), decision.Used)
		assert.Equal(t, int64(3), decision.Max)
	})

	t.Run("free tier below the limit is allowed", func(t *testing.T) {
		svc, ledger, accounts := newTestService(t)
		account := stubAccount(accounts, entitlement.TierFree)
		ledger.On("Used", mock.Anything, account.ID, entitlement.FeaturePosts, monthlyKey).Return(int64(2), nil)

		decision, err := svc.CanPublishPost(context.Background(), account.ID)

		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, int64(1), decision.Remaining())
	})

	t.Run("repeated checks never mutate the ledger", func(t *testing.T) {
		svc, ledger, accounts := newTestService(t)
		account := stubAccount(accounts, entitlement.TierFree)
		ledger.On("Used", mock.Anything, account.ID, entitlement.FeaturePosts, monthlyKey).Return(int64(1), nil)

		for i := 0; i < 5; i++ {
			_, err := svc.CanPublishPost(context.Background(), account.ID)
			require.NoError(t, err)
		}

		ledger.AssertNumberOfCalls(t, "Used", 5)
		ledger.AssertNotCalled(t, "TryIncrement", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		ledger.AssertNotCalled(t, "SetCount", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown account fails", func(t *testing.T) {
		svc, _, accounts := newTestService(t)
		id := uuid.New()
		accounts.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

		_, err := svc.CanPublishPost(context.Background(), id)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "Account not found")
	})

	t.Run("unconfigured tier fails closed", func(t *testing.T) {
		svc, _, accounts := newTestService(t)
		account := &entitlement.Account{ID: uuid.New(), Tier: entitlement.Tier("legacy"), PeriodAnchor: testNow}
		accounts.On("FindByID", mock.Anything, account.ID).Return(account, nil)

		_, err := svc.CanPublishPost(context.Background(), account.ID)

		assert.ErrorIs(t, err, shared.ErrUnknownTier)
	})
}

func TestCanPublishVideo(t *testing.T) {
	t.Run("pro tier is unlimited regardless of usage", func(t *testing.T) {
		svc, ledger, accounts := newTestService(t)
		account := stubAccount(accounts, entitlement.TierPro)
		ledger.On("Used", mock.Anything, account.ID, entitlement.FeatureVideos, monthlyKey).Return(int64(9999), nil)

		decision, err := svc.CanPublishVideo(context.Background(), account.ID)

		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, entitlement.Unlimited, decision.Max)
	})

	t.Run("free tier has no video allotment", func(t *testing.T) {
		svc, ledger, accounts := newTestService(t)
		account := stubAccount(accounts, entitlement.TierFree)
		ledger.On("Used", mock.Anything, account.ID, entitlement.FeatureVideos, monthlyKey).Return(int64(0), nil)

		decision, err := svc.CanPublishVideo(context.Background(), account.ID)

		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.True(t, decision.IncludedInPlan) // hard block, no paid fallback
	})
}

func TestIncrementPostsPublished(t *testing.T) {
	t.Run("commits against the monthly counter", func(t *testing.T) {
		svc, ledger, accounts := newTestService(t)
		account := stubAccount(accounts, entitlement.TierStarter)
		ledger.On("TryIncrement", mock.Anything, account.ID, entitlement.FeaturePosts, monthlyKey, int64(10)).Return(true, nil)

		ok, err := svc.IncrementPostsPublished(context.Background(), account.ID)

		require.NoError(t, err)
		assert.True(t, ok)
		ledger.AssertExpectations(t)
	})

	t.Run("reports a lost race as false, not an error", func(t *testing.T) {
		svc, ledger, accounts := newTestService(t)
		account := stubAccount(accounts, entitlement.TierFree)
		ledger.On("TryIncrement", mock.Anything, account.ID, entitlement.FeaturePosts, monthlyKey, int64(3)).Return(false, nil)

		ok, err := svc.IncrementPostsPublished(context.Background(), account.ID)

		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestPeriodRollover(t *testing.T) {
	t.Run("usage is read from the new period after the anchor day", func(t *testing.T) {
		ledger := new(mockUsageLedger)
		accounts := new(mockAccountDirectory)
		now := time.Date(2024, time.June, 5, 8, 0, 0, 0, time.UTC)
		svc := NewService(entitlement.DefaultCatalog(), ledger, accounts, zap.NewNop(), ServiceConfig{
			Clock: func() time.Time { return now },
		})
		account := stubAccount(accounts, entitlement.TierFree)

		// Before rollover: prior cycle key, counter at max
		ledger.On("Used", mock.Anything, account.ID, entitlement.FeaturePosts, "2024-05-10").Return(int64(3), nil).Once()
		decision, err := svc.CanPublishPost(context.Background(), account.ID)
		require.NoError(t, err)
		assert.False(t, decision.Allowed)

		// Cross the anchor day: a different key is read and starts at zero
		now = time.Date(2024, time.June, 10, 8, 0, 0, 0, time.UTC)
		ledger.On("Used", mock.Anything, account.ID, entitlement.FeaturePosts, "2024-06-10").Return(int64(0), nil).Once()
		decision, err = svc.CanPublishPost(context.Background(), account.ID)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, int64(0), decision.Used)

		ledger.AssertExpectations(t)
	})
}

func TestSetPhotosCount(t *testing.T) {
	t.Run("overwrites the lifetime counter", func(t *testing.T) {
		svc, ledger, accounts := newTestService(t)
		account := stubAccount(accounts, entitlement.TierStarter)
		ledger.On("SetCount", mock.Anything, account.ID, entitlement.FeaturePhotos, entitlement.LifetimePeriodKey, int64(7)).Return(nil)

		err := svc.SetPhotosCount(context.Background(), account.ID, 7)

		require.NoError(t, err)
		ledger.AssertExpectations(t)
	})

	t.Run("accepts a recount above the cap", func(t *testing.T) {
		svc, ledger, accounts := newTestService(t)
		account := stubAccount(accounts, entitlement.TierFree)
		ledger.On("SetCount", mock.Anything, account.ID, entitlement.FeaturePhotos, entitlement.LifetimePeriodKey, int64(9)).Return(nil)

		err := svc.SetPhotosCount(context.Background(), account.ID, 9)

		require.NoError(t, err)
	})

	t.Run("rejects negative counts", func(t *testing.T) {
		svc, ledger, _ := newTestService(t)

		err := svc.SetPhotosCount(context.Background(), uuid.New(), -1)

		require.Error(t, err)
		ledger.AssertNotCalled(t, "SetCount", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestQuoteMissionContact(t *testing.T) {
	t.Run("included while the allotment lasts", func(t *testing.T) {
		svc, ledger, accounts := newTestService(t)
		account := stubAccount(accounts, entitlement.TierStarter)
		ledger.On("Used", mock.Anything, account.ID, entitlement.FeatureMissionContact, monthlyKey).Return(int64(2), nil)

		quote, err := svc.QuoteMissionContact(context.Background(), account.ID, 10)

		require.NoError(t, err)
		assert.True(t, quote.IncludedInSubscription)
		assert.True(t, quote.Amount.IsZero())
		assert.Equal(t, int64(3), quote.ContactsRemaining)
		assert.Equal(t, int64(5), quote.ContactsMax)
	})

	t.Run("exhausted allotment falls back to the fee schedule", func(t *testing.T) {
		svc, ledger, accounts := newTestService(t)
		account := stubAccount(accounts, entitlement.TierStarter)
		ledger.On("Used", mock.Anything, account.ID, entitlement.FeatureMissionContact, monthlyKey).Return(int64(5), nil)

		quote, err := svc.QuoteMissionContact(context.Background(), account.ID, 10)

		require.NoError(t, err)
		assert.False(t, quote.IncludedInSubscription)
		assert.True(t, quote.Amount.Equal(eur("34.90")), "got %s", quote.Amount)
		assert.Equal(t, int64(0), quote.ContactsRemaining)
	})

	t.Run("free tier is always pay-per-use", func(t *testing.T) {
		svc, ledger, accounts := newTestService(t)
		account := stubAccount(accounts, entitlement.TierFree)
		ledger.On("Used", mock.Anything, account.ID, entitlement.FeatureMissionContact, monthlyKey).Return(int64(0), nil)

		quote, err := svc.QuoteMissionContact(context.Background(), account.ID, 5)

		require.NoError(t, err)
		assert.False(t, quote.IncludedInSubscription)
		assert.True(t, quote.Amount.Equal(eur("29.90")), "got %s", quote.Amount)
	})

	t.Run("premium is always included", func(t *testing.T) {
		svc, ledger, accounts := newTestService(t)
		account := stubAccount(accounts, entitlement.TierPremium)
		ledger.On("Used", mock.Anything, account.ID, entitlement.FeatureMissionContact, monthlyKey).Return(int64(500), nil)

		quote, err := svc.QuoteMissionContact(context.Background(), account.ID, 45)

		require.NoError(t, err)
		assert.True(t, quote.IncludedInSubscription)
		assert.Equal(t, entitlement.Unlimited, quote.ContactsRemaining)
	})

	t.Run("rejects non-positive duration", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, err := svc.QuoteMissionContact(context.Background(), uuid.New(), 0)

		assert.ErrorIs(t, err, shared.ErrInvalidDuration)
	})
}

func TestConfirmMissionContact(t *testing.T) {
	t.Run("included contact commits the counter", func(t *testing.T) {
		svc, ledger, accounts := newTestService(t)
		account := stubAccount(accounts, entitlement.TierStarter)
		ledger.On("Used", mock.Anything, account.ID, entitlement.FeatureMissionContact, monthlyKey).Return(int64(4), nil)
		ledger.On("TryIncrement", mock.Anything, account.ID, entitlement.FeatureMissionContact, monthlyKey, int64(5)).Return(true, nil)

		result, err := svc.ConfirmMissionContact(context.Background(), account.ID, 10)

		require.NoError(t, err)
		assert.True(t, result.Committed)
		assert.True(t, result.Quote.IncludedInSubscription)
		assert.True(t, result.Quote.Amount.IsZero())
		ledger.AssertExpectations(t)
	})

	t.Run("losing the race returns a fresh paid quote, uncommitted", func(t *testing.T) {
		svc, ledger, accounts := newTestService(t)
		account := stubAccount(accounts, entitlement.TierStarter)
		// First read sees the last included slot; a concurrent confirm takes
		// it before TryIncrement runs; the requote reads the exhausted counter.
		ledger.On("Used", mock.Anything, account.ID, entitlement.FeatureMissionContact, monthlyKey).Return(int64(4), nil).Once()
		ledger.On("TryIncrement", mock.Anything, account.ID, entitlement.FeatureMissionContact, monthlyKey, int64(5)).Return(false, nil)
		ledger.On("Used", mock.Anything, account.ID, entitlement.FeatureMissionContact, monthlyKey).Return(int64(5), nil).Once()

		result, err := svc.ConfirmMissionContact(context.Background(), account.ID, 10)

		require.NoError(t, err)
		assert.False(t, result.Committed)
		assert.False(t, result.Quote.IncludedInSubscription)
		assert.True(t, result.Quote.Amount.Equal(eur("34.90")), "got %s", result.Quote.Amount)
	})

	t.Run("pay-per-use contact confirms without touching the ledger", func(t *testing.T) {
		svc, ledger, accounts := newTestService(t)
		account := stubAccount(accounts, entitlement.TierFree)
		ledger.On("Used", mock.Anything, account.ID, entitlement.FeatureMissionContact, monthlyKey).Return(int64(0), nil)

		result, err := svc.ConfirmMissionContact(context.Background(), account.ID, 31)

		require.NoError(t, err)
		assert.True(t, result.Committed)
		assert.False(t, result.Quote.IncludedInSubscription)
		assert.True(t, result.Quote.Amount.Equal(eur("79.90")), "got %s", result.Quote.Amount)
		ledger.AssertNotCalled(t, "TryIncrement", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects non-positive duration", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, err := svc.ConfirmMissionContact(context.Background(), uuid.New(), -3)

		assert.ErrorIs(t, err, shared.ErrInvalidDuration)
	})
}

func TestUsageSummary(t *testing.T) {
	t.Run("reports every feature with period keys", func(t *testing.T) {
		svc, ledger, accounts := newTestService(t)
		account := stubAccount(accounts, entitlement.TierPro)
		for _, feature := range entitlement.AllFeatureKeys() {
			key := monthlyKey
			if feature == entitlement.FeaturePhotos {
				key = entitlement.LifetimePeriodKey
			}
			ledger.On("Used", mock.Anything, account.ID, feature, key).Return(int64(1), nil)
		}

		summary, err := svc.UsageSummary(context.Background(), account.ID)

		require.NoError(t, err)
		assert.Equal(t, "pro", summary.Tier)
		assert.Equal(t, "Pro", summary.TierName)
		assert.Len(t, summary.Features, len(entitlement.AllFeatureKeys()))

		photos := summary.Features["photos"]
		assert.Equal(t, entitlement.LifetimePeriodKey, photos.PeriodKey)
		assert.Equal(t, int64(25), photos.Max)

		posts := summary.Features["posts"]
		assert.Equal(t, monthlyKey, posts.PeriodKey)
		assert.Equal(t, entitlement.Unlimited, posts.Max)
	})
}

// eur mirrors the catalog's decimal literal helper for assertions
func eur(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
