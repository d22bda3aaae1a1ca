package entitlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	t.Run("allows below the limit", func(t *testing.T) {
		d := Evaluate(FeaturePosts, Limit{Max: 3, Period: PeriodMonthly}, 2)

		assert.True(t, d.Allowed)
		assert.Equal(t, int64(2), d.Used)
		assert.Equal(t, int64(3), d.Max)
		assert.True(t, d.IncludedInPlan)
		assert.Equal(t, int64(1), d.Remaining())
	})

	t.Run("denies at the limit", func(t *testing.T) {
		d := Evaluate(FeaturePosts, Limit{Max: 3, Period: PeriodMonthly}, 3)

		assert.False(t, d.Allowed)
		assert.Equal(t, int64(3), d.Used)
		assert.Equal(t, int64(3), d.Max)
		assert.Equal(t, int64(0), d.Remaining())
	})

	t.Run("unlimited always allows", func(t *testing.T) {
		d := Evaluate(FeatureVideos, Limit{Max: Unlimited, Period: PeriodMonthly}, 1_000_000)

		assert.True(t, d.Allowed)
		assert.Equal(t, Unlimited, d.Max)
		assert.Equal(t, Unlimited, d.Remaining())
	})

	t.Run("zero limit is a hard block", func(t *testing.T) {
		d := Evaluate(FeatureSponsoredCard, Limit{Max: 0, Period: PeriodMonthly}, 0)

		assert.False(t, d.Allowed)
		assert.True(t, d.IncludedInPlan)
	})

	t.Run("pay-per-use-only feature is not included in plan", func(t *testing.T) {
		d := Evaluate(FeatureMissionContact, Limit{Max: 0, Period: PeriodMonthly, PayPerUseOnly: true}, 0)

		assert.False(t, d.Allowed)
		assert.False(t, d.IncludedInPlan)
	})

	t.Run("remaining never goes negative", func(t *testing.T) {
		// Counter overwritten by an authoritative recount above the cap
		d := Evaluate(FeaturePhotos, Limit{Max: 3, Period: PeriodLifetime}, 5)

		assert.False(t, d.Allowed)
		assert.Equal(t, int64(0), d.Remaining())
	})
}
