package entitlement

import (
	"fmt"

	"github.com/pharmalink/entitlements/internal/domain/shared"
)

// Unlimited marks a limit with no maximum
const Unlimited int64 = -1

// Limit defines the quota for one feature on one tier
type Limit struct {
	Max           int64      // Maximum uses per period (-1 = unlimited)
	Period        PeriodKind // Window over which uses accumulate
	PayPerUseOnly bool       // Feature is never included on this tier, only purchasable per use
}

// IsUnlimited returns true if the limit has no maximum
func (l Limit) IsUnlimited() bool {
	return l.Max == Unlimited
}

// TierDefinition holds the complete entitlement configuration for one tier:
// the per-feature limits and the mission-contact fee schedule.
type TierDefinition struct {
	Tier   Tier
	Limits map[FeatureKey]Limit
	Fees   FeeSchedule
}

// Catalog maps tiers to their definitions. It is immutable after
// construction and safe for concurrent reads.
type Catalog struct {
	tiers map[Tier]TierDefinition
}

// NewCatalog builds a catalog from tier definitions. Every definition must
// cover every feature key; a hole would otherwise surface at evaluation time
// as a misconfigured plan masquerading as "unlimited" or "zero".
func NewCatalog(defs ...TierDefinition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, shared.NewDomainError("INVALID_CATALOG", "Catalog requires at least one tier definition")
	}

	tiers := make(map[Tier]TierDefinition, len(defs))
	for _, def := range defs {
		if !def.Tier.IsValid() {
			return nil, shared.NewDomainError("INVALID_CATALOG", fmt.Sprintf("Unknown tier %q in catalog", def.Tier))
		}
		if _, dup := tiers[def.Tier]; dup {
			return nil, shared.NewDomainError("INVALID_CATALOG", fmt.Sprintf("Duplicate definition for tier %q", def.Tier))
		}
		for _, feature := range AllFeatureKeys() {
			limit, ok := def.Limits[feature]
			if !ok {
				return nil, shared.NewDomainError("INVALID_CATALOG",
					fmt.Sprintf("Tier %q has no limit for feature %q", def.Tier, feature))
			}
			if limit.Max < Unlimited {
				return nil, shared.NewDomainError("INVALID_CATALOG",
					fmt.Sprintf("Tier %q feature %q: limit must be -1 (unlimited) or non-negative", def.Tier, feature))
			}
			if !limit.Period.IsValid() {
				return nil, shared.NewDomainError("INVALID_CATALOG",
					fmt.Sprintf("Tier %q feature %q: invalid period kind %q", def.Tier, feature, limit.Period))
			}
		}
		if err := def.Fees.Validate(); err != nil {
			return nil, fmt.Errorf("tier %q fee schedule: %w", def.Tier, err)
		}
		tiers[def.Tier] = def
	}

	return &Catalog{tiers: tiers}, nil
}

// MustCatalog builds a catalog and panics on error. It is intended for the
// compiled-in default catalog, where a construction error is a programming
// defect caught at startup.
func MustCatalog(defs ...TierDefinition) *Catalog {
	c, err := NewCatalog(defs...)
	if err != nil {
		panic(err)
	}
	return c
}

// LimitFor returns the limit for a tier and feature. Unknown tiers and
// features fail with typed configuration errors, never a silent default.
func (c *Catalog) LimitFor(tier Tier, feature FeatureKey) (Limit, error) {
	def, ok := c.tiers[tier]
	if !ok {
		return Limit{}, shared.ErrUnknownTier
	}
	limit, ok := def.Limits[feature]
	if !ok {
		return Limit{}, shared.ErrUnknownFeature
	}
	return limit, nil
}

// FeeScheduleFor returns the mission-contact fee schedule for a tier
func (c *Catalog) FeeScheduleFor(tier Tier) (FeeSchedule, error) {
	def, ok := c.tiers[tier]
	if !ok {
		return FeeSchedule{}, shared.ErrUnknownTier
	}
	return def.Fees, nil
}

// Tiers returns all tiers defined in this catalog
func (c *Catalog) Tiers() []Tier {
	tiers := make([]Tier, 0, len(c.tiers))
	for _, t := range AllTiers() {
		if _, ok := c.tiers[t]; ok {
			tiers = append(tiers, t)
		}
	}
	return tiers
}

// DefaultCatalog returns the built-in tier catalog for the marketplace.
// Photo limits are lifetime caps recounted from the authoritative photo
// list; everything else accumulates per billing month.
func DefaultCatalog() *Catalog {
	return MustCatalog(
		TierDefinition{
			Tier: TierFree,
			Limits: map[FeatureKey]Limit{
				FeaturePosts:          {Max: 3, Period: PeriodMonthly},
				FeatureVideos:         {Max: 0, Period: PeriodMonthly},
				FeaturePhotos:         {Max: 3, Period: PeriodLifetime},
				FeatureSponsoredWeek:  {Max: 0, Period: PeriodMonthly},
				FeatureSponsoredCard:  {Max: 0, Period: PeriodMonthly},
				FeatureMissionContact: {Max: 0, Period: PeriodMonthly, PayPerUseOnly: true},
			},
			Fees: MustFeeSchedule(EUR,
				[]FeeBracket{{UpToDays: 7, Amount: eur("29.90")}, {UpToDays: 30, Amount: eur("49.90")}},
				eur("79.90")),
		},
		TierDefinition{
			Tier: TierStarter,
			Limits: map[FeatureKey]Limit{
				FeaturePosts:          {Max: 10, Period: PeriodMonthly},
				FeatureVideos:         {Max: 1, Period: PeriodMonthly},
				FeaturePhotos:         {Max: 10, Period: PeriodLifetime},
				FeatureSponsoredWeek:  {Max: 0, Period: PeriodMonthly},
				FeatureSponsoredCard:  {Max: 1, Period: PeriodMonthly},
				FeatureMissionContact: {Max: 5, Period: PeriodMonthly},
			},
			Fees: MustFeeSchedule(EUR,
				[]FeeBracket{{UpToDays: 7, Amount: eur("19.90")}, {UpToDays: 30, Amount: eur("34.90")}},
				eur("59.90")),
		},
		TierDefinition{
			Tier: TierPro,
			Limits: map[FeatureKey]Limit{
				FeaturePosts:          {Max: Unlimited, Period: PeriodMonthly},
				FeatureVideos:         {Max: Unlimited, Period: PeriodMonthly},
				FeaturePhotos:         {Max: 25, Period: PeriodLifetime},
				FeatureSponsoredWeek:  {Max: 1, Period: PeriodMonthly},
				FeatureSponsoredCard:  {Max: 4, Period: PeriodMonthly},
				FeatureMissionContact: {Max: 15, Period: PeriodMonthly},
			},
			Fees: MustFeeSchedule(EUR,
				[]FeeBracket{{UpToDays: 7, Amount: eur("14.90")}, {UpToDays: 30, Amount: eur("24.90")}},
				eur("39.90")),
		},
		TierDefinition{
			Tier: TierBusiness,
			Limits: map[FeatureKey]Limit{
				FeaturePosts:          {Max: Unlimited, Period: PeriodMonthly},
				FeatureVideos:         {Max: Unlimited, Period: PeriodMonthly},
				FeaturePhotos:         {Max: 50, Period: PeriodLifetime},
				FeatureSponsoredWeek:  {Max: 2, Period: PeriodMonthly},
				FeatureSponsoredCard:  {Max: 8, Period: PeriodMonthly},
				FeatureMissionContact: {Max: 40, Period: PeriodMonthly},
			},
			Fees: MustFeeSchedule(EUR,
				[]FeeBracket{{UpToDays: 7, Amount: eur("9.90")}, {UpToDays: 30, Amount: eur("19.90")}},
				eur("29.90")),
		},
		TierDefinition{
			Tier: TierPremium,
			Limits: map[FeatureKey]Limit{
				FeaturePosts:          {Max: Unlimited, Period: PeriodMonthly},
				FeatureVideos:         {Max: Unlimited, Period: PeriodMonthly},
				FeaturePhotos:         {Max: Unlimited, Period: PeriodLifetime},
				FeatureSponsoredWeek:  {Max: Unlimited, Period: PeriodMonthly},
				FeatureSponsoredCard:  {Max: Unlimited, Period: PeriodMonthly},
				FeatureMissionContact: {Max: Unlimited, Period: PeriodMonthly},
			},
			Fees: MustFeeSchedule(EUR,
				[]FeeBracket{{UpToDays: 7, Amount: eur("9.90")}, {UpToDays: 30, Amount: eur("14.90")}},
				eur("19.90")),
		},
	)
}
