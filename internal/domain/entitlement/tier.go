package entitlement

import "fmt"

// Tier represents a named subscription plan
type Tier string

const (
	// TierFree is the default plan for new accounts
	TierFree Tier = "free"

	// TierStarter is the entry-level paid plan
	TierStarter Tier = "starter"

	// TierPro is the plan for active recruiters
	TierPro Tier = "pro"

	// TierBusiness is the plan for pharmacy groups
	TierBusiness Tier = "business"

	// TierPremium is the top plan with no metered limits
	TierPremium Tier = "premium"
)

// String returns the string representation of Tier
func (t Tier) String() string {
	return string(t)
}

// IsValid returns true if the tier is valid
func (t Tier) IsValid() bool {
	switch t {
	case TierFree, TierStarter, TierPro, TierBusiness, TierPremium:
		return true
	}
	return false
}

// DisplayName returns a human-readable name for the tier
func (t Tier) DisplayName() string {
	switch t {
	case TierFree:
		return "Free"
	case TierStarter:
		return "Starter"
	case TierPro:
		return "Pro"
	case TierBusiness:
		return "Business"
	case TierPremium:
		return "Premium"
	default:
		return string(t)
	}
}

// AllTiers returns all valid tiers, cheapest first
func AllTiers() []Tier {
	return []Tier{TierFree, TierStarter, TierPro, TierBusiness, TierPremium}
}

// ParseTier parses a string into a Tier
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid tier: %s", s)
	}
	return t, nil
}
