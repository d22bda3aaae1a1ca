package entitlement

import "fmt"

// FeatureKey identifies a metered action
type FeatureKey string

const (
	// FeaturePosts tracks job/availability posts published
	FeaturePosts FeatureKey = "posts"

	// FeatureVideos tracks presentation videos published
	FeatureVideos FeatureKey = "videos"

	// FeaturePhotos tracks profile photos currently attached.
	// Unlike the other features it is recounted from the photo list
	// after deletes, so its counter is overwritten, never incremented
	// from two places.
	FeaturePhotos FeatureKey = "photos"

	// FeatureSponsoredWeek tracks week-long sponsored placements of a listing
	FeatureSponsoredWeek FeatureKey = "sponsored_week"

	// FeatureSponsoredCard tracks sponsored card slots in search results
	FeatureSponsoredCard FeatureKey = "sponsored_card"

	// FeatureMissionContact tracks mission contact unlocks ("mise en relation")
	FeatureMissionContact FeatureKey = "mission_contact"
)

// String returns the string representation of FeatureKey
func (f FeatureKey) String() string {
	return string(f)
}

// IsValid returns true if the feature key is valid
func (f FeatureKey) IsValid() bool {
	switch f {
	case FeaturePosts, FeatureVideos, FeaturePhotos,
		FeatureSponsoredWeek, FeatureSponsoredCard, FeatureMissionContact:
		return true
	}
	return false
}

// DisplayName returns a human-readable name for the feature
func (f FeatureKey) DisplayName() string {
	switch f {
	case FeaturePosts:
		return "Posts"
	case FeatureVideos:
		return "Videos"
	case FeaturePhotos:
		return "Profile Photos"
	case FeatureSponsoredWeek:
		return "Sponsored Weeks"
	case FeatureSponsoredCard:
		return "Sponsored Cards"
	case FeatureMissionContact:
		return "Mission Contacts"
	default:
		return string(f)
	}
}

// AllFeatureKeys returns all valid feature keys
func AllFeatureKeys() []FeatureKey {
	return []FeatureKey{
		FeaturePosts,
		FeatureVideos,
		FeaturePhotos,
		FeatureSponsoredWeek,
		FeatureSponsoredCard,
		FeatureMissionContact,
	}
}

// ParseFeatureKey parses a string into a FeatureKey
func ParseFeatureKey(s string) (FeatureKey, error) {
	f := FeatureKey(s)
	if !f.IsValid() {
		return "", fmt.Errorf("invalid feature key: %s", s)
	}
	return f, nil
}

// PeriodKind represents the window over which a counter accumulates
type PeriodKind string

const (
	// PeriodMonthly accumulates per billing month, anchored to the
	// account's period anchor
	PeriodMonthly PeriodKind = "MONTHLY"

	// PeriodLifetime never resets
	PeriodLifetime PeriodKind = "LIFETIME"
)

// String returns the string representation of PeriodKind
func (p PeriodKind) String() string {
	return string(p)
}

// IsValid returns true if the period kind is valid
func (p PeriodKind) IsValid() bool {
	switch p {
	case PeriodMonthly, PeriodLifetime:
		return true
	}
	return false
}
