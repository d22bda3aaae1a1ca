package entitlement

// QuotaDecision is the outcome of evaluating one feature for one account.
// It is produced fresh on every evaluation and never cached: Used can change
// between calls.
type QuotaDecision struct {
	Feature        FeatureKey `json:"feature"`
	Allowed        bool       `json:"allowed"`
	Used           int64      `json:"used"`
	Max            int64      `json:"max"` // -1 = unlimited
	IncludedInPlan bool       `json:"included_in_plan"`
}

// Evaluate combines a catalog limit with a ledger snapshot into a decision.
// Pure and side-effect free; safe to call repeatedly for UI previews.
func Evaluate(feature FeatureKey, limit Limit, used int64) QuotaDecision {
	return QuotaDecision{
		Feature:        feature,
		Allowed:        limit.IsUnlimited() || used < limit.Max,
		Used:           used,
		Max:            limit.Max,
		IncludedInPlan: !limit.PayPerUseOnly,
	}
}

// Remaining returns how many uses are left in the period (-1 = unlimited)
func (d QuotaDecision) Remaining() int64 {
	if d.Max == Unlimited {
		return Unlimited
	}
	if d.Used >= d.Max {
		return 0
	}
	return d.Max - d.Used
}
