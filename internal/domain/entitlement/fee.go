package entitlement

import (
	"fmt"

	"github.com/pharmalink/entitlements/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	// EUR is the marketplace's only settlement currency
	EUR Currency = "EUR"
)

// FeeBracket maps mission durations up to UpToDays (inclusive) to a fee
type FeeBracket struct {
	UpToDays int
	Amount   decimal.Decimal
}

// FeeSchedule is a step function from mission duration to a one-off
// mission-contact fee. Brackets are ordered by duration; missions longer
// than the last bracket cost Overflow. Amounts are validated to be
// monotonically non-decreasing, so a longer mission never costs less.
type FeeSchedule struct {
	Currency Currency
	Brackets []FeeBracket
	Overflow decimal.Decimal
}

// NewFeeSchedule creates a validated fee schedule
func NewFeeSchedule(currency Currency, brackets []FeeBracket, overflow decimal.Decimal) (FeeSchedule, error) {
	s := FeeSchedule{Currency: currency, Brackets: brackets, Overflow: overflow}
	if err := s.Validate(); err != nil {
		return FeeSchedule{}, err
	}
	return s, nil
}

// MustFeeSchedule creates a fee schedule and panics on error. Intended for
// compiled-in catalog defaults.
func MustFeeSchedule(currency Currency, brackets []FeeBracket, overflow decimal.Decimal) FeeSchedule {
	s, err := NewFeeSchedule(currency, brackets, overflow)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks bracket ordering and fee monotonicity
func (s FeeSchedule) Validate() error {
	if s.Currency == "" {
		return shared.NewDomainError("INVALID_FEE_SCHEDULE", "Currency cannot be empty")
	}
	if len(s.Brackets) == 0 {
		return shared.NewDomainError("INVALID_FEE_SCHEDULE", "Fee schedule requires at least one bracket")
	}

	prevDays := 0
	prevAmount := decimal.Zero
	for i, b := range s.Brackets {
		if b.UpToDays <= prevDays {
			return shared.NewDomainError("INVALID_FEE_SCHEDULE",
				fmt.Sprintf("Bracket %d: durations must be strictly increasing", i))
		}
		if b.Amount.IsNegative() {
			return shared.NewDomainError("INVALID_FEE_SCHEDULE",
				fmt.Sprintf("Bracket %d: fee cannot be negative", i))
		}
		if i > 0 && b.Amount.LessThan(prevAmount) {
			return shared.NewDomainError("INVALID_FEE_SCHEDULE",
				fmt.Sprintf("Bracket %d: fees must be non-decreasing with duration", i))
		}
		prevDays = b.UpToDays
		prevAmount = b.Amount
	}
	if s.Overflow.LessThan(prevAmount) {
		return shared.NewDomainError("INVALID_FEE_SCHEDULE",
			"Overflow fee must be at least the last bracket's fee")
	}
	return nil
}

// AmountFor returns the fee for a mission of the given duration in days
func (s FeeSchedule) AmountFor(missionDays int) (decimal.Decimal, error) {
	if missionDays <= 0 {
		return decimal.Zero, shared.ErrInvalidDuration
	}
	for _, b := range s.Brackets {
		if missionDays <= b.UpToDays {
			return b.Amount, nil
		}
	}
	return s.Overflow, nil
}

// eur builds a decimal amount for catalog literals
func eur(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// FeeQuote is the advisory price for unlocking one mission contact. It is
// recomputed at confirmation time; callers must not charge from a stale
// quote since tier or usage may have changed since it was issued.
type FeeQuote struct {
	Amount                 decimal.Decimal `json:"amount"`
	Currency               Currency        `json:"currency"`
	IncludedInSubscription bool            `json:"included_in_subscription"`
	Tier                   Tier            `json:"tier"`
	ContactsRemaining      int64           `json:"contacts_remaining"` // -1 = unlimited
	ContactsMax            int64           `json:"contacts_max"`       // -1 = unlimited
}
