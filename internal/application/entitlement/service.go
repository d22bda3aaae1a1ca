package entitlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/entitlements/internal/domain/entitlement"
	"github.com/pharmalink/entitlements/internal/domain/shared"
	"github.com/pharmalink/entitlements/internal/infrastructure/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service is the entitlement facade consumed by the post, video, photo,
// sponsorship and contact flows. Callers follow the evaluate -> perform own
// domain write -> commit sequence; a false commit result means the slot was
// lost to a concurrent committer and the caller must undo or void its write.
type Service struct {
	catalog  *entitlement.Catalog
	ledger   entitlement.UsageLedger
	accounts entitlement.AccountDirectory
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// ServiceConfig contains optional configuration for Service
type ServiceConfig struct {
	// Clock overrides the wall-clock source (tests). Defaults to time.Now.
	Clock func() time.Time
	// Metrics receives decision and commit observations; nil disables them
	Metrics *metrics.Metrics
}

// NewService creates the entitlement facade
func NewService(
	catalog *entitlement.Catalog,
	ledger entitlement.UsageLedger,
	accounts entitlement.AccountDirectory,
	logger *zap.Logger,
	config ServiceConfig,
) *Service {
	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		catalog:  catalog,
		ledger:   ledger,
		accounts: accounts,
		logger:   logger,
		metrics:  config.Metrics,
		now:      clock,
	}
}

// ContactConfirmation is the typed result of ConfirmMissionContact
type ContactConfirmation struct {
	Committed bool                `json:"committed"`
	Quote     entitlement.FeeQuote `json:"quote"`
}

// FeatureUsageDTO describes one feature's quota state for an account
type FeatureUsageDTO struct {
	Feature        string `json:"feature"`
	DisplayName    string `json:"display_name"`
	Used           int64  `json:"used"`
	Max            int64  `json:"max"`
	Remaining      int64  `json:"remaining"`
	Allowed        bool   `json:"allowed"`
	IncludedInPlan bool   `json:"included_in_plan"`
	Period         string `json:"period"`
	PeriodKey      string `json:"period_key"`
}

// UsageSummaryDTO describes all quota state for an account
type UsageSummaryDTO struct {
	AccountID uuid.UUID                  `json:"account_id"`
	Tier      string                     `json:"tier"`
	TierName  string                     `json:"tier_name"`
	Features  map[string]FeatureUsageDTO `json:"features"`
}

// CanPublishPost reports whether the account may publish another post
func (s *Service) CanPublishPost(ctx context.Context, accountID uuid.UUID) (entitlement.QuotaDecision, error) {
	return s.evaluate(ctx, accountID, entitlement.FeaturePosts)
}

// IncrementPostsPublished commits one post publication against the quota.
// Returns false when a concurrent commit took the last slot.
func (s *Service) IncrementPostsPublished(ctx context.Context, accountID uuid.UUID) (bool, error) {
	return s.commit(ctx, accountID, entitlement.FeaturePosts)
}

// CanPublishVideo reports whether the account may publish another video
func (s *Service) CanPublishVideo(ctx context.Context, accountID uuid.UUID) (entitlement.QuotaDecision, error) {
	return s.evaluate(ctx, accountID, entitlement.FeatureVideos)
}

// IncrementVideosPublished commits one video publication against the quota
func (s *Service) IncrementVideosPublished(ctx context.Context, accountID uuid.UUID) (bool, error) {
	return s.commit(ctx, accountID, entitlement.FeatureVideos)
}

// CanAddPhoto reports whether the account may attach another profile photo
func (s *Service) CanAddPhoto(ctx context.Context, accountID uuid.UUID) (entitlement.QuotaDecision, error) {
	return s.evaluate(ctx, accountID, entitlement.FeaturePhotos)
}

// SetPhotosCount overwrites the photo counter with a count recomputed from
// the authoritative photo list. Photos are the one feature tracked by
// absolute recount rather than increments, since deletes free up quota.
func (s *Service) SetPhotosCount(ctx context.Context, accountID uuid.UUID, count int64) error {
	if count < 0 {
		return shared.NewDomainError("INVALID_COUNT", "Photo count cannot be negative")
	}

	account, limit, periodKey, err := s.resolve(ctx, accountID, entitlement.FeaturePhotos)
	if err != nil {
		return err
	}

	if err := s.ledger.SetCount(ctx, account.ID, entitlement.FeaturePhotos, periodKey, count); err != nil {
		s.logger.Error("Failed to overwrite photo counter",
			zap.String("account_id", account.ID.String()),
			zap.Error(err))
		return err
	}

	// A recount above the cap is possible after a downgrade; it is stored
	// as-is and only surfaces as a denied CanAddPhoto.
	if !limit.IsUnlimited() && count > limit.Max {
		s.logger.Info("Photo recount exceeds tier cap",
			zap.String("account_id", account.ID.String()),
			zap.Int64("count", count),
			zap.Int64("max", limit.Max))
	}
	return nil
}

// CanUseSponsoredWeek reports whether the account may start another
// week-long sponsored placement
func (s *Service) CanUseSponsoredWeek(ctx context.Context, accountID uuid.UUID) (entitlement.QuotaDecision, error) {
	return s.evaluate(ctx, accountID, entitlement.FeatureSponsoredWeek)
}

// IncrementSponsoredWeeks commits one sponsored week against the quota.
// The placement's expiry is enforced read-side by the content store; the
// commit here is what establishes the grant's countable usage.
func (s *Service) IncrementSponsoredWeeks(ctx context.Context, accountID uuid.UUID) (bool, error) {
	return s.commit(ctx, accountID, entitlement.FeatureSponsoredWeek)
}

// CanUseSponsoredCard reports whether the account may use another sponsored card
func (s *Service) CanUseSponsoredCard(ctx context.Context, accountID uuid.UUID) (entitlement.QuotaDecision, error) {
	return s.evaluate(ctx, accountID, entitlement.FeatureSponsoredCard)
}

// IncrementSponsoredCards commits one sponsored card against the quota
func (s *Service) IncrementSponsoredCards(ctx context.Context, accountID uuid.UUID) (bool, error) {
	return s.commit(ctx, accountID, entitlement.FeatureSponsoredCard)
}

// QuoteMissionContact prices unlocking a contact for a mission of the given
// duration. The quote is advisory; ConfirmMissionContact recomputes it.
func (s *Service) QuoteMissionContact(ctx context.Context, accountID uuid.UUID, missionDays int) (entitlement.FeeQuote, error) {
	if missionDays <= 0 {
		return entitlement.FeeQuote{}, shared.ErrInvalidDuration
	}
	quote, _, err := s.quoteContact(ctx, accountID, missionDays)
	return quote, err
}

// ConfirmMissionContact commits a mission contact unlock. For quota-included
// contacts the counter is atomically incremented; losing that race returns
// Committed=false with a fresh (now pay-per-use) quote so the caller can put
// the explicit "pay or upgrade" decision to the user; nothing is ever
// auto-charged. Pay-per-use contacts confirm without touching the ledger;
// fee capture belongs to the payment collaborator.
func (s *Service) ConfirmMissionContact(ctx context.Context, accountID uuid.UUID, missionDays int) (ContactConfirmation, error) {
	if missionDays <= 0 {
		return ContactConfirmation{}, shared.ErrInvalidDuration
	}

	quote, periodKey, err := s.quoteContact(ctx, accountID, missionDays)
	if err != nil {
		return ContactConfirmation{}, err
	}

	if !quote.IncludedInSubscription {
		return ContactConfirmation{Committed: true, Quote: quote}, nil
	}

	ok, err := s.ledger.TryIncrement(ctx, accountID, entitlement.FeatureMissionContact, periodKey, quote.ContactsMax)
	if err != nil {
		return ContactConfirmation{}, err
	}
	if ok {
		s.metrics.ObserveCommit(entitlement.FeatureMissionContact.String(), true)
		return ContactConfirmation{Committed: true, Quote: quote}, nil
	}

	s.metrics.ObserveRaceLost(entitlement.FeatureMissionContact.String())
	s.logger.Info("Included contact commit lost the race, requoting",
		zap.String("account_id", accountID.String()),
		zap.Error(entitlement.ErrRaceLost))

	fresh, _, err := s.quoteContact(ctx, accountID, missionDays)
	if err != nil {
		return ContactConfirmation{}, err
	}
	return ContactConfirmation{Committed: false, Quote: fresh}, nil
}

// UsageSummary reports the quota state of every metered feature for an
// account, for profile and upgrade screens
func (s *Service) UsageSummary(ctx context.Context, accountID uuid.UUID) (*UsageSummaryDTO, error) {
	account, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}

	summary := &UsageSummaryDTO{
		AccountID: account.ID,
		Tier:      account.Tier.String(),
		TierName:  account.Tier.DisplayName(),
		Features:  make(map[string]FeatureUsageDTO, len(entitlement.AllFeatureKeys())),
	}

	for _, feature := range entitlement.AllFeatureKeys() {
		limit, err := s.catalog.LimitFor(account.Tier, feature)
		if err != nil {
			return nil, err
		}
		periodKey := entitlement.CurrentPeriodKey(limit.Period, account.PeriodAnchor, s.now())
		used, err := s.ledger.Used(ctx, account.ID, feature, periodKey)
		if err != nil {
			return nil, err
		}
		decision := entitlement.Evaluate(feature, limit, used)

		summary.Features[feature.String()] = FeatureUsageDTO{
			Feature:        feature.String(),
			DisplayName:    feature.DisplayName(),
			Used:           decision.Used,
			Max:            decision.Max,
			Remaining:      decision.Remaining(),
			Allowed:        decision.Allowed,
			IncludedInPlan: decision.IncludedInPlan,
			Period:         limit.Period.String(),
			PeriodKey:      periodKey,
		}
	}
	return summary, nil
}

// evaluate reads the current counter and produces a decision without
// mutating anything
func (s *Service) evaluate(ctx context.Context, accountID uuid.UUID, feature entitlement.FeatureKey) (entitlement.QuotaDecision, error) {
	account, limit, periodKey, err := s.resolve(ctx, accountID, feature)
	if err != nil {
		return entitlement.QuotaDecision{}, err
	}

	used, err := s.ledger.Used(ctx, account.ID, feature, periodKey)
	if err != nil {
		s.logger.Error("Failed to read usage counter",
			zap.String("account_id", account.ID.String()),
			zap.String("feature", feature.String()),
			zap.Error(err))
		return entitlement.QuotaDecision{}, err
	}

	decision := entitlement.Evaluate(feature, limit, used)
	s.metrics.ObserveDecision(feature.String(), decision.Allowed)
	return decision, nil
}

// commit atomically consumes one unit of quota. The conditional increment at
// the storage layer is the only concurrency control; commit never re-reads
// before writing.
func (s *Service) commit(ctx context.Context, accountID uuid.UUID, feature entitlement.FeatureKey) (bool, error) {
	account, limit, periodKey, err := s.resolve(ctx, accountID, feature)
	if err != nil {
		return false, err
	}

	ok, err := s.ledger.TryIncrement(ctx, account.ID, feature, periodKey, limit.Max)
	if err != nil {
		s.logger.Error("Failed to increment usage counter",
			zap.String("account_id", account.ID.String()),
			zap.String("feature", feature.String()),
			zap.Error(err))
		return false, err
	}
	s.metrics.ObserveCommit(feature.String(), ok)
	if !ok {
		s.logger.Info("Usage commit denied at the limit",
			zap.String("account_id", account.ID.String()),
			zap.String("feature", feature.String()),
			zap.Int64("max", limit.Max))
	}
	return ok, nil
}

// resolve loads the account and the catalog limit and derives the active
// period key
func (s *Service) resolve(ctx context.Context, accountID uuid.UUID, feature entitlement.FeatureKey) (*entitlement.Account, entitlement.Limit, string, error) {
	account, err := s.account(ctx, accountID)
	if err != nil {
		return nil, entitlement.Limit{}, "", err
	}

	limit, err := s.catalog.LimitFor(account.Tier, feature)
	if err != nil {
		// Configuration defect: fail the request, never fail open
		s.logger.Error("Catalog lookup failed",
			zap.String("tier", account.Tier.String()),
			zap.String("feature", feature.String()),
			zap.Error(err))
		return nil, entitlement.Limit{}, "", err
	}

	periodKey := entitlement.CurrentPeriodKey(limit.Period, account.PeriodAnchor, s.now())
	return account, limit, periodKey, nil
}

func (s *Service) account(ctx context.Context, accountID uuid.UUID) (*entitlement.Account, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("ACCOUNT_NOT_FOUND", "Account not found")
		}
		s.logger.Error("Failed to find account", zap.String("account_id", accountID.String()), zap.Error(err))
		return nil, err
	}
	return account, nil
}

// quoteContact computes the fee quote for one mission contact together with
// the active period key for the contact counter
func (s *Service) quoteContact(ctx context.Context, accountID uuid.UUID, missionDays int) (entitlement.FeeQuote, string, error) {
	account, limit, periodKey, err := s.resolve(ctx, accountID, entitlement.FeatureMissionContact)
	if err != nil {
		return entitlement.FeeQuote{}, "", err
	}

	schedule, err := s.catalog.FeeScheduleFor(account.Tier)
	if err != nil {
		return entitlement.FeeQuote{}, "", err
	}

	used, err := s.ledger.Used(ctx, account.ID, entitlement.FeatureMissionContact, periodKey)
	if err != nil {
		return entitlement.FeeQuote{}, "", err
	}
	decision := entitlement.Evaluate(entitlement.FeatureMissionContact, limit, used)

	quote := entitlement.FeeQuote{
		Currency:          schedule.Currency,
		Tier:              account.Tier,
		ContactsRemaining: decision.Remaining(),
		ContactsMax:       limit.Max,
	}

	if decision.IncludedInPlan && decision.Allowed {
		quote.IncludedInSubscription = true
		quote.Amount = decimal.Zero
		s.metrics.ObserveFeeQuote(account.Tier.String(), true)
		return quote, periodKey, nil
	}

	amount, err := schedule.AmountFor(missionDays)
	if err != nil {
		return entitlement.FeeQuote{}, "", err
	}
	quote.Amount = amount
	s.metrics.ObserveFeeQuote(account.Tier.String(), false)
	return quote, periodKey, nil
}
