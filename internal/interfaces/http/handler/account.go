package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pharmalink/entitlements/internal/domain/entitlement"
	"github.com/pharmalink/entitlements/internal/interfaces/http/dto"
	"github.com/pharmalink/entitlements/internal/interfaces/http/middleware"
)

// AccountStore is the read-write view of the account directory the
// subscription sync endpoints need
type AccountStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entitlement.Account, error)
	Save(ctx context.Context, account *entitlement.Account) error
}

// AccountHandler keeps the entitlement view of accounts in step with the
// subscription system. Signup and tier changes land here.
type AccountHandler struct {
	BaseHandler
	accounts AccountStore
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts AccountStore) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// RegisterRoutes registers account routes on the API group
func (h *AccountHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/accounts/:accountID")
	{
		group.GET("", h.GetAccount)
		group.PUT("", h.UpsertAccount)
	}
}

// AccountResponse is the entitlement view of an account
type AccountResponse struct {
	ID           uuid.UUID `json:"id"`
	Tier         string    `json:"tier"`
	TierName     string    `json:"tier_name"`
	PeriodAnchor time.Time `json:"period_anchor"`
}

// UpsertAccountRequest carries a signup or tier change. PeriodAnchor is
// optional; when omitted on first save the current time becomes the anchor.
type UpsertAccountRequest struct {
	Tier         string     `json:"tier" binding:"required,tierkey"`
	PeriodAnchor *time.Time `json:"period_anchor"`
}

// GetAccount returns the entitlement view of an account
func (h *AccountHandler) GetAccount(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	account, err := h.accounts.FindByID(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toAccountResponse(account))
}

// UpsertAccount records a signup or tier change coming from the
// subscription system
func (h *AccountHandler) UpsertAccount(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	var req UpsertAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	account := &entitlement.Account{
		ID:   accountID,
		Tier: entitlement.Tier(req.Tier),
	}
	switch {
	case req.PeriodAnchor != nil:
		account.PeriodAnchor = *req.PeriodAnchor
	default:
		// A tier change keeps the existing billing anchor; only a first
		// save starts a new cycle now.
		existing, err := h.accounts.FindByID(c.Request.Context(), accountID)
		if err == nil {
			account.PeriodAnchor = existing.PeriodAnchor
		} else {
			account.PeriodAnchor = time.Now().UTC()
		}
	}

	if err := h.accounts.Save(c.Request.Context(), account); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toAccountResponse(account))
}

func (h *AccountHandler) accountID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.AccountIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "accountID must be a valid UUID")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.AccountID)
	if err != nil {
		h.BadRequest(c, "accountID must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func toAccountResponse(a *entitlement.Account) AccountResponse {
	return AccountResponse{
		ID:           a.ID,
		Tier:         string(a.Tier),
		TierName:     a.Tier.DisplayName(),
		PeriodAnchor: a.PeriodAnchor,
	}
}
