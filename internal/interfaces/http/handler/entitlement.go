package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	app "github.com/pharmalink/entitlements/internal/application/entitlement"
	"github.com/pharmalink/entitlements/internal/domain/entitlement"
	"github.com/pharmalink/entitlements/internal/interfaces/http/dto"
)

// EntitlementHandler exposes the quota and fee surface consumed by the
// posting, profile and contact flows
type EntitlementHandler struct {
	BaseHandler
	service *app.Service
}

// NewEntitlementHandler creates a new EntitlementHandler
func NewEntitlementHandler(service *app.Service) *EntitlementHandler {
	return &EntitlementHandler{service: service}
}

// RegisterRoutes registers entitlement routes on the API group
func (h *EntitlementHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/entitlements/:accountID")
	{
		group.GET("/summary", h.GetUsageSummary)

		group.GET("/posts", h.CanPublishPost)
		group.POST("/posts", h.CommitPost)

		group.GET("/videos", h.CanPublishVideo)
		group.POST("/videos", h.CommitVideo)

		group.GET("/photos", h.CanAddPhoto)
		group.PUT("/photos/count", h.SetPhotosCount)

		group.GET("/sponsored-weeks", h.CanUseSponsoredWeek)
		group.POST("/sponsored-weeks", h.CommitSponsoredWeek)

		group.GET("/sponsored-cards", h.CanUseSponsoredCard)
		group.POST("/sponsored-cards", h.CommitSponsoredCard)

		group.GET("/contacts/quote", h.QuoteMissionContact)
		group.POST("/contacts/confirm", h.ConfirmMissionContact)
	}
}

// CommitResponse reports whether a usage commit was admitted
type CommitResponse struct {
	Committed bool `json:"committed"`
}

// PhotoCountRequest carries the recounted photo total
type PhotoCountRequest struct {
	Count *int64 `json:"count" binding:"required,min=0"`
}

// ContactQuoteRequest carries the mission duration for pricing
type ContactQuoteRequest struct {
	MissionDays int `form:"mission_days" binding:"required,min=1"`
}

// ContactConfirmRequest carries the mission duration for a contact unlock
type ContactConfirmRequest struct {
	MissionDays int `json:"mission_days" binding:"required,min=1"`
}

// GetUsageSummary returns the quota state of every metered feature
func (h *EntitlementHandler) GetUsageSummary(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	summary, err := h.service.UsageSummary(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// CanPublishPost evaluates the post quota without consuming it
func (h *EntitlementHandler) CanPublishPost(c *gin.Context) {
	h.evaluate(c, h.service.CanPublishPost)
}

// CommitPost consumes one post slot
func (h *EntitlementHandler) CommitPost(c *gin.Context) {
	h.commit(c, entitlement.FeaturePosts, h.service.IncrementPostsPublished)
}

// CanPublishVideo evaluates the video quota without consuming it
func (h *EntitlementHandler) CanPublishVideo(c *gin.Context) {
	h.evaluate(c, h.service.CanPublishVideo)
}

// CommitVideo consumes one video slot
func (h *EntitlementHandler) CommitVideo(c *gin.Context) {
	h.commit(c, entitlement.FeatureVideos, h.service.IncrementVideosPublished)
}

// CanAddPhoto evaluates the photo quota without consuming it
func (h *EntitlementHandler) CanAddPhoto(c *gin.Context) {
	h.evaluate(c, h.service.CanAddPhoto)
}

// SetPhotosCount overwrites the photo counter with a recount from the
// authoritative photo list
func (h *EntitlementHandler) SetPhotosCount(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	var req PhotoCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "count is required and cannot be negative")
		return
	}

	if err := h.service.SetPhotosCount(c.Request.Context(), accountID, *req.Count); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"count": *req.Count})
}

// CanUseSponsoredWeek evaluates the sponsored week quota without consuming it
func (h *EntitlementHandler) CanUseSponsoredWeek(c *gin.Context) {
	h.evaluate(c, h.service.CanUseSponsoredWeek)
}

// CommitSponsoredWeek consumes one sponsored week grant
func (h *EntitlementHandler) CommitSponsoredWeek(c *gin.Context) {
	h.commit(c, entitlement.FeatureSponsoredWeek, h.service.IncrementSponsoredWeeks)
}

// CanUseSponsoredCard evaluates the sponsored card quota without consuming it
func (h *EntitlementHandler) CanUseSponsoredCard(c *gin.Context) {
	h.evaluate(c, h.service.CanUseSponsoredCard)
}

// CommitSponsoredCard consumes one sponsored card grant
func (h *EntitlementHandler) CommitSponsoredCard(c *gin.Context) {
	h.commit(c, entitlement.FeatureSponsoredCard, h.service.IncrementSponsoredCards)
}

// QuoteMissionContact prices unlocking a contact for a mission
func (h *EntitlementHandler) QuoteMissionContact(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	var req ContactQuoteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "mission_days is required and must be positive")
		return
	}

	quote, err := h.service.QuoteMissionContact(c.Request.Context(), accountID, req.MissionDays)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// ConfirmMissionContact commits a contact unlock. A committed=false response
// carries a fresh pay-per-use quote; the client puts the pay-or-upgrade
// decision to the user.
func (h *EntitlementHandler) ConfirmMissionContact(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	var req ContactConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "mission_days is required and must be positive")
		return
	}

	confirmation, err := h.service.ConfirmMissionContact(c.Request.Context(), accountID, req.MissionDays)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, confirmation)
}

func (h *EntitlementHandler) accountID(c *gin.Context) (uuid.UUID, bool) {
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

func (h *EntitlementHandler) evaluate(c *gin.Context, eval func(context.Context, uuid.UUID) (entitlement.QuotaDecision, error)) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	decision, err := eval(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, decision)
}

func (h *EntitlementHandler) commit(c *gin.Context, feature entitlement.FeatureKey, inc func(context.Context, uuid.UUID) (bool, error)) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	committed, err := inc(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !committed {
		h.Error(c, http.StatusTooManyRequests, dto.ErrCodeQuotaExceeded,
			"Usage limit reached for "+feature.DisplayName())
		return
	}
	h.Success(c, CommitResponse{Committed: true})
}
