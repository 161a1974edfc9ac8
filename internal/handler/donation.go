package handler

import (
	"context"
	"net/http"

	"sadaka/internal/domain"
	"sadaka/internal/middleware"
	"sadaka/internal/payment"
	"sadaka/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DonationService interface {
	CreateIntent(ctx context.Context, req *payment.CreateIntentRequest) (*payment.IntentResponse, error)
	GetIntent(ctx context.Context, id int64, userID uuid.UUID, isAdmin bool) (*domain.Intent, error)
	ListUserIntents(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Intent, int, error)
	ConfirmIntent(ctx context.Context, id int64, transactionID string) (*payment.SettleResult, error)
	RefundIntent(ctx context.Context, id int64) (*payment.SettleResult, error)
}

type DonationHandler struct {
	service   DonationService
	validator *validator.Validator
	logger    Logger
}

func NewDonationHandler(service DonationService, val *validator.Validator, log Logger) *DonationHandler {
	return &DonationHandler{service: service, validator: val, logger: log}
}

// Create opens a payment intent for any target kind.
func (h *DonationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req payment.CreateIntentRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	req.UserID = userID
	h.create(w, r, &req)
}

type campaignDonationRequest struct {
	Amount        decimal.Decimal      `json:"amount" validate:"money"`
	Currency      domain.Currency      `json:"currency" validate:"omitempty,currency"`
	PaymentMethod domain.PaymentMethod `json:"payment_method" validate:"required,payment_method"`
	Purpose       string               `json:"purpose" validate:"max=500"`
}

// DonateToCampaign is the campaign-scoped shortcut for Create.
func (h *DonationHandler) DonateToCampaign(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	campaignID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body campaignDonationRequest
	if !decodeAndValidate(w, r, h.validator, &body) {
		return
	}
	h.create(w, r, &payment.CreateIntentRequest{
		UserID:        userID,
		TargetType:    domain.TargetCampaign,
		TargetID:      campaignID,
		Amount:        body.Amount,
		Currency:      body.Currency,
		PaymentMethod: body.PaymentMethod,
		Purpose:       body.Purpose,
	})
}

func (h *DonationHandler) create(w http.ResponseWriter, r *http.Request, req *payment.CreateIntentRequest) {
	resp, err := h.service.CreateIntent(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

func (h *DonationHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	intent, err := h.service.GetIntent(r.Context(), id, userID, middleware.IsAdmin(r.Context()))
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, intent)
}

func (h *DonationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	page := pageFromQuery(r)
	intents, total, err := h.service.ListUserIntents(r.Context(), userID, page.Limit, page.Offset)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondPage(w, "donations", intents, total, page)
}

type confirmRequest struct {
	TransactionID string `json:"transaction_id" validate:"required,max=255"`
}

// Confirm completes a pending intent by hand (admin).
func (h *DonationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req confirmRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	res, err := h.service.ConfirmIntent(r.Context(), id, req.TransactionID)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	adminID, _ := middleware.UserIDFromContext(r.Context())
	h.logger.Info("Donation confirmed manually", map[string]interface{}{
		"intent_id": id,
		"admin_id":  adminID,
		"applied":   res.Applied,
	})
	respondJSON(w, http.StatusOK, res)
}

// Refund reverses a completed intent (admin).
func (h *DonationHandler) Refund(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	res, err := h.service.RefundIntent(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	adminID, _ := middleware.UserIDFromContext(r.Context())
	h.logger.Info("Donation refunded", map[string]interface{}{
		"intent_id": id,
		"admin_id":  adminID,
		"applied":   res.Applied,
	})
	respondJSON(w, http.StatusOK, res)
}
