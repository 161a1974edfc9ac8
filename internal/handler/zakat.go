package handler

import (
	"context"
	"net/http"

	"sadaka/internal/domain"
	"sadaka/internal/payment"
	"sadaka/internal/zakat"
	"sadaka/pkg/validator"

	"github.com/google/uuid"
)

type ZakatService interface {
	Calculate(ctx context.Context, userID uuid.UUID, req *zakat.CalculateRequest) (*domain.ZakatCalculation, error)
	GetForUser(ctx context.Context, userID uuid.UUID) (*domain.ZakatCalculation, error)
	Nisab() zakat.NisabInfo
	ConfirmPayment(ctx context.Context, id int64, paymentRef string) (*domain.ZakatCalculation, error)
}

type ZakatHandler struct {
	service   ZakatService
	payments  DonationService
	validator *validator.Validator
	logger    Logger
}

func NewZakatHandler(service ZakatService, payments DonationService, val *validator.Validator, log Logger) *ZakatHandler {
	return &ZakatHandler{service: service, payments: payments, validator: val, logger: log}
}

func (h *ZakatHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req zakat.CalculateRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	calc, err := h.service.Calculate(r.Context(), userID, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, calc)
}

func (h *ZakatHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	calc, err := h.service.GetForUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, calc)
}

func (h *ZakatHandler) Nisab(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.service.Nisab())
}

type zakatPayRequest struct {
	PaymentMethod domain.PaymentMethod `json:"payment_method" validate:"required,payment_method"`
}

// Pay opens an intent for the full zakat amount of the caller's calculation.
func (h *ZakatHandler) Pay(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req zakatPayRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	resp, err := h.payments.CreateIntent(r.Context(), &payment.CreateIntentRequest{
		UserID:        userID,
		TargetType:    domain.TargetZakat,
		TargetID:      id,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

type zakatConfirmRequest struct {
	PaymentRef string `json:"payment_ref" validate:"required,max=255"`
}

// Confirm records a zakat payment made outside the providers (admin).
func (h *ZakatHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req zakatConfirmRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	calc, err := h.service.ConfirmPayment(r.Context(), id, req.PaymentRef)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, calc)
}
