package handler

import (
	"context"
	"net/http"

	"sadaka/internal/domain"
	"sadaka/internal/payment"
	"sadaka/internal/subscription"
	"sadaka/pkg/validator"

	"github.com/google/uuid"
)

type SubscriptionService interface {
	Create(ctx context.Context, userID uuid.UUID, req *subscription.CreateRequest) (*domain.Subscription, error)
	Get(ctx context.Context, id int64, userID uuid.UUID) (*domain.Subscription, error)
	List(ctx context.Context, userID uuid.UUID, status domain.SubscriptionStatus) ([]*domain.Subscription, error)
	Pause(ctx context.Context, id int64, userID uuid.UUID) (*domain.Subscription, error)
	Resume(ctx context.Context, id int64, userID uuid.UUID) (*domain.Subscription, error)
	Cancel(ctx context.Context, id int64, userID uuid.UUID) (*domain.Subscription, error)
	Charge(ctx context.Context, id int64, userID uuid.UUID) (*payment.IntentResponse, error)
}

type SubscriptionHandler struct {
	service   SubscriptionService
	validator *validator.Validator
	logger    Logger
}

func NewSubscriptionHandler(service SubscriptionService, val *validator.Validator, log Logger) *SubscriptionHandler {
	return &SubscriptionHandler{service: service, validator: val, logger: log}
}

func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req subscription.CreateRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	sub, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, sub)
}

func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	status := domain.SubscriptionStatus(r.URL.Query().Get("status"))
	subs, err := h.service.List(r.Context(), userID, status)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"subscriptions": subs,
		"total":         len(subs),
	})
}

func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.withSubscription(w, r, h.service.Get)
}

func (h *SubscriptionHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.withSubscription(w, r, h.service.Pause)
}

func (h *SubscriptionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.withSubscription(w, r, h.service.Resume)
}

func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.withSubscription(w, r, h.service.Cancel)
}

func (h *SubscriptionHandler) withSubscription(w http.ResponseWriter, r *http.Request,
	fn func(context.Context, int64, uuid.UUID) (*domain.Subscription, error)) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sub, err := fn(r.Context(), id, userID)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

// Charge opens a payment intent for the subscription's next installment.
func (h *SubscriptionHandler) Charge(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	resp, err := h.service.Charge(r.Context(), id, userID)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}
