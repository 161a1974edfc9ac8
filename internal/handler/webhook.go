package handler

import (
	"context"
	"io"
	"net/http"

	"sadaka/internal/payment"
	"sadaka/pkg/errors"

	"github.com/gorilla/mux"
)

type Reconciler interface {
	Reconcile(ctx context.Context, providerName string, body []byte, signature string) (*payment.ReconcileResult, error)
	Acknowledge(providerName string, err error) interface{}
}

// WebhookHandler receives provider payment notifications.
type WebhookHandler struct {
	service Reconciler
	logger  Logger
}

func NewWebhookHandler(service Reconciler, log Logger) *WebhookHandler {
	return &WebhookHandler{service: service, logger: log}
}

// signatureHeaders are checked in order. CloudPayments may instead carry the
// signature in the body.
var signatureHeaders = []string{"X-Signature", "Content-HMAC", "X-Content-HMAC"}

// Handle answers every notification it could evaluate with 200 and the
// provider's acknowledgement body, so rejected or duplicate deliveries are
// not retried. Storage failures answer 500 so the provider retries.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	provider := mux.Vars(r)["provider"]

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var signature string
	for _, name := range signatureHeaders {
		if v := r.Header.Get(name); v != "" {
			signature = v
			break
		}
	}

	_, err = h.service.Reconcile(r.Context(), provider, body, signature)
	switch {
	case errors.Is(err, errors.ErrUnknownProvider):
		respondError(w, http.StatusNotFound, errors.MessageOf(err))
		return
	case errors.KindOf(err) == errors.KindPersistence:
		h.logger.Error("Webhook processing failed", map[string]interface{}{
			"provider": provider,
			"error":    err.Error(),
		})
		respondJSON(w, http.StatusInternalServerError, h.service.Acknowledge(provider, err))
		return
	}
	respondJSON(w, http.StatusOK, h.service.Acknowledge(provider, err))
}
