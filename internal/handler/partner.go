package handler

import (
	"context"
	"net/http"

	"sadaka/internal/domain"
	"sadaka/internal/partner"
	"sadaka/pkg/validator"

	"github.com/google/uuid"
)

type PartnerService interface {
	Apply(ctx context.Context, req *partner.ApplyRequest) (*domain.PartnerApplication, error)
	Get(ctx context.Context, id int64) (*domain.PartnerApplication, error)
	List(ctx context.Context, f domain.ApplicationFilter) ([]*domain.PartnerApplication, int, error)
	Review(ctx context.Context, id int64, reviewer uuid.UUID, req *partner.ReviewRequest) (*domain.PartnerApplication, error)
}

type PartnerHandler struct {
	service   PartnerService
	validator *validator.Validator
	logger    Logger
}

func NewPartnerHandler(service PartnerService, val *validator.Validator, log Logger) *PartnerHandler {
	return &PartnerHandler{service: service, validator: val, logger: log}
}

// Apply is public.
func (h *PartnerHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req partner.ApplyRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	app, err := h.service.Apply(r.Context(), &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, app)
}

func (h *PartnerHandler) List(w http.ResponseWriter, r *http.Request) {
	f := domain.ApplicationFilter{
		Status: domain.ApplicationStatus(r.URL.Query().Get("status")),
		Page:   pageFromQuery(r),
	}
	apps, total, err := h.service.List(r.Context(), f)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondPage(w, "applications", apps, total, f.Page)
}

func (h *PartnerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	app, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, app)
}

func (h *PartnerHandler) Review(w http.ResponseWriter, r *http.Request) {
	reviewer, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req partner.ReviewRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	app, err := h.service.Review(r.Context(), id, reviewer, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, app)
}
