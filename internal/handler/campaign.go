package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"sadaka/internal/campaign"
	"sadaka/internal/domain"
	"sadaka/internal/middleware"
	"sadaka/pkg/validator"

	"github.com/google/uuid"
)

type CampaignService interface {
	Create(ctx context.Context, ownerID uuid.UUID, isAdmin bool, req *campaign.CreateRequest) (*domain.Campaign, error)
	Get(ctx context.Context, id int64) (*domain.Campaign, error)
	List(ctx context.Context, f domain.CampaignFilter) ([]*domain.Campaign, int, error)
	Update(ctx context.Context, id int64, actor uuid.UUID, isAdmin bool, req *campaign.UpdateRequest) (*domain.Campaign, error)
	Complete(ctx context.Context, id int64, actor uuid.UUID, isAdmin bool) (*domain.Campaign, error)
	Report(ctx context.Context, id int64) (*campaign.Report, error)
}

type CampaignHandler struct {
	service   CampaignService
	validator *validator.Validator
	logger    Logger
}

func NewCampaignHandler(service CampaignService, val *validator.Validator, log Logger) *CampaignHandler {
	return &CampaignHandler{service: service, validator: val, logger: log}
}

// List is public. Without a status filter only active campaigns are shown;
// status=any lists every status.
func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.CampaignFilter{
		Category:    q.Get("category"),
		CountryCode: strings.ToUpper(q.Get("country_code")),
		Page:        pageFromQuery(r),
	}

	switch status := q.Get("status"); status {
	case "":
		f.Status = domain.CampaignActive
	case "any":
	default:
		f.Status = domain.CampaignStatus(status)
		if !f.Status.Valid() {
			respondError(w, http.StatusBadRequest, "Invalid status")
			return
		}
	}

	if v := q.Get("fund_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid fund_id")
			return
		}
		f.FundID = &id
	}
	if v := q.Get("owner_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid owner_id")
			return
		}
		f.OwnerID = &id
	}

	campaigns, total, err := h.service.List(r.Context(), f)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondPage(w, "campaigns", campaigns, total, f.Page)
}

func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req campaign.CreateRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	c, err := h.service.Create(r.Context(), userID, middleware.IsAdmin(r.Context()), &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func (h *CampaignHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req campaign.UpdateRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	c, err := h.service.Update(r.Context(), id, userID, middleware.IsAdmin(r.Context()), &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *CampaignHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.service.Complete(r.Context(), id, userID, middleware.IsAdmin(r.Context()))
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *CampaignHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	report, err := h.service.Report(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}
