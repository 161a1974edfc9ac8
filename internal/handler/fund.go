package handler

import (
	"context"
	"net/http"
	"strings"

	"sadaka/internal/domain"
	"sadaka/internal/fund"
	"sadaka/pkg/validator"
)

type FundService interface {
	Create(ctx context.Context, req *fund.CreateRequest) (*domain.Fund, error)
	Get(ctx context.Context, id int64) (*domain.Fund, error)
	List(ctx context.Context, f domain.FundFilter) ([]*domain.Fund, int, error)
	Update(ctx context.Context, id int64, req *fund.UpdateRequest) (*domain.Fund, error)
}

type FundHandler struct {
	service   FundService
	validator *validator.Validator
	logger    Logger
}

func NewFundHandler(service FundService, val *validator.Validator, log Logger) *FundHandler {
	return &FundHandler{service: service, validator: val, logger: log}
}

func (h *FundHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.FundFilter{
		CountryCode: strings.ToUpper(q.Get("country_code")),
		Purpose:     strings.ToLower(q.Get("purpose")),
		OnlyActive:  q.Get("include_inactive") != "true",
		Page:        pageFromQuery(r),
	}
	funds, total, err := h.service.List(r.Context(), f)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondPage(w, "funds", funds, total, f.Page)
}

func (h *FundHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	f, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, f)
}

func (h *FundHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req fund.CreateRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	f, err := h.service.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, f)
}

func (h *FundHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req fund.UpdateRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	f, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, f)
}
