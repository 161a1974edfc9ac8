package handler

import (
	"context"
	"net/http"

	"sadaka/internal/domain"
	"sadaka/internal/user"
	"sadaka/pkg/validator"

	"github.com/google/uuid"
)

type UserService interface {
	Register(ctx context.Context, req *user.RegisterRequest) (*user.TokenResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Update(ctx context.Context, id uuid.UUID, req *user.UpdateRequest) (*domain.User, error)
}

type UserHandler struct {
	service   UserService
	validator *validator.Validator
	logger    Logger
}

func NewUserHandler(service UserService, val *validator.Validator, log Logger) *UserHandler {
	return &UserHandler{service: service, validator: val, logger: log}
}

// Register creates the account and returns its first access token.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req user.RegisterRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	resp, err := h.service.Register(r.Context(), &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	u, err := h.service.Get(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, u)
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req user.UpdateRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	u, err := h.service.Update(r.Context(), userID, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, u)
}
