package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"sadaka/internal/domain"
	"sadaka/internal/middleware"
	"sadaka/pkg/errors"
	"sadaka/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Logger is the subset of pkg/logger used by handlers.
type Logger interface {
	Info(message string, fields map[string]interface{})
	Error(message string, fields map[string]interface{})
	Warn(message string, fields map[string]interface{})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondValidationErrors(w http.ResponseWriter, errs map[string]string) {
	respondJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
}

func statusForKind(k errors.Kind) int {
	switch k {
	case errors.KindValidation:
		return http.StatusBadRequest
	case errors.KindNotFound:
		return http.StatusNotFound
	case errors.KindInvalidState, errors.KindConflict:
		return http.StatusConflict
	case errors.KindAuthentication:
		return http.StatusUnauthorized
	case errors.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError maps a service error to its status. Internal causes
// are logged and never sent to the client.
func respondServiceError(w http.ResponseWriter, r *http.Request, log Logger, err error) {
	status := statusForKind(errors.KindOf(err))
	if status == http.StatusInternalServerError {
		log.Error("Request failed", map[string]interface{}{
			"error":      err.Error(),
			"path":       r.URL.Path,
			"request_id": middleware.RequestIDFromContext(r.Context()),
		})
		respondError(w, status, "Internal server error")
		return
	}
	respondError(w, status, errors.MessageOf(err))
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the 400 itself and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, val *validator.Validator, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if errs := val.ValidateStructured(dst); errs != nil {
		respondValidationErrors(w, errs)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}

func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return uuid.Nil, false
	}
	return userID, true
}

func pageFromQuery(r *http.Request) domain.Page {
	p := domain.Page{}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			p.Offset = n
		}
	}
	return p.Normalize()
}

func respondPage(w http.ResponseWriter, key string, items interface{}, total int, p domain.Page) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		key:      items,
		"total":  total,
		"limit":  p.Limit,
		"offset": p.Offset,
	})
}
