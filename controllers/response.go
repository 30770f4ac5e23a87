package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"leasekeeper/services"
	"leasekeeper/utils"

	"github.com/gorilla/mux"
)

// ErrorResponse - тело ответа с ошибкой
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.LogError("Ошибка при записи ответа: %v", err)
	}
}

// writeError переводит ошибку сервиса в HTTP статус
func writeError(w http.ResponseWriter, err error) {
	var validationErr *services.ValidationError

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: validationErr.Messages})
	case errors.Is(err, services.ErrValidation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrInUse), errors.Is(err, services.ErrEmailTaken), services.IsDuplicate(err):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		utils.GetMetrics().RecordError(err)
		utils.LogError("Внутренняя ошибка: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

// pathID читает числовой параметр маршрута
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	if err != nil || id == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// queryUint читает необязательный числовой параметр запроса
func queryUint(r *http.Request, name string) (*uint, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	id := uint(v)
	return &id, nil
}

// queryInt читает необязательный целый параметр запроса
func queryInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
