// Package httpapi exposes the custody core over the REST surface consumed
// by the external UI layer.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dputra/mailroom/internal/common"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeErrorMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorBody{Error: message})
}

// writeError maps the service error taxonomy onto HTTP status codes.
// Caller mistakes (validation, state conflicts) echo the full message;
// auth and infrastructure failures return a fixed phrase so internal
// details stay out of responses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrorInvalidAuthHeaderFormat):
		writeErrorMessage(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrorForbidden):
		writeErrorMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		writeErrorMessage(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrorInvalidState):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, common.ErrorTimeout):
		writeErrorMessage(w, http.StatusGatewayTimeout, "dependency timeout")
	default:
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}
