package httpapi

import (
	"net/http"

	"github.com/dputra/mailroom/internal/server/models"
)

type historyResponse struct {
	History []models.Package `json:"history"`
}

// ListHistory handles GET /api/v1/history, the permanent pickup register.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.custody.ListHistory(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{History: history})
}
