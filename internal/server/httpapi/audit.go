package httpapi

import (
	"net/http"

	"github.com/dputra/mailroom/internal/server/models"
	"github.com/dputra/mailroom/internal/server/services"
)

type auditResponse struct {
	Logs []models.AuditRecord `json:"logs"`
}

// ListAudit handles GET /api/v1/audit. Records come back newest-first;
// actor/action/q query parameters filter in memory.
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	filter := services.AuditFilter{
		Actor:  r.URL.Query().Get("actor"),
		Action: r.URL.Query().Get("action"),
		Query:  r.URL.Query().Get("q"),
	}

	logs, err := h.audit.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, auditResponse{Logs: logs})
}
