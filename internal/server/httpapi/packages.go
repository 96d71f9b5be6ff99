package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dputra/mailroom/internal/common"
	"github.com/dputra/mailroom/internal/server/models"
	"github.com/dputra/mailroom/internal/server/services"
)

// Multipart parse budget: the 5 MiB evidence cap plus form overhead.
const maxPickupFormSize = services.MaxEvidenceSize + (1 << 20)

type packageResponse struct {
	Package *models.Package `json:"package"`
	// Override marks responses of the administrative status path, which
	// bypasses the pickup-evidence requirement.
	Override bool `json:"override,omitempty"`
}

type packagesResponse struct {
	Packages []models.Package `json:"packages"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// RegisterPackage handles POST /api/v1/packages.
func (h *Handler) RegisterPackage(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, common.ErrorUnauthorized)
		return
	}

	var req services.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", common.ErrorValidation))
		return
	}

	pkg, err := h.custody.Register(r.Context(), req, actor)
	if err != nil {
		CustodyTransitionsTotal.WithLabelValues(models.ActionCreate, "error").Inc()
		writeError(w, err)
		return
	}

	CustodyTransitionsTotal.WithLabelValues(models.ActionCreate, "ok").Inc()
	writeJSON(w, http.StatusCreated, packageResponse{Package: pkg})
}

// ListPackages handles GET /api/v1/packages.
func (h *Handler) ListPackages(w http.ResponseWriter, r *http.Request) {
	packages, err := h.custody.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, packagesResponse{Packages: packages})
}

// GetPackage handles GET /api/v1/packages/{id}.
func (h *Handler) GetPackage(w http.ResponseWriter, r *http.Request) {
	pkg, err := h.custody.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, packageResponse{Package: pkg})
}

// UpdatePackageStatus handles PUT /api/v1/packages/{id}/status.
func (h *Handler) UpdatePackageStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, common.ErrorUnauthorized)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", common.ErrorValidation))
		return
	}

	pkg, err := h.custody.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status, actor)
	if err != nil {
		CustodyTransitionsTotal.WithLabelValues(models.ActionStatusChange, "error").Inc()
		writeError(w, err)
		return
	}

	CustodyTransitionsTotal.WithLabelValues(models.ActionStatusChange, "ok").Inc()
	writeJSON(w, http.StatusOK, packageResponse{Package: pkg, Override: true})
}

// RecordPickup handles POST /api/v1/packages/{id}/pickup. The multipart
// body carries a single "photo" image field.
func (h *Handler) RecordPickup(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, common.ErrorUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxPickupFormSize); err != nil {
		writeError(w, fmt.Errorf("%w: invalid multipart body", common.ErrorValidation))
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, fmt.Errorf("%w: photo is required", common.ErrorValidation))
		return
	}
	defer file.Close()

	photo, err := io.ReadAll(io.LimitReader(file, services.MaxEvidenceSize+1))
	if err != nil {
		writeError(w, fmt.Errorf("%w: reading photo: %v", common.ErrorValidation, err))
		return
	}

	pkg, err := h.custody.RecordPickup(r.Context(), chi.URLParam(r, "id"), actor, photo, header.Header.Get("Content-Type"))
	if err != nil {
		result := "error"
		if errors.Is(err, common.ErrorInvalidState) {
			result = "conflict"
		}
		CustodyTransitionsTotal.WithLabelValues(models.ActionPickup, result).Inc()
		writeError(w, err)
		return
	}

	CustodyTransitionsTotal.WithLabelValues(models.ActionPickup, "ok").Inc()
	writeJSON(w, http.StatusOK, packageResponse{Package: pkg})
}

// DeletePackage handles DELETE /api/v1/packages/{id}.
func (h *Handler) DeletePackage(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, common.ErrorUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.custody.Remove(r.Context(), id, actor); err != nil {
		CustodyTransitionsTotal.WithLabelValues(models.ActionDelete, "error").Inc()
		writeError(w, err)
		return
	}

	CustodyTransitionsTotal.WithLabelValues(models.ActionDelete, "ok").Inc()
	writeJSON(w, http.StatusOK, map[string]string{"message": "package deleted"})
}
