package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/qalileo/qalileo/internal/service"
)

type DomainHandler struct {
	svc *service.DomainService
}

func NewDomainHandler(svc *service.DomainService) *DomainHandler {
	return &DomainHandler{svc: svc}
}

type registerDomainRequest struct {
	Domain string `json:"domain"`
}

func (h *DomainHandler) Register(w http.ResponseWriter, r *http.Request) {
	dec, sess, ok := requireStaff(w, r)
	if !ok {
		return
	}

	var req registerDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Domain == "" {
		writeError(w, http.StatusBadRequest, "domain is required")
		return
	}

	d, err := h.svc.Register(r.Context(), dec.TenantID, sess.UserID, req.Domain)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *DomainHandler) List(w http.ResponseWriter, r *http.Request) {
	dec, _, ok := requireStaff(w, r)
	if !ok {
		return
	}

	domains, err := h.svc.ListForTenant(r.Context(), dec.TenantID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": domains})
}

// Refresh re-queries the provisioning provider and returns the domain
// with its possibly advanced state.
func (h *DomainHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	dec, _, ok := requireStaff(w, r)
	if !ok {
		return
	}

	domainID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid domain id")
		return
	}

	d, err := h.svc.RefreshStatus(r.Context(), dec.TenantID, domainID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DomainHandler) Remove(w http.ResponseWriter, r *http.Request) {
	dec, sess, ok := requireStaff(w, r)
	if !ok {
		return
	}

	domainID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid domain id")
		return
	}

	if err := h.svc.Remove(r.Context(), dec.TenantID, sess.UserID, domainID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "domain removed"})
}

// Verify reports whether the request's Host is a configured custom
// domain. Public, and answers false for the platform host itself since
// reserved hostnames can never enter the registry.
func (h *DomainHandler) Verify(w http.ResponseWriter, r *http.Request) {
	configured, err := h.svc.Configured(r.Context(), r.Host)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"configured": configured})
}
