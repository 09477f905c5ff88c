package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/qalileo/qalileo/internal/api/middleware"
	"github.com/qalileo/qalileo/internal/domain"
	"github.com/qalileo/qalileo/internal/resolver"
	"github.com/qalileo/qalileo/internal/service"
)

type TenantHandler struct {
	svc *service.TenantService
}

func NewTenantHandler(svc *service.TenantService) *TenantHandler {
	return &TenantHandler{svc: svc}
}

// requireStaff returns the staff-scope decision and session for the
// request, writing the error response itself when the caller is not an
// authenticated staff member on the platform host.
func requireStaff(w http.ResponseWriter, r *http.Request) (resolver.Decision, *resolver.Session, bool) {
	sess := middleware.SessionFromContext(r.Context())
	rt := middleware.RouteFromContext(r.Context())
	if sess == nil || rt == nil || rt.Decision.Scope != resolver.ScopeStaff {
		writeError(w, http.StatusUnauthorized, "staff session required")
		return resolver.Decision{}, nil, false
	}
	return rt.Decision, sess, true
}

type createTenantRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Create onboards a new company with the authenticated user as owner.
// Unlike the other tenant endpoints it requires a session but not an
// existing tenant membership.
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "session required")
		return
	}

	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tenant, err := h.svc.Create(r.Context(), req.Name, req.Slug, sess.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tenant)
}

func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	dec, _, ok := requireStaff(w, r)
	if !ok {
		return
	}

	tenant, err := h.svc.GetByID(r.Context(), dec.TenantID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

type updateTenantRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request) {
	dec, sess, ok := requireStaff(w, r)
	if !ok {
		return
	}

	var req updateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tenant, err := h.svc.UpdateProfile(r.Context(), dec.TenantID, sess.UserID, req.Name, req.Slug)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

type addStaffRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (h *TenantHandler) AddStaff(w http.ResponseWriter, r *http.Request) {
	dec, sess, ok := requireStaff(w, r)
	if !ok {
		return
	}

	var req addStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	tenant, err := h.svc.AddStaff(r.Context(), dec.TenantID, sess.UserID, userID, domain.StaffRole(req.Role))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

type updateStaffRoleRequest struct {
	Role string `json:"role"`
}

func (h *TenantHandler) UpdateStaffRole(w http.ResponseWriter, r *http.Request) {
	dec, sess, ok := requireStaff(w, r)
	if !ok {
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req updateStaffRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tenant, err := h.svc.UpdateStaffRole(r.Context(), dec.TenantID, sess.UserID, userID, domain.StaffRole(req.Role))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

func (h *TenantHandler) RemoveStaff(w http.ResponseWriter, r *http.Request) {
	dec, sess, ok := requireStaff(w, r)
	if !ok {
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	tenant, err := h.svc.RemoveStaff(r.Context(), dec.TenantID, sess.UserID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

type transferOwnershipRequest struct {
	UserID string `json:"user_id"`
}

func (h *TenantHandler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	dec, sess, ok := requireStaff(w, r)
	if !ok {
		return
	}

	var req transferOwnershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	tenant, err := h.svc.TransferOwnership(r.Context(), dec.TenantID, sess.UserID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}
