package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/qalileo/qalileo/internal/api/middleware"
	"github.com/qalileo/qalileo/internal/domain"
	"github.com/qalileo/qalileo/internal/resolver"
	"github.com/qalileo/qalileo/internal/service"
)

// DocsHandler serves the staff-side documentation CRUD on the platform
// host.
type DocsHandler struct {
	svc *service.DocsService
}

func NewDocsHandler(svc *service.DocsService) *DocsHandler {
	return &DocsHandler{svc: svc}
}

func (h *DocsHandler) List(w http.ResponseWriter, r *http.Request) {
	dec, _, ok := requireStaff(w, r)
	if !ok {
		return
	}

	docs, err := h.svc.List(r.Context(), dec.TenantID, dec.Scope)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if docs == nil {
		docs = []domain.DocumentationSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": docs})
}

func (h *DocsHandler) Get(w http.ResponseWriter, r *http.Request) {
	dec, _, ok := requireStaff(w, r)
	if !ok {
		return
	}

	doc, err := h.svc.Get(r.Context(), dec.TenantID, dec.Scope, chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": doc})
}

type docRequest struct {
	Title    string           `json:"title"`
	Slug     string           `json:"slug"`
	Sections []domain.Section `json:"sections"`
}

func (h *DocsHandler) Create(w http.ResponseWriter, r *http.Request) {
	dec, sess, ok := requireStaff(w, r)
	if !ok {
		return
	}

	var req docRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.svc.Create(r.Context(), dec, req.Title, req.Slug, req.Sections, sess.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": doc})
}

func (h *DocsHandler) Update(w http.ResponseWriter, r *http.Request) {
	dec, _, ok := requireStaff(w, r)
	if !ok {
		return
	}

	var req docRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.svc.Update(r.Context(), dec, chi.URLParam(r, "slug"), req.Title, req.Sections)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": doc})
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (h *DocsHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	dec, _, ok := requireStaff(w, r)
	if !ok {
		return
	}

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.svc.SetStatus(r.Context(), dec, chi.URLParam(r, "slug"), domain.DocStatus(req.Status))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": doc})
}

func (h *DocsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	dec, _, ok := requireStaff(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), dec, chi.URLParam(r, "slug")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "documentation deleted"})
}

// SiteHandler serves the anonymous public site on tenant hosts. The
// tenant identity comes exclusively from the routing context; the slug
// segment the middleware rewrote into the path is never re-resolved.
type SiteHandler struct {
	svc *service.DocsService
}

func NewSiteHandler(svc *service.DocsService) *SiteHandler {
	return &SiteHandler{svc: svc}
}

// route returns the public-scope routing decision, or writes 404 when
// the request reached a site handler without one.
func (h *SiteHandler) route(w http.ResponseWriter, r *http.Request) (resolver.Decision, bool) {
	rt := middleware.RouteFromContext(r.Context())
	if rt == nil || rt.Decision.Scope != resolver.ScopePublic {
		writeError(w, http.StatusNotFound, "tenant not found")
		return resolver.Decision{}, false
	}
	return rt.Decision, true
}

func (h *SiteHandler) List(w http.ResponseWriter, r *http.Request) {
	dec, ok := h.route(w, r)
	if !ok {
		return
	}

	docs, err := h.svc.List(r.Context(), dec.TenantID, dec.Scope)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if docs == nil {
		docs = []domain.DocumentationSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": docs})
}

func (h *SiteHandler) Get(w http.ResponseWriter, r *http.Request) {
	dec, ok := h.route(w, r)
	if !ok {
		return
	}

	doc, err := h.svc.Get(r.Context(), dec.TenantID, dec.Scope, chi.URLParam(r, "docSlug"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": doc})
}
