package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/qalileo/qalileo/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service sentinels onto the HTTP error taxonomy.
// Unknown errors become an opaque 500: internal causes are never included
// in response bodies.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrTenantNotFound),
		errors.Is(err, service.ErrDomainNotFound),
		errors.Is(err, service.ErrDocNotFound),
		errors.Is(err, service.ErrStaffNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, service.ErrSlugTaken),
		errors.Is(err, service.ErrDomainTaken),
		errors.Is(err, service.ErrTenantHasDomain),
		errors.Is(err, service.ErrStaffExists),
		errors.Is(err, service.ErrDocSlugTaken):
		writeError(w, http.StatusConflict, err.Error())

	case errors.Is(err, service.ErrStaffPermission),
		errors.Is(err, service.ErrOwnerImmutable),
		errors.Is(err, service.ErrReadOnly):
		writeError(w, http.StatusForbidden, err.Error())

	case errors.Is(err, service.ErrTenantNameEmpty),
		errors.Is(err, service.ErrSlugInvalid),
		errors.Is(err, service.ErrSlugReserved),
		errors.Is(err, service.ErrStaffRoleInvalid),
		errors.Is(err, service.ErrDomainInvalid),
		errors.Is(err, service.ErrDomainReserved),
		errors.Is(err, service.ErrDocTitleEmpty),
		errors.Is(err, service.ErrDocSlugInvalid),
		errors.Is(err, service.ErrDocStatusInvalid):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, service.ErrProviderUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())

	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
