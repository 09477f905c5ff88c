package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/qalileo/qalileo/internal/resolver"
	"go.uber.org/zap"
)

// TenantRouting is the per-request orchestration of hostname resolution
// and scope decision. Terminal actions: pass the request through
// (platform host), rewrite the path onto the tenant's internal route, or
// reject with 404. The outcome is propagated via request context, never
// via client-visible URL segments.
func TenantRouting(res *resolver.Resolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resolution, err := res.Resolve(r.Context(), r.Host)
			if err != nil {
				logger.Error("hostname resolution failed",
					zap.String("host", r.Host),
					zap.Error(err),
				)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}

			decision := resolver.DecideScope(resolution, SessionFromContext(r.Context()))
			rt := &Route{Resolution: resolution, Decision: decision}

			if resolution.PlatformHost {
				// The provider's own surface: no path mutation.
				next.ServeHTTP(w, r.WithContext(withRoute(r.Context(), rt)))
				return
			}

			if decision.Scope == resolver.ScopeNone {
				// Never default to a tenant. Unverified domains get the
				// same 404 as unknown hosts so nothing leaks, but the
				// reason is logged for operators.
				logger.Info("unresolved host rejected",
					zap.String("host", r.Host),
					zap.String("reason", string(resolution.Reason)),
				)
				writeError(w, http.StatusNotFound, "tenant not found")
				return
			}

			if decision.Degraded {
				logger.Warn("degraded fallback resolution",
					zap.String("host", r.Host),
					zap.String("tenant_id", decision.TenantID.String()),
				)
			}

			slug := resolution.Tenant.Slug
			if !pathEncodesTenant(r.URL.Path, slug) {
				rewritten := "/" + slug + r.URL.Path
				if r.URL.Path == "/" {
					rewritten = "/" + slug
				}
				r.URL.Path = rewritten
			}

			next.ServeHTTP(w, r.WithContext(withRoute(r.Context(), rt)))
		})
	}
}

// pathEncodesTenant guards against double-rewriting when the incoming
// path already carries the tenant slug prefix.
func pathEncodesTenant(path, slug string) bool {
	prefix := "/" + slug
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
