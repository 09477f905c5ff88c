package middleware

import (
	"context"

	"github.com/qalileo/qalileo/internal/resolver"
)

type contextKey string

const (
	routeContextKey   contextKey = "route"
	sessionContextKey contextKey = "session"
)

// Route is the per-request routing outcome computed once by the tenant
// routing middleware. Downstream handlers read tenant identity and scope
// from here only; nothing re-derives them from the raw Host header.
type Route struct {
	Resolution resolver.Resolution
	Decision   resolver.Decision
}

func RouteFromContext(ctx context.Context) *Route {
	rt, _ := ctx.Value(routeContextKey).(*Route)
	return rt
}

func withRoute(ctx context.Context, rt *Route) context.Context {
	return context.WithValue(ctx, routeContextKey, rt)
}

func SessionFromContext(ctx context.Context) *resolver.Session {
	s, _ := ctx.Value(sessionContextKey).(*resolver.Session)
	return s
}

func withSession(ctx context.Context, s *resolver.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}
