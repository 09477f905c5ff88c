package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/qalileo/qalileo/internal/resolver"
)

// SessionAuth verifies an optional bearer token issued by the auth
// provider and puts the resulting session into the request context. A
// missing token is fine (public-site requests are anonymous); a present
// but invalid token is rejected so callers never operate on a half-read
// identity.
func SessionAuth(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			sess, err := parseSession(parts[1], key)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid session token")
				return
			}

			next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess)))
		})
	}
}

func parseSession(tokenString string, key []byte) (*resolver.Session, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, jwt.ErrTokenInvalidClaims
	}

	sess := &resolver.Session{UserID: userID}
	if raw, ok := claims["tenant_id"].(string); ok {
		tenantID, err := uuid.Parse(raw)
		if err != nil {
			return nil, jwt.ErrTokenInvalidClaims
		}
		sess.TenantID = tenantID
	}
	return sess, nil
}
