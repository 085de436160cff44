package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const claimsContextKey contextKey = "claims"

const (
	claimSubjectID = "sub_id"
	claimRole      = "role"
)

// Caller roles. Organizers drive the bracket; participant tokens are minted
// by the registration service for check-ins and result submission.
const (
	RoleOrganizer   = "organizer"
	RoleParticipant = "participant"
)

// Authenticate verifies the Bearer token and stores its claims in the
// request context.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authorize allows only the named roles through.
func Authorize(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, err := CallerRole(r.Context())
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			for _, allowed := range roles {
				if allowed == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
}

func claimsFromContext(ctx context.Context) (jwt.MapClaims, error) {
	claims, ok := ctx.Value(claimsContextKey).(jwt.MapClaims)
	if !ok {
		return nil, errors.New("claims not found in context")
	}
	return claims, nil
}

// CallerID returns the authenticated caller's subject ID. For participant
// tokens this is the participant ID the registration service assigned.
func CallerID(ctx context.Context) (int, error) {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return 0, err
	}
	raw, ok := claims[claimSubjectID]
	if !ok {
		return 0, fmt.Errorf("missing %q claim in token", claimSubjectID)
	}
	asFloat, ok := raw.(float64)
	if !ok || asFloat != float64(int(asFloat)) || int(asFloat) <= 0 {
		return 0, fmt.Errorf("invalid %q claim value %v", claimSubjectID, raw)
	}
	return int(asFloat), nil
}

// CallerRole returns the authenticated caller's role claim.
func CallerRole(ctx context.Context) (string, error) {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return "", err
	}
	role, ok := claims[claimRole].(string)
	if !ok {
		return "", fmt.Errorf("missing or invalid %q claim in token", claimRole)
	}
	switch role {
	case RoleOrganizer, RoleParticipant:
		return role, nil
	default:
		return "", fmt.Errorf("unknown role %q", role)
	}
}
