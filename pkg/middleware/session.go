package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"carvio/pkg/logger"
	"carvio/pkg/model"
)

const identityKey contextKey = "identity"

// Session parses the ambient session cookie into a caller identity and
// stores it in the request context. Token issuance belongs to the external
// identity provider; this middleware only verifies the HMAC signature.
// Requests without a valid cookie pass through anonymously — route handlers
// decide whether an identity is required.
func Session(secret, cookieName string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := parseSessionToken(cookie.Value, secret)
			if err != nil {
				log.Warn("Invalid session token",
					"request_id", RequestID(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseSessionToken(tokenStr, secret string) (model.Identity, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return model.Identity{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return model.Identity{}, fmt.Errorf("invalid token claims")
	}

	email, _ := claims["email"].(string)
	if email == "" {
		return model.Identity{}, fmt.Errorf("token missing email claim")
	}
	name, _ := claims["name"].(string)

	return model.Identity{Email: email, Name: name}, nil
}

// IdentityFromContext returns the session identity, if any.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(model.Identity)
	return identity, ok && !identity.IsZero()
}
