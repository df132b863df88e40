// Package auth provides optional API key and JWT bearer authentication
// middleware for the HTTP boundary.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// APIKeyHeader is the request header carrying the static API key.
const APIKeyHeader = "X-API-Key"

// Middleware validates requests using a static API key, a JWT signing
// secret, or both. With both configured, either credential is accepted.
// With neither configured the middleware passes everything through.
type Middleware struct {
	apiKey    string
	jwtSecret []byte
}

// New creates an authentication middleware. Empty values disable the
// corresponding scheme.
func New(apiKey, jwtSecret string) *Middleware {
	return &Middleware{
		apiKey:    apiKey,
		jwtSecret: []byte(jwtSecret),
	}
}

// Enabled reports whether any authentication scheme is configured.
func (m *Middleware) Enabled() bool {
	return m.apiKey != "" || len(m.jwtSecret) > 0
}

// Handler wraps next with credential validation.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		if m.apiKey != "" {
			if key := r.Header.Get(APIKeyHeader); key != "" {
				if subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
				unauthorized(w, "invalid API key")
				return
			}
		}

		if len(m.jwtSecret) > 0 {
			if token := bearerToken(r); token != "" {
				if err := m.validateJWT(token); err != nil {
					unauthorized(w, "invalid token")
					return
				}
				next.ServeHTTP(w, r)
				return
			}
		}

		unauthorized(w, "missing credentials")
	})
}

// validateJWT parses and verifies an HS256 token against the shared secret.
func (m *Middleware) validateJWT(token string) error {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.jwtSecret, nil
	})
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return fmt.Errorf("token is not valid")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return h[7:]
	}
	return ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
