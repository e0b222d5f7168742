package mockservice

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

const tokenTTL = time.Hour

// signingSalt makes issued tokens tamper-evident. The tokens carry no real
// secrets; this service only ever holds made-up data.
const signingSalt = "mock-api-service"

type tokenClaims struct {
	Sub  string `json:"sub"`
	Name string `json:"name"`
	Role string `json:"role"`
	Iat  int64  `json:"iat"`
	Exp  int64  `json:"exp"`
}

type account struct {
	password string
	name     string
	role     string
}

// Built-in credentials accepted by POST /auth/token.
var accounts = map[string]account{
	"admin":    {password: "admin123", name: "Site Admin", role: "admin"},
	"testuser": {password: "password123", name: "Test User", role: "user"},
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	acct, ok := accounts[req.Username]
	if !ok || acct.password != req.Password {
		w.Header().Set("WWW-Authenticate", `Bearer realm="mock"`)
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "unknown username or wrong password")
		return
	}
	ttl := tokenTTL
	if req.TTLSeconds != 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": s.issueToken(req.Username, acct, ttl),
		"token_type":   "Bearer",
		"expires_in":   int(ttl.Seconds()),
	})
}

func (s *Server) issueToken(username string, acct account, ttl time.Duration) string {
	now := time.Now()
	return encodeToken(tokenClaims{
		Sub:  username,
		Name: acct.name,
		Role: acct.role,
		Iat:  now.Unix(),
		Exp:  now.Add(ttl).Unix(),
	})
}

func encodeToken(claims tokenClaims) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload, _ := json.Marshal(claims)
	body := base64.RawURLEncoding.EncodeToString(payload)
	return header + "." + body + "." + signature(header, body)
}

func signature(header, body string) string {
	sum := sha256.Sum256([]byte(header + "." + body + "." + signingSalt))
	return base64.RawURLEncoding.EncodeToString(sum[:16])
}

func (s *Server) verifyToken(raw string) (tokenClaims, error) {
	if s.cfg.StaticToken != "" && raw == s.cfg.StaticToken {
		return tokenClaims{Sub: "static", Name: "Static Token", Role: "admin"}, nil
	}
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return tokenClaims{}, errors.New("token is not in JWT form")
	}
	if parts[2] != signature(parts[0], parts[1]) {
		return tokenClaims{}, errors.New("token signature mismatch")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return tokenClaims{}, errors.New("token payload is not valid base64")
	}
	var claims tokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return tokenClaims{}, errors.New("token payload is not valid JSON")
	}
	if time.Now().Unix() >= claims.Exp {
		return tokenClaims{}, errors.New("token is expired")
	}
	return claims, nil
}

type claimsContextKey struct{}

// requireAuth rejects requests without a valid bearer token and stores the
// verified claims in the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(auth, prefix) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="mock"`)
			writeError(w, http.StatusUnauthorized, "missing_token", "Authorization header with a bearer token is required")
			return
		}
		claims, err := s.verifyToken(strings.TrimPrefix(auth, prefix))
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			writeError(w, http.StatusUnauthorized, "invalid_token", err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsContextKey{}, claims)))
	})
}

func requestClaims(r *http.Request) tokenClaims {
	claims, _ := r.Context().Value(claimsContextKey{}).(tokenClaims)
	return claims
}

// requireAdmin writes a 403 and returns false unless the request carries the
// admin role.
func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if requestClaims(r).Role == "admin" {
		return true
	}
	writeError(w, http.StatusForbidden, "forbidden", "this operation requires the admin role")
	return false
}
