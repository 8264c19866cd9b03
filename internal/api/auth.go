package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const subjectContextKey = contextKey("subject")

var errMissingToken = errors.New("missing authentication token")

// GenerateToken creates an HS256 token for subject, valid for ttl.
func GenerateToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is not configured")
	}
	if subject == "" {
		return "", errors.New("subject is required")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func (s *Server) authEnabled() bool { return len(s.jwtSecret) > 0 }

// authenticate returns the token subject of r.
func (s *Server) authenticate(r *http.Request) (string, error) {
	// 1. Check Authorization header (Bearer <token>)
	var tokenString string
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		tokenString = strings.TrimPrefix(authHeader, "Bearer ")
	}

	// 2. Fallback to cookie
	if tokenString == "" {
		if cookie, err := r.Cookie("token"); err == nil {
			tokenString = cookie.Value
		}
	}

	if tokenString == "" {
		return "", errMissingToken
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid authentication token: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("invalid authentication token: no subject")
	}
	return claims.Subject, nil
}

// requireAuthHandler rejects unauthenticated requests when auth is enabled
// and attaches the token subject to the request context.
func (s *Server) requireAuthHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		subject, err := s.authenticate(r)
		if err != nil {
			s.rejectAuth(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), subjectContextKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) rejectAuth(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errMissingToken) {
		respondError(w, http.StatusUnauthorized, "missing authentication token")
		return
	}
	s.logger.DebugContext(r.Context(), "rejected token", "error", err)
	respondError(w, http.StatusUnauthorized, "invalid authentication token")
}

// getSubject extracts the token subject from the request context.
func getSubject(r *http.Request) string {
	if val, ok := r.Context().Value(subjectContextKey).(string); ok {
		return val
	}
	return ""
}
