// Package middleware resolves the caller identity used by the saved-prospect endpoints.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// userIDKey is the context key for storing the resolved user id.
const userIDKey ContextKey = "userID"

// UserHeader carries an unauthenticated user id when no token is sent.
const UserHeader = "X-User"

// TokenValidator validates a bearer token and returns its subject.
type TokenValidator interface {
	ValidateToken(tokenString string) (string, error)
}

// HMACTokens issues and validates HS256 tokens whose subject is the user id.
type HMACTokens struct {
	secret []byte
}

// NewHMACTokens creates a token service for secret.
func NewHMACTokens(secret string) *HMACTokens {
	return &HMACTokens{secret: []byte(secret)}
}

// IssueToken signs a token for userID valid for ttl.
func (h *HMACTokens) IssueToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// ValidateToken checks the signature and expiry and returns the subject.
func (h *HMACTokens) ValidateToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", fmt.Errorf("token string is empty")
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return h.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", fmt.Errorf("token expired: %w", err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "", fmt.Errorf("malformed token: %w", err)
	case err != nil:
		return "", fmt.Errorf("failed to parse token: %w", err)
	case !token.Valid:
		return "", fmt.Errorf("token is not valid")
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return claims.Subject, nil
}

// Identity resolves the user id of each request: the subject of a bearer
// token when a validator is configured, else the X-User header, else
// defaultUser. A bearer token that fails validation is rejected with 401.
func Identity(validator TokenValidator, defaultUser string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := defaultUser
			if header := strings.TrimSpace(r.Header.Get(UserHeader)); header != "" {
				userID = header
			}

			if auth := r.Header.Get("Authorization"); auth != "" && validator != nil {
				parts := strings.Fields(auth)
				if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					return
				}
				subject, err := validator.ValidateToken(parts[1])
				if err != nil {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					return
				}
				userID = subject
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID returns a context carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID extracts the resolved user id from the request context.
func GetUserID(r *http.Request) (string, error) {
	userID, ok := r.Context().Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in request context")
	}
	return userID, nil
}
