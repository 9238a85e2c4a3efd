package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MinTokenLength is the shortest admin token HashToken accepts.
const MinTokenLength = 16

var (
	// ErrUnauthorized indicates the presented admin token was missing or wrong.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrWeakToken indicates a token too short to be hashed for admin use.
	ErrWeakToken = fmt.Errorf("admin token must be at least %d characters", MinTokenLength)
)

// TokenVerifier checks bearer tokens against a bcrypt hash. A nil verifier
// rejects every token, which disables admin endpoints.
type TokenVerifier struct {
	hash []byte
}

// NewTokenVerifier parses a bcrypt hash produced by HashToken. An empty hash
// returns a nil verifier.
func NewTokenVerifier(hash string) (*TokenVerifier, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, nil
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("parse admin token hash: %w", err)
	}
	return &TokenVerifier{hash: []byte(hash)}, nil
}

// Verify returns ErrUnauthorized unless token matches the stored hash.
func (v *TokenVerifier) Verify(token string) error {
	if v == nil || token == "" {
		return ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(token)); err != nil {
		return ErrUnauthorized
	}
	return nil
}

// VerifyRequest extracts the bearer token from r and verifies it.
func (v *TokenVerifier) VerifyRequest(r *http.Request) error {
	token, ok := BearerToken(r)
	if !ok {
		return ErrUnauthorized
	}
	return v.Verify(token)
}

// HashToken produces the bcrypt hash stored in configuration.
func HashToken(token string) (string, error) {
	return hashToken(token, bcrypt.DefaultCost)
}

func hashToken(token string, cost int) (string, error) {
	if len(token) < MinTokenLength {
		return "", ErrWeakToken
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	if err != nil {
		return "", fmt.Errorf("hash admin token: %w", err)
	}
	return string(hashed), nil
}

// BearerToken returns the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
