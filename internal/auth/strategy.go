package auth

import (
	"errors"
	"net/http"
	"strings"
)

// ErrNoToken indicates the request carried no bearer token.
var ErrNoToken = errors.New("authorization token not provided")

// Strategy resolves the authenticated identity of an incoming request. The
// variant is chosen once at startup; there is no runtime toggle.
type Strategy interface {
	Authenticate(r *http.Request) (Identity, error)
}

// RealStrategy authenticates via bearer JWTs issued by the TokenManager.
type RealStrategy struct {
	tokens *TokenManager
}

// NewRealStrategy builds the production authentication strategy.
func NewRealStrategy(tokens *TokenManager) *RealStrategy {
	return &RealStrategy{tokens: tokens}
}

func (s *RealStrategy) Authenticate(r *http.Request) (Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return Identity{}, ErrNoToken
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header || strings.TrimSpace(token) == "" {
		return Identity{}, ErrInvalidToken
	}
	return s.tokens.Parse(strings.TrimSpace(token))
}

// FixedIdentityStrategy resolves every request to one configured identity.
// Demo and test environments only; never enabled by default.
type FixedIdentityStrategy struct {
	identity Identity
}

// NewFixedIdentityStrategy builds a strategy that always answers with the
// given identity.
func NewFixedIdentityStrategy(identity Identity) *FixedIdentityStrategy {
	return &FixedIdentityStrategy{identity: identity}
}

func (s *FixedIdentityStrategy) Authenticate(_ *http.Request) (Identity, error) {
	return s.identity, nil
}
