package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// ErrNoCredential is returned by an Authenticator when a request carries no
// recognizable credential. Callers treat this as Anonymous, not a failure.
var ErrNoCredential = errors.New("auth: no credential presented")

// Authenticator turns the headers of an inbound request into a Token. It is
// the one collaborator the gateway consults before planning an operation.
type Authenticator interface {
	Authenticate(headers http.Header) (Token, error)
}

// JWTAuthenticator reads the Authorization header, expecting a "Bearer "
// prefix, and parses the remainder as a JWT using Keyfunc to resolve the
// signing key. A missing header yields Anonymous; a malformed or invalid
// token is a hard error.
type JWTAuthenticator struct {
	Keyfunc jwt.Keyfunc
	// ValidMethods restricts accepted signing algorithms, mirroring
	// jwt.WithValidMethods. Leave nil to accept the key's own choice.
	ValidMethods []string
}

// NewJWTAuthenticator builds a JWTAuthenticator that looks up each token's
// verification key through keyfunc.
func NewJWTAuthenticator(keyfunc jwt.Keyfunc) *JWTAuthenticator {
	return &JWTAuthenticator{Keyfunc: keyfunc}
}

func (a *JWTAuthenticator) Authenticate(headers http.Header) (Token, error) {
	raw := headers.Get("Authorization")
	if raw == "" {
		return Anonymous(), nil
	}
	bearer, ok := strings.CutPrefix(raw, "Bearer ")
	if !ok {
		return Token{}, errors.New("auth: Authorization header is not a bearer token")
	}
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		return Anonymous(), nil
	}

	var opts []jwt.ParserOption
	if len(a.ValidMethods) > 0 {
		opts = append(opts, jwt.WithValidMethods(a.ValidMethods))
	}

	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(bearer, claims, a.Keyfunc, opts...); err != nil {
		return Token{}, err
	}
	return Token{Kind: KindClaims, Claims: claims}, nil
}

// OpaqueAuthenticator forwards whatever follows "Bearer " verbatim, without
// interpreting it, for subgraphs that validate credentials themselves.
type OpaqueAuthenticator struct{}

func (OpaqueAuthenticator) Authenticate(headers http.Header) (Token, error) {
	raw := headers.Get("Authorization")
	if raw == "" {
		return Anonymous(), nil
	}
	bearer, ok := strings.CutPrefix(raw, "Bearer ")
	if !ok || strings.TrimSpace(bearer) == "" {
		return Anonymous(), nil
	}
	return Token{Kind: KindBytes, Bytes: []byte(strings.TrimSpace(bearer))}, nil
}
