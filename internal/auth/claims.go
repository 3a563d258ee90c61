package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// Claims is the structured payload of a parsed bearer token. It embeds the
// standard registered claims and adds the one non-standard claim the
// planner actually consults: scope, carried either as a space-delimited
// string (the common OAuth2 convention) or as a JSON array of strings.
type Claims struct {
	jwt.RegisteredClaims
	Scope  string   `json:"scope,omitempty"`
	Scopes []string `json:"scopes,omitempty"`
}

// scopeList normalizes Scope/Scopes into a single slice, splitting Scope
// on whitespace the way OAuth2 access tokens encode it.
func (c *Claims) scopeList() []string {
	if c == nil {
		return nil
	}
	var out []string
	if c.Scope != "" {
		out = append(out, strings.Fields(c.Scope)...)
	}
	out = append(out, c.Scopes...)
	return out
}

// hasScope reports whether the claims grant the given scope.
func (c *Claims) hasScope(scope string) bool {
	for _, s := range c.scopeList() {
		if s == scope {
			return true
		}
	}
	return false
}
