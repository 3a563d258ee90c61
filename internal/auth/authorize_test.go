package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/gatewaycore/internal/operation"
	"github.com/hanpama/gatewaycore/internal/schema"
)

func buildAuthTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.BuildSupergraph([]schema.SubgraphInput{
		{Name: "accounts", Kind: schema.SubgraphVirtual, SDL: `
			type Query {
				public: String!
				me: User! @authenticated
			}
			type User @key(fields: "id") {
				id: ID!
				name: String!
				ssn: String! @requiresScopes(scopes: [["read:pii"]])
			}
		`},
	})
	require.NoError(t, err)
	return s
}

func fieldByName(t *testing.T, s *schema.Schema, typeName, name string) schema.FieldID {
	t.Helper()
	for _, typ := range s.Types {
		if typ.Name != typeName {
			continue
		}
		for _, fid := range typ.Fields {
			if s.Field(fid).Name == name {
				return fid
			}
		}
	}
	t.Fatalf("field %s.%s not found", typeName, name)
	return 0
}

func TestAuthorize_AuthenticatedFieldRejectsAnonymous(t *testing.T) {
	s := buildAuthTestSchema(t)
	sel := operation.SelectionSet{
		{ResponseKey: "me", Definition: fieldByName(t, s, "Query", "me")},
	}
	errs := Authorize(s, sel, Anonymous())
	require.Len(t, errs, 1)
	require.Equal(t, "UNAUTHENTICATED", string(errs[0].Code()))
}

func TestAuthorize_AuthenticatedFieldAllowsAnyToken(t *testing.T) {
	s := buildAuthTestSchema(t)
	sel := operation.SelectionSet{
		{ResponseKey: "me", Definition: fieldByName(t, s, "Query", "me")},
	}
	tok := Token{Kind: KindBytes, Bytes: []byte("svc-key")}
	require.Empty(t, Authorize(s, sel, tok))
}

func TestAuthorize_RequiresScopesRejectsMissingScope(t *testing.T) {
	s := buildAuthTestSchema(t)
	sel := operation.SelectionSet{
		{ResponseKey: "me", Definition: fieldByName(t, s, "Query", "me"), Selection: operation.SelectionSet{
			{ResponseKey: "ssn", Definition: fieldByName(t, s, "User", "ssn")},
		}},
	}
	tok := Token{Kind: KindClaims, Claims: &Claims{Scopes: []string{"read:profile"}}}
	errs := Authorize(s, sel, tok)
	require.Len(t, errs, 1)
	require.Equal(t, "UNAUTHORIZED", string(errs[0].Code()))
	require.Equal(t, []any{"me", "ssn"}, errs[0].Path)
}

func TestAuthorize_RequiresScopesAllowsGrantedScope(t *testing.T) {
	s := buildAuthTestSchema(t)
	sel := operation.SelectionSet{
		{ResponseKey: "me", Definition: fieldByName(t, s, "Query", "me"), Selection: operation.SelectionSet{
			{ResponseKey: "ssn", Definition: fieldByName(t, s, "User", "ssn")},
		}},
	}
	tok := Token{Kind: KindClaims, Claims: &Claims{Scopes: []string{"read:pii"}}}
	require.Empty(t, Authorize(s, sel, tok))
}

func TestAuthorize_PublicFieldIgnoresAnonymous(t *testing.T) {
	s := buildAuthTestSchema(t)
	sel := operation.SelectionSet{
		{ResponseKey: "public", Definition: fieldByName(t, s, "Query", "public")},
	}
	require.Empty(t, Authorize(s, sel, Anonymous()))
}

func TestJWTAuthenticator_ParsesBearerToken(t *testing.T) {
	key := []byte("test-signing-key")
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
		Scope:            "read:pii read:profile",
	})
	signed, err := token.SignedString(key)
	require.NoError(t, err)

	auth := NewJWTAuthenticator(func(tk *jwt.Token) (any, error) { return key, nil })
	headers := http.Header{"Authorization": []string{"Bearer " + signed}}

	tok, err := auth.Authenticate(headers)
	require.NoError(t, err)
	require.Equal(t, KindClaims, tok.Kind)
	require.ElementsMatch(t, []string{"read:pii", "read:profile"}, tok.GrantedScopes())
}

func TestJWTAuthenticator_NoHeaderIsAnonymous(t *testing.T) {
	auth := NewJWTAuthenticator(func(tk *jwt.Token) (any, error) { return []byte("k"), nil })
	tok, err := auth.Authenticate(http.Header{})
	require.NoError(t, err)
	require.False(t, tok.IsAuthenticated())
}

func TestJWTAuthenticator_ExpiredTokenErrors(t *testing.T) {
	key := []byte("test-signing-key")
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	signed, err := token.SignedString(key)
	require.NoError(t, err)

	auth := NewJWTAuthenticator(func(tk *jwt.Token) (any, error) { return key, nil })
	headers := http.Header{"Authorization": []string{"Bearer " + signed}}
	_, err = auth.Authenticate(headers)
	require.Error(t, err)
}
