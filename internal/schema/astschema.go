package schema

import (
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// ASTSchema renders the supergraph back to SDL and loads it through
// gqlparser's own schema loader, giving internal/operation a *ast.Schema it
// can hand to gqlparser/v2/validator.Validate: the gateway's arena model
// has no use for gqlparser's schema representation during composition or
// solving, but standard GraphQL validation is only defined in terms of it.
// The result is built once and cached on s.
func (s *Schema) ASTSchema() (*ast.Schema, error) {
	s.astOnce.Do(func() {
		s.astSchema, s.astErr = gqlparser.LoadSchema(&ast.Source{Name: "supergraph.graphql", Input: Render(s)})
	})
	return s.astSchema, s.astErr
}
