package auth

import (
	"github.com/hanpama/gatewaycore/internal/gqlerror"
	"github.com/hanpama/gatewaycore/internal/operation"
	"github.com/hanpama/gatewaycore/internal/schema"
)

const (
	directiveAuthenticated  = "authenticated"
	directiveRequiresScopes = "requiresScopes"
)

// Authorize walks a prepared selection set and checks every field carrying
// @authenticated or @requiresScopes against tok, returning one error per
// field that the token does not satisfy. It never mutates sel, since sel
// may be shared across requests through the operation cache: the same
// Prepared value is authorized fresh for every caller.
func Authorize(s *schema.Schema, sel operation.SelectionSet, tok Token) gqlerror.List {
	var errs gqlerror.List
	authorizeSelection(s, sel, tok, nil, &errs)
	return errs
}

func authorizeSelection(s *schema.Schema, sel operation.SelectionSet, tok Token, path []any, errs *gqlerror.List) {
	for _, f := range sel {
		fieldPath := append(append([]any{}, path...), f.ResponseKey)
		if def := s.Field(f.Definition); def != nil {
			for _, d := range def.Directives {
				checkDirective(d, tok, fieldPath, errs)
			}
		}
		if len(f.Selection) > 0 {
			authorizeSelection(s, f.Selection, tok, fieldPath, errs)
		}
	}
}

func checkDirective(d schema.DirectiveUse, tok Token, path []any, errs *gqlerror.List) {
	switch d.Name {
	case directiveAuthenticated:
		if !tok.IsAuthenticated() {
			*errs = append(*errs, gqlerror.WithPath(
				gqlerror.New(gqlerror.CodeUnauthenticated, "%s requires authentication", fieldPathString(path)),
				path,
			))
		}
	case directiveRequiresScopes:
		if !satisfiesRequiredScopes(d.Args, tok.GrantedScopes()) {
			*errs = append(*errs, gqlerror.WithPath(
				gqlerror.New(gqlerror.CodeUnauthorized, "%s requires additional scopes", fieldPathString(path)),
				path,
			))
		}
	}
}

// satisfiesRequiredScopes implements the federation @requiresScopes
// semantics: scopes is a list of scope lists, each inner list an AND group
// and the outer list an OR across groups — granted must satisfy at least
// one group in full.
func satisfiesRequiredScopes(args map[string]any, granted []string) bool {
	groups, ok := args["scopes"].([]any)
	if !ok || len(groups) == 0 {
		return true
	}
	grantedSet := make(map[string]bool, len(granted))
	for _, g := range granted {
		grantedSet[g] = true
	}
	for _, group := range groups {
		scopes, ok := group.([]any)
		if !ok {
			continue
		}
		satisfied := true
		for _, sc := range scopes {
			name, _ := sc.(string)
			if !grantedSet[name] {
				satisfied = false
				break
			}
		}
		if satisfied {
			return true
		}
	}
	return false
}

func fieldPathString(path []any) string {
	s := ""
	for i, p := range path {
		if i > 0 {
			s += "."
		}
		if str, ok := p.(string); ok {
			s += str
		}
	}
	return s
}
