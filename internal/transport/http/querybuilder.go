package http

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hanpama/gatewaycore/internal/operation"
	"github.com/hanpama/gatewaycore/internal/planner"
	"github.com/hanpama/gatewaycore/internal/schema"
)

// buildOperation turns p plus its already-computed representations into the
// GraphQL document and variables a subgraph's HTTP endpoint expects. Every
// argument value is lifted into a variable rather than inlined as a literal,
// which sidesteps GraphQL literal-escaping entirely and lets subgraphs reuse
// their own query cache across requests that only differ by argument value.
func buildOperation(s *schema.Schema, p *planner.Partition, representations []map[string]any) (query string, variables map[string]any) {
	b := &queryBuilder{schema: s, variables: map[string]any{}}
	var body strings.Builder

	if p.EntryKey != schema.NoKeyID {
		key := s.Key(p.EntryKey)
		typeName := s.Type(key.ParentType).Name

		body.WriteString("query($representations: [_Any!]!) { _entities(representations: $representations) { ... on ")
		body.WriteString(typeName)
		body.WriteString(" { ")
		b.writeFields(&body, p.Fields)
		body.WriteString("} } }")

		reps := make([]any, len(representations))
		for i, r := range representations {
			rep := make(map[string]any, len(r)+1)
			for k, v := range r {
				rep[k] = v
			}
			rep["__typename"] = typeName
			reps[i] = rep
		}
		b.variables["representations"] = reps
		return body.String(), b.variables
	}

	keyword := "query"
	if p.MutationIndex >= 0 {
		keyword = "mutation"
	}
	body.WriteString(keyword)
	body.WriteString(" { ")
	b.writeFields(&body, p.Fields)
	body.WriteString("}")
	return body.String(), b.variables
}

// queryBuilder accumulates variables while serializing a field tree, so that
// every bound argument across the whole document gets a distinct $v<N> name.
type queryBuilder struct {
	schema    *schema.Schema
	variables map[string]any
	varSeq    int
}

func (b *queryBuilder) nextVar(value any) string {
	b.varSeq++
	name := fmt.Sprintf("v%d", b.varSeq)
	b.variables[name] = value
	return name
}

func (b *queryBuilder) writeFields(out *strings.Builder, fields []*operation.Field) {
	for _, f := range fields {
		b.writeField(out, f)
		out.WriteByte(' ')
	}
}

func (b *queryBuilder) writeField(out *strings.Builder, f *operation.Field) {
	if f.IsTypename {
		out.WriteString("__typename")
		return
	}

	name := b.schema.Field(f.Definition).Name
	if f.ResponseKey != name {
		out.WriteString(f.ResponseKey)
		out.WriteString(": ")
	}
	out.WriteString(name)

	if len(f.Arguments) > 0 {
		argNames := make([]string, 0, len(f.Arguments))
		for argName := range f.Arguments {
			argNames = append(argNames, argName)
		}
		sort.Strings(argNames)

		out.WriteByte('(')
		for i, argName := range argNames {
			if i > 0 {
				out.WriteByte(',')
			}
			varName := b.nextVar(f.Arguments[argName])
			out.WriteString(argName)
			out.WriteString(": $")
			out.WriteString(varName)
		}
		out.WriteByte(')')
	}

	if len(f.Selection) > 0 {
		out.WriteString(" { ")
		b.writeFields(out, f.Selection)
		out.WriteString("}")
	}
}
