package introspection

import (
	"sort"

	"github.com/hanpama/gatewaycore/internal/schema"
)

// schemaNode is the root __Schema object: the composed *schema.Schema
// itself, read directly rather than copied into a parallel model.
type schemaNode struct {
	s *schema.Schema
}

// typeRef is one node of a __Type chain: either a wrapping layer
// (NON_NULL/LIST, peeled one at a time via ofType) or, once every layer is
// peeled, the named type itself.
type typeRef struct {
	s *schema.Schema
	w schema.Wrapping
}

func namedTypeRef(s *schema.Schema, id schema.TypeID) *typeRef {
	if id == schema.NoTypeID {
		return nil
	}
	return &typeRef{s: s, w: schema.Named(id)}
}

func (t *typeRef) kind() string {
	if len(t.w.Layers) > 0 {
		switch t.w.Layers[0] {
		case schema.WrapNonNull:
			return "NON_NULL"
		case schema.WrapList:
			return "LIST"
		}
	}
	return t.s.Type(t.w.Named).Kind.String()
}

func (t *typeRef) ofType() *typeRef {
	if len(t.w.Layers) == 0 {
		return nil
	}
	return &typeRef{s: t.s, w: t.w.Unwrap()}
}

func (t *typeRef) name() *string {
	if len(t.w.Layers) > 0 {
		return nil
	}
	n := t.s.Type(t.w.Named).Name
	return &n
}

func (t *typeRef) def() *schema.TypeDefinition {
	if len(t.w.Layers) > 0 {
		return nil
	}
	return t.s.Type(t.w.Named)
}

// fieldNode is one __Field object.
type fieldNode struct {
	s  *schema.Schema
	id schema.FieldID
}

// inputValueNode is one __InputValue object, backed by an
// ArgumentDefinition: this arena entry is used both for field/directive
// arguments and for input object fields, exactly as __InputValue covers
// both in the introspection spec.
type inputValueNode struct {
	s  *schema.Schema
	id schema.ArgumentID
}

// enumValueNode is one __EnumValue object.
type enumValueNode struct {
	s  *schema.Schema
	id schema.EnumValueID
}

// directiveNode describes one of the three directives every GraphQL
// document may use (@skip, @include, @deprecated). The composed schema
// does not retain directive *definitions* for directives subgraphs
// declare themselves, only DirectiveUse applications on fields, so
// __schema.directives reports exactly the built-in set.
type directiveNode struct {
	name         string
	description  string
	locations    []string
	args         []directiveArgSpec
	isRepeatable bool
}

type directiveArgSpec struct {
	name string
	typ  string // rendered as plain text since these have no backing ArgumentDefinition
}

func builtinDirectives() []directiveNode {
	return []directiveNode{
		{
			name:        "skip",
			description: "Directs the executor to skip this field or fragment when the `if` argument is true.",
			locations:   []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
			args:        []directiveArgSpec{{name: "if", typ: "Boolean!"}},
		},
		{
			name:        "include",
			description: "Directs the executor to include this field or fragment only when the `if` argument is true.",
			locations:   []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
			args:        []directiveArgSpec{{name: "if", typ: "Boolean!"}},
		},
		{
			name:        "deprecated",
			description: "Marks an element of a GraphQL schema as no longer supported.",
			locations:   []string{"FIELD_DEFINITION", "ARGUMENT_DEFINITION", "INPUT_FIELD_DEFINITION", "ENUM_VALUE"},
			args:        []directiveArgSpec{{name: "reason", typ: "String"}},
		},
	}
}

func sortedTypeIDs(s *schema.Schema) []schema.TypeID {
	ids := make([]schema.TypeID, 0, len(s.Types))
	for i := range s.Types {
		id := schema.TypeID(i)
		if s.Type(id).Inaccessible {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return s.Type(ids[i]).Name < s.Type(ids[j]).Name })
	return ids
}

func visibleFields(s *schema.Schema, ids []schema.FieldID, includeDeprecated bool) []schema.FieldID {
	out := make([]schema.FieldID, 0, len(ids))
	for _, id := range ids {
		fd := s.Field(id)
		if fd.Inaccessible {
			continue
		}
		if fd.Deprecated && !includeDeprecated {
			continue
		}
		out = append(out, id)
	}
	return out
}

func visibleEnumValues(s *schema.Schema, ids []schema.EnumValueID, includeDeprecated bool) []schema.EnumValueID {
	out := make([]schema.EnumValueID, 0, len(ids))
	for _, id := range ids {
		ev := s.EnumValue(id)
		if ev.Deprecated && !includeDeprecated {
			continue
		}
		out = append(out, id)
	}
	return out
}

func boolArg(args map[string]any, name string, def bool) bool {
	v, ok := args[name]
	if !ok || v == nil {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}
