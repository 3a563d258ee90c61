// Package schema holds the composed supergraph model that every later
// pipeline stage (operation preparation, solving, planning, execution)
// walks read-only.
//
// A single-service schema can afford to keep every type and field behind a
// pointer in a map[string]*Type. A federation supergraph needs the
// reverse: many fields resolvable from several
// subgraphs, cross-references walked repeatedly by the solver, and a
// shape that a solution-space graph can index directly. So types, fields,
// arguments, keys, and resolvers all live in flat arenas addressed by
// small integer IDs, and every cross-reference is an ID instead of a
// pointer. There is no cycle in this representation that a pointer graph
// could not also express; the arenas exist so the solver and planner can
// address nodes with an int instead of chasing pointers, and so the whole
// schema can be built once, read by many goroutines concurrently, and
// never mutated again.
package schema

import (
	"sync"

	"github.com/vektah/gqlparser/v2/ast"
)

// TypeID identifies an entry in Schema.Types, regardless of kind.
type TypeID int

// FieldID identifies an entry in Schema.Fields.
type FieldID int

// ArgumentID identifies an entry in Schema.Arguments.
type ArgumentID int

// EnumValueID identifies an entry in Schema.EnumValues.
type EnumValueID int

// DirectiveID is declared for directive definitions; Schema has no
// directive-definition arena, and nothing in the package uses this type.
type DirectiveID int

// SubgraphID identifies an entry in Schema.Subgraphs.
type SubgraphID int

// KeyID identifies an entry in Schema.Keys.
type KeyID int

// ResolverID identifies an entry in Schema.Resolvers.
type ResolverID int

const NoTypeID TypeID = -1

// NoKeyID marks a resolver/assignment/partition that does not enter through
// an entity lookup (the zero KeyID value is a legitimate arena index, so
// absence needs its own sentinel).
const NoKeyID KeyID = -1

// TypeKind mirrors the standard GraphQL type-system kinds.
type TypeKind uint8

const (
	KindScalar TypeKind = iota
	KindObject
	KindInterface
	KindUnion
	KindEnum
	KindInputObject
)

func (k TypeKind) String() string {
	switch k {
	case KindScalar:
		return "SCALAR"
	case KindObject:
		return "OBJECT"
	case KindInterface:
		return "INTERFACE"
	case KindUnion:
		return "UNION"
	case KindEnum:
		return "ENUM"
	case KindInputObject:
		return "INPUT_OBJECT"
	default:
		return "UNKNOWN"
	}
}

// WrapKind describes one layer of a field or argument's type wrapping.
type WrapKind uint8

const (
	WrapNamed WrapKind = iota
	WrapNonNull
	WrapList
)

// Wrapping is a flattened type reference: a stack of wrapping layers ending
// in a named type ID, read outermost-first. E.g. `[String!]!` is
// [NonNull, List, NonNull, Named(String)]. A slice is cheaper to copy and
// compare than a linked chain of type-reference nodes.
type Wrapping struct {
	Layers []WrapKind
	Named  TypeID
}

// IsNonNull reports whether the outermost layer is Non-Null.
func (w Wrapping) IsNonNull() bool {
	return len(w.Layers) > 0 && w.Layers[0] == WrapNonNull
}

// IsList reports whether the type is, or is directly wrapped in, a list.
func (w Wrapping) IsList() bool {
	for _, l := range w.Layers {
		if l == WrapList {
			return true
		}
		if l == WrapNonNull {
			continue
		}
		break
	}
	return false
}

// Unwrap removes one layer (outermost-first) and returns the remainder.
func (w Wrapping) Unwrap() Wrapping {
	if len(w.Layers) == 0 {
		return w
	}
	return Wrapping{Layers: w.Layers[1:], Named: w.Named}
}

// NamedType is the innermost named type this wrapping refers to.
func (w Wrapping) NamedType() TypeID { return w.Named }

func NonNull(w Wrapping) Wrapping {
	return Wrapping{Layers: append([]WrapKind{WrapNonNull}, w.Layers...), Named: w.Named}
}

func ListOf(w Wrapping) Wrapping {
	return Wrapping{Layers: append([]WrapKind{WrapList}, w.Layers...), Named: w.Named}
}

func Named(id TypeID) Wrapping { return Wrapping{Named: id} }

// Subgraph is one federated service the gateway can route fields to.
type Subgraph struct {
	ID      SubgraphID
	Name    string
	URL     string
	Kind    SubgraphKind
	Headers []HeaderRule
}

// SubgraphKind distinguishes GraphQL-over-HTTP subgraphs from in-process
// extension/virtual subgraphs resolved via the gRPC/protoreflect transport
// (see internal/grpcrt).
type SubgraphKind uint8

const (
	SubgraphGraphQL SubgraphKind = iota
	SubgraphVirtual
)

// HeaderRuleKind enumerates how a request header is treated when forwarded
// to a subgraph.
type HeaderRuleKind uint8

const (
	HeaderForward HeaderRuleKind = iota
	HeaderInsert
	HeaderRemove
	HeaderRename
)

type HeaderRule struct {
	Kind  HeaderRuleKind
	Name  string // header name for Forward/Remove/Rename (source name), or the name to insert for Insert
	Value string // literal value for Insert
	To    string // target name for Rename
}

// FieldSetItem is one leaf or nested field within a @key/@requires/
// @provides field set.
type FieldSetItem struct {
	Field    FieldID
	Children FieldSet // non-empty for selections into a composite field
}

// FieldSet is an ordered, deterministic field selection used by keys,
// @requires, and @provides directive applications.
type FieldSet []FieldSetItem

// Key is one `@key(fields: "...")` application: a subgraph declares it can
// resolve ParentType given the listed fields.
type Key struct {
	ID         KeyID
	ParentType TypeID
	Subgraph   SubgraphID
	Fields     FieldSet
	Resolvable bool // false for `@key(fields: "...", resolvable: false)`
}

// ResolverKind distinguishes how a resolver reaches its subgraph.
type ResolverKind uint8

const (
	ResolverGraphQL ResolverKind = iota
	ResolverEntityLookup
	ResolverExtension
)

// ResolverDefinition is one concrete way to resolve Field from Subgraph:
// either as a root/child GraphQL field, an `_entities` lookup keyed by Key,
// or a virtual-subgraph extension call. The solver turns these into
// ProvidableField candidates in the solution-space graph.
type ResolverDefinition struct {
	ID         ResolverID
	Field      FieldID
	Subgraph   SubgraphID
	Kind       ResolverKind
	Key        KeyID // valid when Kind == ResolverEntityLookup
	Requires   FieldSet
	Provides   FieldSet
	Overridden bool // true when another subgraph's @override makes this resolver unusable
}

// DirectiveUse is one application of a directive to a field, carried as
// opaque name+argument data. BuildSupergraph keeps only the closed set in
// passthroughDirectiveNames (@authenticated, @requiresScopes) and drops
// every other application; applications on types are not recorded.
type DirectiveUse struct {
	Name string
	Args map[string]any
}

// FieldDefinition is one field on an object or interface.
type FieldDefinition struct {
	ID          FieldID
	Name        string
	Parent      TypeID
	Type        Wrapping
	Arguments   []ArgumentID
	Resolvers   []ResolverID
	Directives  []DirectiveUse
	Inaccessible bool
	Shareable    bool
	Deprecated   bool
	DeprecationReason string
	Description string
}

type ArgumentDefinition struct {
	ID           ArgumentID
	Name         string
	Type         Wrapping
	DefaultValue any
	Description  string
}

type EnumValueDefinition struct {
	ID                EnumValueID
	Name              string
	Description       string
	Deprecated        bool
	DeprecationReason string
}

// TypeDefinition is one named type in the supergraph. Only the fields
// relevant to Kind are populated.
type TypeDefinition struct {
	ID               TypeID
	Name             string
	Kind             TypeKind
	Description      string
	Fields           []FieldID   // Object, Interface
	Interfaces       []TypeID    // Object, Interface
	PossibleTypes    []TypeID    // Interface, Union
	EnumValues       []EnumValueID
	InputFields      []ArgumentID // reuses ArgumentDefinition shape for input values
	Keys             []KeyID      // Object, Interface: entity keys across subgraphs
	OnlyResolvableIn []SubgraphID // non-empty restricts an entity to specific subgraphs
	Inaccessible     bool
}

// Schema is the immutable, arena-indexed composed supergraph. Once built
// by BuildSupergraph it is never mutated; concurrent readers (the solver,
// the operation preparer, introspection) need no locking.
type Schema struct {
	QueryType        TypeID
	MutationType     TypeID
	SubscriptionType TypeID

	Types      []TypeDefinition
	Fields     []FieldDefinition
	Arguments  []ArgumentDefinition
	EnumValues []EnumValueDefinition
	Subgraphs  []Subgraph
	Keys       []Key
	Resolvers  []ResolverDefinition

	byName         map[string]TypeID
	fieldsByParent map[TypeID]map[string]FieldID

	// astOnce/astSchema/astErr memoize ASTSchema's gqlparser.LoadSchema
	// call: Schema is read by many goroutines and never mutated after
	// BuildSupergraph returns, so building the validator-facing view once
	// and sharing it is safe and avoids re-parsing the rendered SDL on
	// every prepared operation.
	astOnce   sync.Once
	astSchema *ast.Schema
	astErr    error
}

func (s *Schema) Type(id TypeID) *TypeDefinition {
	if int(id) < 0 || int(id) >= len(s.Types) {
		return nil
	}
	return &s.Types[id]
}

func (s *Schema) Field(id FieldID) *FieldDefinition {
	if int(id) < 0 || int(id) >= len(s.Fields) {
		return nil
	}
	return &s.Fields[id]
}

func (s *Schema) Argument(id ArgumentID) *ArgumentDefinition {
	if int(id) < 0 || int(id) >= len(s.Arguments) {
		return nil
	}
	return &s.Arguments[id]
}

func (s *Schema) Subgraph(id SubgraphID) *Subgraph {
	if int(id) < 0 || int(id) >= len(s.Subgraphs) {
		return nil
	}
	return &s.Subgraphs[id]
}

func (s *Schema) Key(id KeyID) *Key {
	if int(id) < 0 || int(id) >= len(s.Keys) {
		return nil
	}
	return &s.Keys[id]
}

func (s *Schema) Resolver(id ResolverID) *ResolverDefinition {
	if int(id) < 0 || int(id) >= len(s.Resolvers) {
		return nil
	}
	return &s.Resolvers[id]
}

// TypeByName looks up a named type, ok=false if absent.
func (s *Schema) TypeByName(name string) (TypeID, bool) {
	id, ok := s.byName[name]
	return id, ok
}

// FieldByName looks up a field on parent by name.
func (s *Schema) FieldByName(parent TypeID, name string) (FieldID, bool) {
	m, ok := s.fieldsByParent[parent]
	if !ok {
		return 0, false
	}
	id, ok := m[name]
	return id, ok
}

func (s *Schema) QueryTypeDef() *TypeDefinition {
	if s.QueryType == NoTypeID {
		return nil
	}
	return s.Type(s.QueryType)
}

func (s *Schema) MutationTypeDef() *TypeDefinition {
	if s.MutationType == NoTypeID {
		return nil
	}
	return s.Type(s.MutationType)
}

func (s *Schema) SubscriptionTypeDef() *TypeDefinition {
	if s.SubscriptionType == NoTypeID {
		return nil
	}
	return s.Type(s.SubscriptionType)
}

// ResolvableKey returns the resolvable @key entry subgraph declares for
// parentType, if any. The solver uses this to route a field resolved by a
// subgraph that only declares it directly (Kind == ResolverGraphQL, as
// federation type extensions do) through an entity lookup anyway, since
// reaching any field on an entity type from a different subgraph context
// always requires one.
func (s *Schema) ResolvableKey(parentType TypeID, subgraph SubgraphID) (KeyID, bool) {
	for _, k := range s.Keys {
		if k.ParentType == parentType && k.Subgraph == subgraph && k.Resolvable {
			return k.ID, true
		}
	}
	return NoKeyID, false
}

// ResolversForField returns the resolver definitions for a field that are
// not overridden, in arena order (deterministic: arena order is assignment
// order during BuildSupergraph, which walks subgraphs in sorted-name
// order).
func (s *Schema) ResolversForField(field FieldID) []*ResolverDefinition {
	fd := s.Field(field)
	if fd == nil {
		return nil
	}
	out := make([]*ResolverDefinition, 0, len(fd.Resolvers))
	for _, rid := range fd.Resolvers {
		r := s.Resolver(rid)
		if r != nil && !r.Overridden {
			out = append(out, r)
		}
	}
	return out
}

// buildIndexes recomputes byName and fieldsByParent from the arenas; called
// once at the end of BuildSupergraph.
func (s *Schema) buildIndexes() {
	s.byName = make(map[string]TypeID, len(s.Types))
	for _, t := range s.Types {
		s.byName[t.Name] = t.ID
	}
	s.fieldsByParent = make(map[TypeID]map[string]FieldID, len(s.Types))
	for _, f := range s.Fields {
		m, ok := s.fieldsByParent[f.Parent]
		if !ok {
			m = make(map[string]FieldID)
			s.fieldsByParent[f.Parent] = m
		}
		m[f.Name] = f.ID
	}
}
