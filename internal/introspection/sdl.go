// Package introspection serves GraphQL's standard __schema/__type
// metaqueries against a composed supergraph. The introspection types and
// the two root fields are folded into the schema itself as one ordinary
// virtual subgraph (SubgraphName), so the solver and planner treat
// __schema/__type exactly like any other field — no special-casing
// outside this package.
package introspection

import "github.com/hanpama/gatewaycore/internal/schema"

// SubgraphName is the virtual subgraph every introspection field resolves
// through.
const SubgraphName = "__introspection"

// Subgraph returns the schema.SubgraphInput that adds the introspection
// types and root fields to a supergraph build. Pass it to
// schema.BuildSupergraph alongside every real subgraph's input.
func Subgraph() schema.SubgraphInput {
	return schema.SubgraphInput{Name: SubgraphName, Kind: schema.SubgraphVirtual, SDL: introspectionSDL}
}

const introspectionSDL = `
type Query {
	__schema: __Schema!
	__type(name: String!): __Type
}

type __Schema {
	description: String
	types: [__Type!]!
	queryType: __Type!
	mutationType: __Type
	subscriptionType: __Type
	directives: [__Directive!]!
}

type __Type {
	kind: __TypeKind!
	name: String
	description: String
	fields(includeDeprecated: Boolean = false): [__Field!]
	interfaces: [__Type!]
	possibleTypes: [__Type!]
	enumValues(includeDeprecated: Boolean = false): [__EnumValue!]
	inputFields(includeDeprecated: Boolean = false): [__InputValue!]
	ofType: __Type
	specifiedByURL: String
}

type __Field {
	name: String!
	description: String
	args(includeDeprecated: Boolean = false): [__InputValue!]!
	type: __Type!
	isDeprecated: Boolean!
	deprecationReason: String
}

type __InputValue {
	name: String!
	description: String
	type: __Type!
	defaultValue: String
	isDeprecated: Boolean!
	deprecationReason: String
}

type __EnumValue {
	name: String!
	description: String
	isDeprecated: Boolean!
	deprecationReason: String
}

type __Directive {
	name: String!
	description: String
	isRepeatable: Boolean!
	locations: [__DirectiveLocation!]!
	args(includeDeprecated: Boolean = false): [__InputValue!]!
}

enum __TypeKind {
	SCALAR
	OBJECT
	INTERFACE
	UNION
	ENUM
	INPUT_OBJECT
	LIST
	NON_NULL
}

enum __DirectiveLocation {
	QUERY
	MUTATION
	SUBSCRIPTION
	FIELD
	FRAGMENT_DEFINITION
	FRAGMENT_SPREAD
	INLINE_FRAGMENT
	VARIABLE_DEFINITION
	SCHEMA
	SCALAR
	OBJECT
	FIELD_DEFINITION
	ARGUMENT_DEFINITION
	INTERFACE
	UNION
	ENUM
	ENUM_VALUE
	INPUT_OBJECT
	INPUT_FIELD_DEFINITION
}
`
