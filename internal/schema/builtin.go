package schema

// builtinScalarNames lists the scalar types every supergraph carries
// regardless of what subgraphs declare.
var builtinScalarNames = []struct {
	Name        string
	Description string
}{
	{"String", "The `String` scalar type represents textual data, represented as UTF-8 character sequences."},
	{"Int", "The `Int` scalar type represents non-fractional signed whole numeric values."},
	{"Float", "The `Float` scalar type represents signed double-precision fractional values."},
	{"Boolean", "The `Boolean` scalar type represents `true` or `false`."},
	{"ID", "The `ID` scalar type represents a unique identifier, often used to refetch an object or as a key for caching."},
}

// federationDirectiveNames are directive applications the composer
// interprets itself and never forwards into FieldDefinition.Directives.
var federationDirectiveNames = map[string]bool{
	"key":            true,
	"requires":       true,
	"provides":       true,
	"external":       true,
	"shareable":      true,
	"override":       true,
	"inaccessible":   true,
	"tag":            true,
	"extends":        true,
}

// passthroughDirectiveNames are directive applications the gateway keeps
// opaque on FieldDefinition.Directives for internal/auth's Authorize to
// consult (spec.md §6.3 authorization collaborator).
var passthroughDirectiveNames = map[string]bool{
	"authenticated":  true,
	"requiresScopes": true,
}
