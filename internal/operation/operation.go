// Package operation implements the gateway's operation preparer: parse,
// validate, bind, and coerce a request into a standalone, immutable value
// that is produced once per distinct operation and can be cached across
// requests.
package operation

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/vektah/gqlparser/v2/validator"

	"github.com/hanpama/gatewaycore/internal/gqlerror"
	"github.com/hanpama/gatewaycore/internal/language"
	"github.com/hanpama/gatewaycore/internal/schema"
)

// Field is one bound selection: a response key paired with the arena
// field it resolves to, its coerced arguments, and (for composite types)
// its child selection. This is the shape the solver (internal/solver)
// walks to build the solution-space graph, bound directly to schema IDs
// rather than raw AST field nodes.
type Field struct {
	ResponseKey  string
	Definition   schema.FieldID
	Arguments    map[string]any
	Selection    SelectionSet
	IsTypename   bool
	ParentType   schema.TypeID
}

// SelectionSet is a type-merged, skip/include-resolved list of fields, one
// entry per distinct response key, merged across fragments that target
// different but compatible types.
type SelectionSet []*Field

// Prepared is the output of the preparer: a document-shaped, schema-bound
// operation plus its coerced variables, ready for solving. The Fingerprint
// is a deterministic content hash suitable for an operation cache key.
type Prepared struct {
	OperationName string
	OperationType language.Operation
	RootType      schema.TypeID
	Selection     SelectionSet
	Variables     map[string]any
	Fingerprint   uint64
}

// Prepare parses, validates, binds, and coerces a request into a Prepared
// operation. schemaBuildID identifies the supergraph build the operation
// is bound against, folded into the fingerprint so a cache never serves an
// operation prepared against a stale schema.
func Prepare(s *schema.Schema, schemaBuildID string, query string, operationName string, variableValues map[string]any) (*Prepared, error) {
	doc, err := language.ParseQuery(query)
	if err != nil {
		return nil, gqlerror.List{gqlerror.New(gqlerror.CodeOperationValidationError, "%v", err)}
	}

	if err := validateDocument(s, doc); err != nil {
		return nil, err
	}

	opDef, err := selectOperation(doc, operationName)
	if err != nil {
		return nil, gqlerror.List{gqlerror.New(gqlerror.CodeOperationValidationError, "%v", err)}
	}

	if err := checkLimits(doc, opDef.SelectionSet, DefaultLimits); err != nil {
		return nil, gqlerror.List{gqlerror.New(gqlerror.CodeOperationValidationError, "%v", err)}
	}

	rootType, err := rootTypeFor(s, opDef.Operation)
	if err != nil {
		return nil, gqlerror.List{gqlerror.New(gqlerror.CodeOperationValidationError, "%v", err)}
	}

	vars, err := coerceVariableValues(s, opDef, variableValues)
	if err != nil {
		return nil, gqlerror.List{gqlerror.New(gqlerror.CodeOperationValidationError, "%v", err)}
	}

	binder := &binder{schema: s, doc: doc, variables: vars}
	sel, err := binder.bind(rootType, opDef.SelectionSet)
	if err != nil {
		return nil, gqlerror.List{gqlerror.New(gqlerror.CodeOperationValidationError, "%v", err)}
	}

	return &Prepared{
		OperationName: opDef.Name,
		OperationType: opDef.Operation,
		RootType:      rootType,
		Selection:     sel,
		Variables:     vars,
		Fingerprint:   Fingerprint(schemaBuildID, operationName, query),
	}, nil
}

// Fingerprint computes the content-addressed cache key for an operation:
// xxhash over (schema build id, operation name, document text). See
// DESIGN.md for why xxhash stands in for blake3 here.
func Fingerprint(schemaBuildID, operationName, query string) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(schemaBuildID)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(operationName)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(query)
	return h.Sum64()
}

// validateDocument runs every standard GraphQL validation rule
// (gqlparser/v2/validator: unique operation/fragment names, known
// fields/arguments/directives, type conformance, fragment cycles and
// reachability, variable usage, and the rest) against the client-facing
// schema s renders for this purpose (schema.Schema.ASTSchema). Operation
// limits are a separate, cheaper pass (checkLimits) that only runs once the
// document is known to be structurally sound.
func validateDocument(s *schema.Schema, doc *language.QueryDocument) error {
	astSchema, err := s.ASTSchema()
	if err != nil {
		return gqlerror.List{gqlerror.New(gqlerror.CodeInternalServerError, "supergraph schema unavailable for validation: %v", err)}
	}
	errs := validator.Validate(astSchema, doc)
	if len(errs) == 0 {
		return nil
	}
	out := make(gqlerror.List, 0, len(errs))
	for _, e := range errs {
		out = append(out, gqlerror.New(gqlerror.CodeOperationValidationError, "%s", e.Message))
	}
	return out
}

func selectOperation(doc *language.QueryDocument, name string) (*language.OperationDefinition, error) {
	if len(doc.Operations) == 0 {
		return nil, fmt.Errorf("document contains no operations")
	}
	if name == "" {
		if len(doc.Operations) == 1 {
			return doc.Operations[0], nil
		}
		return nil, fmt.Errorf("operation name is required when a document defines multiple operations")
	}
	for _, op := range doc.Operations {
		if op.Name == name {
			return op, nil
		}
	}
	return nil, fmt.Errorf("unknown operation %q", name)
}

func rootTypeFor(s *schema.Schema, op language.Operation) (schema.TypeID, error) {
	switch op {
	case language.Query:
		if s.QueryType == schema.NoTypeID {
			return 0, fmt.Errorf("schema has no query root type")
		}
		return s.QueryType, nil
	case language.Mutation:
		if s.MutationType == schema.NoTypeID {
			return 0, fmt.Errorf("schema has no mutation root type")
		}
		return s.MutationType, nil
	case language.Subscription:
		if s.SubscriptionType == schema.NoTypeID {
			return 0, fmt.Errorf("schema has no subscription root type")
		}
		return s.SubscriptionType, nil
	default:
		return 0, fmt.Errorf("unknown operation kind")
	}
}
