package planner

import (
	"github.com/hanpama/gatewaycore/internal/operation"
	"github.com/hanpama/gatewaycore/internal/schema"
)

// ShapeKind distinguishes a fixed object shape from one that dispatches on
// `__typename` at response-assembly time.
type ShapeKind uint8

const (
	ShapeConcrete ShapeKind = iota
	ShapePolymorphic
)

// ResponseShape describes, independent of any single partition's result,
// how to assemble a response subtree: which response keys exist, whether
// each is a leaf/object/list, and — for interface/union fields — which
// concrete shape applies per observed `__typename`. Compiling this once
// (rather than re-walking the bound operation for every response object)
// is what lets the coordinator merge partition results with zero-copy
// dispatch.
type ResponseShape struct {
	Kind        ShapeKind
	Field       *operation.Field // nil for the synthetic top-level shape
	IsList      bool
	Nullable    bool
	Children    []*ResponseShape          // ShapeConcrete: fixed set of child shapes
	ByTypename  map[string]*ResponseShape // ShapePolymorphic: dispatch table
}

func buildShape(s *schema.Schema, sel operation.SelectionSet) *ResponseShape {
	root := &ResponseShape{Kind: ShapeConcrete, Nullable: true}
	for _, f := range sel {
		root.Children = append(root.Children, buildFieldShape(s, f))
	}
	return root
}

func buildFieldShape(s *schema.Schema, f *operation.Field) *ResponseShape {
	shape := &ResponseShape{Field: f}

	if f.IsTypename {
		shape.Kind = ShapeConcrete
		shape.Nullable = false
		return shape
	}

	WrappingShape(shape, s.Field(f.Definition).Type)

	named := s.Type(s.Field(f.Definition).Type.Named)
	if named.Kind == schema.KindInterface || named.Kind == schema.KindUnion {
		// The binder (internal/operation/bind.go) merges every inline
		// fragment into one flat, interface-typed selection rather than
		// keeping per-concrete-type children, so every concrete shape
		// dispatches through the same field list today; ByTypename still
		// gives the response graph one entry per possible type to grow
		// into once the binder carries per-fragment type conditions.
		shape.Kind = ShapePolymorphic
		shape.ByTypename = map[string]*ResponseShape{}
		common := &ResponseShape{Kind: ShapeConcrete, Field: f, IsList: shape.IsList, Nullable: shape.Nullable}
		for _, child := range f.Selection {
			common.Children = append(common.Children, buildFieldShape(s, child))
		}
		for _, possible := range named.PossibleTypes {
			shape.ByTypename[s.Type(possible).Name] = common
		}
		return shape
	}

	shape.Kind = ShapeConcrete
	for _, child := range f.Selection {
		shape.Children = append(shape.Children, buildFieldShape(s, child))
	}
	return shape
}

// WrappingShape annotates IsList/Nullable on a shape from its schema type;
// kept as a separate step so buildFieldShape stays focused on structure.
func WrappingShape(shape *ResponseShape, w schema.Wrapping) {
	shape.IsList = w.IsList()
	shape.Nullable = !w.IsNonNull()
}
