package executor

import (
	"github.com/hanpama/gatewaycore/internal/gqlerror"
	"github.com/hanpama/gatewaycore/internal/planner"
)

// assemble walks the coordinator's raw response tree once against
// plan.Shape, applying GraphQL's Non-Null propagation rule: a violation
// nullifies the nearest nullable ancestor and is recorded as exactly one
// error. Every partition has already written (or left null) its slice of
// the tree by this point, so completion is a single bottom-up pass instead
// of one interleaved with resolution.
func (c *coordinator) assemble() (any, gqlerror.List) {
	rg := &responseGraph{}
	data := rg.completeSelection(c.plan.Shape, c.root, Path{})

	errs := make(gqlerror.List, 0, len(c.partitionErrs)+len(rg.errors))
	errs = append(errs, c.partitionErrs...)
	errs = append(errs, rg.errors...)
	return data, errs
}

type responseGraph struct {
	errors gqlerror.List
}

// completeSelection completes every child of shape against obj, returning
// the assembled object or nil if a Non-Null child violation forced this
// whole object to null.
func (rg *responseGraph) completeSelection(shape *planner.ResponseShape, obj map[string]any, path Path) map[string]any {
	if obj == nil {
		return nil
	}
	result := make(map[string]any, len(shape.Children))
	for _, child := range shape.Children {
		key := child.Field.ResponseKey
		fieldPath := appendPath(path, key)

		if child.Field.IsTypename {
			result[key] = obj[key]
			continue
		}

		completed, violated := rg.completeValue(child, obj[key], fieldPath)
		if violated {
			return nil
		}
		result[key] = completed
	}
	return result
}

// completeValue completes one field's raw value against its shape. The
// second return value reports whether a Non-Null violation occurred here
// (or in a descendant) that the caller must propagate upward.
func (rg *responseGraph) completeValue(shape *planner.ResponseShape, raw any, path Path) (any, bool) {
	if raw == nil {
		if !shape.Nullable {
			rg.errors = append(rg.errors, gqlerror.WithPath(
				gqlerror.New(gqlerror.CodeSubgraphInvalidResponse, "Cannot return null for non-nullable field %s", pathToString(path)),
				path.asAny(),
			))
			return nil, true
		}
		return nil, false
	}

	if shape.IsList {
		items, ok := raw.([]any)
		if !ok {
			rg.errors = append(rg.errors, gqlerror.WithPath(
				gqlerror.New(gqlerror.CodeSubgraphInvalidResponse, "expected list value for field %s, got %T", pathToString(path), raw),
				path.asAny(),
			))
			return nil, !shape.Nullable
		}
		out := make([]any, len(items))
		for i, item := range items {
			elemPath := appendPath(path, i)
			v, violated := rg.completeElement(shape, item, elemPath)
			if violated {
				return nil, !shape.Nullable
			}
			out[i] = v
		}
		return out, false
	}

	return rg.completeElement(shape, raw, path)
}

// completeElement completes one non-list value: a leaf passes through as
// already-JSON-safe data from the subgraph transport, a concrete object
// recurses into its children, and a polymorphic shape dispatches on the
// object's own __typename.
func (rg *responseGraph) completeElement(shape *planner.ResponseShape, raw any, path Path) (any, bool) {
	if raw == nil {
		if shape.IsList && !shape.Nullable {
			rg.errors = append(rg.errors, gqlerror.WithPath(
				gqlerror.New(gqlerror.CodeSubgraphInvalidResponse, "Cannot return null for non-nullable list element %s", pathToString(path)),
				path.asAny(),
			))
			return nil, true
		}
		return nil, false
	}

	if len(shape.Children) == 0 && shape.ByTypename == nil {
		return raw, false
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		rg.errors = append(rg.errors, gqlerror.WithPath(
			gqlerror.New(gqlerror.CodeSubgraphInvalidResponse, "expected object value for field %s, got %T", pathToString(path), raw),
			path.asAny(),
		))
		return nil, true
	}

	target := shape
	if shape.Kind == planner.ShapePolymorphic {
		typename, _ := obj["__typename"].(string)
		concrete, ok := shape.ByTypename[typename]
		if !ok {
			rg.errors = append(rg.errors, gqlerror.WithPath(
				gqlerror.New(gqlerror.CodeSubgraphInvalidResponse, "no response shape registered for concrete type %q at %s", typename, pathToString(path)),
				path.asAny(),
			))
			return nil, true
		}
		target = concrete
	}

	completed := rg.completeSelection(target, obj, path)
	if completed == nil {
		return nil, true
	}
	return completed, false
}
