// Package solver builds the solution-space graph over a bound operation
// (Root / QueryField / Resolver / ProvidableField nodes) and runs a
// deterministic, greedy directed-Steiner-tree approximation over it to
// choose one resolver per requested field.
//
// The node vocabulary is kept explicit in NodeKind below even though the
// search itself walks the bound operation tree directly rather than
// materializing a separate adjacency structure first: every field in a
// selection set has at most a handful of candidate resolvers, so the
// dominating cost is the same either way, and recursion keeps the one
// subtlety that matters, tie-break determinism, easy to verify by
// inspection. No materialized graph is built, so re-running the search
// means re-walking the operation.
package solver

import (
	"fmt"
	"sort"

	"github.com/hanpama/gatewaycore/internal/gqlerror"
	"github.com/hanpama/gatewaycore/internal/operation"
	"github.com/hanpama/gatewaycore/internal/schema"
)

// NodeKind names the solution-space node kinds, for diagnostics and for
// the planner to reason about without re-deriving them from the bound
// tree.
type NodeKind uint8

const (
	NodeRoot NodeKind = iota
	NodeQueryField
	NodeResolver
	NodeProvidableField
)

// Assignment is the resolver chosen for one bound field, plus the subgraph
// context it executes in and the entity key (if any) used to reach it.
type Assignment struct {
	Field      *operation.Field
	Resolver   schema.ResolverID
	Subgraph   schema.SubgraphID
	EntryKey   schema.KeyID // valid when this assignment starts a new partition via an entity lookup
	ParentPath []string     // response-key path to the parent object, for partition grouping
	// Requires lists the parent-object fields (by schema field ID) this
	// assignment's resolver declares via @requires, which the partition
	// producing the parent object must also fetch so they can be folded
	// into the representation sent when crossing into this resolver's
	// subgraph. Empty unless this assignment crosses a subgraph boundary.
	Requires []schema.FieldID
}

// Solution is the flattened set of per-field resolver assignments the
// greedy search produced, in deterministic (depth-first, field order)
// sequence.
type Solution struct {
	RootSubgraphs []schema.SubgraphID // subgraphs touched directly by root fields, in assignment order
	Assignments   []*Assignment
}

// Solve runs the solver over prepared against s, choosing one resolver per
// bound field. It fails only when some field has no non-overridden
// resolver at all, which indicates a composition bug rather than a request
// error (see gqlerror.CodeOperationPlanningError).
func Solve(s *schema.Schema, prepared *operation.Prepared) (*Solution, error) {
	sol := &Solution{}
	w := &walker{schema: s, solution: sol, usedSubgraphsByPath: map[string]map[schema.SubgraphID]bool{}}
	if err := w.walkSelection(prepared.Selection, schema.SubgraphID(-1), nil, nil); err != nil {
		return nil, gqlerror.List{gqlerror.New(gqlerror.CodeOperationPlanningError, "%v", err)}
	}
	return sol, nil
}

type walker struct {
	schema   *schema.Schema
	solution *Solution
	// usedSubgraphsByPath remembers, for each parent object path, which
	// subgraphs have already been chosen for sibling fields — this is how
	// "fewer partitions" tie-breaking prefers reusing an open partition
	// over opening a new one.
	usedSubgraphsByPath map[string]map[schema.SubgraphID]bool
}

func pathKey(path []string) string {
	out := ""
	for _, p := range path {
		out += "/" + p
	}
	return out
}

// walkSelection assigns a resolver to every field in sel. currentSubgraph
// is the subgraph context of the parent object (-1 at the operation
// root); path is the response-key path of that parent object, used for
// ParentPath and for sibling-subgraph reuse. parentKey is not consulted.
func (w *walker) walkSelection(sel operation.SelectionSet, currentSubgraph schema.SubgraphID, path []string, parentKey *schema.KeyID) error {
	key := pathKey(path)
	used, ok := w.usedSubgraphsByPath[key]
	if !ok {
		used = map[schema.SubgraphID]bool{}
		w.usedSubgraphsByPath[key] = used
	}

	for _, f := range sel {
		if f.IsTypename {
			continue
		}
		fd := w.schema.Field(f.Definition)
		resolvers := w.schema.ResolversForField(f.Definition)
		if len(resolvers) == 0 {
			return fmt.Errorf("field %s.%s has no resolvers in the composed schema", w.schema.Type(fd.Parent).Name, fd.Name)
		}

		chosen := chooseResolver(w.schema, resolvers, currentSubgraph, used)
		used[chosen.Subgraph] = true

		a := &Assignment{Field: f, Resolver: chosen.ID, Subgraph: chosen.Subgraph, ParentPath: append([]string(nil), path...), EntryKey: schema.NoKeyID}
		if currentSubgraph == schema.SubgraphID(-1) {
			w.solution.RootSubgraphs = append(w.solution.RootSubgraphs, chosen.Subgraph)
		}

		crossesSubgraph := currentSubgraph != schema.SubgraphID(-1) && chosen.Subgraph != currentSubgraph
		switch {
		case chosen.Kind == schema.ResolverEntityLookup:
			a.EntryKey = chosen.Key
		case crossesSubgraph:
			// A field only directly declared in another subgraph (the usual
			// shape of a federation type extension) still reaches its
			// parent object through that subgraph's own entity key, even
			// though the resolver itself isn't tagged ResolverEntityLookup.
			if kid, ok := w.schema.ResolvableKey(fd.Parent, chosen.Subgraph); ok {
				a.EntryKey = kid
			}
		}

		if crossesSubgraph && len(chosen.Requires) > 0 {
			a.Requires = flattenRequiresLeaves(chosen.Requires)
		}

		w.solution.Assignments = append(w.solution.Assignments, a)

		if len(f.Selection) > 0 {
			childPath := append(append([]string(nil), path...), f.ResponseKey)
			if err := w.walkSelection(f.Selection, chosen.Subgraph, childPath, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// flattenRequiresLeaves extracts the top-level scalar/leaf fields of a
// @requires field set, dropping any entry that selects into a nested
// composite (fields.Children non-empty): those would need their own
// sub-selection wired through the producing partition and representation,
// which is not supported yet (see DESIGN.md).
func flattenRequiresLeaves(fs schema.FieldSet) []schema.FieldID {
	out := make([]schema.FieldID, 0, len(fs))
	for _, item := range fs {
		if len(item.Children) == 0 {
			out = append(out, item.Field)
		}
	}
	return out
}

// chooseResolver applies a deterministic tie-break chain: (1) a resolver
// already reachable in the current subgraph context wins outright (zero
// additional partitions); otherwise among resolvers that would open a
// partition, prefer (2) a subgraph already used by a sibling field at this
// path (fewer total partitions), then (3) lexicographically smallest
// subgraph name, then (4) smallest resolver id (see DESIGN.md for the
// reasoning).
func chooseResolver(s *schema.Schema, candidates []*schema.ResolverDefinition, currentSubgraph schema.SubgraphID, usedAtPath map[schema.SubgraphID]bool) *schema.ResolverDefinition {
	for _, r := range candidates {
		if r.Subgraph == currentSubgraph {
			return r
		}
	}
	best := make([]*schema.ResolverDefinition, len(candidates))
	copy(best, candidates)
	sort.SliceStable(best, func(i, j int) bool {
		iUsed, jUsed := usedAtPath[best[i].Subgraph], usedAtPath[best[j].Subgraph]
		if iUsed != jUsed {
			return iUsed // prefer already-used subgraphs
		}
		if iName, jName := s.Subgraph(best[i].Subgraph).Name, s.Subgraph(best[j].Subgraph).Name; iName != jName {
			return iName < jName
		}
		return best[i].ID < best[j].ID
	})
	return best[0]
}
