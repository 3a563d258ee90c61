// Package planner lowers a solver.Solution into the structures the
// execution coordinator actually schedules: a Plan whose Partitions are
// subgraph-bound field groups linked by DependsOn edges plus, separately, a
// ResponseShape describing
// how to assemble those partitions' results into a response tree. Keeping
// shape and dependency graph separate (rather than re-deriving response
// structure from the live operation at execution time) is what lets the
// coordinator walk a plan without touching the AST again.
package planner

import (
	"sort"

	"github.com/hanpama/gatewaycore/internal/operation"
	"github.com/hanpama/gatewaycore/internal/schema"
	"github.com/hanpama/gatewaycore/internal/solver"
)

// PartitionID identifies one entry in Plan.Partitions.
type PartitionID int

// Partition is one batch of fields resolved against a single subgraph in
// a single round trip (a GraphQL POST, or an `_entities` lookup).
type Partition struct {
	ID         PartitionID
	Subgraph   schema.SubgraphID
	EntryKey   schema.KeyID // valid when this partition enters via an entity lookup
	ParentPath []string     // response-key path to the object this partition populates fields on
	Fields     []*operation.Field
	// Requires lists, in addition to EntryKey's own key fields, the parent
	// object fields an @requires declaration on one of this partition's
	// resolvers needs projected into the entity representation.
	Requires []schema.FieldID
	// DependsOn lists partitions that must complete before this one can
	// run: "whatever the solver's assignment graph actually requires",
	// rather than a fixed notion of depth.
	DependsOn []PartitionID
	// MutationIndex is >=0 for partitions resolving a root mutation field,
	// giving their strict left-to-right execution order; -1 otherwise.
	MutationIndex int
}

// Plan is the complete, ready-to-execute compilation of one prepared
// operation: its partition dependency graph plus the response shape each
// partition's result is merged into.
type Plan struct {
	OperationType string
	Partitions    []*Partition
	Shape         *ResponseShape
}

// Compile turns a solver.Solution into a Plan.
func Compile(s *schema.Schema, prepared *operation.Prepared, sol *solver.Solution) *Plan {
	c := &compiler{
		schema:         s,
		partitionByKey: map[string]PartitionID{},
		partitionAt:    map[string]PartitionID{},
	}
	for _, a := range sol.Assignments {
		c.place(a)
	}
	for _, p := range c.partitions {
		pruned := make([]*operation.Field, len(p.Fields))
		for i, f := range p.Fields {
			pruned[i] = c.pruneField(f, p.ParentPath, p.ID)
		}
		p.Fields = pruned
	}
	injectRequiredFields(s, c.partitions)

	if prepared.OperationType == "mutation" {
		// root-field partitions are the ones whose ParentPath is empty;
		// order them left-to-right per the operation's own field order to
		// satisfy the strict mutation-ordering invariant. Partitions are
		// never reordered in place (Partitions[k].ID == k is relied on
		// elsewhere), only their MutationIndex is assigned accordingly.
		rootOrder := map[PartitionID]int{}
		for i, f := range prepared.Selection {
			if pid, ok := c.partitionAt[pathKey([]string{f.ResponseKey})]; ok {
				if _, seen := rootOrder[pid]; !seen {
					rootOrder[pid] = i
				}
			}
		}
		var roots []PartitionID
		for _, p := range c.partitions {
			if len(p.ParentPath) == 0 {
				roots = append(roots, p.ID)
			} else {
				p.MutationIndex = -1
			}
		}
		sort.SliceStable(roots, func(i, j int) bool { return rootOrder[roots[i]] < rootOrder[roots[j]] })
		for idx, pid := range roots {
			c.partitions[pid].MutationIndex = idx
		}
	} else {
		for _, p := range c.partitions {
			p.MutationIndex = -1
		}
	}

	shape := buildShape(s, prepared.Selection)

	return &Plan{
		OperationType: string(prepared.OperationType),
		Partitions:    c.partitions,
		Shape:         shape,
	}
}

type compiler struct {
	schema         *schema.Schema
	partitions     []*Partition
	partitionByKey map[string]PartitionID
	// partitionAt maps a field's own absolute path (its ParentPath plus its
	// own response key) to the partition that resolves it, letting a child
	// field's placement look up both its parent's partition (for DependsOn)
	// and whether it can be absorbed into that same partition.
	partitionAt map[string]PartitionID
}

func pathKey(path []string) string {
	out := ""
	for _, p := range path {
		out += "/" + p
	}
	return out
}

func partitionKey(parentPath []string, subgraph schema.SubgraphID) string {
	return pathKey(parentPath) + "#" + subgraphKeyOf(subgraph)
}

func subgraphKeyOf(id schema.SubgraphID) string {
	return string(rune('A' + (int(id) % 26)))
}

// place assigns a to a partition. A field whose chosen subgraph matches the
// partition already resolving its parent object is absorbed into that same
// partition instead of starting a new one: it is already reachable through
// the parent field's own nested selection, so a real subgraph query for the
// parent partition naturally includes it. Only a subgraph switch (an entity
// lookup into another service) opens a new partition, which then depends on
// the one that produced the parent object.
func (c *compiler) place(a *solver.Assignment) {
	ownPath := pathKey(append(append([]string(nil), a.ParentPath...), a.Field.ResponseKey))
	parentPath := pathKey(a.ParentPath)

	if parentPID, ok := c.partitionAt[parentPath]; ok && c.partitions[parentPID].Subgraph == a.Subgraph {
		c.partitionAt[ownPath] = parentPID
		return
	}

	pk := partitionKey(a.ParentPath, a.Subgraph)
	pid, ok := c.partitionByKey[pk]
	if !ok {
		pid = PartitionID(len(c.partitions))
		p := &Partition{ID: pid, Subgraph: a.Subgraph, EntryKey: a.EntryKey, ParentPath: a.ParentPath}
		if parentPID, ok := c.partitionAt[parentPath]; ok && parentPID != pid {
			p.DependsOn = append(p.DependsOn, parentPID)
		}
		c.partitionByKey[pk] = pid
		c.partitions = append(c.partitions, p)
	}
	c.partitions[pid].Fields = append(c.partitions[pid].Fields, a.Field)
	c.partitions[pid].Requires = mergeFieldIDs(c.partitions[pid].Requires, a.Requires)
	c.partitionAt[ownPath] = pid
}

// mergeFieldIDs appends the ids in add that aren't already in existing,
// preserving existing's order.
func mergeFieldIDs(existing, add []schema.FieldID) []schema.FieldID {
	for _, id := range add {
		found := false
		for _, e := range existing {
			if e == id {
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, id)
		}
	}
	return existing
}

// injectRequiredFields folds each partition's @requires leaves into the
// producing partition's own pruned field tree, so the literal fields a
// dependent entity lookup needs are part of the request that produces their
// parent object, even though the client's own selection never asked for
// them. This runs after pruning, directly on the copies pruneField produced,
// so it never touches the shared bound operation tree the response shape was
// built from.
func injectRequiredFields(s *schema.Schema, partitions []*Partition) {
	byID := make(map[PartitionID]*Partition, len(partitions))
	for _, p := range partitions {
		byID[p.ID] = p
	}
	for _, p := range partitions {
		if len(p.Requires) == 0 || len(p.DependsOn) == 0 {
			continue
		}
		producer := byID[p.DependsOn[len(p.DependsOn)-1]]
		if producer == nil || len(p.ParentPath) < len(producer.ParentPath) {
			continue
		}
		rel := p.ParentPath[len(producer.ParentPath):]
		producer.Fields = spliceRequiredFields(s, producer.Fields, rel, p.Requires)
	}
}

// spliceRequiredFields descends fields along path and, once path is
// exhausted, appends a leaf field for every id in need not already selected
// there. A field found along the way is a pruneField copy private to its
// partition, so mutating its Selection in place is safe.
func spliceRequiredFields(s *schema.Schema, fields []*operation.Field, path []string, need []schema.FieldID) []*operation.Field {
	if len(path) == 0 {
		present := map[schema.FieldID]bool{}
		for _, f := range fields {
			if !f.IsTypename {
				present[f.Definition] = true
			}
		}
		for _, fid := range need {
			if present[fid] {
				continue
			}
			fd := s.Field(fid)
			fields = append(fields, &operation.Field{ResponseKey: fd.Name, Definition: fid, ParentType: fd.Parent})
		}
		return fields
	}
	for _, f := range fields {
		if f.ResponseKey == path[0] {
			f.Selection = spliceRequiredFields(s, f.Selection, path[1:], need)
			break
		}
	}
	return fields
}

// pruneField copies f, dropping any selected child whose own path resolves
// to a different partition than pid. Those children are served by a
// dependent partition (an entity lookup keyed off this field's object), so a
// real subgraph query for pid must stop at this field rather than asking the
// subgraph to resolve something it doesn't own. f itself is never pruned:
// it's always a member of pid by construction (place only ever appends a
// field to the partition it was itself placed into).
func (c *compiler) pruneField(f *operation.Field, path []string, pid PartitionID) *operation.Field {
	if f.IsTypename || len(f.Selection) == 0 {
		return f
	}
	ownPath := append(append([]string(nil), path...), f.ResponseKey)

	var kept operation.SelectionSet
	for _, child := range f.Selection {
		if child.IsTypename {
			kept = append(kept, child)
			continue
		}
		childPath := pathKey(append(append([]string(nil), ownPath...), child.ResponseKey))
		if c.partitionAt[childPath] != pid {
			continue
		}
		kept = append(kept, c.pruneField(child, ownPath, pid))
	}

	cp := *f
	cp.Selection = kept
	return &cp
}
