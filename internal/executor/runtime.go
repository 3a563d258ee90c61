package executor

import (
	"context"

	"github.com/hanpama/gatewaycore/internal/gqlerror"
	"github.com/hanpama/gatewaycore/internal/planner"
)

// PartitionRuntime is the host integration surface for the coordinator: one
// call per partition, the gateway's unit of batching, a partition being one
// round trip to one subgraph for one group of fields at one response path.
//
// General contract
//   - The coordinator calls Execute once per partition, after every
//     partition it DependsOn has completed. Partitions with no outstanding
//     dependency are run concurrently, up to a bounded fan-out, except that
//     root mutation-field partitions (MutationIndex >= 0) are additionally
//     serialized in MutationIndex order.
//   - Representations holds one entry per object instance this partition
//     populates fields on. For a root partition (Partition.ParentPath empty)
//     it is a single empty map. Every other partition is entered through an
//     entity lookup (Partition.EntryKey valid), since a field resolved by
//     the same subgraph as its parent is absorbed into the parent's own
//     partition rather than spawning one of its own — each entry then holds
//     the key fields the entity's @key declares, plus any fields listed in
//     Partition.Requires.
//   - Values must align 1:1 with Representations; an implementation that
//     cannot resolve a given instance reports it via Errors rather than
//     omitting it from Values, since the coordinator indexes by position.
//   - Implementations must not mutate Representations.
//
// Partial success
//   - Errors are independent of Values; a failure resolving one instance
//     does not require failing the whole partition. Non-Null propagation
//     over the result is the coordinator's job (internal/executor's
//     response graph), not the runtime's.
type PartitionRuntime interface {
	Execute(ctx context.Context, req *PartitionRequest) (*PartitionResponse, error)
}

// PartitionRequest asks a PartitionRuntime to resolve one partition's
// fields against one or more object instances.
type PartitionRequest struct {
	Partition       *planner.Partition
	Representations []map[string]any
}

// PartitionResponse is the result of resolving a partition: one raw field
// map per requested representation, plus any errors encountered.
// Raw field values for fields with children are themselves either object
// maps, lists of object maps, or nil — enough for a dependent partition to
// extract representations from, not yet completed against the response
// shape (that happens once, in the response graph, after every partition
// involved has run).
type PartitionResponse struct {
	Values []map[string]any
	Errors []*gqlerror.Error
}
