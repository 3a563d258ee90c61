package gateway

import (
	"context"
	"fmt"

	"github.com/hanpama/gatewaycore/internal/executor"
	"github.com/hanpama/gatewaycore/internal/schema"
)

// runtimeRouter dispatches a partition to the PartitionRuntime registered
// for the subgraph it was assigned to, so the executor's coordinator can
// stay oblivious to which partitions cross into a GraphQL-over-HTTP
// subgraph versus a virtual/extension one — a supergraph plan freely mixes
// both, partition by partition.
type runtimeRouter struct {
	schema   *schema.Schema
	byName   map[string]executor.PartitionRuntime
}

var _ executor.PartitionRuntime = (*runtimeRouter)(nil)

func newRuntimeRouter(s *schema.Schema, runtimes map[string]executor.PartitionRuntime) *runtimeRouter {
	return &runtimeRouter{schema: s, byName: runtimes}
}

func (r *runtimeRouter) Execute(ctx context.Context, req *executor.PartitionRequest) (*executor.PartitionResponse, error) {
	sg := r.schema.Subgraph(req.Partition.Subgraph)
	if sg == nil {
		return nil, fmt.Errorf("gateway: partition references unknown subgraph id %d", req.Partition.Subgraph)
	}
	rt, ok := r.byName[sg.Name]
	if !ok {
		return nil, fmt.Errorf("gateway: no runtime registered for subgraph %q", sg.Name)
	}
	return rt.Execute(ctx, req)
}
