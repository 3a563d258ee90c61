package introspection

import (
	"context"
	"sync/atomic"

	"github.com/hanpama/gatewaycore/internal/executor"
	"github.com/hanpama/gatewaycore/internal/gqlerror"
	"github.com/hanpama/gatewaycore/internal/schema"
)

// Runtime serves the __schema/__type root fields assigned to SubgraphName.
// It is wired into the gateway's runtime table exactly like any other
// subgraph's runtime, keyed by SubgraphName.
type Runtime struct {
	schema  *schema.Schema
	enabled atomic.Bool
}

// NewRuntime builds an introspection runtime bound to s. enabled controls
// whether __schema/__type resolve data or report
// gqlerror.CodeIntrospectionIsDisabled.
func NewRuntime(s *schema.Schema, enabled bool) *Runtime {
	r := &Runtime{schema: s}
	r.enabled.Store(enabled)
	return r
}

// SetEnabled toggles introspection availability at runtime, e.g. from an
// operator command or config reload, without rebuilding the schema.
func (r *Runtime) SetEnabled(enabled bool) {
	r.enabled.Store(enabled)
}

func (r *Runtime) Execute(ctx context.Context, req *executor.PartitionRequest) (*executor.PartitionResponse, error) {
	resp := &executor.PartitionResponse{
		Values: make([]map[string]any, len(req.Representations)),
	}
	for i := range req.Representations {
		values := make(map[string]any, len(req.Partition.Fields))
		for _, f := range req.Partition.Fields {
			if !r.enabled.Load() {
				resp.Errors = append(resp.Errors, gqlerror.WithPath(
					gqlerror.New(gqlerror.CodeIntrospectionIsDisabled, "introspection is disabled"),
					[]any{f.ResponseKey},
				))
				values[f.ResponseKey] = nil
				continue
			}
			v, err := resolveRoot(r.schema, f)
			if err != nil {
				resp.Errors = append(resp.Errors, gqlerror.WithPath(
					gqlerror.New(gqlerror.CodeInternalServerError, "%v", err),
					[]any{f.ResponseKey},
				))
				values[f.ResponseKey] = nil
				continue
			}
			values[f.ResponseKey] = v
		}
		resp.Values[i] = values
	}
	return resp, nil
}
