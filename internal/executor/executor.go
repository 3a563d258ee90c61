package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hanpama/gatewaycore/internal/eventbus"
	"github.com/hanpama/gatewaycore/internal/events"
	"github.com/hanpama/gatewaycore/internal/gqlerror"
	"github.com/hanpama/gatewaycore/internal/planner"
	"github.com/hanpama/gatewaycore/internal/schema"
)

// maxConcurrentPartitions bounds how many partitions the coordinator will
// have in flight at once within a wave, since many independent partitions
// can legitimately become runnable at the same time once the plan widens.
const maxConcurrentPartitions = 8

// Executor runs a compiled plan to completion against a PartitionRuntime and
// assembles the result by scheduling partitions over their DependsOn graph
// and MutationIndex ordering.
type Executor struct {
	runtime PartitionRuntime
	schema  *schema.Schema
}

func NewExecutor(runtime PartitionRuntime, s *schema.Schema) *Executor {
	return &Executor{runtime: runtime, schema: s}
}

// ExecuteRequest runs every partition in plan, in dependency order, and
// assembles the results into a response tree per plan.Shape.
func (e *Executor) ExecuteRequest(ctx context.Context, plan *planner.Plan) *ExecutionResult {
	c := &coordinator{
		schema:  e.schema,
		runtime: e.runtime,
		plan:    plan,
		root:    map[string]any{},
	}
	if err := c.run(ctx); err != nil {
		return &ExecutionResult{Errors: gqlerror.List{gqlerror.New(gqlerror.CodeSubgraphError, "%v", err)}}
	}
	data, errs := c.assemble()
	return &ExecutionResult{Data: data, Errors: errs}
}

// coordinator holds the mutable state of one in-flight request: the
// growing response tree (shared by every partition, since a dependent
// partition reads representations out of its parent's raw field values)
// and the errors each partition reported.
type coordinator struct {
	schema  *schema.Schema
	runtime PartitionRuntime
	plan    *planner.Plan

	mu            sync.Mutex
	root          map[string]any
	partitionErrs []*gqlerror.Error
}

// run schedules plan.Partitions in topological waves: within a wave every
// partition with no outstanding dependency runs concurrently (bounded by
// maxConcurrentPartitions), except that root mutation-field partitions are
// additionally gated to run one at a time, in MutationIndex order, so
// sibling mutation fields keep their strict left-to-right ordering.
func (c *coordinator) run(ctx context.Context) error {
	n := len(c.plan.Partitions)
	if n == 0 {
		return nil
	}

	remaining := make([]int, n)
	dependents := make([][]planner.PartitionID, n)
	for _, p := range c.plan.Partitions {
		remaining[p.ID] = len(p.DependsOn)
		for _, dep := range p.DependsOn {
			dependents[dep] = append(dependents[dep], p.ID)
		}
	}

	done := make([]bool, n)
	doneCount := 0
	nextMutationIdx := 0

	for doneCount < n {
		var wave []planner.PartitionID
		for _, p := range c.plan.Partitions {
			if done[p.ID] || remaining[p.ID] != 0 {
				continue
			}
			if p.MutationIndex >= 0 && p.MutationIndex != nextMutationIdx {
				continue
			}
			wave = append(wave, p.ID)
		}
		if len(wave) == 0 {
			return fmt.Errorf("partition graph stalled with %d of %d partitions remaining", n-doneCount, n)
		}

		g, gctx := errgroup.WithContext(ctx)
		sem := make(chan struct{}, maxConcurrentPartitions)
		for _, pid := range wave {
			pid := pid
			g.Go(func() error {
				sem <- struct{}{}
				defer func() { <-sem }()
				return c.executeOne(gctx, pid)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for _, pid := range wave {
			done[pid] = true
			doneCount++
			if c.plan.Partitions[pid].MutationIndex >= 0 {
				nextMutationIdx++
			}
			for _, dep := range dependents[pid] {
				remaining[dep]--
			}
		}
	}
	return nil
}

// executeOne resolves a single partition and writes its raw field values
// back into the response tree at Partition.ParentPath, keyed per
// representation instance.
func (c *coordinator) executeOne(ctx context.Context, pid planner.PartitionID) error {
	p := c.plan.Partitions[pid]

	c.mu.Lock()
	reps := c.representationsFor(p)
	c.mu.Unlock()

	if len(reps) == 0 {
		return nil
	}

	subgraphName := c.schema.Subgraph(p.Subgraph).Name
	start := time.Now()
	eventbus.Publish(ctx, events.PartitionStart{Subgraph: subgraphName, PartitionIndex: int(p.ID), FieldCount: len(p.Fields), RepCount: len(reps)})

	resp, err := c.runtime.Execute(ctx, &PartitionRequest{Partition: p, Representations: reps})
	if err != nil {
		eventbus.Publish(ctx, events.PartitionFinish{Subgraph: subgraphName, PartitionIndex: int(p.ID), Duration: time.Since(start), Errors: []error{err}})
		return fmt.Errorf("partition %d (%s): %w", p.ID, subgraphName, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(resp.Errors) > 0 {
		c.partitionErrs = append(c.partitionErrs, resp.Errors...)
	}
	finishErrs := make([]error, len(resp.Errors))
	for i, e := range resp.Errors {
		finishErrs[i] = e
	}
	eventbus.Publish(ctx, events.PartitionFinish{Subgraph: subgraphName, PartitionIndex: int(p.ID), Duration: time.Since(start), Errors: finishErrs})

	objs := c.instancesAt(p.ParentPath)
	for i, values := range resp.Values {
		if i >= len(objs) || values == nil {
			continue
		}
		for _, f := range p.Fields {
			objs[i][f.ResponseKey] = values[f.ResponseKey]
		}
	}
	return nil
}

// representationsFor computes what a partition's runtime call needs to key
// off of: an empty representation for a root partition, the parent's own
// raw object when this partition continues in the same subgraph context,
// or the entity's declared key fields plus any @requires fields its
// resolvers need when it crosses into one via an _entities-style lookup.
func (c *coordinator) representationsFor(p *planner.Partition) []map[string]any {
	if len(p.ParentPath) == 0 {
		return []map[string]any{{}}
	}
	objs := c.instancesAt(p.ParentPath)
	if p.EntryKey == schema.NoKeyID {
		return objs
	}
	key := c.schema.Key(p.EntryKey)
	reps := make([]map[string]any, len(objs))
	for i, o := range objs {
		rep := make(map[string]any, len(key.Fields)+len(p.Requires))
		for _, item := range key.Fields {
			name := c.schema.Field(item.Field).Name
			rep[name] = o[name]
		}
		for _, fid := range p.Requires {
			name := c.schema.Field(fid).Name
			if _, exists := rep[name]; exists {
				continue
			}
			rep[name] = o[name]
		}
		reps[i] = rep
	}
	return reps
}

// instancesAt flattens every live object at path, descending through lists
// along the way. A missing or null intermediate value simply contributes no
// instances — the corresponding dependent partition then has nothing to do.
// Caller must hold c.mu.
func (c *coordinator) instancesAt(path []string) []map[string]any {
	cur := []map[string]any{c.root}
	for _, key := range path {
		var next []map[string]any
		for _, o := range cur {
			v, ok := o[key]
			if !ok || v == nil {
				continue
			}
			switch val := v.(type) {
			case map[string]any:
				next = append(next, val)
			case []any:
				for _, item := range val {
					if m, ok := item.(map[string]any); ok {
						next = append(next, m)
					}
				}
			}
		}
		cur = next
	}
	return cur
}
