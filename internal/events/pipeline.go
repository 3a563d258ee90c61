package events

import "time"

// OperationPrepareStart is emitted before an operation is resolved through
// the operation cache (parse, validate, bind on a miss).
type OperationPrepareStart struct {
	OperationName string
}

// OperationPrepareFinish is emitted after an operation has been prepared,
// whether served from cache or freshly parsed/validated/bound.
type OperationPrepareFinish struct {
	OperationName string
	CacheHit      bool
	Duration      time.Duration
	Errors        []error
}

// PlanStart is emitted before a prepared operation is solved and compiled
// into a partitioned plan.
type PlanStart struct {
	OperationName string
}

// PlanFinish is emitted after solving and planning complete.
type PlanFinish struct {
	OperationName  string
	PartitionCount int
	Duration       time.Duration
	Errors         []error
}

// PartitionStart is emitted before a single partition is dispatched to its
// subgraph runtime.
type PartitionStart struct {
	Subgraph       string
	PartitionIndex int
	FieldCount     int
	RepCount       int
}

// PartitionFinish is emitted after a partition's runtime call returns.
type PartitionFinish struct {
	Subgraph       string
	PartitionIndex int
	Duration       time.Duration
	Errors         []error
}
