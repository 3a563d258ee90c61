// Package executor implements the gateway's execution coordinator and
// response graph: given a compiled plan (internal/planner), it runs each
// partition against a PartitionRuntime and assembles the results into a
// single response tree.
//
// # Overview
//
// Rather than walking a live selection set breadth-first and batching
// resolver calls one GraphQL depth at a time, this package schedules a
// planner.Plan's partitions, each already scoped to one subgraph round
// trip for one group of fields at one response path, in whatever order
// their DependsOn edges require, running independent partitions
// concurrently.
//
// # Scheduling
//
// Partitions are processed in topological waves: every partition whose
// dependencies have all completed is eligible to run in the next wave,
// bounded by maxConcurrentPartitions. Root mutation-field partitions
// (Partition.MutationIndex >= 0) are additionally gated to enter one at a
// time, in MutationIndex order, so sibling mutation fields still observe
// each other's side effects left to right even though the scheduler is
// otherwise free to reorder and parallelize.
//
// # Data flow between partitions
//
// The coordinator holds one shared response tree. When a partition
// completes, its raw field values are written into that tree at
// Partition.ParentPath. A dependent partition reads its Representations
// back out of the same tree: the declared @key fields, plus any fields
// listed in Partition.Requires, for the entity lookup that enters it
// (Partition.EntryKey) — every other partition is a root, reading nothing. Partitions with nothing to read (a nullified or
// empty parent) are simply skipped, see coordinator.instancesAt.
//
// # Response assembly
//
// Once every partition has run, responsegraph.go walks the raw tree once
// against plan.Shape and applies GraphQL's Non-Null propagation rule: a
// violation nullifies the nearest nullable ancestor and is recorded as
// exactly one error. This adapts the usual completeValue/isNullish
// bubbling pattern to operate over a precompiled ResponseShape and an
// already-resolved tree rather than a live selection set with resolver
// calls interleaved with completion.
package executor
