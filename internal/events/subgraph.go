package events

import "time"

// SubgraphRequestStart is emitted before the gateway sends one partition's
// request to a subgraph.
type SubgraphRequestStart struct {
	Subgraph   string
	EntityKind bool // true for an _entities lookup, false for a direct root/continuation query
	Endpoint   string
}

// SubgraphRequestFinish is emitted after a subgraph round trip completes
// (successfully or not), including retries spent inside the transport.
type SubgraphRequestFinish struct {
	Subgraph string
	Endpoint string
	Attempts int
	Err      error
	Duration time.Duration
}
