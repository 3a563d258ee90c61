// Package http is a GraphQL-over-HTTP PartitionRuntime: it turns a compiled
// partition plus its representations into a subgraph request, following the
// same pool/provider/backoff shape internal/grpctp uses for gRPC transport,
// adapted to a plain pooled http.Client since net/http already manages
// per-host connection reuse on its own.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	eventbus "github.com/hanpama/gatewaycore/internal/eventbus"
	"github.com/hanpama/gatewaycore/internal/executor"
	"github.com/hanpama/gatewaycore/internal/events"
	"github.com/hanpama/gatewaycore/internal/gqlerror"
	"github.com/hanpama/gatewaycore/internal/schema"
)

// Transport resolves each partition against its subgraph's GraphQL-over-HTTP
// endpoint, retrying transport-level failures (connection errors, 5xx) with
// backoff; a subgraph's own reported GraphQL errors are not retried, since
// they are a valid, complete response.
type Transport struct {
	opts   *Options
	schema *schema.Schema
	client *http.Client
	closed atomic.Bool
}

var _ executor.PartitionRuntime = (*Transport)(nil)

func New(s *schema.Schema, opts ...Option) *Transport {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	client := o.Client
	if client == nil {
		client = &http.Client{
			Timeout: o.RequestTimeout,
			Transport: &http.Transport{
				MaxConnsPerHost:     o.MaxConnsPerHost,
				MaxIdleConnsPerHost: o.MaxConnsPerHost,
			},
		}
	}
	return &Transport{opts: o, schema: s, client: client}
}

func (t *Transport) Execute(ctx context.Context, req *executor.PartitionRequest) (*executor.PartitionResponse, error) {
	if t.closed.Load() {
		return nil, fmt.Errorf("transport/http: closed")
	}
	if t.opts.Provider == nil {
		return nil, fmt.Errorf("transport/http: provider not configured")
	}

	subgraphName := t.schema.Subgraph(req.Partition.Subgraph).Name
	endpoint, err := t.opts.Provider.Endpoint(ctx, subgraphName)
	if err != nil {
		return nil, fmt.Errorf("transport/http: resolving endpoint for %s: %w", subgraphName, err)
	}

	query, variables := buildOperation(t.schema, req.Partition, req.Representations)
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("transport/http: encoding request: %w", err)
	}

	start := time.Now()
	eventbus.Publish(ctx, events.SubgraphRequestStart{
		Subgraph:   subgraphName,
		EntityKind: req.Partition.EntryKey != schema.NoKeyID,
		Endpoint:   endpoint,
	})

	attempts := 0
	gqlResp, err := backoff.Retry(ctx, func() (*graphQLResponse, error) {
		attempts++
		return t.post(ctx, endpoint, body)
	}, backoff.WithBackOff(t.opts.BackOff()), backoff.WithMaxTries(uint(t.opts.MaxRetries+1)))

	eventbus.Publish(ctx, events.SubgraphRequestFinish{
		Subgraph: subgraphName,
		Endpoint: endpoint,
		Attempts: attempts,
		Err:      err,
		Duration: time.Since(start),
	})
	if err != nil {
		return nil, fmt.Errorf("transport/http: calling %s: %w", subgraphName, err)
	}

	return t.toPartitionResponse(req, gqlResp), nil
}

func (t *Transport) post(ctx context.Context, endpoint string, body []byte) (*graphQLResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode >= 500 {
		return nil, fmt.Errorf("subgraph returned %d: %s", httpResp.StatusCode, raw)
	}
	if httpResp.StatusCode >= 400 {
		return nil, backoff.Permanent(fmt.Errorf("subgraph returned %d: %s", httpResp.StatusCode, raw))
	}

	var gqlResp graphQLResponse
	if err := json.Unmarshal(raw, &gqlResp); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decoding subgraph response: %w", err))
	}
	return &gqlResp, nil
}

// toPartitionResponse reshapes a subgraph's raw response into the
// PartitionResponse the coordinator expects: one value map per
// representation, aligned by position.
func (t *Transport) toPartitionResponse(req *executor.PartitionRequest, resp *graphQLResponse) *executor.PartitionResponse {
	out := &executor.PartitionResponse{}

	for _, e := range resp.Errors {
		out.Errors = append(out.Errors, gqlerror.New(gqlerror.CodeSubgraphError, "%s", e.Message))
	}

	if req.Partition.EntryKey != schema.NoKeyID {
		raw, _ := resp.Data["_entities"].([]any)
		values := make([]map[string]any, len(req.Representations))
		for i := range req.Representations {
			if i < len(raw) {
				if m, ok := raw[i].(map[string]any); ok {
					values[i] = m
				}
			}
		}
		out.Values = values
		return out
	}

	values := make([]map[string]any, len(req.Representations))
	for i := range req.Representations {
		values[i] = resp.Data
	}
	out.Values = values
	return out
}

func (t *Transport) Close() error {
	t.closed.Store(true)
	return nil
}
