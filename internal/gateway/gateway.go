// Package gateway is the composition root that wires operation preparation,
// the operation cache, authorization, solving, planning, and execution into
// one request pipeline, and fans a compiled plan's partitions out across
// however many subgraph runtimes (GraphQL-over-HTTP, virtual/gRPC) a
// supergraph build actually has.
package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/hanpama/gatewaycore/internal/auth"
	"github.com/hanpama/gatewaycore/internal/cache"
	"github.com/hanpama/gatewaycore/internal/eventbus"
	"github.com/hanpama/gatewaycore/internal/events"
	"github.com/hanpama/gatewaycore/internal/executor"
	"github.com/hanpama/gatewaycore/internal/gqlerror"
	"github.com/hanpama/gatewaycore/internal/operation"
	"github.com/hanpama/gatewaycore/internal/planner"
	"github.com/hanpama/gatewaycore/internal/schema"
	"github.com/hanpama/gatewaycore/internal/solver"
)

// Config assembles one Gateway. SchemaBuildID should change whenever Schema
// changes, since it is folded into every operation's cache fingerprint so a
// stale build can never serve a request planned against a newer one.
type Config struct {
	Schema        *schema.Schema
	SchemaBuildID string

	// Runtimes maps a subgraph name (schema.Subgraph.Name) to the
	// PartitionRuntime that serves it. Every subgraph in Schema.Subgraphs
	// must have an entry.
	Runtimes map[string]executor.PartitionRuntime

	// Authenticator turns request headers into an auth.Token. Defaults to
	// one that always returns auth.Anonymous() if nil.
	Authenticator auth.Authenticator

	// TrustedDocuments resolves a trusted document id to its query text.
	// Optional; checked before Persisted.
	TrustedDocuments cache.DocumentStore

	// Persisted is the automatic persisted query store: a miss here is
	// PersistedQueryNotFound rather than a hard error, inviting the client
	// to resend the full query alongside its hash.
	Persisted *cache.InMemoryDocumentStore

	// OperationCacheSize bounds the number of distinct prepared operations
	// kept in memory. Defaults to 1000.
	OperationCacheSize int
}

// Gateway runs one compiled request pipeline per call to Execute.
type Gateway struct {
	schema        *schema.Schema
	schemaBuildID string
	exec          *executor.Executor
	opCache       *cache.OperationCache
	authn         auth.Authenticator
	trusted       cache.DocumentStore
	persisted     *cache.InMemoryDocumentStore
}

// anonymousAuthenticator is the zero-config default: every request is
// Anonymous, so only fields with no @authenticated/@requiresScopes ever
// resolve.
type anonymousAuthenticator struct{}

func (anonymousAuthenticator) Authenticate(http.Header) (auth.Token, error) {
	return auth.Anonymous(), nil
}

// New builds a Gateway from cfg.
func New(cfg Config) (*Gateway, error) {
	size := cfg.OperationCacheSize
	if size <= 0 {
		size = 1000
	}
	opCache, err := cache.NewOperationCache(size)
	if err != nil {
		return nil, err
	}

	authn := cfg.Authenticator
	if authn == nil {
		authn = anonymousAuthenticator{}
	}

	router := newRuntimeRouter(cfg.Schema, cfg.Runtimes)
	return &Gateway{
		schema:        cfg.Schema,
		schemaBuildID: cfg.SchemaBuildID,
		exec:          executor.NewExecutor(router, cfg.Schema),
		opCache:       opCache,
		authn:         authn,
		trusted:       cfg.TrustedDocuments,
		persisted:     cfg.Persisted,
	}, nil
}

// Request is one inbound GraphQL-over-HTTP request, already decoded from
// whichever wire shape the transport layer accepts (JSON body, query
// string, or a batch element).
type Request struct {
	Query         string
	OperationName string
	Variables     map[string]any
	Extensions    map[string]any
	Headers       http.Header
}

// Execute runs one request through the full pipeline: resolve the document
// (inline, trusted, or persisted), prepare and cache it, authorize it
// against the caller's token, solve and plan it, then execute the plan.
func (g *Gateway) Execute(ctx context.Context, req Request) *executor.ExecutionResult {
	query, perr := g.resolveDocument(req)
	if perr != nil {
		return &executor.ExecutionResult{Errors: gqlerror.List{perr}}
	}

	prepared, perr := g.prepare(ctx, query, req.OperationName, req.Variables)
	if perr != nil {
		return &executor.ExecutionResult{Errors: gqlerror.List{perr}}
	}

	tok, err := g.authn.Authenticate(req.Headers)
	if err != nil {
		return &executor.ExecutionResult{Errors: gqlerror.List{
			gqlerror.New(gqlerror.CodeUnauthenticated, "%v", err),
		}}
	}
	if errs := auth.Authorize(g.schema, prepared.Selection, tok); len(errs) > 0 {
		return &executor.ExecutionResult{Errors: errs}
	}

	start := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{Query: query, OperationName: req.OperationName, OperationType: string(prepared.OperationType)})

	planStart := time.Now()
	eventbus.Publish(ctx, events.PlanStart{OperationName: req.OperationName})
	sol, err := solver.Solve(g.schema, prepared)
	if err != nil {
		planErr := gqlerror.New(gqlerror.CodeOperationPlanningError, "%v", err)
		eventbus.Publish(ctx, events.PlanFinish{OperationName: req.OperationName, Duration: time.Since(planStart), Errors: []error{planErr}})
		return &executor.ExecutionResult{Errors: gqlerror.List{planErr}}
	}
	plan := planner.Compile(g.schema, prepared, sol)
	eventbus.Publish(ctx, events.PlanFinish{OperationName: req.OperationName, PartitionCount: len(plan.Partitions), Duration: time.Since(planStart)})

	result := g.exec.ExecuteRequest(ctx, plan)
	eventbus.Publish(ctx, events.GraphQLFinish{
		Query:         query,
		OperationName: req.OperationName,
		OperationType: string(prepared.OperationType),
		Errors:        errsOf(result.Errors),
		Duration:      time.Since(start),
	})
	return result
}

func errsOf(l gqlerror.List) []error {
	out := make([]error, len(l))
	for i, e := range l {
		out[i] = e
	}
	return out
}

// resolveDocument turns a request into the GraphQL document text to
// prepare, per spec.md §6.4/§6.5: without a persistedQuery extension the
// inline query is used as is. With one, an inline query must match the
// extension's sha256Hash (a mismatch is a CodePersistedQueryError) and is
// registered in the persisted query store for next time; a hash sent
// without a query is resolved against the trusted document store first,
// then the persisted query store.
func (g *Gateway) resolveDocument(req Request) (string, *gqlerror.Error) {
	pq, ok := req.Extensions["persistedQuery"].(map[string]any)
	if !ok {
		if req.Query == "" {
			return "", gqlerror.New(gqlerror.CodeBadRequest, "missing query")
		}
		return req.Query, nil
	}
	hash, _ := pq["sha256Hash"].(string)
	if hash == "" {
		return "", gqlerror.New(gqlerror.CodeBadRequest, "persistedQuery extension missing sha256Hash")
	}

	if req.Query != "" {
		if cache.Sha256Hash(req.Query) != hash {
			return "", gqlerror.New(gqlerror.CodePersistedQueryError, "provided sha256Hash does not match query")
		}
		if g.persisted != nil {
			g.persisted.Register(hash, req.Query)
		}
		return req.Query, nil
	}

	if g.trusted != nil {
		if doc, ok := g.trusted.Resolve(hash); ok {
			return doc, nil
		}
	}
	if g.persisted != nil {
		if doc, ok := g.persisted.Resolve(hash); ok {
			return doc, nil
		}
	}
	return "", gqlerror.New(gqlerror.CodePersistedQueryNotFound, "persisted query not found")
}

// prepare resolves an operation through the cache before paying for a full
// parse, validate, and bind. The cache key folds in the caller's variables
// (see cache.Key) since the binder resolves variable references and
// @skip/@include directly into Prepared.Selection; two distinct variable
// sets for the same document are two distinct Prepared values, not one
// shared one reused across callers. Authorization (internal/auth.Authorize)
// still runs fresh per request against whichever Prepared value this
// returns, cached or not, since it depends on the caller's token rather
// than the document or variables.
func (g *Gateway) prepare(ctx context.Context, query, operationName string, variables map[string]any) (*operation.Prepared, *gqlerror.Error) {
	start := time.Now()
	eventbus.Publish(ctx, events.OperationPrepareStart{OperationName: operationName})

	fingerprint := operation.Fingerprint(g.schemaBuildID, operationName, query)
	key := cache.Key(fingerprint, variables)
	if cached, ok := g.opCache.Get(key); ok {
		eventbus.Publish(ctx, events.OperationPrepareFinish{OperationName: operationName, CacheHit: true, Duration: time.Since(start)})
		return cached, nil
	}

	prepared, err := operation.Prepare(g.schema, g.schemaBuildID, query, operationName, variables)
	if err != nil {
		var gerr *gqlerror.Error
		if list, ok := err.(gqlerror.List); ok && len(list) > 0 {
			gerr = list[0]
		} else {
			gerr = gqlerror.New(gqlerror.CodeOperationValidationError, "%v", err)
		}
		eventbus.Publish(ctx, events.OperationPrepareFinish{OperationName: operationName, Duration: time.Since(start), Errors: []error{gerr}})
		return nil, gerr
	}
	g.opCache.Put(key, prepared)
	eventbus.Publish(ctx, events.OperationPrepareFinish{OperationName: operationName, Duration: time.Since(start)})
	return prepared, nil
}
