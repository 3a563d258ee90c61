package executor

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/gatewaycore/internal/eventbus"
	"github.com/hanpama/gatewaycore/internal/events"
	"github.com/hanpama/gatewaycore/internal/gqlerror"
	"github.com/hanpama/gatewaycore/internal/operation"
	"github.com/hanpama/gatewaycore/internal/planner"
	"github.com/hanpama/gatewaycore/internal/schema"
	"github.com/hanpama/gatewaycore/internal/solver"
)

func buildFederatedSchema(t *testing.T) *schema.Schema {
	t.Helper()
	accounts := `
		type Query { me: User }
		type User @key(fields: "id") { id: ID! name: String! }
	`
	reviews := `
		type User @key(fields: "id") { id: ID! reviews: [String!]! }
	`
	s, err := schema.BuildSupergraph([]schema.SubgraphInput{
		{Name: "accounts", SDL: accounts, Kind: schema.SubgraphGraphQL},
		{Name: "reviews", SDL: reviews, Kind: schema.SubgraphGraphQL},
	})
	require.NoError(t, err)
	return s
}

func compilePlan(t *testing.T, s *schema.Schema, query string) *planner.Plan {
	t.Helper()
	p, err := operation.Prepare(s, "b1", query, "", nil)
	require.NoError(t, err)
	sol, err := solver.Solve(s, p)
	require.NoError(t, err)
	return planner.Compile(s, p, sol)
}

func TestExecuteRequest_CrossSubgraphDependentPartitions(t *testing.T) {
	s := buildFederatedSchema(t)
	plan := compilePlan(t, s, `{ me { id name reviews } }`)
	require.Len(t, plan.Partitions, 2)

	accountsID := s.Subgraphs[0].ID
	reviewsID := s.Subgraphs[1].ID
	if s.Subgraph(accountsID).Name != "accounts" {
		accountsID, reviewsID = reviewsID, accountsID
	}

	var mu sync.Mutex
	var calls []string

	runtime := runtimeFunc(func(ctx context.Context, req *PartitionRequest) (*PartitionResponse, error) {
		mu.Lock()
		calls = append(calls, s.Subgraph(req.Partition.Subgraph).Name)
		mu.Unlock()

		switch req.Partition.Subgraph {
		case accountsID:
			values := make([]map[string]any, len(req.Representations))
			for i := range req.Representations {
				values[i] = map[string]any{"me": map[string]any{"id": "1", "name": "Ada"}}
			}
			return &PartitionResponse{Values: values}, nil
		case reviewsID:
			values := make([]map[string]any, len(req.Representations))
			for i, rep := range req.Representations {
				require.Equal(t, "1", rep["id"])
				values[i] = map[string]any{"reviews": []any{"great", "ok"}}
			}
			return &PartitionResponse{Values: values}, nil
		default:
			t.Fatalf("unexpected subgraph %v", req.Partition.Subgraph)
			return nil, nil
		}
	})

	exec := NewExecutor(runtime, s)
	result := exec.ExecuteRequest(context.Background(), plan)
	require.Empty(t, result.Errors)

	require.Equal(t, []string{"accounts", "reviews"}, calls)

	data, ok := result.Data.(map[string]any)
	require.True(t, ok)
	me, ok := data["me"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "1", me["id"])
	require.Equal(t, "Ada", me["name"])
	require.Equal(t, []any{"great", "ok"}, me["reviews"])
}

func TestExecuteRequest_PublishesPartitionEventsPerSubgraph(t *testing.T) {
	s := buildFederatedSchema(t)
	plan := compilePlan(t, s, `{ me { id name reviews } }`)

	runtime := runtimeFunc(func(ctx context.Context, req *PartitionRequest) (*PartitionResponse, error) {
		values := make([]map[string]any, len(req.Representations))
		for i := range values {
			values[i] = map[string]any{}
			for _, f := range req.Partition.Fields {
				if f.ResponseKey == "reviews" {
					values[i][f.ResponseKey] = []any{"x"}
				} else {
					values[i][f.ResponseKey] = "x"
				}
			}
		}
		return &PartitionResponse{Values: values}, nil
	})

	bus := eventbus.New()
	eventbus.Use(bus)
	defer eventbus.Use(nil)

	var mu sync.Mutex
	var starts, finishes []string
	eventbus.Subscribe(func(ctx context.Context, e events.PartitionStart) {
		mu.Lock()
		starts = append(starts, e.Subgraph)
		mu.Unlock()
	})
	eventbus.Subscribe(func(ctx context.Context, e events.PartitionFinish) {
		mu.Lock()
		finishes = append(finishes, e.Subgraph)
		mu.Unlock()
	})

	exec := NewExecutor(runtime, s)
	result := exec.ExecuteRequest(context.Background(), plan)
	require.Empty(t, result.Errors)

	require.ElementsMatch(t, []string{"accounts", "reviews"}, starts)
	require.ElementsMatch(t, []string{"accounts", "reviews"}, finishes)
}

func TestExecuteRequest_NonNullViolationNullifiesNearestAncestor(t *testing.T) {
	s := buildFederatedSchema(t)
	plan := compilePlan(t, s, `{ me { id name } }`)
	require.Len(t, plan.Partitions, 1)

	runtime := runtimeFunc(func(ctx context.Context, req *PartitionRequest) (*PartitionResponse, error) {
		values := make([]map[string]any, len(req.Representations))
		for i := range req.Representations {
			values[i] = map[string]any{"me": map[string]any{"id": "1", "name": nil}}
		}
		return &PartitionResponse{Values: values}, nil
	})

	exec := NewExecutor(runtime, s)
	result := exec.ExecuteRequest(context.Background(), plan)

	require.Len(t, result.Errors, 1)
	require.Equal(t, gqlerror.CodeSubgraphInvalidResponse, result.Errors[0].Code())

	data, ok := result.Data.(map[string]any)
	require.True(t, ok)
	require.Nil(t, data["me"])
}

// A failure in the reviews partition still lets the accounts partition's
// data reach the response tree; the reviews field itself is Non-Null
// ([String!]!), so its own absence nullifies the nearest nullable ancestor
// (me) per GraphQL's Non-Null propagation rule, and the partition's own
// reported error coexists with the completion error this produces.
func TestExecuteRequest_PartialPartitionErrorsPropagateNonNullViolation(t *testing.T) {
	s := buildFederatedSchema(t)
	plan := compilePlan(t, s, `{ me { id name reviews } }`)

	accountsID := s.Subgraphs[0].ID
	if s.Subgraph(accountsID).Name != "accounts" {
		accountsID = s.Subgraphs[1].ID
	}

	runtime := runtimeFunc(func(ctx context.Context, req *PartitionRequest) (*PartitionResponse, error) {
		if req.Partition.Subgraph == accountsID {
			values := make([]map[string]any, len(req.Representations))
			for i := range req.Representations {
				values[i] = map[string]any{"me": map[string]any{"id": "1", "name": "Ada"}}
			}
			return &PartitionResponse{Values: values}, nil
		}
		return &PartitionResponse{
			Values: []map[string]any{nil},
			Errors: []*gqlerror.Error{gqlerror.New(gqlerror.CodeSubgraphError, "reviews subgraph unavailable")},
		}, nil
	})

	exec := NewExecutor(runtime, s)
	result := exec.ExecuteRequest(context.Background(), plan)

	require.Len(t, result.Errors, 2)
	data, ok := result.Data.(map[string]any)
	require.True(t, ok)
	require.Nil(t, data["me"])
}

// TestExecuteRequest_RequiresFieldsReachDependentPartitionRepresentation
// reproduces the shippingEstimate worked example end to end: the inventory
// partition's representation must literally contain price and weight, not
// just the entity key, even though the client selection never asked for
// them.
func TestExecuteRequest_RequiresFieldsReachDependentPartitionRepresentation(t *testing.T) {
	s, err := schema.BuildSupergraph([]schema.SubgraphInput{
		{Name: "products", Kind: schema.SubgraphGraphQL, SDL: `
			type Query { product: Product }
			type Product @key(fields: "id") { id: ID! price: Float! weight: Float! }
		`},
		{Name: "inventory", Kind: schema.SubgraphGraphQL, SDL: `
			type Product @key(fields: "id") {
				id: ID!
				price: Float! @external
				weight: Float! @external
				shippingEstimate: Float! @requires(fields: "price weight")
			}
		`},
	})
	require.NoError(t, err)
	plan := compilePlan(t, s, `{ product { shippingEstimate } }`)
	require.Len(t, plan.Partitions, 2)

	productsID := s.Subgraphs[0].ID
	if s.Subgraph(productsID).Name != "products" {
		productsID = s.Subgraphs[1].ID
	}

	var captured map[string]any
	runtime := runtimeFunc(func(ctx context.Context, req *PartitionRequest) (*PartitionResponse, error) {
		if req.Partition.Subgraph == productsID {
			values := make([]map[string]any, len(req.Representations))
			for i := range req.Representations {
				values[i] = map[string]any{"product": map[string]any{"id": "1", "price": 9.5, "weight": 2.0}}
			}
			return &PartitionResponse{Values: values}, nil
		}
		require.Len(t, req.Representations, 1)
		captured = req.Representations[0]
		values := make([]map[string]any, len(req.Representations))
		for i := range values {
			values[i] = map[string]any{"shippingEstimate": 4.5}
		}
		return &PartitionResponse{Values: values}, nil
	})

	exec := NewExecutor(runtime, s)
	result := exec.ExecuteRequest(context.Background(), plan)
	require.Empty(t, result.Errors)

	require.NotNil(t, captured)
	require.Equal(t, "1", captured["id"])
	require.Equal(t, 9.5, captured["price"])
	require.Equal(t, 2.0, captured["weight"])
}

func TestExecuteRequest_NonNullViolationAtRootNullifiesData(t *testing.T) {
	s, err := schema.BuildSupergraph([]schema.SubgraphInput{
		{Name: "accounts", Kind: schema.SubgraphGraphQL, SDL: `
			type Query { me: User! }
			type User @key(fields: "id") { id: ID! name: String! }
		`},
	})
	require.NoError(t, err)
	plan := compilePlan(t, s, `{ me { id name } }`)

	runtime := runtimeFunc(func(ctx context.Context, req *PartitionRequest) (*PartitionResponse, error) {
		values := make([]map[string]any, len(req.Representations))
		for i := range req.Representations {
			values[i] = map[string]any{"me": nil}
		}
		return &PartitionResponse{Values: values}, nil
	})

	exec := NewExecutor(runtime, s)
	result := exec.ExecuteRequest(context.Background(), plan)

	require.Len(t, result.Errors, 1)
	require.Equal(t, gqlerror.CodeSubgraphInvalidResponse, result.Errors[0].Code())
	require.Nil(t, result.Data)
}

// runtimeFunc adapts a plain function to PartitionRuntime.
type runtimeFunc func(ctx context.Context, req *PartitionRequest) (*PartitionResponse, error)

func (f runtimeFunc) Execute(ctx context.Context, req *PartitionRequest) (*PartitionResponse, error) {
	return f(ctx, req)
}
