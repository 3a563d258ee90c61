package solver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/gatewaycore/internal/operation"
	"github.com/hanpama/gatewaycore/internal/schema"
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

func TestSolve_SingleSubgraphNeedsNoPartitionSwitch(t *testing.T) {
	s := buildFederatedSchema(t)
	p, err := operation.Prepare(s, "b1", `{ me { name } }`, "", nil)
	require.NoError(t, err)

	sol, err := Solve(s, p)
	require.NoError(t, err)
	require.Len(t, sol.Assignments, 2) // me, name

	for _, a := range sol.Assignments {
		require.Equal(t, s.Subgraphs[0].ID, a.Subgraph) // accounts is index 0 alphabetically
	}
}

func TestSolve_CrossSubgraphFieldUsesEntityLookup(t *testing.T) {
	s := buildFederatedSchema(t)
	p, err := operation.Prepare(s, "b1", `{ me { name reviews } }`, "", nil)
	require.NoError(t, err)

	sol, err := Solve(s, p)
	require.NoError(t, err)

	var reviewsAssignment *Assignment
	for _, a := range sol.Assignments {
		if a.Field.ResponseKey == "reviews" {
			reviewsAssignment = a
		}
	}
	require.NotNil(t, reviewsAssignment)

	reviewsSubgraph := s.Subgraph(reviewsAssignment.Subgraph)
	require.Equal(t, "reviews", reviewsSubgraph.Name)

	resolver := s.Resolver(reviewsAssignment.Resolver)
	require.Equal(t, schema.ResolverEntityLookup, resolver.Kind)
}

func buildShippingEstimateSchema(t *testing.T) *schema.Schema {
	t.Helper()
	products := `
		type Query { product: Product }
		type Product @key(fields: "id") { id: ID! price: Float! weight: Float! }
	`
	inventory := `
		type Product @key(fields: "id") {
			id: ID!
			price: Float! @external
			weight: Float! @external
			shippingEstimate: Float! @requires(fields: "price weight")
		}
	`
	s, err := schema.BuildSupergraph([]schema.SubgraphInput{
		{Name: "products", SDL: products, Kind: schema.SubgraphGraphQL},
		{Name: "inventory", SDL: inventory, Kind: schema.SubgraphGraphQL},
	})
	require.NoError(t, err)
	return s
}

// TestSolve_RequiresInjectsProducerSideFields reproduces the worked example
// where Product.shippingEstimate requires price and weight: the crossing
// assignment records both the entity key needed to reach inventory and the
// flattened @requires fields the planner must later fold into the products
// partition's own request (see planner.injectRequiredFields).
func TestSolve_RequiresInjectsProducerSideFields(t *testing.T) {
	s := buildShippingEstimateSchema(t)
	p, err := operation.Prepare(s, "b1", `{ product { shippingEstimate } }`, "", nil)
	require.NoError(t, err)

	sol, err := Solve(s, p)
	require.NoError(t, err)

	inventoryID := s.Subgraphs[1].ID
	if s.Subgraph(s.Subgraphs[0].ID).Name == "inventory" {
		inventoryID = s.Subgraphs[0].ID
	}

	var shippingEstimate *Assignment
	for _, a := range sol.Assignments {
		if a.Field.ResponseKey == "shippingEstimate" {
			shippingEstimate = a
		}
	}

	require.NotNil(t, shippingEstimate)
	require.Equal(t, inventoryID, shippingEstimate.Subgraph)
	require.NotEqual(t, schema.NoKeyID, shippingEstimate.EntryKey)
	require.Len(t, shippingEstimate.Requires, 2)

	names := map[string]bool{}
	for _, fid := range shippingEstimate.Requires {
		names[s.Field(fid).Name] = true
	}
	require.True(t, names["price"])
	require.True(t, names["weight"])
}
