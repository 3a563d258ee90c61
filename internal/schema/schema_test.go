package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildSupergraph_MergesFieldsAcrossSubgraphs(t *testing.T) {
	accounts := `
		type Query { me: User }
		type User @key(fields: "id") {
			id: ID!
			name: String!
		}
	`
	reviews := `
		type User @key(fields: "id") {
			id: ID!
			reviews: [String!]!
		}
	`
	s, err := BuildSupergraph([]SubgraphInput{
		{Name: "accounts", SDL: accounts, Kind: SubgraphGraphQL},
		{Name: "reviews", SDL: reviews, Kind: SubgraphGraphQL},
	})
	require.NoError(t, err)

	userID, ok := s.TypeByName("User")
	require.True(t, ok)
	user := s.Type(userID)
	require.Len(t, user.Fields, 3) // id, name, reviews

	nameID, ok := s.FieldByName(userID, "name")
	require.True(t, ok)
	nameField := s.Field(nameID)
	require.Len(t, nameField.Resolvers, 1)
	require.Equal(t, "accounts", s.Subgraph(s.Resolver(nameField.Resolvers[0]).Subgraph).Name)

	reviewsID, ok := s.FieldByName(userID, "reviews")
	require.True(t, ok)
	reviewsField := s.Field(reviewsID)
	require.Len(t, reviewsField.Resolvers, 1)
}

func TestBuildSupergraph_EntityLookupResolverForForeignSubgraph(t *testing.T) {
	accounts := `
		type Query { me: User }
		type User @key(fields: "id") {
			id: ID!
			name: String!
		}
	`
	reviews := `
		type User @key(fields: "id") {
			id: ID!
			reviews: [String!]!
		}
	`
	s, err := BuildSupergraph([]SubgraphInput{
		{Name: "accounts", SDL: accounts, Kind: SubgraphGraphQL},
		{Name: "reviews", SDL: reviews, Kind: SubgraphGraphQL},
	})
	require.NoError(t, err)

	userID, _ := s.TypeByName("User")
	nameID, _ := s.FieldByName(userID, "name")
	resolvers := s.ResolversForField(nameID)
	require.Len(t, resolvers, 2) // direct from accounts, entity-lookup from reviews

	var kinds []ResolverKind
	for _, r := range resolvers {
		kinds = append(kinds, r.Kind)
	}
	require.Contains(t, kinds, ResolverGraphQL)
	require.Contains(t, kinds, ResolverEntityLookup)
}

func TestBuildSupergraph_OverrideDisablesOriginalResolver(t *testing.T) {
	inventory := `
		type Query { q: Int }
		type Product @key(fields: "id") {
			id: ID!
			inStock: Boolean!
		}
	`
	shipping := `
		type Product @key(fields: "id") {
			id: ID!
			inStock: Boolean! @override(from: "inventory")
		}
	`
	s, err := BuildSupergraph([]SubgraphInput{
		{Name: "inventory", SDL: inventory, Kind: SubgraphGraphQL},
		{Name: "shipping", SDL: shipping, Kind: SubgraphGraphQL},
	})
	require.NoError(t, err)

	productID, _ := s.TypeByName("Product")
	fieldID, _ := s.FieldByName(productID, "inStock")
	live := s.ResolversForField(fieldID)
	require.Len(t, live, 1)
	require.Equal(t, "shipping", s.Subgraph(live[0].Subgraph).Name)
}

func TestRender_IsDeterministicAcrossRebuilds(t *testing.T) {
	sdl := `
		type Query { widgets: [Widget!]! }
		type Widget { id: ID! name: String! }
	`
	s1, err := BuildSupergraph([]SubgraphInput{{Name: "a", SDL: sdl, Kind: SubgraphGraphQL}})
	require.NoError(t, err)
	s2, err := BuildSupergraph([]SubgraphInput{{Name: "a", SDL: sdl, Kind: SubgraphGraphQL}})
	require.NoError(t, err)
	require.Equal(t, Render(s1), Render(s2))
}
