package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/gatewaycore/internal/executor"
	"github.com/hanpama/gatewaycore/internal/operation"
	"github.com/hanpama/gatewaycore/internal/planner"
	"github.com/hanpama/gatewaycore/internal/schema"
)

func buildTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.BuildSupergraph([]schema.SubgraphInput{
		{Name: "accounts", SDL: `
			type Query { me: User }
			type User @key(fields: "id") { id: ID! name: String! }
		`, Kind: schema.SubgraphGraphQL},
	})
	require.NoError(t, err)
	return s
}

func TestTransportExecute_RootPartition(t *testing.T) {
	s := buildTestSchema(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Contains(t, req.Query, "me")

		_ = json.NewEncoder(w).Encode(graphQLResponse{
			Data: map[string]any{"me": map[string]any{"id": "1", "name": "Ada"}},
		})
	}))
	defer srv.Close()

	provider := NewStaticEndpoints(map[string]string{"accounts": srv.URL})
	transport := New(s, WithProvider(provider))

	field := &operation.Field{ResponseKey: "me", Definition: s.Type(s.QueryType).Fields[0]}
	partition := &planner.Partition{
		ID:            0,
		Subgraph:      s.Subgraphs[0].ID,
		EntryKey:      schema.NoKeyID,
		MutationIndex: -1,
		Fields:        []*operation.Field{field},
	}

	resp, err := transport.Execute(context.Background(), &executor.PartitionRequest{
		Partition:       partition,
		Representations: []map[string]any{{}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Values, 1)
	me, ok := resp.Values[0]["me"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Ada", me["name"])
}

func TestTransportExecute_EntityLookupPartition(t *testing.T) {
	s := buildTestSchema(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Contains(t, req.Query, "_entities")

		reps, ok := req.Variables["representations"].([]any)
		require.True(t, ok)
		require.Len(t, reps, 1)
		rep := reps[0].(map[string]any)
		require.Equal(t, "User", rep["__typename"])
		require.Equal(t, "1", rep["id"])

		_ = json.NewEncoder(w).Encode(graphQLResponse{
			Data: map[string]any{"_entities": []any{map[string]any{"name": "Ada"}}},
		})
	}))
	defer srv.Close()

	provider := NewStaticEndpoints(map[string]string{"accounts": srv.URL})
	transport := New(s, WithProvider(provider))

	var keyID schema.KeyID
	var nameField schema.FieldID
	for _, typ := range s.Types {
		if typ.Name != "User" {
			continue
		}
		keyID = typ.Keys[0]
		for _, fid := range typ.Fields {
			if s.Field(fid).Name == "name" {
				nameField = fid
			}
		}
	}

	field := &operation.Field{ResponseKey: "name", Definition: nameField}
	partition := &planner.Partition{
		ID:            0,
		Subgraph:      s.Subgraphs[0].ID,
		EntryKey:      keyID,
		ParentPath:    []string{"me"},
		MutationIndex: -1,
		Fields:        []*operation.Field{field},
	}

	resp, err := transport.Execute(context.Background(), &executor.PartitionRequest{
		Partition:       partition,
		Representations: []map[string]any{{"id": "1"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Values, 1)
	require.Equal(t, "Ada", resp.Values[0]["name"])
}
