package introspection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/gatewaycore/internal/executor"
	"github.com/hanpama/gatewaycore/internal/gateway"
	"github.com/hanpama/gatewaycore/internal/gqlerror"
	"github.com/hanpama/gatewaycore/internal/schema"
)

type stubRuntime struct{}

func (stubRuntime) Execute(ctx context.Context, req *executor.PartitionRequest) (*executor.PartitionResponse, error) {
	values := make([]map[string]any, len(req.Representations))
	for i := range values {
		values[i] = map[string]any{}
	}
	return &executor.PartitionResponse{Values: values}, nil
}

func buildIntrospectableGateway(t *testing.T, enabled bool) (*gateway.Gateway, *Runtime) {
	t.Helper()
	sch, err := schema.BuildSupergraph([]schema.SubgraphInput{
		{Name: "svc", Kind: schema.SubgraphGraphQL, SDL: `
			type Query {
				hello: String
			}
		`},
		Subgraph(),
	})
	require.NoError(t, err)

	rt := NewRuntime(sch, enabled)
	gw, err := gateway.New(gateway.Config{
		Schema:        sch,
		SchemaBuildID: "test-build",
		Runtimes: map[string]executor.PartitionRuntime{
			"svc":        stubRuntime{},
			SubgraphName: rt,
		},
	})
	require.NoError(t, err)
	return gw, rt
}

func TestRuntime_SchemaQueryType(t *testing.T) {
	gw, _ := buildIntrospectableGateway(t, true)

	res := gw.Execute(context.Background(), gateway.Request{Query: `{ __schema { queryType { name } } }`})
	require.Empty(t, res.Errors)
	data := res.Data.(map[string]any)
	schemaObj := data["__schema"].(map[string]any)
	qt := schemaObj["queryType"].(map[string]any)
	require.Equal(t, "Query", qt["name"])
}

func TestRuntime_TypeByName(t *testing.T) {
	gw, _ := buildIntrospectableGateway(t, true)

	res := gw.Execute(context.Background(), gateway.Request{Query: `{ __type(name: "Query") { name kind fields { name } } }`})
	require.Empty(t, res.Errors)
	data := res.Data.(map[string]any)
	typeObj := data["__type"].(map[string]any)
	require.Equal(t, "Query", typeObj["name"])
	require.Equal(t, "OBJECT", typeObj["kind"])
}

func TestRuntime_UnknownTypeNameReturnsNull(t *testing.T) {
	gw, _ := buildIntrospectableGateway(t, true)

	res := gw.Execute(context.Background(), gateway.Request{Query: `{ __type(name: "DoesNotExist") { name } }`})
	require.Empty(t, res.Errors)
	data := res.Data.(map[string]any)
	require.Nil(t, data["__type"])
}

func TestRuntime_DisabledReportsIntrospectionError(t *testing.T) {
	gw, _ := buildIntrospectableGateway(t, false)

	res := gw.Execute(context.Background(), gateway.Request{Query: `{ __schema { queryType { name } } }`})
	require.NotEmpty(t, res.Errors)
	require.Equal(t, gqlerror.CodeIntrospectionIsDisabled, res.Errors[0].Code())
}

func TestRuntime_SetEnabledTogglesAtRuntime(t *testing.T) {
	gw, rt := buildIntrospectableGateway(t, false)

	res := gw.Execute(context.Background(), gateway.Request{Query: `{ __schema { queryType { name } } }`})
	require.NotEmpty(t, res.Errors)

	rt.SetEnabled(true)
	res = gw.Execute(context.Background(), gateway.Request{Query: `{ __schema { queryType { name } } }`})
	require.Empty(t, res.Errors)
}
