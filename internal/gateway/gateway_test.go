package gateway

import (
	"context"
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/gatewaycore/internal/auth"
	"github.com/hanpama/gatewaycore/internal/cache"
	"github.com/hanpama/gatewaycore/internal/eventbus"
	"github.com/hanpama/gatewaycore/internal/events"
	"github.com/hanpama/gatewaycore/internal/executor"
	"github.com/hanpama/gatewaycore/internal/schema"
)

type runtimeFunc func(ctx context.Context, req *executor.PartitionRequest) (*executor.PartitionResponse, error)

func (f runtimeFunc) Execute(ctx context.Context, req *executor.PartitionRequest) (*executor.PartitionResponse, error) {
	return f(ctx, req)
}

func buildGatewayTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.BuildSupergraph([]schema.SubgraphInput{
		{Name: "accounts", Kind: schema.SubgraphGraphQL, SDL: `
			type Query {
				me: User!
				secret: String! @authenticated
			}
			type User @key(fields: "id") { id: ID! name: String! }
		`},
	})
	require.NoError(t, err)
	return s
}

func staticUserRuntime() executor.PartitionRuntime {
	return runtimeFunc(func(ctx context.Context, req *executor.PartitionRequest) (*executor.PartitionResponse, error) {
		values := make([]map[string]any, len(req.Representations))
		for i := range values {
			values[i] = map[string]any{}
			for _, f := range req.Partition.Fields {
				switch f.ResponseKey {
				case "me":
					values[i]["me"] = map[string]any{"id": "1", "name": "Ada"}
				case "secret":
					values[i]["secret"] = "classified"
				}
			}
		}
		return &executor.PartitionResponse{Values: values}, nil
	})
}

func TestGateway_ExecuteSimpleQuery(t *testing.T) {
	s := buildGatewayTestSchema(t)
	gw, err := New(Config{
		Schema:        s,
		SchemaBuildID: "build-1",
		Runtimes:      map[string]executor.PartitionRuntime{"accounts": staticUserRuntime()},
	})
	require.NoError(t, err)

	result := gw.Execute(context.Background(), Request{Query: `{ me { name } }`})
	require.Empty(t, result.Errors)
	data := result.Data.(map[string]any)
	require.Equal(t, "Ada", data["me"].(map[string]any)["name"])
}

func TestGateway_CachesRepeatedOperation(t *testing.T) {
	s := buildGatewayTestSchema(t)
	gw, err := New(Config{
		Schema:        s,
		SchemaBuildID: "build-1",
		Runtimes:      map[string]executor.PartitionRuntime{"accounts": staticUserRuntime()},
	})
	require.NoError(t, err)

	req := Request{Query: `{ me { name } }`}
	gw.Execute(context.Background(), req)
	require.Equal(t, 1, gw.opCache.Len())
	gw.Execute(context.Background(), req)
	require.Equal(t, 1, gw.opCache.Len())
}

func TestGateway_AuthenticatedFieldRejectsAnonymous(t *testing.T) {
	s := buildGatewayTestSchema(t)
	gw, err := New(Config{
		Schema:        s,
		SchemaBuildID: "build-1",
		Runtimes:      map[string]executor.PartitionRuntime{"accounts": staticUserRuntime()},
	})
	require.NoError(t, err)

	result := gw.Execute(context.Background(), Request{Query: `{ secret }`})
	require.Len(t, result.Errors, 1)
	require.Equal(t, "UNAUTHENTICATED", string(result.Errors[0].Code()))
}

func TestGateway_AuthenticatedFieldAllowsValidToken(t *testing.T) {
	s := buildGatewayTestSchema(t)
	key := []byte("k")
	authn := auth.NewJWTAuthenticator(func(*jwt.Token) (any, error) { return key, nil })
	gw, err := New(Config{
		Schema:        s,
		SchemaBuildID: "build-1",
		Runtimes:      map[string]executor.PartitionRuntime{"accounts": staticUserRuntime()},
		Authenticator: authn,
	})
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{})
	signed, err := token.SignedString(key)
	require.NoError(t, err)

	headers := http.Header{"Authorization": []string{"Bearer " + signed}}
	result := gw.Execute(context.Background(), Request{Query: `{ secret }`, Headers: headers})
	require.Empty(t, result.Errors)
	data := result.Data.(map[string]any)
	require.Equal(t, "classified", data["secret"])
}

func TestGateway_PersistedQueryNotFoundThenRegistersOnFullSend(t *testing.T) {
	s := buildGatewayTestSchema(t)
	persisted := cache.NewInMemoryDocumentStore(nil)
	gw, err := New(Config{
		Schema:        s,
		SchemaBuildID: "build-1",
		Runtimes:      map[string]executor.PartitionRuntime{"accounts": staticUserRuntime()},
		Persisted:     persisted,
	})
	require.NoError(t, err)

	query := `{ me { name } }`
	hash := cache.Sha256Hash(query)
	ext := map[string]any{"persistedQuery": map[string]any{"version": 1, "sha256Hash": hash}}

	miss := gw.Execute(context.Background(), Request{Extensions: ext})
	require.Len(t, miss.Errors, 1)
	require.Equal(t, "PERSISTED_QUERY_NOT_FOUND", string(miss.Errors[0].Code()))

	full := gw.Execute(context.Background(), Request{Query: query, Extensions: ext})
	require.Empty(t, full.Errors)

	short := gw.Execute(context.Background(), Request{Extensions: ext})
	require.Empty(t, short.Errors)
}

func TestGateway_PublishesPrepareAndPlanEvents(t *testing.T) {
	s := buildGatewayTestSchema(t)
	gw, err := New(Config{
		Schema:        s,
		SchemaBuildID: "build-1",
		Runtimes:      map[string]executor.PartitionRuntime{"accounts": staticUserRuntime()},
	})
	require.NoError(t, err)

	bus := eventbus.New()
	eventbus.Use(bus)
	defer eventbus.Use(nil)

	var prepareFinishes []events.OperationPrepareFinish
	var planFinishes []events.PlanFinish
	eventbus.Subscribe(func(ctx context.Context, e events.OperationPrepareFinish) {
		prepareFinishes = append(prepareFinishes, e)
	})
	eventbus.Subscribe(func(ctx context.Context, e events.PlanFinish) {
		planFinishes = append(planFinishes, e)
	})

	result := gw.Execute(context.Background(), Request{Query: `{ me { name } }`})
	require.Empty(t, result.Errors)

	require.Len(t, prepareFinishes, 1)
	require.False(t, prepareFinishes[0].CacheHit)

	require.Len(t, planFinishes, 1)
	require.Equal(t, 1, planFinishes[0].PartitionCount)

	result = gw.Execute(context.Background(), Request{Query: `{ me { name } }`})
	require.Empty(t, result.Errors)
	require.Len(t, prepareFinishes, 2)
	require.True(t, prepareFinishes[1].CacheHit)
}
