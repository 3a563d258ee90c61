package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/golang-jwt/jwt/v4"

	"github.com/hanpama/gatewaycore/internal/auth"
	"github.com/hanpama/gatewaycore/internal/cache"
	"github.com/hanpama/gatewaycore/internal/eventbus"
	"github.com/hanpama/gatewaycore/internal/executor"
	"github.com/hanpama/gatewaycore/internal/gateway"
	"github.com/hanpama/gatewaycore/internal/grpcrt"
	"github.com/hanpama/gatewaycore/internal/grpctp"
	"github.com/hanpama/gatewaycore/internal/introspection"
	"github.com/hanpama/gatewaycore/internal/ir"
	"github.com/hanpama/gatewaycore/internal/otel"
	"github.com/hanpama/gatewaycore/internal/protoreg"
	"github.com/hanpama/gatewaycore/internal/schema"
	"github.com/hanpama/gatewaycore/internal/server"
	transporthttp "github.com/hanpama/gatewaycore/internal/transport/http"
)

func runServe(cfg *Config) error {
	inputs := make([]schema.SubgraphInput, 0, len(cfg.Subgraphs)+1)
	httpEndpoints := map[string]string{}
	var virtualBackends []struct {
		name      string
		registry  grpcrt.Registry
		transport grpcrt.Transport
	}

	for _, sg := range cfg.Subgraphs {
		sdl, err := os.ReadFile(sg.SDLFile)
		if err != nil {
			return fmt.Errorf("subgraph %s: read SDL: %w", sg.Name, err)
		}
		switch sg.Kind {
		case "graphql", "":
			inputs = append(inputs, schema.SubgraphInput{Name: sg.Name, Kind: schema.SubgraphGraphQL, SDL: string(sdl), URL: sg.URL})
			httpEndpoints[sg.Name] = sg.URL
		case "virtual":
			inputs = append(inputs, schema.SubgraphInput{Name: sg.Name, Kind: schema.SubgraphVirtual, SDL: string(sdl)})
			proj, err := ir.Load(sg.GraphQLRoot, sg.GraphQLRootPkg)
			if err != nil {
				return fmt.Errorf("subgraph %s: load ir project: %w", sg.Name, err)
			}
			reg, err := protoreg.Build(proj)
			if err != nil {
				return fmt.Errorf("subgraph %s: build proto registry: %w", sg.Name, err)
			}
			wildcard := sg.Backends["*"]
			providers := map[string][]string{}
			for _, fd := range reg.GetAllServiceFiles() {
				for i := 0; i < fd.Services().Len(); i++ {
					fn := string(fd.Services().Get(i).FullName())
					eps := sg.Backends[fn]
					if len(eps) == 0 {
						eps = wildcard
					}
					if len(eps) == 0 {
						return fmt.Errorf("subgraph %s: no backend mapping for %s", sg.Name, fn)
					}
					providers[fn] = eps
				}
			}
			transport := grpctp.New(grpctp.WithProvider(grpctp.NewStaticEndpoints(providers)))
			virtualBackends = append(virtualBackends, struct {
				name      string
				registry  grpcrt.Registry
				transport grpcrt.Transport
			}{name: sg.Name, registry: reg, transport: transport})
		default:
			return fmt.Errorf("subgraph %s: unknown kind %q", sg.Name, sg.Kind)
		}
	}
	inputs = append(inputs, introspection.Subgraph())

	sch, err := schema.BuildSupergraph(inputs)
	if err != nil {
		return fmt.Errorf("build supergraph: %w", err)
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(cfg.Otel.Endpoint, cfg.Otel.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	runtimes := map[string]executor.PartitionRuntime{}
	if len(httpEndpoints) > 0 {
		httpTransport := transporthttp.New(sch, transporthttp.WithProvider(transporthttp.NewStaticEndpoints(httpEndpoints)))
		for name := range httpEndpoints {
			runtimes[name] = httpTransport
		}
	}
	introRuntime := introspection.NewRuntime(sch, cfg.Introspection.Enabled)
	runtimes[introspection.SubgraphName] = introRuntime
	for _, v := range virtualBackends {
		runtimes[v.name] = grpcrt.NewRuntime(sch, v.registry, v.transport)
	}

	var authenticator auth.Authenticator
	if cfg.Auth.JWTHMACSecret != "" {
		secret := []byte(cfg.Auth.JWTHMACSecret)
		authenticator = auth.NewJWTAuthenticator(func(t *jwt.Token) (any, error) { return secret, nil })
	}

	var trusted cache.DocumentStore
	var persisted *cache.InMemoryDocumentStore
	if len(cfg.Cache.TrustedDocuments) > 0 {
		trusted = cache.NewInMemoryDocumentStore(cfg.Cache.TrustedDocuments)
	}
	if cfg.Cache.PersistedQueries {
		persisted = cache.NewInMemoryDocumentStore(nil)
	}

	gw, err := gateway.New(gateway.Config{
		Schema:             sch,
		SchemaBuildID:      cache.Sha256Hash(schema.Render(sch)),
		Runtimes:           runtimes,
		Authenticator:      authenticator,
		TrustedDocuments:   trusted,
		Persisted:          persisted,
		OperationCacheSize: cfg.Cache.OperationCacheSize,
	})
	if err != nil {
		return fmt.Errorf("gateway init: %w", err)
	}

	var sopts []server.Option
	if cfg.Server.Pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if cfg.Server.Timeout > 0 {
		sopts = append(sopts, server.WithTimeout(cfg.Server.Timeout))
	}
	if cfg.Server.MaxBodyBytes > 0 {
		sopts = append(sopts, server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes))
	}
	if len(cfg.Server.MetadataHeaders) > 0 {
		sopts = append(sopts, server.WithMetadataHeaders(cfg.Server.MetadataHeaders...))
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		sopts = append(sopts, server.WithCORS(cfg.Server.CORSOrigins...))
	}
	sopts = append(sopts, server.WithGraphiQL(cfg.Server.GraphiQL))

	h, err := server.New(gw, sopts...)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", h)

	log.Printf("gatewayd listening on %s (%d subgraph(s))", cfg.Server.Addr, len(cfg.Subgraphs))
	return http.ListenAndServe(cfg.Server.Addr, mux)
}
