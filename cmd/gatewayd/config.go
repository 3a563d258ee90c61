package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full shape of a gatewayd config file (always parsed as
// YAML: loadConfig sets viper's config type to "yaml" whatever the file's
// extension), plus whatever GATEWAYD_-prefixed
// environment variables override it.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Introspection IntrospectionConfig `mapstructure:"introspection"`
	Otel          OtelConfig          `mapstructure:"otel"`
	Subgraphs     []SubgraphConfig    `mapstructure:"subgraphs"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Pretty          bool          `mapstructure:"pretty"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxBodyBytes    int64         `mapstructure:"maxBodyBytes"`
	CORSOrigins     []string      `mapstructure:"corsOrigins"`
	MetadataHeaders []string      `mapstructure:"metadataHeaders"`
	GraphiQL        bool          `mapstructure:"graphiql"`
}

type AuthConfig struct {
	// JWTHMACSecret, when non-empty, turns on bearer-token authentication
	// via auth.JWTAuthenticator with an HS256/384/512 key. Anonymous
	// requests stay anonymous; only fields guarded by @authenticated or
	// @requiresScopes need a presented, valid token.
	JWTHMACSecret string   `mapstructure:"jwtHMACSecret"`
	ValidMethods  []string `mapstructure:"validMethods"`
}

type CacheConfig struct {
	OperationCacheSize int               `mapstructure:"operationCacheSize"`
	TrustedDocuments    map[string]string `mapstructure:"trustedDocuments"`
	PersistedQueries    bool              `mapstructure:"persistedQueries"`
}

type IntrospectionConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type OtelConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Service  string `mapstructure:"service"`
}

// SubgraphConfig describes one federated service. Kind "graphql" is served
// over GraphQL-over-HTTP (internal/transport/http); kind "virtual" is
// served through the gRPC/protoreflect bridge (internal/grpcrt,
// internal/grpctp, internal/protoreg) the way the teacher's single-project
// gateway always was, now as one subgraph among several.
type SubgraphConfig struct {
	Name string `mapstructure:"name"`
	Kind string `mapstructure:"kind"`

	// graphql
	URL     string `mapstructure:"url"`
	SDLFile string `mapstructure:"sdlFile"`

	// virtual
	GraphQLRoot    string              `mapstructure:"graphqlRoot"`
	GraphQLRootPkg string              `mapstructure:"graphqlRootPkg"`
	Backends       map[string][]string `mapstructure:"backends"`
}

func loadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("gatewayd")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("GATEWAYD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.timeout", 10*time.Second)
	v.SetDefault("server.maxBodyBytes", int64(1<<20))
	v.SetDefault("server.graphiql", true)
	v.SetDefault("cache.operationCacheSize", 1000)
	v.SetDefault("introspection.enabled", true)
	v.SetDefault("otel.service", "gatewayd")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(cfg.Subgraphs) == 0 {
		return nil, fmt.Errorf("config must declare at least one subgraph")
	}
	return &cfg, nil
}
