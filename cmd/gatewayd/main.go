package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hanpama/gatewaycore/internal/ir"
	"github.com/hanpama/gatewaycore/internal/protoreg"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "gatewayd",
		Short: "Federated GraphQL gateway",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to gatewayd config file (default: ./gatewayd.yaml)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Build the supergraph and start serving GraphQL requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}

	var protoRoot, protoRootPkg, protoOut string
	compileProtoCmd := &cobra.Command{
		Use:   "compile-proto",
		Short: "Generate .proto files for a virtual subgraph's GraphQL project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if protoOut == "" {
				return fmt.Errorf("--out is required")
			}
			if protoRootPkg == "" {
				return fmt.Errorf("--root-pkg is required")
			}
			proj, err := ir.Load(protoRoot, protoRootPkg)
			if err != nil {
				return fmt.Errorf("load project: %w", err)
			}
			reg, err := protoreg.Build(proj)
			if err != nil {
				return fmt.Errorf("build proto registry: %w", err)
			}
			return protoreg.Render(reg, protoOut)
		},
	}
	compileProtoCmd.Flags().StringVar(&protoRoot, "root", ".", "GraphQL project root")
	compileProtoCmd.Flags().StringVar(&protoRootPkg, "root-pkg", "", "GraphQL root package")
	compileProtoCmd.Flags().StringVar(&protoOut, "out", "", "Output directory for generated .proto files")

	root.AddCommand(serveCmd, compileProtoCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
