// Package main is the sgroupald CLI: a cobra root command with serve,
// config validate, and version subcommands, mirroring keto's own
// cmd/ layout (root command + cobra.Command per concern, flags bound
// with pflag and read back through configx).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev" // overridden via -ldflags at release build time

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "sgroupald",
		Short:        "hierarchical group-management service",
		SilenceUsage: true,
	}
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the CLI, exiting the process with status 1 on error.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
