package main

import (
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "envquery",
		Short: "Run environment queries",
		Long: `envquery evaluates environment query templates against a world.

Templates are TOML or YAML files describing generators and tests.
The world is a TOML file listing actors and named contexts.

Settings are read from envquery.toml in the working directory,
from ENVQUERY_* environment variables and from flags, with flags
taking precedence.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetVersionTemplate("envquery version {{.Version}}\n")
	root.PersistentFlags().String("config", "", "Config file (default: ./envquery.toml)")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "", "Log format: text or json")

	root.AddCommand(newRunCmd(), newValidateCmd())
	return root
}
