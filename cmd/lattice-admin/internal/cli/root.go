// Package cli wires the lattice-admin subcommands (list, tui) together,
// one command per file, each exposing a newXCmd constructor.
package cli

import (
	"github.com/spf13/cobra"
)

// Execute builds the root command and runs it against os.Args.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lattice-admin",
		Short: "Inspect a lattice DSL root without starting the HTTP server",
	}
	root.AddCommand(newListCmd())
	root.AddCommand(newTUICmd())
	return root
}
