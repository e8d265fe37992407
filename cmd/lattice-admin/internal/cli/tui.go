package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lattice-http/lattice/cmd/lattice-admin/internal/tui"
)

type tuiOptions struct {
	dslRoot string
}

func newTUICmd() *cobra.Command {
	opts := tuiOptions{dslRoot: "./dsl"}
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse a DSL root's endpoints and guard chains interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := tui.Run(opts.dslRoot); err != nil {
				return fmt.Errorf("tui: %w", err)
			}
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&opts.dslRoot, "dsl-root", opts.dslRoot, "DSL root directory to walk")
	return cmd
}
