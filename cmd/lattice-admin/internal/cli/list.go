package cli

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lattice-http/lattice/core/pkg/dsl"
)

type listOptions struct {
	dslRoot string
}

func newListCmd() *cobra.Command {
	opts := listOptions{dslRoot: "./dsl"}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every endpoint discovered under a DSL root",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListWithOptions(cmd, opts)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&opts.dslRoot, "dsl-root", opts.dslRoot, "DSL root directory to walk")
	return cmd
}

func runListWithOptions(cmd *cobra.Command, opts listOptions) error {
	endpoints, err := dsl.NewLoader(log.New(cmd.ErrOrStderr(), "", 0)).Load(opts.dslRoot)
	if err != nil {
		return fmt.Errorf("load dsl root %q: %w", opts.dslRoot, err)
	}

	rows := append([]*dsl.Endpoint(nil), endpoints.Endpoints...)
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].URLPath != rows[j].URLPath {
			return rows[i].URLPath < rows[j].URLPath
		}
		return rows[i].Method < rows[j].Method
	})

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-6s %-30s %-20s %s\n", "METHOD", "PATH", "TAG", "GUARDS")
	for _, ep := range rows {
		fmt.Fprintf(out, "%-6s %-30s %-20s %d\n", ep.Method, ep.URLPath, ep.Tag, len(ep.Guards))
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, strings.TrimSpace("(no endpoints found)"))
	}
	return nil
}
