package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"nqs/internal/bus"
)

// BusResponse is the result of expanding or collapsing bus notation.
type BusResponse struct {
	Pattern string   `json:"pattern,omitempty"`
	Names   []string `json:"names"`
}

func newExpandCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "expand <pattern>",
		Short: "Expand bus notation into individual net names",
		Long: `Expand every [a:b] range in a pattern, outermost first.
The result is capped at resolver.maxBusExpansion names.

Examples:
  nqs expand 'data[0:3]'
  nqs expand 'm[1:0][2:3]'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := bus.ExpandLimit(args[0], a.cfg.Resolver.MaxBusExpansion)
			if err != nil {
				return err
			}
			resp := BusResponse{Pattern: args[0], Names: names}
			return a.write(cmd, resp, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, strings.Join(names, "\n"))
				return err
			})
		},
	}
}

func newCollapseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "collapse <name>...",
		Short: "Collapse indexed net names into one bus pattern",
		Long: `Collapse names that differ only in a contiguous index range, such as
d[0] d[1] d[2], into a single pattern (d[0:2]).

Examples:
  nqs collapse 'q[3]' 'q[2]' 'q[1]' 'q[0]'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern, ok := bus.Collapse(args)
			if !ok {
				return fmt.Errorf("names do not form a contiguous bus")
			}
			resp := BusResponse{Pattern: pattern, Names: args}
			return a.write(cmd, resp, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, pattern)
				return err
			})
		},
	}
}
