package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// netPatternFlags selects a template/net pattern pair.
type netPatternFlags struct {
	template      string
	templateRegex bool
	netRegex      bool
}

func (f *netPatternFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.template, "template", "t", "", "Template to search (default: top cell)")
	cmd.Flags().BoolVar(&f.templateRegex, "template-regex", false, "Treat --template as a regular expression")
	cmd.Flags().BoolVar(&f.netRegex, "net-regex", false, "Treat the net as a regular expression")
}

// NetsResponse lists matching nets as "template:net" (bare for the top cell).
type NetsResponse struct {
	Template  string   `json:"template,omitempty"`
	Net       string   `json:"net,omitempty"`
	Nets      []string `json:"nets"`
	Templates []string `json:"templates,omitempty"`
}

func newNetsCmd(a *app) *cobra.Command {
	var f netPatternFlags

	cmd := &cobra.Command{
		Use:   "nets [net]",
		Short: "Find nets by name, bus pattern or regex",
		Long: `Find the canonical nets matching a name in the selected templates.

Without a net, every canonical net of --template is listed. Plain names also
match through aliases; bus patterns such as 'd[0:7]' are expanded.

Examples:
  nqs nets --template inv
  nqs nets vdd --template 'inv.*' --template-regex
  nqs nets 'data\[\d+\]' --net-regex`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}

			resp := NetsResponse{Template: f.template}
			if len(args) == 0 {
				if f.templateRegex {
					return fmt.Errorf("listing all nets needs an exact --template")
				}
				if !svc.TemplateExists(f.template) {
					return fmt.Errorf("template %q not found", f.template)
				}
				resp.Nets = svc.NetsInTemplate(f.template)
			} else {
				resp.Net = args[0]
				resp.Nets, resp.Templates, err = svc.FindMatches(f.template, args[0], f.templateRegex, f.netRegex)
				if err != nil {
					return err
				}
			}
			if resp.Nets == nil {
				resp.Nets = []string{}
			}

			return a.write(cmd, resp, func(w io.Writer) error {
				if len(resp.Nets) == 0 {
					fmt.Fprintln(w, "No matching nets.")
					return nil
				}
				fmt.Fprintln(w, strings.Join(resp.Nets, "\n"))
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

// ResolveResponse maps a net pattern to the top-cell nets it is wired to.
type ResolveResponse struct {
	Template  string   `json:"template,omitempty"`
	Net       string   `json:"net"`
	Canonical string   `json:"canonical,omitempty"`
	IDs       []int    `json:"ids"`
	TopNets   []string `json:"topNets"`
}

func newResolveCmd(a *app) *cobra.Command {
	var f netPatternFlags

	cmd := &cobra.Command{
		Use:   "resolve <net>",
		Short: "Resolve a net to the top-cell nets it connects to",
		Long: `Resolve a net (or bus / regex pattern) in a template to the canonical
top-cell nets it is physically connected to, across every placement of the
template in the hierarchy.

Examples:
  nqs resolve n3 --template d
  nqs resolve 'q[0:3]' --template reg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}

			ids, err := svc.ResolveToCanonicalIDs(f.template, args[0], f.templateRegex, f.netRegex)
			if err != nil {
				return err
			}

			resp := ResolveResponse{
				Template: f.template,
				Net:      args[0],
				IDs:      append([]int{}, ids...),
				TopNets:  make([]string, 0, len(ids)),
			}
			if !f.templateRegex && !f.netRegex {
				resp.Canonical, _ = svc.CanonicalNetName(args[0], f.template)
			}
			for _, id := range ids {
				if name, ok := svc.CanonicalNetNameOfID(id); ok {
					resp.TopNets = append(resp.TopNets, name)
				}
			}

			return a.write(cmd, resp, func(w io.Writer) error {
				if resp.Canonical != "" && resp.Canonical != strings.ToLower(resp.Net) {
					fmt.Fprintf(w, "canonical: %s\n", resp.Canonical)
				}
				if len(resp.TopNets) == 0 {
					fmt.Fprintln(w, "Not connected to any top-cell net.")
					return nil
				}
				for i, name := range resp.TopNets {
					fmt.Fprintf(w, "%d\t%s\n", resp.IDs[i], name)
				}
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}
