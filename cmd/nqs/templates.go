package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"nqs/internal/netlist"
)

// TemplatesResponse lists templates matching a pattern.
type TemplatesResponse struct {
	TopCell   string           `json:"topCell"`
	Pattern   string           `json:"pattern,omitempty"`
	Templates []string         `json:"templates"`
	Details   []TemplateDetail `json:"details,omitempty"`
}

// TemplateDetail describes the ports, placements and devices of one template.
// References counts the places other templates instantiate it.
type TemplateDetail struct {
	Name       string        `json:"name"`
	Ports      []string      `json:"ports"`
	Instances  int           `json:"instances"`
	References int           `json:"references"`
	Devices    []DeviceEntry `json:"devices"`
}

// DeviceEntry is one leaf device record.
type DeviceEntry struct {
	Name string             `json:"name"`
	Kind netlist.DeviceKind `json:"kind"`
	Nets []string           `json:"nets"`
}

func newTemplatesCmd(a *app) *cobra.Command {
	var (
		regex   bool
		devices bool
	)

	cmd := &cobra.Command{
		Use:   "templates [pattern]",
		Short: "List netlist templates",
		Long: `List the templates (subcircuits) defined in the netlist.

With a pattern, only templates equal to it are listed, or matching it
case-insensitively when --regex is given. --devices adds the ports, instance
and reference counts and device records of each template.

Examples:
  nqs templates --netlist chip.sp
  nqs templates 'inv.*' --regex --netlist chip.sp
  nqs templates inv --devices`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}

			resp := TemplatesResponse{TopCell: svc.TopCell()}
			if len(args) == 0 {
				resp.Templates = svc.AllTemplates()
			} else {
				resp.Pattern = args[0]
				resp.Templates, err = svc.MatchingTemplates(args[0], regex)
				if err != nil {
					return err
				}
			}
			if resp.Templates == nil {
				resp.Templates = []string{}
			}
			if devices {
				resp.Details = templateDetails(svc.Netlist(), resp.Templates)
			}

			return a.write(cmd, resp, func(w io.Writer) error {
				for i, t := range resp.Templates {
					if t == resp.TopCell {
						fmt.Fprintf(w, "%s (top)\n", t)
					} else {
						fmt.Fprintln(w, t)
					}
					if devices {
						writeTemplateDetail(w, resp.Details[i])
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&regex, "regex", false, "Treat the pattern as a regular expression")
	cmd.Flags().BoolVar(&devices, "devices", false, "Show ports, instances and devices")
	return cmd
}

func templateDetails(nl *netlist.Netlist, names []string) []TemplateDetail {
	out := make([]TemplateDetail, 0, len(names))
	for _, name := range names {
		d := TemplateDetail{Name: name, Ports: []string{}, Devices: []DeviceEntry{}}
		if t, ok := nl.Template(name); ok {
			d.Ports = append(d.Ports, t.Ports()...)
			d.Instances = len(t.Instances())
			d.References = len(t.References())
			for _, dev := range t.Devices() {
				d.Devices = append(d.Devices, DeviceEntry{Name: dev.Name, Kind: dev.Kind, Nets: dev.Nets})
			}
		}
		out = append(out, d)
	}
	return out
}

func writeTemplateDetail(w io.Writer, d TemplateDetail) {
	fmt.Fprintf(w, "  ports: %s\n", joinOrDash(d.Ports))
	fmt.Fprintf(w, "  instances: %d\n", d.Instances)
	fmt.Fprintf(w, "  references: %d\n", d.References)
	for _, dev := range d.Devices {
		fmt.Fprintf(w, "  %s %s %s\n", dev.Name, dev.Kind, strings.Join(dev.Nets, " "))
	}
}
