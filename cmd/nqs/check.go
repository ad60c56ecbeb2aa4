package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"nqs/internal/conflict"
	"nqs/internal/lines"
	"nqs/internal/output"
)

// LineReport is the check result for one configuration line.
type LineReport struct {
	ID        string          `json:"id"`
	Kind      lines.Kind      `json:"kind"`
	Nets      []string        `json:"nets"`
	Value     *float64        `json:"value,omitempty"`
	Conflicts []ConflictEntry `json:"conflicts,omitempty"`
	Errors    []string        `json:"errors,omitempty"`
	Warnings  []string        `json:"warnings,omitempty"`
}

// ConflictEntry names one peer line and the nets both lines drive.
type ConflictEntry struct {
	Line       string   `json:"line"`
	SharedNets []string `json:"sharedNets"`
}

// CheckResponse is the result of checking a line-set file.
type CheckResponse struct {
	File        string       `json:"file"`
	TopCell     string       `json:"topCell"`
	Lines       []LineReport `json:"lines"`
	Conflicting int          `json:"conflicting"`
	Invalid     int          `json:"invalid"`
}

func newCheckCmd(a *app) *cobra.Command {
	var (
		validate bool
		strict   bool
	)

	cmd := &cobra.Command{
		Use:   "check <lines-file>",
		Short: "Report configuration lines that touch the same physical net",
		Long: `Load a line-set file (TOML or YAML) of AF and mutex lines, resolve every
line to the top-cell nets it touches, and report which lines share a net.

With --validate each line is also checked on its own and against the netlist.
With --strict the command fails when any line conflicts or is invalid.

Examples:
  nqs check lines.toml --netlist chip.sp.gz
  nqs check lines.yaml --validate --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			set, err := lines.LoadFile(args[0])
			if err != nil {
				return err
			}

			d := conflict.NewDetector(svc, a.logger)
			d.Rebuild(set.Lines())

			resp := CheckResponse{File: args[0], TopCell: svc.TopCell()}
			for _, l := range set.Lines() {
				line, kind, _ := set.Get(string(l.ID))
				report := LineReport{
					ID:   string(l.ID),
					Kind: kind,
					Nets: d.NetNames(d.Store().Nets(l.ID)),
				}
				if af, ok := line.(*lines.AFLine); ok {
					v := af.Value
					report.Value = &v
				}
				if info := d.ConflictInfo(l.ID); info != nil {
					report.Conflicts = conflictEntries(d, info)
					resp.Conflicting++
				}
				if validate {
					r := line.Validate(svc)
					report.Errors, report.Warnings = r.Errors, r.Warnings
					if !r.OK() {
						resp.Invalid++
					}
				}
				resp.Lines = append(resp.Lines, report)
			}
			if resp.Lines == nil {
				resp.Lines = []LineReport{}
			}

			a.logger.Info("Checked line set",
				"file", args[0],
				"lines", len(resp.Lines),
				"conflicting", resp.Conflicting,
			)

			if err := a.write(cmd, resp, func(w io.Writer) error { return writeCheckHuman(w, resp) }); err != nil {
				return err
			}
			if strict && (resp.Conflicting > 0 || resp.Invalid > 0) {
				return fmt.Errorf("%d conflicting and %d invalid lines", resp.Conflicting, resp.Invalid)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&validate, "validate", false, "Also validate each line")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when any line conflicts or is invalid")
	return cmd
}

// conflictEntries splits the shared nets of a line by the peer that owns them.
func conflictEntries(d *conflict.Detector, info *conflict.Info) []ConflictEntry {
	shared := make(map[int]struct{}, len(info.SharedNets))
	for _, n := range info.SharedNets {
		shared[n] = struct{}{}
	}

	out := make([]ConflictEntry, 0, len(info.Peers))
	for _, peer := range info.Peers {
		var common []int
		for _, n := range d.Store().Nets(peer) {
			if _, ok := shared[n]; ok {
				common = append(common, n)
			}
		}
		sort.Ints(common)
		out = append(out, ConflictEntry{Line: string(peer), SharedNets: d.NetNames(common)})
	}
	return out
}

func writeCheckHuman(w io.Writer, resp CheckResponse) error {
	fmt.Fprintf(w, "%s (top cell %s)\n", resp.File, resp.TopCell)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	for _, l := range resp.Lines {
		status := "ok"
		switch {
		case len(l.Errors) > 0:
			status = "INVALID"
		case len(l.Conflicts) > 0:
			status = "CONFLICT"
		}
		fmt.Fprintf(w, "%-10s %-6s %s  nets: %s", status, l.Kind, l.ID, joinOrDash(l.Nets))
		if l.Value != nil {
			fmt.Fprintf(w, "  af: %s", output.FormatFloat(*l.Value))
		}
		fmt.Fprintln(w)
		for _, c := range l.Conflicts {
			fmt.Fprintf(w, "    conflicts with %s on %s\n", c.Line, strings.Join(c.SharedNets, ", "))
		}
		for _, e := range l.Errors {
			fmt.Fprintf(w, "    error: %s\n", e)
		}
		for _, warn := range l.Warnings {
			fmt.Fprintf(w, "    warning: %s\n", warn)
		}
	}

	fmt.Fprintln(w)
	_, err := fmt.Fprintf(w, "%d lines, %d conflicting, %d invalid\n", len(resp.Lines), resp.Conflicting, resp.Invalid)
	return err
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
