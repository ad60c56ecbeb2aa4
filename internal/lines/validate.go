package lines

import (
	"fmt"

	"nqs/internal/bus"
	"nqs/internal/errors"
	"nqs/internal/query"
)

// Netlist is the query surface line validation needs. *query.Service implements it.
type Netlist interface {
	TemplateExists(name string) bool
	MatchingTemplates(pattern string, isRegex bool) ([]string, error)
	FindMatches(template, net string, templateRegex, netRegex bool) ([]string, []string, error)
	CanonicalNetName(net, template string) (string, bool)
	MaxBusExpansion() int
}

// Result holds validation findings. Errors make a line unusable; warnings do not.
type Result struct {
	Errors   []string `json:"errors,omitempty" yaml:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// OK reports whether there are no errors.
func (r Result) OK() bool { return len(r.Errors) == 0 }

func (r *Result) errorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// expandBus expands pattern under the netlist's cap. An oversized pattern is a
// warning and a malformed one an error; either way ok is false.
func (r *Result) expandBus(pattern string, max int) ([]string, bool) {
	expanded, err := bus.ExpandLimit(pattern, max)
	switch {
	case errors.IsCode(err, errors.ExpansionLimit):
		r.warnf("Bus pattern '%s' expands to more than %d nets.", pattern, max)
		return nil, false
	case err != nil:
		r.errorf("Invalid net pattern '%s': %v", pattern, err)
		return nil, false
	}
	return expanded, true
}

// Validate checks the line on its own and, when nl is non-nil and the line has
// no errors, against the netlist.
func (l *AFLine) Validate(nl Netlist) Result {
	var r Result

	if l.Net == "" {
		r.errorf("Net name cannot be empty.")
	}
	if l.Value < 0 || l.Value > 1 {
		r.errorf("AF value must be between 0 and 1.")
	}
	if !l.EM && !l.SH {
		r.errorf("At least one of EM or SH must be enabled.")
	}
	if !r.OK() || nl == nil {
		return r
	}

	if l.Template != "" {
		templates, err := nl.MatchingTemplates(l.Template, l.TemplateRegex)
		if err != nil {
			r.errorf("Invalid template pattern '%s': %v", l.Template, err)
			return r
		}
		if len(templates) == 0 {
			if l.TemplateRegex {
				r.warnf("No matching templates found for pattern '%s'.", l.Template)
			} else {
				r.warnf("Template '%s' does not exist in the netlist.", l.Template)
			}
			return r
		}
	}

	nets, _, err := nl.FindMatches(l.Template, l.Net, l.TemplateRegex, l.NetRegex)
	if err != nil {
		r.errorf("Invalid net pattern '%s': %v", l.Net, err)
		return r
	}
	if len(nets) == 0 {
		r.warnf("No matches found for pattern '%s'.", l.Net)
		return r
	}

	if l.NetRegex {
		return r
	}
	if bus.HasNotation(l.Net) {
		expanded, ok := r.expandBus(l.Net, nl.MaxBusExpansion())
		if ok && len(nets) < len(expanded) {
			r.warnf("Bus notation '%s' is larger than existing nets (%d) in the netlist.", l.Net, len(nets))
		}
		return r
	}
	if !l.TemplateRegex {
		if c, ok := nl.CanonicalNetName(l.Net, l.Template); ok && c != l.Net {
			r.warnf("Provided net name '%s' is not canonical, please use '%s' instead.", l.Net, c)
		}
	}
	return r
}

// Validate checks the line on its own and, when nl is non-nil and the line has
// no errors, against the netlist.
func (l *MutexLine) Validate(nl Netlist) Result {
	var r Result

	if len(l.MutexedNets) == 0 {
		r.errorf("No mutexed nets specified.")
	}
	if len(l.ActiveNets) > 0 && l.NumActive != len(l.ActiveNets) {
		r.errorf("Number of active nets (%d) does not match specified active count (%d).", len(l.ActiveNets), l.NumActive)
	}
	if !l.FEV.Valid() {
		r.errorf("Unknown FEV mode '%s'.", l.FEV)
	}
	if !r.OK() || nl == nil {
		return r
	}

	if l.Template != "" && !nl.TemplateExists(l.Template) {
		r.warnf("Template '%s' does not exist in the netlist.", l.Template)
		return r
	}

	matched := make(map[string]struct{})
	for _, net := range l.MutexedNets {
		switch {
		case l.NetRegex:
			nets, _, err := nl.FindMatches(l.Template, net, false, true)
			if err != nil {
				r.errorf("Invalid net pattern '%s': %v", net, err)
				continue
			}
			if len(nets) == 0 {
				r.warnf("No matches found for regex pattern '%s'.", net)
			}
			for _, n := range nets {
				matched[query.NormalizeNetForTemplate(n, l.Template)] = struct{}{}
			}

		case bus.HasNotation(net):
			expanded, ok := r.expandBus(net, nl.MaxBusExpansion())
			if !ok {
				continue
			}
			existing := 0
			for _, n := range expanded {
				if c, ok := nl.CanonicalNetName(n, l.Template); ok {
					matched[c] = struct{}{}
					existing++
				}
			}
			if existing == 0 {
				r.warnf("Bus pattern '%s' does not expand to any existing nets.", net)
			} else if existing < len(expanded) {
				r.warnf("Bus notation '%s' is larger than existing nets (%d) in the netlist.", net, existing)
			}

		default:
			c, ok := nl.CanonicalNetName(net, l.Template)
			if !ok {
				r.warnf("Mutexed net '%s' does not exist in the netlist.", net)
				continue
			}
			matched[c] = struct{}{}
			if c != net {
				r.warnf("Provided net name '%s' is not canonical, please use '%s' instead.", net, c)
			}
		}
	}

	if len(matched) < 2 {
		r.warnf("At least 2 mutexed nets are required, found %d.", len(matched))
	}
	if len(matched) < l.NumActive {
		r.warnf("Number of matched nets (%d) is less than specified active count (%d).", len(matched), l.NumActive)
	}

	for _, net := range l.ActiveNets {
		c, ok := nl.CanonicalNetName(net, l.Template)
		if !ok {
			r.warnf("Active net '%s' does not exist in the netlist.", net)
			continue
		}
		if c != net {
			r.warnf("Active net '%s' is not canonical, please use '%s' instead.", net, c)
		}
		if _, in := matched[c]; !in {
			r.errorf("Active net '%s' is not in the set of mutexed nets.", net)
		}
	}
	return r
}
