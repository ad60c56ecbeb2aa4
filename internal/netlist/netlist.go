// Package netlist holds the hierarchical circuit description: templates (subcircuits)
// with ordered ports, local nets, devices and instances of other templates.
//
// All lookups are case-insensitive. Identities (template, net and instance names)
// are stored lower-cased; the spelling from the source file is kept for display.
package netlist

import (
	"sort"
	"strings"
)

// DeviceKind distinguishes the non-traversable records inside a template.
type DeviceKind string

const (
	// Transistor is a 3-terminal device record (M lines).
	Transistor DeviceKind = "transistor"
	// Resistor is a 2-terminal device record (R lines).
	Resistor DeviceKind = "resistor"
)

// Net is a net declared in a template's namespace.
type Net struct {
	Name        string // lower-cased identity
	DisplayName string
	Interface   bool // true for ports
}

// Device is a leaf record contributing nets to its template.
type Device struct {
	Name string
	Kind DeviceKind
	Nets []string
}

// Instance is a placement of Template inside Parent.
// Connections[i] is the parent net connected to Template.Ports()[i].
type Instance struct {
	Name        string
	DisplayName string
	Template    *Template
	Parent      *Template
	Connections []string
}

// ConnectedNet returns the parent net wired to the given port of the instance's template.
func (i *Instance) ConnectedNet(port string) (string, bool) {
	idx, ok := i.Template.portIndex[strings.ToLower(port)]
	if !ok {
		return "", false
	}
	return i.Connections[idx], true
}

// Template is a subcircuit definition.
type Template struct {
	name        string
	displayName string
	ports       []string
	portIndex   map[string]int
	nets        map[string]*Net
	instances   []*Instance
	instanceMap map[string]*Instance
	devices     []*Device
	selfRefs    []*Instance // instances of this template in other templates
	isTopCell   bool
}

func newTemplate(displayName string) *Template {
	return &Template{
		name:        strings.ToLower(displayName),
		displayName: displayName,
		portIndex:   make(map[string]int),
		nets:        make(map[string]*Net),
		instanceMap: make(map[string]*Instance),
	}
}

// Name returns the lower-cased template name.
func (t *Template) Name() string { return t.name }

// DisplayName returns the template name as written in the source.
func (t *Template) DisplayName() string { return t.displayName }

// Ports returns the ordered, lower-cased port list.
func (t *Template) Ports() []string { return t.ports }

// IsPort reports whether net is one of the template's ports.
func (t *Template) IsPort(net string) bool {
	_, ok := t.portIndex[strings.ToLower(net)]
	return ok
}

// IsTopCell reports whether this template is the design root.
func (t *Template) IsTopCell() bool { return t.isTopCell }

// Net looks up a locally declared net.
func (t *Template) Net(name string) (*Net, bool) {
	n, ok := t.nets[strings.ToLower(name)]
	return n, ok
}

// LocalNets returns the sorted names of all nets declared in the template, ports included.
func (t *Template) LocalNets() []string {
	names := make([]string, 0, len(t.nets))
	for name := range t.nets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Instances returns the sub-instances in file order.
func (t *Template) Instances() []*Instance { return t.instances }

// Instance looks up a sub-instance by name.
func (t *Template) Instance(name string) (*Instance, bool) {
	inst, ok := t.instanceMap[strings.ToLower(name)]
	return inst, ok
}

// Devices returns the device records in file order.
func (t *Template) Devices() []*Device { return t.devices }

// References returns every instance of this template placed in another template.
func (t *Template) References() []*Instance { return t.selfRefs }

func (t *Template) addPort(displayName string) bool {
	name := strings.ToLower(displayName)
	if _, dup := t.portIndex[name]; dup {
		return false
	}
	t.portIndex[name] = len(t.ports)
	t.ports = append(t.ports, name)
	t.nets[name] = &Net{Name: name, DisplayName: displayName, Interface: true}
	return true
}

func (t *Template) getOrAddNet(displayName string) string {
	name := strings.ToLower(displayName)
	if _, ok := t.nets[name]; !ok {
		t.nets[name] = &Net{Name: name, DisplayName: displayName}
	}
	return name
}

// Netlist is a parsed hierarchical circuit description.
// It is immutable once returned by Parse.
type Netlist struct {
	templates     map[string]*Template
	order         []string
	topCell       *Template
	instancePaths map[string][]string
}

func newNetlist() *Netlist {
	return &Netlist{templates: make(map[string]*Template)}
}

// Template looks up a template by name (case-insensitive).
func (n *Netlist) Template(name string) (*Template, bool) {
	t, ok := n.templates[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Templates returns all templates sorted by name.
func (n *Netlist) Templates() []*Template {
	names := n.TemplateNames()
	out := make([]*Template, len(names))
	for i, name := range names {
		out[i] = n.templates[name]
	}
	return out
}

// TemplateNames returns the sorted lower-cased template names.
func (n *Netlist) TemplateNames() []string {
	names := make([]string, 0, len(n.templates))
	for name := range n.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TopCell returns the design root.
func (n *Netlist) TopCell() *Template { return n.topCell }

// Len returns the number of templates.
func (n *Netlist) Len() int { return len(n.templates) }

// InstancePaths returns every hierarchical path at which template is instantiated
// beneath the top cell, e.g. "ia1/ib". The top cell itself has no paths.
// Templates not reachable from the top cell return nil.
func (n *Netlist) InstancePaths(template string) []string {
	return n.instancePaths[strings.ToLower(template)]
}

func (n *Netlist) add(t *Template) {
	n.templates[t.name] = t
	n.order = append(n.order, t.name)
}

// buildInstancePaths walks the hierarchy below the top cell once.
func (n *Netlist) buildInstancePaths() {
	n.instancePaths = make(map[string][]string)
	onStack := make(map[string]bool)

	var walk func(t *Template, prefix string)
	walk = func(t *Template, prefix string) {
		if onStack[t.name] {
			return
		}
		onStack[t.name] = true
		defer delete(onStack, t.name)

		for _, inst := range t.instances {
			path := inst.Name
			if prefix != "" {
				path = prefix + "/" + inst.Name
			}
			child := inst.Template.name
			n.instancePaths[child] = append(n.instancePaths[child], path)
			walk(inst.Template, path)
		}
	}
	walk(n.topCell, "")
}
