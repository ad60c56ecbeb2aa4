package netlist

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"nqs/internal/errors"
	"nqs/internal/slogutil"
)

const maxLineBytes = 16 * 1024 * 1024

// Option configures Parse.
type Option func(*parser)

// WithLogger routes parser diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// record is one logical line: a physical line plus its '+' continuations.
type record struct {
	line   int
	tokens []string
}

type parser struct {
	logger  *slog.Logger
	nl      *Netlist
	current *Template
	openAt  int
	last    string
}

// Parse reads a SPICE-style hierarchical netlist.
//
// topCell names the design root; when empty the last template in the file is used.
// Any structural problem aborts the whole parse with an errors.ParseFailed error
// carrying the offending line number; no partial netlist is returned.
func Parse(r io.Reader, topCell string, opts ...Option) (*Netlist, error) {
	p := &parser{
		logger: slogutil.NewDiscardLogger(),
		nl:     newNetlist(),
	}
	for _, opt := range opts {
		opt(p)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var pending *record
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "*") {
			continue
		}

		if strings.HasPrefix(line, "+") {
			if pending == nil {
				return nil, errors.ParseError(lineNo, "continuation line without a preceding record")
			}
			pending.tokens = append(pending.tokens, strings.Fields(line[1:])...)
			continue
		}

		if pending != nil {
			if err := p.handle(pending); err != nil {
				return nil, err
			}
		}
		pending = &record{line: lineNo, tokens: strings.Fields(line)}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.New(errors.ParseFailed, "failed to read netlist", err)
	}
	if pending != nil {
		if err := p.handle(pending); err != nil {
			return nil, err
		}
	}

	if p.current != nil {
		return nil, errors.ParseError(p.openAt, "unterminated block: template %s has no .ENDS", p.current.displayName)
	}

	return p.finish(topCell)
}

func (p *parser) handle(rec *record) error {
	head := strings.ToLower(rec.tokens[0])

	switch {
	case head == ".subckt":
		return p.openTemplate(rec)
	case head == ".ends":
		return p.closeTemplate(rec)
	case p.current == nil:
		// Title lines, .GLOBAL, .PARAM and friends outside any subcircuit.
		return nil
	}

	switch head[0] {
	case 'x':
		return p.addInstance(rec)
	case 'm':
		return p.addDevice(rec, Transistor, 3)
	case 'r':
		return p.addDevice(rec, Resistor, 2)
	default:
		p.logger.Warn("Unrecognized line in template",
			"template", p.current.displayName,
			"line", rec.line,
			"record", rec.tokens[0],
		)
		return nil
	}
}

func (p *parser) openTemplate(rec *record) error {
	if p.current != nil {
		return errors.ParseError(rec.line, "nested .SUBCKT inside template %s", p.current.displayName)
	}
	if len(rec.tokens) < 2 {
		return errors.ParseError(rec.line, ".SUBCKT line without template name")
	}

	t := newTemplate(rec.tokens[1])
	if _, dup := p.nl.templates[t.name]; dup {
		return errors.ParseError(rec.line, "template %s already exists", t.displayName)
	}
	for _, port := range rec.tokens[2:] {
		if !t.addPort(port) {
			return errors.ParseError(rec.line, "pin %s of template %s is duplicated", port, t.displayName)
		}
	}
	if len(t.ports) == 0 {
		return errors.ParseError(rec.line, "template %s has no pins", t.displayName)
	}

	p.current = t
	p.openAt = rec.line
	return nil
}

func (p *parser) closeTemplate(rec *record) error {
	if p.current == nil {
		p.logger.Warn("Ignoring .ENDS outside of a template", "line", rec.line)
		return nil
	}

	t := p.current
	p.nl.add(t)
	p.last = t.name
	p.current = nil

	p.logger.Debug("Read template",
		"template", t.displayName,
		"ports", len(t.ports),
		"instances", len(t.instances),
		"devices", len(t.devices),
	)
	return nil
}

// addInstance handles X<name> <net...> <template> [param=value ...].
func (p *parser) addInstance(rec *record) error {
	tokens := rec.tokens
	for len(tokens) > 0 && strings.Contains(tokens[len(tokens)-1], "=") {
		tokens = tokens[:len(tokens)-1]
	}

	displayName := tokens[0][1:]
	if displayName == "" {
		return errors.ParseError(rec.line, "failed to get instance name")
	}
	if len(tokens) < 2 {
		return errors.ParseError(rec.line, "failed to get template name of instance %s", displayName)
	}

	targetName := tokens[len(tokens)-1]
	target, ok := p.nl.templates[strings.ToLower(targetName)]
	if !ok {
		return errors.ParseError(rec.line, "instance %s references unknown template %s", displayName, targetName)
	}

	pins := tokens[1 : len(tokens)-1]
	if len(pins) != len(target.ports) {
		return errors.ParseError(rec.line,
			"instance %s of template %s connects %d nets, template has %d pins",
			displayName, target.displayName, len(pins), len(target.ports))
	}

	t := p.current
	name := strings.ToLower(displayName)
	if _, dup := t.instanceMap[name]; dup {
		return errors.ParseError(rec.line, "instance %s already exists in template %s", displayName, t.displayName)
	}

	conns := make([]string, len(pins))
	for i, pin := range pins {
		conns[i] = t.getOrAddNet(pin)
	}

	inst := &Instance{
		Name:        name,
		DisplayName: displayName,
		Template:    target,
		Parent:      t,
		Connections: conns,
	}
	t.instances = append(t.instances, inst)
	t.instanceMap[name] = inst
	target.selfRefs = append(target.selfRefs, inst)
	return nil
}

// addDevice handles M and R records; only the first terminals are nets,
// anything after them (model, value, parameters) is ignored.
func (p *parser) addDevice(rec *record, kind DeviceKind, terminals int) error {
	name := rec.tokens[0]
	if len(rec.tokens) < terminals+1 {
		return errors.ParseError(rec.line, "%s %s is missing net names", kind, name)
	}

	t := p.current
	nets := make([]string, terminals)
	for i, raw := range rec.tokens[1 : terminals+1] {
		nets[i] = t.getOrAddNet(raw)
	}
	t.devices = append(t.devices, &Device{Name: name, Kind: kind, Nets: nets})
	return nil
}

func (p *parser) finish(topCell string) (*Netlist, error) {
	nl := p.nl
	if nl.Len() == 0 {
		return nil, errors.New(errors.ParseFailed, "netlist defines no templates", nil)
	}

	key := strings.ToLower(strings.TrimSpace(topCell))
	if key == "" {
		key = p.last
	}
	top, ok := nl.templates[key]
	if !ok {
		return nil, errors.New(errors.TopCellNotFound,
			fmt.Sprintf("failed to find template with top cell name %s", topCell), nil).
			WithDetails(map[string]interface{}{"available": nl.TemplateNames()})
	}
	top.isTopCell = true
	nl.topCell = top
	nl.buildInstancePaths()

	p.logger.Info("Parsed netlist",
		"templates", nl.Len(),
		"top_cell", top.displayName,
	)
	return nl, nil
}
