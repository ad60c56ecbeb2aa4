package query

import (
	"strings"

	"nqs/internal/alias"
	"nqs/internal/bus"
	"nqs/internal/errors"
)

// ResolveToCanonicalIDs maps a template/net pattern to the top-cell canonical
// net ids it touches. Nets inside child templates are followed through every
// placement of that template under the top cell.
//
// Unknown templates or nets resolve to an empty set. An invalid regex is a
// PATTERN_INVALID error; a bus pattern past the expansion cap resolves to empty.
func (s *Service) ResolveToCanonicalIDs(template, net string, templateRegex, netRegex bool) (IDSet, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if net == "" {
		return IDSet{}, nil
	}

	tplPattern, netPattern := s.normalizePatterns(template, net, templateRegex, netRegex)
	key := resolveKey{tplPattern, netPattern, templateRegex, netRegex}

	s.mu.Lock()
	if ids, ok := s.resolved[key]; ok {
		s.mu.Unlock()
		s.resolveHits.Add(1)
		return ids.clone(), nil
	}
	s.mu.Unlock()
	s.resolveMisses.Add(1)

	templates, err := s.store.MatchTemplates(tplPattern, templateRegex)
	if err != nil {
		return nil, err
	}

	found := make(map[int]struct{})
	for _, tpl := range templates {
		nets, err := s.netsInTemplate(tpl, netPattern, netRegex)
		if err != nil {
			return nil, err
		}
		for _, n := range nets {
			for _, id := range s.pairIDs(tpl, n) {
				found[id] = struct{}{}
			}
		}
	}
	ids := newIDSet(found)

	s.mu.Lock()
	if !s.closed.Load() {
		s.resolved[key] = ids
	}
	s.mu.Unlock()

	return ids.clone(), nil
}

// netsInTemplate returns the canonical nets of template matching pattern.
func (s *Service) netsInTemplate(template, pattern string, isRegex bool) ([]string, error) {
	if isRegex {
		rows, err := s.store.MatchRegex([]string{template}, pattern)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(rows))
		for i, r := range rows {
			out[i] = r.Net
		}
		return out, nil
	}

	if bus.HasNotation(pattern) {
		expanded, err := bus.ExpandLimit(pattern, s.maxBus)
		if err != nil {
			if errors.IsCode(err, errors.ExpansionLimit) {
				s.logger.Debug("Bus pattern not expanded", "template", template, "error", err.Error())
				return nil, nil
			}
			return nil, err
		}
		seen := make(map[string]struct{})
		var out []string
		for _, name := range expanded {
			c, ok := s.canonical(template, name)
			if !ok {
				continue
			}
			if _, dup := seen[c]; !dup {
				seen[c] = struct{}{}
				out = append(out, c)
			}
		}
		return out, nil
	}

	if c, ok := s.canonical(template, pattern); ok {
		return []string{c}, nil
	}
	return nil, nil
}

// pairIDs maps a canonical net of template to top-cell ids. Results are cached
// for the lifetime of the service and shared, so callers must only read them.
func (s *Service) pairIDs(template, net string) IDSet {
	key := pairKey{template, net}

	s.mu.Lock()
	if ids, ok := s.pairs[key]; ok {
		s.mu.Unlock()
		s.pairHits.Add(1)
		return ids
	}
	s.mu.Unlock()
	s.pairMisses.Add(1)

	found := make(map[int]struct{})
	if template == s.top {
		if id, ok := s.ids.ID(net); ok {
			found[id] = struct{}{}
		}
	} else {
		paths := s.netlist.InstancePaths(template)
		if len(paths) == 0 {
			s.logger.Debug("Template is not placed under the top cell", "template", template)
		}
		top := s.aliases[s.top]
		var b strings.Builder
		for _, p := range paths {
			b.Reset()
			b.WriteString(p)
			b.WriteString(alias.Separator)
			b.WriteString(net)
			c, ok := top.Aliases[b.String()]
			if !ok {
				continue
			}
			if id, ok := s.ids.ID(c); ok {
				found[id] = struct{}{}
			}
		}
	}
	ids := newIDSet(found)

	s.mu.Lock()
	if !s.closed.Load() {
		s.pairs[key] = ids
	}
	s.mu.Unlock()

	return ids
}
