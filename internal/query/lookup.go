package query

import (
	"sort"
	"strings"

	"nqs/internal/bus"
	"nqs/internal/errors"
	"nqs/internal/storage"
)

// TopCell returns the lower-cased top cell name.
func (s *Service) TopCell() string { return s.top }

// MaxBusExpansion returns the cap on names a single bus pattern may expand to.
func (s *Service) MaxBusExpansion() int { return s.maxBus }

// AllTemplates returns every template name, sorted.
func (s *Service) AllTemplates() []string { return s.netlist.TemplateNames() }

// TemplateExists reports whether name is a template. An empty name is the top cell.
func (s *Service) TemplateExists(name string) bool {
	_, ok := s.normalizeTemplate(name)
	return ok
}

// MatchingTemplates returns the templates equal to pattern, or matching it as a regex.
func (s *Service) MatchingTemplates(pattern string, isRegex bool) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.store.MatchTemplates(pattern, isRegex)
}

// NetsInTemplate returns the canonical nets of template, sorted.
// Unknown templates yield nil.
func (s *Service) NetsInTemplate(template string) []string {
	tpl, ok := s.normalizeTemplate(template)
	if !ok {
		return nil
	}
	return s.aliases[tpl].Nets()
}

// NetExists reports whether net names a net, canonical or alias, in template.
func (s *Service) NetExists(net, template string) bool {
	_, ok := s.CanonicalNetName(net, template)
	return ok
}

// CanonicalNetName returns the canonical name of net within template.
func (s *Service) CanonicalNetName(net, template string) (string, bool) {
	tpl, ok := s.normalizeTemplate(template)
	if !ok {
		return "", false
	}
	return s.canonical(tpl, strings.ToLower(net))
}

// CanonicalNetNameOfID returns the top-cell canonical net with the given id.
func (s *Service) CanonicalNetNameOfID(id int) (string, bool) {
	return s.ids.Name(id)
}

// CollapseBus folds names into one bus pattern when they form a full range.
func (s *Service) CollapseBus(names []string) (string, bool) {
	return bus.Collapse(names)
}

// FindMatches returns the nets matching net in the templates matching template,
// formatted "template:net" (bare for the top cell), and the templates that
// contributed at least one match. Both lists are sorted.
func (s *Service) FindMatches(template, net string, templateRegex, netRegex bool) ([]string, []string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, nil, err
	}
	if net == "" {
		return nil, nil, nil
	}

	tplPattern, netPattern := s.normalizePatterns(template, net, templateRegex, netRegex)
	templates, err := s.store.MatchTemplates(tplPattern, templateRegex)
	if err != nil {
		return nil, nil, err
	}
	if len(templates) == 0 {
		return nil, nil, nil
	}

	rows, err := s.matchNets(templates, netPattern, netRegex)
	if err != nil {
		return nil, nil, err
	}

	matched := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		matched[s.format(r.Template, r.Net)] = struct{}{}
	}

	// Alias matches only for plain names; regex and bus patterns are matched
	// against canonical nets alone.
	if !netRegex && !bus.HasNotation(netPattern) {
		for _, tpl := range templates {
			if c, ok := s.canonical(tpl, netPattern); ok {
				matched[s.format(tpl, c)] = struct{}{}
			}
		}
	}

	nets := make([]string, 0, len(matched))
	tplSet := make(map[string]struct{})
	for m := range matched {
		nets = append(nets, m)
		if tpl, _, ok := strings.Cut(m, ":"); ok {
			tplSet[tpl] = struct{}{}
		} else {
			tplSet[s.top] = struct{}{}
		}
	}
	sort.Strings(nets)

	tpls := make([]string, 0, len(tplSet))
	for t := range tplSet {
		tpls = append(tpls, t)
	}
	sort.Strings(tpls)

	return nets, tpls, nil
}

// FindNetInstanceNames returns the top-cell canonical nets that net in template
// is connected to across every placement of template, sorted.
func (s *Service) FindNetInstanceNames(template, net string) []string {
	tpl, ok := s.normalizeTemplate(template)
	if !ok {
		return nil
	}
	c, ok := s.canonical(tpl, strings.ToLower(net))
	if !ok {
		return nil
	}

	names := make([]string, 0)
	for _, id := range s.pairIDs(tpl, c) {
		if n, ok := s.ids.Name(id); ok {
			names = append(names, n)
		}
	}
	return names
}

// NormalizeNetForTemplate strips a leading "template:" qualifier from name when
// it names template. Only the first colon counts, so bus ranges survive.
func NormalizeNetForTemplate(name, template string) string {
	if template == "" || !strings.Contains(name, ":") {
		return name
	}
	prefix := template + ":"
	if strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix)) {
		return name[len(prefix):]
	}
	return name
}

func (s *Service) matchNets(templates []string, pattern string, isRegex bool) ([]storage.Row, error) {
	switch {
	case isRegex:
		return s.store.MatchRegex(templates, pattern)
	case bus.HasNotation(pattern):
		expanded, err := bus.ExpandLimit(pattern, s.maxBus)
		if err != nil {
			if errors.IsCode(err, errors.ExpansionLimit) {
				s.logger.Warn("Bus pattern not expanded", "error", err.Error())
				return nil, nil
			}
			return nil, err
		}
		return s.store.MatchBus(templates, expanded)
	default:
		return s.store.MatchExact(templates, pattern)
	}
}

func (s *Service) normalizeTemplate(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return s.top, true
	}
	name = strings.ToLower(name)
	if _, ok := s.aliases[name]; !ok {
		return "", false
	}
	return name, true
}

func (s *Service) normalizePatterns(template, net string, templateRegex, netRegex bool) (string, string) {
	if template == "" {
		template = s.top
	}
	if !templateRegex {
		template = strings.ToLower(template)
	}
	if !netRegex {
		net = strings.ToLower(net)
	}
	return template, net
}

func (s *Service) canonical(template, net string) (string, bool) {
	if net == "" {
		return "", false
	}
	res, ok := s.aliases[template]
	if !ok {
		return "", false
	}
	return res.Canonical(net)
}

func (s *Service) format(template, net string) string {
	if template == s.top {
		return net
	}
	return template + ":" + net
}
