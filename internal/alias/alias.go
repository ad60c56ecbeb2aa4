// Package alias computes canonical net identities across the template hierarchy.
//
// For a template T, every hierarchical path reachable from T (local nets, and
// "inst/.../net" paths through sub-instances) is mapped to one canonical name in
// T's scope. Paths that are electrically the same net share a canonical name.
// When nets merge, the survivor is chosen by preference: ports of T first, then
// shallow names, then fewer '/' separators, then shorter names, then lexical order.
package alias

import (
	"log/slog"
	"sort"
	"strings"

	"nqs/internal/netlist"
	"nqs/internal/slogutil"
)

// Separator joins instance names in a hierarchical path.
const Separator = "/"

// Result is the alias data of one template.
type Result struct {
	Template      string
	CanonicalNets map[string]struct{}
	// Aliases maps every reachable path, canonical names included, to its canonical name.
	Aliases map[string]string
}

// Canonical returns the canonical name of path in the template's scope.
func (r *Result) Canonical(path string) (string, bool) {
	c, ok := r.Aliases[strings.ToLower(path)]
	return c, ok
}

// IsCanonical reports whether name is one of the template's canonical nets.
func (r *Result) IsCanonical(name string) bool {
	_, ok := r.CanonicalNets[strings.ToLower(name)]
	return ok
}

// Nets returns the canonical nets in sorted order.
func (r *Result) Nets() []string {
	out := make([]string, 0, len(r.CanonicalNets))
	for n := range r.CanonicalNets {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Resolver computes and memoises alias data per template.
type Resolver struct {
	logger   *slog.Logger
	results  map[string]*Result
	visiting map[string]bool
}

// NewResolver creates a resolver. A nil logger discards output.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Resolver{
		logger:   logger,
		results:  make(map[string]*Result),
		visiting: make(map[string]bool),
	}
}

// ResolveAll resolves every template of nl. Shared templates are expanded once.
func ResolveAll(nl *netlist.Netlist, logger *slog.Logger) map[string]*Result {
	r := NewResolver(logger)
	for _, t := range nl.Templates() {
		r.Resolve(t)
	}
	return r.results
}

// Resolve returns the alias data of t, computing it on first use.
func (r *Resolver) Resolve(t *netlist.Template) *Result {
	if res, ok := r.results[t.Name()]; ok {
		return res
	}
	if r.visiting[t.Name()] {
		r.logger.Warn("Template re-entered while resolving aliases, skipping",
			"template", t.DisplayName())
		return &Result{
			Template:      t.Name(),
			CanonicalNets: map[string]struct{}{},
			Aliases:       map[string]string{},
		}
	}
	r.visiting[t.Name()] = true
	defer delete(r.visiting, t.Name())

	res := r.build(t)
	r.results[t.Name()] = res
	return res
}

func (r *Resolver) build(t *netlist.Template) *Result {
	u := &unionFind{
		template: t,
		parent:   make(map[string]string),
	}

	for _, n := range t.LocalNets() {
		u.parent[n] = n
	}

	for _, inst := range t.Instances() {
		child := inst.Template
		sub := r.Resolve(child)
		prefix := inst.Name + Separator

		for _, c := range sub.Nets() {
			path := prefix + c
			u.register(path)
			if conn, ok := inst.ConnectedNet(c); ok && child.IsPort(c) {
				u.merge(path, conn)
			}
		}

		for _, a := range sortedKeys(sub.Aliases) {
			target := sub.Aliases[a]
			if a == target {
				continue
			}
			path := prefix + a
			u.register(path)
			if child.IsPort(target) {
				conn, _ := inst.ConnectedNet(target)
				u.merge(path, conn)
			} else {
				u.merge(path, prefix+target)
			}
		}
	}

	res := &Result{
		Template:      t.Name(),
		CanonicalNets: make(map[string]struct{}),
		Aliases:       make(map[string]string, len(u.parent)),
	}
	for name := range u.parent {
		c := u.find(name)
		res.Aliases[name] = c
	}
	for _, c := range res.Aliases {
		res.CanonicalNets[c] = struct{}{}
	}

	r.logger.Debug("Resolved aliases",
		"template", t.DisplayName(),
		"canonical", len(res.CanonicalNets),
		"aliases", len(res.Aliases),
	)
	return res
}

// unionFind is the alias map under construction for one template.
type unionFind struct {
	template *netlist.Template
	parent   map[string]string
}

func (u *unionFind) register(name string) {
	if _, ok := u.parent[name]; !ok {
		u.parent[name] = name
	}
}

// find chases parent pointers to a fixed point. A cycle in the map ends the
// walk at the first repeated name.
func (u *unionFind) find(name string) string {
	visited := make(map[string]bool)
	cur := name
	for {
		if visited[cur] {
			return cur
		}
		visited[cur] = true
		next, ok := u.parent[cur]
		if !ok || next == cur {
			return cur
		}
		cur = next
	}
}

func (u *unionFind) merge(a, b string) {
	u.register(a)
	u.register(b)
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.less(ra, rb) {
		u.parent[rb] = ra
	} else {
		u.parent[ra] = rb
	}
}

// less reports whether a is preferred over b as a canonical name.
func (u *unionFind) less(a, b string) bool {
	ka, kb := u.key(a), u.key(b)
	if ka.notPort != kb.notPort {
		return !ka.notPort
	}
	if ka.nested != kb.nested {
		return !ka.nested
	}
	if ka.depth != kb.depth {
		return ka.depth < kb.depth
	}
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

type prefKey struct {
	notPort bool
	nested  bool
	depth   int
}

func (u *unionFind) key(name string) prefKey {
	depth := strings.Count(name, Separator)
	return prefKey{
		notPort: !u.template.IsPort(name),
		nested:  depth > 0,
		depth:   depth,
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
