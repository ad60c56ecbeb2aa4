package alias

import (
	"reflect"
	"strings"
	"testing"

	"nqs/internal/netlist"
	"nqs/internal/testutil"
)

func loadMycell(t *testing.T) (*netlist.Netlist, map[string]*Result) {
	t.Helper()
	nl, err := netlist.Parse(testutil.OpenFixture(t, "mycell.sp"), "mycell")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return nl, ResolveAll(nl, nil)
}

func TestResolveAll_CanonicalNets(t *testing.T) {
	_, results := loadMycell(t)

	tests := []struct {
		template string
		want     []string
	}{
		{"d", []string{"gd1", "gd2", "m3", "n3", "o3", "vcc", "vss"}},
		{"c", []string{
			"dummy_o", "id1/gd1", "id1/gd2", "id2/gd1", "id2/gd2",
			"m2", "n2", "o2", "vcc", "vss",
		}},
		{"b", []string{
			"ic/dummy_o", "ic/id1/gd1", "ic/id1/gd2", "ic/id2/gd1", "ic/id2/gd2",
			"n1", "nonpinb", "o1", "vcc", "vss", "xo1",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			got := results[tt.template].Nets()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Nets() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveAll_Aliases(t *testing.T) {
	_, results := loadMycell(t)

	tests := []struct {
		template string
		path     string
		want     string
	}{
		// Instance pin tied to an internal net of the parent.
		{"b", "ic/m2", "nonpinb"},
		{"b", "ic/id1/m3", "nonpinb"},
		{"b", "ic/id2/o3", "ic/dummy_o"},
		{"c", "id2/o3", "dummy_o"},
		{"c", "id1/o3", "o2"},
		{"mycell", "ia1/n0", "in1"},
		{"mycell", "ia1/ib/ic/id1/n3", "in1"},
		{"mycell", "ia2/ib/ic/id2/n3", "in2"},
		{"mycell", "ia1/ib/nonpinb", "ia1/ib/nonpinb"},
		{"mycell", "ia1/ib/ic/m2", "ia1/ib/nonpinb"},
		{"mycell", "ia2/ib/ic/id1/vss", "vss"},
		{"mycell", "IA1/IB/IC/ID1/N3", "in1"},
	}
	for _, tt := range tests {
		t.Run(tt.template+":"+tt.path, func(t *testing.T) {
			got, ok := results[tt.template].Canonical(tt.path)
			if !ok {
				t.Fatalf("Canonical(%q) not found", tt.path)
			}
			if got != tt.want {
				t.Errorf("Canonical(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestResolveAll_Idempotent(t *testing.T) {
	_, results := loadMycell(t)

	for name, res := range results {
		for path, c := range res.Aliases {
			again, ok := res.Aliases[c]
			if !ok {
				t.Errorf("%s: canonical %q of %q is not itself an alias key", name, c, path)
				continue
			}
			if again != c {
				t.Errorf("%s: Aliases[Aliases[%q]] = %q, want %q", name, path, again, c)
			}
			if !res.IsCanonical(c) {
				t.Errorf("%s: %q missing from CanonicalNets", name, c)
			}
		}
	}
}

func TestResolveAll_PortsAreCanonical(t *testing.T) {
	nl, results := loadMycell(t)

	for _, tpl := range nl.Templates() {
		res := results[tpl.Name()]
		for _, p := range tpl.Ports() {
			if got, _ := res.Canonical(p); got != p {
				t.Errorf("%s: Canonical(%q) = %q, want port to map to itself", tpl.Name(), p, got)
			}
		}
	}
}

func TestResolve_Memoised(t *testing.T) {
	nl, _ := loadMycell(t)
	r := NewResolver(nil)

	d, _ := nl.Template("d")
	first := r.Resolve(d)
	second := r.Resolve(d)
	if first != second {
		t.Error("Resolve() recomputed a template that was already resolved")
	}
}

func TestResolve_TwoPortsShorted(t *testing.T) {
	src := `
.SUBCKT wire a b
R1 a b 0
.ENDS
.SUBCKT short p q
XW p p wire
.ENDS
.SUBCKT top x
XS x y short
.ENDS
`
	nl, err := netlist.Parse(strings.NewReader(src), "top")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	results := ResolveAll(nl, nil)

	short := results["short"]
	if got, _ := short.Canonical("w/a"); got != "p" {
		t.Errorf("short: Canonical(w/a) = %q, want p", got)
	}
	if got, _ := short.Canonical("w/b"); got != "p" {
		t.Errorf("short: Canonical(w/b) = %q, want p", got)
	}

	top := results["top"]
	if got, _ := top.Canonical("s/q"); got != "y" {
		t.Errorf("top: Canonical(s/q) = %q, want y", got)
	}
	if got, _ := top.Canonical("s/w/b"); got != "x" {
		t.Errorf("top: Canonical(s/w/b) = %q, want x", got)
	}
}

func TestPreference(t *testing.T) {
	tpl := mustTemplate(t, ".SUBCKT t zz a\n.ENDS\n", "t")
	u := &unionFind{template: tpl, parent: map[string]string{}}

	tests := []struct {
		a, b string
		want bool
	}{
		{"zz", "b", true},         // port beats non-port
		{"b", "x/a", true},        // shallow beats nested
		{"x/aaaa", "x/y/a", true}, // fewer separators
		{"x/ab", "x/abc", true},   // shorter name
		{"x/ab", "x/ac", true},    // lexical
		{"i/long", "zz", false},   // port always wins
		{"ab", "ab", false},       // not strictly preferred over itself
	}
	for _, tt := range tests {
		if got := u.less(tt.a, tt.b); got != tt.want {
			t.Errorf("less(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFind_CycleTerminates(t *testing.T) {
	tpl := mustTemplate(t, ".SUBCKT t a\n.ENDS\n", "t")
	u := &unionFind{
		template: tpl,
		parent: map[string]string{
			"x": "y",
			"y": "z",
			"z": "x",
		},
	}

	got := u.find("x")
	if got != "x" && got != "y" && got != "z" {
		t.Errorf("find(x) = %q, want a member of the cycle", got)
	}
	if got := u.find("missing"); got != "missing" {
		t.Errorf("find(missing) = %q, want missing", got)
	}
}

func mustTemplate(t *testing.T, src, name string) *netlist.Template {
	t.Helper()
	nl, err := netlist.Parse(strings.NewReader(src), name)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	tpl, _ := nl.Template(name)
	return tpl
}
