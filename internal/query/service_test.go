package query

import (
	"reflect"
	"strings"
	"sync"
	"testing"

	"nqs/internal/errors"
	"nqs/internal/netlist"
	"nqs/internal/testutil"
)

func newTestService(t *testing.T, fixture, top string, opts Options) *Service {
	t.Helper()

	nl, err := netlist.Parse(testutil.OpenFixture(t, fixture), top)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	s, err := New(nl, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustResolve(t *testing.T, s *Service, template, net string, templateRegex, netRegex bool) IDSet {
	t.Helper()
	ids, err := s.ResolveToCanonicalIDs(template, net, templateRegex, netRegex)
	if err != nil {
		t.Fatalf("ResolveToCanonicalIDs(%q, %q) error = %v", template, net, err)
	}
	return ids
}

func names(t *testing.T, s *Service, ids IDSet) []string {
	t.Helper()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		n, ok := s.CanonicalNetNameOfID(id)
		if !ok {
			t.Fatalf("CanonicalNetNameOfID(%d) not found", id)
		}
		out = append(out, n)
	}
	return out
}

func overlaps(a, b IDSet) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func TestService_Templates(t *testing.T) {
	s := newTestService(t, "mycell.sp", "", Options{})

	if s.TopCell() != "mycell" {
		t.Errorf("TopCell() = %q, want mycell", s.TopCell())
	}
	if got, want := s.AllTemplates(), []string{"a", "b", "c", "d", "mycell"}; !reflect.DeepEqual(got, want) {
		t.Errorf("AllTemplates() = %v, want %v", got, want)
	}

	tests := []struct {
		name string
		want bool
	}{
		{"", true},
		{"B", true},
		{" c ", true},
		{"nope", false},
	}
	for _, tt := range tests {
		if got := s.TemplateExists(tt.name); got != tt.want {
			t.Errorf("TemplateExists(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}

	got, err := s.MatchingTemplates("^[a-c]$", true)
	if err != nil {
		t.Fatalf("MatchingTemplates() error = %v", err)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("MatchingTemplates() = %v, want %v", got, want)
	}
}

func TestService_CanonicalNetName(t *testing.T) {
	s := newTestService(t, "mycell.sp", "mycell", Options{})

	tests := []struct {
		template string
		net      string
		want     string
		wantOK   bool
	}{
		{"b", "ic/m2", "nonpinb", true},
		{"B", "IC/M2", "nonpinb", true},
		{"", "ia1/n0", "in1", true},
		{"mycell", "ia1/ib/ic/id1/n3", "in1", true},
		{"d", "gd1", "gd1", true},
		{"d", "nope", "", false},
		{"nope", "gd1", "", false},
		{"d", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.template+":"+tt.net, func(t *testing.T) {
			got, ok := s.CanonicalNetName(tt.net, tt.template)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("CanonicalNetName(%q, %q) = %q, %v, want %q, %v",
					tt.net, tt.template, got, ok, tt.want, tt.wantOK)
			}
			if s.NetExists(tt.net, tt.template) != tt.wantOK {
				t.Errorf("NetExists(%q, %q) = %v, want %v", tt.net, tt.template, !tt.wantOK, tt.wantOK)
			}
		})
	}
}

func TestService_IDTable(t *testing.T) {
	s := newTestService(t, "mycell.sp", "mycell", Options{})

	if s.IDs().Len() != 20 {
		t.Errorf("IDs().Len() = %d, want 20", s.IDs().Len())
	}
	if got := s.NetsInTemplate(""); len(got) != s.IDs().Len() {
		t.Errorf("NetsInTemplate(top) len = %d, want %d", len(got), s.IDs().Len())
	}
	for i, n := range s.NetsInTemplate("") {
		id, ok := s.IDs().ID(n)
		if !ok || id != i {
			t.Errorf("ID(%q) = %d, %v, want %d (sorted order)", n, id, ok, i)
		}
		back, _ := s.CanonicalNetNameOfID(id)
		if back != n {
			t.Errorf("CanonicalNetNameOfID(%d) = %q, want %q", id, back, n)
		}
	}
	if _, ok := s.CanonicalNetNameOfID(-1); ok {
		t.Error("CanonicalNetNameOfID(-1) found, want not found")
	}
	if _, ok := s.CanonicalNetNameOfID(20); ok {
		t.Error("CanonicalNetNameOfID(20) found, want not found")
	}
}

func TestService_ResolveAcrossHierarchy(t *testing.T) {
	s := newTestService(t, "mycell.sp", "mycell", Options{})

	dn3 := mustResolve(t, s, "d", "n3", false, false)
	bn1 := mustResolve(t, s, "b", "n1", false, false)
	if got := names(t, s, dn3); !reflect.DeepEqual(got, []string{"in1", "in2"}) {
		t.Errorf("D:n3 resolves to %v, want [in1 in2]", got)
	}
	if !overlaps(dn3, bn1) {
		t.Errorf("D:n3 %v and B:n1 %v should overlap", dn3, bn1)
	}

	dgd1 := mustResolve(t, s, "d", "gd1", false, false)
	in2 := mustResolve(t, s, "", "in2", false, false)
	if len(dgd1) != 4 {
		t.Errorf("D:gd1 resolves to %d ids, want 4 (one per placement)", len(dgd1))
	}
	if overlaps(dgd1, in2) {
		t.Errorf("D:gd1 %v and mycell:in2 %v should be disjoint", dgd1, in2)
	}

	// Alias input resolves like its canonical net.
	alias := mustResolve(t, s, "b", "ic/m2", false, false)
	canon := mustResolve(t, s, "b", "nonpinb", false, false)
	if !reflect.DeepEqual(alias, canon) {
		t.Errorf("B:ic/m2 = %v, B:nonpinb = %v, want equal", alias, canon)
	}

	vss := mustResolve(t, s, "d", "vss", false, false)
	if got := names(t, s, vss); !reflect.DeepEqual(got, []string{"vss"}) {
		t.Errorf("D:vss resolves to %v, want [vss]", got)
	}
}

func TestService_ResolveRegex(t *testing.T) {
	s := newTestService(t, "mycell.sp", "mycell", Options{})

	ids := mustResolve(t, s, "^D$", "^GD[12]$", true, true)
	if len(ids) != 8 {
		t.Errorf("D:gd[12] resolves to %d ids, want 8", len(ids))
	}

	_, err := s.ResolveToCanonicalIDs("d", "gd(", false, true)
	if !errors.IsCode(err, errors.PatternInvalid) {
		t.Errorf("invalid net regex error = %v, want PATTERN_INVALID", err)
	}
	_, err = s.ResolveToCanonicalIDs("[", "gd1", true, false)
	if !errors.IsCode(err, errors.PatternInvalid) {
		t.Errorf("invalid template regex error = %v, want PATTERN_INVALID", err)
	}
}

func TestService_ResolveBus(t *testing.T) {
	s := newTestService(t, "bus.sp", "top", Options{})

	top := mustResolve(t, s, "", "a[0:3]", false, false)
	if got := names(t, s, top); !reflect.DeepEqual(got, []string{"a[0]", "a[1]", "a[2]", "a[3]"}) {
		t.Errorf("a[0:3] resolves to %v", got)
	}

	reg := mustResolve(t, s, "reg", "d[1:0]", false, false)
	if got := names(t, s, reg); !reflect.DeepEqual(got, []string{"a[0]", "a[1]"}) {
		t.Errorf("reg:d[1:0] resolves to %v", got)
	}

	bit := mustResolve(t, s, "bit", "d", false, false)
	if len(bit) != 4 {
		t.Errorf("bit:d resolves to %d ids, want 4", len(bit))
	}

	// Expansions that do not exist are skipped.
	partial := mustResolve(t, s, "", "a[2:9]", false, false)
	if len(partial) != 2 {
		t.Errorf("a[2:9] resolves to %d ids, want 2", len(partial))
	}
}

func TestService_ResolveBusLimit(t *testing.T) {
	s := newTestService(t, "bus.sp", "top", Options{MaxBusExpansion: 2})

	ids, err := s.ResolveToCanonicalIDs("", "a[0:3]", false, false)
	if err != nil {
		t.Fatalf("ResolveToCanonicalIDs() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("capped expansion resolves to %v, want empty", ids)
	}

	nets, _, err := s.FindMatches("", "a[0:3]", false, false)
	if err != nil || len(nets) != 0 {
		t.Errorf("FindMatches(capped) = %v, %v, want empty", nets, err)
	}
}

func TestService_ResolveUnknown(t *testing.T) {
	s := newTestService(t, "mycell.sp", "mycell", Options{})

	tests := []struct {
		template string
		net      string
	}{
		{"nope", "n1"},
		{"b", "nope"},
		{"b", ""},
	}
	for _, tt := range tests {
		ids := mustResolve(t, s, tt.template, tt.net, false, false)
		if len(ids) != 0 {
			t.Errorf("Resolve(%q, %q) = %v, want empty", tt.template, tt.net, ids)
		}
	}
}

func TestService_OrphanTemplate(t *testing.T) {
	// With b as the top cell, a and mycell are never placed beneath it.
	s := newTestService(t, "mycell.sp", "b", Options{})

	ids := mustResolve(t, s, "a", "n0", false, false)
	if len(ids) != 0 {
		t.Errorf("orphan a:n0 resolves to %v, want empty", ids)
	}

	ids = mustResolve(t, s, "d", "n3", false, false)
	if got := names(t, s, ids); !reflect.DeepEqual(got, []string{"n1"}) {
		t.Errorf("d:n3 under top b resolves to %v, want [n1]", got)
	}
}

func TestService_ResolveCache(t *testing.T) {
	s := newTestService(t, "mycell.sp", "mycell", Options{})

	first := mustResolve(t, s, "d", "n3", false, false)
	before := s.Stats()
	second := mustResolve(t, s, "D", "N3", false, false)
	after := s.Stats()

	if !reflect.DeepEqual(first, second) {
		t.Errorf("second resolve = %v, want %v", second, first)
	}
	if after.ResolveHits != before.ResolveHits+1 {
		t.Errorf("ResolveHits = %d, want %d", after.ResolveHits, before.ResolveHits+1)
	}
	if after.ResolveMisses != before.ResolveMisses {
		t.Errorf("ResolveMisses changed on a cached lookup: %d -> %d", before.ResolveMisses, after.ResolveMisses)
	}

	// Same pair through a different pattern hits the pair cache.
	mustResolve(t, s, "^d$", "^n3$", true, true)
	if s.Stats().PairHits <= after.PairHits {
		t.Errorf("PairHits = %d, want > %d", s.Stats().PairHits, after.PairHits)
	}

	// Returned sets are copies; changing one leaves the cache intact.
	second[0] = -1
	third := mustResolve(t, s, "d", "n3", false, false)
	if !reflect.DeepEqual(first, third) {
		t.Errorf("resolve after caller mutation = %v, want %v", third, first)
	}
	if first[0] == -1 {
		t.Error("cached and returned sets share storage")
	}
	pair := s.pairIDs("d", "n3")
	pair2 := s.pairIDs("d", "n3")
	if &pair[0] != &pair2[0] {
		t.Error("pairIDs should return the shared cached set")
	}
}

func TestService_FindMatches(t *testing.T) {
	s := newTestService(t, "mycell.sp", "mycell", Options{})

	tests := []struct {
		name          string
		template      string
		net           string
		templateRegex bool
		netRegex      bool
		wantNets      []string
		wantTemplates []string
	}{
		{
			name:          "top cell net is bare",
			net:           "IN1",
			wantNets:      []string{"in1"},
			wantTemplates: []string{"mycell"},
		},
		{
			name:          "alias reports canonical",
			template:      "b",
			net:           "ic/m2",
			wantNets:      []string{"b:nonpinb"},
			wantTemplates: []string{"b"},
		},
		{
			name:          "regex across templates",
			template:      "[ab]",
			net:           "^n",
			templateRegex: true,
			netRegex:      true,
			wantNets:      []string{"a:n0", "b:n1", "b:nonpinb"},
			wantTemplates: []string{"a", "b"},
		},
		{
			name:     "unknown template",
			template: "zz",
			net:      "a",
		},
		{
			name:     "empty net",
			template: "b",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nets, tpls, err := s.FindMatches(tt.template, tt.net, tt.templateRegex, tt.netRegex)
			if err != nil {
				t.Fatalf("FindMatches() error = %v", err)
			}
			if len(nets) != len(tt.wantNets) || (len(nets) > 0 && !reflect.DeepEqual(nets, tt.wantNets)) {
				t.Errorf("nets = %v, want %v", nets, tt.wantNets)
			}
			if len(tpls) != len(tt.wantTemplates) || (len(tpls) > 0 && !reflect.DeepEqual(tpls, tt.wantTemplates)) {
				t.Errorf("templates = %v, want %v", tpls, tt.wantTemplates)
			}
		})
	}
}

func TestService_FindNetInstanceNames(t *testing.T) {
	s := newTestService(t, "mycell.sp", "mycell", Options{})

	tests := []struct {
		template string
		net      string
		want     []string
	}{
		{"d", "n3", []string{"in1", "in2"}},
		{"b", "nonpinb", []string{"ia1/ib/nonpinb", "ia2/ib/nonpinb"}},
		{"b", "ic/m2", []string{"ia1/ib/nonpinb", "ia2/ib/nonpinb"}},
		{"", "vcc", []string{"vcc"}},
		{"d", "nope", nil},
	}
	for _, tt := range tests {
		t.Run(tt.template+":"+tt.net, func(t *testing.T) {
			got := s.FindNetInstanceNames(tt.template, tt.net)
			if len(got) != len(tt.want) || (len(got) > 0 && !reflect.DeepEqual(got, tt.want)) {
				t.Errorf("FindNetInstanceNames(%q, %q) = %v, want %v", tt.template, tt.net, got, tt.want)
			}
		})
	}
}

func TestNormalizeNetForTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"b:ic/m2", "b", "ic/m2"},
		{"B:x", "b", "x"},
		{"net[0:2]", "b", "net[0:2]"},
		{"b:net[0:2]", "b", "net[0:2]"},
		{"c:x", "b", "c:x"},
		{"b:x", "", "b:x"},
	}
	for _, tt := range tests {
		if got := NormalizeNetForTemplate(tt.name, tt.template); got != tt.want {
			t.Errorf("NormalizeNetForTemplate(%q, %q) = %q, want %q", tt.name, tt.template, got, tt.want)
		}
	}
}

func TestService_FindMatchesBus(t *testing.T) {
	s := newTestService(t, "bus.sp", "top", Options{})

	nets, tpls, err := s.FindMatches("", "Y[1:2]", false, false)
	if err != nil {
		t.Fatalf("FindMatches() error = %v", err)
	}
	if want := []string{"y[1]", "y[2]"}; !reflect.DeepEqual(nets, want) {
		t.Errorf("nets = %v, want %v", nets, want)
	}
	if want := []string{"top"}; !reflect.DeepEqual(tpls, want) {
		t.Errorf("templates = %v, want %v", tpls, want)
	}

	nets, _, err = s.FindMatches("reg", "q[0:1]", false, false)
	if err != nil {
		t.Fatalf("FindMatches() error = %v", err)
	}
	if want := []string{"reg:q[0]", "reg:q[1]"}; !reflect.DeepEqual(nets, want) {
		t.Errorf("nets = %v, want %v", nets, want)
	}
}

func TestService_CollapseBus(t *testing.T) {
	s := newTestService(t, "bus.sp", "top", Options{})

	var qs []string
	for _, n := range s.NetsInTemplate("reg") {
		if strings.HasPrefix(n, "q[") {
			qs = append(qs, n)
		}
	}
	got, ok := s.CollapseBus(qs)
	if !ok || got != "q[0:3]" {
		t.Errorf("CollapseBus(%v) = %q, %v, want q[0:3]", qs, got, ok)
	}

	if _, ok := s.CollapseBus([]string{"q[0]", "q[2]"}); ok {
		t.Error("CollapseBus() collapsed a range with a gap")
	}
}

func TestService_Close(t *testing.T) {
	s := newTestService(t, "mycell.sp", "mycell", Options{})
	mustResolve(t, s, "d", "n3", false, false)

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	_, err := s.ResolveToCanonicalIDs("d", "n3", false, false)
	if !errors.IsCode(err, errors.StoreClosed) {
		t.Errorf("Resolve after Close error = %v, want STORE_CLOSED", err)
	}
	_, _, err = s.FindMatches("", "in1", false, false)
	if !errors.IsCode(err, errors.StoreClosed) {
		t.Errorf("FindMatches after Close error = %v, want STORE_CLOSED", err)
	}
}

func TestService_StoreClosedUnderneath(t *testing.T) {
	s := newTestService(t, "mycell.sp", "mycell", Options{})

	if err := s.store.Close(); err != nil {
		t.Fatalf("store Close() error = %v", err)
	}
	_, err := s.MatchingTemplates("d", false)
	if !errors.IsCode(err, errors.StoreClosed) {
		t.Errorf("MatchingTemplates() error = %v, want STORE_CLOSED", err)
	}
	_, err = s.ResolveToCanonicalIDs("d", "n3", false, false)
	if !errors.IsCode(err, errors.StoreClosed) {
		t.Errorf("ResolveToCanonicalIDs() error = %v, want STORE_CLOSED", err)
	}
}

func TestService_ConcurrentResolve(t *testing.T) {
	s := newTestService(t, "mycell.sp", "mycell", Options{})
	want := mustResolve(t, s, "d", "gd1", false, false)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := s.ResolveToCanonicalIDs("d", "gd1", false, false)
			if err != nil {
				t.Errorf("ResolveToCanonicalIDs() error = %v", err)
				return
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("concurrent resolve = %v, want %v", got, want)
			}
		}()
	}
	wg.Wait()
}
