package conflict_test

import (
	"reflect"
	"testing"

	"nqs/internal/conflict"
	"nqs/internal/netlist"
	"nqs/internal/query"
	"nqs/internal/testutil"
)

type specs []conflict.NetSpec

func (s specs) NetSpecs() []conflict.NetSpec { return s }

func newDetector(t *testing.T) (*conflict.Detector, *query.Service) {
	t.Helper()

	nl, err := netlist.Parse(testutil.OpenFixture(t, "mycell.sp"), "mycell")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	svc, err := query.New(nl, query.Options{})
	if err != nil {
		t.Fatalf("query.New() error = %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })

	return conflict.NewDetector(svc, nil), svc
}

func TestDetector_ChildNetAgainstTopNet(t *testing.T) {
	d, _ := newDetector(t)

	d.Rebuild([]conflict.Line{
		{ID: "child", Data: specs{{Template: "d", Net: "n3"}}},
		{ID: "top", Data: specs{{Net: "in1"}}},
		{ID: "other", Data: specs{{Net: "out4"}}},
	})

	if !d.IsConflicting("child") || !d.IsConflicting("top") {
		t.Error("child and top lines should conflict through in1")
	}
	if d.IsConflicting("other") {
		t.Error("other line should not conflict")
	}

	info := d.ConflictInfo("top")
	if info == nil {
		t.Fatal("ConflictInfo(top) = nil")
	}
	if want := []conflict.LineID{"child"}; !reflect.DeepEqual(info.Peers, want) {
		t.Errorf("Peers = %v, want %v", info.Peers, want)
	}
	if got, want := d.NetNames(info.SharedNets), []string{"in1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("shared nets = %v, want %v", got, want)
	}
}

func TestDetector_UpdateAndRemove(t *testing.T) {
	d, _ := newDetector(t)

	d.UpdateLine("a", specs{{Net: "in2"}})
	d.UpdateLine("b", specs{{Template: "D", Net: "N3"}})
	if !d.IsConflicting("a") {
		t.Fatal("a should conflict with b")
	}

	d.UpdateLine("b", specs{{Net: "out1"}})
	if d.IsConflicting("a") {
		t.Error("a should stop conflicting after b is edited")
	}

	d.UpdateLine("c", specs{{Net: "out1"}})
	if got, want := d.ConflictingLines("b"), []conflict.LineID{"c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ConflictingLines(b) = %v, want %v", got, want)
	}

	d.UpdateLine("c", nil)
	if d.IsConflicting("b") {
		t.Error("nil data should remove the line")
	}

	d.UpdateLine("c", specs{{Net: "out1"}})
	d.RemoveLine("c")
	if d.IsConflicting("b") {
		t.Error("RemoveLine should drop the line")
	}
}

func TestDetector_RegexAndBadSpecs(t *testing.T) {
	d, svc := newDetector(t)

	ids := d.ResolveLine(specs{
		{Net: "("},
		{Net: "(", NetRegex: true},
		{Net: "in1"},
	})
	want, err := svc.ResolveToCanonicalIDs("", "in1", false, false)
	if err != nil {
		t.Fatalf("ResolveToCanonicalIDs() error = %v", err)
	}
	if !reflect.DeepEqual(ids, []int(want)) {
		t.Errorf("ResolveLine() = %v, want %v", ids, want)
	}

	d.UpdateLine("outs", specs{{Net: "^out[12]$", NetRegex: true}})
	d.UpdateLine("one", specs{{Net: "out2"}})
	if got, want := d.ConflictingLines("one"), []conflict.LineID{"outs"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ConflictingLines(one) = %v, want %v", got, want)
	}
}

func TestDetector_RebuildSkipsNil(t *testing.T) {
	d, _ := newDetector(t)

	d.Rebuild([]conflict.Line{
		{ID: "a", Data: specs{{Net: "vcc"}}},
		{ID: "empty"},
		{ID: "none", Data: specs{{Net: "no_such_net"}}},
	})

	if got, want := d.Store().Lines(), []conflict.LineID{"a"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Lines() = %v, want %v", got, want)
	}
}
