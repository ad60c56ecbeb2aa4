package query

import "sort"

// IDSet is a sorted set of top-cell canonical net ids. Sets returned by the
// service are copies the caller may modify.
type IDSet []int

func newIDSet(m map[int]struct{}) IDSet {
	if len(m) == 0 {
		return IDSet{}
	}
	out := make(IDSet, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

func (s IDSet) clone() IDSet {
	return append(make(IDSet, 0, len(s)), s...)
}

// IDTable is the dense bijection between top-cell canonical nets and ids.
// Nets are numbered in sorted order, so ids are stable for a given netlist.
type IDTable struct {
	ids   map[string]int
	names []string
}

func newIDTable(topNets []string) *IDTable {
	names := append([]string(nil), topNets...)
	sort.Strings(names)

	ids := make(map[string]int, len(names))
	for i, n := range names {
		ids[n] = i
	}
	return &IDTable{ids: ids, names: names}
}

// ID returns the id of a top-cell canonical net.
func (t *IDTable) ID(net string) (int, bool) {
	id, ok := t.ids[net]
	return id, ok
}

// Name returns the top-cell canonical net of id.
func (t *IDTable) Name(id int) (string, bool) {
	if id < 0 || id >= len(t.names) {
		return "", false
	}
	return t.names[id], true
}

// Len returns the number of ids.
func (t *IDTable) Len() int { return len(t.names) }
