// Package conflict tracks which configuration lines touch the same physical nets.
//
// Each line resolves to a set of top-cell canonical net ids. The Store keeps
// that membership in both directions (line -> nets, net -> lines) so that a
// single line edit updates every other line's answers without a rescan.
package conflict

import "sort"

// LineID identifies a configuration line.
type LineID string

// Info describes the conflict of one line.
type Info struct {
	Peers      []LineID `json:"peers"`
	SharedNets []int    `json:"sharedNets"`
}

// Store is the bidirectional line/net index.
//
// Invariant: line is in netLines[n] exactly when n is in lineNets[line].
// Lines with no nets are absent from both maps.
//
// Store is not safe for concurrent mutation; callers serialise edits.
type Store struct {
	lineNets map[LineID]map[int]struct{}
	netLines map[int]map[LineID]struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		lineNets: make(map[LineID]map[int]struct{}),
		netLines: make(map[int]map[LineID]struct{}),
	}
}

// UpdateLine replaces the nets of line. Empty nets drop the line.
func (s *Store) UpdateLine(line LineID, nets []int) {
	s.detach(line)
	if len(nets) > 0 {
		s.attach(line, nets)
	}
}

// RemoveLine drops line from the index.
func (s *Store) RemoveLine(line LineID) {
	s.detach(line)
}

// BuildFromLines replaces the whole index. Entries with no nets are skipped.
func (s *Store) BuildFromLines(lines map[LineID][]int) {
	s.Clear()
	for line, nets := range lines {
		if len(nets) > 0 {
			s.attach(line, nets)
		}
	}
}

// Clear empties the index.
func (s *Store) Clear() {
	s.lineNets = make(map[LineID]map[int]struct{})
	s.netLines = make(map[int]map[LineID]struct{})
}

// Len returns the number of indexed lines.
func (s *Store) Len() int { return len(s.lineNets) }

// Lines returns the indexed lines, sorted.
func (s *Store) Lines() []LineID {
	out := make([]LineID, 0, len(s.lineNets))
	for l := range s.lineNets {
		out = append(out, l)
	}
	sortLines(out)
	return out
}

// Nets returns the nets of line, sorted.
func (s *Store) Nets(line LineID) []int {
	return sortedInts(s.lineNets[line])
}

// IsConflicting reports whether any net of line is owned by another line.
func (s *Store) IsConflicting(line LineID) bool {
	for n := range s.lineNets[line] {
		if len(s.netLines[n]) > 1 {
			return true
		}
	}
	return false
}

// ConflictingLines returns every other line sharing a net with line, sorted.
func (s *Store) ConflictingLines(line LineID) []LineID {
	peers := make(map[LineID]struct{})
	for n := range s.lineNets[line] {
		for other := range s.netLines[n] {
			if other != line {
				peers[other] = struct{}{}
			}
		}
	}
	out := make([]LineID, 0, len(peers))
	for p := range peers {
		out = append(out, p)
	}
	sortLines(out)
	return out
}

// ConflictingNetIDs returns the nets of line that another line also owns, sorted.
func (s *Store) ConflictingNetIDs(line LineID) []int {
	shared := make(map[int]struct{})
	for n := range s.lineNets[line] {
		if len(s.netLines[n]) > 1 {
			shared[n] = struct{}{}
		}
	}
	return sortedInts(shared)
}

// ConflictInfo returns the peers and shared nets of line, or nil when it does
// not conflict.
func (s *Store) ConflictInfo(line LineID) *Info {
	shared := s.ConflictingNetIDs(line)
	if len(shared) == 0 {
		return nil
	}
	return &Info{
		Peers:      s.ConflictingLines(line),
		SharedNets: shared,
	}
}

func (s *Store) attach(line LineID, nets []int) {
	set := make(map[int]struct{}, len(nets))
	for _, n := range nets {
		set[n] = struct{}{}
		owners, ok := s.netLines[n]
		if !ok {
			owners = make(map[LineID]struct{})
			s.netLines[n] = owners
		}
		owners[line] = struct{}{}
	}
	s.lineNets[line] = set
}

func (s *Store) detach(line LineID) {
	old, ok := s.lineNets[line]
	if !ok {
		return
	}
	for n := range old {
		owners := s.netLines[n]
		delete(owners, line)
		if len(owners) == 0 {
			delete(s.netLines, n)
		}
	}
	delete(s.lineNets, line)
}

func sortLines(lines []LineID) {
	sort.Slice(lines, func(i, j int) bool { return lines[i] < lines[j] })
}

func sortedInts(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}
