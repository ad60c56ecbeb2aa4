// Package lines holds the configuration line kinds whose nets are checked for
// conflicts: AF lines (one net, activity factor) and mutex lines (a group of
// mutually exclusive nets).
package lines

import (
	"nqs/internal/conflict"
)

// Kind names a line kind.
type Kind string

const (
	KindAF    Kind = "af"
	KindMutex Kind = "mutex"
)

// FEVMode is the formal-equivalence mode of a mutex line.
type FEVMode string

const (
	FEVEmpty  FEVMode = ""
	FEVLow    FEVMode = "low"
	FEVHigh   FEVMode = "high"
	FEVIgnore FEVMode = "ignore"
)

// Valid reports whether m is a known mode.
func (m FEVMode) Valid() bool {
	switch m {
	case FEVEmpty, FEVLow, FEVHigh, FEVIgnore:
		return true
	}
	return false
}

// AFLine sets an activity factor on one net pattern.
type AFLine struct {
	ID            string  `toml:"id" yaml:"id" json:"id"`
	Template      string  `toml:"template" yaml:"template,omitempty" json:"template,omitempty"`
	Net           string  `toml:"net" yaml:"net" json:"net"`
	Value         float64 `toml:"value" yaml:"value" json:"value"`
	TemplateRegex bool    `toml:"templateRegex" yaml:"templateRegex,omitempty" json:"templateRegex,omitempty"`
	NetRegex      bool    `toml:"netRegex" yaml:"netRegex,omitempty" json:"netRegex,omitempty"`
	EM            bool    `toml:"em" yaml:"em,omitempty" json:"em,omitempty"`
	SH            bool    `toml:"sh" yaml:"sh,omitempty" json:"sh,omitempty"`
	SCH           bool    `toml:"sch" yaml:"sch,omitempty" json:"sch,omitempty"`
}

// NetSpecs returns the single net reference of the line.
func (l *AFLine) NetSpecs() []conflict.NetSpec {
	return []conflict.NetSpec{{
		Template:      l.Template,
		Net:           l.Net,
		TemplateRegex: l.TemplateRegex,
		NetRegex:      l.NetRegex,
	}}
}

// MutexLine declares a group of nets of which NumActive may be active at once.
type MutexLine struct {
	ID          string   `toml:"id" yaml:"id" json:"id"`
	Template    string   `toml:"template" yaml:"template,omitempty" json:"template,omitempty"`
	NumActive   int      `toml:"numActive" yaml:"numActive" json:"numActive"`
	FEV         FEVMode  `toml:"fev" yaml:"fev,omitempty" json:"fev,omitempty"`
	NetRegex    bool     `toml:"netRegex" yaml:"netRegex,omitempty" json:"netRegex,omitempty"`
	MutexedNets []string `toml:"mutexedNets" yaml:"mutexedNets" json:"mutexedNets"`
	ActiveNets  []string `toml:"activeNets" yaml:"activeNets,omitempty" json:"activeNets,omitempty"`
}

// NetSpecs returns one reference per mutexed net. Templates are never regex.
func (l *MutexLine) NetSpecs() []conflict.NetSpec {
	out := make([]conflict.NetSpec, 0, len(l.MutexedNets))
	for _, n := range l.MutexedNets {
		out = append(out, conflict.NetSpec{
			Template: l.Template,
			Net:      n,
			NetRegex: l.NetRegex,
		})
	}
	return out
}

// Set is a line-set file: AF lines followed by mutex lines.
type Set struct {
	AF    []*AFLine    `toml:"af" yaml:"af,omitempty" json:"af,omitempty"`
	Mutex []*MutexLine `toml:"mutex" yaml:"mutex,omitempty" json:"mutex,omitempty"`
}

// Len returns the number of lines.
func (s *Set) Len() int { return len(s.AF) + len(s.Mutex) }

// Line is implemented by every line kind.
type Line interface {
	conflict.NetSpecProvider
	Validate(nl Netlist) Result
}

// Get returns the line with the given id and its kind.
func (s *Set) Get(id string) (Line, Kind, bool) {
	for _, l := range s.AF {
		if l.ID == id {
			return l, KindAF, true
		}
	}
	for _, l := range s.Mutex {
		if l.ID == id {
			return l, KindMutex, true
		}
	}
	return nil, "", false
}

// Lines returns every line as conflict input, in file order.
func (s *Set) Lines() []conflict.Line {
	out := make([]conflict.Line, 0, s.Len())
	for _, l := range s.AF {
		out = append(out, conflict.Line{ID: conflict.LineID(l.ID), Data: l})
	}
	for _, l := range s.Mutex {
		out = append(out, conflict.Line{ID: conflict.LineID(l.ID), Data: l})
	}
	return out
}
