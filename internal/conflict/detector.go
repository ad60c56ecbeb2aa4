package conflict

import (
	"log/slog"

	"nqs/internal/query"
	"nqs/internal/slogutil"
)

// NetSpec is one net reference made by a line. An empty Template means the top cell.
type NetSpec struct {
	Template      string `json:"template,omitempty" yaml:"template,omitempty"`
	Net           string `json:"net" yaml:"net"`
	TemplateRegex bool   `json:"templateRegex,omitempty" yaml:"templateRegex,omitempty"`
	NetRegex      bool   `json:"netRegex,omitempty" yaml:"netRegex,omitempty"`
}

// NetSpecProvider is implemented by every kind of line data.
type NetSpecProvider interface {
	NetSpecs() []NetSpec
}

// Resolver maps a net pattern to top-cell canonical net ids.
// *query.Service implements it.
type Resolver interface {
	ResolveToCanonicalIDs(template, net string, templateRegex, netRegex bool) (query.IDSet, error)
	CanonicalNetNameOfID(id int) (string, bool)
}

// Line is one configuration line. Nil Data means the line has no nets.
type Line struct {
	ID   LineID
	Data NetSpecProvider
}

// Detector keeps a Store in sync with line edits.
type Detector struct {
	resolver Resolver
	store    *Store
	logger   *slog.Logger
}

// NewDetector creates a detector over resolver. A nil logger discards output.
func NewDetector(resolver Resolver, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Detector{
		resolver: resolver,
		store:    NewStore(),
		logger:   logger,
	}
}

// Store returns the underlying index.
func (d *Detector) Store() *Store { return d.store }

// Rebuild re-indexes every line from scratch. Lines with nil data are left out.
func (d *Detector) Rebuild(lines []Line) {
	built := make(map[LineID][]int, len(lines))
	for _, l := range lines {
		if l.Data == nil {
			continue
		}
		built[l.ID] = d.ResolveLine(l.Data)
	}
	d.store.BuildFromLines(built)

	d.logger.Debug("Rebuilt conflict index",
		"lines", len(lines),
		"indexed", d.store.Len(),
	)
}

// UpdateLine re-resolves one line. Nil data removes the line.
func (d *Detector) UpdateLine(id LineID, data NetSpecProvider) {
	if data == nil {
		d.store.RemoveLine(id)
		return
	}
	d.store.UpdateLine(id, d.ResolveLine(data))
}

// RemoveLine drops one line.
func (d *Detector) RemoveLine(id LineID) {
	d.store.RemoveLine(id)
}

// ResolveLine returns the union of ids over all of data's specs, sorted.
// A net spec that fails to resolve is logged and contributes nothing.
func (d *Detector) ResolveLine(data NetSpecProvider) []int {
	found := make(map[int]struct{})
	for _, spec := range data.NetSpecs() {
		ids, err := d.resolver.ResolveToCanonicalIDs(spec.Template, spec.Net, spec.TemplateRegex, spec.NetRegex)
		if err != nil {
			d.logger.Warn("Failed to resolve net spec",
				"template", spec.Template,
				"net", spec.Net,
				"error", err.Error(),
			)
			continue
		}
		for _, id := range ids {
			found[id] = struct{}{}
		}
	}
	return sortedInts(found)
}

// IsConflicting reports whether line shares a net with another line.
func (d *Detector) IsConflicting(id LineID) bool { return d.store.IsConflicting(id) }

// ConflictingLines returns the lines sharing a net with id.
func (d *Detector) ConflictingLines(id LineID) []LineID { return d.store.ConflictingLines(id) }

// ConflictingNetIDs returns the shared nets of id.
func (d *Detector) ConflictingNetIDs(id LineID) []int { return d.store.ConflictingNetIDs(id) }

// ConflictInfo returns the conflict of id, or nil.
func (d *Detector) ConflictInfo(id LineID) *Info { return d.store.ConflictInfo(id) }

// CanonicalNetName returns the top-cell canonical name of id.
func (d *Detector) CanonicalNetName(id int) (string, bool) {
	return d.resolver.CanonicalNetNameOfID(id)
}

// NetNames maps ids to their top-cell canonical names, skipping unknown ids.
func (d *Detector) NetNames(ids []int) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if n, ok := d.CanonicalNetName(id); ok {
			out = append(out, n)
		}
	}
	return out
}
