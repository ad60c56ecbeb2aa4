// Package query answers template and net lookups against a loaded netlist and
// maps matches onto dense top-cell canonical net ids.
//
// Templates and nets are addressed case-insensitively. An empty template name
// means the top cell. Regex patterns are passed through as written and matched
// case-insensitively; everything else is lower-cased before lookup.
package query

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"nqs/internal/alias"
	"nqs/internal/bus"
	"nqs/internal/errors"
	"nqs/internal/netlist"
	"nqs/internal/slogutil"
	"nqs/internal/storage"
)

// Options configures a Service.
type Options struct {
	Logger          *slog.Logger
	MaxBusExpansion int
	MaxVarsPerQuery int
}

// Stats reports cache effectiveness.
type Stats struct {
	ResolveHits   int64 `json:"resolveHits"`
	ResolveMisses int64 `json:"resolveMisses"`
	PairHits      int64 `json:"pairHits"`
	PairMisses    int64 `json:"pairMisses"`
}

type resolveKey struct {
	template      string
	net           string
	templateRegex bool
	netRegex      bool
}

type pairKey struct {
	template string
	net      string
}

// Service is the netlist query service.
// It is safe for concurrent use; only its caches change after construction.
type Service struct {
	netlist  *netlist.Netlist
	top      string
	aliases  map[string]*alias.Result
	store    *storage.NetStore
	ids      *IDTable
	maxBus   int
	logger   *slog.Logger
	closed   atomic.Bool
	mu       sync.Mutex
	resolved map[resolveKey]IDSet
	pairs    map[pairKey]IDSet

	resolveHits, resolveMisses atomic.Int64
	pairHits, pairMisses       atomic.Int64
}

// New builds the alias data, net index and id table for nl.
func New(nl *netlist.Netlist, opts Options) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	maxBus := opts.MaxBusExpansion
	if maxBus <= 0 {
		maxBus = bus.DefaultMaxExpansion
	}

	aliases := alias.ResolveAll(nl, logger)

	nets := make(map[string][]string, len(aliases))
	for name, res := range aliases {
		nets[name] = res.Nets()
	}
	store, err := storage.OpenNetStore(nets, storage.StoreOptions{
		Logger:          logger,
		MaxVarsPerQuery: opts.MaxVarsPerQuery,
	})
	if err != nil {
		return nil, errors.New(errors.InternalError, "failed to build net index", err)
	}

	top := nl.TopCell().Name()
	s := &Service{
		netlist:  nl,
		top:      top,
		aliases:  aliases,
		store:    store,
		ids:      newIDTable(aliases[top].Nets()),
		maxBus:   maxBus,
		logger:   logger,
		resolved: make(map[resolveKey]IDSet),
		pairs:    make(map[pairKey]IDSet),
	}

	logger.Info("Netlist query service ready",
		"top_cell", top,
		"templates", nl.Len(),
		"top_nets", s.ids.Len(),
	)
	return s, nil
}

// Load reads a netlist file and builds a Service over it.
func Load(path, topCell string, opts Options) (*Service, error) {
	var parseOpts []netlist.Option
	if opts.Logger != nil {
		parseOpts = append(parseOpts, netlist.WithLogger(opts.Logger))
	}
	nl, err := netlist.ReadFile(path, topCell, parseOpts...)
	if err != nil {
		return nil, err
	}
	return New(nl, opts)
}

// Netlist returns the underlying netlist.
func (s *Service) Netlist() *netlist.Netlist { return s.netlist }

// IDs returns the canonical id table.
func (s *Service) IDs() *IDTable { return s.ids }

// Stats returns a snapshot of the cache counters.
func (s *Service) Stats() Stats {
	return Stats{
		ResolveHits:   s.resolveHits.Load(),
		ResolveMisses: s.resolveMisses.Load(),
		PairHits:      s.pairHits.Load(),
		PairMisses:    s.pairMisses.Load(),
	}
}

// Close releases the net index and drops all cached results.
// It is safe to call more than once.
func (s *Service) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	s.resolved = make(map[resolveKey]IDSet)
	s.pairs = make(map[pairKey]IDSet)
	s.mu.Unlock()

	return s.store.Close()
}

func (s *Service) checkOpen() error {
	if s.closed.Load() || s.store.Closed() {
		return errors.New(errors.StoreClosed, "query service is closed", nil)
	}
	return nil
}
