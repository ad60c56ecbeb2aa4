package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"nqs/internal/errors"
	"nqs/internal/slogutil"
)

// DefaultMaxVarsPerQuery is the most bound parameters a single statement may carry.
const DefaultMaxVarsPerQuery = 900

// Row is one (template, canonical net) pair.
type Row struct {
	Template string
	Net      string
}

// StoreOptions configures OpenNetStore.
type StoreOptions struct {
	Logger          *slog.Logger
	MaxVarsPerQuery int
}

// NetStore indexes canonical nets per template for exact, regex and bus lookups.
// All queries are serialised; the store is safe for concurrent use.
type NetStore struct {
	mu      sync.Mutex
	db      *DB
	closed  bool
	maxVars int
	logger  *slog.Logger
}

// OpenNetStore creates an in-memory store and bulk-loads nets, a map from
// template name to that template's canonical nets.
func OpenNetStore(nets map[string][]string, opts StoreOptions) (*NetStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	maxVars := opts.MaxVarsPerQuery
	if maxVars <= 0 {
		maxVars = DefaultMaxVarsPerQuery
	}

	db, err := OpenMemory(logger)
	if err != nil {
		return nil, err
	}

	s := &NetStore{
		db:      db,
		maxVars: maxVars,
		logger:  logger,
	}
	if err := s.load(nets); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *NetStore) load(nets map[string][]string) error {
	templates := make([]string, 0, len(nets))
	for t := range nets {
		templates = append(templates, t)
	}
	sort.Strings(templates)

	rows := 0
	err := s.db.WithTx(func(tx *sql.Tx) error {
		insTemplate, err := tx.Prepare("INSERT INTO templates (id, name) VALUES (?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare template insert: %w", err)
		}
		defer func() { _ = insTemplate.Close() }()

		insNet, err := tx.Prepare("INSERT INTO nets (template_id, net_name) VALUES (?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare net insert: %w", err)
		}
		defer func() { _ = insNet.Close() }()

		for id, name := range templates {
			if _, err := insTemplate.Exec(id, name); err != nil {
				return fmt.Errorf("failed to insert template %s: %w", name, err)
			}
			for _, net := range nets[name] {
				if _, err := insNet.Exec(id, net); err != nil {
					return fmt.Errorf("failed to insert net %s:%s: %w", name, net, err)
				}
				rows++
			}
		}

		return createIndexes(tx)
	})
	if err != nil {
		return err
	}

	s.logger.Debug("Loaded net index",
		"templates", len(templates),
		"nets", rows,
	)
	return nil
}

// MatchTemplates returns the template names equal to pattern, or matching it
// when isRegex is set. Results are sorted.
func (s *NetStore) MatchTemplates(pattern string, isRegex bool) ([]string, error) {
	if pattern == "" {
		return nil, nil
	}
	if !isRegex {
		return s.queryStrings("SELECT name FROM templates WHERE name = ? LIMIT 1", strings.ToLower(pattern))
	}
	if err := ValidatePattern(pattern); err != nil {
		return nil, err
	}
	return s.queryStrings("SELECT name FROM templates WHERE name REGEXP ? ORDER BY name", pattern)
}

// MatchExact returns the rows of templates whose net equals name.
func (s *NetStore) MatchExact(templates []string, name string) ([]Row, error) {
	if len(templates) == 0 || name == "" {
		return nil, nil
	}
	return s.matchEach(templates, func(chunk []string) (string, []interface{}) {
		args := append(stringArgs(chunk), strings.ToLower(name))
		return netQuery(len(chunk), "n.net_name = ?"), args
	}, 1)
}

// MatchRegex returns the rows of templates whose net matches pattern.
// The pattern is validated up front; an invalid pattern is a PATTERN_INVALID error.
func (s *NetStore) MatchRegex(templates []string, pattern string) ([]Row, error) {
	if len(templates) == 0 || pattern == "" {
		return nil, nil
	}
	if err := ValidatePattern(pattern); err != nil {
		return nil, err
	}
	return s.matchEach(templates, func(chunk []string) (string, []interface{}) {
		args := append(stringArgs(chunk), pattern)
		return netQuery(len(chunk), "n.net_name REGEXP ?"), args
	}, 1)
}

// MatchBus returns the rows of templates whose net is one of expanded.
// expanded is split so that no statement binds more than MaxVarsPerQuery values.
func (s *NetStore) MatchBus(templates []string, expanded []string) ([]Row, error) {
	if len(templates) == 0 || len(expanded) == 0 {
		return nil, nil
	}

	available := s.maxVars - len(templates)
	if available < 1 {
		available = 1
	}

	var out []Row
	for start := 0; start < len(expanded); start += available {
		end := start + available
		if end > len(expanded) {
			end = len(expanded)
		}
		chunk := expanded[start:end]

		cond := "n.net_name IN (" + placeholders(len(chunk)) + ")"
		args := append(stringArgs(templates), stringArgs(chunk)...)
		rows, err := s.queryRows(netQuery(len(templates), cond), args...)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

// Close releases the database. Only the first call has any effect.
func (s *NetStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Closed reports whether Close has been called.
func (s *NetStore) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// matchEach runs one statement per chunk of templates, leaving room for extra
// bound values alongside the template list.
func (s *NetStore) matchEach(templates []string, build func(chunk []string) (string, []interface{}), extra int) ([]Row, error) {
	size := s.maxVars - extra
	if size < 1 {
		size = 1
	}

	var out []Row
	for start := 0; start < len(templates); start += size {
		end := start + size
		if end > len(templates) {
			end = len(templates)
		}
		query, args := build(templates[start:end])
		rows, err := s.queryRows(query, args...)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

func (s *NetStore) queryRows(query string, args ...interface{}) ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New(errors.StoreClosed, "net store is closed", nil)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("net query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Template, &r.Net); err != nil {
			return nil, fmt.Errorf("failed to scan net row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *NetStore) queryStrings(query string, args ...interface{}) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New(errors.StoreClosed, "net store is closed", nil)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("template query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan template row: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func netQuery(templateCount int, cond string) string {
	return `
		SELECT t.name, n.net_name
		FROM nets n
		JOIN templates t ON n.template_id = t.id
		WHERE t.name IN (` + placeholders(templateCount) + `) AND ` + cond
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

func stringArgs(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
