package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/Justvicky153/ratplacecopy/internal/store"
	"github.com/Justvicky153/ratplacecopy/pkg/market"
)

// CollapsedLimit is how many programs of a collapsed category the
// presentation layer shows. The engine itself never truncates.
const CollapsedLimit = 4

// Section is one category's slice of the filtered catalog.
type Section struct {
	Category market.Category  `json:"category"`
	Total    int              `json:"total"`
	Programs []market.Program `json:"programs"`
}

// Engine holds the fetched program set and derives the filtered,
// category-partitioned view from it. Safe for concurrent use.
type Engine struct {
	store store.Store

	mu         sync.RWMutex
	programs   []market.Program
	query      string
	selected   map[market.Category]bool
	collapsed  map[market.Category]bool
	loadFailed bool
}

// NewEngine creates a catalog engine. Every category starts expanded.
func NewEngine(s store.Store) *Engine {
	return &Engine{
		store:     s,
		selected:  make(map[market.Category]bool),
		collapsed: make(map[market.Category]bool),
	}
}

// Load fetches all programs, newest first, and replaces the in-memory
// set wholesale. Fetch failures are logged and swallowed: the prior view
// stays intact and LoadFailed reports the degraded state.
func (e *Engine) Load(ctx context.Context) {
	programs, err := e.store.ListPrograms(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog load error: %v\n", err)
		e.loadFailed = true
		return
	}
	e.programs = programs
	e.loadFailed = false
}

// LoadFailed reports whether the most recent Load failed.
func (e *Engine) LoadFailed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loadFailed
}

// SetSearchQuery updates the free-text filter. Empty matches everything.
func (e *Engine) SetSearchQuery(q string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.query = q
}

// SearchQuery returns the active free-text filter.
func (e *Engine) SearchQuery() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.query
}

// ToggleCategory adds or removes c from the category filter set. An
// empty set means every category passes.
func (e *Engine) ToggleCategory(c market.Category) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selected[c] {
		delete(e.selected, c)
	} else {
		e.selected[c] = true
	}
}

// SelectedCategories returns the active filter set in display order.
func (e *Engine) SelectedCategories() []market.Category {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []market.Category
	for _, c := range market.AllCategories() {
		if e.selected[c] {
			out = append(out, c)
		}
	}
	return out
}

// ToggleExpansion flips whether a category shows all matches or only the
// first CollapsedLimit. Truncation itself is the presentation layer's.
func (e *Engine) ToggleExpansion(c market.Category) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.collapsed[c] {
		delete(e.collapsed, c)
	} else {
		e.collapsed[c] = true
	}
}

// Expanded reports whether a category shows all of its matches.
func (e *Engine) Expanded(c market.Category) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.collapsed[c]
}

// Visible returns the full filtered set in load order (newest first).
func (e *Engine) Visible() []market.Program {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return filterPrograms(e.programs, e.query, e.selected)
}

// VisibleFor returns the programs of one category that pass both the
// search and category filters, preserving load order. Never truncated.
func (e *Engine) VisibleFor(c market.Category) []market.Program {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []market.Program
	for _, p := range filterPrograms(e.programs, e.query, e.selected) {
		if p.Category == c {
			out = append(out, p)
		}
	}
	return out
}

// Sections partitions the filtered set by category in display order.
// Categories with no matches are omitted entirely.
func (e *Engine) Sections() []Section {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return partition(filterPrograms(e.programs, e.query, e.selected))
}

// SectionsFor derives a partitioned view for an explicit filter state
// without touching the engine's own. Used by the HTTP layer, where
// filter state travels with the request. The second return is the total
// match count across all sections.
func (e *Engine) SectionsFor(query string, categories []market.Category) ([]Section, int) {
	selected := make(map[market.Category]bool, len(categories))
	for _, c := range categories {
		selected[c] = true
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	filtered := filterPrograms(e.programs, query, selected)
	return partition(filtered), len(filtered)
}

// filterPrograms recomputes the visible set from scratch. At marketplace
// scale, full recomputation per render beats index maintenance.
func filterPrograms(programs []market.Program, query string, selected map[market.Category]bool) []market.Program {
	q := strings.ToLower(query)
	var out []market.Program
	for _, p := range programs {
		if q != "" &&
			!strings.Contains(strings.ToLower(p.Title), q) &&
			!strings.Contains(strings.ToLower(p.ShortDescription), q) {
			continue
		}
		if len(selected) > 0 && !selected[p.Category] {
			continue
		}
		out = append(out, p)
	}
	return out
}

func partition(filtered []market.Program) []Section {
	byCategory := make(map[market.Category][]market.Program)
	for _, p := range filtered {
		byCategory[p.Category] = append(byCategory[p.Category], p)
	}

	var sections []Section
	for _, c := range market.AllCategories() {
		programs := byCategory[c]
		if len(programs) == 0 {
			continue
		}
		sections = append(sections, Section{
			Category: c,
			Total:    len(programs),
			Programs: programs,
		})
	}
	return sections
}
