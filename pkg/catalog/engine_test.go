package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Justvicky153/ratplacecopy/internal/store"
	"github.com/Justvicky153/ratplacecopy/pkg/market"
)

// failingStore flips ListPrograms to an error on demand while passing
// everything else through.
type failingStore struct {
	store.Store
	fail bool
}

func (f *failingStore) ListPrograms(ctx context.Context) ([]market.Program, error) {
	if f.fail {
		return nil, errors.New("database locked")
	}
	return f.Store.ListPrograms(ctx)
}

func seedEngine(t *testing.T) (*Engine, *failingStore) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)
	seed := []market.Program{
		{Title: "Shadow RAT", ShortDescription: "remote admin", Category: market.CategoryRats},
		{Title: "Night Stealer", ShortDescription: "credential grabber", Category: market.CategoryMalware},
		{Title: "Crypto Shield", ShortDescription: "FUD crypter", Category: market.CategoryCrypters},
		{Title: "Omega RAT", ShortDescription: "hidden vnc", Category: market.CategoryRats},
		{Title: "File Binder Pro", ShortDescription: "binds executables", Category: market.CategoryBinders},
		{Title: "Ghost RAT", ShortDescription: "lightweight rat", Category: market.CategoryRats},
		{Title: "Silent RAT", ShortDescription: "stealth control", Category: market.CategoryRats},
		{Title: "Apex RAT", ShortDescription: "full featured", Category: market.CategoryRats},
	}
	for i := range seed {
		seed[i].CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.CreateProgram(ctx, &seed[i]))
	}

	fs := &failingStore{Store: s}
	e := NewEngine(fs)
	e.Load(ctx)
	require.False(t, e.LoadFailed())
	return e, fs
}

func TestDefaultViewShowsEverythingNewestFirst(t *testing.T) {
	e, _ := seedEngine(t)

	visible := e.Visible()
	require.Len(t, visible, 8)
	assert.Equal(t, "Apex RAT", visible[0].Title)
	assert.Equal(t, "Shadow RAT", visible[len(visible)-1].Title)
}

func TestSearchMatchesTitleOrShortDescription(t *testing.T) {
	e, _ := seedEngine(t)

	// Case-insensitive substring, either field qualifies.
	e.SetSearchQuery("RAT")
	for _, p := range e.Visible() {
		matched := containsFold(p.Title, "rat") || containsFold(p.ShortDescription, "rat")
		assert.True(t, matched, "unexpected match: %s", p.Title)
	}
	// "Ghost RAT" matches on title, "Night Stealer" on neither.
	titles := visibleTitles(e)
	assert.Contains(t, titles, "Ghost RAT")
	assert.NotContains(t, titles, "Night Stealer")

	e.SetSearchQuery("grabber")
	titles = visibleTitles(e)
	assert.Equal(t, []string{"Night Stealer"}, titles)

	e.SetSearchQuery("")
	assert.Len(t, e.Visible(), 8)
}

func TestCategoryToggleIsAnInvolution(t *testing.T) {
	e, _ := seedEngine(t)

	before := visibleTitles(e)

	e.ToggleCategory(market.CategoryRats)
	assert.Equal(t, []market.Category{market.CategoryRats}, e.SelectedCategories())
	for _, p := range e.Visible() {
		assert.Equal(t, market.CategoryRats, p.Category)
	}

	e.ToggleCategory(market.CategoryRats)
	assert.Empty(t, e.SelectedCategories())
	assert.Equal(t, before, visibleTitles(e))
}

func TestMultipleSelectedCategoriesUnion(t *testing.T) {
	e, _ := seedEngine(t)

	e.ToggleCategory(market.CategoryMalware)
	e.ToggleCategory(market.CategoryBinders)

	for _, p := range e.Visible() {
		assert.Contains(t,
			[]market.Category{market.CategoryMalware, market.CategoryBinders},
			p.Category)
	}
	assert.Len(t, e.Visible(), 2)
}

func TestSectionsOmitEmptyCategoriesInDisplayOrder(t *testing.T) {
	e, _ := seedEngine(t)

	sections := e.Sections()
	// Seed covers rats, crypters, malware and binders only.
	require.Len(t, sections, 4)
	assert.Equal(t, market.CategoryRats, sections[0].Category)
	for _, sec := range sections {
		assert.NotEmpty(t, sec.Programs)
		assert.Equal(t, len(sec.Programs), sec.Total)
	}
}

func TestEngineNeverTruncatesSections(t *testing.T) {
	e, _ := seedEngine(t)

	// Five rats seeded, more than CollapsedLimit. All must come back.
	rats := e.VisibleFor(market.CategoryRats)
	assert.Greater(t, len(rats), CollapsedLimit)
	assert.Len(t, rats, 5)
}

func TestExpansionToggle(t *testing.T) {
	e, _ := seedEngine(t)

	assert.True(t, e.Expanded(market.CategoryRats))
	e.ToggleExpansion(market.CategoryRats)
	assert.False(t, e.Expanded(market.CategoryRats))
	e.ToggleExpansion(market.CategoryRats)
	assert.True(t, e.Expanded(market.CategoryRats))

	// Expansion state never changes what the engine returns.
	e.ToggleExpansion(market.CategoryRats)
	assert.Len(t, e.VisibleFor(market.CategoryRats), 5)
}

func TestFailedReloadKeepsPriorView(t *testing.T) {
	e, fs := seedEngine(t)
	ctx := context.Background()

	fs.fail = true
	e.Load(ctx)
	assert.True(t, e.LoadFailed())
	assert.Len(t, e.Visible(), 8, "failed reload must not wipe the view")

	fs.fail = false
	e.Load(ctx)
	assert.False(t, e.LoadFailed())
	assert.Len(t, e.Visible(), 8)
}

func TestSectionsForIsStateless(t *testing.T) {
	e, _ := seedEngine(t)

	e.SetSearchQuery("stealer")
	e.ToggleCategory(market.CategoryBinders)

	sections, total := e.SectionsFor("", []market.Category{market.CategoryRats})
	require.Len(t, sections, 1)
	assert.Equal(t, market.CategoryRats, sections[0].Category)
	assert.Equal(t, 5, total)

	// Engine state untouched.
	assert.Equal(t, "stealer", e.SearchQuery())
	assert.Equal(t, []market.Category{market.CategoryBinders}, e.SelectedCategories())
}

func visibleTitles(e *Engine) []string {
	var titles []string
	for _, p := range e.Visible() {
		titles = append(titles, p.Title)
	}
	return titles
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
