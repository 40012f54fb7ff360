package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	for _, c := range AllCategories() {
		got, err := ParseCategory(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	_, err := ParseCategory("warez")
	assert.Error(t, err)
	_, err = ParseCategory("")
	assert.Error(t, err)
	_, err = ParseCategory("Rats")
	assert.Error(t, err, "categories are case sensitive")
}

func TestAllCategoriesOrderIsStable(t *testing.T) {
	cats := AllCategories()
	require.Len(t, cats, 7)
	assert.Equal(t, CategoryRats, cats[0])
	assert.Equal(t, CategoryBinders, cats[6])
}

func TestDisplayPrice(t *testing.T) {
	paid := Program{Price: 49.99}
	assert.Equal(t, 49.99, paid.DisplayPrice())

	// Free overrides whatever price is stored.
	free := Program{Price: 49.99, IsFree: true}
	assert.Zero(t, free.DisplayPrice())
}
