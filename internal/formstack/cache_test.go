package formstack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearchCacheEvictsLeastRecent(t *testing.T) {
	c := NewSearchCache[[]string](2)
	c.Set("a", []string{"A"})
	c.Set("b", []string{"B"})
	_, _ = c.Get("a")
	c.Set("c", []string{"C"})

	_, ok := c.Get("b")
	require.False(t, ok)
	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, []string{"A"}, v)
	require.Equal(t, 2, c.Len())
}

func TestSearchCacheClear(t *testing.T) {
	c := NewSearchCache[int](0)
	c.Set("x", 1)
	c.Clear()
	require.Zero(t, c.Len())
	_, ok := c.Get("x")
	require.False(t, ok)
}
