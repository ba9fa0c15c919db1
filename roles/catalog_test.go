package roles

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogClassicTheme(t *testing.T) {
	c := NewCatalog(DefaultFS())

	catalog, err := c.RolesFor(ClassicTheme)
	require.NoError(t, err)
	require.NotEmpty(t, catalog)

	villager, err := c.RoleByID(ClassicTheme, "villager")
	require.NoError(t, err)
	assert.Equal(t, AlignmentGood, villager.Alignment)
}

func TestCatalogThemeMerge(t *testing.T) {
	c := NewCatalog(DefaultFS())

	catalog, err := c.RolesFor("deep-space")
	require.NoError(t, err)

	crew, err := c.RoleByID("deep-space", "villager")
	require.NoError(t, err)
	assert.Equal(t, "Crew Member", crew.Name)

	android, err := c.RoleByID("deep-space", "android")
	require.NoError(t, err)
	assert.Equal(t, AlignmentNeutral, android.Alignment)

	seen := make(map[string]bool)
	for _, role := range catalog {
		assert.False(t, seen[role.ID], "duplicate role id %q", role.ID)
		seen[role.ID] = true
	}
}

func TestCatalogUnknownTheme(t *testing.T) {
	c := NewCatalog(DefaultFS())

	_, err := c.RolesFor("atlantis")
	assert.Error(t, err)
}

func TestCatalogCachesMergeResult(t *testing.T) {
	c := NewCatalog(DefaultFS())

	first, err := c.RolesFor("deep-space")
	require.NoError(t, err)
	second, err := c.RolesFor("deep-space")
	require.NoError(t, err)

	// Same backing slice both times: the merge ran once.
	require.NotEmpty(t, first)
	assert.Equal(t, &first[0], &second[0])
}

func TestCatalogConcurrentFirstAccess(t *testing.T) {
	c := NewCatalog(DefaultFS())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.RolesFor("deep-space")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestCatalogReset(t *testing.T) {
	c := NewCatalog(DefaultFS())

	first, err := c.RolesFor("deep-space")
	require.NoError(t, err)

	c.Reset()

	second, err := c.RolesFor("deep-space")
	require.NoError(t, err)
	require.NotEmpty(t, second)
	assert.NotEqual(t, &first[0], &second[0], "reset should force a fresh merge")
}

func TestCatalogThemes(t *testing.T) {
	c := NewCatalog(DefaultFS())

	themes, err := c.Themes()
	require.NoError(t, err)

	assert.Equal(t, ClassicTheme, themes[0])
	assert.Contains(t, themes, "deep-space")
}

func TestCatalogDistribution(t *testing.T) {
	c := NewCatalog(DefaultFS())

	dist, err := c.DistributionFor("deep-space", 9)
	require.NoError(t, err)
	require.NotNil(t, dist)
	assert.Equal(t, 9, dist.Total())
	assert.Equal(t, 1, dist["android"])

	none, err := c.DistributionFor(ClassicTheme, 3)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestCatalogMetadataFallback(t *testing.T) {
	c := NewCatalog(DefaultFS())

	classic, err := c.MetadataFor(ClassicTheme)
	require.NoError(t, err)
	assert.NotZero(t, classic.MinPlayers)

	space, err := c.MetadataFor("deep-space")
	require.NoError(t, err)
	assert.Equal(t, "Deep Space", space.GameName)
}
