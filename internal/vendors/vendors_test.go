package vendors

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Resolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vendors.yaml")
	content := `vendors:
  - id: v-1
    canonical_name: Sysco
    default_category: Food Supplies
    aliases:
      - SYSCO FOODS
      - SYSCO CORP DELIVERY
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	reg, err := Load(path, nil)
	require.NoError(t, err)

	t.Run("alias resolves", func(t *testing.T) {
		v, ok := reg.Resolve("Sysco Foods Inc.")
		require.True(t, ok)
		assert.Equal(t, "Sysco", v.CanonicalName)
		assert.Equal(t, "Food Supplies", v.DefaultCategory)
	})

	t.Run("canonical name resolves", func(t *testing.T) {
		v, ok := reg.Resolve("SYSCO")
		require.True(t, ok)
		assert.Equal(t, "Sysco", v.CanonicalName)
	})

	t.Run("unknown vendor does not resolve", func(t *testing.T) {
		_, ok := reg.Resolve("Mountain Coffee Roasters")
		assert.False(t, ok)
	})

	t.Run("empty input does not resolve", func(t *testing.T) {
		_, ok := reg.Resolve("   ")
		assert.False(t, ok)
	})
}

func TestRegistry_LearnAndSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vendors.yaml")
	reg := NewRegistry(path, nil)

	v := reg.Learn("MOUNTAIN COFFEE ROASTERS LLC", "Mountain Coffee", "Beverages")
	assert.Equal(t, "Mountain Coffee", v.CanonicalName)
	assert.NotEmpty(t, v.ID)

	resolved, ok := reg.Resolve("Mountain Coffee Roasters")
	require.True(t, ok)
	assert.Equal(t, "Mountain Coffee", resolved.CanonicalName)

	require.NoError(t, reg.Save())

	reloaded, err := Load(path, nil)
	require.NoError(t, err)
	got, ok := reloaded.Resolve("MOUNTAIN COFFEE ROASTERS")
	require.True(t, ok)
	assert.Equal(t, "Mountain Coffee", got.CanonicalName)
	assert.Equal(t, "Beverages", got.DefaultCategory)
}

func TestRegistry_SaveSkipsWhenClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vendors.yaml")
	reg := NewRegistry(path, nil)

	require.NoError(t, reg.Save())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "clean registry should not write a file")
}

func TestRegistry_LearnIsIdempotent(t *testing.T) {
	reg := NewRegistry(filepath.Join(t.TempDir(), "vendors.yaml"), nil)

	reg.Learn("SYSCO FOODS", "Sysco", "Food Supplies")
	v := reg.Learn("SYSCO FOODS", "Sysco", "Food Supplies")

	assert.Len(t, reg.All(), 1)
	assert.Len(t, v.Aliases, 1)
}

func TestFindConfigFile_MissingReturnsInput(t *testing.T) {
	path, found := FindConfigFile("definitely-not-here.yaml")
	assert.False(t, found)
	assert.Equal(t, "definitely-not-here.yaml", path)
}
