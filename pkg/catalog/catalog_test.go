package catalog

import (
	"os"
	"path/filepath"
	"testing"

	errs "catalogscraper/pkg/errors"
	"catalogscraper/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadCategoryMap(t *testing.T) {
	path := writeFile(t, "categories.json", `{
		"woman": {"dresses": "http://x/d", "coats": "http://x/c", "empty": " "},
		"man": {"shirts": "http://x/s"}
	}`)

	m, err := LoadCategoryMap(path)
	require.NoError(t, err)

	items := m.DiscoveryItems()
	require.Len(t, items, 3)
	assert.Equal(t, models.Key{Group: "man", Subgroup: "shirts"}, items[0].Key)
	assert.Equal(t, models.Key{Group: "woman", Subgroup: "coats"}, items[1].Key)
	assert.Equal(t, "http://x/d", items[2].URL)
	assert.Empty(t, items[2].Folder)
}

func TestLoadCategoryMapErrors(t *testing.T) {
	_, err := LoadCategoryMap(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errs.Is(err, errs.ErrorTypeConfig))

	_, err = LoadCategoryMap(writeFile(t, "bad.json", `["not", "a", "map"]`))
	assert.True(t, errs.Is(err, errs.ErrorTypeParsing))
}

func TestLinkResultsDownloadItems(t *testing.T) {
	path := writeFile(t, "links.json", `{
		"woman": {"dresses": ["http://x/p0b", "http://x/p0a", "http://x/p0a"]},
		"man": {"shirts": []}
	}`)

	r, err := LoadLinkResults(path)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Count())

	items := r.DownloadItems()
	require.Len(t, items, 2)
	assert.Equal(t, models.Key{Group: "woman/dresses", Subgroup: "http://x/p0a"}, items[0].Key)
	assert.Equal(t, []string{"woman", "dresses"}, items[0].Folder)
	assert.Equal(t, "http://x/p0b", items[1].URL)
}
