package contents

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDocs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tutorials"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tutorials", "getting-started.md"), []byte("# Getting Started"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reference.md"), []byte("# Reference"), 0o644))
	return dir
}

func TestGetFlatAndNestedItems(t *testing.T) {
	docsPath := setupDocs(t)
	content := "# Some Title\n\n# contents\n" +
		"- [Tutorials](tutorials)\n" +
		"  - [Getting Started](tutorials/getting-started.md)\n" +
		"- [Reference](reference.md)\n" +
		"\n# Other Section\nbody\n"

	items, err := Get(&content, docsPath)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, 1, items[0].Hierarchy)
	assert.Equal(t, "Tutorials", items[0].ReferenceTitle)
	assert.Equal(t, 2, items[1].Hierarchy)
	assert.Equal(t, "Getting Started", items[1].ReferenceTitle)
	assert.Equal(t, 1, items[2].Hierarchy)
	assert.Equal(t, "Reference", items[2].ReferenceTitle)
}

func TestGetHiddenItem(t *testing.T) {
	docsPath := setupDocs(t)
	content := "# contents\n<!-- - [Reference](reference.md) -->\n"

	items, err := Get(&content, docsPath)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Hidden)
}

func TestGetCommentPassthroughIsSkipped(t *testing.T) {
	docsPath := setupDocs(t)
	content := "# contents\n<!-- vale Canonical.004-Canonical-product-names = NO -->\n- [Reference](reference.md)\n"

	items, err := Get(&content, docsPath)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Reference", items[0].ReferenceTitle)
}

func TestGetMalformedLineReturnsInputError(t *testing.T) {
	docsPath := setupDocs(t)
	content := "# contents\nnot a list item at all\n"
	_, err := Get(&content, docsPath)
	require.Error(t, err)
}

func TestExternalReferenceTablePath(t *testing.T) {
	docsPath := setupDocs(t)
	content := "# contents\n- [Upstream](http://canonical.com/docs)\n"

	items, err := Get(&content, docsPath)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].IsExternal())
	assert.Equal(t, "http-canonical-com-docs", items[0].TablePath().String())
}

func TestGetContentForServerStripsContentsSection(t *testing.T) {
	content := "# Title\nintro\n\n# contents\n- [Reference](reference.md)\n\n# Notes\nmore text\n"
	got := GetContentForServer(&content)
	assert.NotContains(t, got, "# contents")
	assert.NotContains(t, got, "[Reference]")
	assert.Contains(t, got, "# Notes")
}

func TestFromPageTruncatesAtNavigationHeading(t *testing.T) {
	page := "# Title\nbody\n\n# Navigation\n| level | path | navlink |\n"
	got := FromPage(page)
	assert.Equal(t, "# Title\nbody\n", got)
}
