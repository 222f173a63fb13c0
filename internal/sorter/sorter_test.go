package sorter

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/canonical/discourse-gatekeeper/internal/model"
)

func pathInfo(docsPath, rel string, isDir bool, rank int) model.PathInfo {
	return model.PathInfo{
		LocalPath:        filepath.Join(docsPath, rel),
		IsDir:            isDir,
		AlphabeticalRank: rank,
		NavlinkTitle:     rel,
	}
}

func indexItem(hierarchy, rank int, title, value string) model.IndexContentsListItem {
	return model.NewIndexContentsListItem(hierarchy, title, value, rank, false, model.TablePath{value}, false)
}

func TestUsingContentsIndexOrdersExplicitlyListedItemsFirst(t *testing.T) {
	docsPath := "/docs"
	pathInfos := []model.PathInfo{
		pathInfo(docsPath, "reference.md", false, 0),
		pathInfo(docsPath, "tutorials", true, 1),
		pathInfo(docsPath, filepath.Join("tutorials", "getting-started.md"), false, 2),
	}
	indexContents := []model.IndexContentsListItem{
		indexItem(1, 0, "Tutorials", "tutorials"),
		indexItem(2, 1, "Getting Started", filepath.Join("tutorials", "getting-started.md")),
	}

	ordered := UsingContentsIndex(pathInfos, indexContents, docsPath)
	require := assert.New(t)
	require.Len(ordered, 3)
	require.Equal(filepath.Join(docsPath, "tutorials"), ordered[0].LocalPath)
	require.Equal(filepath.Join(docsPath, "tutorials", "getting-started.md"), ordered[1].LocalPath)
	require.Equal(filepath.Join(docsPath, "reference.md"), ordered[2].LocalPath)
}

func TestUsingContentsIndexAppendsUnlistedItemsAlphabetically(t *testing.T) {
	docsPath := "/docs"
	pathInfos := []model.PathInfo{
		pathInfo(docsPath, "alpha.md", false, 0),
		pathInfo(docsPath, "beta.md", false, 1),
	}

	ordered := UsingContentsIndex(pathInfos, nil, docsPath)
	assert := assert.New(t)
	assert.Len(ordered, 2)
	assert.Equal(filepath.Join(docsPath, "alpha.md"), ordered[0].LocalPath)
	assert.Equal(filepath.Join(docsPath, "beta.md"), ordered[1].LocalPath)
}

func TestUsingContentsIndexOverridesNavlinkTitle(t *testing.T) {
	docsPath := "/docs"
	pathInfos := []model.PathInfo{
		pathInfo(docsPath, "reference.md", false, 0),
	}
	indexContents := []model.IndexContentsListItem{
		indexItem(1, 0, "Custom Title", "reference.md"),
	}

	ordered := UsingContentsIndex(pathInfos, indexContents, docsPath)
	assert.Equal(t, "Custom Title", ordered[0].NavlinkTitle)
}
