// Package sorter interleaves the docs-tree PathInfo list with the
// contents-index order: items explicitly listed in index.md's "# contents"
// section are emitted in that order (recursing into directories immediately
// after the directory's own row), any local items left over are appended in
// alphabetical-rank order at the point their containing directory's indexed
// children run out.
//
// Grounded on sort.py: _SortData, _contents_index_iter and
// using_contents_index, ported with a shared cursor over the rank-sorted
// contents items in place of Python's peekable/more_itertools machinery.
package sorter

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/canonical/discourse-gatekeeper/internal/model"
)

type sortData struct {
	alphaSorted []model.PathInfo
	yielded     map[string]bool
	byPath      map[string]model.PathInfo
	dirIndex    map[string]int
	items       []model.IndexContentsListItem
	pos         int
	docsPath    string
}

func newSortData(pathInfos []model.PathInfo, indexContents []model.IndexContentsListItem, docsPath string) *sortData {
	alphaSorted := make([]model.PathInfo, len(pathInfos))
	copy(alphaSorted, pathInfos)
	sort.SliceStable(alphaSorted, func(i, j int) bool {
		return alphaSorted[i].AlphabeticalRank < alphaSorted[j].AlphabeticalRank
	})

	rankSorted := make([]model.IndexContentsListItem, len(indexContents))
	copy(rankSorted, indexContents)
	sort.SliceStable(rankSorted, func(i, j int) bool {
		return rankSorted[i].Rank < rankSorted[j].Rank
	})

	dirIndex := map[string]int{}
	byPath := map[string]model.PathInfo{}
	yielded := map[string]bool{}
	for idx, pi := range alphaSorted {
		if pi.IsDir {
			dirIndex[pi.LocalPath] = idx
		}
		byPath[pi.LocalPath] = pi
		yielded[pi.LocalPath] = false
	}
	dirIndex[docsPath] = 0

	return &sortData{
		alphaSorted: alphaSorted,
		yielded:     yielded,
		byPath:      byPath,
		dirIndex:    dirIndex,
		items:       rankSorted,
		docsPath:    docsPath,
	}
}

// isDescendant reports whether childPath is nested under dir (strictly).
func isDescendant(dir, childPath string) bool {
	if dir == childPath {
		return false
	}
	rel, err := filepath.Rel(dir, childPath)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel != "." && !strings.HasPrefix(rel, "..")
}

func contentsIndexIter(sd *sortData, currentDir string, currentHierarchy int) []model.PathInfo {
	var out []model.PathInfo

	for sd.pos < len(sd.items) {
		item := sd.items[sd.pos]
		sd.pos++
		var nextItem *model.IndexContentsListItem
		if sd.pos < len(sd.items) {
			nextItem = &sd.items[sd.pos]
		}

		itemLocalPath := filepath.Join(sd.docsPath, item.ReferenceValue)
		itemPathInfo, ok := sd.byPath[itemLocalPath]
		if !ok {
			continue
		}
		itemPathInfo.NavlinkTitle = item.ReferenceTitle
		itemPathInfo.NavlinkHidden = item.Hidden
		out = append(out, itemPathInfo)
		sd.yielded[itemLocalPath] = true

		if itemPathInfo.IsDir {
			out = append(out, contentsIndexIter(sd, itemPathInfo.LocalPath, currentHierarchy+1)...)
		}

		if nextItem == nil || nextItem.Hierarchy <= currentHierarchy {
			dirIdx, known := sd.dirIndex[currentDir]
			if known {
				for i := dirIdx + 1; i < len(sd.alphaSorted); i++ {
					pi := sd.alphaSorted[i]
					if !isDescendant(currentDir, pi.LocalPath) {
						break
					}
					if !sd.yielded[pi.LocalPath] {
						out = append(out, pi)
						sd.yielded[pi.LocalPath] = true
					}
				}
			}
		}
	}
	return out
}

// UsingContentsIndex orders pathInfos by the contents-index where present,
// falling back to alphabetical rank for anything left unlisted. It also
// overrides the navlink title/hidden flag of matched items from the
// contents-index entry, matching using_contents_index.
func UsingContentsIndex(pathInfos []model.PathInfo, indexContents []model.IndexContentsListItem, docsPath string) []model.PathInfo {
	sd := newSortData(pathInfos, indexContents, docsPath)

	out := contentsIndexIter(sd, docsPath, 0)

	for _, pi := range sd.alphaSorted {
		if !sd.yielded[pi.LocalPath] {
			out = append(out, pi)
			sd.yielded[pi.LocalPath] = true
		}
	}
	return out
}
