// Package docstree walks a local docs/ directory into the flat PathInfo
// stream the sorter and reconciler operate over.
//
// Grounded on docs_directory.py. Two behaviors are new relative to the
// source and are called out in the ambient/domain stack: ignore-glob
// filtering of the walk (bmatcuk/doublestar) and locale-aware title-casing
// of directory-name fallback titles (golang.org/x/text/cases).
package docstree

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/canonical/discourse-gatekeeper/internal/errors"
	"github.com/canonical/discourse-gatekeeper/internal/model"
)

// DocumentationFolderName is the fixed name of the docs directory relative to
// the repository root.
const DocumentationFolderName = "docs"

var titleCaser = cases.Title(language.Und)

// HasDocsDirectory reports whether a docs/ directory exists under basePath.
func HasDocsDirectory(basePath string) bool {
	info, err := os.Stat(filepath.Join(basePath, DocumentationFolderName))
	return err == nil && info.IsDir()
}

// Reader walks a docs directory into PathInfo entries, applying an optional
// set of doublestar ignore globs (matched against the path relative to
// docsPath, using "/" separators regardless of OS).
type Reader struct {
	IgnoreGlobs []string
}

func (r Reader) ignored(relSlash string) bool {
	for _, pattern := range r.IgnoreGlobs {
		if ok, _ := doublestar.Match(pattern, relSlash); ok {
			return true
		}
	}
	return false
}

// Read returns PathInfo for every directory and non-index markdown file
// under docsPath, in lexical full-path order (equivalent, for the purposes
// of level/table-path/alphabetical-rank derivation, to sorted recursive-glob
// order).
func (r Reader) Read(docsPath string) ([]model.PathInfo, error) {
	var paths []string
	err := filepath.WalkDir(docsPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == docsPath {
			return nil
		}
		rel, relErr := filepath.Rel(docsPath, path)
		if relErr != nil {
			return relErr
		}
		relSlash := filepath.ToSlash(rel)
		if r.ignored(relSlash) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			paths = append(paths, path)
			return nil
		}
		if strings.ToLower(filepath.Ext(path)) != ".md" {
			return nil
		}
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if strings.ToLower(stem) == "index" {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, errors.WrapInput("failed to walk docs directory", err)
	}

	sort.Strings(paths)

	out := make([]model.PathInfo, 0, len(paths))
	for rank, path := range paths {
		info, statErr := os.Stat(path)
		if statErr != nil {
			return nil, errors.WrapInput("failed to stat docs path "+path, statErr)
		}
		rel, relErr := filepath.Rel(docsPath, path)
		if relErr != nil {
			return nil, errors.WrapInput("failed to compute relative path for "+path, relErr)
		}

		title, titleErr := navlinkTitle(path, info.IsDir())
		if titleErr != nil {
			return nil, titleErr
		}

		out = append(out, model.PathInfo{
			LocalPath:        path,
			IsDir:            info.IsDir(),
			Level:            calculateLevel(rel),
			TablePath:        calculateTablePath(rel),
			NavlinkTitle:     title,
			AlphabeticalRank: rank,
		})
	}
	return out, nil
}

// calculateLevel is the count of path segments up to and including the docs
// directory itself, matching len(path_relative_to_docs.parents) in Python
// (which counts the relative path's own directory chain plus the implicit
// docs-directory ancestor).
func calculateLevel(relPath string) int {
	segments := strings.Split(filepath.ToSlash(relPath), "/")
	return len(segments)
}

// calculateTablePath joins path segments with "-", strips the extension,
// lowercases, and normalizes spaces/underscores to hyphens.
func calculateTablePath(relPath string) model.TablePath {
	segments := strings.Split(filepath.ToSlash(relPath), "/")
	last := segments[len(segments)-1]
	ext := filepath.Ext(last)
	segments[len(segments)-1] = strings.TrimSuffix(last, ext)

	joined := strings.Join(segments, "-")
	joined = strings.ToLower(joined)
	joined = strings.ReplaceAll(joined, " ", "-")
	joined = strings.ReplaceAll(joined, "_", "-")

	return model.TablePath(strings.Split(joined, "-"))
}

// navlinkTitle returns the first-heading, first-line, or titlecased-filename
// fallback title for a path.
func navlinkTitle(path string, isDir bool) (string, error) {
	if isDir {
		return dirTitle(filepath.Base(path)), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", errors.WrapInput("failed to stat "+path, err)
	}
	if info.Size() == 0 {
		return dirTitle(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", errors.WrapInput("failed to open "+path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var firstLine string
	haveFirst := false
	for scanner.Scan() {
		line := scanner.Text()
		if !haveFirst {
			firstLine = line
			haveFirst = true
		}
		if strings.HasPrefix(line, "# ") {
			return strings.TrimPrefix(line, "# "), nil
		}
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return "", errors.WrapInput("failed to read "+path, scanErr)
	}
	if haveFirst {
		return firstLine, nil
	}
	return dirTitle(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))), nil
}

func dirTitle(name string) string {
	replaced := strings.ReplaceAll(strings.ReplaceAll(name, "-", " "), "_", " ")
	return titleCaser.String(replaced)
}
