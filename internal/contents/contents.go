// Package contents parses the user-authored "# contents" section of
// index.md into the ordered, hierarchical IndexContentsListItem list that
// drives the sorter and, for external references, the action planner.
//
// Grounded on gatekeeper/index.py: the same leader/reference regex grammar,
// hidden-item HTML-comment wrapping, comment passthrough, and the recursive
// whitespace-indentation state machine that assigns each item its hierarchy
// level.
package contents

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/canonical/discourse-gatekeeper/internal/errors"
	"github.com/canonical/discourse-gatekeeper/internal/model"
)

// ContentsHeader is the case-insensitive heading that starts the contents
// list section of index.md.
const ContentsHeader = "# contents"

// ContentsEndLinePrefix is any line starting with "#" once inside the
// contents section, closing it (the next markdown heading).
const ContentsEndLinePrefix = "#"

// NavigationHeading is the heading contents_from_page truncates on.
const NavigationHeading = "Navigation"

// DocFileExtension is the expected suffix of a local file reference.
const DocFileExtension = ".md"

const (
	whitespacePattern = `( *)`
	leaderPattern     = `((\d+\.)|([a-zA-Z]+\.)|(\*)|(-))`
	referencePattern  = `(\[(.*)\]\((.*)\))`
)

var itemPattern = regexp.MustCompile(`^` + whitespacePattern + leaderPattern + `\s*` + referencePattern + `\s*$`)
var hiddenItemPattern = regexp.MustCompile(`^<!-- ` + whitespacePattern + leaderPattern + `\s*` + referencePattern + `\s* -->$`)
var commentItemPattern = regexp.MustCompile(`^` + whitespacePattern + `<!-- (.+?) -->$`)

// parsedListItem is one raw contents-list line before hierarchy assignment.
type parsedListItem struct {
	WhitespaceCount int
	ReferenceTitle  string
	ReferenceValue  string
	Rank            int
	Hidden          bool
	Comment         bool
}

func parseItemFromLine(line string, rank int) (parsedListItem, error) {
	hidden := false
	m := itemPattern.FindStringSubmatch(line)
	if m == nil {
		m = hiddenItemPattern.FindStringSubmatch(line)
		hidden = true
	}

	if m == nil {
		cm := commentItemPattern.FindStringSubmatch(line)
		if cm == nil {
			return parsedListItem{}, errors.NewInput(fmt.Sprintf(
				"an item in the contents of the index file is invalid, line=%q", line))
		}
		return parsedListItem{
			WhitespaceCount: len(cm[1]),
			ReferenceTitle:  cm[2],
			ReferenceValue:  cm[2],
			Rank:            rank,
			Hidden:          hidden,
			Comment:         true,
		}, nil
	}

	whitespaceCount := len(m[1])
	if !hidden && whitespaceCount != 0 && rank == 0 {
		return parsedListItem{}, errors.NewInput(fmt.Sprintf(
			"an item in the contents of the index file is invalid, line=%q, expecting the first "+
				"line not to have any leading whitespace", line))
	}

	return parsedListItem{
		WhitespaceCount: whitespaceCount,
		ReferenceTitle:  m[8],
		ReferenceValue:  m[9],
		Rank:            rank,
		Hidden:          hidden,
		Comment:         false,
	}, nil
}

type section int

const (
	sectionContents section = iota
	sectionExContents
)

// iterIndexLines returns the lines of content with the contents section
// dropped (sectionExContents) or kept (sectionContents).
func iterIndexLines(lines []string, sec section) []string {
	contentsEncountered := false
	dropLines := sec == sectionContents

	var out []string
	for _, line := range lines {
		if !contentsEncountered && strings.ToLower(line) == ContentsHeader {
			contentsEncountered = true
			dropLines = sec == sectionExContents
		} else if strings.HasPrefix(line, ContentsEndLinePrefix) {
			dropLines = sec == sectionContents
		}
		if !dropLines {
			out = append(out, line)
		}
	}
	return out
}

// GetContentForServer returns the index.md content with the contents list
// section stripped, i.e. what should be pushed to the server page.
func GetContentForServer(content *string) string {
	if content == nil {
		return ""
	}
	lines := strings.Split(*content, "\n")
	return strings.Join(iterIndexLines(lines, sectionExContents), "\n")
}

// FromPage returns the part of a server page content preceding the
// navigation table heading, i.e. the index file content view of a page.
func FromPage(page string) string {
	lines := strings.Split(page, "\n")
	navHeading := strings.ToLower("# " + NavigationHeading)
	var out []string
	for _, line := range lines {
		if strings.ToLower(line) == navHeading {
			break
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func getContentsParsedItems(content *string) ([]parsedListItem, error) {
	if content == nil {
		return nil, nil
	}
	lines := strings.Split(*content, "\n")
	contentsLines := iterIndexLines(lines, sectionContents)
	if len(contentsLines) > 0 {
		contentsLines = contentsLines[1:] // skip the "# contents" header itself
	}

	var items []parsedListItem
	rank := 0
	for _, line := range contentsLines {
		if line == "" {
			continue
		}
		item, err := parseItemFromLine(line, rank)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		rank++
	}
	return items, nil
}

// referenceType classifies a contents-list item's reference value.
type referenceType int

const (
	refExternal referenceType = iota
	refDir
	refFile
	refUnknown
)

func classifyReference(reference, docsPath string) referenceType {
	if strings.HasPrefix(strings.ToLower(reference), "http") {
		return refExternal
	}
	full := filepath.Join(docsPath, reference)
	info, err := os.Stat(full)
	if err != nil {
		return refUnknown
	}
	if info.IsDir() {
		return refDir
	}
	return refFile
}

func checkContentsItem(item parsedListItem, maxWhitespace int, aggregateDir, docsPath string) error {
	if item.WhitespaceCount > maxWhitespace {
		return errors.NewInput(fmt.Sprintf(
			"an item has more whitespace and is not following a reference to a directory, "+
				"item=%+v, expected whitespace count: %d", item, maxWhitespace))
	}

	refType := classifyReference(item.ReferenceValue, docsPath)

	if item.Hidden && refType == refDir {
		return errors.NewInput(fmt.Sprintf("a hidden item is a directory, item=%+v", item))
	}

	if refType == refDir || refType == refFile {
		itemPath := filepath.ToSlash(filepath.Clean(item.ReferenceValue))
		cleanAggregate := filepath.ToSlash(filepath.Clean(aggregateDir))
		if cleanAggregate == "." {
			cleanAggregate = ""
		}
		rel := strings.TrimPrefix(itemPath, cleanAggregate)
		rel = strings.TrimPrefix(rel, "/")
		if rel == itemPath && cleanAggregate != "" {
			return errors.NewInput(fmt.Sprintf(
				"a nested item is a reference to a path that is not within the directory of its "+
					"parent, item=%+v, expected parent path: %q", item, aggregateDir))
		}
		if strings.Contains(rel, "/") {
			return errors.NewInput(fmt.Sprintf(
				"a nested item is a reference to a path that is not immediately within the "+
					"directory of its parent, item=%+v, expected parent path: %q", item, aggregateDir))
		}
		if refType == refFile && strings.ToLower(filepath.Ext(item.ReferenceValue)) != DocFileExtension {
			return errors.NewInput(fmt.Sprintf(
				"an item in the contents list is not of the expected file type, item=%+v, "+
					"expected extension: %s", item, DocFileExtension))
		}
	}
	return nil
}

// calculateContentsHierarchy walks the flat parsed item list and assigns
// each non-comment item its hierarchy level, matching
// _calculate_contents_hierarchy's whitespace-tracking state machine.
func calculateContentsHierarchy(items []parsedListItem, docsPath string) ([]model.IndexContentsListItem, error) {
	type parentFrame struct {
		item         parsedListItem
		aggregateDir string
	}
	var parents []parentFrame
	whitespaceExpectation := map[int]int{0: 0}
	aggregateDir := ""
	hierarchy := 0

	var out []model.IndexContentsListItem

	idx := 0
	for idx < len(items) {
		item := items[idx]
		if item.Comment {
			idx++
			continue
		}

		if item.WhitespaceCount < whitespaceExpectation[hierarchy] {
			hierarchy--
			parent := parents[len(parents)-1]
			parents = parents[:len(parents)-1]
			aggregateDir = filepath.ToSlash(filepath.Dir(parent.item.ReferenceValue))
			if aggregateDir == "." {
				aggregateDir = ""
			}
		}

		if err := checkContentsItem(item, whitespaceExpectation[hierarchy], aggregateDir, docsPath); err != nil {
			return nil, err
		}

		refType := classifyReference(item.ReferenceValue, docsPath)
		var nextItem *parsedListItem
		if idx+1 < len(items) {
			nextItem = &items[idx+1]
		}

		if refType == refUnknown {
			return nil, errors.NewInput(fmt.Sprintf(
				"an item is not a file, directory or external HTTP resource, item=%+v", item))
		}

		out = append(out, model.NewIndexContentsListItem(
			hierarchy+1,
			item.ReferenceTitle,
			item.ReferenceValue,
			item.Rank,
			item.Hidden,
			computeTablePath(item.ReferenceValue),
			refType == refExternal,
		))

		if refType == refDir && nextItem != nil && nextItem.WhitespaceCount > whitespaceExpectation[hierarchy] {
			hierarchy++
			aggregateDir = filepath.ToSlash(filepath.Clean(item.ReferenceValue))
			if _, ok := whitespaceExpectation[hierarchy]; !ok {
				whitespaceExpectation[hierarchy] = nextItem.WhitespaceCount
			}
			parents = append(parents, parentFrame{item: item, aggregateDir: aggregateDir})
		}

		idx++
	}
	return out, nil
}

var pathCharsDisallowed = regexp.MustCompile(`[^A-Za-z0-9/-]`)

// computeTablePath derives the table path for a contents-list item,
// matching IndexContentsListItem.table_path.
func computeTablePath(referenceValue string) model.TablePath {
	if strings.HasPrefix(strings.ToLower(referenceValue), "http") {
		transformed := strings.ReplaceAll(referenceValue, "//", "/")
		transformed = strings.ReplaceAll(transformed, ".", "/")
		transformed = strings.ReplaceAll(transformed, "?", "/")
		transformed = strings.ReplaceAll(transformed, "#", "/")
		transformed = pathCharsDisallowed.ReplaceAllString(transformed, "")
		return model.TablePath(strings.Split(transformed, "/"))
	}

	withoutExt := referenceValue
	if idx := strings.LastIndex(referenceValue, "."); idx != -1 {
		withoutExt = referenceValue[:idx]
	}
	return model.TablePath(strings.Split(withoutExt, "/"))
}

// Get returns the contents list items for an index file, in document order.
func Get(content *string, docsPath string) ([]model.IndexContentsListItem, error) {
	items, err := getContentsParsedItems(content)
	if err != nil {
		return nil, err
	}
	return calculateContentsHierarchy(items, docsPath)
}

// formatLeader renders a leading-dash list marker, reused by callers that
// synthesize contents sections (e.g. the migration planner).
func formatLeader() string { return "-" }

// FormatItemLine renders a single contents-list markdown line for the given
// indentation level, title and reference.
func FormatItemLine(indentLevel int, title, reference string, hidden bool) string {
	indent := strings.Repeat("  ", indentLevel)
	line := fmt.Sprintf("%s%s [%s](%s)", indent, formatLeader(), title, reference)
	if hidden {
		return "<!-- " + line + " -->"
	}
	return line
}
