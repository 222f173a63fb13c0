// Package navtable parses and renders the Discourse navigation table: a
// "# Navigation" heading followed by a 3-column pipe table of level, path
// and navlink cells.
//
// Grounded on TableRow / TableRow.to_markdown in gatekeeper/types_.py. Hidden
// rows wrap the row in a "[details=Hidden]...[/details]" shroud with a blank
// level cell, an addition on top of the ported grammar since level is always
// recoverable from the path's segment count.
package navtable

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/canonical/discourse-gatekeeper/internal/errors"
	"github.com/canonical/discourse-gatekeeper/internal/model"
)

// headingPattern matches a "# Navigation" heading line, case-insensitive;
// Parse uses the last match.
var headingPattern = regexp.MustCompile(`(?im)^#{1,6}\s*navigation\s*$`)

var headerRowPattern = regexp.MustCompile(`(?i)^\|\s*level\s*\|\s*path\s*\|\s*navlink\s*\|\s*$`)
var separatorRowPattern = regexp.MustCompile(`^\|(\s*-+\s*\|){3}\s*$`)
var rowPattern = regexp.MustCompile(`^\|\s*(\d*)\s*\|\s*([a-z0-9-]+)\s*\|\s*\[([^\]]*)\]\(([^)]*)\)\s*\|\s*$`)

const detailsPrefix = "[details=Hidden]"
const detailsSuffix = "[/details]"

// Parse locates the last "# Navigation" heading in content and parses the
// 3-column pipe table that follows it into rows.
func Parse(content string) ([]model.TableRow, error) {
	lines := strings.Split(content, "\n")

	headingIdx := -1
	for i, line := range lines {
		if headingPattern.MatchString(line) {
			headingIdx = i
		}
	}
	if headingIdx == -1 {
		return nil, nil
	}

	i := headingIdx + 1
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i >= len(lines) || !headerRowPattern.MatchString(strings.TrimSpace(lines[i])) {
		return nil, errors.NewNavigationTableParse("navigation table header row not found after heading")
	}
	i++
	if i >= len(lines) || !separatorRowPattern.MatchString(strings.TrimSpace(lines[i])) {
		return nil, errors.NewNavigationTableParse("navigation table separator row not found")
	}
	i++

	var rows []model.TableRow
	for i < len(lines) {
		raw := strings.TrimRight(lines[i], " \t")
		if strings.TrimSpace(raw) == "" {
			break
		}
		row, err := parseRow(raw)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
		i++
	}
	return rows, nil
}

func parseRow(line string) (model.TableRow, error) {
	trimmed := strings.TrimSpace(line)
	hidden := false
	if strings.HasPrefix(trimmed, detailsPrefix) && strings.HasSuffix(trimmed, detailsSuffix) {
		hidden = true
		trimmed = strings.TrimSuffix(strings.TrimPrefix(trimmed, detailsPrefix), detailsSuffix)
	}

	m := rowPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return model.TableRow{}, errors.NewNavigationTableParse(fmt.Sprintf("malformed navigation table row: %q", line))
	}

	pathSegments := strings.Split(m[2], "-")
	level := len(pathSegments)
	if m[1] != "" {
		explicit, err := strconv.Atoi(m[1])
		if err != nil {
			return model.TableRow{}, errors.NewNavigationTableParse(fmt.Sprintf("malformed level in navigation table row: %q", line))
		}
		if !hidden {
			level = explicit
		}
	}

	title := m[3]
	link := m[4]

	return model.TableRow{
		Level: level,
		Path:  model.TablePath(pathSegments),
		Navlink: model.Navlink{
			Title:  title,
			Link:   link,
			Hidden: hidden,
		},
	}, nil
}

// Render is the exact inverse of Parse, bit-stable for round-trip.
func Render(rows []model.TableRow, serverHostname string) string {
	var sb strings.Builder
	sb.WriteString("# Navigation\n")
	sb.WriteString("| level | path | navlink |\n")
	sb.WriteString("| --- | --- | --- |\n")
	for _, row := range rows {
		sb.WriteString(RenderRow(row, serverHostname))
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderRow converts a single row to its markdown line, matching
// TableRow.to_markdown.
func RenderRow(row model.TableRow, serverHostname string) string {
	levelCell := fmt.Sprintf(" %d ", row.Level)
	if row.Navlink.Hidden {
		levelCell = " "
	}

	var link string
	switch {
	case row.IsExternal(serverHostname):
		link = row.Navlink.Link
	case row.IsGroup():
		link = ""
	default:
		link = urlPath(row.Navlink.Link)
	}

	line := fmt.Sprintf("|%s| %s | [%s](%s) |", levelCell, row.Path.String(), row.Navlink.Title, link)
	if row.Navlink.Hidden {
		return detailsPrefix + line + detailsSuffix
	}
	return line
}

// urlPath strips scheme and host from an absolute link, keeping only the
// path component.
func urlPath(link string) string {
	if idx := strings.Index(link, "://"); idx != -1 {
		rest := link[idx+3:]
		if slash := strings.Index(rest, "/"); slash != -1 {
			return rest[slash:]
		}
		return ""
	}
	return link
}
