// Package report renders the plain-text summaries the orchestrator prints on
// completion: the per-action outcome table and the checker's problem list.
//
// Grounded on pkg/ascii's StringWidth/Box column-alignment helpers, adapted
// from terminal-art boxes to fixed-width report tables since a run's report
// is piped to CI logs as often as it is read on a terminal.
package report

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/canonical/discourse-gatekeeper/internal/model"
)

func pad(s string, width int) string {
	fill := width - runewidth.StringWidth(s)
	if fill <= 0 {
		return s
	}
	return s + strings.Repeat(" ", fill)
}

func columnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

func renderTable(headers []string, rows [][]string) string {
	if len(rows) == 0 {
		return "(none)\n"
	}
	widths := columnWidths(headers, rows)

	var sb strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			sb.WriteString(pad(cell, widths[i]))
			if i < len(cells)-1 {
				sb.WriteString("  ")
			}
		}
		sb.WriteString("\n")
	}

	writeRow(headers)
	sep := make([]string, len(headers))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
	return sb.String()
}

// Actions renders one row per ActionReport: table path, result, location,
// reason. Used for the full report dump the orchestrator logs at INFO at the
// end of every reconcile run, failed or not.
func Actions(paths []model.TablePath, reports []model.ActionReport) string {
	headers := []string{"PATH", "RESULT", "LOCATION", "REASON"}
	rows := make([][]string, 0, len(reports))
	for i, r := range reports {
		path := ""
		if i < len(paths) {
			path = paths[i].String()
		}
		rows = append(rows, []string{path, string(r.Result), r.Location, r.Reason})
	}
	return "Action report:\n" + renderTable(headers, rows)
}

// Problems renders one row per checker Problem: path and description, the
// description wrapped only by the caller's terminal (a report dump is not
// interactive, so no line-wrapping is applied here).
func Problems(problems []model.Problem) string {
	headers := []string{"PATH", "DESCRIPTION"}
	rows := make([][]string, 0, len(problems))
	for _, p := range problems {
		rows = append(rows, []string{p.Path, oneLine(p.Description)})
	}
	return "Problems:\n" + renderTable(headers, rows)
}

// oneLine collapses a possibly multi-line description (e.g. a conflict
// block) onto a single row, replacing newlines with " | " so the table
// stays one row per problem.
func oneLine(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", " | ")
}

// Summary renders the one-line INFO summary the orchestrator logs after
// every run: counts by result plus the problem count.
func Summary(reports []model.ActionReport, problems []model.Problem) string {
	counts := map[model.Result]int{}
	for _, r := range reports {
		counts[r.Result]++
	}
	return fmt.Sprintf(
		"%d succeeded, %d skipped, %d failed, %d problems",
		counts[model.ResultSuccess], counts[model.ResultSkip], counts[model.ResultFail], len(problems),
	)
}
