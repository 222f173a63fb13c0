// Package merge implements the three-way content merge and diff primitives
// used to reconcile a locally-edited page against base (last-reconciled) and
// server (current Discourse) content.
//
// Grounded on content.py, which shells out to a scratch git repository per
// call and lets `git merge` do the three-way merge: the same semantics
// (disjoint hunks merge cleanly, overlapping hunks conflict) are reproduced
// here in-process as a line-based diff3, using sergi/go-diff's Myers
// implementation for the underlying two-way line diffs instead of shelling
// out to git.
package merge

import (
	"fmt"
	"strings"

	"github.com/canonical/discourse-gatekeeper/internal/errors"
	diffmatchpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// ConflictMarkerStart/Mid/End match the markers git itself emits, so output
// is familiar to anyone who has resolved a git conflict by hand.
const (
	ConflictMarkerStart = "<<<<<<< local"
	ConflictMarkerMid   = "======="
	ConflictMarkerEnd   = ">>>>>>> server"
)

// hunk is a single replacement of base[BaseStart:BaseEnd] (line indices, end
// exclusive) with Lines, derived from a two-way diff against base.
type hunk struct {
	BaseStart int
	BaseEnd   int
	Lines     []string
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	return lines
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

// diffHunks computes the hunks needed to turn base into other, anchored in
// base line-index coordinates.
func diffHunks(base, other []string) []hunk {
	dmp := diffmatchpatch.New()
	baseText, otherText, lineArray := dmp.DiffLinesToChars(joinLines(base), joinLines(other))
	diffs := dmp.DiffMain(baseText, otherText, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var hunks []hunk
	baseIdx := 0
	var pendingStart = -1
	var pendingLines []string

	flush := func(endIdx int) {
		if pendingStart >= 0 {
			hunks = append(hunks, hunk{BaseStart: pendingStart, BaseEnd: endIdx, Lines: pendingLines})
			pendingStart = -1
			pendingLines = nil
		}
	}

	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		var lines []string
		if text != "" {
			lines = strings.Split(text, "\n")
		}
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush(baseIdx)
			baseIdx += len(lines)
		case diffmatchpatch.DiffDelete:
			if pendingStart < 0 {
				pendingStart = baseIdx
			}
			baseIdx += len(lines)
		case diffmatchpatch.DiffInsert:
			if pendingStart < 0 {
				pendingStart = baseIdx
			}
			pendingLines = append(pendingLines, lines...)
		}
	}
	flush(baseIdx)
	return hunks
}

// Result is the outcome of a three-way merge.
type Result struct {
	Content    string
	Conflicted bool
	// BaseMissingDiverged is set when base is nil (the page was never
	// previously reconciled) and server and local content disagree: this is
	// the BASE_MISSING case, which is only allowed to proceed silently when
	// server == local. Divergence with no base to three-way merge against
	// cannot be resolved automatically, so it is surfaced as a conflict
	// rather than merged against an assumed-empty base.
	BaseMissingDiverged bool
}

// Merge performs a three-way merge of local and server content against base.
// When base is nil and server == local, that content is returned unconflicted
// (BASE_MISSING, convergent). When base is nil and server != local, the
// result is flagged Conflicted and BaseMissingDiverged rather than guessing
// at a resolution. Otherwise, disjoint hunks apply cleanly; hunks that touch
// overlapping base lines and disagree produce a conflict block; hunks that
// touch the same base lines and agree apply once. Of two non-overlapping
// hunks that start at the same base line, at least one is a pure insertion:
// the insertion is applied first, and when both are insertions the local
// hunk goes first.
func Merge(base *string, server, local string) (Result, error) {
	if base == nil {
		if server == local {
			return Result{Content: local}, nil
		}
		return Result{Content: local, Conflicted: true, BaseMissingDiverged: true}, nil
	}

	baseLines := splitLines(*base)
	localHunks := diffHunks(baseLines, splitLines(local))
	serverHunks := diffHunks(baseLines, splitLines(server))

	merged, conflicted := merge3(baseLines, localHunks, serverHunks)
	return Result{Content: joinLines(merged), Conflicted: conflicted}, nil
}

// MergeOrError performs Merge and returns a *errors.ContentError if the
// result is conflicted, matching the caller contract used by the checker and
// executor: a conflicted ContentChange is a checker Problem, not a panic.
func MergeOrError(tablePath string, base *string, server, local string) (string, error) {
	res, err := Merge(base, server, local)
	if err != nil {
		return "", err
	}
	if res.Conflicted {
		return res.Content, errors.NewContent(fmt.Sprintf("merge conflict reconciling %s", tablePath))
	}
	return res.Content, nil
}

func overlaps(a, b hunk) bool {
	return a.BaseStart < b.BaseEnd && b.BaseStart < a.BaseEnd
}

func sameEdit(a, b hunk) bool {
	if a.BaseStart != b.BaseStart || a.BaseEnd != b.BaseEnd {
		return false
	}
	if len(a.Lines) != len(b.Lines) {
		return false
	}
	for i := range a.Lines {
		if a.Lines[i] != b.Lines[i] {
			return false
		}
	}
	return true
}

// merge3 walks base line by line, applying local/server hunks as their
// BaseStart is reached. Two hunks that touch overlapping base ranges and
// disagree produce a conflict block; two disjoint hunks both apply cleanly.
func merge3(base []string, localHunks, serverHunks []hunk) ([]string, bool) {
	var out []string
	conflicted := false
	li, si := 0, 0
	pos := 0

	for pos <= len(base) {
		var lh, sh *hunk
		if li < len(localHunks) && localHunks[li].BaseStart == pos {
			lh = &localHunks[li]
		}
		if si < len(serverHunks) && serverHunks[si].BaseStart == pos {
			sh = &serverHunks[si]
		}

		switch {
		case lh == nil && sh == nil:
			if pos < len(base) {
				out = append(out, base[pos])
				pos++
			} else {
				pos++
			}
		case lh != nil && sh == nil:
			out = append(out, lh.Lines...)
			pos = lh.BaseEnd
			li++
		case lh == nil && sh != nil:
			out = append(out, sh.Lines...)
			pos = sh.BaseEnd
			si++
		default:
			if sameEdit(*lh, *sh) {
				out = append(out, lh.Lines...)
				pos = lh.BaseEnd
				li++
				si++
			} else if !overlaps(*lh, *sh) {
				if lh.BaseEnd == lh.BaseStart {
					out = append(out, lh.Lines...)
					pos = lh.BaseEnd
					li++
				} else {
					out = append(out, sh.Lines...)
					pos = sh.BaseEnd
					si++
				}
			} else {
				conflicted = true
				out = append(out, ConflictMarkerStart)
				out = append(out, lh.Lines...)
				out = append(out, ConflictMarkerMid)
				out = append(out, sh.Lines...)
				out = append(out, ConflictMarkerEnd)
				pos = maxInt(lh.BaseEnd, sh.BaseEnd)
				li++
				si++
			}
		}
	}
	return out, conflicted
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Diff renders a unified-ish line diff of two strings for human-readable
// reports, mirroring content.py's use of difflib.Differ.
func Diff(a, b string) string {
	dmp := diffmatchpatch.New()
	aChars, bChars, lineArray := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffMain(aChars, bChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			sb.WriteString(prefix)
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// IsSameContent reports whether a and b are identical once trailing
// whitespace differences are ignored, matching is_same_content in types_.py.
func IsSameContent(a, b string) bool {
	return strings.TrimRight(a, "\n ") == strings.TrimRight(b, "\n ")
}
