// Package model holds the value types shared across the reconciliation engine:
// PathInfo, TableRow, IndexContentsListItem, ContentChange, the Action tagged
// union and ActionReport. Grounded on gatekeeper/types_.py, generalized into a
// single sum type: one Action struct with a Kind field rather than a class
// hierarchy per role.
package model

import (
	"fmt"
	"strings"
)

// TablePath is the stable, collision-checked join key between local items and
// navigation-table rows: path segments joined with "-".
type TablePath []string

// String renders the table path the way it appears in navigation-table rows
// and table_path-derived identifiers.
func (p TablePath) String() string {
	out := ""
	for i, part := range p {
		if i > 0 {
			out += "-"
		}
		out += part
	}
	return out
}

// Equal reports whether two table paths have identical segments.
func (p TablePath) Equal(other TablePath) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is a leading, contiguous run of p's
// segments: every level-k row has an immediate level-(k-1) ancestor whose
// table path prefixes it.
func (p TablePath) HasPrefix(prefix TablePath) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// PathInfo describes one local docs-tree node (directory or markdown file).
type PathInfo struct {
	LocalPath        string
	IsDir            bool
	Level            int
	TablePath        TablePath
	NavlinkTitle     string
	AlphabeticalRank int
	NavlinkHidden    bool
}

// Navlink is the title/link/hidden triple carried by a navigation-table row.
// Link == "" means the row is a group.
type Navlink struct {
	Title  string
	Link   string
	Hidden bool
}

// IsGroup reports whether the navlink has no link, i.e. the row is a group.
func (n Navlink) IsGroup() bool { return n.Link == "" }

// TableRow is one parsed Discourse navigation-table row.
type TableRow struct {
	Level   int
	Path    TablePath
	Navlink Navlink
}

// IsGroup reports whether the row is a group (no link).
func (r TableRow) IsGroup() bool { return r.Navlink.IsGroup() }

// IsExternal reports whether the row's link points off of the given Discourse
// hostname.
func (r TableRow) IsExternal(serverHostname string) bool {
	if r.Navlink.Link == "" {
		return false
	}
	link := strings.ToLower(r.Navlink.Link)
	return strings.HasPrefix(link, "http") && !strings.HasPrefix(link, strings.ToLower(serverHostname))
}

// IndexContentsListItem is one entry parsed from the user-authored "# contents"
// section of index.md.
type IndexContentsListItem struct {
	Hierarchy       int
	ReferenceTitle  string
	ReferenceValue  string
	Rank            int
	Hidden          bool
	tablePath       TablePath
	isExternal      bool
	tablePathCached bool
}

// NewIndexContentsListItem constructs an item, pre-computing its derived
// fields (table path, is-external) once up front rather than recomputing
// them on every access.
func NewIndexContentsListItem(hierarchy int, title, value string, rank int, hidden bool, tablePath TablePath, external bool) IndexContentsListItem {
	return IndexContentsListItem{
		Hierarchy:       hierarchy,
		ReferenceTitle:  title,
		ReferenceValue:  value,
		Rank:            rank,
		Hidden:          hidden,
		tablePath:       tablePath,
		isExternal:      external,
		tablePathCached: true,
	}
}

// TablePath returns the item's derived table path.
func (i IndexContentsListItem) TablePath() TablePath { return i.tablePath }

// IsExternal reports whether the item references an absolute URL.
func (i IndexContentsListItem) IsExternal() bool { return i.isExternal }

// ItemInfo is the union of the two kinds of local item the planner and
// sorter operate over: a docs-tree PathInfo or a contents-index external
// reference. Exactly one of the two pointer fields is non-nil.
type ItemInfo struct {
	Path     *PathInfo
	Contents *IndexContentsListItem
}

// Level returns the hierarchy level regardless of which variant is set.
func (i ItemInfo) Level() int {
	if i.Path != nil {
		return i.Path.Level
	}
	return i.Contents.Hierarchy
}

// TablePath returns the table path regardless of which variant is set.
func (i ItemInfo) TablePath() TablePath {
	if i.Path != nil {
		return i.Path.TablePath
	}
	return i.Contents.TablePath()
}

// ContentChange drives the three-way merge outcome for a page update.
// Base is a pointer because a missing base tag is a distinguished condition
// (BASE_MISSING), not the empty string.
type ContentChange struct {
	Base   *string
	Server string
	Local  string
}

// NavlinkChange records an update to a row's navlink.
type NavlinkChange struct {
	Old Navlink
	New Navlink
}

// Kind classifies the Action tagged union.
type Kind int

const (
	KindCreate Kind = iota
	KindNoop
	KindUpdate
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindNoop:
		return "noop"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Role classifies what an Action operates on.
type Role int

const (
	RolePage Role = iota
	RoleGroup
	RoleExternalRef
)

func (r Role) String() string {
	switch r {
	case RolePage:
		return "page"
	case RoleGroup:
		return "group"
	case RoleExternalRef:
		return "external_ref"
	default:
		return "unknown"
	}
}

// Action is the single sum type for all per-item reconciliation actions: one
// tagged union rather than a class per role times per verb. Group and
// external-ref variants carry no content.
type Action struct {
	Kind Kind
	Role Role

	Level int
	Path  TablePath

	// Create
	NavlinkTitle  string
	NavlinkHidden bool
	Content       string // page content, or external ref target for RoleExternalRef create

	// Noop / Delete
	Navlink Navlink

	// Update
	NavlinkChange *NavlinkChange
	ContentChange *ContentChange // page update only
}

func (a Action) String() string {
	return fmt.Sprintf("%s %s level=%d path=%s", a.Kind, a.Role, a.Level, a.Path)
}

// IndexAction mirrors Action but for the single top-level index page, which
// has no level/path/role and never deletes.
type IndexAction struct {
	Kind    Kind // Create, Noop, or Update
	Title   string
	Content string
	URL     string
	OldContent string
}

// Result is the outcome of executing an Action or IndexAction.
type Result string

const (
	ResultSuccess Result = "SUCCESS"
	ResultSkip    Result = "SKIP"
	ResultFail    Result = "FAIL"
)

// ActionReport is emitted per executed action.
type ActionReport struct {
	TableRow *TableRow
	Location string
	Result   Result
	Reason   string
}

// Page is server-side content for a single topic.
type Page struct {
	URL     string
	Content string
}

// IndexFile is the local index.md content.
type IndexFile struct {
	Title   string
	Content *string
}

// Index bundles the server and local views of the top-level index page.
type Index struct {
	Server *Page
	Local  IndexFile
	Name   string
}

// DiffSummary reports the files changed between two git refs.
type DiffSummary struct {
	ChangedFiles []string
}

// Problem is a checker finding.
type Problem struct {
	Path        string
	Description string
}

// PullRequestAction mirrors the outcome of opening/closing/updating a PR.
type PullRequestAction string

const (
	PullRequestOpened  PullRequestAction = "OPENED"
	PullRequestClosed  PullRequestAction = "CLOSED"
	PullRequestUpdated PullRequestAction = "UPDATED"
	PullRequestNone    PullRequestAction = "NONE"
)

// ReconcileOutputs is the structured output of a reconcile run.
type ReconcileOutputs struct {
	IndexURL         string
	Topics           map[string]Result
	DocumentationTag string
}

// MigrateOutputs is the structured output of a migrate run.
type MigrateOutputs struct {
	Action         PullRequestAction
	PullRequestURL string
}
