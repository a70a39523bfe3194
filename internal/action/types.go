// Package action implements the declarative action-tree model and parser
// (spec component C1, "ShadowJson").
package action

// Op is the tagged variant an EditOp carries.
type Op string

const (
	OpUpsert       Op = "upsert"
	OpDelete       Op = "delete"
	OpMatchReplace Op = "match_replace"
)

// Source is the tagged variant a ValueSource carries.
type Source string

const (
	SourceAttribute Source = "Attribute"
	SourceContents  Source = "Contents"
	SourceValue     Source = "Value"
)

// EditOp is one attribute or content edit operation.
type EditOp struct {
	Op    Op
	Val   string
	Match string
}

// AttrEdit is one edit.attrs entry, carrying the attribute name alongside
// its EditOp. Kept as an ordered slice (not a map) because spec.md §4.4
// point 3 requires attrs entries to apply "in insertion order" — a Go map
// does not preserve the JSON object's key order.
type AttrEdit struct {
	Name string
	EditOp
}

// EditSpec edits an element's attributes and/or inner content.
type EditSpec struct {
	Attrs   []AttrEdit
	Content *EditOp
}

// ValueSource names where a harvested value comes from.
type ValueSource struct {
	Source Source
	Name   string // attribute name; required when Source == SourceAttribute
}

// DataSpec harvests values from a matched element into the output document.
type DataSpec struct {
	// PathSet is false when Path was entirely absent from the JSON (as
	// opposed to present-and-empty, which means "root object" per
	// spec.md §9).
	PathSet bool
	Path    string
	Values  map[string]ValueSource
}

// Action is one node of the declarative transformation tree.
type Action struct {
	// Selector is the raw, parent-relative selector. Compiled to an
	// absolute selector by internal/selector before handler install.
	Selector string

	Hide   bool
	Delete bool

	Edit *EditSpec
	Data *DataSpec

	Append       []string
	Prepend      []string
	InsertBefore []string
	InsertAfter  []string

	Sub []*Action

	// Compiled is filled in by internal/selector.Compile; empty until then.
	Compiled string
}
