// Package result holds the output of table query execution.
package result

import (
	"slices"

	"github.com/kailas-cloud/livetable/internal/domain/literal"
)

// IDKind says what the identifier of a table entry stands for.
type IDKind string

// Identifier meanings.
const (
	IDPath  IDKind = "path"
	IDGroup IDKind = "group"
)

// IDMeaning describes the identifier column.
type IDMeaning struct {
	kind IDKind
	name string
}

// PathID marks identifiers as document paths.
func PathID() IDMeaning { return IDMeaning{kind: IDPath} }

// GroupID marks identifiers as keys of the named grouping.
func GroupID(name string) IDMeaning { return IDMeaning{kind: IDGroup, name: name} }

// Kind returns path or group.
func (m IDMeaning) Kind() IDKind { return m.kind }

// Name returns the group name; empty for paths.
func (m IDMeaning) Name() string { return m.name }

// Entry is one table row: the identifier plus one value per column.
type Entry struct {
	id     literal.Literal
	values []literal.Literal
}

// NewEntry creates a row.
func NewEntry(id literal.Literal, values []literal.Literal) Entry {
	return Entry{id: id, values: values}
}

// ID returns the document link or group key.
func (e Entry) ID() literal.Literal { return e.id }

// Values returns the column values in heading order.
func (e Entry) Values() []literal.Literal { return slices.Clone(e.values) }

// Table is the result of executing a table query.
type Table struct {
	names     []string
	data      []Entry
	idMeaning IDMeaning
}

// NewTable creates a table result.
func NewTable(names []string, data []Entry, idMeaning IDMeaning) Table {
	return Table{names: names, data: data, idMeaning: idMeaning}
}

// Names returns the column headings, excluding the identifier.
func (t Table) Names() []string { return slices.Clone(t.names) }

// Data returns the rows.
func (t Table) Data() []Entry { return slices.Clone(t.data) }

// Len returns the number of rows.
func (t Table) Len() int { return len(t.data) }

// IDMeaning returns what entry identifiers stand for.
func (t Table) IDMeaning() IDMeaning { return t.idMeaning }

// Fold returns headings and rows with the identifier as leading column when showID is set.
// idHeading heads the column for path identifiers; groups use their own name.
func (t Table) Fold(showID bool, idHeading string) ([]string, [][]literal.Literal) {
	if !showID {
		rows := make([][]literal.Literal, len(t.data))
		for i, e := range t.data {
			rows[i] = slices.Clone(e.values)
		}
		return t.Names(), rows
	}

	heading := idHeading
	if t.idMeaning.kind == IDGroup {
		heading = t.idMeaning.name
	}

	rows := make([][]literal.Literal, len(t.data))
	for i, e := range t.data {
		row := make([]literal.Literal, 0, len(e.values)+1)
		row = append(row, e.id)
		rows[i] = append(row, e.values...)
	}
	return append([]string{heading}, t.names...), rows
}
