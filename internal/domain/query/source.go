package query

import "strings"

// SourceKind identifies a source expression node.
type SourceKind int

// Source node kinds.
const (
	SourceAll SourceKind = iota
	SourceFolder
	SourceTag
	SourceLink
	SourcePath
	SourceAnd
	SourceOr
	SourceNot
)

// Source selects the documents a query draws from. The zero value selects every document.
type Source struct {
	kind     SourceKind
	value    string
	children []Source
}

// AllDocuments selects the whole corpus.
func AllDocuments() Source { return Source{kind: SourceAll} }

// Folder selects documents under the folder, recursively.
func Folder(p string) Source {
	return Source{kind: SourceFolder, value: strings.Trim(p, "/")}
}

// Tag selects documents carrying the tag or one of its subtags. A leading '#' is optional.
func Tag(t string) Source {
	return Source{kind: SourceTag, value: strings.TrimPrefix(t, "#")}
}

// LinkedTo selects documents linking to target. An empty target means the querying document.
func LinkedTo(target string) Source { return Source{kind: SourceLink, value: target} }

// Path selects exactly one document.
func Path(p string) Source { return Source{kind: SourcePath, value: p} }

// And intersects two sources.
func And(a, b Source) Source { return Source{kind: SourceAnd, children: []Source{a, b}} }

// Or unites two sources.
func Or(a, b Source) Source { return Source{kind: SourceOr, children: []Source{a, b}} }

// Negate selects every document not selected by a.
func Negate(a Source) Source { return Source{kind: SourceNot, children: []Source{a}} }

// Kind returns the node kind.
func (s Source) Kind() SourceKind { return s.kind }

// Value returns the folder, tag, link target or path.
func (s Source) Value() string { return s.value }

// Children returns the operands of and/or/not nodes.
func (s Source) Children() []Source { return s.children }

func (s Source) String() string {
	switch s.kind {
	case SourceFolder:
		return `"` + s.value + `"`
	case SourceTag:
		return "#" + s.value
	case SourceLink:
		return "[[" + s.value + "]]"
	case SourcePath:
		return `"` + s.value + `"`
	case SourceAnd:
		return "(" + s.children[0].String() + " and " + s.children[1].String() + ")"
	case SourceOr:
		return "(" + s.children[0].String() + " or " + s.children[1].String() + ")"
	case SourceNot:
		return "-" + s.children[0].String()
	default:
		return "*"
	}
}
