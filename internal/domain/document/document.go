package document

import (
	"fmt"
	"maps"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/kailas-cloud/livetable/internal/domain/literal"
)

// MaxPathLength is the maximum document path length in bytes.
const MaxPathLength = 1024

// FileField is the implicit field exposing document metadata to expressions.
const FileField = "file"

// Meta holds the metadata the indexer extracts besides structured fields.
type Meta struct {
	Tags     []string
	Outlinks []string
	Size     int64
	CTime    time.Time
	MTime    time.Time
}

// Document is an indexed corpus document (immutable value object).
type Document struct {
	path   string
	fields map[string]literal.Literal
	meta   Meta
}

// New validates and creates a Document.
// Path: relative, slash separated, no "." or ".." segments.
func New(p string, fields map[string]literal.Literal, meta Meta) (Document, error) {
	if p == "" {
		return Document{}, fmt.Errorf("document path is required")
	}
	if len(p) > MaxPathLength {
		return Document{}, fmt.Errorf("document path too long (max %d)", MaxPathLength)
	}
	if strings.HasPrefix(p, "/") || path.Clean(p) != p || p == ".." || strings.HasPrefix(p, "../") {
		return Document{}, fmt.Errorf("document path %q must be relative and clean", p)
	}
	if _, ok := fields[FileField]; ok {
		return Document{}, fmt.Errorf("field name %q is reserved", FileField)
	}

	meta.Tags = normalizeTags(meta.Tags)
	meta.Outlinks = slices.Clone(meta.Outlinks)
	return Document{path: p, fields: maps.Clone(fields), meta: meta}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(p string, fields map[string]literal.Literal, meta Meta) Document {
	return Document{path: p, fields: fields, meta: meta}
}

// Path returns the document path, its identity in the corpus.
func (d *Document) Path() string { return d.path }

// Fields returns the structured fields.
func (d *Document) Fields() map[string]literal.Literal { return d.fields }

// Field returns one structured field.
func (d *Document) Field(name string) (literal.Literal, bool) {
	v, ok := d.fields[name]
	return v, ok
}

// Meta returns the extracted metadata.
func (d *Document) Meta() Meta { return d.meta }

// Tags returns the document tags without leading '#'.
func (d *Document) Tags() []string { return d.meta.Tags }

// Outlinks returns the paths this document links to.
func (d *Document) Outlinks() []string { return d.meta.Outlinks }

// Folder returns the parent folder, "" for top-level documents.
func (d *Document) Folder() string {
	dir := path.Dir(d.path)
	if dir == "." {
		return ""
	}
	return dir
}

// Name returns the base name without extension.
func (d *Document) Name() string {
	return literal.Link{Path: d.path}.Name()
}

// HasTag reports whether the document carries tag or one of its subtags (tag/child).
func (d *Document) HasTag(tag string) bool {
	tag = strings.TrimPrefix(tag, "#")
	for _, t := range d.meta.Tags {
		if t == tag || strings.HasPrefix(t, tag+"/") {
			return true
		}
	}
	return false
}

// LinksTo reports whether the document links to target.
func (d *Document) LinksTo(target string) bool {
	return slices.Contains(d.meta.Outlinks, target)
}

// FileLiteral returns the implicit "file" mapping.
func (d *Document) FileLiteral() literal.Literal {
	links := make([]literal.Literal, len(d.meta.Outlinks))
	for i, l := range d.meta.Outlinks {
		links[i] = literal.LinkTo(l)
	}
	return literal.Mapping(map[string]literal.Literal{
		"path":     literal.String(d.path),
		"name":     literal.String(d.Name()),
		"folder":   literal.String(d.Folder()),
		"ext":      literal.String(strings.TrimPrefix(path.Ext(d.path), ".")),
		"size":     literal.Int(d.meta.Size),
		"tags":     literal.Strings(d.meta.Tags),
		"outlinks": literal.List(links...),
		"link":     literal.LinkTo(d.path),
		"ctime":    timeLiteral(d.meta.CTime),
		"mtime":    timeLiteral(d.meta.MTime),
	})
}

// Literal returns the evaluation context of the document: its fields plus "file".
func (d *Document) Literal() literal.Literal {
	m := make(map[string]literal.Literal, len(d.fields)+1)
	for k, v := range d.fields {
		m[k] = v
	}
	m[FileField] = d.FileLiteral()
	return literal.Mapping(m)
}

func timeLiteral(t time.Time) literal.Literal {
	if t.IsZero() {
		return literal.Null()
	}
	return literal.DateTime(t)
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimPrefix(strings.TrimSpace(t), "#")
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}
