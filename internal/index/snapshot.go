// Package index provides the versioned corpus index boundary: immutable snapshots,
// change notification and an in-memory implementation.
package index

import (
	"slices"
	"strings"

	"github.com/kailas-cloud/livetable/internal/domain"
	"github.com/kailas-cloud/livetable/internal/domain/document"
	"github.com/kailas-cloud/livetable/internal/domain/query"
)

// Snapshot is an immutable view of the corpus at one index version.
// It is safe for concurrent readers.
type Snapshot struct {
	version uint64
	docs    []document.Document
	byPath  map[string]int
	byName  map[string][]int
}

// NewSnapshot builds a snapshot ordered by path. Later documents with a duplicate path win.
func NewSnapshot(version uint64, docs []document.Document) *Snapshot {
	latest := make(map[string]document.Document, len(docs))
	for _, d := range docs {
		latest[d.Path()] = d
	}

	s := &Snapshot{
		version: version,
		docs:    make([]document.Document, 0, len(latest)),
		byPath:  make(map[string]int, len(latest)),
		byName:  make(map[string][]int),
	}
	for _, d := range latest {
		s.docs = append(s.docs, d)
	}
	slices.SortFunc(s.docs, func(a, b document.Document) int {
		return strings.Compare(a.Path(), b.Path())
	})

	for i := range s.docs {
		d := &s.docs[i]
		s.byPath[d.Path()] = i
		s.byName[d.Name()] = append(s.byName[d.Name()], i)
	}
	return s
}

// Version returns the index version this snapshot reflects.
func (s *Snapshot) Version() uint64 { return s.version }

// Len returns the number of documents.
func (s *Snapshot) Len() int { return len(s.docs) }

// Documents returns every document in path order.
func (s *Snapshot) Documents() []document.Document { return slices.Clone(s.docs) }

// Document looks up a document by exact path.
func (s *Snapshot) Document(path string) (document.Document, bool) {
	i, ok := s.byPath[path]
	if !ok {
		return document.Document{}, false
	}
	return s.docs[i], true
}

// ResolveLink maps a link target to a document path: exact path, path with ".md",
// then a unique base-name match. Unresolvable targets are returned unchanged.
func (s *Snapshot) ResolveLink(target string) (string, bool) {
	if _, ok := s.byPath[target]; ok {
		return target, true
	}
	if _, ok := s.byPath[target+".md"]; ok {
		return target + ".md", true
	}
	if idx := s.byName[target]; len(idx) == 1 {
		return s.docs[idx[0]].Path(), true
	}
	return target, false
}

// ResolveSource returns the documents selected by src, in path order.
// sourcePath is the path of the querying document, used by self links.
func (s *Snapshot) ResolveSource(src query.Source, sourcePath string) ([]document.Document, error) {
	set, err := s.resolve(src, sourcePath)
	if err != nil {
		return nil, err
	}
	out := make([]document.Document, 0, len(s.docs))
	for i, in := range set {
		if in {
			out = append(out, s.docs[i])
		}
	}
	return out, nil
}

// linksTo reports whether any outlink of d resolves to path.
func (s *Snapshot) linksTo(d *document.Document, path string) bool {
	for _, o := range d.Outlinks() {
		if r, _ := s.ResolveLink(o); r == path {
			return true
		}
	}
	return false
}

func (s *Snapshot) resolve(src query.Source, sourcePath string) ([]bool, error) {
	set := make([]bool, len(s.docs))

	switch src.Kind() {
	case query.SourceAll:
		for i := range set {
			set[i] = true
		}
	case query.SourceFolder:
		prefix := src.Value()
		for i := range s.docs {
			set[i] = prefix == "" || strings.HasPrefix(s.docs[i].Path(), prefix+"/")
		}
	case query.SourceTag:
		if src.Value() == "" {
			return nil, domain.NewResolutionError("tag source is empty")
		}
		for i := range s.docs {
			set[i] = s.docs[i].HasTag(src.Value())
		}
	case query.SourceLink:
		target := src.Value()
		if target == "" {
			target = sourcePath
		}
		if target == "" {
			return nil, domain.NewResolutionError("link source [[]] requires the path of the querying document")
		}
		resolved, _ := s.ResolveLink(target)
		for i := range s.docs {
			set[i] = s.linksTo(&s.docs[i], resolved)
		}
	case query.SourcePath:
		resolved, ok := s.ResolveLink(src.Value())
		if !ok {
			return nil, domain.NewResolutionError("no document at %q", src.Value())
		}
		set[s.byPath[resolved]] = true
	case query.SourceAnd, query.SourceOr:
		children := src.Children()
		left, err := s.resolve(children[0], sourcePath)
		if err != nil {
			return nil, err
		}
		right, err := s.resolve(children[1], sourcePath)
		if err != nil {
			return nil, err
		}
		for i := range set {
			if src.Kind() == query.SourceAnd {
				set[i] = left[i] && right[i]
			} else {
				set[i] = left[i] || right[i]
			}
		}
	case query.SourceNot:
		inner, err := s.resolve(src.Children()[0], sourcePath)
		if err != nil {
			return nil, err
		}
		for i := range set {
			set[i] = !inner[i]
		}
	default:
		return nil, domain.NewResolutionError("unsupported source %s", src)
	}
	return set, nil
}
