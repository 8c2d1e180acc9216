package table

import (
	"github.com/kailas-cloud/livetable/internal/domain/document"
	"github.com/kailas-cloud/livetable/internal/domain/query"
)

// Corpus is the read side of an index snapshot the engine evaluates against.
type Corpus interface {
	ResolveSource(src query.Source, sourcePath string) ([]document.Document, error)
	ResolveLink(target string) (string, bool)
	Document(path string) (document.Document, bool)
}
