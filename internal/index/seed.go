package index

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/livetable/internal/domain/document"
	"github.com/kailas-cloud/livetable/internal/domain/literal"
)

// seedFile is the YAML layout of a corpus fixture.
type seedFile struct {
	Documents []seedDocument `yaml:"documents"`
}

type seedDocument struct {
	Path     string         `yaml:"path"`
	Tags     []string       `yaml:"tags"`
	Outlinks []string       `yaml:"outlinks"`
	Size     int64          `yaml:"size"`
	CTime    time.Time      `yaml:"ctime"`
	MTime    time.Time      `yaml:"mtime"`
	Fields   map[string]any `yaml:"fields"`
}

// DecodeSeed reads already-indexed documents from YAML.
func DecodeSeed(r io.Reader) ([]document.Document, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	docs := make([]document.Document, 0, len(f.Documents))
	for i, sd := range f.Documents {
		fields := make(map[string]literal.Literal, len(sd.Fields))
		for k, v := range sd.Fields {
			fields[k] = literal.FromAny(v)
		}
		d, err := document.New(sd.Path, fields, document.Meta{
			Tags:     sd.Tags,
			Outlinks: sd.Outlinks,
			Size:     sd.Size,
			CTime:    sd.CTime,
			MTime:    sd.MTime,
		})
		if err != nil {
			return nil, fmt.Errorf("seed document %d: %w", i, err)
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// LoadSeed reads a YAML corpus fixture from disk.
func LoadSeed(path string) ([]document.Document, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open seed %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return DecodeSeed(f)
}
