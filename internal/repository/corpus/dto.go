package corpus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/livetable/internal/domain/document"
	"github.com/kailas-cloud/livetable/internal/domain/literal"
)

// documentJSON is the stored shape of one document.
type documentJSON struct {
	Path     string                     `json:"path"`
	Fields   map[string]literal.Literal `json:"fields,omitempty"`
	Tags     []string                   `json:"tags,omitempty"`
	Outlinks []string                   `json:"outlinks,omitempty"`
	Size     int64                      `json:"size,omitempty"`
	CTime    *time.Time                 `json:"ctime,omitempty"`
	MTime    *time.Time                 `json:"mtime,omitempty"`
}

func encodeDocument(d *document.Document) ([]byte, error) {
	meta := d.Meta()
	dto := documentJSON{
		Path:     d.Path(),
		Fields:   d.Fields(),
		Tags:     meta.Tags,
		Outlinks: meta.Outlinks,
		Size:     meta.Size,
		CTime:    timePtr(meta.CTime),
		MTime:    timePtr(meta.MTime),
	}
	data, err := json.Marshal(dto)
	if err != nil {
		return nil, fmt.Errorf("marshal document %s: %w", d.Path(), err)
	}
	return data, nil
}

func decodeDocument(data []byte) (document.Document, error) {
	var dto documentJSON
	if err := json.Unmarshal(data, &dto); err != nil {
		return document.Document{}, fmt.Errorf("unmarshal document: %w", err)
	}
	meta := document.Meta{
		Tags:     dto.Tags,
		Outlinks: dto.Outlinks,
		Size:     dto.Size,
	}
	if dto.CTime != nil {
		meta.CTime = *dto.CTime
	}
	if dto.MTime != nil {
		meta.MTime = *dto.MTime
	}
	return document.Reconstruct(dto.Path, dto.Fields, meta), nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
