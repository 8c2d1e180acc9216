package wire

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/livetable/internal/domain/document"
	"github.com/kailas-cloud/livetable/internal/domain/literal"
	domview "github.com/kailas-cloud/livetable/internal/domain/view"
)

// State is the rendered form of a table view state.
type State struct {
	Status   string   `json:"status"`
	Version  uint64   `json:"version,omitempty"`
	Error    string   `json:"error,omitempty"`
	Notice   string   `json:"notice,omitempty"`
	Headings []string `json:"headings,omitempty"`
	Rows     [][]Cell `json:"rows"`
}

// Cell carries a value together with its display string.
type Cell struct {
	Value   literal.Literal `json:"value"`
	Display string          `json:"display"`
}

// FromState renders st with the notice rules of settings.
func FromState(st domview.State, settings domview.Settings) State {
	out := State{
		Status:  string(st.Status()),
		Version: st.Version(),
		Error:   st.Error(),
		Notice:  settings.Notice(st),
	}
	if st.Status() != domview.StatusReady {
		return out
	}

	out.Headings = st.Headings()
	values := st.Values()
	out.Rows = make([][]Cell, len(values))
	for i, row := range values {
		cells := make([]Cell, len(row))
		for j, v := range row {
			cells[j] = Cell{Value: v, Display: literal.Display(v)}
		}
		out.Rows[i] = cells
	}
	return out
}

// FixedTable is a table whose contents are supplied by the caller.
type FixedTable struct {
	Headings []string            `json:"headings"`
	Values   [][]literal.Literal `json:"values"`
}

// Document is the API form of an indexed document.
type Document struct {
	Path     string                     `json:"path"`
	Fields   map[string]literal.Literal `json:"fields,omitempty"`
	Tags     []string                   `json:"tags,omitempty"`
	Outlinks []string                   `json:"outlinks,omitempty"`
	Size     int64                      `json:"size,omitempty"`
	CTime    *time.Time                 `json:"ctime,omitempty"`
	MTime    *time.Time                 `json:"mtime,omitempty"`
}

// ToDomain validates d.
func (d *Document) ToDomain() (document.Document, error) {
	meta := document.Meta{
		Tags:     d.Tags,
		Outlinks: d.Outlinks,
		Size:     d.Size,
	}
	if d.CTime != nil {
		meta.CTime = *d.CTime
	}
	if d.MTime != nil {
		meta.MTime = *d.MTime
	}
	doc, err := document.New(d.Path, d.Fields, meta)
	if err != nil {
		return document.Document{}, fmt.Errorf("document %q: %w", d.Path, err)
	}
	return doc, nil
}
