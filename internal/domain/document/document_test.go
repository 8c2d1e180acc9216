package document

import (
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/livetable/internal/domain/literal"
)

func TestNew_Valid(t *testing.T) {
	fields := map[string]literal.Literal{"status": literal.String("open")}
	meta := Meta{Tags: []string{"#project/alpha", "project/alpha", " todo "}, Outlinks: []string{"b.md"}, Size: 42}

	doc, err := New("notes/a.md", fields, meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Path() != "notes/a.md" {
		t.Errorf("Path() = %q", doc.Path())
	}
	if doc.Name() != "a" || doc.Folder() != "notes" {
		t.Errorf("Name() = %q, Folder() = %q", doc.Name(), doc.Folder())
	}
	if got := doc.Tags(); len(got) != 2 || got[0] != "project/alpha" || got[1] != "todo" {
		t.Errorf("Tags() = %v", got)
	}
	if !doc.HasTag("#project") || !doc.HasTag("project/alpha") || doc.HasTag("proj") {
		t.Error("HasTag() mismatch")
	}
	if !doc.LinksTo("b.md") || doc.LinksTo("c.md") {
		t.Error("LinksTo() mismatch")
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		fields map[string]literal.Literal
		want   string
	}{
		{"empty", "", nil, "required"},
		{"absolute", "/a.md", nil, "relative"},
		{"dot segments", "a/../b.md", nil, "clean"},
		{"too long", strings.Repeat("a", MaxPathLength+1), nil, "too long"},
		{"reserved field", "a.md", map[string]literal.Literal{"file": literal.Null()}, "reserved"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.path, tt.fields, Meta{})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestNew_ClonesFields(t *testing.T) {
	fields := map[string]literal.Literal{"k": literal.Number(1)}
	doc, _ := New("a.md", fields, Meta{})

	fields["k"] = literal.Number(999)

	v, _ := doc.Field("k")
	if n, _ := v.AsNumber(); n != 1 {
		t.Error("fields mutation leaked into document")
	}
}

func TestLiteral_IncludesFileMapping(t *testing.T) {
	mtime := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	doc, _ := New("x/B.md", map[string]literal.Literal{"size": literal.Number(7)}, Meta{Size: 200, MTime: mtime})

	ctx := doc.Literal()
	file, ok := ctx.Get("file")
	if !ok {
		t.Fatal("missing file mapping")
	}
	name, _ := file.Get("name")
	if literal.Display(name) != "B" {
		t.Errorf("file.name = %s", name)
	}
	size, _ := file.Get("size")
	if n, _ := size.AsNumber(); n != 200 {
		t.Errorf("file.size = %s", size)
	}
	ctime, _ := file.Get("ctime")
	if !ctime.IsNull() {
		t.Errorf("zero ctime should be null, got %s", ctime)
	}
	own, _ := ctx.Get("size")
	if n, _ := own.AsNumber(); n != 7 {
		t.Errorf("document field size = %s", own)
	}
}
