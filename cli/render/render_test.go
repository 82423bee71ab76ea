package render

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{"json lowercase", "json", FormatJSON, false},
		{"json uppercase", "JSON", FormatJSON, false},
		{"table", "table", FormatTable, false},
		{"yaml", "yaml", FormatYAML, false},
		{"empty", "", "", false},
		{"invalid", "xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}

	if _, err := ParseFormat("csv"); err == nil || !strings.Contains(err.Error(), "json, table, or yaml") {
		t.Errorf("error should mention valid formats, got: %v", err)
	}
}

type games struct{ names []string }

func (g games) Columns() []string { return []string{"rank", "name"} }

func (g games) Rows() [][]string {
	rows := make([][]string, len(g.names))
	for i, n := range g.names {
		rows[i] = []string{string(rune('1' + i)), n}
	}
	return rows
}

func TestRenderer_Table(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, true, &buf)

	if err := r.Render(games{names: []string{"Monday 1st game.jpg", "Monday 2nd game.jpg"}}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q, want header + 2 rows", lines)
	}
	if !strings.HasPrefix(lines[0], "RANK") || !strings.Contains(lines[0], "NAME") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[2], "Monday 2nd game.jpg") {
		t.Errorf("row = %q", lines[2])
	}
	// Columns are aligned by tabwriter.
	if strings.Index(lines[1], "Monday") != strings.Index(lines[0], "NAME") {
		t.Errorf("columns not aligned:\n%s", buf.String())
	}
}

func TestRenderer_Table_Empty(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, true, &buf)
	if err := r.Render(games{}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "(no results)") {
		t.Errorf("got %q", buf.String())
	}
}

func TestRenderer_Table_FallsBackToYAML(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, true, &buf)
	if err := r.Render(map[string]string{"version": "0.3.0"}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if got := buf.String(); !strings.Contains(got, "version: 0.3.0") {
		t.Errorf("got %q", got)
	}
}

func TestRenderer_JSONAndYAML(t *testing.T) {
	data := map[string]string{"key": "value"}

	var js bytes.Buffer
	if err := NewRendererWithWriter(FormatJSON, false, &js).Render(data); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(js.String(), `"key": "value"`) {
		t.Errorf("json = %s", js.String())
	}

	var ym bytes.Buffer
	if err := NewRendererWithWriter(FormatYAML, false, &ym).Render(data); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !strings.Contains(ym.String(), "key: value") {
		t.Errorf("yaml = %s", ym.String())
	}
}

func TestRenderer_NoColorDoesNotAffectJSON(t *testing.T) {
	var a, b bytes.Buffer
	data := map[string]int{"rank": 3}
	if err := NewRendererWithWriter(FormatJSON, false, &a).Render(data); err != nil {
		t.Fatal(err)
	}
	if err := NewRendererWithWriter(FormatJSON, true, &b).Render(data); err != nil {
		t.Fatal(err)
	}
	if a.String() != b.String() {
		t.Error("--no-color should not affect JSON output")
	}
}

func TestDefaultFormat_NonTerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if got := DefaultFormat(f); got != FormatJSON {
		t.Errorf("DefaultFormat(file) = %q, want json", got)
	}
}

func TestRenderTUI_Unsupported(t *testing.T) {
	r := NewRendererWithWriter(FormatJSON, false, &bytes.Buffer{})
	if err := r.RenderTUI("version", nil); err == nil {
		t.Error("expected error for unsupported TUI view")
	}
}
