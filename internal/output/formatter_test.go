package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type artifactRow struct {
	Artifact string `json:"artifact" toon:"artifact"`
	Classes  int    `json:"classes" toon:"classes"`
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"text", FormatText},
		{"TEXT", FormatText},
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"markdown", FormatMarkdown},
		{"md", FormatMarkdown},
		{"toon", FormatTOON},
		{"TOON", FormatTOON},
		{"", FormatText},
		{"yaml", FormatText},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseFormat(tt.input); got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	f, err := NewFormatter(FormatTOON, "", true)
	if err != nil {
		t.Fatalf("NewFormatter() error: %v", err)
	}
	defer f.Close()

	if f.format != FormatTOON {
		t.Errorf("format = %q", f.format)
	}
	if !f.colored {
		t.Error("stdout formatter should keep color")
	}
	if f.writer != os.Stdout {
		t.Error("writer should be stdout")
	}
}

func TestNewFormatterWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")

	f, err := NewFormatter(FormatJSON, path, true)
	if err != nil {
		t.Fatalf("NewFormatter() error: %v", err)
	}
	if f.colored {
		t.Error("file output should never be colored")
	}
	table := NewTable("", []string{"Artifact"}, nil, nil, []artifactRow{{"git.hpi", 42}})
	if err := f.Output(table); err != nil {
		t.Fatalf("Output() error: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var rows []artifactRow
	if err := json.Unmarshal(data, &rows); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, data)
	}
	if len(rows) != 1 || rows[0].Artifact != "git.hpi" || rows[0].Classes != 42 {
		t.Errorf("rows = %+v", rows)
	}
}

func TestNewFormatterInvalidPath(t *testing.T) {
	_, err := NewFormatter(FormatText, filepath.Join(t.TempDir(), "missing", "out.txt"), false)
	if err == nil {
		t.Error("expected error for a path in a missing directory")
	}
}

func TestTableRenderText(t *testing.T) {
	tests := []struct {
		name  string
		table *Table
		want  []string
	}{
		{
			name: "with_title",
			table: NewTable("By Package",
				[]string{"Package", "Unused"},
				[][]string{{"hudson.model", "12"}, {"jenkins.util", "3"}},
				nil, nil),
			want: []string{"By Package", "==========", "PACKAGE", "UNUSED", "hudson.model", "12"},
		},
		{
			name: "with_footer",
			table: NewTable("Methods",
				[]string{"Signature"},
				[][]string{{"void hudson.model.Job.poll()"}},
				[]string{"42"}, nil),
			want: []string{"SIGNATURE", "void hudson.model.Job.poll()", "42"},
		},
		{
			name:  "empty_without_title",
			table: NewTable("", []string{"Artifact"}, nil, nil, nil),
			want:  []string{"ARTIFACT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.table.RenderText(&buf, false); err != nil {
				t.Fatalf("RenderText() error: %v", err)
			}
			out := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("missing %q in:\n%s", want, out)
				}
			}
		})
	}
}

func TestTableRenderMarkdown(t *testing.T) {
	table := NewTable("Abandoned Artifacts",
		[]string{"Artifact", "Error"},
		[][]string{{"broken.hpi", "zip: not a valid zip file"}},
		[]string{"1", ""}, nil)

	var buf bytes.Buffer
	if err := table.RenderMarkdown(&buf); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}

	want := "## Abandoned Artifacts\n\n" +
		"| Artifact | Error |\n" +
		"| --- | --- |\n" +
		"| broken.hpi | zip: not a valid zip file |\n" +
		"| 1 |  |\n\n"
	if buf.String() != want {
		t.Errorf("RenderMarkdown() =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestTableRenderData(t *testing.T) {
	t.Run("rows", func(t *testing.T) {
		rows := [][]string{{"git.hpi", "42"}}
		table := NewTable("", []string{"Artifact", "Classes"}, rows, nil, nil)
		got, ok := table.RenderData().([][]string)
		if !ok || len(got) != 1 || got[0][0] != "git.hpi" {
			t.Errorf("RenderData() = %v", table.RenderData())
		}
	})

	t.Run("wrapped_data", func(t *testing.T) {
		data := []artifactRow{{"git.hpi", 42}}
		table := NewTable("", []string{"Artifact"}, nil, nil, data)
		if got, ok := table.RenderData().([]artifactRow); !ok || len(got) != 1 {
			t.Errorf("RenderData() = %v", table.RenderData())
		}
	})
}

func TestNoteRender(t *testing.T) {
	n := Note("2 artifact(s) skipped")

	var text bytes.Buffer
	if err := n.RenderText(&text, true); err != nil {
		t.Fatal(err)
	}
	if text.String() != "2 artifact(s) skipped\n" {
		t.Errorf("text = %q", text.String())
	}

	var md bytes.Buffer
	if err := n.RenderMarkdown(&md); err != nil {
		t.Fatal(err)
	}
	if md.String() != "2 artifact(s) skipped\n\n" {
		t.Errorf("markdown = %q", md.String())
	}

	if n.RenderData() != "2 artifact(s) skipped" {
		t.Errorf("RenderData() = %v", n.RenderData())
	}
}

func TestReportRender(t *testing.T) {
	r := &Report{
		Title: "Quarantined Artifacts",
		Parts: []Renderable{
			Note("1 artifact(s) skipped"),
			NewTable("", []string{"Artifact"}, [][]string{{"broken.hpi"}}, nil, nil),
		},
	}

	var text bytes.Buffer
	if err := r.RenderText(&text, false); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Quarantined Artifacts\n=====================", "1 artifact(s) skipped", "broken.hpi"} {
		if !strings.Contains(text.String(), want) {
			t.Errorf("text missing %q in:\n%s", want, text.String())
		}
	}

	var md bytes.Buffer
	if err := r.RenderMarkdown(&md); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(md.String(), "# Quarantined Artifacts\n\n1 artifact(s) skipped\n\n| Artifact |") {
		t.Errorf("markdown = %q", md.String())
	}

	data, ok := r.RenderData().(map[string]any)
	if !ok {
		t.Fatalf("RenderData() type = %T", r.RenderData())
	}
	if data["title"] != "Quarantined Artifacts" || len(data["parts"].([]any)) != 2 {
		t.Errorf("RenderData() = %v", data)
	}

	r.Data = []string{"broken.hpi"}
	if got, ok := r.RenderData().([]string); !ok || got[0] != "broken.hpi" {
		t.Errorf("RenderData() with Data = %v", r.RenderData())
	}
}

func TestFormatterOutput(t *testing.T) {
	table := NewTable("Plugins", []string{"Artifact", "Classes"},
		[][]string{{"git.hpi", "42"}}, nil, []artifactRow{{"git.hpi", 42}})

	tests := []struct {
		format Format
		want   []string
	}{
		{FormatText, []string{"Plugins", "ARTIFACT", "git.hpi"}},
		{FormatJSON, []string{`"artifact": "git.hpi"`, `"classes": 42`}},
		{FormatMarkdown, []string{"## Plugins", "| git.hpi | 42 |"}},
		{FormatTOON, []string{"artifact", "git.hpi", "42"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			f := &Formatter{format: tt.format, writer: &buf}
			if err := f.Output(table); err != nil {
				t.Fatalf("Output() error: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("missing %q in:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestMarshal(t *testing.T) {
	row := artifactRow{"git.hpi", 42}

	js, err := Marshal(row, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if !json.Valid([]byte(js)) {
		t.Errorf("JSON output invalid: %s", js)
	}

	md, err := Marshal(row, FormatMarkdown)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(md, "```\n") || !strings.HasSuffix(md, "\n```") {
		t.Errorf("markdown output not fenced: %q", md)
	}

	tn, err := Marshal(row, FormatTOON)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(tn, "git.hpi") || strings.HasPrefix(tn, "{") {
		t.Errorf("TOON output = %q", tn)
	}
}
