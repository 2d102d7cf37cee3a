package models

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func sampleReport() *UnusedReport {
	r := NewUnusedReport("run-42")
	r.AddMethod(MethodKey{Class: "hudson/model/Job", Name: "poll", Descriptor: "()V"})
	r.AddMethod(MethodKey{Class: "hudson/model/Job", Name: "<init>", Descriptor: "(Ljava/lang/String;)V"})
	r.AddMethod(MethodKey{Class: "hudson/Util", Name: "rawEncode", Descriptor: "(Ljava/lang/String;)Ljava/lang/String;"})
	r.AddFailure(ArtifactFailure{Artifact: "broken.hpi", Error: "zip: not a valid zip file", Quarantined: true})
	r.Summary.CandidatesSeeded = 8
	r.Summary.ArtifactsAnalyzed = 5
	r.Summary.Duration = 1500 * time.Millisecond
	r.TopN = 1
	return r
}

func TestUnusedReport_RenderText(t *testing.T) {
	var buf bytes.Buffer
	if err := sampleReport().RenderText(&buf, false); err != nil {
		t.Fatalf("RenderText() error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Unused Core Methods (run run-42)",
		"Candidates:  8",
		"Unused:      3",
		"Failed:      1 artifacts",
		"Duration:    1.5s",
		"hudson.model",
		"void hudson.model.Job.poll()",
		"hudson.model.Job(String)",
		"String hudson.Util.rawEncode(String)",
		"broken.hpi",
		"quarantined",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestUnusedReport_RenderTextTopN(t *testing.T) {
	var buf bytes.Buffer
	if err := sampleReport().RenderText(&buf, false); err != nil {
		t.Fatal(err)
	}
	// TopN = 1 keeps only hudson.model (2) in the package table; hudson (1)
	// still appears inside signatures.
	pkgTable := buf.String()
	start := strings.Index(pkgTable, "By Package")
	if start < 0 {
		t.Fatalf("package table not found in:\n%s", pkgTable)
	}
	section := pkgTable[start:]
	if end := strings.Index(section, "Methods\n"); end > 0 {
		section = section[:end]
	}
	if !strings.Contains(section, "hudson.model") {
		t.Errorf("top package missing:\n%s", section)
	}
	if strings.Contains(section, "hudson ") {
		t.Errorf("package table should be truncated:\n%s", section)
	}
}

func TestUnusedReport_RenderTextEmpty(t *testing.T) {
	r := NewUnusedReport("empty")
	var buf bytes.Buffer
	if err := r.RenderText(&buf, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No unused methods found") {
		t.Errorf("output =\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "Abandoned") {
		t.Error("no failures table expected")
	}
}

func TestUnusedReport_RenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := sampleReport().RenderMarkdown(&buf); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Unused Core Methods\n",
		"**Run:** `run-42`",
		"| Candidates | 8 |",
		"| hudson.model | 2 |",
		"| void hudson.model.Job.poll() |",
		"## Abandoned Artifacts",
		"| broken.hpi | quarantined | zip: not a valid zip file |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestUnusedReport_RenderData(t *testing.T) {
	r := sampleReport()
	if got, ok := r.RenderData().(*UnusedReport); !ok || got != r {
		t.Errorf("RenderData() = %v", r.RenderData())
	}
}
