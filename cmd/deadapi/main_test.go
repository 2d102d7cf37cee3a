package main

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/deadapi/pkg/classfile"
	"github.com/panbanda/deadapi/pkg/classfile/classfiletest"
)

func writeZip(t *testing.T, path string, files map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for name, data := range files {
		e, err := w.Create(name)
		require.NoError(t, err)
		_, err = e.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

type workspace struct {
	dir     string
	core    string
	plugins string
	config  string
}

// newWorkspace writes a core jar declaring hudson/Util.fixNull and
// hudson/Util.join, a plugin calling fixNull, an unreadable plugin and a
// config file pointing at them.
func newWorkspace(t *testing.T) workspace {
	t.Helper()
	dir := t.TempDir()
	ws := workspace{
		dir:     dir,
		core:    filepath.Join(dir, "jenkins-core.jar"),
		plugins: filepath.Join(dir, "plugins"),
		config:  filepath.Join(dir, "deadapi.toml"),
	}
	require.NoError(t, os.Mkdir(ws.plugins, 0o755))

	util := classfiletest.NewClass("hudson/Util")
	util.Method("fixNull", "(Ljava/lang/String;)Ljava/lang/String;", classfile.AccPublic|classfile.AccStatic)
	util.Method("join", "()V", classfile.AccPublic|classfile.AccStatic)
	writeZip(t, ws.core, map[string][]byte{"hudson/Util.class": util.Bytes()})

	scm := classfiletest.NewClass("hudson/plugins/git/GitSCM")
	scm.Method("checkout", "()V", classfile.AccPublic).
		InvokeStatic("hudson/Util", "fixNull", "(Ljava/lang/String;)Ljava/lang/String;")
	writeZip(t, filepath.Join(ws.plugins, "git.hpi"), map[string][]byte{"hudson/plugins/git/GitSCM.class": scm.Bytes()})
	require.NoError(t, os.WriteFile(filepath.Join(ws.plugins, "broken.hpi"), []byte("truncated"), 0o644))

	cfg := fmt.Sprintf(`[core]
path = %q

[plugins]
dir = %q

[cache]
enabled = true
dir = %q
ttl = 0

[output]
color = false
`, ws.core, ws.plugins, filepath.Join(dir, "cache"))
	require.NoError(t, os.WriteFile(ws.config, []byte(cfg), 0o644))
	return ws
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"deadapi"}, args...))
	return out.String(), err
}

func TestAnalyze_JSON(t *testing.T) {
	ws := newWorkspace(t)
	outPath := filepath.Join(ws.dir, "report.json")

	_, err := run(t, "-c", ws.config, "-f", "json", "-o", outPath, "analyze", "--no-progress", "--workers", "2")
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var report struct {
		Methods []struct {
			Class string `json:"class"`
			Name  string `json:"name"`
		} `json:"methods"`
		Failures []struct {
			Artifact    string `json:"artifact"`
			Quarantined bool   `json:"quarantined"`
		} `json:"failures"`
		Summary struct {
			CandidatesSeeded  int `json:"candidates_seeded"`
			ArtifactsAnalyzed int `json:"artifacts_analyzed"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(data, &report))

	require.Len(t, report.Methods, 1)
	assert.Equal(t, "join", report.Methods[0].Name)
	assert.Equal(t, 2, report.Summary.CandidatesSeeded)
	assert.Equal(t, 2, report.Summary.ArtifactsAnalyzed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "broken.hpi", report.Failures[0].Artifact)
	assert.True(t, report.Failures[0].Quarantined)
}

func TestAnalyze_FlagsOverrideConfig(t *testing.T) {
	ws := newWorkspace(t)
	empty := filepath.Join(ws.dir, "empty")
	require.NoError(t, os.Mkdir(empty, 0o755))
	outPath := filepath.Join(ws.dir, "report.md")

	_, err := run(t, "-c", ws.config, "-f", "markdown", "-o", outPath,
		"analyze", "--no-progress", "--no-cache", "--plugins", empty, "--include-prefix", "hudson/")
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	md := string(data)
	assert.True(t, strings.HasPrefix(md, "# Unused Core Methods"))
	assert.Contains(t, md, "String hudson.Util.fixNull(String)")
	assert.Contains(t, md, "void hudson.Util.join()")
	assert.NotContains(t, md, "Abandoned Artifacts")
}

func TestAnalyze_MissingCore(t *testing.T) {
	ws := newWorkspace(t)
	_, err := run(t, "-c", ws.config, "analyze", "--no-progress", "--core", filepath.Join(ws.dir, "missing.war"))
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	ws := newWorkspace(t)
	_, err := run(t, "-c", ws.config, "config", "validate")
	require.NoError(t, err)

	bad := filepath.Join(ws.dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[analysis]\nworkers = -1\n"), 0o644))
	_, err = run(t, "-c", bad, "config", "validate")
	require.Error(t, err)
}

func TestConfigShow(t *testing.T) {
	ws := newWorkspace(t)
	out, err := run(t, "-c", ws.config, "config", "show")
	require.NoError(t, err)

	assert.Contains(t, out, "# Configuration from: "+ws.config)
	assert.Contains(t, out, "[core]")
	assert.Contains(t, out, ws.core)
}

func TestCacheCommands(t *testing.T) {
	ws := newWorkspace(t)
	_, err := run(t, "-c", ws.config, "-o", filepath.Join(ws.dir, "first.txt"), "analyze", "--no-progress")
	require.NoError(t, err)

	listPath := filepath.Join(ws.dir, "list.json")
	_, err = run(t, "-c", ws.config, "-f", "json", "-o", listPath, "cache", "list")
	require.NoError(t, err)
	data, err := os.ReadFile(listPath)
	require.NoError(t, err)
	var entries []struct {
		Artifact string `json:"artifact"`
	}
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "broken.hpi", filepath.Base(entries[0].Artifact))

	statsPath := filepath.Join(ws.dir, "stats.json")
	_, err = run(t, "-c", ws.config, "-f", "json", "-o", statsPath, "cache", "stats")
	require.NoError(t, err)
	data, err = os.ReadFile(statsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"entries": 1`)

	_, err = run(t, "-c", ws.config, "cache", "release", filepath.Join(ws.plugins, "broken.hpi"))
	require.NoError(t, err)
	_, err = run(t, "-c", ws.config, "-f", "json", "-o", listPath, "cache", "list")
	require.NoError(t, err)
	data, err = os.ReadFile(listPath)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))

	_, err = run(t, "-c", ws.config, "cache", "clear")
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(ws.dir, "cache"))
}

func TestCacheRelease_NoArgs(t *testing.T) {
	ws := newWorkspace(t)
	_, err := run(t, "-c", ws.config, "cache", "release")
	require.Error(t, err)
}

func TestMCPManifest(t *testing.T) {
	out, err := run(t, "mcp", "manifest")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "io.github.panbanda/deadapi"`)
	assert.Contains(t, out, `"type": "stdio"`)
}
