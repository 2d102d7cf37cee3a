package locator

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("PK"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLocate(t *testing.T) {
	tmpDir := t.TempDir()
	touch(t, tmpDir, "jenkins.war")
	pluginDir := filepath.Join(tmpDir, "plugins")
	if err := os.Mkdir(pluginDir, 0755); err != nil {
		t.Fatal(err)
	}
	touch(t, pluginDir, "git.hpi", "credentials.jpi", "python-wrapper.hpi", "README.md", "ant.hpi")
	if err := os.Mkdir(filepath.Join(pluginDir, "git"), 0755); err != nil {
		t.Fatal(err)
	}

	core := filepath.Join(tmpDir, "jenkins.war")
	res, err := Locate(core, pluginDir, WithIgnore("python-wrapper.hpi"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Core != core {
		t.Errorf("Core = %q, want %q", res.Core, core)
	}
	want := []string{
		filepath.Join(pluginDir, "ant.hpi"),
		filepath.Join(pluginDir, "credentials.jpi"),
		filepath.Join(pluginDir, "git.hpi"),
	}
	if len(res.Plugins) != len(want) {
		t.Fatalf("Plugins = %v, want %v", res.Plugins, want)
	}
	for i := range want {
		if res.Plugins[i] != want[i] {
			t.Errorf("Plugins[%d] = %q, want %q", i, res.Plugins[i], want[i])
		}
	}
	if len(res.Ignored) != 1 || filepath.Base(res.Ignored[0]) != "python-wrapper.hpi" {
		t.Errorf("Ignored = %v", res.Ignored)
	}
}

func TestLocate_Patterns(t *testing.T) {
	tmpDir := t.TempDir()
	touch(t, tmpDir, "core.jar", "a.hpi", "b.jpi", "c.zip")

	res, err := Locate(filepath.Join(tmpDir, "core.jar"), tmpDir, WithPatterns("*.{hpi,zip}"))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Plugins) != 2 {
		t.Errorf("Plugins = %v, want a.hpi and c.zip", res.Plugins)
	}
}

func TestLocate_NoPluginDir(t *testing.T) {
	tmpDir := t.TempDir()
	touch(t, tmpDir, "jenkins.war")

	res, err := Locate(filepath.Join(tmpDir, "jenkins.war"), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Plugins) != 0 {
		t.Errorf("Plugins = %v, want none", res.Plugins)
	}
}

func TestLocate_Errors(t *testing.T) {
	tmpDir := t.TempDir()
	touch(t, tmpDir, "jenkins.war")
	core := filepath.Join(tmpDir, "jenkins.war")

	if _, err := Locate(filepath.Join(tmpDir, "missing.war"), ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing core: err = %v, want ErrNotFound", err)
	}
	if _, err := Locate(tmpDir, ""); err == nil {
		t.Error("directory core should fail")
	}
	if _, err := Locate(core, filepath.Join(tmpDir, "nope")); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing plugin dir: err = %v, want ErrNotFound", err)
	}
	if _, err := Locate(core, tmpDir, WithPatterns("[")); err == nil {
		t.Error("invalid pattern should fail")
	}
}
