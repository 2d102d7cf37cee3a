// Package locator resolves the core artifact and the plugin artifacts of a
// corpus on disk.
package locator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/gobwas/glob"
)

// ErrNotFound is returned when the core artifact or plugin directory does
// not exist.
var ErrNotFound = errors.New("artifact not found")

// Result is a located corpus. Paths are sorted.
type Result struct {
	Core    string
	Plugins []string
	// Ignored lists plugin files that matched a pattern and an ignore rule.
	Ignored []string
}

// Options configures plugin discovery.
type Options struct {
	Patterns []string
	Ignore   []string
}

// Option is a functional option for Locate.
type Option func(*Options)

// WithPatterns sets the plugin file name globs.
func WithPatterns(patterns ...string) Option {
	return func(o *Options) {
		o.Patterns = patterns
	}
}

// WithIgnore sets file name globs of plugins that are never analyzed.
func WithIgnore(names ...string) Option {
	return func(o *Options) {
		o.Ignore = names
	}
}

// Locate resolves the core artifact path and lists the plugins in
// pluginDir. An empty pluginDir yields no plugins.
func Locate(core, pluginDir string, opts ...Option) (*Result, error) {
	options := &Options{
		Patterns: []string{"*.hpi", "*.jpi"},
	}
	for _, opt := range opts {
		opt(options)
	}

	info, err := os.Stat(core)
	if err != nil {
		return nil, fmt.Errorf("%w: core %s", ErrNotFound, core)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("core %s is a directory", core)
	}
	res := &Result{Core: core}

	if pluginDir == "" {
		return res, nil
	}
	res.Plugins, res.Ignored, err = plugins(pluginDir, options)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func matchAny(globs []glob.Glob, name string) bool {
	return slices.ContainsFunc(globs, func(g glob.Glob) bool {
		return g.Match(name)
	})
}

func plugins(dir string, o *Options) (found, ignored []string, err error) {
	include, err := compileAll(o.Patterns)
	if err != nil {
		return nil, nil, err
	}
	exclude, err := compileAll(o.Ignore)
	if err != nil {
		return nil, nil, err
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: plugin directory %s", ErrNotFound, dir)
	}
	if err != nil {
		return nil, nil, err
	}

	for _, e := range entries {
		if e.IsDir() || !matchAny(include, e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if matchAny(exclude, e.Name()) {
			ignored = append(ignored, path)
			continue
		}
		found = append(found, path)
	}
	// os.ReadDir returns entries sorted by name.
	return found, ignored, nil
}
