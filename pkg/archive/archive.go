// Package archive reads class and template resources out of deployable
// artifacts (jar, war and hpi containers).
package archive

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// ErrCorrupt is wrapped by every failure to read an artifact's container.
// An artifact that returns it cannot be analyzed further.
var ErrCorrupt = errors.New("corrupt archive")

// Kind classifies an entry.
type Kind int

const (
	KindClass Kind = iota
	KindTemplate
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindTemplate:
		return "template"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Entry is one resource of an artifact. Entries of nested jars are named
// "outer.jar!/inner/Name.class".
type Entry struct {
	Name string
	Kind Kind
	Data []byte
}

// EntryReader yields the entries of an opened artifact in archive order.
// Next returns io.EOF after the last entry.
type EntryReader interface {
	Next() (*Entry, error)
	Close() error
}

// Artifact is a named source of entries that can be read more than once.
type Artifact interface {
	Name() string
	Open() (EntryReader, error)
}

// Options controls which entries an artifact yields.
type Options struct {
	// TemplateExtensions lists the suffixes of template entries.
	TemplateExtensions []string
	// Skip lists glob patterns of entry names that are never yielded.
	Skip []string
	// Scope, when set, restricts reading to nested jars whose name matches
	// the pattern; entries outside those jars are ignored.
	Scope string
}

// DefaultOptions returns the options used for plugin artifacts.
func DefaultOptions() Options {
	return Options{
		TemplateExtensions: []string{".jelly"},
		Skip:               []string{"com/ibm/icu/impl/data/LocaleElements_zh__PINYIN.class"},
	}
}

type matcher struct {
	templates []string
	skip      []glob.Glob
	scope     glob.Glob
}

func compile(opts Options) (*matcher, error) {
	m := &matcher{templates: opts.TemplateExtensions}
	for _, p := range opts.Skip {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("skip pattern %q: %w", p, err)
		}
		m.skip = append(m.skip, g)
	}
	if opts.Scope != "" {
		g, err := glob.Compile(opts.Scope, '/')
		if err != nil {
			return nil, fmt.Errorf("scope pattern %q: %w", opts.Scope, err)
		}
		m.scope = g
	}
	return m, nil
}

// classify returns the kind of a named entry, or false if the entry is not
// yielded.
func (m *matcher) classify(name string) (Kind, bool) {
	if slices.ContainsFunc(m.skip, func(g glob.Glob) bool { return g.Match(name) }) {
		return 0, false
	}
	if strings.HasSuffix(name, ".class") {
		return KindClass, true
	}
	ext := path.Ext(name)
	if ext != "" && slices.Contains(m.templates, ext) {
		return KindTemplate, true
	}
	return 0, false
}

func (m *matcher) inScope(jar string) bool {
	return m.scope == nil || m.scope.Match(jar)
}
