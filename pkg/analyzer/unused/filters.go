// Package unused finds methods of a core artifact that no artifact in the
// corpus ever calls, directly, polymorphically or from template text.
package unused

import (
	"slices"
	"strings"

	"github.com/panbanda/deadapi/pkg/classfile"
)

// DefaultIgnoredNames are method names that are never candidates:
// serialization hooks, enum machinery and XStream converter callbacks.
var DefaultIgnoredNames = []string{
	"<clinit>", "main",
	"readResolve", "readObject", "readExternal",
	"writeObject", "writeExternal", "writeReplace",
	"values", "valueOf",
	"fromString", "canConvert", "marshal", "unmarshal",
}

// DefaultBundleSuffixes mark generated message-bundle classes.
var DefaultBundleSuffixes = []string{"/Messages"}

// FilterOptions configures Filters.
type FilterOptions struct {
	ExtraIgnoredNames []string
	BundleSuffixes    []string
	SkipPrivate       bool
}

// Filters decides which declared core methods are candidates.
type Filters struct {
	ignored        map[string]struct{}
	bundleSuffixes []string
	skipPrivate    bool
}

// NewFilters builds filters from the defaults plus opts. A nil
// BundleSuffixes uses DefaultBundleSuffixes.
func NewFilters(opts FilterOptions) *Filters {
	f := &Filters{
		ignored:        make(map[string]struct{}, len(DefaultIgnoredNames)+len(opts.ExtraIgnoredNames)),
		bundleSuffixes: opts.BundleSuffixes,
		skipPrivate:    opts.SkipPrivate,
	}
	if f.bundleSuffixes == nil {
		f.bundleSuffixes = DefaultBundleSuffixes
	}
	for _, n := range DefaultIgnoredNames {
		f.ignored[n] = struct{}{}
	}
	for _, n := range opts.ExtraIgnoredNames {
		f.ignored[n] = struct{}{}
	}
	return f
}

// ClassEligible reports whether methods of cls can be candidates at all.
// Interfaces, annotations, deprecated classes and message bundles are not.
func (f *Filters) ClassEligible(cls *classfile.Class) bool {
	if cls.Access.Has(classfile.AccInterface|classfile.AccAnnotation) || cls.Deprecated {
		return false
	}
	return !slices.ContainsFunc(f.bundleSuffixes, func(s string) bool {
		return strings.HasSuffix(cls.Name, s)
	})
}

// Eligible reports whether m, declared by cls, is a candidate.
func (f *Filters) Eligible(cls *classfile.Class, m classfile.Method) bool {
	if !f.ClassEligible(cls) {
		return false
	}
	return f.methodEligible(m)
}

func (f *Filters) methodEligible(m classfile.Method) bool {
	if _, ok := f.ignored[m.Name]; ok {
		return false
	}
	if m.Synthetic() || m.Deprecated {
		return false
	}
	if f.skipPrivate && m.Access.Has(classfile.AccPrivate) {
		return false
	}
	if m.Name == "<init>" && m.Descriptor == "()V" {
		return false
	}
	// Web actions are dispatched by name from the routing layer.
	if strings.HasPrefix(m.Name, "do") {
		return false
	}
	return !isAccessor(m.Name, m.Descriptor)
}

// isAccessor matches bean getter and setter shapes.
func isAccessor(name, desc string) bool {
	md, err := classfile.ParseMethodDescriptor(desc)
	if err != nil {
		return false
	}
	switch {
	case strings.HasPrefix(name, "get"):
		return len(md.Params) == 0 && md.Return != classfile.Void
	case strings.HasPrefix(name, "is"):
		return len(md.Params) == 0 && md.Return == classfile.Boolean
	case strings.HasPrefix(name, "set"):
		return len(md.Params) == 1 && md.Return == classfile.Void
	}
	return false
}
