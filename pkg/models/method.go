package models

import (
	"cmp"
	"strings"

	"github.com/panbanda/deadapi/pkg/classfile"
)

// MethodKey identifies a declared or referenced method by its owning class's
// internal name, its name and its erased descriptor.
type MethodKey struct {
	Class      string `json:"class"`
	Name       string `json:"name"`
	Descriptor string `json:"descriptor"`
}

// String renders the key as "owner.name(desc)ret".
func (k MethodKey) String() string {
	return k.Class + "." + k.Name + k.Descriptor
}

// Compare orders keys by class, then name, then descriptor.
func (k MethodKey) Compare(other MethodKey) int {
	if c := cmp.Compare(k.Class, other.Class); c != 0 {
		return c
	}
	if c := cmp.Compare(k.Name, other.Name); c != 0 {
		return c
	}
	return cmp.Compare(k.Descriptor, other.Descriptor)
}

// Signature returns the name and descriptor without the owner.
func (k MethodKey) Signature() string {
	return k.Name + k.Descriptor
}

// Package returns the internal package of the owning class.
func (k MethodKey) Package() string {
	if i := strings.LastIndexByte(k.Class, '/'); i >= 0 {
		return k.Class[:i]
	}
	return ""
}

// IsConstructor reports whether the key names an instance initializer.
func (k MethodKey) IsConstructor() bool {
	return k.Name == "<init>"
}

// FormatSignature renders a key as a source-like signature, for example
// "String hudson.model.Job.getName()" or "hudson.model.Job(ItemGroup, String)".
// Internal names become dotted, java.lang types lose their package and
// constructors are shown by class name without a return type. Keys with an
// unparseable descriptor fall back to the dotted raw form.
func FormatSignature(k MethodKey) string {
	owner := dotted(k.Class)
	md, err := classfile.ParseMethodDescriptor(k.Descriptor)
	if err != nil {
		return owner + "." + k.Name + k.Descriptor
	}

	params := make([]string, len(md.Params))
	for i, p := range md.Params {
		params[i] = shortTypeName(p)
	}
	args := "(" + strings.Join(params, ", ") + ")"

	if k.IsConstructor() {
		return owner + args
	}
	return shortTypeName(md.Return) + " " + owner + "." + k.Name + args
}

func dotted(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}

func shortTypeName(t classfile.Type) string {
	name := t.SourceName()
	if rest, ok := strings.CutPrefix(name, "java.lang."); ok && !strings.Contains(strings.TrimRight(rest, "[]"), ".") {
		return rest
	}
	return name
}
