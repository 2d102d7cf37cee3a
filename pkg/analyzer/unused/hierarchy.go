package unused

import (
	"slices"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/panbanda/deadapi/pkg/classfile"
	"github.com/panbanda/deadapi/pkg/models"
)

// Hierarchy records super and subclass relations between non-standard
// classes of one corpus. A hierarchy chained to a parent forwards every
// method inclusion to the parent; only the root admits methods, and only
// for classes under its owned packages.
//
// A Hierarchy is not safe for concurrent mutation. Once fully registered it
// may be read concurrently.
type Hierarchy struct {
	parent *Hierarchy
	super  map[string]string
	subs   map[string][]string
	owned  []string
}

// NewHierarchy creates a hierarchy chained to parent, or a root hierarchy
// when parent is nil.
func NewHierarchy(parent *Hierarchy) *Hierarchy {
	return &Hierarchy{
		parent: parent,
		super:  make(map[string]string),
		subs:   make(map[string][]string),
	}
}

// IsRoot reports whether the hierarchy has no parent.
func (h *Hierarchy) IsRoot() bool {
	return h.parent == nil
}

// RegisterClass records the superclass edge and every interface as a
// subclass edge. Standard-library supertypes are not recorded.
func (h *Hierarchy) RegisterClass(cls *classfile.Class) {
	if cls.SuperName != "" && !IsStandardLibraryClass(cls.SuperName) {
		h.super[cls.Name] = cls.SuperName
		h.addSub(cls.SuperName, cls.Name)
	}
	for _, iface := range cls.Interfaces {
		if !IsStandardLibraryClass(iface) {
			h.addSub(iface, cls.Name)
		}
	}
}

func (h *Hierarchy) addSub(parent, child string) {
	if !slices.Contains(h.subs[parent], child) {
		h.subs[parent] = append(h.subs[parent], child)
	}
}

// RegisterOwnedPackage adds the package of className to the owned
// packages, keeping only the broadest prefixes. It only has an effect on a
// root hierarchy. Classes in the default package are ignored.
func (h *Hierarchy) RegisterOwnedPackage(className string) {
	if h.parent != nil {
		return
	}
	i := strings.LastIndexByte(className, '/')
	if i <= 0 {
		return
	}
	pkg := className[:i]
	for _, p := range h.owned {
		if coversPackage(p, pkg) {
			return
		}
	}
	h.owned = slices.DeleteFunc(h.owned, func(p string) bool {
		return coversPackage(pkg, p)
	})
	h.owned = append(h.owned, pkg)
}

// OwnedPackages returns the registered package prefixes, sorted.
func (h *Hierarchy) OwnedPackages() []string {
	out := slices.Clone(h.owned)
	slices.Sort(out)
	return out
}

// coversPackage reports whether prefix equals pkg or is one of its parents.
func coversPackage(prefix, pkg string) bool {
	return pkg == prefix || strings.HasPrefix(pkg, prefix+"/")
}

func (h *Hierarchy) owns(class string) bool {
	return slices.ContainsFunc(h.owned, func(p string) bool {
		return strings.HasPrefix(class, p+"/")
	})
}

// SuperclassOf returns the recorded superclass of class.
func (h *Hierarchy) SuperclassOf(class string) (string, bool) {
	s, ok := h.super[class]
	return s, ok
}

// AllSubclassesOf returns every transitive subclass and implementor of
// class recorded in this hierarchy, sorted. A class that is its own
// descendant is included.
func (h *Hierarchy) AllSubclassesOf(class string) []string {
	all := h.subclasses(class)
	out := make([]string, 0, len(all))
	for c := range all {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// subclasses expands the subclass relation level by level until a level
// adds nothing new.
func (h *Hierarchy) subclasses(class string) map[string]struct{} {
	direct := h.subs[class]
	if len(direct) == 0 {
		return nil
	}
	all := make(map[string]struct{}, len(direct))
	frontier := make([]string, 0, len(direct))
	for _, c := range direct {
		if _, ok := all[c]; !ok {
			all[c] = struct{}{}
			frontier = append(frontier, c)
		}
	}
	for len(frontier) > 0 {
		var next []string
		for _, c := range frontier {
			for _, sub := range h.subs[c] {
				if _, ok := all[sub]; !ok {
					all[sub] = struct{}{}
					next = append(next, sub)
				}
			}
		}
		frontier = next
	}
	return all
}

// resolution accumulates the targets of one resolve call. Each level of
// the chain keeps its own record of classes already included.
type resolution struct {
	name, desc string
	out        map[models.MethodKey]struct{}
	included   map[*Hierarchy]map[string]struct{}
}

// ResolvePolymorphicTargets returns every method that a call to
// class.name(desc) could dispatch to at runtime: the method on class, on
// each of its superclasses, on each transitive subclass, and on the
// superclasses of those subclasses below class. The result is sorted.
func (h *Hierarchy) ResolvePolymorphicTargets(class, name, desc string) []models.MethodKey {
	r := &resolution{
		name:     name,
		desc:     desc,
		out:      make(map[models.MethodKey]struct{}),
		included: make(map[*Hierarchy]map[string]struct{}),
	}
	h.resolve(class, r)

	keys := make([]models.MethodKey, 0, len(r.out))
	for k := range r.out {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, models.MethodKey.Compare)
	return keys
}

func (h *Hierarchy) resolve(class string, r *resolution) {
	h.include(class, r)
	h.walkUp(class, "", r)
	for sub := range h.subclasses(class) {
		h.include(sub, r)
		h.walkUp(sub, class, r)
	}
}

// walkUp includes every superclass of from, stopping before stop or at
// the first class seen twice.
func (h *Hierarchy) walkUp(from, stop string, r *resolution) {
	seen := map[string]struct{}{from: {}}
	for c, ok := h.super[from]; ok && c != stop; c, ok = h.super[c] {
		if _, dup := seen[c]; dup {
			return
		}
		seen[c] = struct{}{}
		h.include(c, r)
	}
}

// include adds the method on class: delegated to the parent when chained,
// admitted directly at the root when class is owned.
func (h *Hierarchy) include(class string, r *resolution) {
	done := r.included[h]
	if done == nil {
		done = make(map[string]struct{})
		r.included[h] = done
	}
	if _, ok := done[class]; ok {
		return
	}
	done[class] = struct{}{}

	if h.parent != nil {
		h.parent.resolve(class, r)
		return
	}
	if h.owns(class) {
		r.out[models.MethodKey{Class: class, Name: r.name, Descriptor: r.desc}] = struct{}{}
	}
}

// Anomaly is a cyclic ancestry record.
type Anomaly struct {
	Classes []string `json:"classes"`
}

// Anomalies reports classes recorded as their own supertype and groups of
// classes whose super or interface edges form a cycle.
func (h *Hierarchy) Anomalies() []Anomaly {
	ids := make(map[string]int64)
	names := make(map[int64]string)
	g := simple.NewDirectedGraph()
	node := func(name string) simple.Node {
		id, ok := ids[name]
		if !ok {
			id = int64(len(ids))
			ids[name] = id
			names[id] = name
			g.AddNode(simple.Node(id))
		}
		return simple.Node(id)
	}

	var out []Anomaly
	for parent, children := range h.subs {
		from := node(parent)
		for _, child := range children {
			if child == parent {
				out = append(out, Anomaly{Classes: []string{parent}})
				continue
			}
			g.SetEdge(simple.Edge{F: from, T: node(child)})
		}
	}

	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}
		classes := make([]string, len(scc))
		for i, n := range scc {
			classes[i] = names[n.ID()]
		}
		slices.Sort(classes)
		out = append(out, Anomaly{Classes: classes})
	}

	slices.SortFunc(out, func(a, b Anomaly) int {
		return slices.Compare(a.Classes, b.Classes)
	})
	return out
}
