// Package classfiletest builds small but valid class files for tests.
package classfiletest

import (
	"bytes"
	"encoding/binary"

	"github.com/panbanda/deadapi/pkg/classfile"
)

// ClassBuilder assembles a class file.
type ClassBuilder struct {
	name       string
	super      string
	interfaces []string
	access     classfile.AccessFlags
	deprecated bool
	methods    []*MethodBuilder
	handles    []classfile.MethodRef
}

// MethodBuilder assembles one method of a ClassBuilder.
type MethodBuilder struct {
	name       string
	desc       string
	access     classfile.AccessFlags
	deprecated bool
	prefix     []byte
	calls      []call
}

type call struct {
	ref    classfile.MethodRef
	opcode byte
	iface  bool
}

// NewClass starts a public class extending java/lang/Object.
func NewClass(name string) *ClassBuilder {
	return &ClassBuilder{
		name:   name,
		super:  "java/lang/Object",
		access: classfile.AccPublic,
	}
}

// Extends sets the superclass; an empty name writes no superclass.
func (b *ClassBuilder) Extends(super string) *ClassBuilder {
	b.super = super
	return b
}

// Implements adds interfaces.
func (b *ClassBuilder) Implements(names ...string) *ClassBuilder {
	b.interfaces = append(b.interfaces, names...)
	return b
}

// Access replaces the class access flags.
func (b *ClassBuilder) Access(flags classfile.AccessFlags) *ClassBuilder {
	b.access = flags
	return b
}

// Deprecated marks the class with a Deprecated attribute.
func (b *ClassBuilder) Deprecated() *ClassBuilder {
	b.deprecated = true
	return b
}

// MethodHandle adds a method-handle constant pointing at ref.
func (b *ClassBuilder) MethodHandle(ref classfile.MethodRef) *ClassBuilder {
	b.handles = append(b.handles, ref)
	return b
}

// Method declares a method and returns its builder.
func (b *ClassBuilder) Method(name, desc string, access classfile.AccessFlags) *MethodBuilder {
	m := &MethodBuilder{name: name, desc: desc, access: access}
	b.methods = append(b.methods, m)
	return m
}

// Deprecated marks the method with a Deprecated attribute.
func (m *MethodBuilder) Deprecated() *MethodBuilder {
	m.deprecated = true
	return m
}

// Code prepends raw instructions to the method body.
func (m *MethodBuilder) Code(raw ...byte) *MethodBuilder {
	m.prefix = append(m.prefix, raw...)
	return m
}

// InvokeVirtual appends an invokevirtual of owner.name(desc).
func (m *MethodBuilder) InvokeVirtual(owner, name, desc string) *MethodBuilder {
	return m.invoke(0xb6, false, owner, name, desc)
}

// InvokeStatic appends an invokestatic of owner.name(desc).
func (m *MethodBuilder) InvokeStatic(owner, name, desc string) *MethodBuilder {
	return m.invoke(0xb8, false, owner, name, desc)
}

// InvokeSpecial appends an invokespecial of owner.name(desc).
func (m *MethodBuilder) InvokeSpecial(owner, name, desc string) *MethodBuilder {
	return m.invoke(0xb7, false, owner, name, desc)
}

// InvokeInterface appends an invokeinterface of owner.name(desc).
func (m *MethodBuilder) InvokeInterface(owner, name, desc string) *MethodBuilder {
	return m.invoke(0xb9, true, owner, name, desc)
}

func (m *MethodBuilder) invoke(op byte, iface bool, owner, name, desc string) *MethodBuilder {
	m.calls = append(m.calls, call{
		ref:    classfile.MethodRef{Owner: owner, Name: name, Descriptor: desc},
		opcode: op,
		iface:  iface,
	})
	return m
}

// Bytes encodes the class file.
func (b *ClassBuilder) Bytes() []byte {
	p := newPool()
	thisIdx := p.class(b.name)
	var superIdx uint16
	if b.super != "" {
		superIdx = p.class(b.super)
	}
	ifaceIdx := make([]uint16, len(b.interfaces))
	for i, name := range b.interfaces {
		ifaceIdx[i] = p.class(name)
	}

	var methods bytes.Buffer
	for _, m := range b.methods {
		writeU2(&methods, uint16(m.access))
		writeU2(&methods, p.utf8(m.name))
		writeU2(&methods, p.utf8(m.desc))

		attrs := 0
		var attrBuf bytes.Buffer
		if m.access&(classfile.AccAbstract|classfile.AccNative) == 0 {
			code := append([]byte(nil), m.prefix...)
			for _, c := range m.calls {
				idx := p.methodRef(c.ref, c.iface)
				code = append(code, c.opcode, byte(idx>>8), byte(idx))
				if c.opcode == 0xb9 {
					code = append(code, 1, 0)
				}
			}
			code = append(code, 0xb1) // return
			writeU2(&attrBuf, p.utf8("Code"))
			writeU4(&attrBuf, uint32(12+len(code)))
			writeU2(&attrBuf, 8) // max_stack
			writeU2(&attrBuf, 8) // max_locals
			writeU4(&attrBuf, uint32(len(code)))
			attrBuf.Write(code)
			writeU2(&attrBuf, 0) // exception table
			writeU2(&attrBuf, 0) // attributes
			attrs++
		}
		if m.deprecated {
			writeU2(&attrBuf, p.utf8("Deprecated"))
			writeU4(&attrBuf, 0)
			attrs++
		}
		writeU2(&methods, uint16(attrs))
		methods.Write(attrBuf.Bytes())
	}

	for _, ref := range b.handles {
		p.methodHandle(ref)
	}

	var classAttrs bytes.Buffer
	classAttrCount := 0
	if b.deprecated {
		writeU2(&classAttrs, p.utf8("Deprecated"))
		writeU4(&classAttrs, 0)
		classAttrCount++
	}

	var out bytes.Buffer
	writeU4(&out, 0xCAFEBABE)
	writeU2(&out, 0)  // minor
	writeU2(&out, 52) // major (Java 8)
	writeU2(&out, uint16(p.count()))
	out.Write(p.buf.Bytes())
	writeU2(&out, uint16(b.access))
	writeU2(&out, thisIdx)
	writeU2(&out, superIdx)
	writeU2(&out, uint16(len(ifaceIdx)))
	for _, idx := range ifaceIdx {
		writeU2(&out, idx)
	}
	writeU2(&out, 0) // fields
	writeU2(&out, uint16(len(b.methods)))
	out.Write(methods.Bytes())
	writeU2(&out, uint16(classAttrCount))
	out.Write(classAttrs.Bytes())
	return out.Bytes()
}

type pool struct {
	buf   bytes.Buffer
	next  uint16
	index map[string]uint16
}

func newPool() *pool {
	return &pool{next: 1, index: make(map[string]uint16)}
}

func (p *pool) count() int {
	return int(p.next)
}

func (p *pool) add(key string, write func()) uint16 {
	if idx, ok := p.index[key]; ok {
		return idx
	}
	write()
	idx := p.next
	p.next++
	p.index[key] = idx
	return idx
}

func (p *pool) utf8(s string) uint16 {
	return p.add("u:"+s, func() {
		p.buf.WriteByte(1)
		writeU2(&p.buf, uint16(len(s)))
		p.buf.WriteString(s)
	})
}

func (p *pool) class(name string) uint16 {
	nameIdx := p.utf8(name)
	return p.add("c:"+name, func() {
		p.buf.WriteByte(7)
		writeU2(&p.buf, nameIdx)
	})
}

func (p *pool) nameAndType(name, desc string) uint16 {
	nameIdx := p.utf8(name)
	descIdx := p.utf8(desc)
	return p.add("n:"+name+":"+desc, func() {
		p.buf.WriteByte(12)
		writeU2(&p.buf, nameIdx)
		writeU2(&p.buf, descIdx)
	})
}

func (p *pool) methodRef(ref classfile.MethodRef, iface bool) uint16 {
	classIdx := p.class(ref.Owner)
	natIdx := p.nameAndType(ref.Name, ref.Descriptor)
	tag, key := byte(10), "m:"
	if iface {
		tag, key = 11, "i:"
	}
	return p.add(key+ref.Owner+"."+ref.Name+ref.Descriptor, func() {
		p.buf.WriteByte(tag)
		writeU2(&p.buf, classIdx)
		writeU2(&p.buf, natIdx)
	})
}

func (p *pool) methodHandle(ref classfile.MethodRef) uint16 {
	refIdx := p.methodRef(ref, false)
	return p.add("h:"+ref.Owner+"."+ref.Name+ref.Descriptor, func() {
		p.buf.WriteByte(15)
		p.buf.WriteByte(6) // REF_invokeStatic
		writeU2(&p.buf, refIdx)
	})
}

func writeU2(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU4(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
