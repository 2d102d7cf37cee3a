// Package classfile decodes the parts of a JVM class file needed for usage
// analysis: the class's place in the type hierarchy, its declared methods, and
// the methods its code calls.
package classfile

import (
	"errors"
	"fmt"
	"iter"
	"strings"
)

// ErrMalformed is wrapped by every decode failure.
var ErrMalformed = errors.New("malformed class file")

const magic = 0xCAFEBABE

// AccessFlags are the access_flags of a class or method.
type AccessFlags uint16

const (
	AccPublic     AccessFlags = 0x0001
	AccPrivate    AccessFlags = 0x0002
	AccProtected  AccessFlags = 0x0004
	AccStatic     AccessFlags = 0x0008
	AccFinal      AccessFlags = 0x0010
	AccBridge     AccessFlags = 0x0040
	AccNative     AccessFlags = 0x0100
	AccInterface  AccessFlags = 0x0200
	AccAbstract   AccessFlags = 0x0400
	AccSynthetic  AccessFlags = 0x1000
	AccAnnotation AccessFlags = 0x2000
	AccEnum       AccessFlags = 0x4000
)

// Has reports whether any of the given flags are set.
func (a AccessFlags) Has(flags AccessFlags) bool {
	return a&flags != 0
}

// MethodRef identifies a called method by its static owner.
type MethodRef struct {
	Owner      string
	Name       string
	Descriptor string
}

// Method is a declared method.
type Method struct {
	Name       string
	Descriptor string
	Access     AccessFlags
	Deprecated bool

	code []byte
}

// Synthetic reports whether the compiler generated the method.
func (m Method) Synthetic() bool {
	return m.Access.Has(AccSynthetic)
}

// Class is a decoded class declaration.
type Class struct {
	Name       string
	SuperName  string // empty for java/lang/Object and module-info
	Interfaces []string
	Access     AccessFlags
	Deprecated bool
	Methods    []Method

	pool     *constantPool
	handles  []MethodRef
	callsErr error
}

// Package returns the internal package name of the class ("" for the
// default package).
func (c *Class) Package() string {
	if i := strings.LastIndexByte(c.Name, '/'); i >= 0 {
		return c.Name[:i]
	}
	return ""
}

// Calls yields every method reference made by the class: the targets of
// invokevirtual, invokespecial, invokestatic and invokeinterface
// instructions in all method bodies, followed by method-handle constants.
// Bodies are scanned lazily; a body with an undecodable instruction stops
// contributing at that instruction and is reported by CallsErr.
func (c *Class) Calls() iter.Seq[MethodRef] {
	return func(yield func(MethodRef) bool) {
		c.callsErr = nil
		for _, m := range c.Methods {
			if len(m.code) == 0 {
				continue
			}
			more, err := scanInvocations(m.code, c.pool, yield)
			if err != nil && c.callsErr == nil {
				c.callsErr = fmt.Errorf("%w: %s.%s%s: %v", ErrMalformed, c.Name, m.Name, m.Descriptor, err)
			}
			if !more {
				return
			}
		}
		for _, ref := range c.handles {
			if !yield(ref) {
				return
			}
		}
	}
}

// CallsErr describes the first method body the last iteration of Calls
// could not fully decode, or returns nil. Call sites after the undecodable
// instruction were not yielded.
func (c *Class) CallsErr() error {
	return c.callsErr
}

// Decode parses a class file.
func Decode(data []byte) (*Class, error) {
	r := &reader{buf: data}
	if r.u4() != magic {
		if r.err != nil {
			return nil, r.fail("header")
		}
		return nil, fmt.Errorf("%w: bad magic", ErrMalformed)
	}
	r.skip(4) // minor, major
	pool, err := readConstantPool(r)
	if err != nil {
		return nil, err
	}

	cls := &Class{pool: pool}
	cls.Access = AccessFlags(r.u2())
	if cls.Name, err = pool.className(r.u2()); err != nil {
		return nil, err
	}
	if superIdx := r.u2(); superIdx != 0 {
		if cls.SuperName, err = pool.className(superIdx); err != nil {
			return nil, err
		}
	}
	n := int(r.u2())
	for range n {
		name, err := pool.className(r.u2())
		if err != nil {
			return nil, err
		}
		cls.Interfaces = append(cls.Interfaces, name)
	}
	if r.err != nil {
		return nil, r.fail("class header")
	}

	// fields
	n = int(r.u2())
	for range n {
		r.skip(6)
		if err := skipAttributes(r); err != nil {
			return nil, err
		}
	}

	n = int(r.u2())
	cls.Methods = make([]Method, 0, n)
	for range n {
		m, err := readMethod(r, pool)
		if err != nil {
			return nil, err
		}
		cls.Methods = append(cls.Methods, m)
	}

	n = int(r.u2())
	for range n {
		name, _, err := readAttribute(r, pool)
		if err != nil {
			return nil, err
		}
		switch name {
		case "Deprecated":
			cls.Deprecated = true
		case "Synthetic":
			cls.Access |= AccSynthetic
		}
	}
	if r.err != nil {
		return nil, r.fail("class attributes")
	}

	cls.handles = pool.methodHandles()
	return cls, nil
}

func readMethod(r *reader, pool *constantPool) (Method, error) {
	var m Method
	m.Access = AccessFlags(r.u2())
	var err error
	if m.Name, err = pool.utf8(r.u2()); err != nil {
		return m, err
	}
	if m.Descriptor, err = pool.utf8(r.u2()); err != nil {
		return m, err
	}
	n := int(r.u2())
	for range n {
		name, body, err := readAttribute(r, pool)
		if err != nil {
			return m, err
		}
		switch name {
		case "Code":
			code, err := codeBytes(body)
			if err != nil {
				return m, fmt.Errorf("method %s%s: %w", m.Name, m.Descriptor, err)
			}
			m.code = code
		case "Deprecated":
			m.Deprecated = true
		case "Synthetic":
			m.Access |= AccSynthetic
		}
	}
	if r.err != nil {
		return m, r.fail("method " + m.Name)
	}
	return m, nil
}

func readAttribute(r *reader, pool *constantPool) (string, []byte, error) {
	nameIdx := r.u2()
	length := r.u4()
	body := r.bytes(int(length))
	if r.err != nil {
		return "", nil, r.fail("attribute")
	}
	name, err := pool.utf8(nameIdx)
	if err != nil {
		return "", nil, err
	}
	return name, body, nil
}

func skipAttributes(r *reader) error {
	n := int(r.u2())
	for range n {
		r.skip(2)
		r.skip(int(r.u4()))
	}
	if r.err != nil {
		return r.fail("attributes")
	}
	return nil
}

// codeBytes extracts the bytecode array from a Code attribute body.
func codeBytes(body []byte) ([]byte, error) {
	r := &reader{buf: body}
	r.skip(4) // max_stack, max_locals
	n := r.u4()
	code := r.bytes(int(n))
	if r.err != nil {
		return nil, r.fail("code attribute")
	}
	return code, nil
}
