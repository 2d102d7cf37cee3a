package classfile

import "fmt"

// Constant pool tags.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

// Method handle kinds that point at methods rather than fields.
const (
	refInvokeVirtual    = 5
	refInvokeStatic     = 6
	refInvokeSpecial    = 7
	refNewInvokeSpecial = 8
	refInvokeInterface  = 9
)

type constant struct {
	tag  uint8
	a, b uint16
	kind uint8
	text string
}

type constantPool struct {
	entries []constant // index 0 unused
}

func readConstantPool(r *reader) (*constantPool, error) {
	count := int(r.u2())
	if r.err != nil {
		return nil, r.fail("constant pool count")
	}
	pool := &constantPool{entries: make([]constant, count)}
	for i := 1; i < count; i++ {
		c := constant{tag: r.u1()}
		switch c.tag {
		case tagUtf8:
			n := int(r.u2())
			c.text = string(r.bytes(n))
		case tagInteger, tagFloat:
			r.skip(4)
		case tagLong, tagDouble:
			r.skip(8)
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			c.a = r.u2()
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType, tagDynamic, tagInvokeDynamic:
			c.a = r.u2()
			c.b = r.u2()
		case tagMethodHandle:
			c.kind = r.u1()
			c.a = r.u2()
		default:
			if r.err == nil {
				return nil, fmt.Errorf("%w: constant pool entry %d has unknown tag %d", ErrMalformed, i, c.tag)
			}
		}
		if r.err != nil {
			return nil, r.fail(fmt.Sprintf("constant pool entry %d", i))
		}
		pool.entries[i] = c
		if c.tag == tagLong || c.tag == tagDouble {
			i++ // eight-byte constants take two slots
		}
	}
	return pool, nil
}

func (p *constantPool) get(idx uint16, tag uint8) (constant, error) {
	if int(idx) <= 0 || int(idx) >= len(p.entries) {
		return constant{}, fmt.Errorf("%w: constant pool index %d out of range", ErrMalformed, idx)
	}
	c := p.entries[idx]
	if c.tag != tag {
		return constant{}, fmt.Errorf("%w: constant pool index %d has tag %d, want %d", ErrMalformed, idx, c.tag, tag)
	}
	return c, nil
}

func (p *constantPool) utf8(idx uint16) (string, error) {
	c, err := p.get(idx, tagUtf8)
	if err != nil {
		return "", err
	}
	return c.text, nil
}

func (p *constantPool) className(idx uint16) (string, error) {
	c, err := p.get(idx, tagClass)
	if err != nil {
		return "", err
	}
	return p.utf8(c.a)
}

// methodRef resolves a Methodref or InterfaceMethodref entry.
func (p *constantPool) methodRef(idx uint16) (MethodRef, bool) {
	if int(idx) <= 0 || int(idx) >= len(p.entries) {
		return MethodRef{}, false
	}
	c := p.entries[idx]
	if c.tag != tagMethodref && c.tag != tagInterfaceMethodref {
		return MethodRef{}, false
	}
	owner, err := p.className(c.a)
	if err != nil {
		return MethodRef{}, false
	}
	nat, err := p.get(c.b, tagNameAndType)
	if err != nil {
		return MethodRef{}, false
	}
	name, err := p.utf8(nat.a)
	if err != nil {
		return MethodRef{}, false
	}
	desc, err := p.utf8(nat.b)
	if err != nil {
		return MethodRef{}, false
	}
	return MethodRef{Owner: owner, Name: name, Descriptor: desc}, true
}

// methodHandles returns the methods referenced by method-handle constants.
// Lambdas and method references reach their targets this way instead of
// through invoke instructions.
func (p *constantPool) methodHandles() []MethodRef {
	var refs []MethodRef
	for _, c := range p.entries {
		if c.tag != tagMethodHandle {
			continue
		}
		switch c.kind {
		case refInvokeVirtual, refInvokeStatic, refInvokeSpecial, refNewInvokeSpecial, refInvokeInterface:
			if ref, ok := p.methodRef(c.a); ok {
				refs = append(refs, ref)
			}
		}
	}
	return refs
}
