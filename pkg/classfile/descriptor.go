package classfile

import (
	"fmt"
	"strings"
)

// Type is one field type from a descriptor, kept in descriptor syntax
// (for example "I", "Ljava/lang/String;", "[[B").
type Type string

// Void is the return type of methods that return nothing.
const Void Type = "V"

// Boolean is the primitive boolean type.
const Boolean Type = "Z"

// MethodDescriptor is a parsed method descriptor.
type MethodDescriptor struct {
	Params []Type
	Return Type
}

// ParseMethodDescriptor parses a descriptor such as "(ILjava/lang/String;)V".
func ParseMethodDescriptor(desc string) (MethodDescriptor, error) {
	var md MethodDescriptor
	if !strings.HasPrefix(desc, "(") {
		return md, fmt.Errorf("%w: method descriptor %q does not start with '('", ErrMalformed, desc)
	}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		t, n, err := parseFieldType(desc[i:])
		if err != nil {
			return md, fmt.Errorf("%w: method descriptor %q: %v", ErrMalformed, desc, err)
		}
		md.Params = append(md.Params, t)
		i += n
	}
	if i >= len(desc) {
		return md, fmt.Errorf("%w: method descriptor %q has no ')'", ErrMalformed, desc)
	}
	ret := desc[i+1:]
	if ret == string(Void) {
		md.Return = Void
		return md, nil
	}
	t, n, err := parseFieldType(ret)
	if err != nil || n != len(ret) {
		return md, fmt.Errorf("%w: method descriptor %q has a bad return type", ErrMalformed, desc)
	}
	md.Return = t
	return md, nil
}

func parseFieldType(s string) (Type, int, error) {
	dims := 0
	for dims < len(s) && s[dims] == '[' {
		dims++
	}
	if dims >= len(s) {
		return "", 0, fmt.Errorf("truncated type %q", s)
	}
	switch s[dims] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return Type(s[:dims+1]), dims + 1, nil
	case 'L':
		end := strings.IndexByte(s[dims:], ';')
		if end < 0 {
			return "", 0, fmt.Errorf("unterminated class type %q", s)
		}
		n := dims + end + 1
		return Type(s[:n]), n, nil
	default:
		return "", 0, fmt.Errorf("unknown type tag %q", s[dims])
	}
}

var primitiveNames = map[byte]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'Z': "boolean",
	'V': "void",
}

// SourceName renders the type the way it would appear in source, with
// internal names converted to dotted form.
func (t Type) SourceName() string {
	s := string(t)
	dims := 0
	for dims < len(s) && s[dims] == '[' {
		dims++
	}
	if dims >= len(s) {
		return s
	}
	var base string
	if s[dims] == 'L' {
		base = strings.ReplaceAll(strings.TrimSuffix(s[dims+1:], ";"), "/", ".")
	} else if name, ok := primitiveNames[s[dims]]; ok {
		base = name
	} else {
		base = s[dims:]
	}
	return base + strings.Repeat("[]", dims)
}
