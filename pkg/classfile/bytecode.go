package classfile

import (
	"encoding/binary"
	"fmt"
)

const (
	opTableSwitch     = 0xaa
	opLookupSwitch    = 0xab
	opInvokeVirtual   = 0xb6
	opInvokeSpecial   = 0xb7
	opInvokeStatic    = 0xb8
	opInvokeInterface = 0xb9
	opWide            = 0xc4
	opIinc            = 0x84
	opMax             = 0xc9
)

// opLengths holds the fixed instruction length (opcode included) for every
// defined opcode; 0 marks variable-length or undefined opcodes.
var opLengths = func() [256]uint8 {
	var t [256]uint8
	for op := 0x00; op <= opMax; op++ {
		t[op] = 1
	}
	set := func(n uint8, ops ...int) {
		for _, op := range ops {
			t[op] = n
		}
	}
	set(2, 0x10, 0x12, 0xa9, 0xbc)                   // bipush, ldc, ret, newarray
	set(2, 0x15, 0x16, 0x17, 0x18, 0x19)             // xload
	set(2, 0x36, 0x37, 0x38, 0x39, 0x3a)             // xstore
	set(3, 0x11, 0x13, 0x14, opIinc)                 // sipush, ldc_w, ldc2_w, iinc
	set(3, 0xb2, 0xb3, 0xb4, 0xb5)                   // field access
	set(3, opInvokeVirtual, opInvokeSpecial, opInvokeStatic)
	set(3, 0xbb, 0xbd, 0xc0, 0xc1, 0xc6, 0xc7)       // new, anewarray, checkcast, instanceof, ifnull, ifnonnull
	set(4, 0xc5)                                     // multianewarray
	set(5, opInvokeInterface, 0xba, 0xc8, 0xc9)      // invokeinterface, invokedynamic, goto_w, jsr_w
	for op := 0x99; op <= 0xa8; op++ {
		t[op] = 3 // conditional branches, goto, jsr
	}
	set(0, opTableSwitch, opLookupSwitch, opWide)
	return t
}()

// scanInvocations walks one method body and yields the target of every
// method invocation instruction. It returns false when yield asked to stop,
// and an error when an instruction cannot be decoded; the rest of the body
// is then skipped.
func scanInvocations(code []byte, pool *constantPool, yield func(MethodRef) bool) (bool, error) {
	pc := 0
	for pc < len(code) {
		op := code[pc]
		n := instructionLength(code, pc)
		if n <= 0 || pc+n > len(code) {
			return true, fmt.Errorf("undecodable instruction 0x%02x at offset %d", op, pc)
		}
		switch op {
		case opInvokeVirtual, opInvokeSpecial, opInvokeStatic, opInvokeInterface:
			idx := binary.BigEndian.Uint16(code[pc+1:])
			if ref, ok := pool.methodRef(idx); ok {
				if !yield(ref) {
					return false, nil
				}
			}
		}
		pc += n
	}
	return true, nil
}

// instructionLength returns the length of the instruction at pc, or 0 when
// it cannot be decoded.
func instructionLength(code []byte, pc int) int {
	op := code[pc]
	if n := opLengths[op]; n > 0 {
		return int(n)
	}
	switch op {
	case opWide:
		if pc+1 >= len(code) {
			return 0
		}
		if code[pc+1] == opIinc {
			return 6
		}
		return 4
	case opTableSwitch:
		base := switchOperands(pc)
		if base+12 > len(code) {
			return 0
		}
		low := int32(binary.BigEndian.Uint32(code[base+4:]))
		high := int32(binary.BigEndian.Uint32(code[base+8:]))
		if high < low {
			return 0
		}
		return base + 12 + int(high-low+1)*4 - pc
	case opLookupSwitch:
		base := switchOperands(pc)
		if base+8 > len(code) {
			return 0
		}
		pairs := int32(binary.BigEndian.Uint32(code[base+4:]))
		if pairs < 0 {
			return 0
		}
		return base + 8 + int(pairs)*8 - pc
	}
	return 0
}

// switchOperands returns the offset of the first 4-byte aligned operand
// following a switch opcode at pc.
func switchOperands(pc int) int {
	return (pc + 4) &^ 3
}
