package jit

import "math"

// ArgType tags the width and the register class of one call argument.
type ArgType byte

const (
	ArgTypeByte ArgType = iota
	ArgTypeWord
	ArgTypeDWord
	ArgTypeQWord
	ArgTypePtr
	ArgTypeFloat32
	ArgTypeFloat64
)

// String implements fmt.Stringer.
func (t ArgType) String() string {
	switch t {
	case ArgTypeByte:
		return "byte"
	case ArgTypeWord:
		return "word"
	case ArgTypeDWord:
		return "dword"
	case ArgTypeQWord:
		return "qword"
	case ArgTypePtr:
		return "ptr"
	case ArgTypeFloat32:
		return "float32"
	case ArgTypeFloat64:
		return "float64"
	}
	return "unknown"
}

// isFloat routes the argument to the floating-point register class.
func (t ArgType) isFloat() bool {
	return t == ArgTypeFloat32 || t == ArgTypeFloat64
}

// Arg holds the raw bit pattern of one argument tagged with its type.
// Construct Args only through the typed constructors below so the tag and the
// stored bits stay paired.
type Arg struct {
	typ  ArgType
	bits uint64
}

// Type returns the tag of the argument.
func (a Arg) Type() ArgType { return a.typ }

// Bits returns the raw bit pattern of the argument.
func (a Arg) Bits() uint64 { return a.bits }

// Uint8 returns a byte-typed argument.
func Uint8(v uint8) Arg { return Arg{typ: ArgTypeByte, bits: uint64(v)} }

// Uint16 returns a word-typed argument.
func Uint16(v uint16) Arg { return Arg{typ: ArgTypeWord, bits: uint64(v)} }

// Uint32 returns a double-word-typed argument.
func Uint32(v uint32) Arg { return Arg{typ: ArgTypeDWord, bits: uint64(v)} }

// Uint64 returns a quad-word-typed argument.
func Uint64(v uint64) Arg { return Arg{typ: ArgTypeQWord, bits: v} }

// Uintptr returns a pointer-typed argument. The value is carried as an opaque
// integer and is not dereferenced until the generated call runs.
func Uintptr(v uintptr) Arg { return Arg{typ: ArgTypePtr, bits: uint64(v)} }

// Float32 returns a 32-bit floating-point argument.
func Float32(v float32) Arg { return Arg{typ: ArgTypeFloat32, bits: uint64(math.Float32bits(v))} }

// Float64 returns a 64-bit floating-point argument.
func Float64(v float64) Arg { return Arg{typ: ArgTypeFloat64, bits: math.Float64bits(v)} }

// CallDescriptor describes one native call to generate a trampoline for: the
// arguments in source order, the address to call, and the calling convention
// the target expects. Descriptors are transient; they are read once during
// compilation.
type CallDescriptor struct {
	Conv   CallingConvention
	Target uintptr
	Args   []Arg
}
