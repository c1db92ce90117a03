// Package jitcall synthesizes x86-64 calling-convention trampolines at
// runtime: small generated functions that forward a fixed argument list to a
// target address under either the Microsoft x64 or the System V AMD64
// calling convention.
//
// The package produces two artifacts. CompileTrampoline returns the raw
// machine code of a trampoline as bytes, which is pure computation and works
// on any platform. Engine.Compile additionally maps that code into executable
// memory and returns an entry address, which requires running on amd64.
package jitcall

import (
	"runtime"

	"github.com/jitcall/jitcall/internal/jit"
)

// Types describing a call to generate. See the internal/jit package for the
// compilation pipeline behind them.
type (
	// ArgType tags the width and register class of one argument.
	ArgType = jit.ArgType
	// Arg is one argument value paired with its ArgType.
	Arg = jit.Arg
	// CallingConvention selects the ABI the generated call follows.
	CallingConvention = jit.CallingConvention
	// CallDescriptor is the ordered argument list, target address and
	// convention of one call.
	CallDescriptor = jit.CallDescriptor
	// Engine compiles trampolines into executable memory.
	Engine = jit.Engine
	// Trampoline is an executable generated function.
	Trampoline = jit.Trampoline
)

// Calling conventions.
const (
	Win64   = jit.Win64
	SystemV = jit.SystemV
)

// Argument types.
const (
	ArgTypeByte    = jit.ArgTypeByte
	ArgTypeWord    = jit.ArgTypeWord
	ArgTypeDWord   = jit.ArgTypeDWord
	ArgTypeQWord   = jit.ArgTypeQWord
	ArgTypePtr     = jit.ArgTypePtr
	ArgTypeFloat32 = jit.ArgTypeFloat32
	ArgTypeFloat64 = jit.ArgTypeFloat64
)

// ErrUnsupportedArg reports an argument configuration the generator has no
// encoding for yet; see the internal/jit package for the exact boundary.
var ErrUnsupportedArg = jit.ErrUnsupportedArg

// Uint8 returns a byte-typed argument.
func Uint8(v uint8) Arg { return jit.Uint8(v) }

// Uint16 returns a word-typed argument.
func Uint16(v uint16) Arg { return jit.Uint16(v) }

// Uint32 returns a double-word-typed argument.
func Uint32(v uint32) Arg { return jit.Uint32(v) }

// Uint64 returns a quad-word-typed argument.
func Uint64(v uint64) Arg { return jit.Uint64(v) }

// Uintptr returns a pointer-typed argument.
func Uintptr(v uintptr) Arg { return jit.Uintptr(v) }

// Float32 returns a 32-bit floating-point argument.
func Float32(v float32) Arg { return jit.Float32(v) }

// Float64 returns a 64-bit floating-point argument.
func Float64(v float64) Arg { return jit.Float64(v) }

// CompileTrampoline returns the machine code realizing desc without mapping
// it executable. Compiling the same descriptor twice yields identical bytes.
func CompileTrampoline(desc *CallDescriptor) ([]byte, error) {
	return jit.CompileTrampoline(desc)
}

// NewEngine returns an engine that compiles trampolines into executable
// memory and owns the resulting mappings.
func NewEngine() *Engine {
	return jit.NewEngine()
}

// DefaultCallingConvention returns the calling convention of the running
// platform. Generated code silently corrupts the callee's arguments when run
// under the other convention, so cross-compilation callers must choose
// explicitly.
func DefaultCallingConvention() CallingConvention {
	if runtime.GOOS == "windows" {
		return Win64
	}
	return SystemV
}
