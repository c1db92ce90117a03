package jit

import (
	"github.com/jitcall/jitcall/internal/asm"
	"github.com/jitcall/jitcall/internal/asm/amd64"
)

// CallingConvention selects the register tables and shadow-space rule the
// generated call follows. The two x86-64 conventions differ in both the
// content and the length of their argument-register lists; see
// https://en.wikipedia.org/wiki/X86_calling_conventions#List_of_x86_calling_conventions
type CallingConvention byte

const (
	// Win64 is the Microsoft x64 calling convention.
	Win64 CallingConvention = iota
	// SystemV is the System V AMD64 ABI (Solaris, Linux, BSD, macOS).
	SystemV
)

// String implements fmt.Stringer.
func (c CallingConvention) String() string {
	switch c {
	case Win64:
		return "Win64"
	case SystemV:
		return "SystemV"
	}
	return "Unknown"
}

// Registers that receive the first couple of arguments, in argument order.
// These tables are immutable; they are read-only for the process lifetime.
var (
	win64IntParamRegisters = []asm.Register{
		amd64.REG_CX, amd64.REG_DX, amd64.REG_R8, amd64.REG_R9,
	}
	win64FloatParamRegisters = []asm.Register{
		amd64.REG_X0, amd64.REG_X1, amd64.REG_X2, amd64.REG_X3,
	}
	systemVIntParamRegisters = []asm.Register{
		amd64.REG_DI, amd64.REG_SI, amd64.REG_DX, amd64.REG_CX, amd64.REG_R8, amd64.REG_R9,
	}
	systemVFloatParamRegisters = []asm.Register{
		amd64.REG_X0, amd64.REG_X1, amd64.REG_X2, amd64.REG_X3,
		amd64.REG_X4, amd64.REG_X5, amd64.REG_X6, amd64.REG_X7,
	}
)

// intParamRegisters returns the ordered integer-class argument registers.
func (c CallingConvention) intParamRegisters() []asm.Register {
	if c == Win64 {
		return win64IntParamRegisters
	}
	return systemVIntParamRegisters
}

// floatParamRegisters returns the ordered floating-point-class argument registers.
func (c CallingConvention) floatParamRegisters() []asm.Register {
	if c == Win64 {
		return win64FloatParamRegisters
	}
	return systemVFloatParamRegisters
}

// ShadowSpaceSize returns the stack area in bytes the convention requires the
// caller to reserve for the callee to spill its register arguments: 32 bytes
// for Win64, none for System V.
func (c CallingConvention) ShadowSpaceSize() int64 {
	if c == Win64 {
		return 32
	}
	return 0
}
