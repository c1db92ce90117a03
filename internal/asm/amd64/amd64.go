// Package amd64 implements the assemblers for the x86-64 architecture.
//
// Two implementations of Assembler exist: the homemade encoder in impl.go,
// which emits the exact byte sequences the trampoline compiler is specified
// against, and a backend over twitchyliquid64/golang-asm in golang_asm.go
// which picks encodings the Go toolchain way.
package amd64

import (
	"strconv"

	"github.com/jitcall/jitcall/internal/asm"
)

// amd64-specific instructions used by the trampoline compiler.
//
// Note: naming follows the Go assembler: the width suffix is the operand
// width, so MOVL moves a 32-bit immediate and MOVQ a 64-bit one.
const (
	NOP asm.Instruction = iota
	ADDQ
	CALLQ
	DIVQ
	MOVL
	MOVQ
	POPQ
	PUSHB
	PUSHL
	PUSHQ
	RET
	RETF
	SUBQ
)

// InstructionName returns the name for an instruction.
func InstructionName(instruction asm.Instruction) string {
	switch instruction {
	case NOP:
		return "NOP"
	case ADDQ:
		return "ADDQ"
	case CALLQ:
		return "CALLQ"
	case DIVQ:
		return "DIVQ"
	case MOVL:
		return "MOVL"
	case MOVQ:
		return "MOVQ"
	case POPQ:
		return "POPQ"
	case PUSHB:
		return "PUSHB"
	case PUSHL:
		return "PUSHL"
	case PUSHQ:
		return "PUSHQ"
	case RET:
		return "RET"
	case RETF:
		return "RETF"
	case SUBQ:
		return "SUBQ"
	}
	return "Unknown"
}

// amd64-specific registers.
const (
	// REG_AX through REG_R15 are the 64-bit general-purpose registers.
	REG_AX asm.Register = asm.NilRegister + 1 + iota
	REG_CX
	REG_DX
	REG_BX
	REG_SP
	REG_BP
	REG_SI
	REG_DI
	REG_R8
	REG_R9
	REG_R10
	REG_R11
	REG_R12
	REG_R13
	REG_R14
	REG_R15

	// REG_X0 through REG_X15 are the XMM floating-point registers.
	REG_X0
	REG_X1
	REG_X2
	REG_X3
	REG_X4
	REG_X5
	REG_X6
	REG_X7
	REG_X8
	REG_X9
	REG_X10
	REG_X11
	REG_X12
	REG_X13
	REG_X14
	REG_X15
)

// IsExtendedRegister returns true if the register is one of R8-R15, which
// need the REX.B extension bit in the encodings used here.
func IsExtendedRegister(reg asm.Register) bool {
	return reg >= REG_R8 && reg <= REG_R15
}

// IsFloatRegister returns true if the register belongs to the XMM
// floating-point class.
func IsFloatRegister(reg asm.Register) bool {
	return reg >= REG_X0 && reg <= REG_X15
}

// is64BitRegister returns true for the 64-bit general-purpose registers.
func is64BitRegister(reg asm.Register) bool {
	return reg >= REG_AX && reg <= REG_R15
}

// registerBits returns the low three bits of the register's encoding index as
// used in the opcode-embedded-register and ModR/M fields. The fourth bit of
// extended registers travels in the REX prefix instead.
func registerBits(reg asm.Register) byte {
	if IsFloatRegister(reg) {
		return byte(reg-REG_X0) & 0x7
	}
	return byte(reg-REG_AX) & 0x7
}

var intRegisterNames = [...]string{
	"AX", "CX", "DX", "BX", "SP", "BP", "SI", "DI",
	"R8", "R9", "R10", "R11", "R12", "R13", "R14", "R15",
}

// RegisterName returns the name for a register.
func RegisterName(reg asm.Register) string {
	switch {
	case is64BitRegister(reg):
		return intRegisterNames[reg-REG_AX]
	case IsFloatRegister(reg):
		return "X" + strconv.Itoa(int(reg-REG_X0))
	}
	return "nil"
}
