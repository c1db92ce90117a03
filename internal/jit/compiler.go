package jit

import (
	"errors"
	"fmt"

	"github.com/jitcall/jitcall/internal/asm"
	"github.com/jitcall/jitcall/internal/asm/amd64"
)

// ErrUnsupportedArg reports an argument configuration this generator has no
// encoding for: floating-point immediates moved into a register, and 64-bit
// or floating-point values pushed onto the stack. Surfacing these keeps a
// half-placed argument list from silently corrupting the generated call.
var ErrUnsupportedArg = errors.New("unsupported argument configuration")

// trampolineFrameSize is the scratch area reserved below the frame base.
// Win64 requires it as callee-accessible shadow space; it is reserved
// unconditionally so both conventions share one prologue.
const trampolineFrameSize = 0x20

// compiler emits one trampoline through its assembler. A compiler owns its
// code buffer exclusively and is single-use: compile finalizes the buffer
// and hands the bytes to the caller exactly once.
type compiler struct {
	assembler amd64.Assembler
}

func newCompiler() *compiler {
	return &compiler{assembler: amd64.NewAssembler()}
}

// CompileTrampoline builds a function that forwards the described argument
// list to desc.Target under desc.Conv and returns its machine code. The
// returned buffer is not yet executable; see Engine.Compile for mapping it.
func CompileTrampoline(desc *CallDescriptor) ([]byte, error) {
	c := newCompiler()
	c.compilePreamble()
	if err := c.compileCallSite(desc); err != nil {
		return nil, err
	}
	c.compilePostamble()
	return c.assembler.Assemble()
}

// compilePreamble establishes the trampoline's frame: save the frame base,
// adopt the stack pointer, and reserve the scratch/shadow area.
func (c *compiler) compilePreamble() {
	c.assembler.CompileRegisterToNone(amd64.PUSHQ, amd64.REG_BP)
	c.assembler.CompileRegisterToRegister(amd64.MOVQ, amd64.REG_SP, amd64.REG_BP)
	c.assembler.CompileConstToRegister(amd64.SUBQ, trampolineFrameSize, amd64.REG_SP)
}

// compilePostamble releases the frame and returns.
func (c *compiler) compilePostamble() {
	c.assembler.CompileConstToRegister(amd64.ADDQ, trampolineFrameSize, amd64.REG_SP)
	c.assembler.CompileNoneToRegister(amd64.POPQ, amd64.REG_BP)
	c.assembler.CompileStandAlone(amd64.RET)
}

// compileCallSite emits the instructions realizing the call: classify the
// arguments, place the leading ones in registers, push the tail, then
// materialize the target address and call through it.
func (c *compiler) compileCallSite(desc *CallDescriptor) error {
	intParams := desc.Conv.intParamRegisters()
	floatParams := desc.Conv.floatParamRegisters()

	// Forward pass: assign arguments to registers in source order until
	// either class runs out. lastInt and lastFloat remember the final
	// argument index each class placed, so the stack pass below knows where
	// the register span ends. Assignment is monotonic: once a class
	// overflows, the remaining tail of the argument list is pushed.
	numInt, numFloat := 0, 0
	lastInt, lastFloat := -1, -1

assign:
	for i, arg := range desc.Args {
		var dst asm.Register
		switch isFloat := arg.typ.isFloat(); {
		case isFloat && numFloat < len(floatParams):
			dst = floatParams[numFloat]
			numFloat++
			lastFloat = i
		case !isFloat && numInt < len(intParams):
			dst = intParams[numInt]
			numInt++
			lastInt = i
		default:
			break assign
		}

		if amd64.IsExtendedRegister(dst) {
			// The narrow immediate-move forms address only the first eight
			// registers in this encoder, so R8-R15 always take the 64-bit
			// move regardless of the argument's declared width.
			c.assembler.CompileConstToRegister(amd64.MOVQ, int64(arg.bits), dst)
			continue
		}

		switch arg.typ {
		case ArgTypeByte, ArgTypeWord, ArgTypeDWord:
			c.assembler.CompileConstToRegister(amd64.MOVL, int64(arg.bits), dst)
		case ArgTypeQWord, ArgTypePtr:
			c.assembler.CompileConstToRegister(amd64.MOVQ, int64(arg.bits), dst)
		case ArgTypeFloat32, ArgTypeFloat64:
			return fmt.Errorf("%w: %s immediate into register %s",
				ErrUnsupportedArg, arg.typ, amd64.RegisterName(dst))
		}
	}

	// Reverse pass: push the remaining arguments last-first so the first
	// stack argument ends up lowest, which is the layout the callee expects.
	// The walk stops at the last register-placed index of the argument's own
	// class; everything from there backward is already in a register.
	for i := len(desc.Args) - 1; i >= 0; i-- {
		arg := desc.Args[i]
		if isFloat := arg.typ.isFloat(); (isFloat && i == lastFloat) || (!isFloat && i == lastInt) {
			break
		}

		switch arg.typ {
		case ArgTypeByte:
			c.assembler.CompileConstToNone(amd64.PUSHB, int64(arg.bits))
		case ArgTypeWord, ArgTypeDWord, ArgTypeFloat32:
			// No native 16-bit push form is used; words widen to the 32-bit
			// push.
			c.assembler.CompileConstToNone(amd64.PUSHL, int64(arg.bits))
		case ArgTypeQWord, ArgTypePtr, ArgTypeFloat64:
			return fmt.Errorf("%w: %s pushed onto the stack", ErrUnsupportedArg, arg.typ)
		}
	}

	// Materialize the absolute target in a register outside the argument
	// lists, then call through it.
	c.assembler.CompileConstToRegister(amd64.MOVQ, int64(desc.Target), amd64.REG_AX)
	c.assembler.CompileNoneToRegister(amd64.CALLQ, amd64.REG_AX)
	return nil
}
