package amd64

import (
	"fmt"

	goasm "github.com/twitchyliquid64/golang-asm"
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"github.com/jitcall/jitcall/internal/asm"
)

// assemblerGoAsmImpl implements Assembler on top of the golang-asm fork of
// the Go toolchain assembler. The toolchain selects its own encodings, so
// output is valid amd64 code without being byte-identical to assemblerImpl;
// the one form plan9 assembly cannot express (ret consuming an imm16) is
// reported as an error by Assemble.
type assemblerGoAsmImpl struct {
	asm.BaseAssemblerImpl

	b   *goasm.Builder
	err error
}

var _ Assembler = (*assemblerGoAsmImpl)(nil)

func newGolangAsmAssembler() (*assemblerGoAsmImpl, error) {
	b, err := goasm.NewBuilder("amd64", 1024)
	if err != nil {
		return nil, fmt.Errorf("failed to create a new assembly builder: %w", err)
	}
	return &assemblerGoAsmImpl{b: b}, nil
}

func (a *assemblerGoAsmImpl) newProg() (prog *obj.Prog) {
	return a.b.NewProg()
}

func (a *assemblerGoAsmImpl) addInstruction(next *obj.Prog) {
	a.b.AddInstruction(next)
}

// setErr records the first unsupported compile call so Assemble can report it.
func (a *assemblerGoAsmImpl) setErr(err error) {
	if a.err == nil {
		a.err = err
	}
}

// Assemble implements asm.AssemblerBase.
func (a *assemblerGoAsmImpl) Assemble() ([]byte, error) {
	if a.err != nil {
		return nil, a.err
	}
	code := a.b.Assemble()
	for _, cb := range a.OnGenerateCallbacks {
		if err := cb(code); err != nil {
			return nil, err
		}
	}
	return code, nil
}

// CompileStandAlone implements asm.AssemblerBase.CompileStandAlone.
func (a *assemblerGoAsmImpl) CompileStandAlone(instruction asm.Instruction) asm.Node {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction(instruction)
	a.addInstruction(p)
	return asm.NewGolangAsmNode(p)
}

// CompileConstToNone implements asm.AssemblerBase.CompileConstToNone.
func (a *assemblerGoAsmImpl) CompileConstToNone(instruction asm.Instruction, value int64) asm.Node {
	p := a.newProg()
	switch instruction {
	case PUSHB:
		p.As = x86.APUSHQ
		p.From.Type = obj.TYPE_CONST
		p.From.Offset = int64(int8(byte(value)))
	case PUSHL:
		// The toolchain picks the 8-bit or 32-bit push form from the
		// immediate's magnitude on its own. push imm sign-extends to 64 bits,
		// so hand it the signed reading of the bit pattern; otherwise values
		// with the high bit set exceed the imm32 range plan9 accepts.
		p.As = x86.APUSHQ
		p.From.Type = obj.TYPE_CONST
		p.From.Offset = int64(int32(uint32(value)))
	case RET, RETF:
		if value != 0 {
			a.setErr(fmt.Errorf("golang-asm cannot express %s with an imm16 operand", InstructionName(instruction)))
		}
		p.As = castAsGolangAsmInstruction(instruction)
	default:
		a.setErr(fmt.Errorf("%s is not supported for const-to-none", InstructionName(instruction)))
		p.As = obj.ANOP
	}
	a.addInstruction(p)
	return asm.NewGolangAsmNode(p)
}

// CompileRegisterToNone implements asm.AssemblerBase.CompileRegisterToNone.
func (a *assemblerGoAsmImpl) CompileRegisterToNone(instruction asm.Instruction, register asm.Register) {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction(instruction)
	p.From.Type = obj.TYPE_REG
	p.From.Reg = castAsGolangAsmRegister(register)
	p.To.Type = obj.TYPE_NONE
	a.addInstruction(p)
}

// CompileNoneToRegister implements asm.AssemblerBase.CompileNoneToRegister.
func (a *assemblerGoAsmImpl) CompileNoneToRegister(instruction asm.Instruction, register asm.Register) {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction(instruction)
	p.To.Type = obj.TYPE_REG
	p.To.Reg = castAsGolangAsmRegister(register)
	p.From.Type = obj.TYPE_NONE
	a.addInstruction(p)
}

// CompileConstToRegister implements asm.AssemblerBase.CompileConstToRegister.
func (a *assemblerGoAsmImpl) CompileConstToRegister(instruction asm.Instruction, value int64, destinationReg asm.Register) asm.Node {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction(instruction)
	p.From.Type = obj.TYPE_CONST
	p.From.Offset = value
	p.To.Type = obj.TYPE_REG
	p.To.Reg = castAsGolangAsmRegister(destinationReg)
	a.addInstruction(p)
	return asm.NewGolangAsmNode(p)
}

// CompileRegisterToRegister implements asm.AssemblerBase.CompileRegisterToRegister.
func (a *assemblerGoAsmImpl) CompileRegisterToRegister(instruction asm.Instruction, from, to asm.Register) {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction(instruction)
	p.From.Type = obj.TYPE_REG
	p.From.Reg = castAsGolangAsmRegister(from)
	p.To.Type = obj.TYPE_REG
	p.To.Reg = castAsGolangAsmRegister(to)
	a.addInstruction(p)
}

// CompileRegisterToMemory implements asm.AssemblerBase.CompileRegisterToMemory.
func (a *assemblerGoAsmImpl) CompileRegisterToMemory(instruction asm.Instruction, sourceRegister, destinationBaseRegister asm.Register, destinationOffsetConst int64) {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction(instruction)
	p.From.Type = obj.TYPE_REG
	p.From.Reg = castAsGolangAsmRegister(sourceRegister)
	p.To.Type = obj.TYPE_MEM
	p.To.Reg = castAsGolangAsmRegister(destinationBaseRegister)
	p.To.Offset = destinationOffsetConst
	a.addInstruction(p)
}

// CompileConstToMemory implements asm.AssemblerBase.CompileConstToMemory.
func (a *assemblerGoAsmImpl) CompileConstToMemory(instruction asm.Instruction, value int64, destinationBaseReg asm.Register, destinationOffsetConst int64) asm.Node {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction(instruction)
	p.From.Type = obj.TYPE_CONST
	p.From.Offset = value
	p.To.Type = obj.TYPE_MEM
	p.To.Reg = castAsGolangAsmRegister(destinationBaseReg)
	p.To.Offset = destinationOffsetConst
	a.addInstruction(p)
	return asm.NewGolangAsmNode(p)
}

// castAsGolangAsmInstruction maps our instruction constants onto golang-asm
// opcodes. The indirect call is obj.ACALL with a register destination.
func castAsGolangAsmInstruction(instruction asm.Instruction) obj.As {
	switch instruction {
	case NOP:
		return obj.ANOP
	case RET:
		return obj.ARET
	case RETF:
		// RETFL is the 32-bit-operand far return, plain 0xCB.
		return x86.ARETFL
	case CALLQ:
		return obj.ACALL
	case ADDQ:
		return x86.AADDQ
	case SUBQ:
		return x86.ASUBQ
	case DIVQ:
		return x86.ADIVQ
	case MOVL:
		return x86.AMOVL
	case MOVQ:
		return x86.AMOVQ
	case POPQ:
		return x86.APOPQ
	case PUSHB, PUSHL, PUSHQ:
		return x86.APUSHQ
	}
	return obj.AXXX
}

// castAsGolangAsmRegister maps our register constants onto golang-asm's.
// Both enumerations list AX..R15 and X0..X15 consecutively, so the cast is a
// per-class offset.
func castAsGolangAsmRegister(reg asm.Register) int16 {
	if IsFloatRegister(reg) {
		return x86.REG_X0 + int16(reg-REG_X0)
	}
	return x86.REG_AX + int16(reg-REG_AX)
}
