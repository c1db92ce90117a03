package amd64

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jitcall/jitcall/internal/asm"
)

// nodeImpl implements asm.Node for amd64.
type nodeImpl struct {
	instruction asm.Instruction

	// offsetInBinary represents the offset of this node in the final binary.
	offsetInBinary int64
	// next holds the next node from this node in the assembled linked list.
	next *nodeImpl

	types          operandTypes
	srcReg, dstReg asm.Register
	srcConst       int64
	dstMemOffset   int64
}

// OffsetInBinary implements asm.Node.OffsetInBinary.
func (n *nodeImpl) OffsetInBinary() int64 {
	return n.offsetInBinary
}

// AssignSourceConstant implements asm.Node.AssignSourceConstant.
func (n *nodeImpl) AssignSourceConstant(value int64) {
	n.srcConst = value
}

// String implements fmt.Stringer.
//
// This is for debugging purpose, and the format is similar to the AT&T assembly syntax,
// meaning that this should look like "INSTRUCTION ${from}, ${to}".
func (n *nodeImpl) String() (ret string) {
	instName := InstructionName(n.instruction)
	switch n.types {
	case operandTypesNoneToNone:
		ret = instName
	case operandTypesConstToNone:
		ret = fmt.Sprintf("%s $%#x", instName, n.srcConst)
	case operandTypesRegisterToNone:
		ret = fmt.Sprintf("%s %s", instName, RegisterName(n.srcReg))
	case operandTypesNoneToRegister:
		ret = fmt.Sprintf("%s %s", instName, RegisterName(n.dstReg))
	case operandTypesConstToRegister:
		ret = fmt.Sprintf("%s $%#x, %s", instName, n.srcConst, RegisterName(n.dstReg))
	case operandTypesRegisterToRegister:
		ret = fmt.Sprintf("%s %s, %s", instName, RegisterName(n.srcReg), RegisterName(n.dstReg))
	case operandTypesRegisterToMemory:
		ret = fmt.Sprintf("%s %s, [%s + %#x]", instName, RegisterName(n.srcReg), RegisterName(n.dstReg), n.dstMemOffset)
	case operandTypesConstToMemory:
		ret = fmt.Sprintf("%s $%#x, [%s + %#x]", instName, n.srcConst, RegisterName(n.dstReg), n.dstMemOffset)
	}
	return
}

type operandType byte

const (
	operandTypeNone operandType = iota
	operandTypeRegister
	operandTypeMemory
	operandTypeConst
)

func (o operandType) String() (ret string) {
	switch o {
	case operandTypeNone:
		ret = "none"
	case operandTypeRegister:
		ret = "register"
	case operandTypeMemory:
		ret = "memory"
	case operandTypeConst:
		ret = "const"
	}
	return
}

type operandTypes struct{ src, dst operandType }

var (
	operandTypesNoneToNone         = operandTypes{operandTypeNone, operandTypeNone}
	operandTypesNoneToRegister     = operandTypes{operandTypeNone, operandTypeRegister}
	operandTypesConstToNone        = operandTypes{operandTypeConst, operandTypeNone}
	operandTypesConstToRegister    = operandTypes{operandTypeConst, operandTypeRegister}
	operandTypesConstToMemory      = operandTypes{operandTypeConst, operandTypeMemory}
	operandTypesRegisterToNone     = operandTypes{operandTypeRegister, operandTypeNone}
	operandTypesRegisterToRegister = operandTypes{operandTypeRegister, operandTypeRegister}
	operandTypesRegisterToMemory   = operandTypes{operandTypeRegister, operandTypeMemory}
)

func (o operandTypes) String() string {
	return fmt.Sprintf("from:%s,to:%s", o.src, o.dst)
}

// assemblerImpl implements Assembler with the homemade encoder.
type assemblerImpl struct {
	asm.BaseAssemblerImpl

	root, current *nodeImpl
}

var _ Assembler = (*assemblerImpl)(nil)

// newNode creates a new Node and appends it into the linked list.
func (a *assemblerImpl) newNode(instruction asm.Instruction, srcType, dstType operandType) *nodeImpl {
	n := &nodeImpl{
		instruction: instruction,
		types:       operandTypes{src: srcType, dst: dstType},
	}
	a.addNode(n)
	return n
}

// addNode appends the new node into the linked list.
func (a *assemblerImpl) addNode(node *nodeImpl) {
	if a.root == nil {
		a.root = node
		a.current = node
	} else {
		parent := a.current
		parent.next = node
		a.current = node
	}
}

func (a *assemblerImpl) encodeNode(w io.Writer, n *nodeImpl) (err error) {
	switch n.types {
	case operandTypesNoneToNone:
		err = a.encodeNoneToNone(w, n)
	case operandTypesNoneToRegister:
		err = a.encodeNoneToRegister(w, n)
	case operandTypesConstToNone:
		err = a.encodeConstToNone(w, n)
	case operandTypesConstToRegister:
		err = a.encodeConstToRegister(w, n)
	case operandTypesConstToMemory:
		err = a.encodeConstToMemory(w, n)
	case operandTypesRegisterToNone:
		err = a.encodeRegisterToNone(w, n)
	case operandTypesRegisterToRegister:
		err = a.encodeRegisterToRegister(w, n)
	case operandTypesRegisterToMemory:
		err = a.encodeRegisterToMemory(w, n)
	default:
		err = fmt.Errorf("encoder undefined for [%s] operand type", n.types)
	}
	return
}

// Assemble implements asm.AssemblerBase.
func (a *assemblerImpl) Assemble() ([]byte, error) {
	w := bytes.NewBuffer(nil)

	for n := a.root; n != nil; n = n.next {
		n.offsetInBinary = int64(w.Len())
		if err := a.encodeNode(w, n); err != nil {
			return nil, err
		}
	}

	code := w.Bytes()
	for _, cb := range a.OnGenerateCallbacks {
		if err := cb(code); err != nil {
			return nil, err
		}
	}
	return code, nil
}

// CompileStandAlone implements asm.AssemblerBase.CompileStandAlone.
func (a *assemblerImpl) CompileStandAlone(instruction asm.Instruction) asm.Node {
	return a.newNode(instruction, operandTypeNone, operandTypeNone)
}

// CompileConstToNone implements asm.AssemblerBase.CompileConstToNone.
func (a *assemblerImpl) CompileConstToNone(instruction asm.Instruction, value int64) asm.Node {
	n := a.newNode(instruction, operandTypeConst, operandTypeNone)
	n.srcConst = value
	return n
}

// CompileRegisterToNone implements asm.AssemblerBase.CompileRegisterToNone.
func (a *assemblerImpl) CompileRegisterToNone(instruction asm.Instruction, register asm.Register) {
	n := a.newNode(instruction, operandTypeRegister, operandTypeNone)
	n.srcReg = register
}

// CompileNoneToRegister implements asm.AssemblerBase.CompileNoneToRegister.
func (a *assemblerImpl) CompileNoneToRegister(instruction asm.Instruction, register asm.Register) {
	n := a.newNode(instruction, operandTypeNone, operandTypeRegister)
	n.dstReg = register
}

// CompileConstToRegister implements asm.AssemblerBase.CompileConstToRegister.
func (a *assemblerImpl) CompileConstToRegister(instruction asm.Instruction, value int64, destinationReg asm.Register) asm.Node {
	n := a.newNode(instruction, operandTypeConst, operandTypeRegister)
	n.srcConst = value
	n.dstReg = destinationReg
	return n
}

// CompileRegisterToRegister implements asm.AssemblerBase.CompileRegisterToRegister.
func (a *assemblerImpl) CompileRegisterToRegister(instruction asm.Instruction, from, to asm.Register) {
	n := a.newNode(instruction, operandTypeRegister, operandTypeRegister)
	n.srcReg = from
	n.dstReg = to
}

// CompileRegisterToMemory implements asm.AssemblerBase.CompileRegisterToMemory.
func (a *assemblerImpl) CompileRegisterToMemory(instruction asm.Instruction, sourceRegister, destinationBaseRegister asm.Register, destinationOffsetConst int64) {
	n := a.newNode(instruction, operandTypeRegister, operandTypeMemory)
	n.srcReg = sourceRegister
	n.dstReg = destinationBaseRegister
	n.dstMemOffset = destinationOffsetConst
}

// CompileConstToMemory implements asm.AssemblerBase.CompileConstToMemory.
func (a *assemblerImpl) CompileConstToMemory(instruction asm.Instruction, value int64, destinationBaseReg asm.Register, destinationOffsetConst int64) asm.Node {
	n := a.newNode(instruction, operandTypeConst, operandTypeMemory)
	n.srcConst = value
	n.dstReg = destinationBaseReg
	n.dstMemOffset = destinationOffsetConst
	return n
}

func (a *assemblerImpl) encodeNoneToNone(w io.Writer, n *nodeImpl) error {
	switch n.instruction {
	case NOP:
		return writeByte(w, opcodeNop)
	case RET:
		return writeByte(w, opcodeRetNear)
	case RETF:
		return writeByte(w, opcodeRetFar)
	}
	return errorEncodingUnsupported(n)
}

func (a *assemblerImpl) encodeConstToNone(w io.Writer, n *nodeImpl) (err error) {
	switch n.instruction {
	case PUSHB:
		if err = writeByte(w, opcodePushImm8); err != nil {
			return
		}
		err = writeByte(w, byte(n.srcConst))
	case PUSHL:
		if err = writeByte(w, opcodePushImm32); err != nil {
			return
		}
		err = writeDWord(w, uint32(n.srcConst))
	case RET:
		// The imm16-consuming form is only worth a longer encoding when the
		// callee actually releases stack bytes.
		if n.srcConst == 0 {
			return writeByte(w, opcodeRetNear)
		}
		if err = writeByte(w, opcodeRetNearImm16); err != nil {
			return
		}
		err = writeWord(w, uint16(n.srcConst))
	case RETF:
		if n.srcConst == 0 {
			return writeByte(w, opcodeRetFar)
		}
		if err = writeByte(w, opcodeRetFarImm16); err != nil {
			return
		}
		err = writeWord(w, uint16(n.srcConst))
	default:
		err = errorEncodingUnsupported(n)
	}
	return
}

func (a *assemblerImpl) encodeRegisterToNone(w io.Writer, n *nodeImpl) (err error) {
	switch n.instruction {
	case PUSHQ:
		// 64-bit operand size is the default for push, so no REX.W is needed.
		err = writeByte(w, opcodePushReg|registerBits(n.srcReg))
	case DIVQ:
		if err = writeREXOpt(w, n.srcReg); err != nil {
			return
		}
		if err = writeByte(w, opcodeDivRM); err != nil {
			return
		}
		err = writeByte(w, modRegister|regOpcodeDiv<<3|registerBits(n.srcReg))
	default:
		err = errorEncodingUnsupported(n)
	}
	return
}

func (a *assemblerImpl) encodeNoneToRegister(w io.Writer, n *nodeImpl) (err error) {
	switch n.instruction {
	case POPQ:
		err = writeByte(w, opcodePopReg|registerBits(n.dstReg))
	case CALLQ:
		if err = writeByte(w, opcodeCallRM); err != nil {
			return
		}
		err = writeByte(w, modRegister|regOpcodeCall<<3|registerBits(n.dstReg))
	default:
		err = errorEncodingUnsupported(n)
	}
	return
}

func (a *assemblerImpl) encodeConstToRegister(w io.Writer, n *nodeImpl) (err error) {
	switch n.instruction {
	case MOVL:
		// The 32-bit immediate move never takes a REX prefix, so it only
		// addresses the first eight registers. Callers route extended
		// destinations through MOVQ.
		if err = writeByte(w, opcodeMovRegImm|registerBits(n.dstReg)); err != nil {
			return
		}
		err = writeDWord(w, uint32(n.srcConst))
	case MOVQ:
		if err = writeREXOpt(w, n.dstReg); err != nil {
			return
		}
		if err = writeByte(w, opcodeMovRegImm|registerBits(n.dstReg)); err != nil {
			return
		}
		err = writeQWord(w, uint64(n.srcConst))
	case ADDQ:
		err = a.encodeALUConstToRegister(w, n, regOpcodeAdd)
	case SUBQ:
		err = a.encodeALUConstToRegister(w, n, regOpcodeSub)
	default:
		err = errorEncodingUnsupported(n)
	}
	return
}

func (a *assemblerImpl) encodeALUConstToRegister(w io.Writer, n *nodeImpl, regOpcode byte) (err error) {
	if err = writeREXOpt(w, n.dstReg); err != nil {
		return
	}
	if err = writeByte(w, opcodeALUImm32); err != nil {
		return
	}
	if err = writeByte(w, modRegister|regOpcode<<3|registerBits(n.dstReg)); err != nil {
		return
	}
	return writeDWord(w, uint32(n.srcConst))
}

func (a *assemblerImpl) encodeRegisterToRegister(w io.Writer, n *nodeImpl) (err error) {
	switch n.instruction {
	case MOVQ:
		if err = writeREXOpt(w, n.dstReg); err != nil {
			return
		}
		if err = writeByte(w, opcodeMovRMReg); err != nil {
			return
		}
		err = writeByte(w, modRegister|registerBits(n.srcReg)<<3|registerBits(n.dstReg))
	default:
		err = errorEncodingUnsupported(n)
	}
	return
}

func (a *assemblerImpl) encodeRegisterToMemory(w io.Writer, n *nodeImpl) (err error) {
	switch n.instruction {
	case MOVQ:
		if err = writeREXOpt(w, n.srcReg); err != nil {
			return
		}
		if err = writeByte(w, opcodeMovRMReg); err != nil {
			return
		}
		if err = writeByte(w, displacementMode(n.dstMemOffset)|registerBits(n.srcReg)<<3|registerBits(n.dstReg)); err != nil {
			return
		}
		err = writeDisplacement(w, n.dstMemOffset)
	default:
		err = errorEncodingUnsupported(n)
	}
	return
}

func (a *assemblerImpl) encodeConstToMemory(w io.Writer, n *nodeImpl) (err error) {
	switch n.instruction {
	case MOVL:
		if err = writeREXOpt(w, n.dstReg); err != nil {
			return
		}
		if err = writeByte(w, opcodeMovMemImm32); err != nil {
			return
		}
		if err = writeByte(w, displacementMode(n.dstMemOffset)|registerBits(n.dstReg)); err != nil {
			return
		}
		if err = writeDisplacement(w, n.dstMemOffset); err != nil {
			return
		}
		err = writeDWord(w, uint32(n.srcConst))
	default:
		err = errorEncodingUnsupported(n)
	}
	return
}

// writeREXOpt emits a REX prefix only when at least one of its bits is
// needed: REX.W for a 64-bit general-purpose register, plus REX.B when that
// register is one of the extended eight. A bare 0x40 prefix is never emitted.
func writeREXOpt(w io.Writer, reg asm.Register) error {
	var prefix byte
	if is64BitRegister(reg) {
		prefix |= rexW
		if IsExtendedRegister(reg) {
			prefix |= rexB
		}
	}
	if prefix != 0 {
		return writeByte(w, rexPrefix|prefix)
	}
	return nil
}

// displacementMode returns the ModR/M mode bits selected by the magnitude of
// the memory-operand offset: no displacement, disp8 up to 255, disp32 above.
// Offsets are treated as unsigned 32-bit, so negative values take the disp32
// form.
func displacementMode(offset int64) byte {
	switch off := uint32(offset); {
	case off == 0:
		return 0
	case off <= 0xff:
		return modDisp8
	default:
		return modDisp32
	}
}

// writeDisplacement emits the displacement bytes matching displacementMode.
func writeDisplacement(w io.Writer, offset int64) error {
	switch off := uint32(offset); {
	case off == 0:
		return nil
	case off <= 0xff:
		return writeByte(w, byte(off))
	default:
		return writeDWord(w, off)
	}
}

func errorEncodingUnsupported(n *nodeImpl) error {
	return fmt.Errorf("%s is not supported for [%s] operand type", InstructionName(n.instruction), n.types)
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func writeWord(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeDWord(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeQWord(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}
