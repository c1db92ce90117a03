// Package asm declares the architecture-neutral contract between the
// trampoline compiler and the machine-code assemblers.
package asm

import "fmt"

// Register represents architecture-specific registers.
type Register byte

// NilRegister is the only architecture-independent register, and
// can be used to indicate that no register is specified.
const NilRegister Register = 0

// Instruction represents architecture-specific instructions.
type Instruction byte

// Node represents a node in the linked list of assembled operations.
type Node interface {
	fmt.Stringer
	// OffsetInBinary returns the offset of this node in the assembled binary.
	OffsetInBinary() int64
	// AssignSourceConstant assigns the given constant as the source
	// operand of the instruction for this node.
	AssignSourceConstant(value int64)
}

// AssemblerBase is the common interface for assemblers among multiple architectures.
type AssemblerBase interface {
	// Assemble produces the final binary for the assembled operations.
	Assemble() ([]byte, error)
	// CompileStandAlone adds an instruction to take no operands.
	CompileStandAlone(instruction Instruction) Node
	// CompileConstToNone adds an instruction whose only operand is `value` as constant.
	CompileConstToNone(instruction Instruction, value int64) Node
	// CompileRegisterToNone adds an instruction whose only operand is `register`
	// as the source.
	CompileRegisterToNone(instruction Instruction, register Register)
	// CompileNoneToRegister adds an instruction whose only operand is `register`
	// as the destination.
	CompileNoneToRegister(instruction Instruction, register Register)
	// CompileConstToRegister adds an instruction where the source operand is
	// `value` as constant and the destination is `destinationReg` register.
	CompileConstToRegister(instruction Instruction, value int64, destinationReg Register) Node
	// CompileRegisterToRegister adds an instruction where source and destination
	// operands are registers.
	CompileRegisterToRegister(instruction Instruction, from, to Register)
	// CompileRegisterToMemory adds an instruction where the source operand is
	// `sourceRegister` and the destination is the memory address specified by
	// `destinationBaseRegister+destinationOffsetConst`.
	CompileRegisterToMemory(instruction Instruction, sourceRegister, destinationBaseRegister Register, destinationOffsetConst int64)
	// CompileConstToMemory adds an instruction where the source operand is
	// `value` as constant and the destination is the memory address specified
	// by `destinationBaseReg+destinationOffsetConst`.
	CompileConstToMemory(instruction Instruction, value int64, destinationBaseReg Register, destinationOffsetConst int64) Node
}

// BaseAssemblerImpl includes code common to all architectures.
type BaseAssemblerImpl struct {
	// OnGenerateCallbacks holds the callbacks which are called after generating native code.
	OnGenerateCallbacks []func(code []byte) error
}

// AddOnGenerateCallBack adds a callback invoked with the final binary.
func (a *BaseAssemblerImpl) AddOnGenerateCallBack(cb func([]byte) error) {
	a.OnGenerateCallbacks = append(a.OnGenerateCallbacks, cb)
}
