package amd64

// x86-64 instruction layout:
//
//	-------------------------------------------------------------------------------------
//	| Field: |   REX    |     Opcode     | ModR/M |   SIB    | Displacement | Immediate |
//	|--------|----------|----------------|--------|----------|--------------|-----------|
//	| Size:  |   0-1    |      1-3       |  0-1   |   0-1    |   0,1,2,4    |  0,1,2,4  |
//	|--------|----------|----------------|--------|----------|--------------|-----------|
//	| Bits:  | 0100WRXB | <op>           | mod: 2 | scale: 2 |              |           |
//	|        |          | 0x0F <op>      | reg: 3 | index: 3 |              |           |
//	|        |          | 0x0F 0x38 <op> | r/m: 3 | base:  3 |              |           |
//	-------------------------------------------------------------------------------------
//
// REX.W selects 64-bit operand size; REX.R, REX.X and REX.B extend the
// ModR/M <reg>, SIB <index> and ModR/M <r/m> fields to 16 registers.
const (
	rexPrefix byte = 0x40
	rexW      byte = 0x08
	rexR      byte = 0x04
	rexB      byte = 0x01
)

// ModR/M mode bits. Mode b11 addresses a register directly; modes b01 and b10
// select an 8-bit and a 32-bit displacement from the base register.
const (
	modDisp8    byte = 0x40
	modDisp32   byte = 0x80
	modRegister byte = 0xC0
)

// Opcode bytes for the instruction forms emitted by this assembler.
const (
	opcodePushImm32    byte = 0x68 // 68 id
	opcodePushImm8     byte = 0x6A // 6A ib
	opcodePushReg      byte = 0x50 // 50 +rq
	opcodePopReg       byte = 0x58 // 58 +rq
	opcodeALUImm32     byte = 0x81 // 81 /0 id (add), 81 /5 id (sub)
	opcodeDivRM        byte = 0xF7 // F7 /6
	opcodeMovRegImm8   byte = 0xB0 // B0 +rb ib (narrow form, defined but not selected)
	opcodeMovRegImm    byte = 0xB8 // [REX.W] B8 +rd id/io
	opcodeMovMemImm32  byte = 0xC7 // C7 /0 id
	opcodeMovRMReg     byte = 0x89 // 89 /r
	opcodeCallRM       byte = 0xFF // FF /2
	opcodeRetNear      byte = 0xC3 // C3
	opcodeRetNearImm16 byte = 0xC2 // C2 iw
	opcodeRetFar       byte = 0xCB // CB
	opcodeRetFarImm16  byte = 0xCA // CA iw
	opcodeNop          byte = 0x90 // 90
)

// ModR/M <reg> opcode extensions (the /digit in the opcode column above).
const (
	regOpcodeAdd  byte = 0
	regOpcodeCall byte = 2
	regOpcodeSub  byte = 5
	regOpcodeDiv  byte = 6
)
