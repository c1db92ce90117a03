package amd64

import (
	"github.com/jitcall/jitcall/internal/asm"
)

// Assembler is the interface used by the trampoline compiler to assemble
// amd64 code.
type Assembler interface {
	asm.AssemblerBase
}

// NewAssembler returns a new Assembler backed by the homemade encoder, which
// produces the byte sequences documented in opcodes.go.
func NewAssembler() Assembler {
	return &assemblerImpl{}
}

// NewGolangAsmAssembler returns an Assembler backed by twitchyliquid64/golang-asm.
// The produced code is valid amd64 but not byte-identical to the homemade
// encoder, as the toolchain is free to pick width-optimized forms.
func NewGolangAsmAssembler() (Assembler, error) {
	return newGolangAsmAssembler()
}
