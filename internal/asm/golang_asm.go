package asm

import "github.com/twitchyliquid64/golang-asm/obj"

// GolangAsmNode implements Node for golang-asm library.
type GolangAsmNode struct {
	prog *obj.Prog
}

// NewGolangAsmNode wraps a golang-asm Prog as a Node.
func NewGolangAsmNode(p *obj.Prog) Node {
	return &GolangAsmNode{prog: p}
}

// String implements fmt.Stringer.
func (n *GolangAsmNode) String() string {
	return n.prog.String()
}

// OffsetInBinary implements Node.OffsetInBinary.
func (n *GolangAsmNode) OffsetInBinary() int64 {
	return n.prog.Pc
}

// AssignSourceConstant implements Node.AssignSourceConstant.
func (n *GolangAsmNode) AssignSourceConstant(value int64) {
	n.prog.From.Offset = value
}
