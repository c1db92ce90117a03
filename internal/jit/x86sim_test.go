package jit

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// x86sim is a minimal x86-64 interpreter covering exactly the instruction
// forms the trampoline compiler emits. It lets the tests observe register and
// stack effects of generated code without mapping and executing it for real.
// An indirect call through a register records the target and is otherwise a
// no-op, standing in for a callee that returns immediately.
type x86sim struct {
	regs       [16]uint64
	mem        map[uint64]uint64
	rip        uint64
	callTarget uint64
}

// Register indices as encoded in opcode and ModR/M fields.
const (
	simRegAX = iota
	simRegCX
	simRegDX
	simRegBX
	simRegSP
	simRegBP
	simRegSI
	simRegDI
	simRegR8
	simRegR9
)

func newX86Sim() *x86sim {
	return &x86sim{mem: map[uint64]uint64{}}
}

func (s *x86sim) push(v uint64) {
	s.regs[simRegSP] -= 8
	s.mem[s.regs[simRegSP]] = v
}

func (s *x86sim) pop() uint64 {
	v := s.mem[s.regs[simRegSP]]
	s.regs[simRegSP] += 8
	return v
}

func (s *x86sim) run(code []byte) error {
	pc := 0
	for pc < len(code) {
		var rex byte
		b := code[pc]
		if b&0xf0 == 0x40 {
			rex = b
			pc++
			b = code[pc]
		}
		rexB := int(rex&0x01) << 3
		rexR := int(rex&0x04) << 1

		switch {
		case b >= 0x50 && b <= 0x57: // push reg
			s.push(s.regs[int(b-0x50)|rexB])
			pc++
		case b >= 0x58 && b <= 0x5f: // pop reg
			s.regs[int(b-0x58)|rexB] = s.pop()
			pc++
		case b == 0x89: // mov r/m, reg
			modrm := code[pc+1]
			if modrm>>6 != 0b11 {
				return fmt.Errorf("x86sim: memory-destination mov at %#x not supported", pc)
			}
			src := int(modrm>>3&0x7) | rexR
			dst := int(modrm&0x7) | rexB
			s.regs[dst] = s.regs[src]
			pc += 2
		case b == 0x81: // add/sub r/m, imm32
			modrm := code[pc+1]
			if modrm>>6 != 0b11 {
				return fmt.Errorf("x86sim: memory-destination alu at %#x not supported", pc)
			}
			dst := int(modrm&0x7) | rexB
			imm := uint64(binary.LittleEndian.Uint32(code[pc+2:]))
			switch modrm >> 3 & 0x7 {
			case 0:
				s.regs[dst] += imm
			case 5:
				s.regs[dst] -= imm
			default:
				return fmt.Errorf("x86sim: alu /%d at %#x not supported", modrm>>3&0x7, pc)
			}
			pc += 6
		case b >= 0xb8 && b <= 0xbf: // mov reg, imm
			reg := int(b-0xb8) | rexB
			if rex&0x08 != 0 {
				s.regs[reg] = binary.LittleEndian.Uint64(code[pc+1:])
				pc += 9
			} else {
				s.regs[reg] = uint64(binary.LittleEndian.Uint32(code[pc+1:]))
				pc += 5
			}
		case b == 0x68: // push imm32, sign-extended to the 64-bit slot
			s.push(uint64(int64(int32(binary.LittleEndian.Uint32(code[pc+1:])))))
			pc += 5
		case b == 0x6a: // push imm8, sign-extended to the 64-bit slot
			s.push(uint64(int64(int8(code[pc+1]))))
			pc += 2
		case b == 0xff: // call reg
			modrm := code[pc+1]
			if modrm>>6 != 0b11 || modrm>>3&0x7 != 2 {
				return fmt.Errorf("x86sim: ff /%d at %#x not supported", modrm>>3&0x7, pc)
			}
			s.callTarget = s.regs[int(modrm&0x7)|rexB]
			pc += 2
		case b == 0xc3: // ret
			s.rip = s.pop()
			return nil
		default:
			return fmt.Errorf("x86sim: unknown opcode %#x at %#x", b, pc)
		}
	}
	return nil
}

func TestPrologueEpilogue_stackRoundTrip(t *testing.T) {
	// Prologue followed immediately by the epilogue must hand the stack
	// pointer and the frame base back untouched, with control returning to
	// the caller's address.
	c := newCompiler()
	c.compilePreamble()
	c.compilePostamble()
	code, err := c.assembler.Assemble()
	require.NoError(t, err)

	const (
		entrySP    = uint64(0x8000)
		savedBP    = uint64(0x1234)
		returnAddr = uint64(0xdeadbeef)
	)
	sim := newX86Sim()
	sim.regs[simRegSP] = entrySP
	sim.regs[simRegBP] = savedBP
	sim.mem[entrySP] = returnAddr // return address already on the stack at entry

	require.NoError(t, sim.run(code))
	require.Equal(t, entrySP+8, sim.regs[simRegSP])
	require.Equal(t, savedBP, sim.regs[simRegBP])
	require.Equal(t, returnAddr, sim.rip)
}

func TestCallSite_registerPlacement(t *testing.T) {
	// Interpreting a full trampoline with only register arguments must leave
	// each argument in its convention's register and the call targeting the
	// descriptor's address.
	desc := &CallDescriptor{
		Conv:   SystemV,
		Target: testTarget,
		Args: []Arg{
			Uint32(11), Uint32(22), Uint32(33), Uint32(44), Uint32(55), Uint32(66),
		},
	}
	code, err := CompileTrampoline(desc)
	require.NoError(t, err)

	sim := newX86Sim()
	sim.regs[simRegSP] = 0x8000
	sim.mem[0x8000] = 0xdeadbeef

	require.NoError(t, sim.run(code))
	require.Equal(t, uint64(11), sim.regs[simRegDI])
	require.Equal(t, uint64(22), sim.regs[simRegSI])
	require.Equal(t, uint64(33), sim.regs[simRegDX])
	require.Equal(t, uint64(44), sim.regs[simRegCX])
	require.Equal(t, uint64(55), sim.regs[simRegR8])
	require.Equal(t, uint64(66), sim.regs[simRegR9])
	require.Equal(t, uint64(testTarget), sim.callTarget)
	require.Equal(t, uint64(0xdeadbeef), sim.rip)
}

func TestCallSite_stackArgumentLayout(t *testing.T) {
	// Interpreting only the call-site sequence: after the reverse pushes the
	// first stack argument must sit lowest, in call order from the stack
	// pointer upward.
	c := newCompiler()
	desc := &CallDescriptor{
		Conv:   SystemV,
		Target: testTarget,
		Args: []Arg{
			Uint32(1), Uint32(2), Uint32(3), Uint32(4), Uint32(5), Uint32(6),
			Uint32(0x77), Uint8(0x08), Uint16(0x0909),
		},
	}
	require.NoError(t, c.compileCallSite(desc))
	code, err := c.assembler.Assemble()
	require.NoError(t, err)

	sim := newX86Sim()
	sim.regs[simRegSP] = 0x8000

	require.NoError(t, sim.run(code))
	sp := sim.regs[simRegSP]
	require.Equal(t, uint64(0x8000-3*8), sp)
	require.Equal(t, uint64(0x77), sim.mem[sp])
	require.Equal(t, uint64(0x08), sim.mem[sp+8])
	require.Equal(t, uint64(0x0909), sim.mem[sp+16])
	require.Equal(t, uint64(testTarget), sim.callTarget)
}

func TestCallSite_stackArgumentSignExtension(t *testing.T) {
	// The immediate push forms sign-extend to the full 64-bit stack slot, so
	// high-bit 8-bit and 32-bit patterns fill the upper half with ones.
	c := newCompiler()
	desc := &CallDescriptor{
		Conv:   SystemV,
		Target: testTarget,
		Args: []Arg{
			Uint32(1), Uint32(2), Uint32(3), Uint32(4), Uint32(5), Uint32(6),
			Uint32(0xffffffff),
			Uint8(0x80),
		},
	}
	require.NoError(t, c.compileCallSite(desc))
	code, err := c.assembler.Assemble()
	require.NoError(t, err)

	sim := newX86Sim()
	sim.regs[simRegSP] = 0x8000

	require.NoError(t, sim.run(code))
	sp := sim.regs[simRegSP]
	require.Equal(t, uint64(0x8000-2*8), sp)
	require.Equal(t, uint64(0xffffffffffffffff), sim.mem[sp])
	require.Equal(t, uint64(0xffffffffffffff80), sim.mem[sp+8])
}
