package amd64

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"
)

func TestCastAsGolangAsmRegister(t *testing.T) {
	// Both enumerations must stay aligned per class for the offset cast to hold.
	require.Equal(t, int16(x86.REG_AX), castAsGolangAsmRegister(REG_AX))
	require.Equal(t, int16(x86.REG_SP), castAsGolangAsmRegister(REG_SP))
	require.Equal(t, int16(x86.REG_R15), castAsGolangAsmRegister(REG_R15))
	require.Equal(t, int16(x86.REG_X0), castAsGolangAsmRegister(REG_X0))
	require.Equal(t, int16(x86.REG_X15), castAsGolangAsmRegister(REG_X15))
}

func TestCastAsGolangAsmInstruction(t *testing.T) {
	for inst := NOP; inst <= SUBQ; inst++ {
		require.NotEqual(t, obj.AXXX, castAsGolangAsmInstruction(inst), InstructionName(inst))
	}
}

func TestGolangAsmAssembler(t *testing.T) {
	t.Run("assembles trampoline shaped code", func(t *testing.T) {
		a, err := NewGolangAsmAssembler()
		require.NoError(t, err)

		a.CompileRegisterToNone(PUSHQ, REG_BP)
		a.CompileRegisterToRegister(MOVQ, REG_SP, REG_BP)
		a.CompileConstToRegister(SUBQ, 0x20, REG_SP)
		a.CompileConstToRegister(MOVQ, 0x1122334455667788, REG_AX)
		a.CompileNoneToRegister(CALLQ, REG_AX)
		a.CompileConstToRegister(ADDQ, 0x20, REG_SP)
		a.CompileNoneToRegister(POPQ, REG_BP)
		a.CompileStandAlone(RET)

		code, err := a.Assemble()
		require.NoError(t, err)
		require.NotEmpty(t, code)
	})

	t.Run("far ret encodes as far ret", func(t *testing.T) {
		a, err := NewGolangAsmAssembler()
		require.NoError(t, err)

		a.CompileStandAlone(RETF)
		code, err := a.Assemble()
		require.NoError(t, err)
		require.Equal(t, byte(0xcb), code[len(code)-1])
	})

	t.Run("far ret with zero imm16 encodes as far ret", func(t *testing.T) {
		a, err := NewGolangAsmAssembler()
		require.NoError(t, err)

		a.CompileConstToNone(RETF, 0)
		code, err := a.Assemble()
		require.NoError(t, err)
		require.Equal(t, byte(0xcb), code[len(code)-1])
	})

	t.Run("ret imm16 is unsupported", func(t *testing.T) {
		a, err := NewGolangAsmAssembler()
		require.NoError(t, err)

		a.CompileConstToNone(RET, 0x10)
		_, err = a.Assemble()
		require.Error(t, err)
	})

	t.Run("push of a high-bit 32-bit immediate", func(t *testing.T) {
		a, err := NewGolangAsmAssembler()
		require.NoError(t, err)

		a.CompileConstToNone(PUSHL, 0xbfc00000) // Float32(-1.5) bit pattern
		a.CompileConstToNone(PUSHB, 0x80)
		code, err := a.Assemble()
		require.NoError(t, err)
		require.NotEmpty(t, code)
	})
}
