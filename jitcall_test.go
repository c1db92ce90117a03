package jitcall_test

import (
	"math"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jitcall/jitcall"
)

func TestArgConstructors(t *testing.T) {
	tests := []struct {
		arg     jitcall.Arg
		expType jitcall.ArgType
		expBits uint64
	}{
		{jitcall.Uint8(0xab), jitcall.ArgTypeByte, 0xab},
		{jitcall.Uint16(0xbeef), jitcall.ArgTypeWord, 0xbeef},
		{jitcall.Uint32(0xdeadbeef), jitcall.ArgTypeDWord, 0xdeadbeef},
		{jitcall.Uint64(0x1122334455667788), jitcall.ArgTypeQWord, 0x1122334455667788},
		{jitcall.Uintptr(0xcafe), jitcall.ArgTypePtr, 0xcafe},
		{jitcall.Float32(1.5), jitcall.ArgTypeFloat32, uint64(math.Float32bits(1.5))},
		{jitcall.Float64(2.5), jitcall.ArgTypeFloat64, math.Float64bits(2.5)},
	}
	for _, tc := range tests {
		require.Equal(t, tc.expType, tc.arg.Type(), tc.expType.String())
		require.Equal(t, tc.expBits, tc.arg.Bits(), tc.expType.String())
	}
}

func TestCompileTrampoline(t *testing.T) {
	desc := &jitcall.CallDescriptor{
		Conv:   jitcall.SystemV,
		Target: 0x1122334455667788,
		Args:   []jitcall.Arg{jitcall.Uint32(1), jitcall.Uint64(2)},
	}

	first, err := jitcall.CompileTrampoline(desc)
	require.NoError(t, err)
	require.Equal(t, byte(0x55), first[0], "expected to open with push rbp")
	require.Equal(t, byte(0xc3), first[len(first)-1], "expected to end with ret")

	second, err := jitcall.CompileTrampoline(desc)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestCompileTrampoline_unsupportedArg(t *testing.T) {
	_, err := jitcall.CompileTrampoline(&jitcall.CallDescriptor{
		Conv:   jitcall.Win64,
		Target: 0x1000,
		Args:   []jitcall.Arg{jitcall.Float32(1.5)},
	})
	require.ErrorIs(t, err, jitcall.ErrUnsupportedArg)
}

func TestDefaultCallingConvention(t *testing.T) {
	conv := jitcall.DefaultCallingConvention()
	if runtime.GOOS == "windows" {
		require.Equal(t, jitcall.Win64, conv)
	} else {
		require.Equal(t, jitcall.SystemV, conv)
	}
}
