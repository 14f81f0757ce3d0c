package program

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slices"
)

func TestDecodeFixedWidth(t *testing.T) {
	// f(a, b) = a*a - b*b
	code := []byte{
		LOAD_LOCAL, 0,
		LOAD_LOCAL, 0,
		MUL, 0,
		LOAD_LOCAL, 1,
		LOAD_LOCAL, 1,
		MUL, 0,
		SUB, 0,
		RETURN, 0,
	}

	insts, err := DecodeAll(code, ModeFixedWidth)
	require.NoError(t, err)
	require.Len(t, insts, 8)

	want := []struct {
		opcode  byte
		operand int
		offset  int
	}{
		{LOAD_LOCAL, 0, 0},
		{LOAD_LOCAL, 0, 2},
		{MUL, 0, 4},
		{LOAD_LOCAL, 1, 6},
		{LOAD_LOCAL, 1, 8},
		{MUL, 0, 10},
		{SUB, 0, 12},
		{RETURN, 0, 14},
	}
	for i, w := range want {
		assert.Equal(t, w.opcode, insts[i].Opcode, "inst %d", i)
		assert.Equal(t, w.operand, insts[i].Operand, "inst %d", i)
		assert.Equal(t, w.offset, insts[i].Offset, "inst %d", i)
	}
}

func TestDecodePaddingIgnored(t *testing.T) {
	// the trailing byte of a no-operand instruction carries no meaning
	for _, padding := range []byte{0x00, 0x01, 0xff} {
		in, next, err := Decode([]byte{NEG, padding}, 0, ModeFixedWidth)
		require.NoError(t, err)
		assert.Equal(t, byte(NEG), in.Opcode)
		assert.Equal(t, 0, in.Operand)
		assert.Equal(t, 2, next)
	}
}

func TestDecodeTruncated(t *testing.T) {
	for name, code := range map[string][]byte{
		"odd length":   {LOAD_LOCAL, 0, RETURN},
		"bare opcode":  {LOAD_CONST},
		"empty cursor": {},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeAll(code, ModeFixedWidth)
			if len(code) == 0 {
				// an empty stream decodes to an empty sequence
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedBytecode), err)
		})
	}
}

func TestDecodeInvalidOpcode(t *testing.T) {
	_, _, err := Decode([]byte{0xee, 0x00}, 0, ModeFixedWidth)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedBytecode), err)
	assert.Contains(t, err.Error(), "0xee")
}

func TestDecodeLegacyWide(t *testing.T) {
	// same routine as TestDecodeFixedWidth in the legacy encoding:
	// two little-endian operand bytes, no padding on no-operand opcodes
	code := []byte{
		LOAD_LOCAL, 0, 0,
		LOAD_LOCAL, 0, 0,
		MUL,
		LOAD_LOCAL, 1, 0,
		LOAD_LOCAL, 1, 0,
		MUL,
		SUB,
		RETURN,
	}

	insts, err := DecodeAll(code, ModeLegacyWide)
	require.NoError(t, err)
	require.Len(t, insts, 8)
	assert.Equal(t, byte(MUL), insts[2].Opcode)
	assert.Equal(t, 1, insts[3].Operand)

	// wide operands really are two bytes
	in, next, err := Decode([]byte{LOAD_CONST, 0x34, 0x12}, 0, ModeLegacyWide)
	require.NoError(t, err)
	assert.Equal(t, 0x1234, in.Operand)
	assert.Equal(t, 3, next)

	_, _, err = Decode([]byte{LOAD_CONST, 0x34}, 0, ModeLegacyWide)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedBytecode), err)
}

func TestOpcodeTable(t *testing.T) {
	assert.Equal(t, "MUL", OpcodeToString(MUL))
	assert.Equal(t, "LOAD_LOCAL", OpcodeToString(LOAD_LOCAL))
	assert.Equal(t, "UNKNOWN", OpcodeToString(0xee))

	assert.False(t, HasOperand(RETURN))
	assert.True(t, HasOperand(LOAD_CONST))
	assert.True(t, HasOperand(STORE_LOCAL))

	opcodes := Opcodes()
	require.Len(t, opcodes, 16)
	assert.True(t, slices.IsSorted(opcodes))
	for _, opcode := range opcodes {
		assert.True(t, IsValid(opcode))
		assert.NotEqual(t, CategoryUnknown, GetInstructionCategory(opcode), OpcodeToString(opcode))
	}

	assert.Equal(t, CategoryStack, GetInstructionCategory(DUP))
	assert.Equal(t, CategoryArithmetic, GetInstructionCategory(XOR))
	assert.Equal(t, CategoryControlFlow, GetInstructionCategory(RETURN))
	assert.Equal(t, CategoryUnknown, GetInstructionCategory(0xee))
}

func TestRoutineFile(t *testing.T) {
	rf := RoutineFile{
		Name:     "square-difference",
		NumArgs:  2,
		Bytecode: "7c00 7c00 1400 7c01 7c01 1400 1800 5300",
	}
	r, err := rf.Routine()
	require.NoError(t, err)
	assert.Equal(t, 16, len(r.Code))
	assert.Equal(t, 2, r.NumArgs)

	insts, err := DecodeAll(r.Code, ModeFixedWidth)
	require.NoError(t, err)
	assert.Len(t, insts, 8)

	rf.Bytecode = "7cxx"
	_, err = rf.Routine()
	require.Error(t, err)
}
