package program

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Bytecode instructions - unified definition.
// This file contains all opcodes of the producer's fixed-width bytecode.
// All other packages should import and use these constants instead of
// defining their own.

// Opcodes at or above HAVE_OPERAND carry a one-byte unsigned operand;
// opcodes below it carry a padding byte that the decoder discards.
const (
	HAVE_OPERAND = 90 // 0x5a
)

// Stack manipulation, no operand.
const (
	DISCARD = 1 // 0x01
	SWAP    = 2 // 0x02
	DUP     = 4 // 0x04
)

// Unary arithmetic, no operand.
const (
	NEG = 11 // 0x0b
)

// Binary arithmetic, no operand. Both operands come off the stack, the
// result is pushed back.
const (
	MUL = 20 // 0x14
	ADD = 23 // 0x17
	SUB = 24 // 0x18
	SHL = 62 // 0x3e
	SHR = 63 // 0x3f
	AND = 64 // 0x40
	XOR = 65 // 0x41
	OR  = 66 // 0x42
)

// Control, no operand.
const (
	RETURN = 83 // 0x53
)

// Instructions with a one-byte operand.
const (
	LOAD_CONST  = 100 // 0x64, operand indexes the constants table
	LOAD_LOCAL  = 124 // 0x7c, operand indexes the local slots
	STORE_LOCAL = 125 // 0x7d, operand indexes the local slots
)

// OpcodeToString returns the string representation of an opcode
func OpcodeToString(opcode byte) string {
	name, exists := opcodeNames[opcode]
	if !exists {
		return "UNKNOWN"
	}
	return name
}

// opcodeNames maps opcode bytes to their string names
var opcodeNames = map[byte]string{
	DISCARD:     "DISCARD",
	SWAP:        "SWAP",
	DUP:         "DUP",
	NEG:         "NEG",
	MUL:         "MUL",
	ADD:         "ADD",
	SUB:         "SUB",
	SHL:         "SHL",
	SHR:         "SHR",
	AND:         "AND",
	XOR:         "XOR",
	OR:          "OR",
	RETURN:      "RETURN",
	LOAD_CONST:  "LOAD_CONST",
	LOAD_LOCAL:  "LOAD_LOCAL",
	STORE_LOCAL: "STORE_LOCAL",
}

// IsValid returns true if the byte value is a known opcode
func IsValid(opcode byte) bool {
	_, exists := opcodeNames[opcode]
	return exists
}

// HasOperand returns true if the opcode carries a one-byte operand
func HasOperand(opcode byte) bool {
	return opcode >= HAVE_OPERAND
}

// Opcodes returns every known opcode in ascending order
func Opcodes() []byte {
	opcodes := maps.Keys(opcodeNames)
	slices.Sort(opcodes)
	return opcodes
}

// InstructionCategory represents the category of an instruction
type InstructionCategory int

const (
	CategoryUnknown InstructionCategory = iota
	CategoryStack
	CategoryArithmetic
	CategoryControlFlow
)

// GetInstructionCategory returns the category of an instruction
func GetInstructionCategory(opcode byte) InstructionCategory {
	switch opcode {
	case DISCARD, SWAP, DUP, LOAD_CONST, LOAD_LOCAL, STORE_LOCAL:
		return CategoryStack
	case NEG, MUL, ADD, SUB, SHL, SHR, AND, XOR, OR:
		return CategoryArithmetic
	case RETURN:
		return CategoryControlFlow
	}
	return CategoryUnknown
}
