package program

import (
	"fmt"
)

// Mode selects the operand width convention of the bytecode producer.
type Mode int

const (
	// ModeFixedWidth is the current producer format: every instruction is
	// exactly two bytes, an opcode followed by either a one-byte operand or
	// a padding byte.
	ModeFixedWidth Mode = iota

	// ModeLegacyWide is the old format: no-operand instructions are a bare
	// opcode byte, operand instructions carry two little-endian operand
	// bytes. Opt-in only, never guessed.
	ModeLegacyWide
)

func (m Mode) String() string {
	switch m {
	case ModeFixedWidth:
		return "fixed-width"
	case ModeLegacyWide:
		return "legacy-wide"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Instruction is one decoded opcode/operand pair. Operand is zero for
// opcodes below HAVE_OPERAND. Offset is the byte offset of the opcode
// within the stream.
type Instruction struct {
	Opcode  byte
	Operand int
	Offset  int
}

func (in Instruction) String() string {
	if HasOperand(in.Opcode) {
		return fmt.Sprintf("%s %d", OpcodeToString(in.Opcode), in.Operand)
	}
	return OpcodeToString(in.Opcode)
}

// Decode reads one instruction at cursor and returns it together with the
// cursor of the next instruction. The stream is read-only; decoding has no
// side effects beyond the returned cursor.
func Decode(code []byte, cursor int, mode Mode) (Instruction, int, error) {
	if cursor >= len(code) {
		return Instruction{}, cursor, fmt.Errorf("%w: cursor %d past end of %d-byte stream", ErrMalformedBytecode, cursor, len(code))
	}
	in := Instruction{Opcode: code[cursor], Offset: cursor}
	if !IsValid(in.Opcode) {
		return Instruction{}, cursor, fmt.Errorf("%w: invalid opcode 0x%02x at offset %d", ErrMalformedBytecode, in.Opcode, cursor)
	}

	next := cursor + 1
	switch mode {
	case ModeFixedWidth:
		// one trailing byte always: operand, or padding on no-operand opcodes
		if next >= len(code) {
			return Instruction{}, cursor, fmt.Errorf("%w: truncated %s at offset %d", ErrMalformedBytecode, OpcodeToString(in.Opcode), cursor)
		}
		if HasOperand(in.Opcode) {
			in.Operand = int(code[next])
		}
		next++
	case ModeLegacyWide:
		if HasOperand(in.Opcode) {
			if next+1 >= len(code) {
				return Instruction{}, cursor, fmt.Errorf("%w: truncated %s at offset %d", ErrMalformedBytecode, OpcodeToString(in.Opcode), cursor)
			}
			in.Operand = int(code[next]) | int(code[next+1])<<8
			next += 2
		}
	default:
		return Instruction{}, cursor, fmt.Errorf("%w: unknown decode mode %d", ErrMalformedBytecode, int(mode))
	}
	return in, next, nil
}

// DecodeAll decodes the whole stream front to back.
func DecodeAll(code []byte, mode Mode) ([]Instruction, error) {
	insts := make([]Instruction, 0, len(code)/2)
	cursor := 0
	for cursor < len(code) {
		in, next, err := Decode(code, cursor, mode)
		if err != nil {
			return nil, err
		}
		insts = append(insts, in)
		cursor = next
	}
	return insts, nil
}
