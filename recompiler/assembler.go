package recompiler

import (
	"encoding/binary"
	"fmt"

	"github.com/colorfulnotion/minijit/log"
)

// codeBufferSize caps one routine's machine code at a single page.
const codeBufferSize = 4096

// CodeBuffer accumulates encoded machine code up to a fixed capacity. The
// cursor only moves forward; emitted bytes are never rewritten.
type CodeBuffer struct {
	buf [codeBufferSize]byte
	n   int
}

func (b *CodeBuffer) emit(code ...byte) error {
	if b.n+len(code) > len(b.buf) {
		return fmt.Errorf("%w: %d bytes emitted, capacity %d", ErrBufferOverflow, b.n+len(code), len(b.buf))
	}
	copy(b.buf[b.n:], code)
	b.n += len(code)
	return nil
}

// Bytes returns the code emitted so far.
func (b *CodeBuffer) Bytes() []byte { return b.buf[:b.n] }

// Len returns the number of bytes emitted so far.
func (b *CodeBuffer) Len() int { return b.n }

// modRMDirect packs a register-direct ModRM byte: mod=11, reg, rm.
func modRMDirect(reg, rm X86Reg) byte {
	return X86_MOD_REGISTER<<6 | reg.RegBits<<3 | rm.RegBits
}

// x86Encoders maps each pseudo instruction to its REX.W encoding. Operands
// never leave the eight legacy registers, so REX.R and REX.B stay clear.
var x86Encoders = map[Op]func(in Inst) []byte{
	OpPush: func(in Inst) []byte {
		return []byte{X86_OP_PUSH_R | in.Dst.RegBits}
	},
	OpPop: func(in Inst) []byte {
		return []byte{X86_OP_POP_R | in.Dst.RegBits}
	},
	OpMov: func(in Inst) []byte {
		return []byte{X86_REX_W_PREFIX, X86_OP_MOV_RM_R, modRMDirect(in.Src, in.Dst)}
	},
	OpMovImm: func(in Inst) []byte {
		code := []byte{X86_REX_W_PREFIX, X86_OP_MOV_R_IMM | in.Dst.RegBits}
		return append(code, encodeU64(uint64(in.Imm))...)
	},
	OpAdd: func(in Inst) []byte {
		return []byte{X86_REX_W_PREFIX, X86_OP_ADD_RM_R, modRMDirect(in.Src, in.Dst)}
	},
	OpSub: func(in Inst) []byte {
		return []byte{X86_REX_W_PREFIX, X86_OP_SUB_RM_R, modRMDirect(in.Src, in.Dst)}
	},
	OpMul: func(in Inst) []byte {
		return []byte{X86_REX_W_PREFIX, X86_PREFIX_0F, X86_OP2_IMUL_R_RM, modRMDirect(in.Dst, in.Src)}
	},
	OpNeg: func(in Inst) []byte {
		return []byte{X86_REX_W_PREFIX, X86_OP_GROUP3_RM, X86_MOD_REGISTER<<6 | X86_REG_NEG<<3 | in.Dst.RegBits}
	},
	OpRet: func(in Inst) []byte {
		return []byte{X86_OP_RET}
	},
}

// Assemble encodes a pseudo instruction sequence into x86-64 machine code.
func Assemble(ir []Inst) ([]byte, error) {
	buf := &CodeBuffer{}
	for _, in := range ir {
		encode, ok := x86Encoders[in.Op]
		if !ok {
			return nil, fmt.Errorf("no x86-64 encoding for %q", in.String())
		}
		if err := buf.emit(encode(in)...); err != nil {
			return nil, err
		}
	}
	log.Trace(log.AssemblerTracing, "assembled routine", "instructions", len(ir), "bytes", buf.Len())
	return buf.Bytes(), nil
}

func encodeU64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}
