package recompiler

import (
	"fmt"
	"strings"
)

// Op identifies one pseudo instruction produced by the translator.
type Op byte

const (
	OpPush   Op = iota // push Dst onto the native stack
	OpPop              // pop the native stack into Dst
	OpMov              // Dst = Src
	OpMovImm           // Dst = Imm
	OpAdd              // Dst = Dst + Src
	OpSub              // Dst = Dst - Src
	OpMul              // Dst = Dst * Src, signed
	OpNeg              // Dst = -Dst
	OpRet              // return, result in rax
)

var opMnemonics = map[Op]string{
	OpPush:   "push",
	OpPop:    "pop",
	OpMov:    "mov",
	OpMovImm: "mov",
	OpAdd:    "add",
	OpSub:    "sub",
	OpMul:    "imul",
	OpNeg:    "neg",
	OpRet:    "ret",
}

// Inst is one pseudo instruction. Dst and Src name registers where the
// operation takes them; OpMovImm carries its literal in Imm instead of Src.
type Inst struct {
	Op  Op
	Dst X86Reg
	Src X86Reg
	Imm int64
}

func (in Inst) String() string {
	m, ok := opMnemonics[in.Op]
	if !ok {
		return fmt.Sprintf("op(%d)", in.Op)
	}
	switch in.Op {
	case OpPush, OpPop, OpNeg:
		return fmt.Sprintf("%-6s %s", m, in.Dst.Name)
	case OpMovImm:
		return fmt.Sprintf("%-6s %s, %d", m, in.Dst.Name, in.Imm)
	case OpRet:
		return m
	default:
		return fmt.Sprintf("%-6s %s, %s", m, in.Dst.Name, in.Src.Name)
	}
}

// FormatIR renders a pseudo instruction listing, one instruction per line.
func FormatIR(ir []Inst) string {
	var sb strings.Builder
	for _, in := range ir {
		sb.WriteString("  ")
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
