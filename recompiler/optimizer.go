package recompiler

import (
	"github.com/colorfulnotion/minijit/log"
)

// The peephole rules below assume the shapes BuildIR produces: scratch
// registers are dead once their value has been pushed, so push/pop pairs can
// turn into plain moves. Every rewrite yields strictly fewer instructions
// than it consumes, which is what makes the fixed point test in Optimize
// sound.

func isStackOp(in Inst) bool {
	return in.Op == OpPush || in.Op == OpPop
}

// reads reports whether in consumes the current value of r. ret reads rax,
// the result register of the calling convention.
func reads(in Inst, r X86Reg) bool {
	switch in.Op {
	case OpMov:
		return in.Src == r
	case OpPush:
		return in.Dst == r
	case OpAdd, OpSub, OpMul:
		return in.Dst == r || in.Src == r
	case OpNeg:
		return in.Dst == r
	case OpRet:
		return r == RAX
	}
	return false
}

// clobbers reports whether in overwrites r without reading it first.
func clobbers(in Inst, r X86Reg) bool {
	switch in.Op {
	case OpMov:
		return in.Dst == r && in.Src != r
	case OpMovImm, OpPop:
		return in.Dst == r
	}
	return false
}

// deadAfter reports whether r is never read again from ir[from:] before
// something overwrites it.
func deadAfter(ir []Inst, from int, r X86Reg) bool {
	for _, in := range ir[from:] {
		if reads(in, r) {
			return false
		}
		if clobbers(in, r) {
			return true
		}
	}
	return true
}

// optimizePass makes one left-to-right sweep over ir, applying the first
// matching rewrite at each position.
func optimizePass(ir []Inst) []Inst {
	out := make([]Inst, 0, len(ir))
	fetch := func(n int) (Inst, bool) {
		if n < len(ir) {
			return ir[n], true
		}
		return Inst{}, false
	}

	index := 0
	for index < len(ir) {
		op1 := ir[index]
		op2, ok2 := fetch(index + 1)
		op3, ok3 := fetch(index + 2)
		op4, ok4 := fetch(index + 3)

		// mov X, X has no effect
		if op1.Op == OpMov && op1.Dst == op1.Src {
			index++
			continue
		}

		// mov X, Y; mov Z, X  =>  mov Z, Y
		// the source forwards whether Y is a register or an immediate, but
		// the rewrite drops the write to X, so X must stay dead until
		// something overwrites it
		if (op1.Op == OpMov || op1.Op == OpMovImm) && ok2 && op2.Op == OpMov && op2.Src == op1.Dst &&
			deadAfter(ir, index+2, op1.Dst) {
			out = append(out, Inst{Op: op1.Op, Dst: op2.Dst, Src: op1.Src, Imm: op1.Imm})
			index += 2
			continue
		}

		// push X; pop Y  =>  mov Y, X
		if op1.Op == OpPush && ok2 && op2.Op == OpPop {
			out = append(out, Inst{Op: OpMov, Dst: op2.Dst, Src: op1.Dst})
			index += 2
			continue
		}

		// push X; <op>; pop Y  =>  mov Y, X; <op>
		// only when <op> leaves the stack alone and does not write Y
		if op1.Op == OpPush && ok3 && op3.Op == OpPop &&
			!isStackOp(op2) && op2.Dst != op3.Dst {
			out = append(out, Inst{Op: OpMov, Dst: op3.Dst, Src: op1.Dst}, op2)
			index += 3
			continue
		}

		// push X; <op>; <op>; pop Y  =>  mov Y, X; <op>; <op>
		if op1.Op == OpPush && ok4 && op4.Op == OpPop &&
			!isStackOp(op2) && !isStackOp(op3) &&
			op2.Dst != op4.Dst && op3.Dst != op4.Dst {
			out = append(out, Inst{Op: OpMov, Dst: op4.Dst, Src: op1.Dst}, op2, op3)
			index += 4
			continue
		}

		out = append(out, op1)
		index++
	}
	return out
}

// Optimize rewrites ir until a pass removes nothing further and returns the
// shortened sequence. The result computes the same function: rewrites only
// replace stack round trips with register moves.
func Optimize(ir []Inst) []Inst {
	for pass := 1; ; pass++ {
		optimized := optimizePass(ir)
		removed := len(ir) - len(optimized)
		log.Trace(log.CompilerTracing, "optimizer pass", "pass", pass, "removed", removed, "length", len(optimized))
		ir = optimized
		if removed == 0 {
			return ir
		}
	}
}
