package recompiler

import (
	"fmt"

	"github.com/colorfulnotion/minijit/log"
	"github.com/colorfulnotion/minijit/program"
)

// BuildIR translates decoded bytecode into the pseudo instruction form the
// optimizer and assembler consume. Translation simulates the depth of the
// operand stack as it goes: native push/pop must stay balanced, otherwise
// the final ret would consume an operand instead of the return address.
// Anything that cannot be proven balanced is rejected here and the routine
// stays on the interpreter.
func BuildIR(r *program.Routine, insts []program.Instruction) ([]Inst, error) {
	if r.NumArgs > MaxArgs {
		return nil, fmt.Errorf("%w: routine %q declares %d args, the register convention carries %d",
			ErrTooManyArguments, r.Name, r.NumArgs, MaxArgs)
	}
	if len(insts) == 0 || insts[len(insts)-1].Opcode != program.RETURN {
		return nil, fmt.Errorf("%w: routine %q does not end in RETURN", program.ErrMalformedBytecode, r.Name)
	}

	ir := make([]Inst, 0, len(insts)*4)
	depth := 0
	use := func(n int, in program.Instruction) error {
		if depth < n {
			return fmt.Errorf("%w: operand stack underflow at offset 0x%02x", program.ErrMalformedBytecode, in.Offset)
		}
		depth -= n
		return nil
	}

	for _, in := range insts {
		switch in.Opcode {
		case program.LOAD_LOCAL:
			if in.Operand >= MaxArgs {
				return nil, fmt.Errorf("%w: local slot %d at offset 0x%02x, registers hold slots 0..%d",
					ErrTooManyArguments, in.Operand, in.Offset, MaxArgs-1)
			}
			ir = append(ir, Inst{Op: OpPush, Dst: argRegs[in.Operand]})
			depth++

		case program.STORE_LOCAL:
			if in.Operand >= MaxArgs {
				return nil, fmt.Errorf("%w: local slot %d at offset 0x%02x, registers hold slots 0..%d",
					ErrTooManyArguments, in.Operand, in.Offset, MaxArgs-1)
			}
			if err := use(1, in); err != nil {
				return nil, err
			}
			ir = append(ir,
				Inst{Op: OpPop, Dst: RAX},
				Inst{Op: OpMov, Dst: argRegs[in.Operand], Src: RAX},
			)

		case program.LOAD_CONST:
			if in.Operand >= len(r.Consts) {
				return nil, fmt.Errorf("%w: constant index %d at offset 0x%02x, routine has %d constants",
					program.ErrMalformedBytecode, in.Operand, in.Offset, len(r.Consts))
			}
			ir = append(ir,
				Inst{Op: OpMovImm, Dst: RAX, Imm: r.Consts[in.Operand]},
				Inst{Op: OpPush, Dst: RAX},
			)
			depth++

		case program.ADD, program.MUL:
			if err := use(2, in); err != nil {
				return nil, err
			}
			op := OpAdd
			if in.Opcode == program.MUL {
				op = OpMul
			}
			ir = append(ir,
				Inst{Op: OpPop, Dst: RAX},
				Inst{Op: OpPop, Dst: RBX},
				Inst{Op: op, Dst: RAX, Src: RBX},
				Inst{Op: OpPush, Dst: RAX},
			)
			depth++

		case program.SUB:
			// top of stack is the subtrahend
			if err := use(2, in); err != nil {
				return nil, err
			}
			ir = append(ir,
				Inst{Op: OpPop, Dst: RBX},
				Inst{Op: OpPop, Dst: RAX},
				Inst{Op: OpSub, Dst: RAX, Src: RBX},
				Inst{Op: OpPush, Dst: RAX},
			)
			depth++

		case program.NEG:
			if err := use(1, in); err != nil {
				return nil, err
			}
			ir = append(ir,
				Inst{Op: OpPop, Dst: RAX},
				Inst{Op: OpNeg, Dst: RAX},
				Inst{Op: OpPush, Dst: RAX},
			)
			depth++

		case program.RETURN:
			// ret must execute with nothing but the return address on the
			// stack, so exactly the result may remain here
			if err := use(1, in); err != nil {
				return nil, err
			}
			if depth != 0 {
				return nil, fmt.Errorf("%w: %d operands left on the stack at RETURN, offset 0x%02x",
					program.ErrMalformedBytecode, depth, in.Offset)
			}
			ir = append(ir,
				Inst{Op: OpPop, Dst: RAX},
				Inst{Op: OpRet},
			)

		default:
			return nil, fmt.Errorf("%w: %s (%d) at offset 0x%02x",
				ErrUnsupportedOpcode, program.OpcodeToString(in.Opcode), in.Opcode, in.Offset)
		}
	}

	log.Trace(log.CompilerTracing, "translated routine", "routine", r.Name, "bytecode", len(insts), "ir", len(ir))
	return ir, nil
}
