package interpreter

import (
	"errors"
	"fmt"

	"github.com/colorfulnotion/minijit/log"
	"github.com/colorfulnotion/minijit/program"
)

// Evaluation errors. These are faults of the routine itself and surface to
// the caller; they are never compilation failures.
var (
	ErrStackUnderflow   = errors.New("operand stack underflow")
	ErrNoReturn         = errors.New("routine ended without RETURN")
	ErrBadLocal         = errors.New("local slot out of range")
	ErrBadConstant      = errors.New("constant index out of range")
	ErrBadArgumentCount = errors.New("argument count mismatch")
)

// NumLocals is the minimum size of the local slot file. It matches the four
// argument registers of the compiled calling convention, so stores into
// spare slots behave identically on both paths.
const NumLocals = 4

// Run evaluates a routine in the current producer format.
func Run(r *program.Routine, args ...int64) (int64, error) {
	return Eval(r, program.ModeFixedWidth, args)
}

// Eval evaluates a routine decoded with the given mode. All arithmetic is
// 64-bit two's complement, matching what the recompiler emits; shift counts
// are taken modulo 64.
func Eval(r *program.Routine, mode program.Mode, args []int64) (int64, error) {
	if len(args) != r.NumArgs {
		return 0, fmt.Errorf("%w: routine %s takes %d args, got %d", ErrBadArgumentCount, r.Name, r.NumArgs, len(args))
	}

	nlocals := NumLocals
	if r.NumArgs > nlocals {
		nlocals = r.NumArgs
	}
	locals := make([]int64, nlocals)
	copy(locals, args)

	log.Trace(log.InterpMonitoring, "interpreting", "routine", r.Name, "args", len(args))

	stack := make([]int64, 0, 8)
	push := func(v int64) {
		stack = append(stack, v)
	}
	pop := func() (int64, error) {
		if len(stack) == 0 {
			return 0, fmt.Errorf("%w in %s", ErrStackUnderflow, r.Name)
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, nil
	}
	pop2 := func() (int64, int64, error) {
		top, err := pop()
		if err != nil {
			return 0, 0, err
		}
		below, err := pop()
		return top, below, err
	}

	cursor := 0
	for cursor < len(r.Code) {
		in, next, err := program.Decode(r.Code, cursor, mode)
		if err != nil {
			return 0, err
		}
		cursor = next

		switch in.Opcode {
		case program.LOAD_CONST:
			if in.Operand >= len(r.Consts) {
				return 0, fmt.Errorf("%w: const %d of %d in %s", ErrBadConstant, in.Operand, len(r.Consts), r.Name)
			}
			push(r.Consts[in.Operand])

		case program.LOAD_LOCAL:
			if in.Operand >= len(locals) {
				return 0, fmt.Errorf("%w: slot %d of %d in %s", ErrBadLocal, in.Operand, len(locals), r.Name)
			}
			push(locals[in.Operand])

		case program.STORE_LOCAL:
			if in.Operand >= len(locals) {
				return 0, fmt.Errorf("%w: slot %d of %d in %s", ErrBadLocal, in.Operand, len(locals), r.Name)
			}
			v, err := pop()
			if err != nil {
				return 0, err
			}
			locals[in.Operand] = v

		case program.ADD:
			top, below, err := pop2()
			if err != nil {
				return 0, err
			}
			push(below + top)

		case program.SUB:
			// top of stack is the subtrahend
			top, below, err := pop2()
			if err != nil {
				return 0, err
			}
			push(below - top)

		case program.MUL:
			top, below, err := pop2()
			if err != nil {
				return 0, err
			}
			push(below * top)

		case program.NEG:
			v, err := pop()
			if err != nil {
				return 0, err
			}
			push(-v)

		case program.AND:
			top, below, err := pop2()
			if err != nil {
				return 0, err
			}
			push(below & top)

		case program.OR:
			top, below, err := pop2()
			if err != nil {
				return 0, err
			}
			push(below | top)

		case program.XOR:
			top, below, err := pop2()
			if err != nil {
				return 0, err
			}
			push(below ^ top)

		case program.SHL:
			top, below, err := pop2()
			if err != nil {
				return 0, err
			}
			push(below << (uint64(top) & 63))

		case program.SHR:
			// arithmetic shift, sign preserved
			top, below, err := pop2()
			if err != nil {
				return 0, err
			}
			push(below >> (uint64(top) & 63))

		case program.DUP:
			v, err := pop()
			if err != nil {
				return 0, err
			}
			push(v)
			push(v)

		case program.DISCARD:
			if _, err := pop(); err != nil {
				return 0, err
			}

		case program.SWAP:
			top, below, err := pop2()
			if err != nil {
				return 0, err
			}
			push(top)
			push(below)

		case program.RETURN:
			result, err := pop()
			if err != nil {
				return 0, err
			}
			log.Trace(log.InterpMonitoring, "interpreted", "routine", r.Name, "result", result)
			return result, nil

		default:
			// Decode only returns table opcodes; a new opcode added to the
			// table without an evaluation case lands here.
			return 0, fmt.Errorf("%w: no evaluation for %s", program.ErrMalformedBytecode, program.OpcodeToString(in.Opcode))
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrNoReturn, r.Name)
}
