// Package recompiler translates stack bytecode into x86-64 machine code and
// runs it in place.
//
// The pipeline decodes a routine, lowers each bytecode instruction to a
// short register template, shrinks the result with a peephole pass, encodes
// it, and seals the bytes in a read-execute mapping. Local slots are pinned
// to the System V argument registers, the operand stack becomes the native
// stack, and results travel in rax.
//
// Translation is deliberately partial. Anything outside the arithmetic
// core, and anything that cannot be proven stack-balanced, is rejected at
// compile time; Func then routes every call to the interpreter instead.
// That split keeps the generated code trivial to audit while still running
// the whole opcode set.
package recompiler

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/colorfulnotion/minijit/log"
	"github.com/colorfulnotion/minijit/program"
)

var (
	ErrUnsupportedOpcode   = errors.New("opcode has no native translation")
	ErrTooManyArguments    = errors.New("routine exceeds the register convention")
	ErrBufferOverflow      = errors.New("code buffer exhausted")
	ErrAllocationFailure   = errors.New("executable mapping failed")
	ErrUnsupportedPlatform = errors.New("native execution unsupported on this platform")
)

// Config adjusts a compilation. The zero value decodes fixed-width bytecode
// and optimizes.
type Config struct {
	// Mode selects the bytecode operand encoding.
	Mode program.Mode
	// NoOptimize skips the peephole pass, keeping the raw templates.
	NoOptimize bool
	// Fallback replaces the interpreter as the non-native path. Only Wrap
	// reads it; Compile has no fallback to route to.
	Fallback Fallback
}

// Compile runs the whole pipeline for one routine and returns a live entry
// point. Every error leaves nothing mapped; callers are expected to treat
// any failure as final and keep the routine on the interpreter.
func Compile(r *program.Routine, cfg *Config) (*CompiledEntry, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if runtime.GOARCH != "amd64" {
		return nil, fmt.Errorf("%w: GOARCH=%s", ErrUnsupportedPlatform, runtime.GOARCH)
	}

	insts, err := program.DecodeAll(r.Code, cfg.Mode)
	if err != nil {
		return nil, err
	}
	ir, err := BuildIR(r, insts)
	if err != nil {
		return nil, err
	}
	if !cfg.NoOptimize {
		ir = Optimize(ir)
	}
	code, err := Assemble(ir)
	if err != nil {
		return nil, err
	}
	region, err := mapExecutable(code)
	if err != nil {
		return nil, err
	}

	log.Debug(log.CompilerTracing, "compiled routine",
		"routine", r.Name, "ir", len(ir), "bytes", len(code), "entry", fmt.Sprintf("%#x", region.Entry()))
	return &CompiledEntry{routine: r, code: code, region: region}, nil
}
