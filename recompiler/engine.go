package recompiler

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/colorfulnotion/minijit/interpreter"
	"github.com/colorfulnotion/minijit/log"
	"github.com/colorfulnotion/minijit/program"
)

// FuncState tracks where a routine is in its compile lifecycle.
type FuncState int32

const (
	StateUncompiled FuncState = iota // no call has arrived yet
	StateCompiling                   // first call is translating
	StateCompiled                    // calls enter native code
	StateFallback                    // calls run on the interpreter, permanently
)

func (s FuncState) String() string {
	switch s {
	case StateUncompiled:
		return "uncompiled"
	case StateCompiling:
		return "compiling"
	case StateCompiled:
		return "compiled"
	case StateFallback:
		return "fallback"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Fallback is the interpreted shape of a routine.
type Fallback func(args ...int64) (int64, error)

// Func is a callable routine. The first call compiles it; on any
// compilation failure the routine drops to the interpreter and never
// retries. Whichever way the first call lands, the routine computes the
// same results for the rest of its life.
type Func struct {
	routine *program.Routine
	cfg     Config

	mu    sync.Mutex
	state atomic.Int32
	entry *CompiledEntry
	diag  error

	fallback Fallback
}

// Wrap prepares a routine for lazy compilation on first call. A nil cfg
// takes the defaults.
func Wrap(r *program.Routine, cfg *Config) *Func {
	f := &Func{routine: r}
	if cfg != nil {
		f.cfg = *cfg
	}
	f.fallback = f.cfg.Fallback
	if f.fallback == nil {
		f.fallback = func(args ...int64) (int64, error) {
			return interpreter.Eval(r, f.cfg.Mode, args)
		}
	}
	return f
}

// Routine returns the routine this Func wraps.
func (f *Func) Routine() *program.Routine { return f.routine }

// Call runs the routine. The first call decides between native code and the
// interpreter; later calls reuse that decision without touching the lock.
func (f *Func) Call(args ...int64) (int64, error) {
	if len(args) != f.routine.NumArgs {
		return 0, fmt.Errorf("%w: %s takes %d, got %d",
			interpreter.ErrBadArgumentCount, f.routine.Name, f.routine.NumArgs, len(args))
	}

	switch FuncState(f.state.Load()) {
	case StateCompiled:
		return f.entry.Invoke(args...), nil
	case StateFallback:
		return f.fallback(args...)
	}

	f.compileOnce()

	if FuncState(f.state.Load()) == StateCompiled {
		return f.entry.Invoke(args...), nil
	}
	return f.fallback(args...)
}

// compileOnce moves the routine out of StateUncompiled exactly once.
// Concurrent first calls serialize here; losers observe the winner's state.
func (f *Func) compileOnce() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if FuncState(f.state.Load()) != StateUncompiled {
		return
	}
	f.state.Store(int32(StateCompiling))

	entry, err := Compile(f.routine, &f.cfg)
	if err != nil {
		f.diag = err
		f.state.Store(int32(StateFallback))
		log.Warn(log.EngineMonitoring, "compilation failed, routine stays interpreted",
			"routine", f.routine.Name, "err", err)
		return
	}
	f.entry = entry
	f.state.Store(int32(StateCompiled))
	log.Debug(log.EngineMonitoring, "routine compiled", "routine", f.routine.Name, "bytes", len(entry.code))
}

// State reports the routine's lifecycle state.
func (f *Func) State() FuncState {
	return FuncState(f.state.Load())
}

// Diagnostic returns the error that forced the interpreter, or nil.
func (f *Func) Diagnostic() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.diag
}

// Code returns the machine code of a compiled routine, or nil.
func (f *Func) Code() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.entry == nil {
		return nil
	}
	return f.entry.Code()
}

// Entry returns the native entry address of a compiled routine, or 0.
func (f *Func) Entry() uintptr {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.entry == nil {
		return 0
	}
	return f.entry.Entry()
}

// Close releases the executable mapping. The routine keeps working through
// the interpreter afterwards. Close must not race Call.
func (f *Func) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Store(int32(StateFallback))
	if f.entry == nil {
		return nil
	}
	entry := f.entry
	f.entry = nil
	return entry.Release()
}
