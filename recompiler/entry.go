package recompiler

import (
	"github.com/colorfulnotion/minijit/program"
)

// CompiledEntry owns the executable mapping for one routine.
type CompiledEntry struct {
	routine *program.Routine
	code    []byte
	region  *Region
}

// Routine returns the routine this entry was compiled from.
func (e *CompiledEntry) Routine() *program.Routine { return e.routine }

// Code returns a copy of the emitted machine code, the exact bytes rather
// than the page they were sealed into.
func (e *CompiledEntry) Code() []byte {
	out := make([]byte, len(e.code))
	copy(out, e.code)
	return out
}

// Entry returns the native entry point.
func (e *CompiledEntry) Entry() uintptr { return e.region.Entry() }

// Invoke enters the routine. Arguments beyond the register convention are
// impossible here, the translator rejects such routines; missing arguments
// up to the four register slots pass as zero. Arity checking is the
// caller's job.
func (e *CompiledEntry) Invoke(args ...int64) int64 {
	var a [MaxArgs]int64
	copy(a[:], args)
	return callNative(e.region.Entry(), a[0], a[1], a[2], a[3])
}

// Release unmaps the executable region. The entry must not be invoked
// afterwards.
func (e *CompiledEntry) Release() error {
	if e.region == nil {
		return nil
	}
	region := e.region
	e.region = nil
	return region.Unmap()
}
