package recompiler

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/colorfulnotion/minijit/log"
)

// Region is one executable mapping holding a compiled routine. The mapping
// flips from read-write to read-execute before any caller can reach Entry
// and stays that way until Unmap, so no page is ever writable and
// executable at the same time.
type Region struct {
	mem []byte
}

// mapExecutable copies code into a fresh anonymous mapping and seals it
// read-execute.
func mapExecutable(code []byte) (*Region, error) {
	if len(code) == 0 {
		return nil, fmt.Errorf("%w: no code to map", ErrAllocationFailure)
	}
	pageSize := syscall.Getpagesize()
	size := (len(code) + pageSize - 1) &^ (pageSize - 1)
	mem, err := syscall.Mmap(
		-1, 0, size,
		syscall.PROT_READ|syscall.PROT_WRITE,
		syscall.MAP_ANON|syscall.MAP_PRIVATE,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %d bytes: %v", ErrAllocationFailure, size, err)
	}
	copy(mem, code)
	if err := syscall.Mprotect(mem, syscall.PROT_READ|syscall.PROT_EXEC); err != nil {
		syscall.Munmap(mem)
		return nil, fmt.Errorf("%w: mprotect: %v", ErrAllocationFailure, err)
	}
	log.Trace(log.ExecMonitoring, "mapped executable region", "code", len(code), "mapping", size)
	return &Region{mem: mem}, nil
}

// Entry returns the address of the first instruction.
func (r *Region) Entry() uintptr {
	return uintptr(unsafe.Pointer(&r.mem[0]))
}

// Size returns the size of the mapping in bytes.
func (r *Region) Size() int { return len(r.mem) }

// Unmap releases the mapping. The code must not be entered afterwards.
func (r *Region) Unmap() error {
	if r.mem == nil {
		return nil
	}
	mem := r.mem
	r.mem = nil
	return syscall.Munmap(mem)
}
