//go:build unicorn

package recompiler

import (
	"encoding/binary"
	"fmt"

	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/colorfulnotion/minijit/log"
)

// Guest layout for sandboxed verification runs.
const (
	sandboxPageSize  = uint64(0x1000)
	sandboxCodeBase  = uint64(0x100000)
	sandboxStackBase = uint64(0x200000)
	sandboxStackSize = uint64(0x10000)
	sandboxExitAddr  = uint64(0x300000) // sentinel return address, ends emulation
)

// sandboxArgRegs mirrors argRegs in emulator register ids.
var sandboxArgRegs = [MaxArgs]int{uc.X86_REG_RDI, uc.X86_REG_RSI, uc.X86_REG_RDX, uc.X86_REG_RCX}

// SandboxRun executes compiled machine code under an x86-64 emulator
// instead of on the host, with the register convention callNative uses. It
// cross-checks the assembler against an independent implementation of the
// architecture, so encoding mistakes surface as wrong values or emulator
// faults rather than host crashes.
func SandboxRun(code []byte, args []int64) (int64, error) {
	if len(args) > MaxArgs {
		return 0, fmt.Errorf("%w: %d args", ErrTooManyArguments, len(args))
	}
	mu, err := uc.NewUnicorn(uc.ARCH_X86, uc.MODE_64)
	if err != nil {
		return 0, fmt.Errorf("new emulator: %w", err)
	}
	defer mu.Close()

	codeLen := (uint64(len(code)) + sandboxPageSize - 1) &^ (sandboxPageSize - 1)
	if err := mu.MemMap(sandboxCodeBase, codeLen); err != nil {
		return 0, fmt.Errorf("code MemMap: %w", err)
	}
	if err := mu.MemWrite(sandboxCodeBase, code); err != nil {
		return 0, fmt.Errorf("code MemWrite: %w", err)
	}
	if err := mu.MemProtect(sandboxCodeBase, codeLen, uc.PROT_READ|uc.PROT_EXEC); err != nil {
		return 0, fmt.Errorf("code MemProtect: %w", err)
	}

	if err := mu.MemMap(sandboxStackBase, sandboxStackSize); err != nil {
		return 0, fmt.Errorf("stack MemMap: %w", err)
	}
	if err := mu.MemMap(sandboxExitAddr, sandboxPageSize); err != nil {
		return 0, fmt.Errorf("exit MemMap: %w", err)
	}

	// Seed rsp with the sentinel return address, exactly what a caller's
	// call instruction would have pushed.
	rsp := sandboxStackBase + sandboxStackSize - sandboxPageSize
	retSlot := make([]byte, 8)
	binary.LittleEndian.PutUint64(retSlot, sandboxExitAddr)
	if err := mu.MemWrite(rsp, retSlot); err != nil {
		return 0, fmt.Errorf("return slot MemWrite: %w", err)
	}
	if err := mu.RegWrite(uc.X86_REG_RSP, rsp); err != nil {
		return 0, fmt.Errorf("set RSP: %w", err)
	}
	for i, reg := range sandboxArgRegs {
		var v uint64
		if i < len(args) {
			v = uint64(args[i])
		}
		if err := mu.RegWrite(reg, v); err != nil {
			return 0, fmt.Errorf("set %s: %w", argRegs[i].Name, err)
		}
	}

	if err := mu.Start(sandboxCodeBase, sandboxExitAddr); err != nil {
		return 0, fmt.Errorf("emulation failed: %w", err)
	}

	rax, err := mu.RegRead(uc.X86_REG_RAX)
	if err != nil {
		return 0, fmt.Errorf("read rax: %w", err)
	}
	log.Trace(log.ExecMonitoring, "sandbox run complete", "code", len(code), "rax", int64(rax))
	return int64(rax), nil
}
