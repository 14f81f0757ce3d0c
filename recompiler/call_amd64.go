package recompiler

// callNative enters compiled code at entry with the System V AMD64
// convention: a0..a3 in rdi, rsi, rdx, rcx, result in rax. Callers zero the
// unused argument registers so unset local slots read as zero, the same as
// the interpreter's locals.
//
//go:noescape
func callNative(entry uintptr, a0, a1, a2, a3 int64) int64
