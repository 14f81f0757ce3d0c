package recompiler

// X86Reg describes one general purpose register and the 3-bit code that
// names it inside ModRM bytes and register-carrying opcodes.
type X86Reg struct {
	Name    string
	RegBits byte
}

var (
	RAX = X86Reg{Name: "rax", RegBits: 0}
	RCX = X86Reg{Name: "rcx", RegBits: 1}
	RDX = X86Reg{Name: "rdx", RegBits: 2}
	RBX = X86Reg{Name: "rbx", RegBits: 3}
	RSP = X86Reg{Name: "rsp", RegBits: 4}
	RBP = X86Reg{Name: "rbp", RegBits: 5}
	RSI = X86Reg{Name: "rsi", RegBits: 6}
	RDI = X86Reg{Name: "rdi", RegBits: 7}
)

// regInfoList holds the eight legacy registers in encoding order. Generated
// code never addresses rsp or rbp directly; they are listed so the table
// covers the full 3-bit space.
var regInfoList = []X86Reg{RAX, RCX, RDX, RBX, RSP, RBP, RSI, RDI}

// argRegs fixes the System V AMD64 integer argument order. Local slot n is
// pinned to argRegs[n] for the lifetime of a routine, so stores write the
// register and later loads read it back.
var argRegs = [4]X86Reg{RDI, RSI, RDX, RCX}

// MaxArgs is the widest signature native code can accept. Routines beyond
// it still run, they just stay on the interpreter.
const MaxArgs = len(argRegs)
