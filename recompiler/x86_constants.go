package recompiler

// REX prefixes
const (
	X86_REX_W_PREFIX = 0x48 // REX.W: 64-bit operand size, legacy registers only
)

// ModRM fields
const (
	X86_MOD_REGISTER = 0x03 // mod=11: both operands are registers
)

// One-byte primary opcodes
const (
	X86_OP_ADD_RM_R  = 0x01 // add r/m64, r64
	X86_OP_SUB_RM_R  = 0x29 // sub r/m64, r64
	X86_OP_PUSH_R    = 0x50 // push r64 (register in low 3 bits)
	X86_OP_POP_R     = 0x58 // pop r64 (register in low 3 bits)
	X86_OP_MOV_RM_R  = 0x89 // mov r/m64, r64
	X86_OP_MOV_R_IMM = 0xB8 // mov r64, imm64 (register in low 3 bits)
	X86_OP_RET       = 0xC3 // ret near
	X86_OP_GROUP3_RM = 0xF7 // unary group: neg/not/mul/div selected by ModRM.reg
)

// Two-byte opcodes, escaped by 0x0F
const (
	X86_PREFIX_0F     = 0x0F // two-byte opcode escape
	X86_OP2_IMUL_R_RM = 0xAF // imul r64, r/m64
)

// ModRM.reg selectors for the unary group
const (
	X86_REG_NEG = 3 // neg r/m64
)
