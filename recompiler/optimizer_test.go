package recompiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colorfulnotion/minijit/program"
)

func mustBuildIR(t *testing.T, r *program.Routine) []Inst {
	t.Helper()
	insts, err := program.DecodeAll(r.Code, program.ModeFixedWidth)
	require.NoError(t, err)
	ir, err := BuildIR(r, insts)
	require.NoError(t, err)
	return ir
}

func TestOptimizeDropsSelfMove(t *testing.T) {
	ir := []Inst{
		{Op: OpMov, Dst: RAX, Src: RAX},
		{Op: OpRet},
	}
	out := Optimize(ir)
	require.Len(t, out, 1)
	assert.Equal(t, OpRet, out[0].Op)
}

func TestOptimizeForwardsMove(t *testing.T) {
	t.Run("collapses when the middle register dies", func(t *testing.T) {
		// mov rbx, rdi; mov rcx, rbx  =>  mov rcx, rdi
		ir := []Inst{
			{Op: OpMov, Dst: RBX, Src: RDI},
			{Op: OpMov, Dst: RCX, Src: RBX},
			{Op: OpRet},
		}
		out := Optimize(ir)
		require.Len(t, out, 2)
		assert.Equal(t, Inst{Op: OpMov, Dst: RCX, Src: RDI}, out[0])
	})

	t.Run("blocked while the middle register is still read", func(t *testing.T) {
		// dropping the write to rax would feed stale rax into the add
		ir := []Inst{
			{Op: OpMov, Dst: RAX, Src: RDI},
			{Op: OpMov, Dst: RBX, Src: RAX},
			{Op: OpAdd, Dst: RAX, Src: RBX},
			{Op: OpRet},
		}
		assert.Equal(t, ir, Optimize(ir))
	})

	t.Run("blocked when ret still needs the result register", func(t *testing.T) {
		ir := []Inst{
			{Op: OpMov, Dst: RAX, Src: RDI},
			{Op: OpMov, Dst: RBX, Src: RAX},
			{Op: OpRet},
		}
		assert.Equal(t, ir, Optimize(ir))
	})
}

func TestOptimizeForwardsImmediate(t *testing.T) {
	// mov rbx, 7; mov rcx, rbx  =>  mov rcx, 7
	ir := []Inst{
		{Op: OpMovImm, Dst: RBX, Imm: 7},
		{Op: OpMov, Dst: RCX, Src: RBX},
		{Op: OpRet},
	}
	out := Optimize(ir)
	require.Len(t, out, 2)
	assert.Equal(t, Inst{Op: OpMovImm, Dst: RCX, Imm: 7}, out[0])
}

func TestOptimizePushPopPair(t *testing.T) {
	ir := []Inst{
		{Op: OpPush, Dst: RDI},
		{Op: OpPop, Dst: RAX},
		{Op: OpRet},
	}
	out := Optimize(ir)
	require.Len(t, out, 2)
	assert.Equal(t, Inst{Op: OpMov, Dst: RAX, Src: RDI}, out[0])
}

func TestOptimizePushOpPop(t *testing.T) {
	t.Run("rewrites when the middle op writes elsewhere", func(t *testing.T) {
		ir := []Inst{
			{Op: OpPush, Dst: RDI},
			{Op: OpNeg, Dst: RBX},
			{Op: OpPop, Dst: RAX},
		}
		out := optimizePass(ir)
		require.Len(t, out, 2)
		assert.Equal(t, Inst{Op: OpMov, Dst: RAX, Src: RDI}, out[0])
		assert.Equal(t, Inst{Op: OpNeg, Dst: RBX}, out[1])
	})

	t.Run("blocked when the middle op writes the pop target", func(t *testing.T) {
		ir := []Inst{
			{Op: OpPush, Dst: RDI},
			{Op: OpNeg, Dst: RAX},
			{Op: OpPop, Dst: RAX},
		}
		out := optimizePass(ir)
		assert.Equal(t, ir, out)
	})

	t.Run("blocked when the middle op touches the stack", func(t *testing.T) {
		ir := []Inst{
			{Op: OpPush, Dst: RDI},
			{Op: OpPush, Dst: RSI},
			{Op: OpPop, Dst: RAX},
		}
		out := optimizePass(ir)
		// the inner push/pop pair still collapses on its own
		require.Len(t, out, 2)
		assert.Equal(t, Inst{Op: OpPush, Dst: RDI}, out[0])
		assert.Equal(t, Inst{Op: OpMov, Dst: RAX, Src: RSI}, out[1])
	})
}

func TestOptimizePushTwoOpsPop(t *testing.T) {
	ir := []Inst{
		{Op: OpPush, Dst: RDI},
		{Op: OpNeg, Dst: RBX},
		{Op: OpNeg, Dst: RCX},
		{Op: OpPop, Dst: RAX},
	}
	out := optimizePass(ir)
	require.Len(t, out, 3)
	assert.Equal(t, Inst{Op: OpMov, Dst: RAX, Src: RDI}, out[0])
	assert.Equal(t, Inst{Op: OpNeg, Dst: RBX}, out[1])
	assert.Equal(t, Inst{Op: OpNeg, Dst: RCX}, out[2])
}

func TestOptimizeStoreThenLoadCollapses(t *testing.T) {
	// store x into a slot and read it straight back: all the stack
	// traffic reduces to one register move
	r := &program.Routine{
		Name:    "store_then_load",
		NumArgs: 1,
		Code: []byte{
			program.LOAD_LOCAL, 0,
			program.STORE_LOCAL, 1,
			program.LOAD_LOCAL, 1,
			program.RETURN, 0,
		},
	}
	ir := mustBuildIR(t, r)
	require.Len(t, ir, 6)

	out := Optimize(ir)
	require.Len(t, out, 2)
	assert.Equal(t, Inst{Op: OpMov, Dst: RAX, Src: RDI}, out[0])
	assert.Equal(t, OpRet, out[1].Op)
}

func TestOptimizeKeepsLiveSlotWrite(t *testing.T) {
	// the stored slot is read twice, so the move filling it must survive
	// every pass; forwarding it away would square a stale register
	r := &program.Routine{
		Name:    "store_then_square",
		NumArgs: 1,
		Code: []byte{
			program.LOAD_LOCAL, 0,
			program.STORE_LOCAL, 1,
			program.LOAD_LOCAL, 1,
			program.LOAD_LOCAL, 1,
			program.MUL, 0,
			program.RETURN, 0,
		},
	}
	out := Optimize(mustBuildIR(t, r))
	require.Len(t, out, 5)
	assert.Equal(t, Inst{Op: OpMov, Dst: RSI, Src: RDI}, out[0])
	assert.Equal(t, Inst{Op: OpMov, Dst: RBX, Src: RSI}, out[1])
	assert.Equal(t, Inst{Op: OpMov, Dst: RAX, Src: RSI}, out[2])
	assert.Equal(t, Inst{Op: OpMul, Dst: RAX, Src: RBX}, out[3])
	assert.Equal(t, OpRet, out[4].Op)
}

func TestOptimizeConstantProduct(t *testing.T) {
	// 7*6 settles into two immediate loads and one multiply
	r := &program.Routine{
		Name:   "six_times_seven",
		Consts: []int64{7, 6},
		Code: []byte{
			program.LOAD_CONST, 0,
			program.LOAD_CONST, 1,
			program.MUL, 0,
			program.RETURN, 0,
		},
	}
	out := Optimize(mustBuildIR(t, r))
	require.Len(t, out, 4)
	assert.Equal(t, Inst{Op: OpMovImm, Dst: RBX, Imm: 7}, out[0])
	assert.Equal(t, Inst{Op: OpMovImm, Dst: RAX, Imm: 6}, out[1])
	assert.Equal(t, Inst{Op: OpMul, Dst: RAX, Src: RBX}, out[2])
	assert.Equal(t, OpRet, out[3].Op)
}

func TestOptimizeFixedPoint(t *testing.T) {
	r := &program.Routine{
		Name:    "square_difference",
		NumArgs: 2,
		Code: []byte{
			program.LOAD_LOCAL, 0,
			program.LOAD_LOCAL, 0,
			program.MUL, 0,
			program.LOAD_LOCAL, 1,
			program.LOAD_LOCAL, 1,
			program.MUL, 0,
			program.SUB, 0,
			program.RETURN, 0,
		},
	}
	ir := mustBuildIR(t, r)

	once := Optimize(ir)
	twice := Optimize(once)
	assert.Equal(t, once, twice, "a second optimize run must change nothing")

	// one extra pass over the settled form is also a no-op
	assert.Equal(t, twice, optimizePass(twice))
}

func TestOptimizeNeverGrows(t *testing.T) {
	vectors, err := program.LoadVectorFile("../program/testdata/vectors.json")
	require.NoError(t, err)

	for _, vec := range vectors {
		r, err := vec.Routine()
		require.NoError(t, err)
		insts, err := program.DecodeAll(r.Code, program.ModeFixedWidth)
		require.NoError(t, err)
		ir, err := BuildIR(r, insts)
		if err != nil {
			continue // interpreter-only vector
		}
		t.Run(vec.Name, func(t *testing.T) {
			out := Optimize(ir)
			assert.LessOrEqual(t, len(out), len(ir))
		})
	}
}
