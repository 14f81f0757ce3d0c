package recompiler

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colorfulnotion/minijit/interpreter"
	"github.com/colorfulnotion/minijit/program"
)

func TestWrapStateLifecycle(t *testing.T) {
	skipIfNoNative(t)

	f := Wrap(squareDifference(), nil)
	assert.Equal(t, StateUncompiled, f.State())
	assert.Nil(t, f.Code())
	assert.Zero(t, f.Entry())
	assert.NoError(t, f.Diagnostic())

	_, err := f.Call(2, 1)
	require.NoError(t, err)
	assert.Equal(t, StateCompiled, f.State())
	assert.NotZero(t, f.Entry())
	require.NoError(t, f.Close())
	assert.Equal(t, StateFallback, f.State())
	assert.Zero(t, f.Entry())
}

func TestCallArityMismatch(t *testing.T) {
	f := Wrap(squareDifference(), nil)

	_, err := f.Call(1)
	require.Error(t, err)
	assert.ErrorIs(t, err, interpreter.ErrBadArgumentCount)

	// a bad call never triggers compilation
	assert.Equal(t, StateUncompiled, f.State())
}

func TestConcurrentFirstCall(t *testing.T) {
	skipIfNoNative(t)

	f := Wrap(squareDifference(), nil)
	defer f.Close()

	const callers = 8
	var wg sync.WaitGroup
	results := make([]int64, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.Call(3, 4)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, int64(-7), results[i])
	}
	assert.Equal(t, StateCompiled, f.State())
}

func TestFallbackRouting(t *testing.T) {
	skipIfNoNative(t)

	r := &program.Routine{
		Name:    "dup_square",
		NumArgs: 1,
		Code: []byte{
			program.LOAD_LOCAL, 0,
			program.DUP, 0,
			program.MUL, 0,
			program.RETURN, 0,
		},
	}

	var hits atomic.Int64
	f := Wrap(r, &Config{
		Fallback: func(args ...int64) (int64, error) {
			hits.Add(1)
			return interpreter.Run(r, args...)
		},
	})

	for i := 0; i < 3; i++ {
		got, err := f.Call(9)
		require.NoError(t, err)
		assert.Equal(t, int64(81), got)
	}

	assert.Equal(t, int64(3), hits.Load(), "every call must route through the fallback")
	assert.Equal(t, StateFallback, f.State())
	assert.ErrorIs(t, f.Diagnostic(), ErrUnsupportedOpcode)
}

func TestCloseBeforeFirstCall(t *testing.T) {
	f := Wrap(squareDifference(), nil)
	require.NoError(t, f.Close())
	assert.Equal(t, StateFallback, f.State())

	// still callable, permanently interpreted
	got, err := f.Call(3, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(-7), got)
	assert.Nil(t, f.Code())
}

func TestFuncStateString(t *testing.T) {
	assert.Equal(t, "uncompiled", StateUncompiled.String())
	assert.Equal(t, "compiling", StateCompiling.String())
	assert.Equal(t, "compiled", StateCompiled.String())
	assert.Equal(t, "fallback", StateFallback.String())
}
