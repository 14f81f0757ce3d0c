//go:build unicorn

package recompiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colorfulnotion/minijit/interpreter"
	"github.com/colorfulnotion/minijit/program"
)

// The emulator runs the generated code without host support, so this suite
// checks the assembler even on machines where callNative cannot.
func TestSandboxMatchesInterpreter(t *testing.T) {
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
		code, err := Assemble(Optimize(ir))
		require.NoError(t, err)

		t.Run(vec.Name, func(t *testing.T) {
			for _, c := range vec.Cases {
				want, err := interpreter.Run(r, c.Args...)
				require.NoError(t, err)

				got, err := SandboxRun(code, c.Args)
				require.NoError(t, err)
				assert.Equal(t, want, got, "args %v", c.Args)
			}
		})
	}
}

func TestSandboxRejectsWideCalls(t *testing.T) {
	_, err := SandboxRun([]byte{X86_OP_RET}, make([]int64, MaxArgs+1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooManyArguments)
}
