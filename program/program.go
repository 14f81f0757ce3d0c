package program

import (
	"errors"
	"fmt"
)

// Decoder errors
var (
	ErrMalformedBytecode = errors.New("malformed bytecode")
)

// Routine is one straight-line bytecode function: the encoded instruction
// stream, the constants table referenced by LOAD_CONST, and the declared
// argument count. The caller owns all three; nothing here mutates them.
type Routine struct {
	Name    string
	Code    []byte
	Consts  []int64
	NumArgs int
}

func (r *Routine) String() string {
	return fmt.Sprintf("%s/%d (%d bytes, %d consts)", r.Name, r.NumArgs, len(r.Code), len(r.Consts))
}
