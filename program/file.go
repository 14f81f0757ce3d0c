package program

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Case is one invocation of a routine together with its expected result.
type Case struct {
	Args     []int64 `json:"args"`
	Expected int64   `json:"expected"`
}

// RoutineFile is the on-disk JSON form of a routine, shared by the test
// vectors and the mj tool. Bytecode is hex; whitespace is allowed between
// bytes.
type RoutineFile struct {
	Name     string  `json:"name"`
	NumArgs  int     `json:"num-args"`
	Consts   []int64 `json:"consts,omitempty"`
	Bytecode string  `json:"bytecode"`
	Cases    []Case  `json:"cases,omitempty"`
}

// Routine converts the file form into a Routine.
func (rf *RoutineFile) Routine() (*Routine, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, rf.Bytecode)
	code, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("routine %s: bad bytecode hex: %w", rf.Name, err)
	}
	return &Routine{
		Name:    rf.Name,
		Code:    code,
		Consts:  rf.Consts,
		NumArgs: rf.NumArgs,
	}, nil
}

// LoadRoutineFile reads a single routine JSON file.
func LoadRoutineFile(path string) (*RoutineFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rf RoutineFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &rf, nil
}

// LoadVectorFile reads a JSON array of routines.
func LoadVectorFile(path string) ([]RoutineFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rfs []RoutineFile
	if err := json.Unmarshal(data, &rfs); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rfs, nil
}
