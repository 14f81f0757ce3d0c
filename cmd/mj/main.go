// mj drives the bytecode recompiler from the command line: run routines
// natively or interpreted, inspect every stage of the pipeline, and check
// vector files against both engines.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/nsf/jsondiff"
	"github.com/spf13/cobra"

	"github.com/colorfulnotion/minijit/interpreter"
	"github.com/colorfulnotion/minijit/log"
	"github.com/colorfulnotion/minijit/program"
	"github.com/colorfulnotion/minijit/recompiler"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	passColor   = color.New(color.FgGreen)
	failColor   = color.New(color.FgRed, color.Bold)
)

// vectorResult is the comparable shape of one executed case.
type vectorResult struct {
	Args   []int64 `json:"args"`
	Result int64   `json:"result"`
}

func joinArgs(args []int64) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = strconv.FormatInt(a, 10)
	}
	return strings.Join(parts, ", ")
}

func parseCallArgs(raw []string) ([]int64, error) {
	args := make([]int64, len(raw))
	for i, s := range raw {
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		args[i] = v
	}
	return args, nil
}

func loadRoutine(path string) (*program.Routine, error) {
	rf, err := program.LoadRoutineFile(path)
	if err != nil {
		return nil, err
	}
	return rf.Routine()
}

func main() {
	var rootCmd = &cobra.Command{
		Use:     "mj",
		Short:   "Stack bytecode recompiler workbench",
		Version: fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime),
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	var (
		logLevel       string
		debug          string
		noColor        bool
		legacyOperands bool
		backend        string
		noOpt          bool
	)

	decodeMode := func() program.Mode {
		if legacyOperands {
			return program.ModeLegacyWide
		}
		return program.ModeFixedWidth
	}

	setup := func() {
		log.InitLogger(logLevel)
		if debug != "" {
			log.EnableModules(debug)
		}
		if noColor {
			color.NoColor = true
		}
	}

	var runCmd = &cobra.Command{
		Use:   "run <routine.json> [args...]",
		Short: "Run a routine with the given integer arguments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setup()
			r, err := loadRoutine(args[0])
			if err != nil {
				return err
			}
			callArgs, err := parseCallArgs(args[1:])
			if err != nil {
				return err
			}

			var result int64
			switch backend {
			case "interpreter":
				result, err = interpreter.Eval(r, decodeMode(), callArgs)
				if err != nil {
					return err
				}
			case "compiler", "auto":
				f := recompiler.Wrap(r, &recompiler.Config{Mode: decodeMode(), NoOptimize: noOpt})
				defer f.Close()
				result, err = f.Call(callArgs...)
				if err != nil {
					return err
				}
				if backend == "compiler" && f.State() != recompiler.StateCompiled {
					return fmt.Errorf("routine %q did not compile: %w", r.Name, f.Diagnostic())
				}
			default:
				return fmt.Errorf("unknown backend %q (interpreter, compiler, auto)", backend)
			}

			fmt.Printf("%s(%s) = %d\n", r.Name, joinArgs(callArgs), result)
			return nil
		},
	}

	var compileCmd = &cobra.Command{
		Use:   "compile <routine.json>",
		Short: "Show every stage of the pipeline for a routine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setup()
			r, err := loadRoutine(args[0])
			if err != nil {
				return err
			}
			insts, err := program.DecodeAll(r.Code, decodeMode())
			if err != nil {
				return err
			}
			headerColor.Printf("== %s: bytecode (%d instructions) ==\n", r.Name, len(insts))
			for _, in := range insts {
				fmt.Printf("  %s\n", in)
			}

			ir, err := recompiler.BuildIR(r, insts)
			if err != nil {
				return err
			}
			headerColor.Printf("== pseudo instructions (%d) ==\n", len(ir))
			fmt.Print(recompiler.FormatIR(ir))

			if !noOpt {
				ir = recompiler.Optimize(ir)
				headerColor.Printf("== optimized (%d) ==\n", len(ir))
				fmt.Print(recompiler.FormatIR(ir))
			}

			code, err := recompiler.Assemble(ir)
			if err != nil {
				return err
			}
			headerColor.Printf("== x86-64 (%d bytes) ==\n", len(code))
			fmt.Print(recompiler.Disassemble(code))
			return nil
		},
	}

	var disasmCmd = &cobra.Command{
		Use:   "disasm <hex>",
		Short: "Decode hex machine code bytes to a listing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setup()
			cleaned := strings.NewReplacer(" ", "", "\t", "", "\n", "").Replace(strings.Join(args, ""))
			code, err := hex.DecodeString(cleaned)
			if err != nil {
				return fmt.Errorf("bad machine code hex: %w", err)
			}
			fmt.Print(recompiler.Disassemble(code))
			return nil
		},
	}

	var vectorsCmd = &cobra.Command{
		Use:   "vectors <vectors.json>",
		Short: "Check every vector case against both engines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setup()
			vectors, err := program.LoadVectorFile(args[0])
			if err != nil {
				return err
			}

			opts := jsondiff.DefaultConsoleOptions()
			failures := 0
			for _, vec := range vectors {
				r, err := vec.Routine()
				if err != nil {
					return fmt.Errorf("routine %s: %w", vec.Name, err)
				}
				f := recompiler.Wrap(r, &recompiler.Config{Mode: decodeMode(), NoOptimize: noOpt})

				expected := make([]vectorResult, 0, len(vec.Cases))
				actual := make([]vectorResult, 0, len(vec.Cases))
				for _, c := range vec.Cases {
					got, err := f.Call(c.Args...)
					if err != nil {
						return fmt.Errorf("routine %s args %v: %w", vec.Name, c.Args, err)
					}
					interp, err := interpreter.Eval(r, decodeMode(), c.Args)
					if err != nil {
						return fmt.Errorf("routine %s args %v on the interpreter: %w", vec.Name, c.Args, err)
					}
					if got != interp {
						failures++
						failColor.Printf("FAIL %s(%s): engines disagree, native %d, interpreted %d\n",
							vec.Name, joinArgs(c.Args), got, interp)
					}
					expected = append(expected, vectorResult{Args: c.Args, Result: c.Expected})
					actual = append(actual, vectorResult{Args: c.Args, Result: got})
				}
				state := f.State()
				f.Close()

				wantJSON, _ := json.Marshal(expected)
				gotJSON, _ := json.Marshal(actual)
				if diff, desc := jsondiff.Compare(wantJSON, gotJSON, &opts); diff != jsondiff.FullMatch {
					failures++
					failColor.Printf("FAIL %s (%s)\n", vec.Name, state)
					fmt.Println(desc)
					continue
				}
				passColor.Printf("PASS %s (%d cases, %s)\n", vec.Name, len(vec.Cases), state)
			}

			if failures > 0 {
				return fmt.Errorf("%d vector mismatches", failures)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error, crit)")
	rootCmd.PersistentFlags().StringVar(&debug, "debug", "", "Log modules to enable (comma separated)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&legacyOperands, "legacy-operands", false, "Decode wide operands with no padding bytes")

	runCmd.Flags().StringVar(&backend, "backend", "auto", "Execution backend (interpreter, compiler, auto)")
	runCmd.Flags().BoolVar(&noOpt, "no-opt", false, "Skip the peephole optimizer")
	compileCmd.Flags().BoolVar(&noOpt, "no-opt", false, "Skip the peephole optimizer")
	vectorsCmd.Flags().BoolVar(&noOpt, "no-opt", false, "Skip the peephole optimizer")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(disasmCmd)
	rootCmd.AddCommand(vectorsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
