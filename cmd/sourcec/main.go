// Command sourcec is the thin phase-sequencing driver over internal/corec.
// It reads a hirio YAML document, runs the full HIR-to-MIR pipeline, and
// writes diagnostics/dumps to the terminal, playing the role the teacher's
// cmd/malphas/main.go plays upstream of LLVM codegen — minus the
// LLVM-toolchain probing (findLLC/findOpt) and object-file emission,
// since this CORE's output is the §6 textual MIR grammar, not machine
// code.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sourcelang/corec/internal/corec"
	"github.com/sourcelang/corec/internal/diag"
	"github.com/sourcelang/corec/internal/dump"
	"github.com/sourcelang/corec/internal/hirio"
	"github.com/sourcelang/corec/internal/ident"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sourcec",
		Short: "Source language CORE compiler driver",
	}
	root.AddCommand(newCompileCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the driver version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "sourcec (CORE) 0.1.0")
			return nil
		},
	}
}

func newCompileCmd() *cobra.Command {
	var (
		input   string
		mainFn  string
		verify  bool
		dumpHIR string
		dumpMIR string
	)

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Run the HIR-to-MIR pipeline over a hirio document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, input, mainFn, verify, dumpHIR, dumpMIR)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&input, "input", "", "path to a hirio YAML document (required)")
	flags.StringVar(&mainFn, "main", "main", "qualified name of the entry point monomorphisation seeds from")
	flags.BoolVar(&verify, "verify", false, "run the optional type-verification pass between drop insertion and monomorphisation")
	flags.StringVar(&dumpHIR, "dump-hir", "", "write a YAML snapshot of the normalized HIR to this path")
	flags.StringVar(&dumpMIR, "dump-mir", "", "write a YAML snapshot of the lowered MIR to this path")
	cmd.MarkFlagRequired("input")

	return cmd
}

func runCompile(cmd *cobra.Command, input, mainFn string, runVerify bool, dumpHIRPath, dumpMIRPath string) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("sourcec: read %s: %w", input, err)
	}

	prog, err := hirio.Decode(data)
	if err != nil {
		return fmt.Errorf("sourcec: decode %s: %w", input, err)
	}

	rc := diag.NewReportContext(os.Stdout)
	bag := rc.NextBag()

	opts := corec.Options{MainName: ident.Item{Name: mainFn}, RunVerify: runVerify}
	result, ok := corec.Compile(prog, bag, opts)
	rc.RenderBag(bag)

	if dumpHIRPath != "" && result.Normalized != nil {
		if err := writeDump(dumpHIRPath, dump.HIR(result.Normalized)); err != nil {
			return err
		}
	}
	if dumpMIRPath != "" && result.MIR != nil {
		if err := writeDump(dumpMIRPath, dump.MIR(result.MIR)); err != nil {
			return err
		}
	}

	if !ok {
		return fmt.Errorf("sourcec: compilation failed")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "compiled %d function(s)\n", len(result.MIR.Functions))
	return nil
}

func writeDump(path string, v interface{}) error {
	text, err := dump.Marshal(v)
	if err != nil {
		return fmt.Errorf("sourcec: marshal dump: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("sourcec: write %s: %w", path, err)
	}
	return nil
}
