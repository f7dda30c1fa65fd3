// cmd/braintrace/main.go
package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/resistor/BrainFTracing/internal/bytecode"
	"github.com/resistor/BrainFTracing/internal/codegen"
	"github.com/resistor/BrainFTracing/internal/debugger"
	"github.com/resistor/BrainFTracing/internal/errors"
	"github.com/resistor/BrainFTracing/internal/runtime"
	"github.com/resistor/BrainFTracing/internal/trace"
)

const Version = "1.0.0"

// Build variables — set during build with ldflags, matching the
// teacher's cmd/sentra/main.go convention.
var (
	BuildDate = time.Now().Format("2006-01-02")
	GitCommit = "unknown"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "run":
		runCommand(args[1:])
	case "disasm":
		disasmCommand(args[1:])
	case "trace":
		traceCommand(args[1:])
	case "debug":
		debugCommand(args[1:])
	case "version", "--version", "-v":
		showVersion()
	case "help", "--help", "-h":
		showUsage()
	default:
		fmt.Fprintf(os.Stderr, "braintrace: unknown command %q\n", args[0])
		showUsage()
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println("braintrace - a tracing JIT runtime for a tape-machine language")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  braintrace run <path|->      load and execute a program")
	fmt.Println("  braintrace disasm <path|->   print the opcode stream, jump map and any compiled IR")
	fmt.Println("  braintrace trace <path|->    run with trace/JIT statistics on stderr")
	fmt.Println("  braintrace debug <path|->    run under the interactive trace/dispatch debugger")
	fmt.Println("  braintrace version          print the version")
	fmt.Println("  braintrace help             print this message")
}

func showVersion() {
	fmt.Printf("braintrace %s (built %s, commit %s)\n", Version, BuildDate, GitCommit)
}

// readSource implements spec §6's CLI contract: a single positional
// argument naming a source file, or "-" for standard input. A missing
// argument is an *errors.RuntimeError per spec §7.
func readSource(args []string) ([]byte, *errors.RuntimeError) {
	if len(args) < 1 {
		return nil, errors.NewArgumentError("missing source path (use '-' for stdin)")
	}
	path := args[0]
	if path == "-" {
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, errors.NewIOError("-", err.Error())
		}
		return src, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError(path, err.Error())
	}
	return src, nil
}

func fail(err *errors.RuntimeError) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}

func runCommand(args []string) {
	src, err := readSource(args)
	if err != nil {
		fail(err)
	}
	rt := runtime.New(src, os.Stdin, os.Stdout)
	rt.Run()
}

func disasmCommand(args []string) {
	src, err := readSource(args)
	if err != nil {
		fail(err)
	}
	prog := bytecode.Load(src)

	fmt.Printf("; %d opcodes\n", prog.Len())
	for pc, op := range prog.Ops {
		line := fmt.Sprintf("%6d: %s", pc, op)
		if op == bytecode.OpOpen || op == bytecode.OpClose {
			line += fmt.Sprintf("  (jump -> %d)", prog.Jump[pc])
		}
		fmt.Println(line)
	}

	fmt.Println(";")
	fmt.Println("; optimization pipeline a real back end would run over each trace:")
	fmt.Printf(";   %v\n", codegen.OptPipeline())

	// Which headers get hot enough to compile is a runtime profile, not a
	// static property of the program, so printing their IR means actually
	// running it — exactly like `run`, with the same stdin/stdout.
	rt := runtime.New(src, os.Stdin, os.Stdout)
	rt.Run()

	headers := rt.Store.CompiledHeaders()
	sort.Ints(headers)

	fmt.Println(";")
	if len(headers) == 0 {
		fmt.Println("; no header got hot enough to compile during this run")
		return
	}
	fmt.Println("; compiled IR:")
	for _, pc := range headers {
		ir, ok := rt.Backend.IR(pc)
		if !ok {
			continue
		}
		fmt.Printf("; --- header %d ---\n", pc)
		fmt.Println(ir)
	}
}

func traceCommand(args []string) {
	src, err := readSource(args)
	if err != nil {
		fail(err)
	}
	rt := runtime.New(src, os.Stdin, os.Stdout)
	rt.Run()

	headers := rt.Store.CompiledHeaders()
	fmt.Fprintf(os.Stderr, "\n; trace/JIT summary\n")
	fmt.Fprintf(os.Stderr, "; compiled headers : %d\n", len(headers))
	for _, pc := range headers {
		fmt.Fprintf(os.Stderr, ";   header %d\n", pc)
	}
	fmt.Fprintf(os.Stderr, "; blacklisted      : %d\n", rt.Store.BlacklistSize())
	fmt.Fprintf(os.Stderr, "; final state      : %s\n", recorderStateName(rt.Recorder.State()))
}

func recorderStateName(s trace.State) string {
	return s.String()
}

func debugCommand(args []string) {
	src, err := readSource(args)
	if err != nil {
		fail(err)
	}
	rt := runtime.New(src, os.Stdin, os.Stdout)
	dbg := debugger.New(rt)
	dbg.Run()
}
