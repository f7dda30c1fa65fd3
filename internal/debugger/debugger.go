// internal/debugger/debugger.go
//
// Adapted from the teacher's breakpoint console: same bufio.Reader-driven
// command loop and switch-on-command shape, repurposed from source-line
// breakpoints (which this runtime has no notion of — a tape machine has
// no call stack or source lines) to trace/dispatch introspection. This is
// the supplemented feature from original_source/'s commented-out
// module->dump() and BrainFTraceNode::dump: a way to look at what the JIT
// has decided to compile without a real debugger attached.
package debugger

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/resistor/BrainFTracing/internal/runtime"
)

// Debugger drives an interactive console over a single Runtime: run the
// program, then inspect which dispatch slots got compiled and what their
// trace trees look like.
type Debugger struct {
	rt      *runtime.Runtime
	reader  *bufio.Reader
	hasRun  bool
	running bool
}

// New returns a Debugger over rt, not yet run.
func New(rt *runtime.Runtime) *Debugger {
	return &Debugger{rt: rt, reader: bufio.NewReader(os.Stdin)}
}

// Run starts the interactive console loop.
func (d *Debugger) Run() {
	fmt.Println("braintrace debugger")
	fmt.Println("Type 'help' for available commands")

	d.running = true
	for d.running {
		fmt.Print("(braintrace-debug) ")
		line, err := d.reader.ReadString('\n')
		if err != nil {
			fmt.Printf("error reading command: %v\n", err)
			return
		}
		d.executeCommand(strings.TrimSpace(line))
	}
}

func (d *Debugger) executeCommand(command string) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return
	}
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "help", "h":
		d.showHelp()
	case "run", "r":
		d.runProgram()
	case "dump":
		d.dumpSlot(args)
	case "tree", "t":
		d.dumpTree(args)
	case "jit", "j":
		d.showJITSummary()
	case "quit", "q":
		d.running = false
		fmt.Println("debugging session terminated")
	default:
		fmt.Printf("unknown command: %s (type 'help' for available commands)\n", cmd)
	}
}

// runProgram executes the program once. Tracing and compilation happen
// exactly as they would under `braintrace run` — the debugger observes
// afterward, it doesn't single-step the dispatch loop (spec's Driver has
// no suspension points besides blocking host I/O, per §5).
func (d *Debugger) runProgram() {
	if d.hasRun {
		fmt.Println("program has already run to completion")
		return
	}
	d.hasRun = true
	d.rt.Run()
	fmt.Println("\nprogram terminated")
}

func (d *Debugger) dumpSlot(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: dump <pc>")
		return
	}
	pc, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Printf("invalid pc: %s\n", args[0])
		return
	}
	if pc < 0 || pc > d.rt.Table.Len() {
		fmt.Printf("pc %d out of range\n", pc)
		return
	}
	_, compiled := d.rt.Store.Tree(pc)
	if compiled {
		fmt.Printf("pc %d: compiled (tree rooted here)\n", pc)
	} else {
		fmt.Printf("pc %d: interpreted\n", pc)
	}
}

func (d *Debugger) dumpTree(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: tree <header-pc>")
		return
	}
	pc, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Printf("invalid pc: %s\n", args[0])
		return
	}
	d.rt.Store.Dump(os.Stdout, pc)
}

func (d *Debugger) showJITSummary() {
	headers := d.rt.Store.CompiledHeaders()
	fmt.Printf("compiled headers : %d\n", len(headers))
	for _, pc := range headers {
		fmt.Printf("  header %d\n", pc)
	}
	fmt.Printf("blacklisted      : %d\n", d.rt.Store.BlacklistSize())
	fmt.Printf("recorder state   : %s\n", d.rt.Recorder.State())
}

func (d *Debugger) showHelp() {
	fmt.Println("Available commands:")
	fmt.Println("  help, h         - show this help")
	fmt.Println("  run, r          - execute the program to completion")
	fmt.Println("  dump <pc>       - show whether a dispatch slot is interpreted or compiled")
	fmt.Println("  tree <pc>       - print the committed trace tree rooted at header pc")
	fmt.Println("  jit, j          - print JIT summary: compiled headers, blacklist, recorder state")
	fmt.Println("  quit, q         - exit the debugger")
}
