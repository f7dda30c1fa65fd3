// Package runtime wires the Bytecode Store, Tape, Recorder, Compiler and
// Dispatch Table into the single value spec §9's design note asks for
// ("Treat them as fields of a single Runtime value threaded through
// initialization"), and drives one program to completion.
package runtime

import (
	"bufio"
	"io"

	"github.com/resistor/BrainFTracing/internal/bytecode"
	"github.com/resistor/BrainFTracing/internal/codegen"
	"github.com/resistor/BrainFTracing/internal/dispatch"
	"github.com/resistor/BrainFTracing/internal/tape"
	"github.com/resistor/BrainFTracing/internal/trace"
)

// Runtime holds every piece of mutable state a single run needs, per
// spec §5's "Shared resources" list: dispatch table, tape, tree store,
// counter table and recorder state, all owned here and never shared
// across runs.
type Runtime struct {
	Prog     *bytecode.Program
	Tape     *tape.Tape
	Table    *dispatch.Table
	Store    *trace.Store
	Recorder *trace.Recorder
	Backend  *codegen.Backend

	out *bufio.Writer
}

// New builds a Runtime over src, reading ',' input from in and writing
// '.' output to out. Grounded on internal/vmregister/vm.go's
// NewRegisterVM constructor: load the static program first, then build
// every field that depends on it, then wire the pieces that reference
// each other (recorder → compiler → dispatch table) last.
func New(src []byte, in io.Reader, out io.Writer) *Runtime {
	prog := bytecode.Load(src)
	tp := tape.New()
	store := trace.NewStore()
	rec := trace.New(store)

	br := bufio.NewReader(in)
	bw := bufio.NewWriter(out)

	table := dispatch.New(prog, rec, br, bw)
	backend := codegen.New(prog, rec, br, bw)

	// Wire the recorder's commit callbacks to the compiler without trace
	// importing codegen or dispatch: this is the one place in the module
	// that holds all three packages at once, by design (spec §9:
	// "dispatch table, jump map and trace recorder ... fields of a single
	// Runtime value").
	rec.OnCommit = func(headerPC int) {
		root, ok := store.Tree(headerPC)
		if !ok {
			return
		}
		if native, err := backend.Compile(root); err == nil {
			table.Install(headerPC, native)
		}
	}
	rec.OnExtensionCommit = rec.OnCommit

	return &Runtime{
		Prog:     prog,
		Tape:     tp,
		Table:    table,
		Store:    store,
		Recorder: rec,
		Backend:  backend,
		out:      bw,
	}
}

// Run executes the program to completion: dispatch[0] with the tape's
// starting head, looped by the Table's trampoline until the terminator
// slot returns. Per spec §2: "Driver → dispatch[0] → Handler → Recorder →
// (occasionally) Compiler → rewrite dispatch[pc]".
func (r *Runtime) Run() {
	r.Table.Run(r.Tape.Head())
	r.out.Flush()
}
