package codegen

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/resistor/BrainFTracing/internal/bytecode"
	"github.com/resistor/BrainFTracing/internal/trace"
)

// TestCompiledTraceMatchesInterpretation drives a recorder to commit the
// trace "[-]" rooted at pc=1 of "+[-]", compiles it, and checks the
// resulting handler drains a cell exactly like the interpreter would —
// the round-trip invariant spec §8 describes.
func TestCompiledTraceMatchesInterpretation(t *testing.T) {
	src := "+[-]"
	prog := bytecode.Load([]byte(src))

	store := trace.NewStore()
	rec := trace.New(store)

	var outBuf bytes.Buffer
	in := bufio.NewReader(strings.NewReader(""))
	out := bufio.NewWriter(&outBuf)
	backend := New(prog, rec, in, out)

	savedThreshold := trace.TraceThreshold
	trace.TraceThreshold = 0
	defer func() { trace.TraceThreshold = savedThreshold }()

	rec.Step(1, bytecode.OpOpen, 2) // crosses the lowered threshold, seeds the buffer -> Recording
	rec.Step(2, bytecode.OpDecr, 3)
	rec.Step(3, bytecode.OpClose, 1) // closes back to header pc=1 -> commit

	root, ok := store.Tree(1)
	if !ok {
		t.Fatal("trace did not commit at header pc=1")
	}

	handler, err := backend.Compile(root)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}

	cells := make([]byte, 16)
	head := &cells[8]
	*head = 3

	// The compiled handler's internal loop runs until it takes a side exit
	// (the '[' test failing on a zero cell), so one call drains the whole
	// trace — unlike the interpreter, which re-dispatches per opcode.
	pc, head := handler(1, head)
	if *head != 0 {
		t.Fatalf("cell = %d, want 0 after the compiled loop drained it", *head)
	}
	if pc != 4 {
		t.Fatalf("exit pc = %d, want 4 (one past the closing ']')", pc)
	}

	if ir, ok := backend.IR(1); !ok || ir == "" {
		t.Fatal("backend kept no IR for header pc=1")
	}
	heads := backend.CompiledHeaders()
	if len(heads) != 1 || heads[0] != 1 {
		t.Fatalf("CompiledHeaders() = %v, want [1]", heads)
	}
}

func TestOptPipelineIsStable(t *testing.T) {
	p1 := OptPipeline()
	p2 := OptPipeline()
	if len(p1) == 0 {
		t.Fatal("OptPipeline() returned nothing")
	}
	p1[0] = "mutated"
	if p2[0] == "mutated" {
		t.Fatal("OptPipeline() leaked its backing array")
	}
}
