package trace

import (
	"testing"

	"github.com/resistor/BrainFTracing/internal/bytecode"
)

func TestProfilingIgnoresSimpleOps(t *testing.T) {
	store := NewStore()
	rec := New(store)
	rec.Step(5, bytecode.OpIncr, 6)
	if rec.count[5%IterationBufSize] != 0 {
		t.Fatalf("simple op incremented iteration counter")
	}
}

func TestCounterSaturatesAt254(t *testing.T) {
	rec := New(NewStore())
	rec.count[0] = 253
	rec.stepProfiling(0, bytecode.OpClose, 5)
	if rec.count[0] != counterSaturation {
		t.Fatalf("count[0] = %d, want %d", rec.count[0], counterSaturation)
	}

	rec = New(NewStore())
	rec.count[0] = counterSaturation
	rec.stepProfiling(0, bytecode.OpClose, 999)
	if rec.count[0] != counterSaturation {
		t.Fatalf("counter exceeded saturation cap: %d", rec.count[0])
	}
}

func TestHotLoopCommitsAndCompiles(t *testing.T) {
	store := NewStore()
	rec := New(store)
	committed := 0
	rec.OnCommit = func(pc int) {
		committed++
		if pc != 0 {
			t.Errorf("committed at pc %d, want 0", pc)
		}
	}

	rec.count[0] = byte(TraceThreshold)
	rec.Step(0, bytecode.OpOpen, 1) // crosses threshold, seeds buffer, -> Recording
	if rec.state != Recording {
		t.Fatalf("never entered Recording, state=%v", rec.state)
	}

	rec.Step(1, bytecode.OpDecr, 2)
	rec.Step(2, bytecode.OpClose, 0) // closes back to header pc 0

	if committed != 1 {
		t.Fatalf("committed %d times, want 1", committed)
	}
	root, ok := store.Tree(0)
	if !ok {
		t.Fatal("no tree committed at header 0")
	}
	if root.Opcode != bytecode.OpOpen || root.PC != 0 {
		t.Fatalf("unexpected root: %+v", root)
	}
	if root.LeftEdge != EdgeChild || root.Left == nil || root.Left.PC != 1 {
		t.Fatalf("unexpected root.Left: edge=%v node=%+v", root.LeftEdge, root.Left)
	}
	if root.Left.LeftEdge != EdgeChild || root.Left.Left.PC != 2 {
		t.Fatalf("unexpected decr child: %+v", root.Left.Left)
	}
	if root.Left.Left.RightEdge != EdgeBackToRoot {
		t.Fatalf("']' node should close back to root, got %v", root.Left.Left.RightEdge)
	}
	if rec.state != Profiling {
		t.Fatalf("state after commit = %v, want Profiling", rec.state)
	}
}

func TestBackedgeThresholdAbortsRecording(t *testing.T) {
	store := NewStore()
	rec := New(store)
	rec.buf.reset()
	rec.buf.push(bytecode.OpOpen, 0)
	rec.state = Recording
	rec.backedgeCount = 0

	for i := 0; i < BackedgeThreshold+1; i++ {
		rec.Step(100+i, bytecode.OpClose, 50+i) // never closes back to header 0
	}

	if rec.state != Profiling {
		t.Fatalf("state = %v, want Profiling after backedge abort", rec.state)
	}
	if _, ok := store.Tree(0); ok {
		t.Fatal("trace should not have committed after backedge abort")
	}
}

func TestBufferFullAbortsAndRedispatches(t *testing.T) {
	store := NewStore()
	rec := New(store)
	rec.buf.reset()
	rec.buf.push(bytecode.OpOpen, 0)
	rec.state = Recording
	for i := 1; i < BufSize; i++ {
		rec.Step(i, bytecode.OpIncr, i+1)
		if rec.state != Recording {
			t.Fatalf("aborted early at step %d", i)
		}
	}
	rec.Step(BufSize, bytecode.OpIncr, BufSize+1)
	if rec.state != Profiling {
		t.Fatalf("state = %v, want Profiling after buffer overflow", rec.state)
	}
}

func TestArmOnlyTakesEffectFromProfiling(t *testing.T) {
	store := NewStore()
	rec := New(store)
	root := store.RootFor(0, bytecode.OpOpen)
	leaf := &Node{Opcode: bytecode.OpIncr, PC: 5, Depth: 2}

	rec.state = Recording
	rec.Arm(root, leaf, 6)
	if rec.state != Recording {
		t.Fatalf("Arm took effect while Recording")
	}

	rec.state = Profiling
	rec.Arm(root, leaf, 6)
	if rec.state != ExtensionBegin {
		t.Fatalf("Arm from Profiling did not transition to ExtensionBegin, got %v", rec.state)
	}
}

// TestExtensionBeginGivesUpOnBlacklistedPC drives the give-up check the way
// real dispatch actually does: the leaf at pc=5 is a '+', so the side exit
// resumes at targetPC=6 (leaf.PC+1), and the very next Step call genuinely
// carries pc=6, never pc=5 (leaf.PC itself is never dispatched again — it
// already ran before the exit). Blacklisting must be checked under that
// same targetPC.
func TestExtensionBeginGivesUpOnBlacklistedPC(t *testing.T) {
	store := NewStore()
	rec := New(store)
	root := store.RootFor(0, bytecode.OpOpen)
	leaf := &Node{Opcode: bytecode.OpIncr, PC: 5, Depth: 1}
	store.Blacklist(6)

	rec.state = Profiling
	rec.Arm(root, leaf, 6)
	rec.Step(6, bytecode.OpIncr, 7) // first post-exit step, pc == targetPC

	if rec.state != Profiling {
		t.Fatalf("blacklisted extension should give up, state=%v", rec.state)
	}
}

// TestExtensionAbortBlacklistsTargetPCDispatchChecks is the real round trip
// the give-up path exists for: an Extension pass aborts (too many
// back-edges), blacklisting whatever pc the side exit actually resumes at;
// a later Arm through the exact same leaf must then be refused the moment
// dispatch reaches that same pc again, not silently retried forever.
func TestExtensionAbortBlacklistsTargetPCDispatchChecks(t *testing.T) {
	store := NewStore()
	rec := New(store)
	root := store.RootFor(0, bytecode.OpOpen)
	leaf := &Node{Opcode: bytecode.OpIncr, PC: 5, Depth: 1}
	const targetPC = 6

	rec.state = Profiling
	rec.Arm(root, leaf, targetPC)
	rec.Step(targetPC, bytecode.OpClose, 50) // enters Extension, never closes to root

	for i := 0; i < BackedgeThreshold; i++ {
		rec.Step(100+i, bytecode.OpClose, 50+i)
	}
	if rec.state != Profiling {
		t.Fatalf("state = %v, want Profiling after backedge-threshold abort", rec.state)
	}
	if !store.Blacklisted(targetPC) {
		t.Fatal("abort did not blacklist the side exit's actual resumption pc")
	}
	if store.Blacklisted(leaf.PC) {
		t.Fatal("abort blacklisted leaf.PC instead of the resumption pc — nothing dispatches through leaf.PC again")
	}

	// A later side exit through the same leaf must now give up immediately,
	// exactly as the real dispatch trampoline would drive it: Arm, then the
	// first Step call after the exit carries pc == targetPC.
	rec.state = Profiling
	rec.Arm(root, leaf, targetPC)
	rec.Step(targetPC, bytecode.OpIncr, targetPC+1)
	if rec.state != Profiling {
		t.Fatalf("repeat extension through a blacklisted target should give up, state=%v", rec.state)
	}
}

func TestExtensionCommitGrowsExistingTree(t *testing.T) {
	store := NewStore()
	rec := New(store)

	root := store.RootFor(0, bytecode.OpOpen)
	leaf := &Node{Opcode: bytecode.OpOpen, PC: 0, Depth: 0}

	extended := 0
	rec.OnExtensionCommit = func(pc int) {
		extended++
		if pc != 0 {
			t.Errorf("extension commit at %d, want 0", pc)
		}
	}

	rec.state = Profiling
	rec.Arm(root, leaf, 10)
	rec.Step(10, bytecode.OpIncr, 11)
	if rec.state != Extension {
		t.Fatalf("state = %v, want Extension", rec.state)
	}
	rec.Step(11, bytecode.OpIncr, 0) // closes back to extensionRoot.PC (0)

	if extended != 1 {
		t.Fatalf("extension committed %d times, want 1", extended)
	}
	if leaf.LeftEdge != EdgeChild && leaf.RightEdge != EdgeChild {
		t.Fatalf("leaf gained no child from extension: %+v", leaf)
	}
}
