package trace

import "github.com/resistor/BrainFTracing/internal/bytecode"

// IterationBufSize sizes the fixed iteration-count histogram; it must stay
// a const since it bounds an array field. TraceThreshold and
// BackedgeThreshold are "tunable but fixed at runtime" per spec §4.3 — vars
// rather than consts so a test can lower TRACE_THRESHOLD the way spec §8
// scenario 3 does ("interpreted with TRACE_THRESHOLD lowered to 2 for the
// test") without needing a second code path.
const (
	IterationBufSize  = 1024
	counterSaturation = 254
)

var (
	TraceThreshold    = 100
	BackedgeThreshold = 5
)

// State is one of the four recorder states from spec §4.3.
type State int

const (
	Profiling State = iota
	Recording
	ExtensionBegin
	Extension
)

func (s State) String() string {
	switch s {
	case Profiling:
		return "profiling"
	case Recording:
		return "recording"
	case ExtensionBegin:
		return "extension-begin"
	case Extension:
		return "extension"
	default:
		return "invalid"
	}
}

// Recorder drives the Profiling → Recording → (commit) → Profiling cycle
// and the ExtensionBegin → Extension → (commit) → Profiling cycle that
// grows a tree through a side exit. It owns the iteration-count histogram
// and the trace buffer; the tree store is shared with the compiler via the
// same *Store the Runtime wires in.
//
// OnCommit and OnExtensionCommit are set by the runtime layer (see
// internal/runtime) to trigger compilation without this package importing
// the compiler — the Recorder only ever names a header pc, never a native
// function.
type Recorder struct {
	store *Store
	buf   buffer
	count [IterationBufSize]byte

	state         State
	backedgeCount int

	extensionRoot   *Node
	extensionLeaf   *Node
	extensionTarget int

	OnCommit          func(headerPC int)
	OnExtensionCommit func(rootPC int)
}

// New returns a Recorder in the Profiling state, backed by store.
func New(store *Store) *Recorder {
	return &Recorder{store: store, state: Profiling}
}

// State reports the recorder's current state, used by the debugger and
// the `trace` CLI subcommand.
func (r *Recorder) State() State {
	return r.state
}

// Store returns the tree store this recorder commits into.
func (r *Recorder) Store() *Store {
	return r.store
}

// Step is called by every opcode handler before it executes its effect,
// per spec §4.2's "report to the Recorder" contract, carrying exactly the
// (pc, opcode, next_pc) triple the handler already computed.
func (r *Recorder) Step(pc int, opcode bytecode.OpCode, nextPC int) {
	switch r.state {
	case Profiling:
		r.stepProfiling(pc, opcode, nextPC)
	case Recording:
		r.stepRecording(pc, opcode, nextPC)
	case ExtensionBegin:
		r.stepExtensionBegin(pc, opcode, nextPC)
	case Extension:
		r.stepExtension(pc, opcode, nextPC)
	}
}

// stepProfiling implements spec §4.3 Profiling: only '[' and ']' steps
// increment the iteration-count histogram; crossing TraceThreshold seeds
// the buffer and transitions to Recording.
func (r *Recorder) stepProfiling(pc int, opcode bytecode.OpCode, nextPC int) {
	if opcode != bytecode.OpOpen && opcode != bytecode.OpClose {
		return
	}
	hash := pc % IterationBufSize
	if r.count[hash] >= counterSaturation {
		r.count[hash] = counterSaturation
	} else {
		r.count[hash]++
	}
	if int(r.count[hash]) <= TraceThreshold {
		return
	}

	r.buf.reset()
	r.buf.push(opcode, pc)
	r.backedgeCount = 0
	r.state = Recording
}

// stepRecording implements spec §4.3 Recording: append every step; abort
// to Profiling on overflow (re-dispatching the pending step); commit and
// compile when the trace closes back to its own header; abort on too many
// inner-loop back-edges.
func (r *Recorder) stepRecording(pc int, opcode bytecode.OpCode, nextPC int) {
	if r.buf.full() {
		r.state = Profiling
		r.stepProfiling(pc, opcode, nextPC)
		return
	}

	header := r.buf.at(0).pc
	r.buf.push(opcode, pc)

	if nextPC == header {
		r.commit()
		r.state = Profiling
		if r.OnCommit != nil {
			r.OnCommit(header)
		}
		return
	}

	if opcode == bytecode.OpClose {
		r.backedgeCount++
		if r.backedgeCount > BackedgeThreshold {
			r.state = Profiling
			r.buf.reset()
		}
	}
}

// Arm is called by the compiler's side-exit path when a compiled trace
// exits through an unresolved leaf, per spec §4.5. root is the tree that
// was compiled; leaf is the node whose unset child the exit represents;
// targetPC is the dispatch pc the side exit actually resumes at — leaf.PC+1
// for a fallthrough leaf, jump[leaf.PC]+1 for a '['s zero-branch leaf (see
// internal/codegen's followLeft/followEdge and lower/lowerIf). This is the
// same pc the very next Step call carries and the one the blacklist must
// key on: leaf.PC is never the pc dispatch resumes at, so blacklisting
// under leaf.PC would never be found by the Blacklisted(pc) check below.
// Arming only takes effect from Profiling — an in-flight Recording or
// Extension pass is never preempted.
func (r *Recorder) Arm(root, leaf *Node, targetPC int) {
	if r.state != Profiling {
		return
	}
	r.extensionRoot = root
	r.extensionLeaf = leaf
	r.extensionTarget = targetPC
	r.state = ExtensionBegin
}

// stepExtensionBegin implements spec §4.3's ExtensionBegin: give up
// immediately if the side-exit pc has been blacklisted, otherwise reset
// the buffer and start Extension recording with this step.
func (r *Recorder) stepExtensionBegin(pc int, opcode bytecode.OpCode, nextPC int) {
	if r.store.Blacklisted(pc) {
		r.state = Profiling
		return
	}
	r.buf.reset()
	r.backedgeCount = 0
	r.state = Extension
	r.stepExtension(pc, opcode, nextPC)
}

// stepExtension mirrors stepRecording, but closes against extensionRoot's
// pc rather than the buffer's own first entry, and accounts for the
// existing leaf depth in its overflow test (spec §4.3).
func (r *Recorder) stepExtension(pc int, opcode bytecode.OpCode, nextPC int) {
	if r.buf.headroomFull(r.extensionLeaf.Depth) {
		r.store.Blacklist(r.extensionTarget)
		r.state = Profiling
		return
	}

	r.buf.push(opcode, pc)

	if nextPC == r.extensionRoot.PC {
		r.commitExtension()
		root := r.extensionRoot
		r.state = Profiling
		if r.OnExtensionCommit != nil {
			r.OnExtensionCommit(root.PC)
		}
		return
	}

	if opcode == bytecode.OpClose {
		r.backedgeCount++
		if r.backedgeCount > BackedgeThreshold {
			r.store.Blacklist(r.extensionTarget)
			r.state = Profiling
		}
	}
}

// commit implements spec §4.3's commit algorithm: walk the buffer from
// its second entry, extending the tree rooted at the first entry's pc,
// then mark the terminating edge back-to-root.
func (r *Recorder) commit() {
	first := r.buf.at(0)
	head := r.store.RootFor(first.pc, first.opcode)

	parent := head
	for i := 1; i < r.buf.len(); i++ {
		s := r.buf.at(i)
		edge, child := parent.edgeFor(s.pc)
		if *edge == EdgeUnset {
			*child = &Node{Opcode: s.opcode, PC: s.pc, Depth: parent.Depth + 1}
			*edge = EdgeChild
		}
		parent = *child
	}

	edge, _ := parent.edgeFor(head.PC)
	*edge = EdgeBackToRoot
}

// commitExtension implements spec §4.3's commit_extension: identical to
// commit, but starts from extensionLeaf (at its existing depth) and
// writes the buffer's first entry into the leaf's previously-unset child
// slot instead of allocating a fresh root.
func (r *Recorder) commitExtension() {
	parent := r.extensionLeaf
	for i := 0; i < r.buf.len(); i++ {
		s := r.buf.at(i)
		edge, child := parent.edgeFor(s.pc)
		if *edge == EdgeUnset {
			*child = &Node{Opcode: s.opcode, PC: s.pc, Depth: parent.Depth + 1}
			*edge = EdgeChild
		}
		parent = *child
	}

	edge, _ := parent.edgeFor(r.extensionRoot.PC)
	*edge = EdgeBackToRoot
}
