package trace

import (
	"fmt"
	"io"

	"github.com/resistor/BrainFTracing/internal/bytecode"
)

// Store is the per-run trace-tree store: one tree root per hot header pc,
// plus the blacklist of side-exit resumption pcs whose extension attempt
// has failed (the Recorder keys it by the pc a side exit resumes at).
// Trees are created on first commit at their header and mutated by later
// extensions; nothing is ever freed (spec §3 Lifecycles).
type Store struct {
	roots     map[int]*Node
	blacklist map[int]bool
}

// NewStore returns an empty trace-tree store.
func NewStore() *Store {
	return &Store{
		roots:     make(map[int]*Node),
		blacklist: make(map[int]bool),
	}
}

// RootFor returns the tree rooted at headerPC, creating it from the given
// opcode if this is the first commit ever seen for that header.
func (s *Store) RootFor(headerPC int, opcode bytecode.OpCode) *Node {
	if n, ok := s.roots[headerPC]; ok {
		return n
	}
	n := &Node{Opcode: opcode, PC: headerPC}
	s.roots[headerPC] = n
	return n
}

// Tree returns the committed tree at headerPC, if one has been committed.
func (s *Store) Tree(headerPC int) (*Node, bool) {
	n, ok := s.roots[headerPC]
	return n, ok
}

// CompiledHeaders returns the pcs of every header with a committed tree,
// used by the trace/disasm CLI subcommands and the debugger's jit command.
func (s *Store) CompiledHeaders() []int {
	out := make([]int, 0, len(s.roots))
	for pc := range s.roots {
		out = append(out, pc)
	}
	return out
}

// Blacklist marks the side-exit resumption pc as no longer eligible for
// extension recording.
func (s *Store) Blacklist(pc int) {
	s.blacklist[pc] = true
}

// Blacklisted reports whether extension recording at pc has been given up on.
func (s *Store) Blacklisted(pc int) bool {
	return s.blacklist[pc]
}

// BlacklistSize is the number of pcs that have been given up on,
// surfaced by `braintrace trace`'s stderr summary.
func (s *Store) BlacklistSize() int {
	return len(s.blacklist)
}

// Dump writes a recursive textual rendering of the tree rooted at
// headerPC, grounded on original_source/BrainFTraceRecorder.cpp's
// BrainFTraceNode::dump (spec's §"SUPPLEMENTED FEATURES" carries this
// forward as a debugging aid the distillation otherwise dropped).
func (s *Store) Dump(w io.Writer, headerPC int) {
	root, ok := s.roots[headerPC]
	if !ok {
		fmt.Fprintf(w, "(no trace committed at pc %d)\n", headerPC)
		return
	}
	root.dump(w, 0)
}

func (n *Node) dump(w io.Writer, lvl int) {
	for i := 0; i < lvl; i++ {
		fmt.Fprint(w, ".")
	}
	fmt.Fprintf(w, "%s : %d\n", n.Opcode, n.PC)
	dumpEdge(w, lvl+1, n.LeftEdge, n.Left)
	dumpEdge(w, lvl+1, n.RightEdge, n.Right)
}

func dumpEdge(w io.Writer, lvl int, edge Edge, child *Node) {
	switch edge {
	case EdgeChild:
		child.dump(w, lvl)
	case EdgeBackToRoot:
		for i := 0; i < lvl; i++ {
			fmt.Fprint(w, ".")
		}
		fmt.Fprintln(w, "<back-to-root>")
	case EdgeUnset:
		// Nothing traced through this branch yet; no line printed, matching
		// the original's "if (left && left != BACK) left->dump()" — unset
		// slots are silently skipped.
	}
}
