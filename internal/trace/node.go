// Package trace holds the per-header trace trees the recorder builds and
// the recorder state machine itself. See spec §3 (Trace tree, Trace
// buffer, Blacklist) and §4.3 (Trace Recorder).
package trace

import "github.com/resistor/BrainFTracing/internal/bytecode"

// Edge tags a TraceNode child slot. The source overloads a single pointer
// field with 0 (unset), ~0 (back-to-root) and a real address (child); spec
// §9's design note asks for a three-variant tag instead, which is what
// Edge plus the paired *Node field gives us.
type Edge int

const (
	EdgeUnset Edge = iota
	EdgeBackToRoot
	EdgeChild
)

func (e Edge) String() string {
	switch e {
	case EdgeUnset:
		return "unset"
	case EdgeBackToRoot:
		return "back-to-root"
	case EdgeChild:
		return "child"
	default:
		return "invalid"
	}
}

// Node is one position in a committed trace tree. For the six simple
// opcodes, LeftEdge/Left is the fallthrough successor and Right is unused.
// For '[' nodes, LeftEdge/Left is the non-zero-cell branch and
// RightEdge/Right is the zero-cell branch. ']' nodes use only
// RightEdge/Right (the jump back to the matching '['); Left is unused. Depth is the number of hops from the head of the
// trace that created this node, used to bound buffer usage on extension.
type Node struct {
	Opcode bytecode.OpCode
	PC     int
	Depth  int

	LeftEdge Edge
	Left     *Node

	RightEdge Edge
	Right     *Node
}

// edgeFor returns the edge/child pair a step at childPC belongs to, given
// the parent node: the fallthrough slot if childPC is the parent's own
// pc+1, otherwise the jump slot. This single rule is what separates
// fallthrough from jump-over at '[' nodes and selects the only slot ']'
// nodes ever use.
func (n *Node) edgeFor(childPC int) (*Edge, **Node) {
	if childPC == n.PC+1 {
		return &n.LeftEdge, &n.Left
	}
	return &n.RightEdge, &n.Right
}
