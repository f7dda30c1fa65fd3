package codegen

import (
	"github.com/resistor/BrainFTracing/internal/bytecode"
	"github.com/resistor/BrainFTracing/internal/dispatch"
	"github.com/resistor/BrainFTracing/internal/trace"
)

// edgeOutcome classifies what following a tree edge does next — the
// same three-way split ir.go draws between a child block, a branch back
// to Header, and a side-exit block, but resolved immediately into
// control flow instead of more IR.
type edgeOutcome int

const (
	outcomeChild edgeOutcome = iota
	outcomeBackToRoot
	outcomeSideExit
)

// lowerExec builds the directly-executing counterpart to buildIR's LLVM
// function: same header/side-exit/back-to-root shape, walked by a Go loop
// instead of materialized basic blocks. It is installed at
// dispatch[root.PC] and from then on the trampoline cannot distinguish it
// from an interpreted handler.
func (b *Backend) lowerExec(root *trace.Node) dispatch.Handler {
	return func(_ int, head *byte) (int, *byte) {
		node := root
		h := head
		for {
			outcome, next, nh, exitPC := b.stepNode(node, h)
			switch outcome {
			case outcomeChild:
				node, h = next, nh
			case outcomeBackToRoot:
				node, h = root, nh
			case outcomeSideExit:
				b.recorder.Arm(root, node, exitPC)
				return exitPC, nh
			}
		}
	}
}

// eofCell mirrors dispatch's end-of-input convention so a ',' behaves
// identically whether it runs interpreted or compiled.
const eofCell = 0xFF

// stepNode executes node's effect on head and reports which of the three
// edge outcomes follows, mirroring ir.go's lower/lowerFallthrough/lowerIf/
// lowerBack but producing an immediate result instead of IR.
func (b *Backend) stepNode(n *trace.Node, head *byte) (edgeOutcome, *trace.Node, *byte, int) {
	prog := b.prog
	switch n.Opcode {
	case bytecode.OpIncr:
		*head++
		return followLeft(n, head, n.PC+1)
	case bytecode.OpDecr:
		*head--
		return followLeft(n, head, n.PC+1)
	case bytecode.OpLeft:
		return followLeft(n, dispatch.PtrAdd(head, -1), n.PC+1)
	case bytecode.OpRight:
		return followLeft(n, dispatch.PtrAdd(head, 1), n.PC+1)
	case bytecode.OpPut:
		b.out.WriteByte(*head)
		return followLeft(n, head, n.PC+1)
	case bytecode.OpGet:
		c, err := b.in.ReadByte()
		if err != nil {
			c = eofCell
		}
		*head = c
		return followLeft(n, head, n.PC+1)
	case bytecode.OpOpen:
		if *head != 0 {
			return followEdge(n.LeftEdge, n.Left, head, n.PC+1)
		}
		return followEdge(n.RightEdge, n.Right, head, prog.Jump[n.PC]+1)
	case bytecode.OpClose:
		return followEdge(n.RightEdge, n.Right, head, prog.Jump[n.PC])
	default:
		panic("codegen: unknown opcode in compiled trace")
	}
}

func followLeft(n *trace.Node, head *byte, sideExitPC int) (edgeOutcome, *trace.Node, *byte, int) {
	return followEdge(n.LeftEdge, n.Left, head, sideExitPC)
}

func followEdge(edge trace.Edge, child *trace.Node, head *byte, sideExitPC int) (edgeOutcome, *trace.Node, *byte, int) {
	switch edge {
	case trace.EdgeChild:
		return outcomeChild, child, head, 0
	case trace.EdgeBackToRoot:
		return outcomeBackToRoot, nil, head, 0
	default: // trace.EdgeUnset
		return outcomeSideExit, nil, head, sideExitPC
	}
}
