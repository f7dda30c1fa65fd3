package dispatch

import (
	"bufio"

	"github.com/resistor/BrainFTracing/internal/bytecode"
	"github.com/resistor/BrainFTracing/internal/trace"
)

// eofCell is the byte a ',' handler leaves in the cell on end-of-input,
// per spec §6: "commonly −1 truncated to a byte".
const eofCell = 0xFF

// New builds the initial dispatch table for prog: every slot starts out
// pointing at the interpretive handler for its opcode, reporting every
// step to rec per spec §4.2, with a trailing terminator slot.
func New(prog *bytecode.Program, rec *trace.Recorder, in *bufio.Reader, out *bufio.Writer) *Table {
	n := prog.Len()
	t := &Table{handlers: make([]Handler, n+1)}
	for pc := 0; pc < n; pc++ {
		t.handlers[pc] = interpHandler(prog, rec, in, out, pc)
	}
	t.handlers[n] = terminator
	return t
}

// interpHandler builds the closure for one program position. Each closure
// closes over its own fixed pc and opcode; the pc argument it receives at
// call time is only used by compiled handlers sharing the same Handler
// type, so interpreted handlers ignore it in favor of the pc they were
// built for — it is always the same value regardless.
func interpHandler(prog *bytecode.Program, rec *trace.Recorder, in *bufio.Reader, out *bufio.Writer, pc int) Handler {
	op := prog.Ops[pc]
	switch op {
	case bytecode.OpIncr:
		return func(_ int, head *byte) (int, *byte) {
			next := pc + 1
			rec.Step(pc, op, next)
			*head++
			return next, head
		}
	case bytecode.OpDecr:
		return func(_ int, head *byte) (int, *byte) {
			next := pc + 1
			rec.Step(pc, op, next)
			*head--
			return next, head
		}
	case bytecode.OpLeft:
		return func(_ int, head *byte) (int, *byte) {
			next := pc + 1
			rec.Step(pc, op, next)
			return next, ptrAdd(head, -1)
		}
	case bytecode.OpRight:
		return func(_ int, head *byte) (int, *byte) {
			next := pc + 1
			rec.Step(pc, op, next)
			return next, ptrAdd(head, 1)
		}
	case bytecode.OpPut:
		return func(_ int, head *byte) (int, *byte) {
			next := pc + 1
			rec.Step(pc, op, next)
			out.WriteByte(*head)
			return next, head
		}
	case bytecode.OpGet:
		return func(_ int, head *byte) (int, *byte) {
			next := pc + 1
			rec.Step(pc, op, next)
			b, err := in.ReadByte()
			if err != nil {
				b = eofCell
			}
			*head = b
			return next, head
		}
	case bytecode.OpOpen:
		return func(_ int, head *byte) (int, *byte) {
			next := prog.NextPC(pc, *head != 0)
			rec.Step(pc, op, next)
			return next, head
		}
	case bytecode.OpClose:
		return func(_ int, head *byte) (int, *byte) {
			next := prog.Jump[pc]
			rec.Step(pc, op, next)
			return next, head
		}
	default:
		panic("dispatch: unknown opcode")
	}
}
