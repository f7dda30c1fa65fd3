package trace

import "github.com/resistor/BrainFTracing/internal/bytecode"

// BufSize is the trace-buffer capacity, per spec §4.3's TRACE_BUF_SIZE ∈
// [128, 256]. The buffer is not a ring: hitting the end aborts the trace
// currently being recorded (spec §3).
const BufSize = 256

// step is one recorded (opcode, pc) pair.
type step struct {
	opcode bytecode.OpCode
	pc     int
}

// buffer is the fixed-size trace buffer. tail is the write pointer; begin
// is always index 0. Slots at and beyond tail hold stale data from a
// previous trace and must never be read.
type buffer struct {
	slots [BufSize]step
	tail  int
}

func (b *buffer) reset() {
	b.tail = 0
}

func (b *buffer) full() bool {
	return b.tail == len(b.slots)
}

// headroomFull reports whether appending one more step would collide with
// an existing leaf's depth, per spec §4.3's Extension buffer-full test
// ("tail + leaf.depth ≥ end").
func (b *buffer) headroomFull(leafDepth int) bool {
	return b.tail+leafDepth >= len(b.slots)
}

func (b *buffer) push(opcode bytecode.OpCode, pc int) {
	b.slots[b.tail] = step{opcode: opcode, pc: pc}
	b.tail++
}

func (b *buffer) at(i int) step {
	return b.slots[i]
}

func (b *buffer) len() int {
	return b.tail
}
