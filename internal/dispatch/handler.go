// Package dispatch holds the mutable dispatch table and the eight
// interpretive opcode handlers. See spec §3 (Dispatch table) and §4.1-4.2.
package dispatch

// Handler matches spec §4.2's per-opcode signature, generalized per §9's
// design note: Go gives no tail-call-optimization guarantee, so a handler
// returns the next (pc, head) pair instead of tail-dispatching itself; the
// Table's Run loop is the trampoline that turns those returns back into
// dispatch. A compiled trace installed by the compiler has this exact
// same type, so the trampoline can't tell native code from interpreted
// code apart — which is the point.
type Handler func(pc int, head *byte) (nextPC int, nextHead *byte)

// Table is the mutable dispatch table: one Handler per program position,
// plus a trailing terminator slot. Every slot is non-null for the table's
// entire lifetime (spec §8's first invariant) — Install only ever
// overwrites a slot with another valid Handler.
type Table struct {
	handlers []Handler
}

// Len returns the number of program-position slots, not counting the
// trailing terminator.
func (t *Table) Len() int {
	return len(t.handlers) - 1
}

// Install overwrites the handler at pc, the one mutation the dispatch
// table ever undergoes after construction. The compiler calls this after
// compiling a trace tree; nothing else does.
func (t *Table) Install(pc int, h Handler) {
	t.handlers[pc] = h
}

// At returns the handler currently installed at pc — interpreted or
// compiled, the caller cannot tell which.
func (t *Table) At(pc int) Handler {
	return t.handlers[pc]
}

// Run drives the trampoline to completion: dispatch[0], then dispatch[pc]
// for whatever pc each handler returns, until the terminator handler
// returns a negative pc.
func (t *Table) Run(head *byte) {
	pc := 0
	for pc >= 0 {
		pc, head = t.handlers[pc](pc, head)
	}
}

func terminator(pc int, head *byte) (int, *byte) {
	return -1, head
}
