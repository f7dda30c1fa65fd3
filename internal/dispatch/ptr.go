package dispatch

import "unsafe"

// ptrAdd moves head by delta bytes without any bounds check, per spec §3's
// Tape invariant and §7's "tape overrun is undefined and silently
// corrupts memory; this is documented, not defended."
func ptrAdd(head *byte, delta int) *byte {
	return (*byte)(unsafe.Add(unsafe.Pointer(head), delta))
}

// PtrAdd is the exported form of ptrAdd, used by internal/codegen's
// directly-executing lowering so both the interpreter and the compiled
// path move the head the same way.
func PtrAdd(head *byte, delta int) *byte {
	return ptrAdd(head, delta)
}
