package codegen

import (
	"fmt"

	"github.com/resistor/BrainFTracing/internal/bytecode"
	"github.com/resistor/BrainFTracing/internal/trace"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// irCtx threads the state BrainFCodeGen.cpp's compile() keeps as fields
// (DataPtr, Header, HeaderPHI) through the recursive lowering as
// parameters instead, since Go has no implicit `this`.
type irCtx struct {
	fn           *ir.Func
	header       *ir.Block
	headPhi      *ir.InstPhi
	putchar      *ir.Func
	getchar      *ir.Func
	prog         *bytecode.Program
	opFuncPtrT   *types.PointerType
	dispatchBase *ir.Global
}

// buildIR lowers root to a standalone LLVM module containing one function
// with the handler's signature, per spec §4.4's "Function shape" and §6's
// builder contract. It mirrors BrainFCodeGen.cpp's initialize_module +
// compile almost line for line: an entry block branching into a header
// block with a single data-pointer phi, then a recursive per-opcode walk.
func (b *Backend) buildIR(root *trace.Node) *ir.Module {
	mod := ir.NewModule()

	i8ptr := types.NewPointer(types.I8)
	pcParam := ir.NewParam("pc", types.I64)
	headParam := ir.NewParam("head", i8ptr)

	fn := mod.NewFunc(funcName(root.PC), types.Void, pcParam, headParam)

	putchar := mod.NewFunc("putchar", types.I32, ir.NewParam("c", types.I32))
	getchar := mod.NewFunc("getchar", types.I32)

	// opFuncT/dispatchBase model spec §6's "externally visible address
	// dispatch_table_base" so side exits can be drawn as a real indexed
	// load + tail call, per §4.4's side-exit semantics, even though this
	// module's actual dispatch table is a Go slice the IR can't reach.
	opFuncT := types.NewFunc(types.Void, types.I64, i8ptr)
	opFuncPtrT := types.NewPointer(opFuncT)
	dispatchBase := mod.NewGlobal("dispatch_table_base", opFuncPtrT)

	entry := fn.NewBlock("entry")
	header := fn.NewBlock(fmt.Sprintf("header_%d", root.PC))
	entry.NewBr(header)

	headPhi := header.NewPhi(ir.NewIncoming(headParam, entry))

	ctx := &irCtx{
		fn: fn, header: header, headPhi: headPhi,
		putchar: putchar, getchar: getchar, prog: b.prog,
		opFuncPtrT: opFuncPtrT, dispatchBase: dispatchBase,
	}
	ctx.lower(root, header, headPhi)

	return mod
}

// lower emits node's effect into cur (appending instructions to it) and
// recurses into whichever successor node/edge comes next, exactly
// mirroring compile_opcode's per-opcode dispatch in
// original_source/BrainFCodeGen.cpp.
func (c *irCtx) lower(n *trace.Node, cur *ir.Block, dataPtr value.Value) {
	switch n.Opcode {
	case bytecode.OpIncr:
		loaded := cur.NewLoad(types.I8, dataPtr)
		sum := cur.NewAdd(loaded, constant.NewInt(types.I8, 1))
		cur.NewStore(sum, dataPtr)
		c.lowerFallthrough(n, cur, dataPtr)

	case bytecode.OpDecr:
		loaded := cur.NewLoad(types.I8, dataPtr)
		diff := cur.NewSub(loaded, constant.NewInt(types.I8, 1))
		cur.NewStore(diff, dataPtr)
		c.lowerFallthrough(n, cur, dataPtr)

	case bytecode.OpLeft:
		shifted := cur.NewGetElementPtr(types.I8, dataPtr, constant.NewInt(types.I32, -1))
		c.lowerFallthrough(n, cur, shifted)

	case bytecode.OpRight:
		shifted := cur.NewGetElementPtr(types.I8, dataPtr, constant.NewInt(types.I32, 1))
		c.lowerFallthrough(n, cur, shifted)

	case bytecode.OpPut:
		loaded := cur.NewLoad(types.I8, dataPtr)
		ext := cur.NewSExt(loaded, types.I32)
		cur.NewCall(c.putchar, ext)
		c.lowerFallthrough(n, cur, dataPtr)

	case bytecode.OpGet:
		got := cur.NewCall(c.getchar)
		trunc := cur.NewTrunc(got, types.I8)
		cur.NewStore(trunc, dataPtr)
		c.lowerFallthrough(n, cur, dataPtr)

	case bytecode.OpOpen:
		c.lowerIf(n, cur, dataPtr)

	case bytecode.OpClose:
		c.lowerBack(n, cur, dataPtr)
	}
}

// lowerFallthrough implements the repeated tail of compile_plus/minus/
// left/right/put/get: either recurse into the fixed left successor, or if
// it is unset/back-to-root, close out this block (side exit or loop back).
func (c *irCtx) lowerFallthrough(n *trace.Node, cur *ir.Block, dataPtr value.Value) {
	switch n.LeftEdge {
	case trace.EdgeChild:
		c.lower(n.Left, cur, dataPtr)
	case trace.EdgeBackToRoot:
		c.closeToHeader(cur, dataPtr)
	case trace.EdgeUnset:
		c.sideExit(cur, dataPtr, n.PC+1)
	}
}

// lowerIf implements compile_if: a conditional branch on the cell's
// zero-ness, with each arm independently resolved to a child block, a
// branch back to Header, or a side-exit block.
func (c *irCtx) lowerIf(n *trace.Node, cur *ir.Block, dataPtr value.Value) {
	if n.LeftEdge == trace.EdgeUnset && n.RightEdge == trace.EdgeUnset {
		c.closeToHeader(cur, dataPtr)
		return
	}

	var nonZero, zero *ir.Block

	switch n.LeftEdge {
	case trace.EdgeBackToRoot:
		nonZero = c.header
		c.headPhi.Incs = append(c.headPhi.Incs, ir.NewIncoming(dataPtr, cur))
	case trace.EdgeUnset:
		nonZero = c.fn.NewBlock(fmt.Sprintf("exit_left_%d", n.PC))
		c.sideExit(nonZero, dataPtr, n.PC+1)
	case trace.EdgeChild:
		nonZero = c.fn.NewBlock(fmt.Sprintf("block_%d", n.Left.PC))
		c.lower(n.Left, nonZero, dataPtr)
	}

	switch n.RightEdge {
	case trace.EdgeBackToRoot:
		zero = c.header
		c.headPhi.Incs = append(c.headPhi.Incs, ir.NewIncoming(dataPtr, cur))
	case trace.EdgeUnset:
		zero = c.fn.NewBlock(fmt.Sprintf("exit_right_%d", n.PC))
		c.sideExit(zero, dataPtr, c.prog.Jump[n.PC]+1)
	case trace.EdgeChild:
		zero = c.fn.NewBlock(fmt.Sprintf("block_%d", n.Right.PC))
		c.lower(n.Right, zero, dataPtr)
	}

	loaded := cur.NewLoad(types.I8, dataPtr)
	cmp := cur.NewICmp(enum.IPredEQ, loaded, constant.NewInt(types.I8, 0))
	cur.NewCondBr(cmp, zero, nonZero)
}

// lowerBack implements compile_back: ']' is an unconditional close, so it
// only ever follows the Right slot (the continuation out of the loop).
func (c *irCtx) lowerBack(n *trace.Node, cur *ir.Block, dataPtr value.Value) {
	switch n.RightEdge {
	case trace.EdgeChild:
		c.lower(n.Right, cur, dataPtr)
	case trace.EdgeBackToRoot:
		c.closeToHeader(cur, dataPtr)
	case trace.EdgeUnset:
		// The commit algorithm never leaves a ']' node's slot unset; this
		// is defensive only.
		c.sideExit(cur, dataPtr, c.prog.Jump[n.PC])
	}
}

func (c *irCtx) closeToHeader(cur *ir.Block, dataPtr value.Value) {
	c.headPhi.Incs = append(c.headPhi.Incs, ir.NewIncoming(dataPtr, cur))
	cur.NewBr(c.header)
}

// sideExit implements the unset-child case shared by every compile_*
// helper: load the target handler out of the dispatch table and tail-call
// it, per spec §4.4's side-exit semantics and §6's "generated code can
// emit side-exit tail calls by indexed load from the dispatch base". The
// executable lowering in exec.go resolves the same target pc directly
// instead of actually indirecting through dispatch_table_base — there is
// no linked address for that global to point at — but the IR still names
// the intended shape for inspection via `disasm`.
func (c *irCtx) sideExit(b *ir.Block, dataPtr value.Value, targetPC int) {
	idx := constant.NewInt(types.I64, int64(targetPC))
	elemPtr := b.NewGetElementPtr(c.opFuncPtrT.ElemType, c.dispatchBase, idx)
	target := b.NewLoad(c.opFuncPtrT, elemPtr)
	pcConst := constant.NewInt(types.I64, int64(targetPC))
	b.NewCall(target, pcConst, dataPtr)
	b.NewRet(nil)
}
