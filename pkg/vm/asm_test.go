package vm

import (
	"encoding/binary"
	"math"

	"github.com/diannexlang/dx/pkg/bytecode"
)

// asm is a tiny test-only instruction assembler: tests build raw DXB
// bytecode by hand since the retrieval pack carries no Diannex compiler
// or sample .dxb fixtures.
type asm struct {
	buf []byte
}

func (a *asm) op(op bytecode.Opcode) *asm {
	a.buf = append(a.buf, byte(op))
	return a
}

func (a *asm) i32(v int32) *asm {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	a.buf = append(a.buf, b[:]...)
	return a
}

func (a *asm) f64(v float64) *asm {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	a.buf = append(a.buf, b[:]...)
	return a
}

func (a *asm) pushInt(v int32) *asm      { return a.op(bytecode.PushInt).i32(v) }
func (a *asm) pushDouble(v float64) *asm { return a.op(bytecode.PushDouble).f64(v) }
func (a *asm) pushString(i int32) *asm   { return a.op(bytecode.PushString).i32(i) }
func (a *asm) pushBinStr(i int32) *asm   { return a.op(bytecode.PushBinaryString).i32(i) }
func (a *asm) textRun() *asm             { return a.op(bytecode.TextRun) }
func (a *asm) exit() *asm                { return a.op(bytecode.Exit) }
func (a *asm) ret() *asm                 { return a.op(bytecode.Ret) }
func (a *asm) jump(off int32) *asm       { return a.op(bytecode.Jump).i32(off) }
func (a *asm) callExternal(nameIdx, argc int32) *asm {
	return a.op(bytecode.CallExternal).i32(nameIdx).i32(argc)
}
func (a *asm) interpBinStr(i, k int32) *asm {
	return a.op(bytecode.PushBinaryInterpString).i32(i).i32(k)
}
func (a *asm) choiceBegin() *asm { return a.op(bytecode.ChoiceBegin) }
func (a *asm) choiceAdd(off int32) *asm { return a.op(bytecode.ChoiceAdd).i32(off) }
func (a *asm) choiceSelect() *asm       { return a.op(bytecode.ChoiceSelect) }
func (a *asm) chooseAdd(off int32) *asm { return a.op(bytecode.ChooseAdd).i32(off) }
func (a *asm) chooseSelect() *asm       { return a.op(bytecode.ChooseSelect) }

func (a *asm) call(nameIdx, argc int32) *asm { return a.op(bytecode.Call).i32(nameIdx).i32(argc) }
func (a *asm) setVarLocal(i int32) *asm      { return a.op(bytecode.SetVarLocal).i32(i) }
func (a *asm) pushVarLocal(i int32) *asm     { return a.op(bytecode.PushVarLocal).i32(i) }
func (a *asm) setVarGlobal(i int32) *asm     { return a.op(bytecode.SetVarGlobal).i32(i) }
func (a *asm) pushVarGlobal(i int32) *asm    { return a.op(bytecode.PushVarGlobal).i32(i) }
func (a *asm) pop() *asm                     { return a.op(bytecode.Pop) }
func (a *asm) dup() *asm                     { return a.op(bytecode.Dup) }
func (a *asm) dup2() *asm                    { return a.op(bytecode.Dup2) }
func (a *asm) save() *asm                    { return a.op(bytecode.Save) }
func (a *asm) load() *asm                    { return a.op(bytecode.Load) }
func (a *asm) freeLocal(i int32) *asm        { return a.op(bytecode.FreeLocal).i32(i) }
func (a *asm) makeArray(n int32) *asm        { return a.op(bytecode.MakeArray).i32(n) }
func (a *asm) pushArrayIndex() *asm          { return a.op(bytecode.PushArrayIndex) }
func (a *asm) setArrayIndex() *asm           { return a.op(bytecode.SetArrayIndex) }
func (a *asm) add() *asm                     { return a.op(bytecode.Add) }
func (a *asm) jumpTruthy(off int32) *asm     { return a.op(bytecode.JumpTruthy).i32(off) }
func (a *asm) jumpFalsey(off int32) *asm     { return a.op(bytecode.JumpFalsey).i32(off) }
func (a *asm) bitAnd() *asm                  { return a.op(bytecode.BitAnd) }
func (a *asm) cmpEq() *asm                   { return a.op(bytecode.CmpEq) }

// at returns the current write offset, for computing relative jump targets.
func (a *asm) at() int32 { return int32(len(a.buf)) }

func (a *asm) bytes() []byte { return a.buf }
