package vm

import (
	"context"
	"fmt"

	"github.com/diannexlang/dx/pkg/bytecode"
	"github.com/diannexlang/dx/pkg/localstore"
	"github.com/diannexlang/dx/pkg/value"
)

// execute dispatches a single decoded instruction. vm.ip has already been
// advanced past inst by the caller (Update or runSubProgramToPause); jump
// opcodes adjust vm.ip relative to that already-advanced position, per
// spec.md §4.3 ("relative to the byte immediately following the fully
// decoded instruction").
func (vm *VM) execute(ctx context.Context, inst bytecode.Instruction) error {
	switch inst.Op {
	case bytecode.Nop:
		// deliberate no-op

	case bytecode.FreeLocal:
		if truncated := vm.locals.FreeLocal(int(inst.I32)); !truncated {
			vm.log.Warn().Int32("slot", inst.I32).Msg("free_local left an undefined gap")
		}

	case bytecode.Save:
		vm.saveRegister = vm.peekStack()
	case bytecode.Load:
		vm.pushStack(vm.saveRegister)

	case bytecode.PushUndefined:
		vm.pushStack(value.Undef)
	case bytecode.PushInt:
		vm.pushStack(value.NewInt(inst.I32))
	case bytecode.PushDouble:
		vm.pushStack(value.NewDouble(inst.F64))

	case bytecode.PushString:
		vm.pushTableString(vm.binary.TranslationTable, inst.I32)
	case bytecode.PushBinaryString:
		vm.pushTableString(vm.binary.StringTable, inst.I32)

	case bytecode.PushInterpString:
		return vm.execInterpolate(vm.binary.TranslationTable, inst.I32, inst.I32B)
	case bytecode.PushBinaryInterpString:
		return vm.execInterpolate(vm.binary.StringTable, inst.I32, inst.I32B)

	case bytecode.MakeArray:
		vm.execMakeArray(int(inst.I32))
	case bytecode.PushArrayIndex:
		vm.execPushArrayIndex()
	case bytecode.SetArrayIndex:
		vm.execSetArrayIndex()

	case bytecode.SetVarGlobal:
		v := vm.popStack()
		vm.globals[vm.symbolName(uint32(inst.I32))] = v
	case bytecode.PushVarGlobal:
		vm.pushStack(vm.globals[vm.symbolName(uint32(inst.I32))])
	case bytecode.SetVarLocal:
		v := vm.popStack()
		vm.locals.Set(int(inst.I32), v, vm)
	case bytecode.PushVarLocal:
		vm.pushStack(vm.locals.Get(int(inst.I32), vm))

	case bytecode.Pop:
		vm.popStack()
	case bytecode.Dup:
		vm.pushStack(vm.peekStack())
	case bytecode.Dup2:
		a, b := vm.pop2InOrder()
		vm.pushStack(a)
		vm.pushStack(b)
		vm.pushStack(a)
		vm.pushStack(b)

	case bytecode.Add, bytecode.Sub, bytecode.Mul, bytecode.Div, bytecode.Mod, bytecode.Power,
		bytecode.BitLeftShift, bytecode.BitRightShift, bytecode.BitAnd, bytecode.BitOr, bytecode.BitXor,
		bytecode.CmpEq, bytecode.CmpGt, bytecode.CmpLt, bytecode.CmpGte, bytecode.CmpLte, bytecode.CmpNeq:
		return vm.execBinary(inst.Op)

	case bytecode.Neg:
		return vm.execUnary(inst.Op, value.Neg)
	case bytecode.BitNeg:
		return vm.execUnary(inst.Op, value.BitNot)
	case bytecode.Invert:
		vm.pushStack(value.Invert(vm.popStack()))

	case bytecode.Jump:
		vm.ip += inst.I32
	case bytecode.JumpTruthy:
		if vm.popStack().Truthy() {
			vm.ip += inst.I32
		}
	case bytecode.JumpFalsey:
		if !vm.popStack().Truthy() {
			vm.ip += inst.I32
		}

	case bytecode.Exit:
		vm.execExit()
	case bytecode.Ret:
		vm.execRet()

	case bytecode.Call:
		return vm.execCall(ctx, inst.I32, int(inst.I32B))
	case bytecode.CallExternal:
		return vm.execCallExternal(ctx, inst.I32, int(inst.I32B))

	case bytecode.ChoiceBegin:
		return vm.execChoiceBegin()
	case bytecode.ChoiceAdd:
		return vm.execChoiceAdd(inst, false)
	case bytecode.ChoiceAddTruthy:
		return vm.execChoiceAdd(inst, true)
	case bytecode.ChoiceSelect:
		return vm.execChoiceSelect()

	case bytecode.ChooseAdd:
		vm.execChooseAdd(inst, false)
	case bytecode.ChooseAddTruthy:
		vm.execChooseAdd(inst, true)
	case bytecode.ChooseSelect:
		return vm.execChooseSelect()

	case bytecode.TextRun:
		vm.execTextRun()

	default:
		if vm.strict {
			return fmt.Errorf("vm: unhandled opcode %s at ip=%d", inst.Op, inst.Offset)
		}
		vm.log.Warn().Stringer("opcode", inst.Op).Int("ip", inst.Offset).Msg("unhandled opcode, ignoring")
	}
	return nil
}

func (vm *VM) pushTableString(table []string, idx int32) {
	if idx < 0 || int(idx) >= len(table) {
		vm.pushStack(value.NewString(""))
		return
	}
	vm.pushStack(value.NewString(table[idx]))
}

// pop2InOrder pops two values, returning them in original (bottom, top) order.
func (vm *VM) pop2InOrder() (value.Value, value.Value) {
	top := vm.popStack()
	bottom := vm.popStack()
	return bottom, top
}

// execBinary implements the arithmetic/comparison family. Per spec.md
// §4.3, binary ops "pop right-then-left": the value popped first is the
// right-hand operand.
func (vm *VM) execBinary(op bytecode.Opcode) error {
	right := vm.popStack()
	left := vm.popStack()

	var result value.Value
	var ok bool
	switch op {
	case bytecode.Add:
		result, ok = value.Add(left, right)
	case bytecode.Sub:
		result, ok = value.Sub(left, right)
	case bytecode.Mul:
		result, ok = value.Mul(left, right)
	case bytecode.Div:
		result, ok = value.Div(left, right)
	case bytecode.Mod:
		result, ok = value.Mod(left, right)
	case bytecode.Power:
		result, ok = value.Power(left, right)
	case bytecode.BitLeftShift:
		result, ok = value.BitShiftLeft(left, right)
	case bytecode.BitRightShift:
		result, ok = value.BitShiftRight(left, right)
	case bytecode.BitAnd:
		result, ok = value.BitAnd(left, right)
	case bytecode.BitOr:
		result, ok = value.BitOr(left, right)
	case bytecode.BitXor:
		result, ok = value.BitXor(left, right)
	case bytecode.CmpEq:
		result, ok = value.CmpEq(left, right)
	case bytecode.CmpGt:
		result, ok = value.CmpGt(left, right)
	case bytecode.CmpLt:
		result, ok = value.CmpLt(left, right)
	case bytecode.CmpGte:
		result, ok = value.CmpGte(left, right)
	case bytecode.CmpLte:
		result, ok = value.CmpLte(left, right)
	case bytecode.CmpNeq:
		result, ok = value.CmpNeq(left, right)
	}
	if !ok {
		if vm.strict {
			return fmt.Errorf("vm: %s type mismatch (left=%s right=%s)", op, left.Kind(), right.Kind())
		}
		return nil
	}
	vm.pushStack(result)
	return nil
}

func (vm *VM) execUnary(op bytecode.Opcode, f func(value.Value) (value.Value, bool)) error {
	v := vm.popStack()
	result, ok := f(v)
	if !ok {
		if vm.strict {
			return fmt.Errorf("vm: %s type mismatch (operand=%s)", op, v.Kind())
		}
		return nil
	}
	vm.pushStack(result)
	return nil
}

func (vm *VM) execMakeArray(n int) {
	if n < 0 {
		n = 0
	}
	elems := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		elems[i] = vm.popStack()
	}
	vm.pushStack(value.NewArray(elems))
}

func (vm *VM) execPushArrayIndex() {
	idxVal := vm.popStack()
	arr := vm.popStack()
	idx, ok := idxVal.Int()
	elems, isArr := arr.ArrayElems()
	if !ok || !isArr || int(idx) < 0 || int(idx) >= len(elems) {
		vm.pushStack(value.Undef)
		return
	}
	vm.pushStack(elems[idx])
}

func (vm *VM) execSetArrayIndex() {
	v := vm.popStack()
	idxVal := vm.popStack()
	arr := vm.popStack()
	idx, ok := idxVal.Int()
	elems, isArr := arr.ArrayElems()
	if ok && isArr && int(idx) >= 0 && int(idx) < len(elems) {
		arr.SetArrayElem(int(idx), v)
	}
	vm.pushStack(arr)
}

func (vm *VM) execExit() {
	vm.locals = localstore.New()
	if len(vm.callStack) == 0 {
		vm.ip = -1
		vm.paused = true
		vm.sceneCompleted = true
		return
	}
	top := vm.callStack[len(vm.callStack)-1]
	vm.callStack = vm.callStack[:len(vm.callStack)-1]
	vm.ip = top.returnIP
	vm.stack = top.stack
	vm.locals = top.locals
	vm.pushStack(value.Undef)
}

func (vm *VM) execRet() {
	retVal := vm.popStack()
	if len(vm.callStack) == 0 {
		vm.ip = -1
		vm.paused = true
		vm.sceneCompleted = true
		return
	}
	top := vm.callStack[len(vm.callStack)-1]
	vm.callStack = vm.callStack[:len(vm.callStack)-1]
	vm.ip = top.returnIP
	vm.stack = top.stack
	vm.locals = top.locals
	vm.pushStack(retVal)
}

func (vm *VM) execTextRun() {
	v := vm.popStack()
	s, ok := v.Str()
	if !ok {
		return
	}
	vm.currentText = s
	vm.haveText = true
	vm.runningText = true
	vm.paused = true
}
