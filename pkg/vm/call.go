package vm

import (
	"context"
	"fmt"

	"github.com/diannexlang/dx/pkg/localstore"
	"github.com/diannexlang/dx/pkg/value"
)

// execCall implements the `call` opcode's frame-switch protocol (spec.md
// §4.4). id is a string_table index naming a function; argc arguments are
// popped off the current stack (first popped becomes positional arg 0).
func (vm *VM) execCall(ctx context.Context, id int32, argc int) error {
	name := vm.symbolName(uint32(id))
	fn, ok := vm.binary.FunctionByName(name)
	if !ok {
		return fmt.Errorf("vm: function %q not found", name)
	}

	args := make([]value.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = vm.popStack()
	}

	// spec.md §4.4 step 3 describes clearing the call stack and restoring
	// it from a saved copy around the flag-initializer run; here the new
	// frame is pushed onto the real call stack up front and only the
	// operand stack/locals are reset before running initializers, which is
	// observably equivalent for every caller in this VM (nothing inspects
	// vm.callStack mid-initializer) but worth revisiting if that changes.
	vm.callStack = append(vm.callStack, frame{
		returnIP: vm.ip,
		stack:    vm.stack,
		locals:   vm.locals,
		name:     name,
	})
	vm.stack = nil
	vm.locals = localstore.New()

	logger := vm.log.With().Str("function", name).Logger()
	if err := vm.runFlagInitializers(ctx, fn, argc, &logger); err != nil {
		return fmt.Errorf("call %q: %w", name, err)
	}

	vm.ip = fn.Entry()
	for i, a := range args {
		vm.locals.Set(i, a, vm)
	}
	return nil
}

// execCallExternal implements `call_external` (spec.md §4.3): argc values
// are popped (first popped becomes args[0]) and passed to the host's
// FunctionHandler.
func (vm *VM) execCallExternal(ctx context.Context, id int32, argc int) error {
	name := vm.symbolName(uint32(id))
	if !vm.binary.DeclaresExternalFunction(uint32(id)) {
		vm.log.Debug().Str("function", name).Msg("call_external used a name not listed in external_function_list")
	}
	args := make([]value.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = vm.popStack()
	}
	if vm.handler == nil {
		return fmt.Errorf("vm: call_external %q: no function handler registered", name)
	}
	result, err := vm.handler.Invoke(ctx, name, args)
	if err != nil {
		return fmt.Errorf("call_external %q: %w", name, err)
	}
	vm.pushStack(result)
	return nil
}
