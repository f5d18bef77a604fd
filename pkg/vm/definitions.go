package vm

import (
	"context"
	"fmt"

	"github.com/diannexlang/dx/pkg/bytecode"
	"github.com/diannexlang/dx/pkg/container"
	"github.com/diannexlang/dx/pkg/localstore"
)

// resolveAllDefinitions is the load-time (and post-translation-overlay)
// pass described by spec.md §4.7's "resolved once" note: every definition
// is resolved eagerly, including ones requiring interpolation, since their
// sub-programs are self-contained (they push their own interpolation
// values rather than consuming values the caller provides).
//
// It fingerprints the previous resolution (if any) so a reload logs which
// definitions actually changed rather than blindly overwriting the cache.
func (vm *VM) resolveAllDefinitions(ctx context.Context) {
	previous := vm.definitionsCache
	vm.definitionsCache = make(map[string]string, len(vm.binary.Definitions))
	for _, def := range vm.binary.Definitions {
		name := vm.symbolName(def.Symbol)
		if name == "" {
			continue
		}
		s, ok := vm.binary.ResolveStringRef(def.Reference)
		if !ok {
			continue
		}
		resolved := s
		if def.HasInterpolation() {
			r, err := vm.runDefinitionInterpolation(ctx, def.InstructionIndex, s)
			if err != nil {
				vm.log.Warn().Str("definition", name).Err(err).Msg("definition interpolation sub-program failed")
			} else {
				resolved = r
			}
		}
		vm.definitionsCache[name] = resolved
		if old, existed := previous[name]; existed {
			if container.Fingerprint(vm.fingerprintKey, old) != container.Fingerprint(vm.fingerprintKey, resolved) {
				vm.log.Debug().Str("definition", name).Msg("definition changed on reload")
			}
		}
	}
}

// runDefinitionInterpolation runs the definition's sub-program to
// completion, then interpolates template against the values it pushed, in
// push order (spec.md §9 "Reentrancy": the sub-program "must not execute
// text_run or choice opcodes").
func (vm *VM) runDefinitionInterpolation(ctx context.Context, ip int32, template string) (string, error) {
	savedIP, savedStack, savedLocals := vm.ip, vm.stack, vm.locals
	vm.ip = ip
	vm.stack = nil
	vm.locals = localstore.New()
	defer func() {
		vm.ip, vm.stack, vm.locals = savedIP, savedStack, savedLocals
	}()

	for {
		inst, next, err := bytecode.DecodeAt(vm.binary.Instructions, int(vm.ip))
		if err != nil {
			return "", err
		}
		if inst.Op == bytecode.TextRun || isChoiceOpcode(inst.Op) {
			return "", fmt.Errorf("definition sub-program used a disallowed opcode %s", inst.Op)
		}
		if inst.Op == bytecode.Exit || inst.Op == bytecode.Ret {
			break
		}
		vm.ip = int32(next)
		if err := vm.execute(ctx, inst); err != nil {
			return "", err
		}
	}
	return interpolate(template, vm.stack), nil
}
