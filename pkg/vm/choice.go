package vm

import (
	"github.com/diannexlang/dx/pkg/bytecode"
)

// execChoiceBegin implements choice_begin (spec.md §4.5).
func (vm *VM) execChoiceBegin() error {
	if vm.inChoice {
		return vm.runtimeErrorf("choice_begin while a choice is already active")
	}
	vm.inChoice = true
	vm.choices = nil
	return nil
}

// execChoiceAdd implements choice_add / choice_add_truthy (spec.md §4.5).
// off is relative to the already-advanced ip, matching every other jump
// target in the instruction set.
func (vm *VM) execChoiceAdd(inst bytecode.Instruction, truthy bool) error {
	chanceVal := vm.popStack()
	textVal := vm.popStack()
	var condition bool
	if truthy {
		condition = vm.popStack().Truthy()
	}

	if truthy && !condition {
		return nil
	}
	chance, ok := chanceVal.Double()
	if !ok {
		if i, okInt := chanceVal.Int(); okInt {
			chance = float64(i)
		}
	}
	text, ok := textVal.Str()
	if !ok {
		return nil
	}
	if !vm.chance(chance) {
		return nil
	}
	vm.choices = append(vm.choices, choiceOption{
		Address: vm.ip + inst.I32,
		Text:    text,
	})
	return nil
}

// execChoiceSelect implements choice_select (spec.md §4.5).
func (vm *VM) execChoiceSelect() error {
	if !vm.inChoice {
		return vm.runtimeErrorf("choice_select outside an active choice")
	}
	if len(vm.choices) == 0 {
		return vm.runtimeErrorf("choice_select with no candidates")
	}
	vm.selectChoice = true
	vm.paused = true
	return nil
}

// execChooseAdd implements choose_add / choose_add_truthy (spec.md §4.5).
func (vm *VM) execChooseAdd(inst bytecode.Instruction, truthy bool) {
	weightVal := vm.popStack()
	var condition bool
	if truthy {
		condition = vm.popStack().Truthy()
	}
	if truthy && !condition {
		return
	}
	weight, ok := weightVal.Double()
	if !ok {
		if i, okInt := weightVal.Int(); okInt {
			weight = float64(i)
		} else {
			return
		}
	}
	vm.chooseOptions = append(vm.chooseOptions, chooseOption{
		Weight:  weight,
		Pointer: vm.ip + inst.I32,
	})
}

// execChooseSelect implements choose_select (spec.md §4.5).
func (vm *VM) execChooseSelect() error {
	if len(vm.chooseOptions) == 0 {
		return vm.runtimeErrorf("choose_select with no candidates")
	}
	weights := make([]float64, len(vm.chooseOptions))
	for i, o := range vm.chooseOptions {
		weights[i] = o.Weight
	}
	s := vm.weighted(weights)
	if s < 0 || s >= len(vm.chooseOptions) {
		return vm.runtimeErrorf("weighted chance callback returned out-of-range index %d (have %d options)", s, len(vm.chooseOptions))
	}
	vm.ip = vm.chooseOptions[s].Pointer
	vm.chooseOptions = nil
	return nil
}
