package container

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// ValidateSymbols checks spec.md §4.1's invariant — every symbol in
// scenes, functions, and definitions is a valid index into string_table —
// and returns the first violation found. Decode calls this once at load
// time; New (used by tests and hosts assembling a Binary programmatically)
// does not, since callers there routinely build tables out of order.
func (b *Binary) ValidateSymbols() error {
	n := len(b.StringTable)
	for _, s := range b.Scenes {
		if int(s.Symbol) >= n {
			return fmt.Errorf("container: scene symbol index %d out of range (string table has %d entries)", s.Symbol, n)
		}
	}
	for _, f := range b.Functions {
		if int(f.Symbol) >= n {
			return fmt.Errorf("container: function symbol index %d out of range (string table has %d entries)", f.Symbol, n)
		}
	}
	for _, d := range b.Definitions {
		if int(d.Symbol) >= n {
			return fmt.Errorf("container: definition symbol index %d out of range (string table has %d entries)", d.Symbol, n)
		}
	}
	return nil
}

// buildExternalFunctionIndex caches a sorted copy of ExternalFunctionList so
// DeclaresExternalFunction can answer in O(log n) instead of rescanning the
// list on every call (the CLI's disasm command calls it once per declared
// function symbol).
func (b *Binary) buildExternalFunctionIndex() {
	b.sortedExternalFunctions = append([]uint32(nil), b.ExternalFunctionList...)
	slices.Sort(b.sortedExternalFunctions)
}

// DeclaresExternalFunction reports whether symbol (a string_table index)
// appears in the DXB's external_function_list, i.e. whether the compiler
// that produced this binary believes a host function by that name exists.
func (b *Binary) DeclaresExternalFunction(symbol uint32) bool {
	_, ok := slices.BinarySearch(b.sortedExternalFunctions, symbol)
	return ok
}
