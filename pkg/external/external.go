// Package external provides a name->callable registry implementing
// vm.FunctionHandler (spec.md §1 "Out of scope: Registration of externally
// callable functions... a simple name→callable registry"). The teacher's
// VM dispatches its primitives through a big selector switch
// (pkg/vm/primitives.go); this package generalizes that to the host-driven
// registration model spec.md calls for, so embedding hosts add functions
// without touching this repository's source.
package external

import (
	"context"
	"fmt"
	"sort"

	"github.com/diannexlang/dx/pkg/value"
)

// Func is a single externally callable function, registered under a name
// that must match a string_table entry the DXB's call_external opcodes
// reference (spec.md §4.3).
type Func func(ctx context.Context, args []value.Value) (value.Value, error)

// Registry is a name->Func lookup table. Its zero value is ready to use.
// A *Registry implements vm.FunctionHandler; it is not imported from the vm
// package to avoid a dependency cycle, since the vm package only needs the
// method shape, not this concrete type.
type Registry struct {
	funcs map[string]Func
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register binds name to fn, overwriting any previous registration under
// that name.
func (r *Registry) Register(name string, fn Func) {
	if r.funcs == nil {
		r.funcs = make(map[string]Func)
	}
	r.funcs[name] = fn
}

// Has reports whether name has a registered function.
func (r *Registry) Has(name string) bool {
	_, ok := r.funcs[name]
	return ok
}

// Names returns every registered function name, sorted, for diagnostics
// and the dxbrun CLI's `funcs` subcommand.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for n := range r.funcs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Invoke implements vm.FunctionHandler: it looks up name and calls it with
// args, or returns an error if nothing is registered under that name
// (spec.md §7 "Host-callback errors: propagated from FunctionHandler.invoke
// as-is").
func (r *Registry) Invoke(ctx context.Context, name string, args []value.Value) (value.Value, error) {
	fn, ok := r.funcs[name]
	if !ok {
		return value.Undef, fmt.Errorf("external: no function registered for %q", name)
	}
	return fn(ctx, args)
}
