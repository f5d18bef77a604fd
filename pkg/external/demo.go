package external

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/diannexlang/dx/pkg/value"
)

// NewDemoRegistry returns a Registry pre-populated with a handful of
// illustrative external functions, loosely mirroring the kind of
// string/random utility primitives the teacher VM wires up directly
// (pkg/vm/primitives.go), but exposed the way a host game would register
// its own: by name, through Registry.Register. cmd/dxbrun uses this so a
// DXB file can be driven end to end without a real game host attached.
func NewDemoRegistry() *Registry {
	r := NewRegistry()

	r.Register("upper", func(ctx context.Context, args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return value.Undef, fmt.Errorf("upper expects 1 argument, got %d", len(args))
		}
		s, ok := args[0].Str()
		if !ok {
			return value.Undef, fmt.Errorf("upper expects a string argument")
		}
		return value.NewString(strings.ToUpper(s)), nil
	})

	r.Register("randomInt", func(ctx context.Context, args []value.Value) (value.Value, error) {
		if len(args) != 2 {
			return value.Undef, fmt.Errorf("randomInt expects 2 arguments, got %d", len(args))
		}
		lo, ok := args[0].Int()
		if !ok {
			return value.Undef, fmt.Errorf("randomInt: min must be an int")
		}
		hi, ok := args[1].Int()
		if !ok {
			return value.Undef, fmt.Errorf("randomInt: max must be an int")
		}
		if hi <= lo {
			return value.NewInt(lo), nil
		}
		return value.NewInt(lo + rand.Int31n(hi-lo)), nil
	})

	r.Register("concat", func(ctx context.Context, args []value.Value) (value.Value, error) {
		var b strings.Builder
		for _, a := range args {
			b.WriteString(a.String())
		}
		return value.NewString(b.String()), nil
	})

	return r
}
