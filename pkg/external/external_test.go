package external

import (
	"context"
	"testing"

	"github.com/diannexlang/dx/pkg/value"
)

func TestRegistryInvoke(t *testing.T) {
	r := NewRegistry()
	r.Register("double", func(ctx context.Context, args []value.Value) (value.Value, error) {
		n, _ := args[0].Int()
		return value.NewInt(n * 2), nil
	})

	if !r.Has("double") {
		t.Fatal("expected double to be registered")
	}

	got, err := r.Invoke(context.Background(), "double", []value.Value{value.NewInt(21)})
	if err != nil {
		t.Fatal(err)
	}
	n, ok := got.Int()
	if !ok || n != 42 {
		t.Fatalf("Invoke = %v, want Int(42)", got)
	}
}

func TestRegistryInvokeUnknown(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Invoke(context.Background(), "missing", nil); err == nil {
		t.Fatal("expected error for unregistered function")
	}
}

func TestDemoRegistryUpper(t *testing.T) {
	r := NewDemoRegistry()
	got, err := r.Invoke(context.Background(), "upper", []value.Value{value.NewString("hello")})
	if err != nil {
		t.Fatal(err)
	}
	s, _ := got.Str()
	if s != "HELLO" {
		t.Fatalf("upper = %q, want HELLO", s)
	}
}

func TestDemoRegistryConcat(t *testing.T) {
	r := NewDemoRegistry()
	got, err := r.Invoke(context.Background(), "concat", []value.Value{value.NewString("a"), value.NewInt(1)})
	if err != nil {
		t.Fatal(err)
	}
	s, _ := got.Str()
	if s != "a1" {
		t.Fatalf("concat = %q, want a1", s)
	}
}

func TestNamesSorted(t *testing.T) {
	r := NewDemoRegistry()
	names := r.Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("Names() not sorted: %v", names)
		}
	}
}
