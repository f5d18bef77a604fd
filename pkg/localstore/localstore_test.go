package localstore

import (
	"testing"

	"github.com/diannexlang/dx/pkg/value"
)

type fakeHost struct {
	flags map[string]value.Value
}

func (h *fakeHost) GetFlag(name string) value.Value {
	if h.flags == nil {
		return value.Undef
	}
	return h.flags[name]
}

func (h *fakeHost) SetFlag(name string, v value.Value) {
	if h.flags == nil {
		h.flags = make(map[string]value.Value)
	}
	h.flags[name] = v
}

func TestSetExtendsWithUndefined(t *testing.T) {
	s := New()
	s.Set(3, value.NewInt(7), nil)
	if s.Count() != 4 {
		t.Fatalf("Count() = %d, want 4", s.Count())
	}
	for i := 0; i < 3; i++ {
		if got := s.Get(i, nil); !got.IsUndefined() {
			t.Errorf("slot %d = %v, want undefined padding", i, got)
		}
	}
	if got, _ := s.Get(3, nil).Int(); got != 7 {
		t.Fatalf("slot 3 = %d, want 7", got)
	}
}

func TestFlagOverlayRedirectsThroughHost(t *testing.T) {
	s := New()
	s.BindFlag(0, "seen_intro")
	host := &fakeHost{}

	s.Set(0, value.NewInt(1), host)
	if got, _ := host.GetFlag("seen_intro").Int(); got != 1 {
		t.Fatalf("flag not set through overlay: got %v", got)
	}
	if got := s.Get(0, host); got != value.NewInt(1) {
		t.Fatalf("Get through overlay = %v, want Int(1)", got)
	}
	// the raw slot itself must remain untouched by the overlay.
	if s.Count() != 0 {
		t.Fatalf("flag-bound Set should not allocate a raw slot, Count() = %d", s.Count())
	}
}

func TestFreeLocalTailTruncates(t *testing.T) {
	s := New()
	s.Set(0, value.NewInt(1), nil)
	s.Set(1, value.NewInt(2), nil)
	if truncated := s.FreeLocal(1); !truncated {
		t.Fatal("FreeLocal on tail slot should report truncated=true")
	}
	if s.Count() != 1 {
		t.Fatalf("Count() after tail free = %d, want 1", s.Count())
	}
}

func TestFreeLocalNonTailLeavesGap(t *testing.T) {
	s := New()
	s.Set(0, value.NewInt(1), nil)
	s.Set(1, value.NewInt(2), nil)
	if truncated := s.FreeLocal(0); truncated {
		t.Fatal("FreeLocal on non-tail slot should report truncated=false")
	}
	if s.Count() != 2 {
		t.Fatalf("Count() after non-tail free = %d, want 2 (gap, not shift)", s.Count())
	}
	if got := s.Get(0, nil); !got.IsUndefined() {
		t.Fatalf("freed slot 0 = %v, want undefined gap", got)
	}
	if got, _ := s.Get(1, nil).Int(); got != 2 {
		t.Fatalf("slot 1 shifted after freeing slot 0: got %v, want untouched 2", got)
	}
}
