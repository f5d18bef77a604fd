package bytecode

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"
)

func encI32(op Opcode, v int32) []byte {
	b := make([]byte, 5)
	b[0] = byte(op)
	binary.LittleEndian.PutUint32(b[1:], uint32(v))
	return b
}

func TestDecodeAtShapes(t *testing.T) {
	t.Run("zero operand", func(t *testing.T) {
		inst, next, err := DecodeAt([]byte{byte(Nop)}, 0)
		if err != nil {
			t.Fatal(err)
		}
		if inst.Op != Nop || next != 1 {
			t.Fatalf("got %+v, next=%d", inst, next)
		}
	})

	t.Run("one i32 operand", func(t *testing.T) {
		code := encI32(PushInt, -7)
		inst, next, err := DecodeAt(code, 0)
		if err != nil {
			t.Fatal(err)
		}
		if inst.Op != PushInt || inst.I32 != -7 || next != 5 {
			t.Fatalf("got %+v, next=%d", inst, next)
		}
	})

	t.Run("one f64 operand", func(t *testing.T) {
		code := make([]byte, 9)
		code[0] = byte(PushDouble)
		binary.LittleEndian.PutUint64(code[1:], math.Float64bits(3.5))
		inst, next, err := DecodeAt(code, 0)
		if err != nil {
			t.Fatal(err)
		}
		if inst.Op != PushDouble || inst.F64 != 3.5 || next != 9 {
			t.Fatalf("got %+v, next=%d", inst, next)
		}
	})

	t.Run("two i32 operands", func(t *testing.T) {
		code := make([]byte, 9)
		code[0] = byte(Call)
		binary.LittleEndian.PutUint32(code[1:5], 4)
		binary.LittleEndian.PutUint32(code[5:9], 2)
		inst, next, err := DecodeAt(code, 0)
		if err != nil {
			t.Fatal(err)
		}
		if inst.Op != Call || inst.I32 != 4 || inst.I32B != 2 || next != 9 {
			t.Fatalf("got %+v, next=%d", inst, next)
		}
	})

	t.Run("out of range ip errors", func(t *testing.T) {
		if _, _, err := DecodeAt([]byte{byte(Nop)}, 5); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("truncated operand errors", func(t *testing.T) {
		if _, _, err := DecodeAt([]byte{byte(PushInt), 0, 0}, 0); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestDisassemble(t *testing.T) {
	var code []byte
	code = append(code, encI32(PushInt, 42)...)
	code = append(code, byte(TextRun))
	code = append(code, byte(Exit))

	out := Disassemble(code)
	for _, want := range []string{"PUSH_INT 42", "TEXT_RUN", "EXIT"} {
		if !strings.Contains(out, want) {
			t.Fatalf("Disassemble output missing %q:\n%s", want, out)
		}
	}
}

func TestDisassembleJumpShowsSignedOffset(t *testing.T) {
	code := encI32(Jump, -3)
	out := Disassemble(code)
	if !strings.Contains(out, "JUMP -3") {
		t.Fatalf("expected signed jump offset, got:\n%s", out)
	}
}
