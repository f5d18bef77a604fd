package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Instruction is a decoded instruction at a known offset, used by the
// disassembler, the debugger's single-step display, and the VM's dispatch
// loop (VM.Update decodes each instruction with DecodeAt).
type Instruction struct {
	Offset  int
	Op      Opcode
	I32     int32
	I32B    int32
	F64     float64
}

// DecodeAt decodes the instruction at offset ip in code, returning the
// instruction and the offset of the instruction immediately following it.
func DecodeAt(code []byte, ip int) (Instruction, int, error) {
	if ip < 0 || ip >= len(code) {
		return Instruction{}, ip, fmt.Errorf("bytecode: ip %d out of range (len %d)", ip, len(code))
	}
	op := Opcode(code[ip])
	inst := Instruction{Offset: ip, Op: op}
	next := ip + 1

	switch op.Shape() {
	case OperandI32:
		v, err := readI32(code, next)
		if err != nil {
			return inst, next, err
		}
		inst.I32 = v
		next += 4
	case OperandF64:
		v, err := readF64(code, next)
		if err != nil {
			return inst, next, err
		}
		inst.F64 = v
		next += 8
	case OperandI32I32:
		a, err := readI32(code, next)
		if err != nil {
			return inst, next, err
		}
		b, err := readI32(code, next+4)
		if err != nil {
			return inst, next, err
		}
		inst.I32, inst.I32B = a, b
		next += 8
	}
	return inst, next, nil
}

func readI32(code []byte, at int) (int32, error) {
	if at+4 > len(code) {
		return 0, fmt.Errorf("bytecode: truncated i32 operand at %d", at)
	}
	return int32(binary.LittleEndian.Uint32(code[at : at+4])), nil
}

func readF64(code []byte, at int) (float64, error) {
	if at+8 > len(code) {
		return 0, fmt.Errorf("bytecode: truncated f64 operand at %d", at)
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(code[at : at+8])), nil
}

// Disassemble renders code as a flat listing, one line per instruction,
// in the form "   120: JUMP_FALSEY +40". Jump-family opcodes render their
// operand as a relative offset since that is how the VM interprets it.
func Disassemble(code []byte) string {
	var b strings.Builder
	ip := 0
	for ip < len(code) {
		inst, next, err := DecodeAt(code, ip)
		if err != nil {
			fmt.Fprintf(&b, "%6d: <error: %v>\n", ip, err)
			break
		}
		fmt.Fprintf(&b, "%6d: %s", ip, inst.Op)
		switch inst.Op.Shape() {
		case OperandI32:
			switch inst.Op {
			case Jump, JumpTruthy, JumpFalsey, ChoiceAdd, ChoiceAddTruthy, ChooseAdd, ChooseAddTruthy:
				fmt.Fprintf(&b, " %+d", inst.I32)
			default:
				fmt.Fprintf(&b, " %d", inst.I32)
			}
		case OperandF64:
			fmt.Fprintf(&b, " %g", inst.F64)
		case OperandI32I32:
			fmt.Fprintf(&b, " %d, %d", inst.I32, inst.I32B)
		}
		b.WriteByte('\n')
		ip = next
	}
	return b.String()
}
