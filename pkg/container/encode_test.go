package container

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
)

// testEncoder builds minimal, spec-shaped DXB payloads for tests. The
// retrieval pack carries no sample .dxb fixtures, so tests construct their
// own byte-exact binaries rather than asserting against an opaque blob.
type testEncoder struct {
	version uint8
	buf     bytes.Buffer
}

func newTestEncoder(version uint8) *testEncoder {
	return &testEncoder{version: version}
}

func (e *testEncoder) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *testEncoder) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

func (e *testEncoder) i32(v int32) { e.u32(uint32(v)) }

func (e *testEncoder) cstr(s string) {
	e.buf.WriteString(s)
	e.buf.WriteByte(0)
}

func (e *testEncoder) sceneFuncTable(entries []SceneFunc) {
	e.withV4Prefix(func() {
		e.u32(uint32(len(entries)))
		for _, sf := range entries {
			e.u32(sf.Symbol)
			e.u16(uint16(len(sf.InstructionIndices)))
			for _, idx := range sf.InstructionIndices {
				e.i32(idx)
			}
		}
	})
}

func (e *testEncoder) definitionTable(defs []Definition) {
	e.withV4Prefix(func() {
		e.u32(uint32(len(defs)))
		for _, d := range defs {
			e.u32(d.Symbol)
			e.u32(d.Reference)
			e.i32(d.InstructionIndex)
		}
	})
}

func (e *testEncoder) bytecode(b []byte) {
	e.u32(uint32(len(b)))
	e.buf.Write(b)
}

func (e *testEncoder) stringTable(strs []string) {
	e.withV4Prefix(func() {
		e.u32(uint32(len(strs)))
		for _, s := range strs {
			e.cstr(s)
		}
	})
}

func (e *testEncoder) externalFunctionList(syms []uint32) {
	e.u32(uint32(len(syms)))
	for _, s := range syms {
		e.u32(s)
	}
}

func (e *testEncoder) withV4Prefix(write func()) {
	if e.version < 4 {
		write()
		return
	}
	savedBuf := e.buf
	e.buf = bytes.Buffer{}
	write()
	section := e.buf.Bytes()
	e.buf = savedBuf
	e.u32(uint32(len(section)))
	e.buf.Write(section)
}

// finish assembles the DNX header around the accumulated payload and
// returns the final file bytes, optionally zlib-compressing the payload.
func (e *testEncoder) finish(compress bool, translationAhead bool) []byte {
	payload := e.buf.Bytes()

	var out bytes.Buffer
	out.WriteString("DNX")
	out.WriteByte(e.version)

	var flags byte
	if compress {
		flags |= flagCompressed
	}
	if translationAhead {
		flags |= flagTranslationAhead
	}
	out.WriteByte(flags)

	var sizeBuf [4]byte
	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(len(payload)))
	out.Write(sizeBuf[:])

	if !compress {
		out.Write(payload)
		return out.Bytes()
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	zw.Write(payload)
	zw.Close()

	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(compressed.Len()))
	out.Write(sizeBuf[:])
	out.Write(compressed.Bytes())
	return out.Bytes()
}
