// Package cursor provides a small sequential/random-access reader over a
// byte buffer for binary container formats.
//
// It centers on little-endian fixed-width integers, IEEE-754 doubles, and
// null-terminated strings, which is the vocabulary the DXB container format
// is built from (see pkg/container). Bounds violations are reported as
// errors rather than panics so a malformed file never crashes the host.
package cursor

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// ErrTruncated is returned (possibly wrapped) whenever a read would run
// past the end of the underlying buffer.
var ErrTruncated = errors.New("cursor: truncated buffer")

// Cursor reads primitive values sequentially from a byte buffer, advancing
// its position as it goes. It also supports random access via Seek/Pos for
// callers that need to skip or rewind (e.g. DXB v4's lazy section sizes).
type Cursor struct {
	buf []byte
	pos int
}

// New wraps buf in a Cursor positioned at offset 0.
func New(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Pos returns the current read offset.
func (c *Cursor) Pos() int { return c.pos }

// Len returns the total length of the underlying buffer.
func (c *Cursor) Len() int { return len(c.buf) }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

// Seek moves the read position to an absolute offset. It errors if the
// offset falls outside the buffer.
func (c *Cursor) Seek(pos int) error {
	if pos < 0 || pos > len(c.buf) {
		return errors.Wrapf(ErrTruncated, "seek to %d (len %d)", pos, len(c.buf))
	}
	c.pos = pos
	return nil
}

func (c *Cursor) need(n int) error {
	if n < 0 || c.pos+n > len(c.buf) {
		return errors.Wrapf(ErrTruncated, "need %d bytes at offset %d (len %d)", n, c.pos, len(c.buf))
	}
	return nil
}

// ReadBytes returns the next n bytes and advances the cursor. The returned
// slice aliases the underlying buffer; callers must copy it if they intend
// to mutate it or outlive the buffer.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// ReadU8 reads a single unsigned byte.
func (c *Cursor) ReadU8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

// ReadU16 reads a little-endian uint16.
func (c *Cursor) ReadU16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

// ReadU32 reads a little-endian uint32.
func (c *Cursor) ReadU32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

// ReadI32 reads a little-endian, two's-complement int32.
func (c *Cursor) ReadI32() (int32, error) {
	v, err := c.ReadU32()
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

// ReadF64 reads a little-endian IEEE-754 double.
func (c *Cursor) ReadF64() (float64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	bits := binary.LittleEndian.Uint64(c.buf[c.pos:])
	c.pos += 8
	return math.Float64frombits(bits), nil
}

// ReadCString reads bytes up to and including the next NUL byte and
// returns the string with the terminator stripped.
func (c *Cursor) ReadCString() (string, error) {
	start := c.pos
	for i := c.pos; i < len(c.buf); i++ {
		if c.buf[i] == 0 {
			s := string(c.buf[start:i])
			c.pos = i + 1
			return s, nil
		}
	}
	return "", errors.Wrapf(ErrTruncated, "unterminated string starting at offset %d", start)
}
