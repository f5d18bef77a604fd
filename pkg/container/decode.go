package container

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"

	"github.com/diannexlang/dx/pkg/cursor"
)

const (
	flagCompressed       = 1 << 0
	flagTranslationAhead = 1 << 1
)

// Decode parses a DXB container (spec.md §4.1) into a Binary. buf is the
// raw file contents; Decode never retains a reference to it after
// returning (the decompressed/copied sections are independent slices).
func Decode(buf []byte) (*Binary, error) {
	c := cursor.New(buf)

	sig, err := c.ReadBytes(3)
	if err != nil {
		return nil, errors.Wrap(ErrTruncated, "reading signature")
	}
	if !bytes.Equal(sig, []byte("DNX")) {
		return nil, ErrInvalidSignature
	}

	version, err := c.ReadU8()
	if err != nil {
		return nil, errors.Wrap(ErrTruncated, "reading version")
	}
	if version != 3 && version != 4 {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %d", version)
	}

	flags, err := c.ReadU8()
	if err != nil {
		return nil, errors.Wrap(ErrTruncated, "reading flags")
	}
	compressed := flags&flagCompressed != 0
	translationAhead := flags&flagTranslationAhead != 0

	uncompressedSize, err := c.ReadU32()
	if err != nil {
		return nil, errors.Wrap(ErrTruncated, "reading uncompressed size")
	}

	var payload []byte
	if compressed {
		compressedSize, err := c.ReadU32()
		if err != nil {
			return nil, errors.Wrap(ErrTruncated, "reading compressed size")
		}
		raw, err := c.ReadBytes(int(compressedSize))
		if err != nil {
			return nil, errors.Wrap(ErrTruncated, "reading compressed payload")
		}
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, errors.Wrap(ErrDecompression, err.Error())
		}
		defer zr.Close()
		out := make([]byte, 0, uncompressedSize)
		buf := bytes.NewBuffer(out)
		if _, err := io.Copy(buf, zr); err != nil {
			return nil, errors.Wrap(ErrDecompression, err.Error())
		}
		payload = buf.Bytes()
	} else {
		payload, err = c.ReadBytes(c.Remaining())
		if err != nil {
			return nil, errors.Wrap(ErrTruncated, "reading uncompressed payload")
		}
	}

	pc := cursor.New(payload)
	b := &Binary{Version: version, TranslationLoaded: false}

	b.Scenes, err = readSceneFuncTable(pc, version)
	if err != nil {
		return nil, errors.Wrap(err, "decoding scene table")
	}
	b.Functions, err = readSceneFuncTable(pc, version)
	if err != nil {
		return nil, errors.Wrap(err, "decoding function table")
	}
	b.Definitions, err = readDefinitionTable(pc, version)
	if err != nil {
		return nil, errors.Wrap(err, "decoding definition table")
	}
	b.Instructions, err = readBytecodeSection(pc)
	if err != nil {
		return nil, errors.Wrap(err, "decoding bytecode section")
	}
	b.StringTable, err = readStringTable(pc, version)
	if err != nil {
		return nil, errors.Wrap(err, "decoding string table")
	}
	if translationAhead {
		b.TranslationTable, err = readStringTable(pc, version)
		if err != nil {
			return nil, errors.Wrap(err, "decoding translation table")
		}
	}
	b.ExternalFunctionList, err = readExternalFunctionList(pc)
	if err != nil {
		return nil, errors.Wrap(err, "decoding external function list")
	}

	b.checksum = computeChecksum(b)
	b.buildIndexes()
	if err := b.ValidateSymbols(); err != nil {
		return nil, err
	}
	return b, nil
}

// withV4SizePrefix wraps read with v4's extra u32 section-byte-length
// prefix, used by metadata and string-table sections but not by the
// bytecode section or the external-function list (spec.md §9 "v4 framing"
// design note: those two sections are already self-delimiting).
func withV4SizePrefix(c *cursor.Cursor, version uint8, read func(*cursor.Cursor) error) error {
	if version < 4 {
		return read(c)
	}
	size, err := c.ReadU32()
	if err != nil {
		return errors.Wrap(ErrTruncated, "reading v4 section size")
	}
	start := c.Pos()
	if err := read(c); err != nil {
		return err
	}
	consumed := c.Pos() - start
	if remaining := int(size) - consumed; remaining > 0 {
		if _, err := c.ReadBytes(remaining); err != nil {
			return errors.Wrap(ErrTruncated, "skipping v4 section padding")
		}
	}
	return nil
}

func readSceneFuncTable(c *cursor.Cursor, version uint8) ([]SceneFunc, error) {
	var table []SceneFunc
	err := withV4SizePrefix(c, version, func(c *cursor.Cursor) error {
		count, err := c.ReadU32()
		if err != nil {
			return errors.Wrap(ErrTruncated, "reading table count")
		}
		table = make([]SceneFunc, 0, count)
		for i := uint32(0); i < count; i++ {
			symbol, err := c.ReadU32()
			if err != nil {
				return errors.Wrap(ErrTruncated, "reading symbol")
			}
			idxCount, err := c.ReadU16()
			if err != nil {
				return errors.Wrap(ErrTruncated, "reading instruction index count")
			}
			indices := make([]int32, idxCount)
			for j := range indices {
				v, err := c.ReadI32()
				if err != nil {
					return errors.Wrap(ErrTruncated, "reading instruction index")
				}
				indices[j] = v
			}
			table = append(table, SceneFunc{Symbol: symbol, InstructionIndices: indices})
		}
		return nil
	})
	return table, err
}

func readDefinitionTable(c *cursor.Cursor, version uint8) ([]Definition, error) {
	var table []Definition
	err := withV4SizePrefix(c, version, func(c *cursor.Cursor) error {
		count, err := c.ReadU32()
		if err != nil {
			return errors.Wrap(ErrTruncated, "reading definition count")
		}
		table = make([]Definition, 0, count)
		for i := uint32(0); i < count; i++ {
			symbol, err := c.ReadU32()
			if err != nil {
				return errors.Wrap(ErrTruncated, "reading definition symbol")
			}
			reference, err := c.ReadU32()
			if err != nil {
				return errors.Wrap(ErrTruncated, "reading definition reference")
			}
			instrIdx, err := c.ReadI32()
			if err != nil {
				return errors.Wrap(ErrTruncated, "reading definition instruction index")
			}
			table = append(table, Definition{Symbol: symbol, Reference: reference, InstructionIndex: instrIdx})
		}
		return nil
	})
	return table, err
}

func readBytecodeSection(c *cursor.Cursor) ([]byte, error) {
	length, err := c.ReadU32()
	if err != nil {
		return nil, errors.Wrap(ErrTruncated, "reading bytecode length")
	}
	b, err := c.ReadBytes(int(length))
	if err != nil {
		return nil, errors.Wrap(ErrTruncated, "reading bytecode bytes")
	}
	return append([]byte(nil), b...), nil
}

func readStringTable(c *cursor.Cursor, version uint8) ([]string, error) {
	var table []string
	err := withV4SizePrefix(c, version, func(c *cursor.Cursor) error {
		count, err := c.ReadU32()
		if err != nil {
			return errors.Wrap(ErrTruncated, "reading string table count")
		}
		table = make([]string, 0, count)
		for i := uint32(0); i < count; i++ {
			s, err := c.ReadCString()
			if err != nil {
				return errors.Wrap(ErrTruncated, "reading string table entry")
			}
			table = append(table, s)
		}
		return nil
	})
	return table, err
}

func readExternalFunctionList(c *cursor.Cursor) ([]uint32, error) {
	count, err := c.ReadU32()
	if err != nil {
		return nil, errors.Wrap(ErrTruncated, "reading external function count")
	}
	list := make([]uint32, count)
	for i := range list {
		v, err := c.ReadU32()
		if err != nil {
			return nil, errors.Wrap(ErrTruncated, "reading external function symbol")
		}
		list[i] = v
	}
	return list, nil
}
