package container

import (
	"encoding/binary"

	"github.com/dchest/siphash"
	"golang.org/x/crypto/blake2b"
)

// stringRefTag is the high bit of a tagged string reference. spec.md §9's
// "intended predicate" note: the tag selects which table a reference reads
// from, not whether it is signed, so it must be tested with a bitmask
// rather than an int32 sign check (the two disagree once indices exceed
// 2^31, and disagree unconditionally under certain compilers' int32-cast
// rules for the raw u32 either way).
const stringRefTag = uint32(1) << 31

// ResolveStringRef resolves a tagged string reference (spec.md §4.2): if
// the high bit of ref is set, the low 31 bits index StringTable; otherwise
// the full 32 bits index TranslationTable.
func (b *Binary) ResolveStringRef(ref uint32) (string, bool) {
	tagged := ref&stringRefTag != 0

	var idx uint32
	var table []string
	if tagged {
		idx = ref &^ stringRefTag
		table = b.StringTable
	} else {
		idx = ref
		table = b.TranslationTable
	}
	if int(idx) >= len(table) {
		return "", false
	}
	return table[idx], true
}

// Fingerprint returns a siphash-2-4 digest of s under key. The VM uses it
// when rebuilding its definitions cache (spec.md §4.7) to compare each
// definition's previous and new resolved string and log the ones that
// changed; the cache itself is keyed by definition name.
func Fingerprint(key [16]byte, s string) uint64 {
	k0 := binary.LittleEndian.Uint64(key[0:8])
	k1 := binary.LittleEndian.Uint64(key[8:16])
	return siphash.Hash(k0, k1, []byte(s))
}

// computeChecksum hashes the decoded instruction stream and both string
// tables so Binary.Checksum can report whether a DXB's executable content
// changed between loads, independent of incidental re-encoding.
func computeChecksum(b *Binary) [32]byte {
	h, _ := blake2b.New256(nil)
	h.Write(b.Instructions)
	for _, s := range b.StringTable {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	for _, s := range b.TranslationTable {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}
