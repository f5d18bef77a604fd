package container

import "github.com/pkg/errors"

// Decode errors, per spec.md §7 "Decode errors (fatal to loading)".
var (
	// ErrInvalidSignature is returned when the leading 3 bytes are not "DNX".
	ErrInvalidSignature = errors.New("container: invalid signature")
	// ErrUnsupportedVersion is returned for any version other than 3 or 4.
	ErrUnsupportedVersion = errors.New("container: binary not for this version")
	// ErrTruncated is returned when a read runs past the end of the buffer.
	ErrTruncated = errors.New("container: truncated binary")
	// ErrDecompression is returned when zlib inflation of a compressed
	// payload fails.
	ErrDecompression = errors.New("container: decompression failure")
)
