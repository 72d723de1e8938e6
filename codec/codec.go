// Package codec provides the decompressors used to turn ZIP entry payloads back into their original content.
package codec

import (
	"archive/zip"
	"strings"
)

// Decompressor decompresses the entire payload of a single ZIP entry.
//
// Implementations must return an error for malformed or truncated input rather than partial output.
type Decompressor interface {
	Decompress(src []byte) ([]byte, error)
}

// Compressor is the inverse of Decompressor, mostly useful for producing test archives.
type Compressor interface {
	Compress(src []byte) ([]byte, error)
}

// ZIP compression method codes.
const (
	MethodStore   = zip.Store
	MethodDeflate = zip.Deflate
	MethodZstd    = uint16(93)
	MethodXz      = uint16(95)
)

// DefaultDecompressors returns the decompressors enabled when nothing else is configured: only raw DEFLATE.
func DefaultDecompressors() map[uint16]Decompressor {
	return map[uint16]Decompressor{
		MethodDeflate: Flate{},
	}
}

// FromName returns the ZIP method code and Decompressor for the given algorithm name.
//
// Recognised names are "deflate", "zstd", and "xz" (case-insensitive).
func FromName(name string) (uint16, Decompressor, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "deflate", "flate":
		return MethodDeflate, Flate{}, true
	case "zstd", "zst":
		return MethodZstd, Zstd{}, true
	case "xz":
		return MethodXz, Xz{}, true
	default:
		return 0, nil, false
	}
}
