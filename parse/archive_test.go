package parse

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/nguyengg/ziploader/codec"
)

// testFile is a single entry of an archive built by buildArchive.
//
// data is the original content; payload is computed by compressing data with method unless raw is given, in which
// case raw is written as the compressed data verbatim.
//
// descriptor sets general purpose bit 3 and writes a data descriptor after the data while keeping the sizes in the
// local file header; streamed does the same but zeroes the sizes in the local file header.
type testFile struct {
	name       string
	method     uint16
	data       []byte
	raw        []byte
	descriptor bool
	streamed   bool
}

func (f testFile) flags() uint16 {
	if f.descriptor || f.streamed {
		return flagDataDescriptor
	}

	return 0
}

// buildArchive lays out local file headers, then central directory records, then the end of central directory
// record, the same way every ZIP writer does when sizes are known upfront.
//
// Returns the archive and the offset of every record (local file headers first, then central directory records).
func buildArchive(t *testing.T, files ...testFile) ([]byte, []int) {
	t.Helper()

	var (
		buf     bytes.Buffer
		offsets []int
		lfhs    []int
		sizes   []int
	)

	le := func(v any) {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			t.Fatalf("binary.Write(...) error = %v", err)
		}
	}

	payloads := make([][]byte, len(files))
	for i, f := range files {
		switch {
		case f.raw != nil:
			payloads[i] = f.raw
		case f.method == codec.MethodStore:
			payloads[i] = f.data
		default:
			d, ok := codecFor(f.method)
			if !ok {
				t.Fatalf("no compressor for method %d", f.method)
			}
			p, err := d.Compress(f.data)
			if err != nil {
				t.Fatalf("Compress(...) error = %v", err)
			}
			payloads[i] = p
		}
	}

	for i, f := range files {
		offsets = append(offsets, buf.Len())
		lfhs = append(lfhs, buf.Len())
		sizes = append(sizes, len(payloads[i]))

		crc, csize, usize := crc32.ChecksumIEEE(f.data), uint32(len(payloads[i])), uint32(len(f.data))

		le(uint32(lfhSig))
		le(uint16(20)) // version needed
		le(f.flags())  // flags
		le(f.method)   // method
		le(uint16(0))  // time
		le(uint16(0))  // date
		if f.streamed {
			le([3]uint32{})
		} else {
			le([3]uint32{crc, csize, usize})
		}
		le(uint16(len(f.name))) // name length
		le(uint16(0))           // extra length
		buf.WriteString(f.name)
		buf.Write(payloads[i])

		if f.flags() != 0 {
			le([4]uint32{ddSig, crc, csize, usize})
		}
	}

	cdOffset := buf.Len()
	for i, f := range files {
		offsets = append(offsets, buf.Len())

		le(uint32(cdfhSig))
		le(uint16(20))                 // version made by
		le(uint16(20))                 // version needed
		le(f.flags())                  // flags
		le(f.method)                   // method
		le(uint16(0))                  // time
		le(uint16(0))                  // date
		le(crc32.ChecksumIEEE(f.data)) // CRC-32
		le(uint32(sizes[i]))           // compressed size
		le(uint32(len(f.data)))        // uncompressed size
		le(uint16(len(f.name)))        // name length
		le(uint16(0))                  // extra length
		le(uint16(0))                  // comment length
		le(uint16(0))                  // disk number start
		le(uint16(0))                  // internal attributes
		le(uint32(0))                  // external attributes
		le(uint32(lfhs[i]))            // relative offset
		buf.WriteString(f.name)
	}
	cdSize := buf.Len() - cdOffset

	le(uint32(0x06054b50))
	le(uint16(0))
	le(uint16(0))
	le(uint16(len(files)))
	le(uint16(len(files)))
	le(uint32(cdSize))
	le(uint32(cdOffset))
	le(uint16(0))

	return buf.Bytes(), offsets
}

type roundTripper interface {
	codec.Compressor
	codec.Decompressor
}

func codecFor(method uint16) (roundTripper, bool) {
	switch method {
	case codec.MethodDeflate:
		return codec.Flate{}, true
	case codec.MethodZstd:
		return codec.Zstd{}, true
	case codec.MethodXz:
		return codec.Xz{}, true
	default:
		return nil, false
	}
}
