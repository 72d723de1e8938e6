package parse

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"iter"

	"github.com/klauspost/compress/flate"
	"github.com/nguyengg/ziploader/codec"
	"github.com/nguyengg/ziploader/cursor"
	"golang.org/x/text/encoding/charmap"
)

const (
	lfhSig  = 0x04034b50
	cdfhSig = 0x02014b50
	ddSig   = 0x08074b50

	// flagDataDescriptor is general purpose bit 3: CRC-32 and sizes follow the compressed data.
	flagDataDescriptor = 0x8
)

// Record is a local file header and its compressed data, exactly as found in the archive.
type Record struct {
	// Name is the file name, each byte decoded as one ISO-8859-1 character.
	Name string
	// Method is the compression method code.
	Method uint16
	// Flags is the general purpose bit flag.
	Flags uint16
	// CompressedSize is the length of Data.
	CompressedSize uint32
	// UncompressedSize is the size declared by the header (or data descriptor). It is informational only.
	UncompressedSize uint32
	// Offset is the position of the local file header signature in the archive.
	Offset int
	// Data is the compressed data. It aliases the archive buffer and must not be modified.
	Data []byte
}

// Records scans the archive forwards for local file headers.
//
// Central directory records are skipped. The scan ends without error at the first signature that is neither a local
// file header nor a central directory record (typically the end of central directory record), or if the buffer ends
// exactly at a record boundary. Any out-of-bounds access yields an error wrapping ErrTruncatedInput and stops the
// iterator.
func Records(buf []byte) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		c := cursor.New(buf)

		for c.Len() != 0 {
			offset := c.Offset()

			sig, err := c.Uint32()
			if err != nil {
				yield(Record{}, fmt.Errorf("read signature at offset %d error: %w", offset, err))
				return
			}

			switch sig {
			case lfhSig:
				r, err := readLocalFile(c, offset)
				if err != nil {
					yield(Record{}, fmt.Errorf("read local file header at offset %d error: %w", offset, err))
					return
				}

				if !yield(r, nil) {
					return
				}
			case cdfhSig:
				if err = skipCentralDirectory(c); err != nil {
					yield(Record{}, fmt.Errorf("read central directory header at offset %d error: %w", offset, err))
					return
				}
			default:
				return
			}
		}
	}
}

// readLocalFile reads the rest of a local file header whose signature has just been consumed.
//
// https://en.wikipedia.org/wiki/ZIP_(file_format)#Local_file_header
func readLocalFile(c *cursor.Cursor, offset int) (r Record, err error) {
	r.Offset = offset

	// version needed to extract.
	if err = c.Skip(2); err != nil {
		return
	}
	if r.Flags, err = c.Uint16(); err != nil {
		return
	}
	if r.Method, err = c.Uint16(); err != nil {
		return
	}
	// last mod time, last mod date, CRC-32.
	if err = c.Skip(8); err != nil {
		return
	}
	if r.CompressedSize, err = c.Uint32(); err != nil {
		return
	}
	if r.UncompressedSize, err = c.Uint32(); err != nil {
		return
	}

	n, err := c.Uint16()
	if err != nil {
		return
	}
	m, err := c.Uint16()
	if err != nil {
		return
	}

	name, err := c.Next(int(n))
	if err != nil {
		return
	}
	if r.Name, err = decodeName(name); err != nil {
		return
	}

	if err = c.Skip(int(m)); err != nil {
		return
	}

	if r.Flags&flagDataDescriptor == 0 {
		r.Data, err = c.Next(int(r.CompressedSize))
		return
	}

	if r.CompressedSize == 0 {
		return readStreamedData(c, r)
	}

	// sizes are in the header as well as in the data descriptor that follows the data.
	if r.Data, err = c.Next(int(r.CompressedSize)); err != nil {
		return
	}
	if _, err = readDataDescriptor(c); err != nil {
		return r, fmt.Errorf(`"%s": read data descriptor error: %w`, r.Name, err)
	}

	return
}

// readStreamedData handles an entry whose sizes are only known from the data descriptor that follows its data.
//
// A DEFLATE stream marks its own end so the data can be delimited by inflating it; nothing else can.
func readStreamedData(c *cursor.Cursor, r Record) (Record, error) {
	if r.Method != codec.MethodDeflate {
		return r, fmt.Errorf(`"%s" (method %d): %w`, r.Name, r.Method, ErrDataDescriptor)
	}

	rest, err := c.Peek(c.Len())
	if err != nil {
		return r, err
	}

	// bytes.Reader is an io.ByteReader so the decompressor never reads past the end of the stream.
	br := bytes.NewReader(rest)
	fr := flate.NewReader(br)
	_, err = io.Copy(io.Discard, fr)
	_ = fr.Close()
	if err != nil {
		return r, fmt.Errorf(`"%s": %w: %w`, r.Name, ErrStreamedData, err)
	}

	size := len(rest) - br.Len()
	if r.Data, err = c.Next(size); err != nil {
		return r, err
	}
	r.CompressedSize = uint32(size)

	if r.UncompressedSize, err = readDataDescriptor(c); err != nil {
		return r, fmt.Errorf(`"%s": read data descriptor error: %w`, r.Name, err)
	}

	return r, nil
}

// readDataDescriptor consumes the optional signature, CRC-32, compressed size, and uncompressed size that follow the
// data of an entry with general purpose bit 3 set.
//
// Returns the uncompressed size.
func readDataDescriptor(c *cursor.Cursor) (uint32, error) {
	if b, err := c.Peek(4); err == nil && binary.LittleEndian.Uint32(b) == ddSig {
		_ = c.Skip(4)
	}
	if err := c.Skip(8); err != nil {
		return 0, err
	}

	return c.Uint32()
}

// skipCentralDirectory skips a central directory file header whose signature has just been consumed.
//
// https://en.wikipedia.org/wiki/ZIP_(file_format)#Central_directory_file_header_(CDFH)
func skipCentralDirectory(c *cursor.Cursor) error {
	// version made by, version needed, flags, method, time, date, CRC-32, compressed and uncompressed sizes.
	if err := c.Skip(24); err != nil {
		return err
	}

	n, err := c.Uint16()
	if err != nil {
		return err
	}
	m, err := c.Uint16()
	if err != nil {
		return err
	}
	k, err := c.Uint16()
	if err != nil {
		return err
	}

	// disk number start, internal attributes, external attributes, relative offset of local header.
	if err = c.Skip(12); err != nil {
		return err
	}

	return c.Skip(int(n) + int(m) + int(k))
}

// decodeName decodes the file name bytes as ISO-8859-1, one character per byte.
func decodeName(b []byte) (string, error) {
	name, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode file name error: %w", err)
	}

	return string(name), nil
}
