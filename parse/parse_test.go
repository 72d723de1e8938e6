package parse

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/nguyengg/ziploader/codec"
	"github.com/nguyengg/ziploader/cursor"
	"github.com/stretchr/testify/assert"
)

// quiet silences the diagnostic logger.
func quiet(opts *Options) {
	opts.Logger = log.New(io.Discard, "", 0)
}

// contents returns the name-to-data mapping of the result.
func contents(r *Result) map[string][]byte {
	m := make(map[string][]byte, len(r.Files))
	for name, e := range r.Files {
		m[name] = e.Data
	}

	return m
}

func TestParse_Example(t *testing.T) {
	buf, _ := buildArchive(t,
		testFile{name: "a.txt", method: codec.MethodStore, data: []byte("hi")},
		testFile{name: "b.json", method: codec.MethodDeflate, data: []byte(`{"x":1}`)},
	)

	r, err := Parse(buf, quiet)
	assert.NoErrorf(t, err, "Parse(...) error = %v", err)
	assert.Equal(t, map[string][]byte{
		"a.txt":  []byte("hi"),
		"b.json": []byte(`{"x":1}`),
	}, contents(r))
	assert.Equal(t, StatusStored, r.Files["a.txt"].Status)
	assert.Equal(t, StatusDeflated, r.Files["b.json"].Status)
	assert.NoError(t, r.Err())
	assert.Empty(t, r.Overwritten)
	assert.Equal(t, []string{"a.txt", "b.json"}, r.Names())
}

func TestParse_RoundTrip(t *testing.T) {
	large := bytes.Repeat([]byte("0123456789abcdef"), 4096)

	tests := []struct {
		name   string
		method uint16
	}{
		{name: "stored", method: codec.MethodStore},
		{name: "deflate", method: codec.MethodDeflate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := []testFile{
				{name: "empty", method: tt.method, data: []byte{}},
				{name: "small.txt", method: tt.method, data: []byte("hello, world")},
				{name: "dir/large.bin", method: tt.method, data: large},
			}

			buf, _ := buildArchive(t, files...)
			r, err := Parse(buf, quiet)
			assert.NoErrorf(t, err, "Parse(...) error = %v", err)
			assert.Len(t, r.Files, len(files))

			for _, f := range files {
				e, ok := r.Files[f.name]
				if assert.Truef(t, ok, "missing %s", f.name) {
					assert.Equal(t, len(f.data), len(e.Data))
					assert.True(t, bytes.Equal(f.data, e.Data), "content of %s differs", f.name)
					assert.Equal(t, uint32(len(f.data)), e.UncompressedSize)
					assert.True(t, e.OK())
				}
			}
		})
	}
}

func TestParse_DoesNotAliasBuffer(t *testing.T) {
	buf, _ := buildArchive(t, testFile{name: "a.txt", method: codec.MethodStore, data: []byte("hi")})
	original := bytes.Clone(buf)

	r, err := Parse(buf, quiet)
	assert.NoError(t, err)

	r.Files["a.txt"].Data[0] = 'H'
	assert.Equal(t, original, buf)
}

func TestParse_Idempotent(t *testing.T) {
	buf, _ := buildArchive(t,
		testFile{name: "a.txt", method: codec.MethodStore, data: []byte("hi")},
		testFile{name: "b.json", method: codec.MethodDeflate, data: []byte(`{"x":1}`)},
		testFile{name: "c.bin", method: 99, raw: []byte{1, 2, 3}},
	)

	r1, err := Parse(buf, quiet)
	assert.NoError(t, err)
	r2, err := Parse(buf, quiet)
	assert.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func TestParse_Truncated(t *testing.T) {
	buf, _ := buildArchive(t, testFile{name: "a.txt", method: codec.MethodStore, data: []byte("hello")})
	cdOffset := 30 + len("a.txt") + len("hello")

	// cutting anywhere inside the first local file record must fail; cutting at 0 or at the end of the record is a
	// clean record boundary.
	for n := 1; n < cdOffset; n++ {
		t.Run(fmt.Sprintf("cut at %d", n), func(t *testing.T) {
			r, err := Parse(buf[:n], quiet)
			assert.ErrorIsf(t, err, ErrTruncatedInput, "Parse(buf[:%d]) should have failed", n)
			assert.Nil(t, r)
		})
	}

	// cutting inside the central directory record also fails.
	r, err := Parse(buf[:cdOffset+20], quiet)
	assert.ErrorIs(t, err, ErrTruncatedInput)
	assert.Nil(t, r)

	var te *cursor.TruncatedError
	assert.True(t, errors.As(err, &te))

	r, err = Parse(buf[:cdOffset], quiet)
	assert.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a.txt": []byte("hello")}, contents(r))

	r, err = Parse(nil, quiet)
	assert.NoError(t, err)
	assert.Empty(t, r.Files)
}

func TestParse_CompressedSizeTooLarge(t *testing.T) {
	buf, _ := buildArchive(t,
		testFile{name: "a.txt", method: codec.MethodStore, data: []byte("hi")},
		testFile{name: "b.txt", method: codec.MethodStore, data: []byte("there")},
	)

	// the second local file header's compressed size is at offset 18 from its signature.
	second := 30 + len("a.txt") + len("hi")
	buf[second+18] = 0xff
	buf[second+19] = 0xff

	r, err := Parse(buf, quiet)
	assert.ErrorIs(t, err, ErrTruncatedInput)
	assert.Nil(t, r)
}

func TestSkipCentralDirectory(t *testing.T) {
	// a central directory record with filename-length=10, extra-field-length=0, file-comment-length=0.
	buf, offsets := buildArchive(t, testFile{name: "0123456789", method: codec.MethodStore, data: []byte("x")})

	c := cursor.New(buf[offsets[1]:])
	sig, err := c.Uint32()
	assert.NoError(t, err)
	assert.Equal(t, uint32(cdfhSig), sig)

	assert.NoError(t, skipCentralDirectory(c))
	assert.Equal(t, 4+24+2+2+2+12+10, c.Offset())

	// the end of central directory record comes right after.
	sig, err = c.Uint32()
	assert.NoError(t, err)
	assert.Equal(t, uint32(0x06054b50), sig)
}

func TestParse_UnsupportedMethod(t *testing.T) {
	var logs bytes.Buffer

	buf, _ := buildArchive(t,
		testFile{name: "weird.bin", method: 99, raw: []byte("still compressed")},
		testFile{name: "after.txt", method: codec.MethodStore, data: []byte("parsed")},
	)

	r, err := Parse(buf, func(opts *Options) {
		opts.Logger = log.New(&logs, "", 0)
	})
	assert.NoError(t, err)

	e := r.Files["weird.bin"]
	if assert.NotNil(t, e) {
		assert.Equal(t, []byte("still compressed"), e.Data)
		assert.Equal(t, StatusUnsupported, e.Status)
		assert.Equal(t, uint16(99), e.Method)
		assert.False(t, e.OK())
		assert.ErrorIs(t, e.Err, ErrUnsupportedMethod)

		var ue *UnsupportedMethodError
		assert.True(t, errors.As(e.Err, &ue))
		assert.Equal(t, "weird.bin", ue.Name)
	}

	assert.Equal(t, []byte("parsed"), r.Files["after.txt"].Data)
	assert.ErrorIs(t, r.Err(), ErrUnsupportedMethod)
	assert.Contains(t, logs.String(), `"weird.bin": unsupported compression method 99`)
}

func TestParse_DecompressionFailure(t *testing.T) {
	garbage := []byte{0xff, 0xff, 0xff, 0xff}

	buf, _ := buildArchive(t,
		testFile{name: "broken", method: codec.MethodDeflate, raw: garbage},
		testFile{name: "fine", method: codec.MethodDeflate, data: []byte("fine")},
	)

	r, err := Parse(buf, quiet)
	assert.NoError(t, err)

	e := r.Files["broken"]
	assert.Equal(t, StatusFailed, e.Status)
	assert.Equal(t, garbage, e.Data)

	var de *DecompressionError
	assert.True(t, errors.As(e.Err, &de))
	assert.Equal(t, codec.MethodDeflate, de.Method)

	assert.Equal(t, []byte("fine"), r.Files["fine"].Data)
	assert.True(t, errors.As(r.Err(), &de))
}

func TestParse_DuplicateNames(t *testing.T) {
	buf, _ := buildArchive(t,
		testFile{name: "a.txt", method: codec.MethodStore, data: []byte("first")},
		testFile{name: "b.txt", method: codec.MethodStore, data: []byte("b")},
		testFile{name: "a.txt", method: codec.MethodDeflate, data: []byte("second")},
	)

	r, err := Parse(buf, quiet)
	assert.NoError(t, err)
	assert.Equal(t, map[string][]byte{
		"a.txt": []byte("second"),
		"b.txt": []byte("b"),
	}, contents(r))
	assert.Equal(t, []string{"a.txt"}, r.Overwritten)
}

func TestParse_Latin1Names(t *testing.T) {
	buf, _ := buildArchive(t, testFile{name: "caf\xe9.txt", method: codec.MethodStore, data: []byte("x")})

	r, err := Parse(buf, quiet)
	assert.NoError(t, err)
	assert.Contains(t, r.Files, "café.txt")
}

func TestParse_Decompressors(t *testing.T) {
	data := bytes.Repeat([]byte("zip it "), 50)
	buf, _ := buildArchive(t,
		testFile{name: "a.zst", method: codec.MethodZstd, data: data},
		testFile{name: "b.xz", method: codec.MethodXz, data: data},
	)

	// not registered by default.
	r, err := Parse(buf, quiet)
	assert.NoError(t, err)
	assert.Equal(t, StatusUnsupported, r.Files["a.zst"].Status)
	assert.Equal(t, StatusUnsupported, r.Files["b.xz"].Status)

	r, err = Parse(buf, quiet, func(opts *Options) {
		opts.Decompressors[codec.MethodZstd] = codec.Zstd{}
		opts.Decompressors[codec.MethodXz] = codec.Xz{}
	})
	assert.NoError(t, err)
	assert.NoError(t, r.Err())
	assert.Equal(t, data, r.Files["a.zst"].Data)
	assert.Equal(t, StatusDecompressed, r.Files["a.zst"].Status)
	assert.Equal(t, data, r.Files["b.xz"].Data)

	// removing DEFLATE makes method 8 unsupported.
	buf, _ = buildArchive(t, testFile{name: "c", method: codec.MethodDeflate, data: data})
	r, err = Parse(buf, quiet, func(opts *Options) {
		opts.Decompressors = nil
	})
	assert.NoError(t, err)
	assert.Equal(t, StatusUnsupported, r.Files["c"].Status)
}

func TestParse_Concurrency(t *testing.T) {
	var files []testFile
	for i := range 32 {
		method := codec.MethodStore
		if i%2 == 0 {
			method = codec.MethodDeflate
		}
		files = append(files, testFile{
			name:   fmt.Sprintf("file-%02d", i%24),
			method: method,
			data:   bytes.Repeat([]byte{byte(i)}, 100+i),
		})
	}

	buf, _ := buildArchive(t, files...)

	expected, err := Parse(buf, quiet)
	assert.NoError(t, err)
	assert.Len(t, expected.Files, 24)

	actual, err := Parse(buf, quiet, func(opts *Options) {
		opts.Concurrency = 8
	})
	assert.NoError(t, err)
	assert.Equal(t, expected, actual)
}

func TestParse_ZipWriter(t *testing.T) {
	// archive/zip writes sizes into a data descriptor after each file's data; DEFLATE entries can still be
	// delimited by the stream itself.
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range map[string]string{"a.txt": "hi", "b.json": `{"x":1}`, "empty": ""} {
		w, err := zw.Create(name)
		assert.NoError(t, err)
		_, err = io.WriteString(w, content)
		assert.NoError(t, err)
	}

	// CreateRaw without the data descriptor flag writes the sizes into the local file header.
	w, err := zw.CreateRaw(&zip.FileHeader{
		Name:               "raw.txt",
		Method:             zip.Store,
		CompressedSize64:   3,
		UncompressedSize64: 3,
	})
	assert.NoError(t, err)
	_, err = io.WriteString(w, "raw")
	assert.NoError(t, err)
	assert.NoError(t, zw.Close())

	r, err := Parse(buf.Bytes(), quiet)
	assert.NoErrorf(t, err, "Parse(...) error = %v", err)
	assert.Equal(t, map[string][]byte{
		"a.txt":   []byte("hi"),
		"b.json":  []byte(`{"x":1}`),
		"empty":   {},
		"raw.txt": []byte("raw"),
	}, contents(r))
	assert.Equal(t, uint32(2), r.Files["a.txt"].UncompressedSize)

	// stored entries with a data descriptor cannot be delimited.
	buf.Reset()
	zw = zip.NewWriter(&buf)
	w, err = zw.CreateHeader(&zip.FileHeader{Name: "stored.txt", Method: zip.Store})
	assert.NoError(t, err)
	_, err = io.WriteString(w, "stored")
	assert.NoError(t, err)
	assert.NoError(t, zw.Close())

	_, err = Parse(buf.Bytes(), quiet)
	assert.ErrorIs(t, err, ErrDataDescriptor)
}

func TestRecords(t *testing.T) {
	buf, offsets := buildArchive(t,
		testFile{name: "a.txt", method: codec.MethodStore, data: []byte("hi")},
		testFile{name: "b.bin", method: 99, raw: []byte{9, 9}},
		testFile{name: "c.txt", method: codec.MethodStore, data: []byte("c")},
	)

	var names []string
	for r, err := range Records(buf) {
		assert.NoError(t, err)
		names = append(names, r.Name)

		switch r.Name {
		case "a.txt":
			assert.Equal(t, offsets[0], r.Offset)
			assert.Equal(t, []byte("hi"), r.Data)
		case "b.bin":
			assert.Equal(t, uint16(99), r.Method)
			assert.Equal(t, uint32(2), r.CompressedSize)
		}

		// stopping early is honoured.
		if r.Name == "b.bin" {
			break
		}
	}

	assert.Equal(t, []string{"a.txt", "b.bin"}, names)
}

func TestParse_DataDescriptor(t *testing.T) {
	buf, _ := buildArchive(t,
		testFile{name: "a.txt", method: codec.MethodStore, data: []byte("hi"), descriptor: true},
		testFile{name: "b.txt", method: codec.MethodStore, data: []byte("hello"), descriptor: true},
		testFile{name: "c.txt", method: codec.MethodDeflate, data: []byte("deflated"), descriptor: true},
		testFile{name: "d.txt", method: codec.MethodDeflate, data: []byte("streamed"), streamed: true},
		testFile{name: "e.txt", method: codec.MethodStore, data: []byte("last")},
	)

	r, err := Parse(buf, quiet)
	assert.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt", "d.txt", "e.txt"}, r.Names())
	assert.Equal(t, []byte("hi"), r.Files["a.txt"].Data)
	assert.Equal(t, []byte("hello"), r.Files["b.txt"].Data)
	assert.Equal(t, []byte("deflated"), r.Files["c.txt"].Data)
	assert.Equal(t, []byte("streamed"), r.Files["d.txt"].Data)
	assert.Equal(t, uint32(8), r.Files["d.txt"].UncompressedSize)
	assert.Equal(t, []byte("last"), r.Files["e.txt"].Data)

	// the data descriptor itself must be complete.
	_, err = Parse(buf[:r.Files["b.txt"].Offset-4], quiet)
	assert.ErrorIs(t, err, ErrTruncatedInput)
}

func TestParse_StreamedDataMalformed(t *testing.T) {
	buf, _ := buildArchive(t,
		testFile{name: "a.txt", method: codec.MethodStore, data: []byte("hi")},
		testFile{name: "b.bin", method: codec.MethodDeflate, raw: []byte{0xff, 0xff, 0xff, 0xff}, streamed: true},
	)

	r, err := Parse(buf, quiet)
	assert.Nil(t, r)
	assert.ErrorIs(t, err, ErrStreamedData)
	assert.NotErrorIs(t, err, ErrTruncatedInput)
	assert.ErrorContains(t, err, `"b.bin"`)
}
