package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// Flate implements Decompressor and Compressor for raw (headerless) DEFLATE, ZIP method 8.
type Flate struct {
	// Level is the compression level used by Compress. Zero means flate.DefaultCompression.
	Level int
}

var _ Decompressor = Flate{}
var _ Compressor = Flate{}

func (c Flate) Decompress(src []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(src))
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("inflate error: %w", err)
	}

	return data, nil
}

func (c Flate) Compress(src []byte) ([]byte, error) {
	level := c.Level
	if level == 0 {
		level = flate.DefaultCompression
	}

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("create flate writer error: %w", err)
	}

	if _, err = w.Write(src); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("deflate error: %w", err)
	}

	if err = w.Close(); err != nil {
		return nil, fmt.Errorf("deflate error: %w", err)
	}

	return buf.Bytes(), nil
}
