package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
)

// Xz implements Decompressor and Compressor for xz, ZIP method 95.
type Xz struct{}

var _ Decompressor = Xz{}
var _ Compressor = Xz{}

func (c Xz) Decompress(src []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("create xz reader error: %w", err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("xz decode error: %w", err)
	}

	return data, nil
}

func (c Xz) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("create xz writer error: %w", err)
	}

	if _, err = w.Write(src); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("xz encode error: %w", err)
	}

	if err = w.Close(); err != nil {
		return nil, fmt.Errorf("xz encode error: %w", err)
	}

	return buf.Bytes(), nil
}
