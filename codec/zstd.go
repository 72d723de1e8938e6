package codec

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Zstd implements Decompressor and Compressor for zstd, ZIP method 93.
type Zstd struct{}

var _ Decompressor = Zstd{}
var _ Compressor = Zstd{}

func (c Zstd) Decompress(src []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder error: %w", err)
	}
	defer dec.Close()

	data, err := dec.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode error: %w", err)
	}

	return data, nil
}

func (c Zstd) Compress(src []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder error: %w", err)
	}

	data := enc.EncodeAll(src, nil)
	return data, enc.Close()
}
