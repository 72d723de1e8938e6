package parse

import (
	"errors"
	"fmt"

	"github.com/nguyengg/ziploader/cursor"
)

var (
	// ErrTruncatedInput is returned by Parse if a record claims more bytes than the buffer has.
	//
	// It is the same error as cursor.ErrTruncated so errors.Is works with either.
	ErrTruncatedInput = cursor.ErrTruncated

	// ErrUnsupportedMethod is wrapped by every UnsupportedMethodError.
	ErrUnsupportedMethod = errors.New("unsupported compression method")

	// ErrDataDescriptor is returned by Parse if a local file header defers its sizes to a trailing data descriptor
	// and the size of the compressed data cannot be determined from the data itself.
	//
	// Only DEFLATE payloads are self-delimiting; stored payloads with a data descriptor end the parse with this error.
	ErrDataDescriptor = errors.New("local file header has no compressed size")

	// ErrStreamedData is returned by Parse if a DEFLATE entry without a compressed size in its local file header has
	// malformed data. The end of such an entry can only be found by inflating it, so nothing after it can be read.
	ErrStreamedData = errors.New("cannot find end of deflate stream")
)

// UnsupportedMethodError is attached to an Entry whose compression method has no Decompressor.
//
// The Entry's Data holds the compressed bytes as-is.
type UnsupportedMethodError struct {
	Name   string
	Method uint16
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf(`"%s": unsupported compression method %d`, e.Name, e.Method)
}

func (e *UnsupportedMethodError) Unwrap() error {
	return ErrUnsupportedMethod
}

// DecompressionError is attached to an Entry whose Decompressor rejected the compressed bytes.
//
// The Entry's Data holds the compressed bytes as-is.
type DecompressionError struct {
	Name   string
	Method uint16
	Err    error
}

func (e *DecompressionError) Error() string {
	return fmt.Sprintf(`"%s": decompress (method %d) error: %v`, e.Name, e.Method, e.Err)
}

func (e *DecompressionError) Unwrap() error {
	return e.Err
}
