// Package cursor provides a forward-only reader of little-endian fixed-width fields over a byte slice.
package cursor

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrTruncated is returned if a read or skip would go past the end of the buffer.
	ErrTruncated = errors.New("truncated input")

	// ErrUnsupportedWidth is returned by [Cursor.ReadUint] if the width is not 1, 2, or 4.
	ErrUnsupportedWidth = errors.New("unsupported field width")
)

// TruncatedError describes the out-of-bounds access that caused ErrTruncated.
type TruncatedError struct {
	// Offset is the position of the cursor at the time of the access.
	Offset int
	// Want is the number of bytes the access needed.
	Want int
	// Len is the length of the underlying buffer.
	Len int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("truncated input: need %d bytes at offset %d, buffer has %d", e.Want, e.Offset, e.Len)
}

func (e *TruncatedError) Unwrap() error {
	return ErrTruncated
}

// Cursor reads fields sequentially from a fixed buffer.
//
// The zero value is a cursor over an empty buffer. Cursor never modifies the buffer. Cursor is not safe for
// concurrent use.
type Cursor struct {
	b   []byte
	off int
}

// New returns a Cursor positioned at the start of b.
func New(b []byte) *Cursor {
	return &Cursor{b: b}
}

// Offset returns the current position.
func (c *Cursor) Offset() int {
	return c.off
}

// Len returns the number of bytes remaining.
func (c *Cursor) Len() int {
	return len(c.b) - c.off
}

// check returns a *TruncatedError if n bytes are not available at the current position.
func (c *Cursor) check(n int) error {
	if n < 0 || n > len(c.b)-c.off {
		return &TruncatedError{Offset: c.off, Want: n, Len: len(c.b)}
	}

	return nil
}

// Skip advances the position by exactly n bytes.
//
// Unlike a plain offset increment, Skip fails with ErrTruncated if fewer than n bytes remain, in which case the
// position is left unchanged.
func (c *Cursor) Skip(n int) error {
	if err := c.check(n); err != nil {
		return err
	}

	c.off += n
	return nil
}

// Next returns the next n bytes and advances the position past them.
//
// The returned slice aliases the underlying buffer and must not be modified.
func (c *Cursor) Next(n int) ([]byte, error) {
	if err := c.check(n); err != nil {
		return nil, err
	}

	b := c.b[c.off : c.off+n : c.off+n]
	c.off += n
	return b, nil
}

// Peek returns the next n bytes without advancing the position.
//
// The returned slice aliases the underlying buffer and must not be modified.
func (c *Cursor) Peek(n int) ([]byte, error) {
	if err := c.check(n); err != nil {
		return nil, err
	}

	return c.b[c.off : c.off+n : c.off+n], nil
}

// ReadUint reads an unsigned little-endian integer that is width bytes wide.
//
// Only widths 1, 2, and 4 are accepted; any other width returns ErrUnsupportedWidth without moving the cursor.
func (c *Cursor) ReadUint(width int) (uint32, error) {
	switch width {
	case 1:
		v, err := c.Uint8()
		return uint32(v), err
	case 2:
		v, err := c.Uint16()
		return uint32(v), err
	case 4:
		return c.Uint32()
	default:
		return 0, fmt.Errorf("read %d bytes error: %w", width, ErrUnsupportedWidth)
	}
}

// Uint8 reads one byte.
func (c *Cursor) Uint8() (uint8, error) {
	b, err := c.Next(1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

// Uint16 reads a little-endian uint16.
func (c *Cursor) Uint16() (uint16, error) {
	b, err := c.Next(2)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint16(b), nil
}

// Uint32 reads a little-endian uint32.
func (c *Cursor) Uint32() (uint32, error) {
	b, err := c.Next(4)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(b), nil
}
