// Package export converts the raw bytes of an extracted file into text, JSON values, or short-lived blob URLs.
package export

import (
	"encoding/json"
	"fmt"

	"golang.org/x/text/encoding/unicode"
)

// Text decodes data as UTF-8.
//
// A leading byte order mark is dropped and every invalid byte sequence is replaced with U+FFFD.
func Text(data []byte) (string, error) {
	b, err := unicode.UTF8BOM.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode UTF-8 error: %w", err)
	}

	return string(b), nil
}

// JSON decodes data with Text and then unmarshals the text into v.
func JSON(data []byte, v any) error {
	text, err := Text(data)
	if err != nil {
		return err
	}

	if err = json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("unmarshal JSON error: %w", err)
	}

	return nil
}
