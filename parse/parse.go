// Package parse extracts the files of a ZIP archive held entirely in memory.
//
// The archive is read with a single forward pass over its local file headers; the end of central directory record
// is never consulted. See Parse.
package parse

import (
	"bytes"
	"errors"
	"log"
	"slices"

	"github.com/nguyengg/ziploader/codec"
	"golang.org/x/sync/errgroup"
)

// Status tells how an Entry's Data was produced.
type Status int

const (
	// StatusStored means the entry was not compressed (method 0) and Data is the original content.
	StatusStored Status = iota
	// StatusDeflated means Data was inflated from raw DEFLATE (method 8).
	StatusDeflated
	// StatusDecompressed means Data was produced by a Decompressor registered for a method other than 0 or 8.
	StatusDecompressed
	// StatusUnsupported means no Decompressor exists for the method; Data holds the compressed bytes.
	StatusUnsupported
	// StatusFailed means the Decompressor rejected the compressed bytes; Data holds the compressed bytes.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusStored:
		return "stored"
	case StatusDeflated:
		return "deflated"
	case StatusDecompressed:
		return "decompressed"
	case StatusUnsupported:
		return "unsupported"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Entry is a file extracted from the archive.
type Entry struct {
	// Name is the file name.
	Name string
	// Data is the decompressed content, or the compressed content if Status is StatusUnsupported or StatusFailed.
	//
	// Data never aliases the archive buffer.
	Data []byte
	// Method is the compression method code from the local file header.
	Method uint16
	// Status tells how Data was produced.
	Status Status
	// Err is an *UnsupportedMethodError or a *DecompressionError if Status is StatusUnsupported or StatusFailed.
	Err error
	// Offset is the position of the entry's local file header in the archive.
	Offset int
	// CompressedSize is the size of the compressed data.
	CompressedSize uint32
	// UncompressedSize is the size declared by the archive. It is not verified against Data.
	UncompressedSize uint32
}

// OK returns true if Data holds the original content of the file.
func (e *Entry) OK() bool {
	return e.Err == nil
}

// Result is the set of files extracted by Parse.
type Result struct {
	// Files maps file names to their entries.
	//
	// If the archive has more than one local file header with the same name, the last one wins.
	Files map[string]*Entry

	// Overwritten lists, in archive order, the names whose earlier entries were replaced by a later one.
	Overwritten []string
}

// Names returns the sorted file names.
func (r *Result) Names() []string {
	names := make([]string, 0, len(r.Files))
	for name := range r.Files {
		names = append(names, name)
	}

	slices.Sort(names)
	return names
}

// Err joins the errors of every entry whose content could not be decompressed, in name order.
//
// Returns nil if every entry is OK.
func (r *Result) Err() error {
	var errs []error
	for _, name := range r.Names() {
		if err := r.Files[name].Err; err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Options customises Parse.
type Options struct {
	// Decompressors maps compression method codes to their Decompressor.
	//
	// By default, codec.DefaultDecompressors is used which only has raw DEFLATE. Method 0 (stored) never needs one.
	Decompressors map[uint16]codec.Decompressor

	// Logger receives a diagnostic line for every entry that is not OK.
	//
	// By default, log.Default is used.
	Logger *log.Logger

	// Concurrency is the number of goroutines used to decompress entries.
	//
	// Default to 1.
	Concurrency int
}

// Parse extracts every file from the ZIP archive in buf.
//
// buf is never modified. Entries with an unknown compression method or malformed compressed data do not fail the
// parse; they are returned with their compressed bytes and a non-nil Entry.Err (see Result.Err). A record that runs
// past the end of buf fails the whole parse with an error wrapping ErrTruncatedInput, and no Result is returned.
//
// Entries with general purpose bit 3 set and no compressed size in their local file header are delimited by inflating
// their data. If that data is malformed, the parse fails with an error wrapping ErrStreamedData; if the entry is not
// DEFLATE, the parse fails with ErrDataDescriptor.
func Parse(buf []byte, optFns ...func(*Options)) (*Result, error) {
	opts := &Options{
		Decompressors: codec.DefaultDecompressors(),
		Logger:        log.Default(),
		Concurrency:   1,
	}
	for _, fn := range optFns {
		fn(opts)
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	var records []Record
	for r, err := range Records(buf) {
		if err != nil {
			return nil, err
		}

		records = append(records, r)
	}

	entries := make([]*Entry, len(records))
	if opts.Concurrency <= 1 {
		for i, r := range records {
			entries[i] = opts.decode(r)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(opts.Concurrency)
		for i, r := range records {
			g.Go(func() error {
				entries[i] = opts.decode(r)
				return nil
			})
		}
		_ = g.Wait()
	}

	result := &Result{Files: make(map[string]*Entry, len(entries))}
	for _, e := range entries {
		if _, ok := result.Files[e.Name]; ok {
			result.Overwritten = append(result.Overwritten, e.Name)
		}
		result.Files[e.Name] = e

		if e.Err != nil {
			opts.Logger.Printf("%v", e.Err)
		}
	}

	return result, nil
}

// decode resolves the compression method of the record once and produces its Entry.
func (opts *Options) decode(r Record) *Entry {
	e := &Entry{
		Name:             r.Name,
		Method:           r.Method,
		Offset:           r.Offset,
		CompressedSize:   r.CompressedSize,
		UncompressedSize: r.UncompressedSize,
	}

	if r.Method == codec.MethodStore {
		e.Status, e.Data = StatusStored, bytes.Clone(r.Data)
		return e
	}

	d, ok := opts.Decompressors[r.Method]
	if !ok || d == nil {
		e.Status, e.Data = StatusUnsupported, bytes.Clone(r.Data)
		e.Err = &UnsupportedMethodError{Name: r.Name, Method: r.Method}
		return e
	}

	data, err := d.Decompress(r.Data)
	if err != nil {
		e.Status, e.Data = StatusFailed, bytes.Clone(r.Data)
		e.Err = &DecompressionError{Name: r.Name, Method: r.Method, Err: err}
		return e
	}

	e.Data = data
	if r.Method == codec.MethodDeflate {
		e.Status = StatusDeflated
	} else {
		e.Status = StatusDecompressed
	}

	return e
}
