// Package loader retrieves ZIP archives, parses them, and keeps the extracted files around for export.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/nguyengg/ziploader/export"
	"github.com/nguyengg/ziploader/parse"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

var (
	// ErrNotLoaded is returned by methods that need the extracted files before Load has succeeded.
	ErrNotLoaded = errors.New("archive not loaded")

	// ErrFileNotFound is returned if the archive has no file with the given name.
	ErrFileNotFound = errors.New("file not found in archive")
)

// Options customises New.
type Options struct {
	// ParseOptions are passed to parse.Parse.
	ParseOptions []func(*parse.Options)

	// BlobStore creates the URLs returned by Loader.ExtractAsBlobURL.
	//
	// By default, export.DefaultBlobStore is used.
	BlobStore *export.BlobStore

	// ProgressInterval is the minimum interval between two EventProgress dispatches.
	//
	// The first progress event and the one reporting completion are always dispatched. Default to 0 which
	// dispatches every progress update.
	ProgressInterval time.Duration
}

// Loader retrieves an archive from its Source, parses it, and caches the result.
//
// Loader is safe for concurrent use. Concurrent calls to Load share a single retrieval.
type Loader struct {
	src   Source
	opts  Options
	group singleflight.Group

	// mu guards everything below.
	mu        sync.Mutex
	listeners map[EventType][]registration
	nextID    ListenerID
	result    *parse.Result
	urls      map[string]string
}

// New returns a Loader for the given Source. Nothing is retrieved until Load is called.
func New(src Source, optFns ...func(*Options)) *Loader {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.BlobStore == nil {
		opts.BlobStore = export.DefaultBlobStore
	}

	return &Loader{
		src:       src,
		opts:      opts,
		listeners: make(map[EventType][]registration),
		urls:      make(map[string]string),
	}
}

// Unzip loads and parses the archive read from r.
func Unzip(ctx context.Context, r io.Reader, optFns ...func(*Options)) (*Loader, error) {
	l := New(ReaderSource(r, -1), optFns...)
	if err := l.Load(ctx); err != nil {
		return nil, err
	}

	return l, nil
}

// Load retrieves and parses the archive.
//
// EventProgress is dispatched as bytes arrive, then EventLoad once the files are available from Files. If either
// retrieval or parsing fails, EventError is dispatched and the error returned. If ctx is cancelled, ctx.Err() is
// returned, no result is kept, and no further event is dispatched.
//
// A call made while another is in progress waits for and returns the result of that call instead of starting a new
// retrieval. The joining call shares the first caller's ctx: if that ctx is cancelled, every joined call returns
// context.Canceled even if its own ctx is still live. Calling Load after a successful Load retrieves the archive again,
// replaces the cached files, and revokes every blob URL created from the previous files.
func (l *Loader) Load(ctx context.Context) error {
	_, err, _ := l.group.Do("load", func() (any, error) {
		return nil, l.load(ctx)
	})
	return err
}

func (l *Loader) load(ctx context.Context) error {
	start := time.Now()

	var (
		sometimes = &rate.Sometimes{First: 1, Interval: l.opts.ProgressInterval}
		// mu serialises progress events since sources may report from several goroutines.
		mu sync.Mutex
	)
	progress := func(loaded, total int64) {
		mu.Lock()
		defer mu.Unlock()

		if ctx.Err() != nil {
			return
		}

		e := Event{Type: EventProgress, Loaded: loaded, Total: total, Elapsed: time.Since(start)}
		if l.opts.ProgressInterval <= 0 || loaded == total {
			l.dispatch(e)
			return
		}

		sometimes.Do(func() {
			l.dispatch(e)
		})
	}

	buf, err := l.src.Fetch(ctx, progress)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		err = fmt.Errorf("fetch archive error: %w", err)
		l.dispatch(Event{Type: EventError, Err: err, Elapsed: time.Since(start)})
		return err
	}

	result, err := parse.Parse(buf, l.opts.ParseOptions...)
	if err != nil {
		err = fmt.Errorf("parse archive error: %w", err)
		l.dispatch(Event{Type: EventError, Err: err, Elapsed: time.Since(start)})
		return err
	}

	if err = ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	l.result = result
	l.revokeLocked()
	l.mu.Unlock()

	l.dispatch(Event{Type: EventLoad, Elapsed: time.Since(start)})
	return nil
}

// Files returns the result of the last successful Load, or nil if there is none.
//
// The returned Result must not be modified. Clear never mutates a Result that has been handed out; it installs a
// new one instead so earlier return values stay valid.
func (l *Loader) Files() *parse.Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.result
}

// File returns the named entry.
func (l *Loader) File(name string) (*parse.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.fileLocked(name)
}

func (l *Loader) fileLocked(name string) (*parse.Entry, error) {
	if l.result == nil {
		return nil, ErrNotLoaded
	}

	e, ok := l.result.Files[name]
	if !ok {
		return nil, fmt.Errorf(`"%s": %w`, name, ErrFileNotFound)
	}

	return e, nil
}

// ExtractAsText returns the named file decoded as UTF-8 text.
func (l *Loader) ExtractAsText(name string) (string, error) {
	e, err := l.File(name)
	if err != nil {
		return "", err
	}

	return export.Text(e.Data)
}

// ExtractAsJSON unmarshals the named file into v.
func (l *Loader) ExtractAsJSON(name string, v any) error {
	e, err := l.File(name)
	if err != nil {
		return err
	}

	return export.JSON(e.Data, v)
}

// ExtractAsBlobURL returns a blob URL serving the named file with the given content type.
//
// The URL is created once per file and reused until Clear revokes it. If contentType is empty, it is guessed from the
// file name with export.ContentType.
func (l *Loader) ExtractAsBlobURL(name, contentType string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if url, ok := l.urls[name]; ok {
		return url, nil
	}

	e, err := l.fileLocked(name)
	if err != nil {
		return "", err
	}

	if contentType == "" {
		contentType = export.ContentType(name)
	}

	url := l.opts.BlobStore.Create(e.Data, contentType)
	l.urls[name] = url
	return url, nil
}

// Clear drops the named file and revokes its blob URL if one was created.
//
// If name is empty, every file is dropped, every blob URL revoked, and Files returns nil until the next Load.
func (l *Loader) Clear(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if name == "" {
		l.revokeLocked()
		l.result = nil
		return nil
	}

	if _, err := l.fileLocked(name); err != nil {
		return err
	}

	if url, ok := l.urls[name]; ok {
		l.opts.BlobStore.Revoke(url)
		delete(l.urls, name)
	}
	files := maps.Clone(l.result.Files)
	delete(files, name)
	l.result = &parse.Result{Files: files, Overwritten: l.result.Overwritten}
	return nil
}

// revokeLocked revokes every blob URL created by ExtractAsBlobURL.
func (l *Loader) revokeLocked() {
	for _, url := range l.urls {
		l.opts.BlobStore.Revoke(url)
	}
	clear(l.urls)
}

// snapshot returns a copy of the listeners registered for the given type.
func (l *Loader) snapshot(t EventType) []registration {
	l.mu.Lock()
	defer l.mu.Unlock()

	return slices.Clone(l.listeners[t])
}
