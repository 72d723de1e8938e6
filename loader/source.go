package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ProgressFunc is called by a Source as bytes arrive.
//
// total is -1 if the size is not known upfront. ProgressFunc may be called from multiple goroutines.
type ProgressFunc func(loaded, total int64)

// Source retrieves the complete archive.
type Source interface {
	// Fetch returns the entire archive.
	//
	// progress must not be nil. Fetch should return promptly with ctx.Err() once ctx is done.
	Fetch(ctx context.Context, progress ProgressFunc) ([]byte, error)
}

// SourceFunc adapts a function into a Source.
type SourceFunc func(ctx context.Context, progress ProgressFunc) ([]byte, error)

func (f SourceFunc) Fetch(ctx context.Context, progress ProgressFunc) ([]byte, error) {
	return f(ctx, progress)
}

// progressWriter counts bytes written and reports them.
type progressWriter struct {
	n        atomic.Int64
	total    int64
	progress ProgressFunc
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.progress(w.n.Add(int64(len(p))), w.total)
	return len(p), nil
}

// ctxReader fails reads once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}

	return r.r.Read(p)
}

// readAll reads src to the end while reporting progress.
func readAll(ctx context.Context, src io.Reader, size int64, progress ProgressFunc) ([]byte, error) {
	var buf bytes.Buffer
	if size > 0 {
		buf.Grow(int(size))
	}

	pw := &progressWriter{total: size, progress: progress}
	if _, err := io.Copy(io.MultiWriter(&buf, pw), &ctxReader{ctx: ctx, r: src}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// FileSource reads the archive from a local file.
func FileSource(name string) Source {
	return SourceFunc(func(ctx context.Context, progress ProgressFunc) ([]byte, error) {
		f, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("open file error: %w", err)
		}
		defer f.Close()

		var size int64 = -1
		if fi, err := f.Stat(); err == nil {
			size = fi.Size()
		}

		return readAll(ctx, f, size, progress)
	})
}

// ReaderSource reads the archive from r until io.EOF.
//
// size is only used for progress reporting; pass -1 if unknown.
func ReaderSource(r io.Reader, size int64) Source {
	return SourceFunc(func(ctx context.Context, progress ProgressFunc) ([]byte, error) {
		return readAll(ctx, r, size, progress)
	})
}

// HTTPOption customises HTTPSource.
type HTTPOption func(*httpSource)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *httpSource) {
		s.client = client
	}
}

// WithHeader sets a single header on the request.
func WithHeader(key, value string) HTTPOption {
	return func(s *httpSource) {
		s.headers.Set(key, value)
	}
}

type httpSource struct {
	url     string
	client  *http.Client
	headers http.Header
}

// HTTPSource downloads the archive with a single GET request.
//
// Progress total comes from the Content-Length response header. Any status other than 200 is an error.
func HTTPSource(url string, opts ...HTTPOption) Source {
	s := &httpSource{
		url:     url,
		client:  http.DefaultClient,
		headers: make(http.Header),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = http.DefaultClient
	}

	return s
}

func (s *httpSource) Fetch(ctx context.Context, progress ProgressFunc) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request error: %w", err)
	}
	for k, v := range s.headers {
		req.Header[k] = v
	}

	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s error: %w", s.url, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s error: unexpected status %s", s.url, res.Status)
	}

	return readAll(ctx, res.Body, res.ContentLength, progress)
}

// S3Client abstracts the S3 APIs needed by S3Source.
type S3Client interface {
	manager.DownloadAPIClient
	HeadObject(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Options customises S3Source.
type S3Options struct {
	// Concurrency is the number of parts downloaded in parallel.
	//
	// Default to manager.DefaultDownloadConcurrency.
	Concurrency int

	// ExpectedBucketOwner is passed to every HeadObject and GetObject call if not nil.
	ExpectedBucketOwner *string
}

type s3Source struct {
	client      S3Client
	bucket, key string
	opts        S3Options
}

// S3Source downloads the archive from S3 using ranged GetObject calls in parallel.
func S3Source(client S3Client, bucket, key string, optFns ...func(*S3Options)) Source {
	opts := S3Options{Concurrency: manager.DefaultDownloadConcurrency}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &s3Source{client: client, bucket: bucket, key: key, opts: opts}
}

func (s *s3Source) Fetch(ctx context.Context, progress ProgressFunc) ([]byte, error) {
	headObjectOutput, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket:              aws.String(s.bucket),
		Key:                 aws.String(s.key),
		ExpectedBucketOwner: s.opts.ExpectedBucketOwner,
	})
	if err != nil {
		return nil, fmt.Errorf("head object error: %w", err)
	}

	size := aws.ToInt64(headObjectOutput.ContentLength)
	w := &progressWriterAt{
		WriteAtBuffer: manager.NewWriteAtBuffer(make([]byte, 0, size)),
		pw:            progressWriter{total: size, progress: progress},
	}

	if _, err = manager.NewDownloader(s.client, func(d *manager.Downloader) {
		d.Concurrency = s.opts.Concurrency
	}).Download(ctx, w, &s3.GetObjectInput{
		Bucket:              aws.String(s.bucket),
		Key:                 aws.String(s.key),
		ExpectedBucketOwner: s.opts.ExpectedBucketOwner,
	}); err != nil {
		return nil, fmt.Errorf("download error: %w", err)
	}

	return w.Bytes(), nil
}

// progressWriterAt reports progress for every WriteAt to the embedded buffer.
type progressWriterAt struct {
	*manager.WriteAtBuffer
	pw progressWriter
}

func (w *progressWriterAt) WriteAt(p []byte, off int64) (int, error) {
	n, err := w.WriteAtBuffer.WriteAt(p, off)
	if n > 0 {
		_, _ = w.pw.Write(p[:n])
	}

	return n, err
}
