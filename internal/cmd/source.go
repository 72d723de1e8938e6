package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"strings"

	"github.com/nguyengg/ziploader/codec"
	"github.com/nguyengg/ziploader/internal"
	"github.com/nguyengg/ziploader/internal/config"
	"github.com/nguyengg/ziploader/loader"
	"github.com/nguyengg/ziploader/parse"
	"golang.org/x/term"
)

// LoadOptions are shared by all commands that read archives.
type LoadOptions struct {
	MaxConcurrency int      `short:"P" long:"max-concurrency" description:"number of goroutines decompressing entries"`
	Methods        []string `short:"m" long:"method" description:"enable an extra compression method (zstd, xz); can be repeated"`
	Quiet          bool     `short:"q" long:"quiet" description:"do not report download progress"`
}

// newSource returns the loader.Source for a local path, an http(s):// URL, or an s3://bucket/key URI.
func newSource(ctx context.Context, name string) (loader.Source, error) {
	switch {
	case strings.HasPrefix(name, "http://"), strings.HasPrefix(name, "https://"):
		return loader.HTTPSource(name), nil

	case strings.HasPrefix(name, "s3://"):
		bucket, key, ok := strings.Cut(strings.TrimPrefix(name, "s3://"), "/")
		if !ok || bucket == "" || key == "" {
			return nil, fmt.Errorf(`invalid S3 URI "%s"`, name)
		}

		client, err := config.NewS3Client(ctx)
		if err != nil {
			return nil, fmt.Errorf("create S3 client error: %w", err)
		}

		cfg := config.ForS3()
		return loader.S3Source(client, bucket, key, func(opts *loader.S3Options) {
			if cfg.Concurrency > 0 {
				opts.Concurrency = cfg.Concurrency
			}
			opts.ExpectedBucketOwner = cfg.ExpectedBucketOwner
		}), nil

	default:
		return loader.FileSource(name), nil
	}
}

// decompressors returns codec.DefaultDecompressors plus every named method.
func decompressors(methods ...string) (map[uint16]codec.Decompressor, error) {
	m := codec.DefaultDecompressors()
	for _, name := range methods {
		code, d, ok := codec.FromName(name)
		if !ok {
			return nil, fmt.Errorf(`unknown compression method "%s"`, name)
		}

		m[code] = d
	}

	return m, nil
}

// load retrieves and parses the named archive.
//
// Settings from the [parse] and [loader] sections of the config file apply unless overridden by flags.
func (o *LoadOptions) load(ctx context.Context, name string) (*loader.Loader, error) {
	logger := internal.Logger(ctx)

	pcfg := config.ForParse()
	dm, err := decompressors(append(pcfg.Methods, o.Methods...)...)
	if err != nil {
		return nil, err
	}

	concurrency := pcfg.Concurrency
	if o.MaxConcurrency > 0 {
		concurrency = o.MaxConcurrency
	}

	src, err := newSource(ctx, name)
	if err != nil {
		return nil, err
	}

	l := loader.New(src, func(opts *loader.Options) {
		opts.ParseOptions = append(opts.ParseOptions, func(opts *parse.Options) {
			opts.Decompressors = dm
			opts.Logger = logger
			if concurrency > 0 {
				opts.Concurrency = concurrency
			}
		})
		opts.ProgressInterval = config.ForLoader().ProgressInterval
	})

	if !o.Quiet {
		listener := progressListener(logger, name)
		for _, t := range []loader.EventType{loader.EventProgress, loader.EventLoad, loader.EventError} {
			l.On(t, listener)
		}
	}

	if err = l.Load(ctx); err != nil {
		return nil, fmt.Errorf("load archive error: %w", err)
	}

	return l, nil
}

// progressListener draws a progress bar if stderr is a terminal, or logs progress lines otherwise.
func progressListener(logger *log.Logger, name string) loader.Listener {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return internal.ProgressBarListener(internal.TruncateRightWithSuffix(path.Base(name), 30, "..."))
	}

	return loader.LogProgress(logger)
}
