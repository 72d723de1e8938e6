package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/nguyengg/ziploader/internal"
	"github.com/nguyengg/ziploader/loader"
)

type Extract struct {
	LoadOptions
	Dir        string `short:"d" long:"dir" description:"the directory to extract into" default:"."`
	UnwrapRoot bool   `long:"unwrap-root" description:"if every file shares the same top-level directory, extract its contents instead"`
	Args       struct {
		Archives []string `positional-arg-name:"archive" description:"local path, http(s):// URL, or s3://bucket/key of the archives to extract" required:"yes"`
	} `positional-args:"yes"`
}

func (c *Extract) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	success := 0
	n := len(c.Args.Archives)
	for i, name := range c.Args.Archives {
		logger := internal.NewLogger(i, n, name)
		logger.Printf("start extracting")

		err := c.extract(internal.WithLogger(ctx, logger), name)
		if err == nil {
			logger.Printf("done extracting")
			success++
			continue
		}

		if errors.Is(err, context.Canceled) {
			break
		}

		logger.Printf("extract error: %v", err)
	}

	log.Printf("successfully extracted %d/%d archives", success, n)
	return nil
}

func (c *Extract) extract(ctx context.Context, name string) error {
	l, err := c.load(ctx, name)
	if err != nil {
		return err
	}

	return writeFiles(ctx, l, c.Dir, c.UnwrapRoot)
}

// writeFiles writes every OK file of the loaded archive under dir.
//
// Entries that are not OK or whose names would escape dir are logged and skipped. Each file is dropped from l once
// written.
func writeFiles(ctx context.Context, l *loader.Loader, dir string, unwrapRoot bool) error {
	logger := internal.Logger(ctx)

	names := l.Files().Names()
	var root internal.RootDir
	if unwrapRoot {
		root = internal.FindRootDir(names)
	}

	written := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}

		e, err := l.File(name)
		if err != nil {
			return err
		}

		if !e.OK() {
			logger.Printf(`skip "%s": %v`, name, e.Err)
			continue
		}

		rel := root.Trim(strings.ReplaceAll(name, "\\", "/"))
		if rel == "" {
			continue
		}

		path := filepath.FromSlash(strings.TrimSuffix(rel, "/"))
		if !filepath.IsLocal(path) {
			logger.Printf(`skip "%s": unsafe path`, name)
			continue
		}
		path = filepath.Join(dir, path)

		if strings.HasSuffix(rel, "/") {
			if err = os.MkdirAll(path, 0755); err != nil {
				return fmt.Errorf(`create directory "%s" error: %w`, path, err)
			}
			continue
		}

		if err = os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf(`create directory "%s" error: %w`, filepath.Dir(path), err)
		}

		if err = os.WriteFile(path, e.Data, 0644); err != nil {
			return fmt.Errorf(`write file "%s" error: %w`, path, err)
		}

		_ = l.Clear(name)
		written++
	}

	logger.Printf("wrote %d/%d files", written, len(names))
	return nil
}
