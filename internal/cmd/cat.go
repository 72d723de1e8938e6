package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/nguyengg/ziploader/internal"
	"github.com/nguyengg/ziploader/loader"
)

type Cat struct {
	LoadOptions
	Text bool `long:"text" description:"decode the files as UTF-8 text, dropping the byte order mark if present"`
	Args struct {
		Archive string   `positional-arg-name:"archive" description:"local path, http(s):// URL, or s3://bucket/key of the archive" required:"yes"`
		Files   []string `positional-arg-name:"file" description:"the names of the files in the archive to print" required:"yes"`
	} `positional-args:"yes"`

	stdout io.Writer
}

func (c *Cat) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	if c.stdout == nil {
		c.stdout = os.Stdout
	}

	ctx = internal.WithLogger(ctx, internal.NewLogger(0, 1, c.Args.Archive))

	l, err := c.load(ctx, c.Args.Archive)
	if err != nil {
		return err
	}

	return c.print(l)
}

func (c *Cat) print(l *loader.Loader) error {
	for _, name := range c.Args.Files {
		e, err := l.File(name)
		if err != nil {
			return err
		}

		if !e.OK() {
			return e.Err
		}

		if c.Text {
			text, err := l.ExtractAsText(name)
			if err != nil {
				return fmt.Errorf(`decode "%s" error: %w`, name, err)
			}

			if _, err = io.WriteString(c.stdout, text); err != nil {
				return err
			}
			continue
		}

		if _, err = c.stdout.Write(e.Data); err != nil {
			return err
		}
	}

	return nil
}
