package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/nguyengg/ziploader/internal"
	"github.com/nguyengg/ziploader/parse"
)

type List struct {
	LoadOptions
	Args struct {
		Archives []string `positional-arg-name:"archive" description:"local path, http(s):// URL, or s3://bucket/key of the archives to list" required:"yes"`
	} `positional-args:"yes"`

	stdout io.Writer
}

func (c *List) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	if c.stdout == nil {
		c.stdout = os.Stdout
	}

	success := 0
	n := len(c.Args.Archives)
	for i, name := range c.Args.Archives {
		logger := internal.NewLogger(i, n, name)

		l, err := c.load(internal.WithLogger(ctx, logger), name)
		if err == nil {
			c.print(logger, l.Files())
			success++
			continue
		}

		if errors.Is(err, context.Canceled) {
			break
		}

		logger.Printf("list error: %v", err)
	}

	log.Printf("successfully listed %d/%d archives", success, n)
	return nil
}

// print writes one line per file: status, size, compressed size, and name.
func (c *List) print(logger *log.Logger, result *parse.Result) {
	for _, name := range result.Overwritten {
		logger.Printf(`"%s" appears more than once; only the last entry is listed`, name)
	}

	w := tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	var size, csize uint64
	for _, name := range result.Names() {
		e := result.Files[name]
		size += uint64(len(e.Data))
		csize += uint64(e.CompressedSize)
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t  %s\n", e.Status, humanize.IBytes(uint64(len(e.Data))), humanize.IBytes(uint64(e.CompressedSize)), name)
	}
	_, _ = fmt.Fprintf(w, "%d files\t%s\t%s\t\n", len(result.Files), humanize.IBytes(size), humanize.IBytes(csize))
	_ = w.Flush()
}
