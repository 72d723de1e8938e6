package internal

import (
	"fmt"
	"os"
	"time"

	"github.com/nguyengg/ziploader/loader"
	"github.com/schollz/progressbar/v3"
)

// DefaultBytes is equivalent to progressbar.DefaultBytes but with higher progressbar.OptionThrottle.
func DefaultBytes(maxBytes int64, description string, options ...progressbar.Option) *progressbar.ProgressBar {
	return progressbar.NewOptions64(maxBytes,
		append([]progressbar.Option{
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(10),
			progressbar.OptionThrottle(1 * time.Second),
			progressbar.OptionShowCount(),
			progressbar.OptionOnCompletion(func() {
				_, _ = fmt.Fprint(os.Stderr, "\n")
			}),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionFullWidth(),
			progressbar.OptionSetRenderBlankState(true)},
			options...)...)
}

// ProgressBarListener returns a loader.Listener that drives a progress bar from loader.EventProgress and closes it
// upon loader.EventLoad or loader.EventError.
//
// The bar is created on the first progress event since that is when the total size becomes known.
func ProgressBarListener(description string, options ...progressbar.Option) loader.Listener {
	var bar *progressbar.ProgressBar

	return func(e loader.Event) {
		switch e.Type {
		case loader.EventProgress:
			if bar == nil {
				bar = DefaultBytes(e.Total, description, options...)
			}

			// ignore all errors from progress bar.
			_ = bar.Set64(e.Loaded)
		case loader.EventLoad, loader.EventError:
			if bar != nil {
				_ = bar.Close()
				bar = nil
			}
		}
	}
}
