package config

import (
	"strings"
	"time"
)

// ParseConfig contains settings for parsing archives.
type ParseConfig struct {
	// Concurrency is the number of goroutines decompressing entries. Zero means unset.
	Concurrency int
	// Methods lists extra decompressors to enable by name, such as "zstd" or "xz".
	Methods []string
}

// ForParse returns the [parse] section.
func (l *Loader) ForParse() (c ParseConfig) {
	sec := l.section("parse")
	if sec == nil {
		return c
	}

	c.Concurrency = sec.Key("concurrency").MustInt(0)
	for _, m := range sec.Key("methods").Strings(",") {
		if m = strings.TrimSpace(m); m != "" {
			c.Methods = append(c.Methods, m)
		}
	}

	return
}

// ForParse calls Loader.ForParse on the DefaultLoader instance.
func ForParse() ParseConfig {
	return DefaultLoader.ForParse()
}

// LoaderConfig contains settings for retrieving archives.
type LoaderConfig struct {
	// ProgressInterval is the minimum interval between progress updates.
	ProgressInterval time.Duration
}

// ForLoader returns the [loader] section.
func (l *Loader) ForLoader() (c LoaderConfig) {
	sec := l.section("loader")
	if sec == nil {
		return c
	}

	c.ProgressInterval = sec.Key("progress-interval").MustDuration(0)
	return
}

// ForLoader calls Loader.ForLoader on the DefaultLoader instance.
func ForLoader() LoaderConfig {
	return DefaultLoader.ForLoader()
}
