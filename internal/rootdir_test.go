package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindRootDir(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantRoot RootDir
	}{
		{
			name: "simple root",
			args: []string{
				"test/a.txt",
				"test/path/b.txt",
				"test/another/path/c.txt",
			},
			wantRoot: "test/",
		},
		{
			name: "no root",
			args: []string{
				"test/a.txt",
				"path/b.txt",
				"another/path/c.txt",
			},
			wantRoot: "",
		},
		{
			name: "top-level file",
			args: []string{
				"test/a.txt",
				"b.txt",
			},
			wantRoot: "",
		},
		{
			name: "window paths",
			args: []string{
				"test\\a.txt",
				"test\\path\\b.txt",
			},
			wantRoot: "test/",
		},
		{
			name:     "empty",
			args:     nil,
			wantRoot: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantRoot, FindRootDir(tt.args))
		})
	}
}

func TestRootDir_Trim(t *testing.T) {
	assert.Equal(t, "path/b.txt", RootDir("test/").Trim("test/path/b.txt"))
	assert.Equal(t, "a.txt", RootDir("").Trim("a.txt"))
}

func TestTruncateRightWithSuffix(t *testing.T) {
	assert.Equal(t, "short.zip", TruncateRightWithSuffix("short.zip", 30, "..."))
	assert.Equal(t, "abc...", TruncateRightWithSuffix("abcdef", 3, "..."))
	assert.Equal(t, "abc", TruncateRightWithSuffix("abc", 3, "..."))
	assert.Equal(t, "...", TruncateRightWithSuffix("abc", 0, "..."))
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, `[1/2] "test.zip" - `, Prefix(0, 2, "path/to/test.zip"))
}
