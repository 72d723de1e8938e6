package internal

import (
	"strings"
)

// RootDir is the common top-level directory of the files in an archive, including the trailing "/".
type RootDir string

// Trim removes the root directory from the given name.
func (r RootDir) Trim(name string) string {
	return strings.TrimPrefix(name, string(r))
}

// FindRootDir returns the common root directory of the given file names in a ZIP archive.
//
// Given these three names (ZIP file paths must always be relative and using `/` as separator):
//
//	test/a.txt
//	test/path/b.txt
//	test/another/path/c.txt
//
// The common root directory of those files is `test/`. The returned value is empty if the given files have no common
// root directory.
func FindRootDir(names []string) (root RootDir) {
	for _, name := range names {
		dir, _, ok := strings.Cut(strings.ReplaceAll(name, "\\", "/"), "/")
		switch {
		case !ok:
			// this is a file at top level so there is no root for sure.
			return ""
		case root == "":
			root = RootDir(dir + "/")
		case string(root) != dir+"/":
			return ""
		}
	}

	return root
}
