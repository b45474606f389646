// Package loader assembles a script's source text from a file or a
// directory of files, the way cmd/am's run and test subcommands take
// either a single script or a project directory as their argument.
package loader

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Ext is the suffix a source file must carry to be picked up from a
// directory. A bare path with this suffix is read directly regardless of
// where it lives.
const Ext = ".am"

// Read returns the concatenated source text rooted at path. A file named
// *.am is read directly, and any other file yields empty text; a directory
// is walked recursively, its entries visited in sorted order at each level,
// and every file named *.am is appended in that order.
func Read(path string) (string, error) {
	var sb strings.Builder
	if err := read(path, &sb); err != nil {
		return "", errors.Wrapf(err, "loader: read %s", path)
	}
	return sb.String(), nil
}

func read(path string, sb *strings.Builder) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		sort.Strings(names)
		for _, name := range names {
			if err := read(filepath.Join(path, name), sb); err != nil {
				return err
			}
		}
		return nil
	}
	if filepath.Ext(path) != Ext {
		return nil
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sb.Write(text)
	sb.WriteByte('\n')
	return nil
}
