package pipeline

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/backmassage/cag2mp4/internal/config"
)

// Discover walks root and returns every file whose extension matches
// config.SourceExtension (case-insensitive), ordered by path segments so
// the order is stable across runs on the same tree. Traversal failures are
// returned as *DiscoveryError.
func Discover(root string) ([]string, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, &DiscoveryError{Root: root, Err: err}
	}
	if !fi.IsDir() {
		return nil, &DiscoveryError{Root: root, Err: fmt.Errorf("not a directory")}
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), config.SourceExtension) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, &DiscoveryError{Root: root, Err: err}
	}
	slices.SortFunc(files, comparePaths)
	return files, nil
}

// comparePaths orders paths segment by segment, so "A/sub/x" sorts before
// "A-b/y" even though '-' < '/' bytewise.
func comparePaths(a, b string) int {
	sep := string(filepath.Separator)
	return slices.Compare(strings.Split(a, sep), strings.Split(b, sep))
}
