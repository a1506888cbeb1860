package catalog

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// DiscoverItems walks root recursively and returns the regular files whose
// extension matches opts.Extension, skipping any directory named
// opts.IgnoreDir. A root that is a symlink is followed; links below it are
// not. Returned paths are under root as given, sorted.
func DiscoverItems(root string, opts Options) ([]string, error) {
	walkRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("discover items in %s: %w", root, err)
	}
	ext := strings.ToLower(opts.Extension)
	var items []string
	err = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != walkRoot && opts.IgnoreDir != "" && strings.EqualFold(d.Name(), opts.IgnoreDir) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if strings.ToLower(filepath.Ext(d.Name())) != ext {
			return nil
		}
		rel, err := filepath.Rel(walkRoot, path)
		if err != nil {
			return err
		}
		items = append(items, filepath.Join(root, rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover items in %s: %w", root, err)
	}
	slices.Sort(items)
	return items, nil
}
