// Package catalog reads the pending and processed unit lists and discovers the
// images inside each pending unit.
//
// A unit is a folder under the input directory. Its identifier appears in the
// pending list until every item in it has a terminal outcome, at which point
// MarkProcessed removes it from the pending list and appends it to the
// processed list. Removal happens first so that a crash between the two steps
// leaves the unit in neither list rather than both; Seed re-discovers such a
// unit, and the completion ledger makes re-running it free.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/manolodalbo/nurse-cadet/internal/fileutil"
	"github.com/manolodalbo/nurse-cadet/internal/services"
)

// ErrNoPendingList is returned when the pending-units file does not exist.
var ErrNoPendingList = errors.New("pending unit list not found (run 'cadet catalog init')")

// Unit is one folder of images.
type Unit struct {
	Name  string
	Path  string
	Items []string
	// Missing is set when the unit's folder does not exist under the input directory.
	Missing bool
	// Err holds the failure when the folder exists but its items could not be listed.
	Err error
}

// Options controls item discovery.
type Options struct {
	// IgnoreDir is a directory base name skipped at any depth, compared case-insensitively.
	IgnoreDir string
	// Extension is the image extension including the dot, compared case-insensitively.
	Extension string
}

// Catalog manages the pending and processed unit lists.
type Catalog struct {
	pendingPath   string
	processedPath string
	opts          Options

	mu sync.Mutex
}

// Open returns a catalog over the two list files. Nothing is read until used.
func Open(pendingPath, processedPath string, opts Options) *Catalog {
	if opts.Extension == "" {
		opts.Extension = ".jpg"
	}
	return &Catalog{pendingPath: pendingPath, processedPath: processedPath, opts: opts}
}

// ListPending returns the units named in the pending list but not in the
// processed list, in pending-list order, each with its discovered items. A
// unit folder that cannot be read is returned with Err set; only failures on
// the list files themselves are returned as errors.
func (c *Catalog) ListPending(basePath string) ([]Unit, error) {
	names, err := c.pendingNames()
	if err != nil {
		return nil, err
	}
	units := make([]Unit, 0, len(names))
	for _, name := range names {
		unitPath := filepath.Join(basePath, name)
		info, err := os.Stat(unitPath)
		switch {
		case errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()):
			units = append(units, Unit{Name: name, Path: unitPath, Missing: true})
			continue
		case err != nil:
			units = append(units, Unit{Name: name, Path: unitPath, Err: err})
			continue
		}
		items, err := DiscoverItems(unitPath, c.opts)
		if err != nil {
			units = append(units, Unit{Name: name, Path: unitPath, Err: err})
			continue
		}
		units = append(units, Unit{Name: name, Path: unitPath, Items: items})
	}
	return units, nil
}

// MarkProcessed removes unit from the pending list and then appends it to the
// processed list.
func (c *Catalog) MarkProcessed(unit string) error {
	unit = strings.TrimSpace(unit)
	if unit == "" {
		return errors.New("catalog: empty unit name")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	lines, err := fileutil.ReadLines(c.pendingPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return services.Wrap(services.ErrStorage, "catalog", "read pending", c.pendingPath, err)
	}
	remaining := slices.DeleteFunc(lines, func(line string) bool { return line == unit })
	if err := fileutil.WriteLinesAtomic(c.pendingPath, remaining); err != nil {
		return services.Wrap(services.ErrStorage, "catalog", "rewrite pending", c.pendingPath, err)
	}

	processed, err := fileutil.ReadLineSet(c.processedPath)
	if err != nil {
		return services.Wrap(services.ErrStorage, "catalog", "read processed", c.processedPath, err)
	}
	if _, ok := processed[unit]; ok {
		return nil
	}
	if err := fileutil.AppendLines(c.processedPath, unit); err != nil {
		return services.Wrap(services.ErrStorage, "catalog", "append processed", c.processedPath, err)
	}
	return nil
}

// Seed appends every immediate subdirectory of basePath that is neither
// pending nor processed to the pending list, creating it if needed.
func (c *Catalog) Seed(basePath string) (int, error) {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		return 0, fmt.Errorf("read input directory: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	known, err := fileutil.ReadLineSet(c.pendingPath)
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "catalog", "read pending", c.pendingPath, err)
	}
	processed, err := fileutil.ReadLineSet(c.processedPath)
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "catalog", "read processed", c.processedPath, err)
	}
	for name := range processed {
		known[name] = struct{}{}
	}

	var added []string
	for _, entry := range entries {
		if !entry.IsDir() || c.ignored(entry.Name()) || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if _, ok := known[entry.Name()]; ok {
			continue
		}
		added = append(added, entry.Name())
	}
	if len(added) == 0 {
		if _, err := os.Stat(c.pendingPath); errors.Is(err, fs.ErrNotExist) {
			if err := fileutil.WriteLinesAtomic(c.pendingPath, nil); err != nil {
				return 0, services.Wrap(services.ErrStorage, "catalog", "create pending", c.pendingPath, err)
			}
		}
		return 0, nil
	}
	if err := fileutil.AppendLines(c.pendingPath, added...); err != nil {
		return 0, services.Wrap(services.ErrStorage, "catalog", "append pending", c.pendingPath, err)
	}
	return len(added), nil
}

// Counts returns the number of still-pending and processed units.
func (c *Catalog) Counts() (pending, processed int, err error) {
	names, err := c.pendingNames()
	if err != nil && !errors.Is(err, ErrNoPendingList) {
		return 0, 0, err
	}
	done, err := fileutil.ReadLineSet(c.processedPath)
	if err != nil {
		return 0, 0, services.Wrap(services.ErrStorage, "catalog", "read processed", c.processedPath, err)
	}
	return len(names), len(done), nil
}

func (c *Catalog) pendingNames() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines, err := fileutil.ReadLines(c.pendingPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoPendingList
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "catalog", "read pending", c.pendingPath, err)
	}
	processed, err := fileutil.ReadLineSet(c.processedPath)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "catalog", "read processed", c.processedPath, err)
	}
	seen := make(map[string]struct{}, len(lines))
	names := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		if _, done := processed[line]; done {
			continue
		}
		names = append(names, line)
	}
	return names, nil
}

func (c *Catalog) ignored(name string) bool {
	return c.opts.IgnoreDir != "" && strings.EqualFold(name, c.opts.IgnoreDir)
}
