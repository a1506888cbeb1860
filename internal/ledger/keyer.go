package ledger

import (
	"fmt"
	"path"
	"strings"

	"github.com/manolodalbo/nurse-cadet/internal/config"
)

// Keyer derives an item's ledger identity and normalises identities read back
// from the completion logs.
type Keyer interface {
	Name() string
	Key(unit, itemPath string) string
	Normalize(stored string) string
}

// KeyerFor returns the keyer configured by pipeline.ledger_key.
func KeyerFor(name string) (Keyer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", config.LedgerKeyFilename:
		return FilenameKeyer{}, nil
	case config.LedgerKeyUnitFile:
		return UnitFileKeyer{}, nil
	default:
		return nil, fmt.Errorf("unknown ledger key %q", name)
	}
}

// FilenameKeyer identifies items by base filename alone. Identically named
// images in different units collide.
type FilenameKeyer struct{}

func (FilenameKeyer) Name() string { return config.LedgerKeyFilename }

func (FilenameKeyer) Key(_ string, itemPath string) string {
	return baseName(itemPath)
}

// Normalize reduces legacy full-path entries to their base name.
func (FilenameKeyer) Normalize(stored string) string {
	return baseName(stored)
}

// UnitFileKeyer identifies items by unit name and base filename.
type UnitFileKeyer struct{}

func (UnitFileKeyer) Name() string { return config.LedgerKeyUnitFile }

func (UnitFileKeyer) Key(unit, itemPath string) string {
	return strings.Trim(unit, "/") + "/" + baseName(itemPath)
}

// Normalize keeps the last two path segments, so a legacy full path under
// the input directory maps to unit/file.
func (UnitFileKeyer) Normalize(stored string) string {
	parts := strings.Split(strings.Trim(slashed(stored), "/"), "/")
	if len(parts) <= 2 {
		return strings.Join(parts, "/")
	}
	return strings.Join(parts[len(parts)-2:], "/")
}

// slashed converts Windows separators so entries written on another OS
// normalise the same way.
func slashed(p string) string {
	return strings.ReplaceAll(strings.TrimSpace(p), `\`, "/")
}

func baseName(p string) string {
	p = slashed(p)
	if p == "" {
		return ""
	}
	return path.Base(p)
}
