package testsupport

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

// WriteFile writes contents to path, creating parent directories.
func WriteFile(t testing.TB, path, contents string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteJPEG writes a small solid-colour JPEG to path.
func WriteJPEG(t testing.TB, path string, width, height int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, color.RGBA{R: 200, G: 190, B: 160, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// NewUnitTree creates one folder per unit under root with the given image
// names, and returns the unit names sorted.
func NewUnitTree(t testing.TB, root string, units map[string][]string) []string {
	t.Helper()

	names := make([]string, 0, len(units))
	for unit, items := range units {
		dir := filepath.Join(root, unit)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
		for _, item := range items {
			WriteJPEG(t, filepath.Join(dir, item), 16, 12)
		}
		names = append(names, unit)
	}
	slices.Sort(names)
	return names
}

// WritePendingList writes the pending work-unit list.
func WritePendingList(t testing.TB, path string, units ...string) {
	t.Helper()

	var buf bytes.Buffer
	for _, unit := range units {
		buf.WriteString(unit)
		buf.WriteByte('\n')
	}
	WriteFile(t, path, buf.String())
}
