package fileutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestReadLinesSkipsBlanksAndComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "units.txt")
	if err := os.WriteFile(path, []byte("  box-1 \n\n# done later\nbox-2\r\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	lines, err := ReadLines(path)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(lines, []string{"box-1", "box-2"}) {
		t.Fatalf("unexpected lines %q", lines)
	}

	if _, err := ReadLines(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	set, err := ReadLineSet(filepath.Join(t.TempDir(), "missing"))
	if err != nil || len(set) != 0 {
		t.Fatalf("expected empty set for missing file, got %v %v", set, err)
	}
}

func TestWriteLinesAtomicReplacesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "pending.txt")
	if err := WriteLinesAtomic(path, []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if err := WriteLinesAtomic(path, []string{"b"}); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "b\n" {
		t.Fatalf("unexpected content %q", got)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp files cleaned up, found %d entries", len(entries))
	}

	if err := WriteLinesAtomic(path, nil); err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() != 0 {
		t.Fatalf("expected empty file, got %v %v", info, err)
	}
}

func TestAppendLinesRepairsMissingNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.txt")
	if err := os.WriteFile(path, []byte("box-1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := AppendLines(path, "box-2", "box-3"); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "box-1\nbox-2\nbox-3\n" {
		t.Fatalf("unexpected content %q", got)
	}
}
