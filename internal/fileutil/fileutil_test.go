package fileutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")

	content := []byte("verified copy content")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFileVerified(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestCopyFileVerified_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CopyFileVerified(filepath.Join(dir, "nonexistent"), filepath.Join(dir, "dst.bin"))
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	dst := filepath.Join(dir, "b.jpg")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := MoveFile(src, dst); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(src); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("source should be gone, stat err=%v", err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("destination missing: %v", err)
	}
}

func TestMoveFileRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	dst := filepath.Join(dir, "b.jpg")
	for _, p := range []string{src, dst} {
		if err := os.WriteFile(p, []byte(p), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := MoveFile(src, dst); !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected fs.ErrExist, got %v", err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != dst {
		t.Fatal("destination was overwritten")
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	reserved := map[string]struct{}{}

	first := UniquePath(dir, "IMG_0001.jpg", reserved)
	second := UniquePath(dir, "IMG_0001.jpg", reserved)
	if first != filepath.Join(dir, "IMG_0001.jpg") {
		t.Fatalf("unexpected first path %q", first)
	}
	if second != filepath.Join(dir, "IMG_0001_1.jpg") {
		t.Fatalf("unexpected second path %q", second)
	}

	if err := os.WriteFile(filepath.Join(dir, "clip.mp4"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if got := UniquePath(dir, "clip.mp4", nil); got != filepath.Join(dir, "clip_1.mp4") {
		t.Fatalf("existing file should be skipped, got %q", got)
	}
}

func TestUniqueDir(t *testing.T) {
	parent := t.TempDir()
	if err := os.Mkdir(filepath.Join(parent, "export"), 0o755); err != nil {
		t.Fatal(err)
	}
	if got := UniqueDir(parent, "export"); got != filepath.Join(parent, "export_1") {
		t.Fatalf("unexpected dir %q", got)
	}
	if got := UniqueDir(parent, "fresh"); got != filepath.Join(parent, "fresh") {
		t.Fatalf("unexpected dir %q", got)
	}
}

func TestRemoveEmptyDirsKeepsRootAndFiles(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"a/b/c", "d", "e/f"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "e", "f", "keep.jpg"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := RemoveEmptyDirs(root); err != nil {
		t.Fatal(err)
	}
	for _, gone := range []string{"a", "d"} {
		if _, err := os.Stat(filepath.Join(root, gone)); !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("%s should be removed, stat err=%v", gone, err)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "e", "f", "keep.jpg")); err != nil {
		t.Fatalf("file should survive: %v", err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Fatalf("root should survive: %v", err)
	}
}

func TestPruneEmpty(t *testing.T) {
	parent := t.TempDir()
	scratch := filepath.Join(parent, "_extracted")
	if err := os.MkdirAll(filepath.Join(scratch, "leftover"), 0o755); err != nil {
		t.Fatal(err)
	}
	removed, err := PruneEmpty(scratch)
	if err != nil || !removed {
		t.Fatalf("expected scratch pruned, removed=%v err=%v", removed, err)
	}
	removed, err = PruneEmpty(scratch)
	if err != nil || removed {
		t.Fatalf("missing dir should be a no-op, removed=%v err=%v", removed, err)
	}

	if err := os.MkdirAll(scratch, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(scratch, "x.jpg"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	removed, err = PruneEmpty(scratch)
	if err != nil || removed {
		t.Fatalf("non-empty scratch must be kept, removed=%v err=%v", removed, err)
	}
}
