package media_test

import (
	"path/filepath"
	"reflect"
	"testing"

	"photoimport/internal/media"
	"photoimport/internal/testsupport"
)

func folderPaths(root string, folders []media.Folder) []string {
	out := make([]string, 0, len(folders))
	for _, f := range folders {
		rel, _ := filepath.Rel(root, f.Path)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestEligibleFolders(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteTree(t, root, map[string]string{
		"vacation/a.jpg":                 "x",
		"vacation/b.JPG":                 "x",
		"vacation/raw/c.nef":             "x",
		"docs/readme.txt":                "x",
		"empty/":                         "",
		"_extracted/export/one.jpg":      "x",
		"_extracted/notes/notes.txt":     "x",
		"nested/deeper/clip.mov":         "x",
		"nested/deeper/deepest/more.jpg": "x",
		"too/deep/down/x.jpg":            "x",
		".trash/old.jpg":                 "x",
		".trash/inner/old.jpg":           "x",
		"loose.jpg":                      "x",
	})

	inv, err := media.Scan(root)
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	got := folderPaths(root, inv.Folders)
	want := []string{"_extracted/export", "nested/deeper", "vacation"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("folders = %v, want %v", got, want)
	}
	if inv.Folders[2].MediaCount != 2 {
		t.Fatalf("vacation media count = %d, want 2", inv.Folders[2].MediaCount)
	}
	if len(inv.LooseFiles) != 1 || filepath.Base(inv.LooseFiles[0]) != "loose.jpg" {
		t.Fatalf("unexpected loose files: %v", inv.LooseFiles)
	}
}

func TestEligibleFoldersExcludesDescendantsOfEligible(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteTree(t, root, map[string]string{
		"trip/a.jpg":       "x",
		"trip/day2/b.jpg":  "x",
		"trip-2/c.jpg":     "x",
		"album/sub/d.webp": "x",
		"album/sub2/e.mp4": "x",
	})
	folders, err := media.EligibleFolders(root)
	if err != nil {
		t.Fatalf("EligibleFolders returned error: %v", err)
	}
	got := folderPaths(root, folders)
	want := []string{"album/sub", "album/sub2", "trip", "trip-2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("folders = %v, want %v", got, want)
	}
}

func TestEligibleFoldersSkipPaths(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteTree(t, root, map[string]string{
		"_extracted/export/one.jpg": "x",
		"keep/two.jpg":              "x",
	})
	folders, err := media.EligibleFolders(root, filepath.Join(root, "_extracted"))
	if err != nil {
		t.Fatalf("EligibleFolders returned error: %v", err)
	}
	if got := folderPaths(root, folders); !reflect.DeepEqual(got, []string{"keep"}) {
		t.Fatalf("folders = %v", got)
	}
}

func TestEligibleFoldersEmptyRoot(t *testing.T) {
	folders, err := media.EligibleFolders(t.TempDir())
	if err != nil || len(folders) != 0 {
		t.Fatalf("expected no folders, got %v err=%v", folders, err)
	}
}

func TestEligibleFoldersMissingRoot(t *testing.T) {
	if _, err := media.EligibleFolders(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestWalkBoundedAndOrdered(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteTree(t, root, map[string]string{
		"b/x.jpg":     "x",
		"a/y/z/w.jpg": "x",
		"c.txt":       "x",
	})
	entries, err := media.Walk(root, 2)
	if err != nil {
		t.Fatalf("Walk returned error: %v", err)
	}
	var rels []string
	for _, e := range entries {
		rels = append(rels, filepath.ToSlash(e.Rel))
		if e.Depth > 2 {
			t.Fatalf("entry %s beyond depth bound", e.Rel)
		}
	}
	want := []string{"a", "a/y", "b", "b/x.jpg", "c.txt"}
	if !reflect.DeepEqual(rels, want) {
		t.Fatalf("walk = %v, want %v", rels, want)
	}
	for _, e := range entries {
		if e.Rel == "b/x.jpg" && e.Kind != media.KindImage {
			t.Fatalf("expected image kind for %s", e.Rel)
		}
	}
}

func TestCountMedia(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteTree(t, root, map[string]string{
		"a.jpg":           "x",
		"deep/er/b.mp4":   "x",
		"deep/b.mp4.json": "{}",
	})
	n, err := media.CountMedia(root)
	if err != nil || n != 2 {
		t.Fatalf("CountMedia = %d err=%v, want 2", n, err)
	}
}
