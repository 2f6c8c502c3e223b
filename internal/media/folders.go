package media

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// EnumerationDepth is how far below a staging root folders are considered:
// the root's children and one more level for extracted archives.
const EnumerationDepth = 2

// Folder is a directory that qualifies for upload.
type Folder struct {
	Path string
	// MediaCount counts recognized media files directly inside Path.
	MediaCount int
}

// Inventory is what a staging root holds before upload.
type Inventory struct {
	Folders []Folder
	// LooseFiles are media files sitting directly in the staging root. They
	// belong to no folder and are not uploaded.
	LooseFiles []string
}

// EligibleFolders returns the folders below root, at most EnumerationDepth
// deep, whose top-level entries include a recognized media file. Hidden
// folders and folders nested under an eligible folder are not listed since
// the upload of the ancestor already covers them. Order is lexicographic.
func EligibleFolders(root string, skip ...string) ([]Folder, error) {
	inv, err := Scan(root, skip...)
	if err != nil {
		return nil, err
	}
	return inv.Folders, nil
}

// Scan is EligibleFolders plus the loose root files.
func Scan(root string, skip ...string) (Inventory, error) {
	root = filepath.Clean(root)
	entries, err := Walk(root, EnumerationDepth+1, skip...)
	if err != nil {
		return Inventory{}, err
	}

	counts := make(map[string]int)
	var dirs []string
	var inv Inventory
	hidden := make(map[string]struct{})
	for _, entry := range entries {
		parent := filepath.Dir(entry.Path)
		if entry.IsDir {
			if entry.Depth > EnumerationDepth {
				continue
			}
			if _, ok := hidden[parent]; ok || IsHidden(entry.Name) {
				hidden[entry.Path] = struct{}{}
				continue
			}
			dirs = append(dirs, entry.Path)
			continue
		}
		if entry.Kind == KindOther {
			continue
		}
		if parent == root {
			inv.LooseFiles = append(inv.LooseFiles, entry.Path)
			continue
		}
		counts[parent]++
	}

	sort.Strings(dirs)
	var accepted []string
	for _, dir := range dirs {
		if counts[dir] == 0 {
			continue
		}
		if hasAncestor(accepted, dir) {
			continue
		}
		accepted = append(accepted, dir)
		inv.Folders = append(inv.Folders, Folder{Path: dir, MediaCount: counts[dir]})
	}
	return inv, nil
}

// CountMedia counts recognized media files anywhere below root, skipping
// hidden directories.
func CountMedia(root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != root && IsHidden(d.Name()) {
			return filepath.SkipDir
		}
		if d.Type().IsRegular() && IsMedia(d.Name()) {
			count++
		}
		return nil
	})
	return count, err
}

func hasAncestor(accepted []string, dir string) bool {
	for _, a := range accepted {
		if strings.HasPrefix(dir, a+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}
