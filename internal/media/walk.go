package media

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// DirectoryEntry is one node found by Walk.
type DirectoryEntry struct {
	Path    string
	Rel     string
	Name    string
	Depth   int
	IsDir   bool
	Size    int64
	ModTime time.Time
	Kind    Kind
}

// Walk lists everything below root down to maxDepth levels (root's children
// are depth 1) in lexicographic path order. Symlinks are reported but never
// followed. Paths listed in skip are omitted along with their subtrees.
func Walk(root string, maxDepth int, skip ...string) ([]DirectoryEntry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("walk %s: not a directory", root)
	}

	skipSet := make(map[string]struct{}, len(skip))
	for _, s := range skip {
		if s != "" {
			skipSet[filepath.Clean(s)] = struct{}{}
		}
	}

	var entries []DirectoryEntry
	var visit func(dir, rel string, depth int) error
	visit = func(dir, rel string, depth int) error {
		children, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		for _, child := range children {
			path := filepath.Join(dir, child.Name())
			if _, skipped := skipSet[path]; skipped {
				continue
			}
			childRel := child.Name()
			if rel != "" {
				childRel = filepath.Join(rel, child.Name())
			}
			entry := DirectoryEntry{
				Path:  path,
				Rel:   childRel,
				Name:  child.Name(),
				Depth: depth,
				IsDir: child.IsDir(),
			}
			if fi, err := child.Info(); err == nil {
				entry.Size = fi.Size()
				entry.ModTime = fi.ModTime()
			}
			if !entry.IsDir && child.Type().IsRegular() {
				entry.Kind = Classify(child.Name())
			}
			entries = append(entries, entry)
			if entry.IsDir && depth < maxDepth {
				if err := visit(path, childRel, depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := visit(filepath.Clean(root), "", 1); err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}
