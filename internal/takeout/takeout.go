package takeout

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"photoimport/internal/fileutil"
	"photoimport/internal/logging"
	"photoimport/internal/media"
)

// DetectionDepth bounds the search for media and sidecars living side by side.
const DetectionDepth = 3

const tempPrefix = ".flatten-"

// bundleDirNames are top-level directory names written by export tools.
var bundleDirNames = []string{"takeout", "google photos"}

// Result summarizes a normalization pass.
type Result struct {
	MediaFiles int
	Removed    int
	Renamed    int
	// Flattened is false when the bundle was already flat and nothing moved.
	Flattened bool
}

// Detect reports whether root looks like an export bundle: it holds a known
// export directory at the top level, or media files and JSON sidecars
// appear together within DetectionDepth levels.
func Detect(root string) (bool, error) {
	entries, err := media.Walk(root, DetectionDepth)
	if err != nil {
		return false, err
	}
	var sawMedia, sawSidecar bool
	for _, entry := range entries {
		if entry.IsDir {
			if entry.Depth == 1 && isBundleDirName(entry.Name) {
				return true, nil
			}
			continue
		}
		switch {
		case entry.Kind != media.KindOther:
			sawMedia = true
		case media.IsSidecar(entry.Name):
			sawSidecar = true
		}
	}
	return sawMedia && sawSidecar, nil
}

func isBundleDirName(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, candidate := range bundleDirNames {
		if lower == candidate {
			return true
		}
	}
	return false
}

type mediaFile struct {
	path  string
	depth int
}

// Normalize turns the bundle at root into a flat directory of media files.
// Every non-media file is deleted, media files at any depth are gathered
// into a temporary directory under root with colliding names suffixed
// (name_1.ext), the emptied tree is removed, and the files are moved back
// into root. Root itself is never removed. An already flat folder with no
// sidecars passes through unchanged.
func Normalize(root string, logger *slog.Logger) (Result, error) {
	logger = logging.NewComponentLogger(logger, "takeout")
	root = filepath.Clean(root)

	info, err := os.Stat(root)
	if err != nil {
		return Result{}, fmt.Errorf("normalize %s: %w", root, err)
	}
	if !info.IsDir() {
		return Result{}, fmt.Errorf("normalize %s: not a directory", root)
	}

	var result Result
	var files []mediaFile
	nested := false

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == root {
			return nil
		}
		if d.IsDir() {
			nested = true
			return nil
		}
		if d.Type().IsRegular() && media.IsMedia(d.Name()) {
			rel, _ := filepath.Rel(root, path)
			files = append(files, mediaFile{path: path, depth: strings.Count(rel, string(os.PathSeparator))})
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
		result.Removed++
		logger.Debug("Removed non-media file", logging.String("path", path))
		return nil
	})
	if err != nil {
		return result, err
	}
	result.MediaFiles = len(files)

	if !nested {
		if result.Removed > 0 {
			logger.Info("Removed sidecar files from flat folder",
				logging.String("path", root),
				logging.Int("removed", result.Removed),
			)
		}
		return result, nil
	}

	// Shallow files first so top-level names survive a collision unchanged.
	sort.Slice(files, func(i, j int) bool {
		if files[i].depth != files[j].depth {
			return files[i].depth < files[j].depth
		}
		return files[i].path < files[j].path
	})

	tempDir := filepath.Join(root, tempPrefix+uuid.NewString())
	if err := os.Mkdir(tempDir, 0o755); err != nil {
		return result, fmt.Errorf("create flatten directory: %w", err)
	}

	reserved := make(map[string]struct{}, len(files))
	for _, file := range files {
		target := fileutil.UniquePath(tempDir, filepath.Base(file.path), reserved)
		if filepath.Base(target) != filepath.Base(file.path) {
			result.Renamed++
			logger.Debug("Renamed colliding file",
				logging.String("source", file.path),
				logging.String("target", filepath.Base(target)),
			)
		}
		if err := fileutil.MoveFile(file.path, target); err != nil {
			return result, fmt.Errorf("collect %s: %w", file.path, err)
		}
	}

	if err := removeAllDirsExcept(root, tempDir); err != nil {
		return result, err
	}

	collected, err := os.ReadDir(tempDir)
	if err != nil {
		return result, fmt.Errorf("read flatten directory: %w", err)
	}
	for _, entry := range collected {
		if err := fileutil.MoveFile(filepath.Join(tempDir, entry.Name()), filepath.Join(root, entry.Name())); err != nil {
			return result, fmt.Errorf("restore %s: %w", entry.Name(), err)
		}
	}
	if err := os.Remove(tempDir); err != nil {
		return result, fmt.Errorf("remove flatten directory: %w", err)
	}

	result.Flattened = true
	logger.Info("Export bundle normalized",
		logging.String("path", root),
		logging.Int("media_files", result.MediaFiles),
		logging.Int("removed", result.Removed),
		logging.Int("renamed", result.Renamed),
	)
	return result, nil
}

// removeAllDirsExcept clears the now file-less directory structure under root.
// Anything still holding a file is reported rather than deleted.
func removeAllDirsExcept(root, keep string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())
		if path == keep || !entry.IsDir() {
			continue
		}
		if err := fileutil.RemoveEmptyDirs(path); err != nil {
			return fmt.Errorf("prune %s: %w", path, err)
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("prune %s: %w", path, err)
		}
	}
	return nil
}
