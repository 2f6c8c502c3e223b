package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
)

// CopyFileVerified streams src to dst with SHA256 + size integrity verification.
// Removes dst on mismatch.
func CopyFileVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, srcInfo.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}

	if written != srcSize {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcSize, written)
	}

	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	_ = os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime())

	return nil
}

// MoveFile renames src to dst. When the two paths sit on different
// filesystems the file is copied with verification and the source removed.
// An existing dst is never overwritten.
func MoveFile(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("move %s: destination %s exists: %w", src, dst, fs.ErrExist)
	}
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}
	if err := CopyFileVerified(src, dst); err != nil {
		return fmt.Errorf("copy %s across filesystems: %w", src, err)
	}
	return os.Remove(src)
}

// UniquePath returns a path in dir for name that does not exist yet. A taken
// name gains a counter before its extension: photo.jpg, photo_1.jpg, ...
// Names already handed out by the caller are tracked in reserved.
func UniquePath(dir, name string, reserved map[string]struct{}) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for n := 1; ; n++ {
		path := filepath.Join(dir, candidate)
		_, taken := reserved[strings.ToLower(path)]
		if !taken {
			if _, err := os.Lstat(path); errors.Is(err, fs.ErrNotExist) {
				if reserved != nil {
					reserved[strings.ToLower(path)] = struct{}{}
				}
				return path
			}
		}
		candidate = stem + "_" + strconv.Itoa(n) + ext
	}
}

// UniqueDir is UniquePath for directories without an extension split, so
// "export.v2" becomes "export.v2_1" rather than "export_1.v2".
func UniqueDir(parent, name string) string {
	candidate := filepath.Join(parent, name)
	for n := 1; ; n++ {
		if _, err := os.Lstat(candidate); errors.Is(err, fs.ErrNotExist) {
			return candidate
		}
		candidate = filepath.Join(parent, name+"_"+strconv.Itoa(n))
	}
}

// RemoveEmptyDirs deletes every empty directory below root, deepest first.
// Root itself is kept. Directories that still hold files are left alone.
func RemoveEmptyDirs(root string) error {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Slice(dirs, func(i, j int) bool {
		return strings.Count(dirs[i], string(os.PathSeparator)) > strings.Count(dirs[j], string(os.PathSeparator))
	})
	for _, dir := range dirs {
		empty, err := IsDirEmpty(dir)
		if err != nil {
			return err
		}
		if !empty {
			continue
		}
		if err := os.Remove(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// IsDirEmpty reports whether dir has no entries.
func IsDirEmpty(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, err
	}
	defer f.Close()
	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}

// PruneEmpty removes dir and any empty directories inside it when nothing
// else remains. It reports whether dir was removed. A missing dir is not an
// error.
func PruneEmpty(dir string) (bool, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err := RemoveEmptyDirs(dir); err != nil {
		return false, err
	}
	empty, err := IsDirEmpty(dir)
	if err != nil || !empty {
		return false, err
	}
	if err := os.Remove(dir); err != nil {
		return false, err
	}
	return true, nil
}
